package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/sokinpui/blockmv/internal/ui"
)

// SourceProvider determines and retrieves recipe content.
type SourceProvider struct {
	stdin         *os.File
	readClipboard func() (string, error)
}

// New creates a new SourceProvider.
func New() *SourceProvider {
	return &SourceProvider{stdin: os.Stdin, readClipboard: clipboard.ReadAll}
}

// GetContent retrieves content from stdin (if piped) or the clipboard.
func (sp *SourceProvider) GetContent() (string, error) {
	stat, err := sp.stdin.Stat()
	isPiped := err == nil && (stat.Mode()&os.ModeCharDevice) == 0

	if isPiped {
		ui.Header("--- Reading recipe from stdin ---")
		content, err := io.ReadAll(sp.stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		return string(content), nil
	}

	ui.Header("--- Reading recipe from clipboard ---")
	content, err := sp.readClipboard()
	if err != nil {
		return "", fmt.Errorf("failed to read from clipboard: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		ui.Warning("Clipboard is empty. Nothing to process.")
		return "", nil
	}
	return content, nil
}
