package recipe

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/sokinpui/blockmv/model"
)

// Format identifies how a recipe is encoded.
type Format string

const (
	FormatYAML     Format = "yaml"
	FormatTOML     Format = "toml"
	FormatMarkdown Format = "markdown"
)

const (
	DefaultPath            = "src/App.js"
	defaultSuccessMessage  = "Fragment relocated successfully"
	defaultNotFoundMessage = "Could not find fragment pattern"
)

// Default returns the built-in target: the scanner modal of src/App.js is moved
// out of fixed-bottom-controls to the end of the page container.
func Default() model.Target {
	return model.Target{
		Name: "scanner-modal",
		Path: DefaultPath,
		Fragment: []string{
			"{/* Scanner Modal */}",
			"{showScanner && (",
			`<div className="scanner-modal-overlay">`,
			`<div className="scanner-modal-content">`,
			"<h3>Escanear Código de Barras</h3>",
			`<div id="reader"></div>`,
			`<div className="scanner-actions" style={{ marginTop: '20px' }}>`,
			`<Button onClick={handleCloseScanner} variant="secondary">`,
			"Cerrar Escáner",
			"</Button>",
			"</div>",
			"</div>",
			"</div>",
			")}",
		},
		Anchor: model.Anchor{
			Before: []string{"</div>", ")}"},
			After:  []string{"</div>", "</div>", ");", "}"},
		},
		Condition:       "showScanner",
		Indent:          strings.Repeat(" ", 8),
		IndentUnit:      "  ",
		Annotation:      "Rendered outside fixed-bottom-controls for proper centering",
		SuccessMessage:  "Successfully moved scanner modal outside fixed-bottom-controls",
		NotFoundMessage: "Could not find scanner modal pattern",
	}
}

// FormatFor picks the recipe format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported recipe extension %q", filepath.Ext(path))
	}
}

// Detect guesses the format of recipe content that has no file name.
func Detect(data []byte) Format {
	if bytes.Contains(data, []byte("```")) {
		return FormatMarkdown
	}
	var keys map[string]any
	if _, err := toml.Decode(string(data), &keys); err == nil && len(keys) > 0 {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads a recipe file.
func Load(path string) (model.Target, error) {
	format, err := FormatFor(path)
	if err != nil {
		return model.Target{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Target{}, fmt.Errorf("failed to read recipe: %w", err)
	}
	target, err := Parse(data, format)
	if err != nil {
		return model.Target{}, fmt.Errorf("%s: %w", path, err)
	}
	return target, nil
}

// Parse decodes a recipe and fills unset fields with defaults.
func Parse(data []byte, format Format) (model.Target, error) {
	var target model.Target
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &target); err != nil {
			return model.Target{}, fmt.Errorf("failed to parse yaml recipe: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &target); err != nil {
			return model.Target{}, fmt.Errorf("failed to parse toml recipe: %w", err)
		}
	case FormatMarkdown:
		t, err := parseMarkdown(data)
		if err != nil {
			return model.Target{}, err
		}
		target = t
	default:
		return model.Target{}, fmt.Errorf("unknown recipe format %q", format)
	}

	applyDefaults(&target)
	if err := Validate(target); err != nil {
		return model.Target{}, err
	}
	return target, nil
}

func applyDefaults(t *model.Target) {
	if t.Path == "" {
		t.Path = DefaultPath
	}
	if t.IndentUnit == "" {
		t.IndentUnit = "  "
	}
	if t.SuccessMessage == "" {
		t.SuccessMessage = defaultSuccessMessage
	}
	if t.NotFoundMessage == "" {
		t.NotFoundMessage = defaultNotFoundMessage
	}
}

// Validate checks that a target carries a usable fragment and anchor.
func Validate(t model.Target) error {
	if !hasTokens(t.Fragment) {
		return fmt.Errorf("recipe has no fragment pattern")
	}
	if !hasTokens(t.Anchor.Before) || !hasTokens(t.Anchor.After) {
		return fmt.Errorf("recipe anchor needs both before and after lines")
	}
	if t.IndentWidth < 0 {
		return fmt.Errorf("indent_width must not be negative")
	}
	if strings.TrimSpace(t.Indent) != "" {
		return fmt.Errorf("indent must contain only blanks")
	}
	return nil
}

func hasTokens(lines []string) bool {
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			return true
		}
	}
	return false
}
