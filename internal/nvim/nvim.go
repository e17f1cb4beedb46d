package nvim

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/neovim/go-client/nvim"
)

// Manager handles the connection and interaction with a Neovim instance.
type Manager struct {
	nvim          *nvim.Nvim
	isSelfStarted bool
	cmd           *exec.Cmd
	socketPath    string
}

// New creates a new Neovim manager, connecting to an existing instance
// or starting a new headless one.
func New() (*Manager, error) {
	// Try to connect to a running instance first.
	if addr := os.Getenv("NVIM_LISTEN_ADDRESS"); addr != "" {
		v, err := nvim.Dial(addr)
		if err == nil {
			return &Manager{nvim: v}, nil
		}
	}

	// If that fails, start a temporary headless instance.
	tmpDir, err := os.MkdirTemp("", "blockmv-nvim-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir for nvim: %w", err)
	}
	socketPath := filepath.Join(tmpDir, "nvim.sock")

	cmd := exec.Command("nvim", "--headless", "--clean", "--listen", socketPath)
	if err := cmd.Start(); err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to start headless nvim: %w. Is 'nvim' in your PATH?", err)
	}

	// Wait for the socket file to appear.
	for i := 0; i < 20; i++ {
		if _, err := os.Stat(socketPath); err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	v, err := nvim.Dial(socketPath)
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to connect to headless nvim: %w", err)
	}

	m := &Manager{
		nvim:          v,
		isSelfStarted: true,
		cmd:           cmd,
		socketPath:    socketPath,
	}
	if err := m.configureTempInstance(); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func (m *Manager) configureTempInstance() error {
	b := m.nvim.NewBatch()
	b.Command("set noswapfile")
	b.Command("set hidden")
	if err := b.Execute(); err != nil {
		return fmt.Errorf("failed to configure headless nvim: %w", err)
	}
	return nil
}

// Headless reports whether the buffer lives in a temporary instance that
// disappears on Close.
func (m *Manager) Headless() bool {
	return m.isSelfStarted
}

// Close disconnects from Neovim and cleans up if it was self-started.
func (m *Manager) Close() {
	if m.nvim != nil {
		m.nvim.Close()
	}
	if m.isSelfStarted && m.cmd != nil && m.cmd.Process != nil {
		if err := m.cmd.Process.Kill(); err == nil {
			m.cmd.Wait()
			os.RemoveAll(filepath.Dir(m.socketPath))
		}
	}
}

// bufferLines converts document text to buffer lines. A trailing newline
// is implied by the buffer and not stored as an empty last line.
func bufferLines(content string) [][]byte {
	content = strings.TrimSuffix(content, "\n")
	lines := strings.Split(content, "\n")
	out := make([][]byte, len(lines))
	for i, s := range lines {
		out[i] = []byte(strings.TrimSuffix(s, "\r"))
	}
	return out
}

// UpdateBuffer opens filePath in Neovim and replaces its buffer with content
// without writing it to disk.
func (m *Manager) UpdateBuffer(filePath, content string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return err
	}

	b := m.nvim.NewBatch()
	b.Command(fmt.Sprintf("edit %s", absPath))
	b.SetBufferLines(0, 0, -1, true, bufferLines(content))
	if err := b.Execute(); err != nil {
		return fmt.Errorf("failed to update buffer for %s: %w", filePath, err)
	}
	return nil
}
