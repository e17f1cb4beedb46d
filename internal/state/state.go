package state

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sokinpui/blockmv/internal/fs"
)

const (
	stateDirName  = ".blockmv"
	stateFileName = "state.blockmv"
	SnapshotDir   = "snapshots"

	ActionRelocate = "relocate"
)

// ErrChanged means the file no longer has the content recorded in history.
var ErrChanged = errors.New("file changed since the recorded operation")

// Operation records one rewritten file.
type Operation struct {
	Action     string
	Path       string
	HashBefore string // SHA256 of the content before the operation
	HashAfter  string // SHA256 of the content after the operation
}

// HistoryEntry represents one complete run of the tool.
type HistoryEntry struct {
	ID         string
	Timestamp  int64
	Operations []Operation
}

// State represents the entire state file.
type State struct {
	History      []HistoryEntry
	CurrentIndex int
}

// Manager handles the lifecycle of the state file.
type Manager struct {
	statePath string
	state     *State
	StateDir  string
}

// findGitRoot finds the root of the git repository.
func findGitRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// New creates and loads a state manager rooted at the git repository, or the
// current directory outside of one.
func New() (*Manager, error) {
	rootDir, err := findGitRoot()
	if err != nil {
		rootDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current working directory: %w", err)
		}
	}
	return NewAt(rootDir)
}

// NewAt creates and loads a state manager under rootDir.
func NewAt(rootDir string) (*Manager, error) {
	stateDir := filepath.Join(rootDir, stateDirName)
	if err := os.MkdirAll(filepath.Join(stateDir, SnapshotDir), 0755); err != nil {
		return nil, fmt.Errorf("could not create state directory: %w", err)
	}
	m := &Manager{
		statePath: filepath.Join(stateDir, stateFileName),
		StateDir:  stateDir,
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func emptyState() *State {
	return &State{CurrentIndex: -1, History: []HistoryEntry{}}
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.state = emptyState()
			return nil
		}
		return err
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	blocks := strings.Split(content, "\n\n")
	if len(blocks) == 0 || strings.TrimSpace(blocks[0]) == "" {
		m.state = emptyState()
		return nil
	}

	// First block is current index
	index, err := strconv.Atoi(strings.TrimSpace(blocks[0]))
	if err != nil {
		return fmt.Errorf("invalid state file: could not parse current index: %w", err)
	}
	m.state = &State{CurrentIndex: index, History: []HistoryEntry{}}

	for _, block := range blocks[1:] {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")

		header := strings.Fields(lines[0])
		if len(header) != 2 {
			return fmt.Errorf("invalid state file: bad entry header '%s'", lines[0])
		}
		ts, err := strconv.ParseInt(header[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid state file: could not parse timestamp from '%s': %w", header[0], err)
		}
		entry := HistoryEntry{ID: header[1], Timestamp: ts}

		opLines := lines[1:]
		if len(opLines)%4 != 0 {
			return fmt.Errorf("invalid state file: incomplete operation record")
		}
		for i := 0; i < len(opLines); i += 4 {
			entry.Operations = append(entry.Operations, Operation{
				Action:     opLines[i],
				Path:       opLines[i+1],
				HashBefore: opLines[i+2],
				HashAfter:  opLines[i+3],
			})
		}
		m.state.History = append(m.state.History, entry)
	}

	if m.state.CurrentIndex >= len(m.state.History) {
		return fmt.Errorf("invalid state file: index %d beyond %d entries", m.state.CurrentIndex, len(m.state.History))
	}
	return nil
}

func (m *Manager) save() error {
	blocks := []string{strconv.Itoa(m.state.CurrentIndex)}

	for _, entry := range m.state.History {
		lines := []string{fmt.Sprintf("%d %s", entry.Timestamp, entry.ID)}
		for _, op := range entry.Operations {
			lines = append(lines, op.Action, op.Path, op.HashBefore, op.HashAfter)
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	content := strings.Join(blocks, "\n\n") + "\n"
	if err := fs.WriteFileAtomic(m.statePath, []byte(content)); err != nil {
		return fmt.Errorf("could not save state: %w", err)
	}
	return nil
}

// Write adds a new set of operations to the history, discarding any undone
// entries after the current one.
func (m *Manager) Write(operations []Operation) error {
	if m.state.CurrentIndex < len(m.state.History)-1 {
		m.state.History = m.state.History[:m.state.CurrentIndex+1]
	}

	m.state.History = append(m.state.History, HistoryEntry{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC().Unix(),
		Operations: operations,
	})
	m.state.CurrentIndex++
	return m.save()
}

// History returns the recorded entries and the index of the current one.
func (m *Manager) History() ([]HistoryEntry, int) {
	return m.state.History, m.state.CurrentIndex
}

// GetOperationsToUndo returns the operations of the current entry. The
// history pointer moves only once CompleteUndo is called.
func (m *Manager) GetOperationsToUndo() []Operation {
	if m.state.CurrentIndex < 0 {
		return nil
	}
	return m.state.History[m.state.CurrentIndex].Operations
}

// CompleteUndo steps the history pointer back after a successful undo.
func (m *Manager) CompleteUndo() error {
	if m.state.CurrentIndex < 0 {
		return nil
	}
	m.state.CurrentIndex--
	return m.save()
}

// GetOperationsToRedo returns the operations of the next entry. The
// history pointer moves only once CompleteRedo is called.
func (m *Manager) GetOperationsToRedo() []Operation {
	nextIndex := m.state.CurrentIndex + 1
	if nextIndex >= len(m.state.History) {
		return nil
	}
	return m.state.History[nextIndex].Operations
}

// CompleteRedo steps the history pointer forward after a successful redo.
func (m *Manager) CompleteRedo() error {
	if m.state.CurrentIndex+1 >= len(m.state.History) {
		return nil
	}
	m.state.CurrentIndex++
	return m.save()
}

// Snapshot stores data under its hash and returns the hash.
func (m *Manager) Snapshot(data []byte) (string, error) {
	hash := fs.HashBytes(data)
	path := filepath.Join(m.StateDir, SnapshotDir, hash)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}
	if err := fs.WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("could not store snapshot: %w", err)
	}
	return hash, nil
}

// Record snapshots both versions of a file and returns the operation for Write.
func (m *Manager) Record(path string, before, after []byte) (Operation, error) {
	hashBefore, err := m.Snapshot(before)
	if err != nil {
		return Operation{}, err
	}
	hashAfter, err := m.Snapshot(after)
	if err != nil {
		return Operation{}, err
	}
	return Operation{
		Action:     ActionRelocate,
		Path:       path,
		HashBefore: hashBefore,
		HashAfter:  hashAfter,
	}, nil
}

// Undo restores the content recorded before op, provided the file still holds
// the content recorded after it.
func (m *Manager) Undo(op Operation) error {
	return m.restore(op.Path, op.HashAfter, op.HashBefore)
}

// Redo reapplies op, provided the file still holds the content recorded before it.
func (m *Manager) Redo(op Operation) error {
	return m.restore(op.Path, op.HashBefore, op.HashAfter)
}

func (m *Manager) restore(path, expected, target string) error {
	current, err := fs.GetFileSHA256(path)
	if err != nil {
		return err
	}
	// Core safety check: if the file has been changed, leave it alone.
	if current != expected {
		return fmt.Errorf("%s: %w", path, ErrChanged)
	}
	data, err := os.ReadFile(filepath.Join(m.StateDir, SnapshotDir, target))
	if err != nil {
		return fmt.Errorf("missing snapshot for %s: %w", path, err)
	}
	return fs.WriteFileAtomic(path, data)
}
