// Package tui holds the terminal surfaces: the main reading view and a
// compact overlay. Both are thin bubbletea shells over surface.Surface.
package tui

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/metcalfc/spoon/internal/surface"
)

// CopyFunc puts text on the clipboard.
type CopyFunc func(string) error

// SystemClipboard writes to the OS clipboard.
var SystemClipboard CopyFunc = clipboard.WriteAll

type changedMsg struct{}

type loadedMsg struct {
	state surface.State
	err   error
}

// waitForChange blocks until the surface reports an outside change.
func waitForChange(s *surface.Surface) tea.Cmd {
	return func() tea.Msg {
		<-s.Changes()
		return changedMsg{}
	}
}

func importCmd(s *surface.Surface, path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return loadedMsg{state: surface.Failed{Err: err}, err: fmt.Errorf("read %s: %w", path, err)}
		}
		st, err := s.Import(filepath.Base(path), data)
		return loadedMsg{state: st, err: err}
	}
}

func activateCmd(s *surface.Surface) tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{state: s.Activate()}
	}
}

// loadCmd imports path when given, otherwise restores the active book.
func loadCmd(s *surface.Surface, path string) tea.Cmd {
	if path != "" {
		return importCmd(s, path)
	}
	return activateCmd(s)
}
