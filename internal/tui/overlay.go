package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/metcalfc/spoon/internal/library"
	"github.com/metcalfc/spoon/internal/surface"
)

type overlayKeys struct {
	Copy key.Binding
	Prev key.Binding
	Next key.Binding
	Quit key.Binding
}

// Overlay is a one-line surface that copies the current excerpt and moves
// on each time it is pressed. It follows the active book and picks up moves
// made by other surfaces.
type Overlay struct {
	surf *surface.Surface
	clip CopyFunc
	keys overlayKeys

	flash    string
	flashErr bool
	quitting bool
}

// NewOverlay returns the overlay for s, restoring the active book on start.
func NewOverlay(s *surface.Surface, clip CopyFunc) Overlay {
	if clip == nil {
		clip = SystemClipboard
	}
	return Overlay{
		surf: s,
		clip: clip,
		keys: overlayKeys{
			Copy: key.NewBinding(key.WithKeys(" ", "enter")),
			Prev: key.NewBinding(key.WithKeys("left", "p")),
			Next: key.NewBinding(key.WithKeys("right", "n")),
			Quit: key.NewBinding(key.WithKeys("q", "esc", "ctrl+c")),
		},
	}
}

func (o Overlay) Init() tea.Cmd {
	return tea.Batch(activateCmd(o.surf), waitForChange(o.surf))
}

func (o Overlay) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		o.flash = ""
		return o, waitForChange(o.surf)

	case tea.FocusMsg:
		o.surf.Resync()
		return o, nil

	case loadedMsg:
		return o, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, o.keys.Quit):
			o.quitting = true
			return o, tea.Quit

		case key.Matches(msg, o.keys.Copy):
			before, ok := o.surf.Ready()
			if !ok {
				return o, nil
			}
			text, _, err := o.surf.Next()
			if err == nil {
				err = o.clip(text)
			}
			switch {
			case err != nil:
				o.flash, o.flashErr = err.Error(), true
			case before.Last():
				o.flash, o.flashErr = "last excerpt", false
			default:
				o.flash, o.flashErr = "copied", false
			}

		case key.Matches(msg, o.keys.Prev):
			o.surf.Advance(-1)
			o.flash = ""

		case key.Matches(msg, o.keys.Next):
			o.surf.Advance(1)
			o.flash = ""
		}
	}
	return o, nil
}

func (o Overlay) View() string {
	if o.quitting {
		return ""
	}

	var line string
	switch st := o.surf.State().(type) {
	case surface.Idle:
		line = dimStyle.Render("no book")
	case surface.Loading:
		line = dimStyle.Render("loading...")
	case surface.Failed:
		line = errorStyle.Render(library.UserMessage(st.Err))
	case surface.Ready:
		line = indexStyle.Render(fmt.Sprintf("%d/%d", st.Index+1, st.Len())) + " " + titleStyle.Render("▶ copy")
	default:
		panic(fmt.Sprintf("tui: unhandled state %T", st))
	}

	switch {
	case o.flash != "" && o.flashErr:
		line += " " + errorStyle.Render(o.flash)
	case o.flash == "last excerpt":
		line += " " + noticeStyle.Render(o.flash)
	case o.flash != "":
		line += " " + okStyle.Render(o.flash)
	}
	return overlayStyle.Render(line)
}
