package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/metcalfc/spoon/internal/library"
	"github.com/metcalfc/spoon/internal/logging"
	"github.com/metcalfc/spoon/internal/state"
	"github.com/metcalfc/spoon/internal/surface"
)

// Model is the main reading view.
type Model struct {
	surf *surface.Surface
	lib  *library.Library
	clip CopyFunc

	importPath string

	keys     keyMap
	help     help.Model
	viewport viewport.Model
	search   textinput.Model
	spinner  spinner.Model

	searching    bool
	showChapters bool
	notice       string
	noticeErr    bool
	quitting     bool
	width        int
	height       int
}

// NewModel returns the main view. When importPath is empty it restores the
// active book instead of importing.
func NewModel(s *surface.Surface, lib *library.Library, importPath string, clip CopyFunc) Model {
	if clip == nil {
		clip = SystemClipboard
	}

	search := textinput.New()
	search.Placeholder = "excerpt number or text"
	search.Prompt = "/ "
	search.CharLimit = 200
	search.Width = 40

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		surf:       s,
		lib:        lib,
		clip:       clip,
		importPath: importPath,
		keys:       newKeyMap(),
		help:       help.New(),
		viewport:   viewport.New(80, 20),
		search:     search,
		spinner:    sp,
		width:      80,
		height:     24,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadCmd(m.surf, m.importPath),
		waitForChange(m.surf),
		m.spinner.Tick,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.render()
		return m, nil

	case tea.FocusMsg:
		// Notifications may have been missed while in the background.
		m.surf.Resync()
		m.render()
		return m, nil

	case changedMsg:
		m.render()
		return m, waitForChange(m.surf)

	case loadedMsg:
		if msg.err != nil {
			m.setError(library.UserMessage(msg.err))
		} else {
			m.notice = ""
		}
		m.render()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		return m, nil
	case "enter":
		query := m.search.Value()
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")

		r, found, err := m.surf.Search(query)
		switch {
		case err != nil:
			m.setError(err.Error())
		case !found:
			m.setNotice(fmt.Sprintf("No match for %q", query))
		default:
			m.showChapters = false
			m.setNotice(fmt.Sprintf("Jumped to excerpt %d", r.Index+1))
		}
		m.render()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
		return m, nil

	case key.Matches(msg, m.keys.Search):
		if _, ok := m.surf.Ready(); !ok {
			return m, nil
		}
		m.searching = true
		return m, m.search.Focus()

	case key.Matches(msg, m.keys.Copy):
		before, ok := m.surf.Ready()
		if !ok {
			return m, nil
		}
		text, _, err := m.surf.Next()
		if err != nil {
			m.setError(err.Error())
			break
		}
		done := fmt.Sprintf("Copied excerpt %d/%d", before.Index+1, before.Len())
		if before.Last() {
			done += ", that was the last one"
		}
		m.copyText(text, done)

	case key.Matches(msg, m.keys.Next):
		m.surf.Advance(1)

	case key.Matches(msg, m.keys.Prev):
		m.surf.Advance(-1)

	case key.Matches(msg, m.keys.Context):
		text, err := m.surf.ContextText()
		if err != nil {
			return m, nil
		}
		m.copyText(text, "Copied everything read so far")

	case key.Matches(msg, m.keys.Instruction):
		m.copyText(m.lib.Instruction(), "Copied instruction")

	case key.Matches(msg, m.keys.Chapters):
		m.showChapters = !m.showChapters
		m.viewport.GotoTop()

	case key.Matches(msg, m.keys.Verbosity):
		next := state.VerbosityDetailed
		if m.lib.Verbosity() == state.VerbosityDetailed {
			next = state.VerbosityBrief
		}
		if err := m.lib.SetVerbosity(next); err != nil {
			m.setError(err.Error())
		} else {
			m.setNotice("Chapter list: " + next)
		}

	case key.Matches(msg, m.keys.Refresh):
		m.surf.Resync()
		m.setNotice("Resynced")

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	m.render()
	return m, nil
}

func (m *Model) copyText(text, ok string) {
	if err := m.clip(text); err != nil {
		logging.Warn("Clipboard write failed", "error", err)
		m.setError("Clipboard unavailable: " + err.Error())
		return
	}
	m.setNotice(ok)
}

func (m *Model) setNotice(s string) { m.notice, m.noticeErr = s, false }
func (m *Model) setError(s string)  { m.notice, m.noticeErr = s, true }

func (m *Model) resize() {
	// header, status, notice, help
	reserved := 4
	if m.help.ShowAll {
		reserved += 3
	}
	m.viewport.Width = m.width
	m.viewport.Height = max(1, m.height-reserved)
	m.help.Width = m.width
}

// render refreshes the viewport from the surface's current state.
func (m *Model) render() {
	r, ok := m.surf.Ready()
	if !ok {
		m.viewport.SetContent("")
		return
	}
	wrap := lipgloss.NewStyle().Width(max(20, m.width-2))

	if m.showChapters {
		m.viewport.SetContent(wrap.Render(m.chapterList(r)))
		return
	}
	body := indexStyle.Render(fmt.Sprintf("[%d]", r.Index+1)) + "\n" + r.Text()
	m.viewport.SetContent(wrap.Render(body))
	m.viewport.GotoTop()
}

func (m Model) chapterList(r surface.Ready) string {
	chapters, ok := surface.Chapters(r)
	if !ok {
		return dimStyle.Render("Chapters unknown for this book. Import the file again to list them.")
	}
	detailed := m.lib.Verbosity() == state.VerbosityDetailed

	var sb strings.Builder
	for _, ch := range chapters {
		sb.WriteString(titleStyle.Render(fmt.Sprintf("Chapter %d", ch.Number)))
		sb.WriteString(dimStyle.Render(fmt.Sprintf("  ~%d words", ch.Words)))
		sb.WriteString("\n")
		if detailed {
			sb.WriteString(ch.Text)
		} else {
			sb.WriteString(ch.Preview)
		}
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	switch st := m.surf.State().(type) {
	case surface.Idle:
		sb.WriteString(titleStyle.Render("spoon"))
		sb.WriteString("\n\n")
		sb.WriteString(dimStyle.Render("No book open. Run: spoon read <file.epub>"))
		sb.WriteString("\n")

	case surface.Loading:
		sb.WriteString(fmt.Sprintf("%s Importing %s...\n", m.spinner.View(), st.Source))

	case surface.Failed:
		sb.WriteString(errorStyle.Render(library.UserMessage(st.Err)))
		sb.WriteString("\n")

	case surface.Ready:
		sb.WriteString(titleStyle.Render(st.Title))
		sb.WriteString("\n")
		sb.WriteString(statusStyle.Render(fmt.Sprintf("Excerpt %d/%d | %d%%",
			st.Index+1, st.Len(), surface.Percent(st.Index, st.Len()))))
		sb.WriteString("\n")
		sb.WriteString(m.viewport.View())
		sb.WriteString("\n")

	default:
		panic(fmt.Sprintf("tui: unhandled state %T", st))
	}

	switch {
	case m.searching:
		sb.WriteString(m.search.View())
	case m.notice != "" && m.noticeErr:
		sb.WriteString(errorStyle.Render(m.notice))
	case m.notice != "":
		sb.WriteString(okStyle.Render(m.notice))
	}
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))

	return sb.String()
}
