// Package tui renders a live view of a migration run by polling its
// progress store. Atomic state writes mean a poll either sees the
// previous or the current snapshot; a momentarily unreadable file keeps
// the last good snapshot on screen.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/funcport/funcport/internal/progress"
)

const pollInterval = 500 * time.Millisecond

type stateMsg struct {
	st  *progress.RunState
	err error
}

// Model is the Bubble Tea model behind `funcport status --watch`.
type Model struct {
	store   *progress.Store
	st      *progress.RunState
	loadErr error
	spinner spinner.Model
	done    bool
}

func New(store *progress.Store) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = runningStyle
	return Model{store: store, spinner: sp}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll())
}

func (m Model) poll() tea.Cmd {
	store := m.store
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		st, err := store.Load()
		return stateMsg{st: st, err: err}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
		return m, nil

	case stateMsg:
		if msg.err != nil {
			// Keep the previous snapshot; only surface the error when
			// there has never been a good one.
			if m.st == nil {
				m.loadErr = msg.err
			}
		} else {
			m.st = msg.st
			m.loadErr = nil
		}
		if m.st != nil && m.st.Finished() {
			m.done = true
			return m, tea.Quit
		}
		return m, m.poll()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("funcport migration status"))
	b.WriteString("\n\n")

	switch {
	case m.loadErr != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("cannot read progress: %v", m.loadErr)))
		b.WriteString("\n")
	case m.st == nil:
		b.WriteString(m.spinner.View())
		b.WriteString(" waiting for progress state...\n")
	default:
		b.WriteString(renderState(m.st, m.spinner))
	}

	if m.done {
		b.WriteString(footerStyle.Render("run finished"))
	} else {
		b.WriteString(footerStyle.Render("q to quit"))
	}
	b.WriteString("\n")
	return b.String()
}

func renderState(st *progress.RunState, sp spinner.Model) string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s  (%d units)\n\n", st.ID, len(st.Units))

	for _, ph := range st.Phases {
		marker, style := phaseMarker(ph.Status, sp)
		line := fmt.Sprintf("%s %-24s %s", marker, ph.Name, string(ph.Status))
		if ph.Status.Terminal() && ph.DurationMs > 0 {
			line += fmt.Sprintf("  %s", (time.Duration(ph.DurationMs) * time.Millisecond).String())
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

func phaseMarker(status progress.Status, sp spinner.Model) (string, lipgloss.Style) {
	switch status {
	case progress.StatusSucceeded:
		return "✓", successStyle
	case progress.StatusFailedFatal:
		return "✗", errorStyle
	case progress.StatusFailedDegraded:
		return "!", warnStyle
	case progress.StatusRunning:
		return sp.View(), runningStyle
	default:
		return "·", pendingStyle
	}
}
