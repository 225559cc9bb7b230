// Package keysource captures keystrokes for the cadence estimator. The
// primary path is a Bubble Tea terminal UI; when the terminal cannot be
// captured it falls back to line-buffered stdin with a one-time notice.
package keysource

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	"deskcat/internal/model"
)

// LinkStateMsg updates the displayed connection state.
type LinkStateMsg struct{ State model.LinkState }

// WPMMsg updates the displayed typing speed.
type WPMMsg struct{ WPM float64 }

// Source owns the keystroke channel feeding the host monitor.
type Source struct {
	keys   chan model.Keystroke
	logger *zap.Logger
}

// New builds a source with a buffered keystroke channel.
func New(logger *zap.Logger) *Source {
	return &Source{keys: make(chan model.Keystroke, 128), logger: logger}
}

// Keys returns the keystroke channel.
func (s *Source) Keys() <-chan model.Keystroke { return s.keys }

// CanCapture reports whether stdin is an interactive terminal.
func (s *Source) CanCapture() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// NewProgram builds the Bubble Tea program for interactive capture.
func (s *Source) NewProgram() *tea.Program {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return tea.NewProgram(&captureModel{keys: s.keys, spinner: sp})
}

// RunFallback reads newline-buffered stdin, emitting one keystroke per
// rune. Cadence granularity suffers, but the cat still types. The
// notice prints exactly once.
func (s *Source) RunFallback() error {
	fmt.Fprintln(os.Stderr, "key capture unavailable, falling back to line input")
	s.logger.Warn("running in fallback input mode")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		now := time.Now()
		for _, r := range scanner.Text() {
			s.keys <- model.Keystroke{At: now, Key: string(r)}
		}
	}
	close(s.keys)
	return scanner.Err()
}

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	stateStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	wpmStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// captureModel is the interactive capture UI: every key press feeds the
// estimator, the view shows link state and live WPM.
type captureModel struct {
	keys    chan<- model.Keystroke
	spinner spinner.Model
	state   model.LinkState
	wpm     float64
}

// Init implements tea.Model.
func (m *captureModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *captureModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			close(m.keys)
			return m, tea.Quit
		}
		select {
		case m.keys <- model.Keystroke{At: time.Now(), Key: keyName(msg)}:
		default:
			// Estimator stalled; dropping beats blocking the UI.
		}
		return m, nil
	case LinkStateMsg:
		m.state = msg.State
		return m, nil
	case WPMMsg:
		m.wpm = msg.WPM
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m *captureModel) View() string {
	status := stateStyle.Render(m.state.String())
	if m.state == model.LinkOpening || m.state == model.LinkHandshaking {
		status = m.spinner.View() + " " + status
	}
	return titleStyle.Render("deskcat") + "  " + status + "\n" +
		wpmStyle.Render(fmt.Sprintf("%.1f WPM", m.wpm)) + "\n" +
		noticeStyle.Render("type anywhere in this window; ctrl+c quits") + "\n"
}

// keyName normalizes a Bubble Tea key event into the estimator's key
// identity vocabulary.
func keyName(msg tea.KeyMsg) string {
	if msg.Type == tea.KeyRunes {
		return string(msg.Runes)
	}
	return msg.String()
}
