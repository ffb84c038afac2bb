package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pic/internal/converter"
)

// Model renders the progress of one conversion run. It quits when the
// update channel is closed.
type Model struct {
	title     string
	updates   <-chan converter.ProgressUpdate
	started   time.Time
	width     int
	total     int
	converted int
	failed    int
	cleaned   int
	quitting  bool

	cancel      func()
	interrupted bool
}

type doneMsg struct{}

type updateMsg converter.ProgressUpdate

func NewModel(title string, updates <-chan converter.ProgressUpdate) Model {
	return Model{title: title, updates: updates, started: time.Now()}
}

// WithInterrupt makes ctrl+c call cancel. The model keeps draining updates
// until the run closes the channel.
func (m Model) WithInterrupt(cancel func()) Model {
	m.cancel = cancel
	return m
}

func (m Model) Init() tea.Cmd {
	return listenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.total += msg.TotalDelta
		m.converted += msg.ProcessedDelta
		m.failed += msg.ErrorDelta
		m.cleaned += msg.CleanedDelta
		return m, listenForUpdates(m.updates)
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && !m.interrupted {
			m.interrupted = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = int(math.Min(60, float64(m.width-10)))
		if barWidth < 20 {
			barWidth = 20
		}
	}

	ratio := 0.0
	if m.total > 0 {
		ratio = float64(m.converted+m.failed) / float64(m.total)
		if ratio > 1 {
			ratio = 1
		}
	}

	bar := renderBar(barWidth, ratio)
	elapsed := time.Since(m.started).Round(time.Millisecond)

	lines := []string{
		titleStyle.Render("pic · " + m.title),
		labelStyle.Render(fmt.Sprintf("Images: %d/%d", m.converted+m.failed, m.total)) + dimStyle.Render(fmt.Sprintf("  failed:%d", m.failed)),
		labelStyle.Render(fmt.Sprintf("Sources cleaned up: %d", m.cleaned)),
		dimStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)),
		barStyle.Render(bar),
	}
	if m.interrupted {
		lines = append(lines, warnStyle.Render("Interrupted, stopping after the current image..."))
	}

	return strings.Join(lines, "\n")
}

func listenForUpdates(updates <-chan converter.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(update)
	}
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	labelStyle = lipgloss.NewStyle().Foreground(ColorInk)
	barStyle   = lipgloss.NewStyle().Foreground(ColorSuccess)
	dimStyle   = lipgloss.NewStyle().Foreground(ColorDim)
	warnStyle  = lipgloss.NewStyle().Foreground(ColorWarn)
)
