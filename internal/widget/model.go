// Package widget is the terminal front end of the calculator: a bubbletea
// model over one calculator.State with a dimension readout.
package widget

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"vector-core/internal/calculator"
	"vector-core/internal/visual"
)

const gaugeWidth = 24

var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#1f2937")).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f3f4f6")).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#06b6d4"))

	expressionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6b7280")).
			Align(lipgloss.Right)

	displayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f3f4f6")).
			Bold(true).
			Align(lipgloss.Right)

	errorStyle = displayStyle.
			Foreground(lipgloss.Color("#ef4444"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a855f7"))

	gaugeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#eab308"))

	historyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ca3af"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#06b6d4")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// Model is the calculator widget.
type Model struct {
	state     calculator.State
	dimension visual.Dimension

	showHistory bool
	cursor      int

	width  int
	logger *zap.Logger
}

// New returns a cleared widget. A nil logger discards log output.
func New(logger *zap.Logger) Model {
	if logger == nil {
		logger = zap.NewNop()
	}

	return Model{
		state:     calculator.NewState(),
		dimension: visual.DefaultDimension,
		width:     36,
		logger:    logger,
	}
}

// State returns the calculator state behind the widget.
func (m Model) State() calculator.State {
	return m.state
}

// Dimension returns the selected visualization dimension.
func (m Model) Dimension() visual.Dimension {
	return m.dimension
}

// Snapshot is the read-only view handed to the visualization readout.
func (m Model) Snapshot() visual.Snapshot {
	return visual.NewSnapshot(m.state.Operand, m.dimension)
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(24, min(msg.Width-8, 60))
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" || key == "q" {
			return m, tea.Quit
		}

		if m.showHistory {
			return m.updateHistory(key), nil
		}
		return m.updateKeypad(key), nil
	}

	return m, nil
}

func (m Model) updateKeypad(key string) Model {
	switch key {
	case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.state = m.state.Digit(key[0])
	case ".", ",":
		m.state = m.state.Decimal()
	case "%":
		m.state = m.state.Percent()
	case "n":
		m.state = m.state.SignFlip()
	case "backspace":
		m.state = m.state.Backspace()
	case "esc", "c":
		m.state = m.state.Clear()
	case "enter", "=":
		m.equals()
	case "tab":
		m.dimension = m.dimension.Next()
	case "H":
		m.showHistory = true
		m.cursor = 0
	default:
		if op, ok := calculator.CanonicalOperator(key); ok {
			m.state = m.state.Operator(op)
		}
	}

	return m
}

func (m Model) updateHistory(key string) Model {
	n := len(m.state.History)

	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < n-1 {
			m.cursor++
		}
	case "enter":
		next, err := m.state.SelectHistory(m.cursor)
		if err != nil {
			m.logger.Debug("history selection ignored", zap.Int("index", m.cursor), zap.Error(err))
			return m
		}
		m.state = next
		m.showHistory = false
	case "X":
		m.state = m.state.ClearHistory()
		m.cursor = 0
	case "H", "esc":
		m.showHistory = false
	}

	return m
}

func (m *Model) equals() {
	expr := m.state.Expression + m.state.Operand

	next, err := m.state.Equals()
	m.state = next

	if err != nil {
		m.logger.Warn("evaluation failed", zap.String("expression", expr), zap.Error(err))
		return
	}

	m.logger.Info("expression evaluated",
		zap.String("expression", next.History[0].Expression),
		zap.String("result", next.Operand),
	)
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("VECTOR CORE"))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("// MULTI-DIMENSIONAL CALCULATOR"))
	b.WriteString("\n\n")

	b.WriteString(expressionStyle.Width(m.width).Render(m.state.Expression))
	b.WriteString("\n")

	display := displayStyle
	if m.state.Operand == calculator.ErrorDisplay {
		display = errorStyle
	}
	b.WriteString(display.Width(m.width).Render(m.state.Operand))
	b.WriteString("\n\n")

	snap := m.Snapshot()
	b.WriteString(dimStyle.Render(fmt.Sprintf("Dimension: %s", snap.Dimension.Label())))
	b.WriteString("\n")
	b.WriteString(gaugeStyle.Render(gauge(snap.Normalized)))
	b.WriteString("\n")

	if m.showHistory {
		b.WriteString("\n")
		b.WriteString(m.historyView())
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help()))

	return frameStyle.Render(b.String()) + "\n"
}

func (m Model) historyView() string {
	if len(m.state.History) == 0 {
		return historyStyle.Render("no history yet") + "\n"
	}

	var b strings.Builder
	for i, e := range m.state.History {
		line := fmt.Sprintf("%s = %s", e.Expression, e.Result)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString(historyStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) help() string {
	if m.showHistory {
		return "↑/↓ move · enter recall · X clear history · H close"
	}
	return "0-9 . + - * / % · n ± · enter = · esc clear · tab dim · H history · q quit"
}

// gauge draws |n| (0..1) as a bar, with a leading sign for negatives.
func gauge(n float64) string {
	filled := int(math.Round(math.Abs(n) * gaugeWidth))
	filled = max(0, min(filled, gaugeWidth))

	sign := "+"
	if n < 0 {
		sign = "-"
	}

	return sign + "[" + strings.Repeat("█", filled) + strings.Repeat("░", gaugeWidth-filled) + "]"
}
