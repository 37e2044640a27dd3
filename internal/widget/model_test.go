package widget

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"vector-core/internal/calculator"
	"vector-core/internal/visual"
)

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func typeKeys(t *testing.T, m Model, keys ...string) Model {
	t.Helper()

	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m
}

func TestKeypadEvaluatesExpression(t *testing.T) {
	m := typeKeys(t, New(nil), "1", "0", "/", "4", "enter")

	if got := m.State().Operand; got != "2.5" {
		t.Fatalf("expected 2.5, got %q", got)
	}
	if got := m.State().History[0].Expression; got != "10÷4" {
		t.Fatalf("expected history expression %q, got %q", "10÷4", got)
	}
}

func TestKeypadEditingKeys(t *testing.T) {
	m := typeKeys(t, New(nil), "1", "2", ".", ".", "5", "backspace", "n")
	if got := m.State().Operand; got != "-12." {
		t.Fatalf("expected -12., got %q", got)
	}

	m = typeKeys(t, m, "esc")
	if got := m.State().Operand; got != "0" || !m.State().NewInput {
		t.Fatalf("expected cleared state, got %+v", m.State())
	}

	m = typeKeys(t, m, "5", "0", "%")
	if got := m.State().Operand; got != "0.5" {
		t.Fatalf("expected 0.5, got %q", got)
	}
}

func TestEvaluationFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := typeKeys(t, New(zap.New(core)), "5", "/", "0", "=")

	if got := m.State().Operand; got != calculator.ErrorDisplay {
		t.Fatalf("expected %q, got %q", calculator.ErrorDisplay, got)
	}
	if got := logs.FilterMessage("evaluation failed").Len(); got != 1 {
		t.Fatalf("expected 1 failure log, got %d", got)
	}
	if !strings.Contains(m.View(), calculator.ErrorDisplay) {
		t.Fatal("expected error display in view")
	}
}

func TestTabCyclesDimension(t *testing.T) {
	m := New(nil)
	if m.Dimension() != visual.DefaultDimension {
		t.Fatalf("expected default dimension %q, got %q", visual.DefaultDimension, m.Dimension())
	}

	m = typeKeys(t, m, "tab", "tab")
	if m.Dimension() != visual.Dim5D {
		t.Fatalf("expected %q, got %q", visual.Dim5D, m.Dimension())
	}
	if !strings.Contains(m.View(), "Dimension: 5D") {
		t.Fatal("expected dimension label in view")
	}
}

func TestHistoryPanelRecallAndClear(t *testing.T) {
	m := typeKeys(t, New(nil), "6", "*", "7", "enter", "9", "+", "1", "enter")

	m = typeKeys(t, m, "H", "down", "enter")
	if m.showHistory {
		t.Fatal("expected history panel closed after recall")
	}
	if got := m.State().Operand; got != "42" {
		t.Fatalf("expected recalled 42, got %q", got)
	}
	if got := m.State().Expression; got != "6×7 = " {
		t.Fatalf("expected recalled expression, got %q", got)
	}

	m = typeKeys(t, m, "H", "X", "esc")
	if n := len(m.State().History); n != 0 {
		t.Fatalf("expected history cleared, got %d entries", n)
	}
	if m.State().Operand != "42" {
		t.Fatalf("expected operand kept, got %q", m.State().Operand)
	}
}

func TestHistoryPanelIgnoresDigits(t *testing.T) {
	m := typeKeys(t, New(nil), "H", "7", "enter")

	if got := m.State().Operand; got != "0" {
		t.Fatalf("expected digits ignored while browsing history, got %q", got)
	}
	if !m.showHistory {
		t.Fatal("expected history panel to stay open on empty selection")
	}
	if !strings.Contains(m.View(), "no history yet") {
		t.Fatal("expected empty history notice")
	}
}

func TestQuitKeys(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		_, cmd := New(nil).Update(keyMsg(k))
		if cmd == nil {
			t.Fatalf("%s: expected quit command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("%s: expected tea.QuitMsg", k)
		}
	}
}

func TestGauge(t *testing.T) {
	tests := []struct {
		n      float64
		prefix string
		filled int
	}{
		{n: 0, prefix: "+", filled: 0},
		{n: 0.5, prefix: "+", filled: gaugeWidth / 2},
		{n: -1, prefix: "-", filled: gaugeWidth},
	}

	for _, tc := range tests {
		got := gauge(tc.n)
		if !strings.HasPrefix(got, tc.prefix+"[") {
			t.Fatalf("gauge(%v) = %q, expected prefix %q", tc.n, got, tc.prefix)
		}
		if c := strings.Count(got, "█"); c != tc.filled {
			t.Fatalf("gauge(%v): expected %d filled cells, got %d", tc.n, tc.filled, c)
		}
	}
}
