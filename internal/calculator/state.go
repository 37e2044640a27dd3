package calculator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrorDisplay is the operand shown after a failed evaluation.
const ErrorDisplay = "Error"

// recallSuffix marks an expression that was re-seeded from history. The
// recalled text is shown for context only and is not part of the next
// evaluation.
const recallSuffix = " = "

// ErrInvalidEvent is returned by Apply and SelectHistory when an event
// carries an unusable payload. The state is left unchanged.
var ErrInvalidEvent = errors.New("invalid event")

// State is the complete calculator session: the operand being typed, the
// committed expression prefix, the new-input flag, the last result and the
// evaluation history (most recent first).
//
// Every event handler is a method with a value receiver that returns the
// next state. History slices are never modified in place, so earlier states
// stay valid after later events.
type State struct {
	Operand    string
	Expression string
	NewInput   bool
	LastResult float64
	History    []HistoryEntry
}

// NewState returns a cleared calculator.
func NewState() State {
	return State{
		Operand:  "0",
		NewInput: true,
	}
}

// Digit enters one decimal digit. d must be in '0'..'9'.
func (s State) Digit(d byte) State {
	digit := string(d)

	switch {
	case s.NewInput:
		s.Operand = digit
		s.NewInput = false
	case s.Operand == "0":
		s.Operand = digit
	default:
		s.Operand += digit
	}

	return s
}

// Decimal enters a decimal point. A second point in the same operand is ignored.
func (s State) Decimal() State {
	if s.NewInput {
		s.Operand = "0."
		s.NewInput = false
		return s
	}

	if !strings.Contains(s.Operand, ".") {
		s.Operand += "."
	}

	return s
}

// Operator commits the operand followed by op to the expression. When the
// expression already ends in an operator and no operand has been started
// since, the trailing operator is replaced instead, so "2 + - 3" means 2 - 3.
// op is one of the display glyphs returned by CanonicalOperator.
func (s State) Operator(op string) State {
	if s.Operand == ErrorDisplay {
		return s
	}

	expr := s.committed()

	if last, size := utf8.DecodeLastRuneInString(expr); size > 0 && isOperatorGlyph(last) && s.NewInput {
		expr = expr[:len(expr)-size] + op
	} else {
		expr += s.Operand + op
	}

	s.Expression = expr
	s.Operand = "0"
	s.NewInput = true

	return s
}

// Backspace drops the last character of the operand. Removing the only digit
// resets the operand to "0" and arms new input.
func (s State) Backspace() State {
	n := utf8.RuneCountInString(s.Operand)

	if s.Operand == ErrorDisplay || n <= 1 || (n == 2 && s.Operand[0] == '-') {
		s.Operand = "0"
		s.NewInput = true
		return s
	}

	_, size := utf8.DecodeLastRuneInString(s.Operand)
	s.Operand = s.Operand[:len(s.Operand)-size]

	return s
}

// SignFlip toggles a leading minus on a non-zero operand.
func (s State) SignFlip() State {
	if s.Operand == "0" || s.Operand == ErrorDisplay {
		return s
	}

	if strings.HasPrefix(s.Operand, "-") {
		s.Operand = s.Operand[1:]
	} else {
		s.Operand = "-" + s.Operand
	}

	return s
}

// Percent divides the operand by 100.
func (s State) Percent() State {
	v, err := strconv.ParseFloat(s.Operand, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		s.Operand = ErrorDisplay
		s.NewInput = true
		return s
	}

	s.Operand = formatNumber(v / 100)

	return s
}

// Clear resets the operand, expression and last result. History is kept.
func (s State) Clear() State {
	s.Operand = "0"
	s.Expression = ""
	s.LastResult = 0
	s.NewInput = true

	return s
}

// Equals evaluates the committed expression followed by the operand.
//
// On success the formatted result becomes the operand, a history entry is
// prepended and the expression is cleared. On failure the operand becomes
// ErrorDisplay while the expression and history are kept; the returned error
// wraps ErrMalformedExpression or ErrNonFinite. The next state is returned in
// both cases and new input is armed.
func (s State) Equals() (State, error) {
	full := s.committed() + s.Operand

	v, err := Evaluate(full)
	if err != nil {
		s.Operand = ErrorDisplay
		s.NewInput = true
		return s, err
	}

	result := FormatResult(v)
	value, err := strconv.ParseFloat(result, 64)
	if err != nil {
		value = v
	}

	s.LastResult = value
	s.History = prependHistory(s.History, HistoryEntry{
		Expression: full,
		Result:     result,
		Value:      value,
	})
	s.Operand = result
	s.Expression = ""
	s.NewInput = true

	return s, nil
}

// SelectHistory re-seeds the operand with a stored result and shows its
// expression for context. The entry itself is not modified.
func (s State) SelectHistory(index int) (State, error) {
	if index < 0 || index >= len(s.History) {
		return s, fmt.Errorf("%w: history index %d out of range [0,%d)", ErrInvalidEvent, index, len(s.History))
	}

	e := s.History[index]
	s.Operand = e.Result
	s.Expression = e.Expression + recallSuffix
	s.LastResult = e.Value
	s.NewInput = true

	return s, nil
}

// ClearHistory drops all history entries.
func (s State) ClearHistory() State {
	s.History = nil
	return s
}

// SetDisplay replaces the operand with text as typed, without validation.
// The text is treated as an operand in progress. Anything that is not
// arithmetic fails at Equals with ErrMalformedExpression.
func (s State) SetDisplay(text string) State {
	s.Operand = text
	s.NewInput = false
	return s
}

// committed returns the expression that takes part in the next evaluation.
func (s State) committed() string {
	if strings.HasSuffix(s.Expression, recallSuffix) {
		return ""
	}
	return s.Expression
}

// CanonicalOperator maps an operator key to its display glyph. ASCII
// aliases are accepted for the minus, multiply and divide keys.
func CanonicalOperator(op string) (string, bool) {
	switch op {
	case "+":
		return "+", true
	case "-", "−":
		return "-", true
	case "*", "×", "x":
		return "×", true
	case "/", "÷":
		return "÷", true
	}
	return "", false
}

func isOperatorGlyph(r rune) bool {
	switch r {
	case '+', '-', '×', '÷':
		return true
	}
	return false
}
