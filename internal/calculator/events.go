package calculator

import "fmt"

// EventType names an inbound calculator event.
type EventType string

const (
	EventDigit         EventType = "digit"
	EventDecimal       EventType = "decimal"
	EventOperator      EventType = "operator"
	EventClear         EventType = "clear"
	EventBackspace     EventType = "backspace"
	EventPercent       EventType = "percent"
	EventSignFlip      EventType = "sign_flip"
	EventEquals        EventType = "equals"
	EventSelectHistory EventType = "select_history"
	EventClearHistory  EventType = "clear_history"
	EventSetDisplay    EventType = "set_display"
)

// Event is a tagged key event. Value carries the digit, operator or display
// text; Index carries the history position for EventSelectHistory.
type Event struct {
	Type  EventType `json:"type"`
	Value string    `json:"value,omitempty"`
	Index int       `json:"index,omitempty"`
}

// Apply dispatches ev to the matching State handler.
//
// An event with an unknown type or an unusable payload returns s unchanged
// and an error wrapping ErrInvalidEvent. A failed EventEquals returns the
// error state together with the evaluation error, which wraps
// ErrMalformedExpression or ErrNonFinite; callers keep that state.
func Apply(s State, ev Event) (State, error) {
	switch ev.Type {
	case EventDigit:
		if len(ev.Value) != 1 || ev.Value[0] < '0' || ev.Value[0] > '9' {
			return s, fmt.Errorf("%w: digit %q", ErrInvalidEvent, ev.Value)
		}
		return s.Digit(ev.Value[0]), nil

	case EventDecimal:
		return s.Decimal(), nil

	case EventOperator:
		op, ok := CanonicalOperator(ev.Value)
		if !ok {
			return s, fmt.Errorf("%w: operator %q", ErrInvalidEvent, ev.Value)
		}
		return s.Operator(op), nil

	case EventClear:
		return s.Clear(), nil

	case EventBackspace:
		return s.Backspace(), nil

	case EventPercent:
		return s.Percent(), nil

	case EventSignFlip:
		return s.SignFlip(), nil

	case EventEquals:
		return s.Equals()

	case EventSelectHistory:
		return s.SelectHistory(ev.Index)

	case EventClearHistory:
		return s.ClearHistory(), nil

	case EventSetDisplay:
		return s.SetDisplay(ev.Value), nil
	}

	return s, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, ev.Type)
}
