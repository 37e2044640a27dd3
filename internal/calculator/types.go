package calculator

// EvaluateRequest is the JSON body for POST /calculator/evaluate.
type EvaluateRequest struct {
	Expression string `json:"expression"`
}

// EvaluateResponse is the JSON response for POST /calculator/evaluate.
type EvaluateResponse struct {
	Expression string  `json:"expression"`
	Result     string  `json:"result"` // formatted for display
	Value      float64 `json:"value"`
}

// EventsRequest is the JSON body for POST /calculator/sessions/{id}/events.
// Events are applied in order, all or nothing.
type EventsRequest struct {
	Events []Event `json:"events"`
}

// EventsResponse is the JSON response for POST /calculator/sessions/{id}/events.
type EventsResponse struct {
	Session SessionView `json:"session"`
	Applied int         `json:"applied"`
	Errors  []EventFail `json:"evaluation_errors,omitempty"`
}

// EventFail records an equals event that left the display in the error state.
type EventFail struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// DisplayRequest is the JSON body for PUT /calculator/sessions/{id}/display.
type DisplayRequest struct {
	Text string `json:"text"`
}

// DimensionRequest is the JSON body for PUT /calculator/sessions/{id}/dimension.
type DimensionRequest struct {
	Dimension string `json:"dimension"` // "2d" .. "6d"
}
