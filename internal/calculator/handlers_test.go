package calculator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"vector-core/internal/observability"
	"vector-core/internal/testutil"
	"vector-core/internal/visual"
)

func newTestServer(t *testing.T, cfg StoreConfig) (http.Handler, *Store, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zap.InfoLevel)
	oldLogger := observability.Logger
	observability.Logger = zap.New(core)
	t.Cleanup(func() { observability.Logger = oldLogger })

	if err := InitMetrics(); err != nil {
		t.Fatalf("initializing calculator metrics: %v", err)
	}

	store := NewStore(cfg)
	r := chi.NewRouter()
	r.Use(observability.RequestIDMiddleware)
	RegisterRoutes(r, NewHandler(store))

	return r, store, logs
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()

	w := testutil.ExecuteRequest(httptest.NewRequest(http.MethodPost, "/calculator/sessions", nil), h)
	testutil.CheckResponseCode(t, http.StatusCreated, w.Code)

	var view SessionView
	testutil.DecodeJSONBody(t, w.Body, &view)

	if loc := w.Header().Get("Location"); loc != "/calculator/sessions/"+view.ID {
		t.Fatalf("expected Location header for %q, got %q", view.ID, loc)
	}

	return view.ID
}

func sendEvents(t *testing.T, h http.Handler, id string, events ...Event) *httptest.ResponseRecorder {
	t.Helper()

	req := testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+id+"/events", EventsRequest{Events: events})
	return testutil.ExecuteRequest(req, h)
}

func TestEvaluateEndpoint(t *testing.T) {
	h, _, logs := newTestServer(t, StoreConfig{})

	req := testutil.NewJSONRequest(t, http.MethodPost, "/calculator/evaluate", EvaluateRequest{Expression: "2+3×4"})
	w := testutil.ExecuteRequest(req, h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp EvaluateResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)

	if resp.Result != "14" || resp.Value != 14 {
		t.Fatalf("expected 14, got %+v", resp)
	}

	if got := logs.FilterMessage("expression evaluated").Len(); got != 1 {
		t.Fatalf("expected 1 evaluation log entry, got %d", got)
	}
}

func TestEvaluateEndpointErrors(t *testing.T) {
	h, _, _ := newTestServer(t, StoreConfig{})

	tests := []struct {
		name   string
		body   string
		status int
		errMsg string
	}{
		{name: "division by zero", body: `{"expression":"5÷0"}`, status: http.StatusUnprocessableEntity, errMsg: "non-finite result"},
		{name: "malformed", body: `{"expression":"2+"}`, status: http.StatusUnprocessableEntity, errMsg: "malformed expression"},
		{name: "code injection", body: `{"expression":"require('fs')"}`, status: http.StatusUnprocessableEntity, errMsg: "malformed expression"},
		{name: "bad json", body: `{"expression":`, status: http.StatusBadRequest, errMsg: "invalid request body"},
		{name: "unknown field", body: `{"a":2,"b":3}`, status: http.StatusBadRequest, errMsg: "invalid request body"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/calculator/evaluate", strings.NewReader(tc.body))
			w := testutil.ExecuteRequest(req, h)
			testutil.CheckResponseCode(t, tc.status, w.Code)

			var body map[string]string
			testutil.DecodeJSONBody(t, w.Body, &body)

			if !strings.Contains(body["error"], tc.errMsg) {
				t.Fatalf("expected error containing %q, got %q", tc.errMsg, body["error"])
			}
		})
	}
}

func TestApplyEventsEndpoint(t *testing.T) {
	h, _, _ := newTestServer(t, StoreConfig{})
	id := createSession(t, h)

	w := sendEvents(t, h, id,
		Event{Type: EventDigit, Value: "2"},
		Event{Type: EventOperator, Value: "+"},
		Event{Type: EventOperator, Value: "-"},
		Event{Type: EventDigit, Value: "3"},
		Event{Type: EventEquals},
	)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp EventsResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)

	if resp.Applied != 5 {
		t.Fatalf("expected 5 applied events, got %d", resp.Applied)
	}
	if resp.Session.Display != "-1" {
		t.Fatalf("expected display -1, got %q", resp.Session.Display)
	}
	if len(resp.Session.History) != 1 || resp.Session.History[0].Expression != "2-3" {
		t.Fatalf("expected one history entry for 2-3, got %+v", resp.Session.History)
	}
	if len(resp.Errors) != 0 {
		t.Fatalf("expected no evaluation errors, got %+v", resp.Errors)
	}
}

func TestApplyEventsReportsEvaluationFailure(t *testing.T) {
	h, _, logs := newTestServer(t, StoreConfig{})
	id := createSession(t, h)

	w := sendEvents(t, h, id,
		Event{Type: EventDigit, Value: "5"},
		Event{Type: EventOperator, Value: "÷"},
		Event{Type: EventDigit, Value: "0"},
		Event{Type: EventEquals},
	)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp EventsResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)

	if resp.Session.Display != ErrorDisplay {
		t.Fatalf("expected display %q, got %q", ErrorDisplay, resp.Session.Display)
	}
	if len(resp.Session.History) != 0 {
		t.Fatalf("expected empty history, got %+v", resp.Session.History)
	}
	if len(resp.Errors) != 1 || resp.Errors[0].Index != 3 {
		t.Fatalf("expected one evaluation error at index 3, got %+v", resp.Errors)
	}

	if got := logs.FilterMessage("evaluation failed").Len(); got != 1 {
		t.Fatalf("expected 1 evaluation failure log, got %d", got)
	}
}

func TestApplyEventsIsAtomicOnInvalidEvent(t *testing.T) {
	h, store, _ := newTestServer(t, StoreConfig{})
	id := createSession(t, h)

	w := sendEvents(t, h, id,
		Event{Type: EventDigit, Value: "9"},
		Event{Type: EventOperator, Value: "^"},
	)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)

	s, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := s.Snapshot().Display; got != "0" {
		t.Fatalf("expected batch discarded, got display %q", got)
	}
}

func TestApplyEventsRejectsEmptyBatch(t *testing.T) {
	h, _, _ := newTestServer(t, StoreConfig{})
	id := createSession(t, h)

	w := sendEvents(t, h, id)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)
}

func TestUnknownSessionReturnsNotFound(t *testing.T) {
	h, _, _ := newTestServer(t, StoreConfig{})

	requests := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/calculator/sessions/nope", nil),
		httptest.NewRequest(http.MethodDelete, "/calculator/sessions/nope", nil),
		httptest.NewRequest(http.MethodGet, "/calculator/sessions/nope/visual", nil),
		httptest.NewRequest(http.MethodDelete, "/calculator/sessions/nope/history", nil),
		testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/nope/events", EventsRequest{Events: []Event{{Type: EventClear}}}),
	}

	for _, req := range requests {
		t.Run(req.Method+" "+req.URL.Path, func(t *testing.T) {
			w := testutil.ExecuteRequest(req, h)
			testutil.CheckResponseCode(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestCreateSessionRespectsCap(t *testing.T) {
	h, _, _ := newTestServer(t, StoreConfig{MaxSessions: 1})
	createSession(t, h)

	w := testutil.ExecuteRequest(httptest.NewRequest(http.MethodPost, "/calculator/sessions", nil), h)
	testutil.CheckResponseCode(t, http.StatusServiceUnavailable, w.Code)
}

func TestSetDisplayAndVisualEndpoints(t *testing.T) {
	h, _, _ := newTestServer(t, StoreConfig{})
	id := createSession(t, h)
	base := "/calculator/sessions/" + id

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPut, base+"/display", DisplayRequest{Text: "75"}), h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	w = testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPut, base+"/dimension", DimensionRequest{Dimension: "6D"}), h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var view SessionView
	testutil.DecodeJSONBody(t, w.Body, &view)
	if view.Display != "75" || view.Dimension != visual.Dim6D {
		t.Fatalf("unexpected session view %+v", view)
	}

	w = testutil.ExecuteRequest(httptest.NewRequest(http.MethodGet, base+"/visual", nil), h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var snap visual.Snapshot
	testutil.DecodeJSONBody(t, w.Body, &snap)
	if snap.Value != 75 || snap.Normalized != 0.75 || snap.Dimension != visual.Dim6D {
		t.Fatalf("unexpected visual snapshot %+v", snap)
	}

	w = testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPut, base+"/dimension", DimensionRequest{Dimension: "9d"}), h)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)
}

func TestHistoryEndpoints(t *testing.T) {
	h, _, _ := newTestServer(t, StoreConfig{})
	id := createSession(t, h)
	base := "/calculator/sessions/" + id

	w := sendEvents(t, h, id,
		Event{Type: EventDigit, Value: "1"},
		Event{Type: EventDigit, Value: "0"},
		Event{Type: EventOperator, Value: "÷"},
		Event{Type: EventDigit, Value: "4"},
		Event{Type: EventEquals},
		Event{Type: EventClear},
	)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	w = testutil.ExecuteRequest(httptest.NewRequest(http.MethodPost, base+"/history/0/select", nil), h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var view SessionView
	testutil.DecodeJSONBody(t, w.Body, &view)
	if view.Display != "2.5" || view.Expression != "10÷4 = " || view.LastResult != 2.5 {
		t.Fatalf("unexpected view after select %+v", view)
	}

	w = testutil.ExecuteRequest(httptest.NewRequest(http.MethodPost, base+"/history/7/select", nil), h)
	testutil.CheckResponseCode(t, http.StatusNotFound, w.Code)

	w = testutil.ExecuteRequest(httptest.NewRequest(http.MethodPost, base+"/history/x/select", nil), h)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)

	w = testutil.ExecuteRequest(httptest.NewRequest(http.MethodDelete, base+"/history", nil), h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	testutil.DecodeJSONBody(t, w.Body, &view)
	if len(view.History) != 0 {
		t.Fatalf("expected history cleared, got %+v", view.History)
	}
}
