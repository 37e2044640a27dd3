package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vector-core/internal/calculator"
	"vector-core/internal/observability"
	"vector-core/internal/testutil"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	observability.Logger = zap.NewNop()
	if err := calculator.InitMetrics(); err != nil {
		t.Fatalf("initializing calculator metrics: %v", err)
	}

	store := calculator.NewStore(calculator.StoreConfig{})
	reg := prometheus.NewRegistry()
	if err := calculator.RegisterSessionGauge(reg, store); err != nil {
		t.Fatalf("registering session gauge: %v", err)
	}

	return NewRouter(calculator.NewHandler(store), observability.PrometheusHandlerFor(reg))
}

func TestNewRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	if body := w.Body.String(); body != "ok" {
		t.Fatalf("expected body %q, got %q", "ok", body)
	}
}

func TestNewRouterEvaluateSetsHeaderAndOmitsRequestIDInBody(t *testing.T) {
	router := newTestRouter(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/calculator/evaluate", map[string]string{"expression": "10÷4"})
	w := testutil.ExecuteRequest(req, router)

	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	requestID := w.Result().Header.Get("X-Request-ID")
	if requestID == "" {
		t.Fatal("expected X-Request-ID header to be set")
	}
	if _, err := uuid.Parse(requestID); err != nil {
		t.Fatalf("expected valid UUID in X-Request-ID, got %q: %v", requestID, err)
	}

	var payload map[string]any
	testutil.DecodeJSONBody(t, w.Result().Body, &payload)

	if _, ok := payload["request_id"]; ok {
		t.Fatal("did not expect request_id field in success JSON body")
	}

	if got := payload["result"]; got != "2.5" {
		t.Fatalf("expected result %q, got %#v", "2.5", got)
	}
}

func TestNewRouterSessionFlow(t *testing.T) {
	router := newTestRouter(t)

	w := testutil.ExecuteRequest(httptest.NewRequest(http.MethodPost, "/calculator/sessions", nil), router)
	testutil.CheckResponseCode(t, http.StatusCreated, w.Code)

	var created calculator.SessionView
	testutil.DecodeJSONBody(t, w.Body, &created)

	base := "/calculator/sessions/" + created.ID

	req := testutil.NewJSONRequest(t, http.MethodPost, base+"/events", calculator.EventsRequest{
		Events: []calculator.Event{
			{Type: calculator.EventDigit, Value: "4"},
			{Type: calculator.EventOperator, Value: "×"},
			{Type: calculator.EventDigit, Value: "3"},
			{Type: calculator.EventEquals},
		},
	})
	w = testutil.ExecuteRequest(req, router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	w = testutil.ExecuteRequest(httptest.NewRequest(http.MethodGet, base, nil), router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var view calculator.SessionView
	testutil.DecodeJSONBody(t, w.Body, &view)
	if view.Display != "12" {
		t.Fatalf("expected display %q, got %q", "12", view.Display)
	}

	w = testutil.ExecuteRequest(httptest.NewRequest(http.MethodDelete, base, nil), router)
	testutil.CheckResponseCode(t, http.StatusNoContent, w.Code)

	w = testutil.ExecuteRequest(httptest.NewRequest(http.MethodGet, base, nil), router)
	testutil.CheckResponseCode(t, http.StatusNotFound, w.Code)
}

func TestNewRouterMetricsEndpointExposesSessionGauge(t *testing.T) {
	router := newTestRouter(t)

	for range 2 {
		w := testutil.ExecuteRequest(httptest.NewRequest(http.MethodPost, "/calculator/sessions", nil), router)
		testutil.CheckResponseCode(t, http.StatusCreated, w.Code)
	}

	w := testutil.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/metrics", nil), router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	if body := w.Body.String(); !strings.Contains(body, "vector_core_sessions 2") {
		t.Fatalf("expected vector_core_sessions 2 in metrics output, got:\n%s", body)
	}
}
