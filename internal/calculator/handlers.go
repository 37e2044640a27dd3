package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"vector-core/internal/handlers"
	"vector-core/internal/observability"
	"vector-core/internal/visual"
)

// tracer is the calculator's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("calculator")

// Handler serves the calculator endpoints over a session store.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// begin opens the operation span and returns the trace-correlated logger.
func (h *Handler) begin(r *http.Request, opName string) (context.Context, trace.Span, *zap.Logger) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)

	ctx, span := tracer.Start(ctx, fmt.Sprintf("calculator.%s", opName),
		trace.WithAttributes(
			attribute.String("calculator.operation", opName),
			attribute.String("request.id", observability.RequestIDFromContext(ctx)),
		),
	)

	return ctx, span, logger
}

// lookup resolves the {id} URL parameter, writing a 404 when it is unknown.
func (h *Handler) lookup(ctx context.Context, span trace.Span, logger *zap.Logger, opName string, w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id := chi.URLParam(r, "id")
	span.SetAttributes(attribute.String("calculator.session.id", id))

	s, err := h.store.Get(id)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "session not found", fmt.Errorf("session %q: %w", id, err), http.StatusNotFound, w)
		return nil, false
	}

	return s, true
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// ---------------------------------------------------------------------------
// Handler: stateless evaluation
// ---------------------------------------------------------------------------

// Evaluate handles POST /calculator/evaluate.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	const opName = "evaluate"

	ctx, span, logger := h.begin(r, opName)
	defer span.End()

	var req EvaluateRequest
	if err := decode(r, &req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	span.SetAttributes(attribute.String("calculator.expression", req.Expression))

	start := time.Now()
	value, err := Evaluate(req.Expression)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms

	attrs := metric.WithAttributes(attribute.String("operation", opName))
	evalHistogram.Record(ctx, elapsed, attrs)

	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, err.Error(), err, http.StatusUnprocessableEntity, w)
		return
	}

	result := FormatResult(value)
	resultGauge.Record(ctx, value, attrs)

	span.AddEvent("evaluation.complete", trace.WithAttributes(
		attribute.String("result", result),
		attribute.Float64("duration_ms", elapsed),
	))
	span.SetStatus(codes.Ok, "")

	logger.Info("expression evaluated",
		zap.String("expression", req.Expression),
		zap.String("result", result),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
		zap.Float64("duration_ms", elapsed),
	)

	handlers.WriteJSON(w, http.StatusOK, EvaluateResponse{
		Expression: req.Expression,
		Result:     result,
		Value:      value,
	})
}

// ---------------------------------------------------------------------------
// Handlers: session lifecycle
// ---------------------------------------------------------------------------

// CreateSession handles POST /calculator/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	const opName = "create_session"

	ctx, span, logger := h.begin(r, opName)
	defer span.End()

	s, err := h.store.Create()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrTooManySessions) {
			status = http.StatusServiceUnavailable
		}
		observability.RecordError(ctx, span, logger, errorCounter, opName, err.Error(), err, status, w)
		return
	}

	sessionsActive.Add(ctx, 1)
	span.SetAttributes(attribute.String("calculator.session.id", s.ID))
	span.SetStatus(codes.Ok, "")

	logger.Info("session created",
		zap.String("session_id", s.ID),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)

	w.Header().Set("Location", "/calculator/sessions/"+s.ID)
	handlers.WriteJSON(w, http.StatusCreated, s.Snapshot())
}

// GetSession handles GET /calculator/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	const opName = "get_session"

	ctx, span, logger := h.begin(r, opName)
	defer span.End()

	s, ok := h.lookup(ctx, span, logger, opName, w, r)
	if !ok {
		return
	}

	span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusOK, s.Snapshot())
}

// DeleteSession handles DELETE /calculator/sessions/{id}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	const opName = "delete_session"

	ctx, span, logger := h.begin(r, opName)
	defer span.End()

	id := chi.URLParam(r, "id")
	span.SetAttributes(attribute.String("calculator.session.id", id))

	if !h.store.Delete(id) {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "session not found", fmt.Errorf("session %q: %w", id, ErrSessionNotFound), http.StatusNotFound, w)
		return
	}

	sessionsActive.Add(ctx, -1)
	span.SetStatus(codes.Ok, "")

	logger.Info("session deleted",
		zap.String("session_id", id),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)

	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Handler: key events, one child span per event
// ---------------------------------------------------------------------------

// ApplyEvents handles POST /calculator/sessions/{id}/events. The batch is
// applied in order and committed only if every event is valid. A failed
// equals is not a request error: the display shows "Error" and the failure
// is reported in evaluation_errors.
func (h *Handler) ApplyEvents(w http.ResponseWriter, r *http.Request) {
	const opName = "events"

	ctx, span, logger := h.begin(r, opName)
	defer span.End()

	s, ok := h.lookup(ctx, span, logger, opName, w, r)
	if !ok {
		return
	}

	var req EventsRequest
	if err := decode(r, &req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	if len(req.Events) == 0 {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "no events provided", fmt.Errorf("events array is empty"), http.StatusBadRequest, w)
		return
	}

	span.SetAttributes(attribute.Int("calculator.events.count", len(req.Events)))

	var fails []EventFail

	err := s.Update(func(st State) (State, error) {
		for i, ev := range req.Events {
			next, err := h.applyEvent(ctx, logger, s.ID, i, st, ev)
			if errors.Is(err, ErrInvalidEvent) {
				return st, fmt.Errorf("event %d: %w", i, err)
			}
			if err != nil {
				fails = append(fails, EventFail{Index: i, Error: err.Error()})
			}
			st = next
		}

		return st, nil
	})
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, err.Error(), err, http.StatusBadRequest, w)
		return
	}

	view := s.Snapshot()

	span.AddEvent("events.applied", trace.WithAttributes(
		attribute.Int("applied", len(req.Events)),
		attribute.Int("evaluation_errors", len(fails)),
		attribute.String("display", view.Display),
	))
	span.SetStatus(codes.Ok, "")

	logger.Info("events applied",
		zap.String("session_id", s.ID),
		zap.Int("events", len(req.Events)),
		zap.Int("evaluation_errors", len(fails)),
		zap.String("display", view.Display),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)

	handlers.WriteJSON(w, http.StatusOK, EventsResponse{
		Session: view,
		Applied: len(req.Events),
		Errors:  fails,
	})
}

// applyEvent applies one event under its own child span.
func (h *Handler) applyEvent(ctx context.Context, logger *zap.Logger, sessionID string, i int, st State, ev Event) (State, error) {
	_, stepSpan := tracer.Start(ctx, fmt.Sprintf("calculator.event.%d.%s", i, ev.Type),
		trace.WithAttributes(
			attribute.Int("calculator.event.index", i),
			attribute.String("calculator.event.type", string(ev.Type)),
			attribute.String("calculator.event.value", ev.Value),
		),
	)
	defer stepSpan.End()

	start := time.Now()
	next, err := Apply(st, ev)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0

	attrs := metric.WithAttributes(attribute.String("event", string(ev.Type)))

	if errors.Is(err, ErrInvalidEvent) {
		stepSpan.RecordError(err)
		stepSpan.SetStatus(codes.Error, err.Error())
		errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", string(ev.Type))))
		logger.Warn("invalid event",
			zap.String("session_id", sessionID),
			zap.Int("index", i),
			zap.Error(err),
		)
		return st, err
	}

	eventsCounter.Add(ctx, 1, attrs)

	if ev.Type == EventEquals {
		evalHistogram.Record(ctx, elapsed, metric.WithAttributes(attribute.String("operation", "equals")))
	}

	if err != nil {
		stepSpan.RecordError(err)
		stepSpan.SetStatus(codes.Error, "evaluation failed")
		errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", string(ev.Type))))
		logger.Warn("evaluation failed",
			zap.String("session_id", sessionID),
			zap.Int("index", i),
			zap.String("expression", st.committed()+st.Operand),
			zap.Error(err),
		)
		return next, err
	}

	if ev.Type == EventEquals {
		resultGauge.Record(ctx, next.LastResult, metric.WithAttributes(attribute.String("operation", "equals")))
		logger.Info("expression evaluated",
			zap.String("session_id", sessionID),
			zap.String("expression", next.History[0].Expression),
			zap.String("result", next.Operand),
			zap.Float64("duration_ms", elapsed),
		)
	}

	stepSpan.SetAttributes(attribute.String("calculator.display", next.Operand))
	stepSpan.SetStatus(codes.Ok, "")

	return next, nil
}

// ---------------------------------------------------------------------------
// Handlers: direct edits
// ---------------------------------------------------------------------------

// SetDisplay handles PUT /calculator/sessions/{id}/display, the free-text
// override of the operand.
func (h *Handler) SetDisplay(w http.ResponseWriter, r *http.Request) {
	const opName = "set_display"

	ctx, span, logger := h.begin(r, opName)
	defer span.End()

	s, ok := h.lookup(ctx, span, logger, opName, w, r)
	if !ok {
		return
	}

	var req DisplayRequest
	if err := decode(r, &req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	s.Update(func(st State) (State, error) {
		return st.SetDisplay(req.Text), nil
	})

	eventsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("event", string(EventSetDisplay))))
	span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusOK, s.Snapshot())
}

// SetDimension handles PUT /calculator/sessions/{id}/dimension.
func (h *Handler) SetDimension(w http.ResponseWriter, r *http.Request) {
	const opName = "set_dimension"

	ctx, span, logger := h.begin(r, opName)
	defer span.End()

	s, ok := h.lookup(ctx, span, logger, opName, w, r)
	if !ok {
		return
	}

	var req DimensionRequest
	if err := decode(r, &req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	dim, err := visual.ParseDimension(req.Dimension)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, err.Error(), err, http.StatusBadRequest, w)
		return
	}

	s.SetDimension(dim)

	span.SetAttributes(attribute.String("calculator.dimension", string(dim)))
	span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusOK, s.Snapshot())
}

// SelectHistory handles POST /calculator/sessions/{id}/history/{index}/select.
func (h *Handler) SelectHistory(w http.ResponseWriter, r *http.Request) {
	const opName = "select_history"

	ctx, span, logger := h.begin(r, opName)
	defer span.End()

	s, ok := h.lookup(ctx, span, logger, opName, w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "invalid history index", err, http.StatusBadRequest, w)
		return
	}

	err = s.Update(func(st State) (State, error) {
		return st.SelectHistory(index)
	})
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, err.Error(), err, http.StatusNotFound, w)
		return
	}

	eventsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("event", string(EventSelectHistory))))
	span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusOK, s.Snapshot())
}

// ClearHistory handles DELETE /calculator/sessions/{id}/history.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	const opName = "clear_history"

	ctx, span, logger := h.begin(r, opName)
	defer span.End()

	s, ok := h.lookup(ctx, span, logger, opName, w, r)
	if !ok {
		return
	}

	s.Update(func(st State) (State, error) {
		return st.ClearHistory(), nil
	})

	eventsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("event", string(EventClearHistory))))
	span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusOK, s.Snapshot())
}

// Visual handles GET /calculator/sessions/{id}/visual.
func (h *Handler) Visual(w http.ResponseWriter, r *http.Request) {
	const opName = "visual"

	ctx, span, logger := h.begin(r, opName)
	defer span.End()

	s, ok := h.lookup(ctx, span, logger, opName, w, r)
	if !ok {
		return
	}

	span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusOK, s.Visual())
}

// RunSweeper evicts idle sessions every interval until ctx is done.
func (h *Handler) RunSweeper(ctx context.Context, interval time.Duration) {
	h.store.Run(ctx, interval, func(removed int) {
		if removed == 0 {
			return
		}

		sessionsActive.Add(ctx, int64(-removed))

		observability.Logger.Info("idle sessions evicted",
			zap.Int("removed", removed),
			zap.Int("remaining", h.store.Len()),
		)
	})
}
