package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hiroki-koketsu/go-task-store/internal/model"
	"github.com/hiroki-koketsu/go-task-store/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/go-task-store/internal/handler")

const (
	routeTasks = "/api/v1/tasks"
	routeTask  = "/api/v1/tasks/{id}"
)

var errInvalidID = errors.New("task id must be an integer")

// TaskStore is the set of store operations the HTTP layer depends on.
type TaskStore interface {
	List(ctx context.Context) ([]*model.Task, error)
	GetByID(ctx context.Context, id int64) (*model.Task, error)
	Create(ctx context.Context, in *model.TaskInput) (*model.Task, error)
	Update(ctx context.Context, id int64, in *model.TaskInput) (*model.Task, error)
	Delete(ctx context.Context, id int64) error
}

// TaskHandler handles HTTP requests for tasks.
type TaskHandler struct {
	store   TaskStore
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(store TaskStore, logger *slog.Logger, metrics *telemetry.Metrics) *TaskHandler {
	return &TaskHandler{
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// Routes returns the chi router with task routes.
func (h *TaskHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}

// List returns all tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ctx, span := tracer.Start(r.Context(), "TaskHandler.List")
	defer span.End()

	tasks, err := h.store.List(ctx)
	if err != nil {
		h.fail(ctx, w, span, http.MethodGet, routeTasks, err, start)
		return
	}

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	h.logger.InfoContext(ctx, "tasks listed", slog.Int("count", len(tasks)))

	h.respondJSON(w, http.StatusOK, tasks)
	h.recordMetrics(ctx, http.MethodGet, routeTasks, http.StatusOK, start)
}

// Create adds a new task.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ctx, span := tracer.Start(r.Context(), "TaskHandler.Create")
	defer span.End()

	in, err := decodeInput(r)
	if err != nil {
		h.fail(ctx, w, span, http.MethodPost, routeTasks, err, start)
		return
	}

	task, err := h.store.Create(ctx, in)
	if err != nil {
		h.fail(ctx, w, span, http.MethodPost, routeTasks, err, start)
		return
	}

	span.SetAttributes(attribute.Int64("task.id", task.ID))
	h.logger.InfoContext(ctx, "task created", slog.Int64("id", task.ID))

	h.respondJSON(w, http.StatusCreated, task)
	h.recordMetrics(ctx, http.MethodPost, routeTasks, http.StatusCreated, start)
}

// GetByID returns a task by ID.
func (h *TaskHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ctx, span := tracer.Start(r.Context(), "TaskHandler.GetByID")
	defer span.End()

	id, err := taskID(r)
	if err != nil {
		h.fail(ctx, w, span, http.MethodGet, routeTask, err, start)
		return
	}
	span.SetAttributes(attribute.Int64("task.id", id))

	task, err := h.store.GetByID(ctx, id)
	if err != nil {
		h.fail(ctx, w, span, http.MethodGet, routeTask, err, start)
		return
	}

	h.logger.InfoContext(ctx, "task retrieved", slog.Int64("id", id))

	h.respondJSON(w, http.StatusOK, task)
	h.recordMetrics(ctx, http.MethodGet, routeTask, http.StatusOK, start)
}

// Update replaces the title, description and status of an existing task.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ctx, span := tracer.Start(r.Context(), "TaskHandler.Update")
	defer span.End()

	id, err := taskID(r)
	if err != nil {
		h.fail(ctx, w, span, http.MethodPut, routeTask, err, start)
		return
	}
	span.SetAttributes(attribute.Int64("task.id", id))

	in, err := decodeInput(r)
	if err != nil {
		h.fail(ctx, w, span, http.MethodPut, routeTask, err, start)
		return
	}

	task, err := h.store.Update(ctx, id, in)
	if err != nil {
		h.fail(ctx, w, span, http.MethodPut, routeTask, err, start)
		return
	}

	h.logger.InfoContext(ctx, "task updated", slog.Int64("id", id), slog.Bool("status", task.Status))

	h.respondJSON(w, http.StatusOK, task)
	h.recordMetrics(ctx, http.MethodPut, routeTask, http.StatusOK, start)
}

// Delete removes a task.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ctx, span := tracer.Start(r.Context(), "TaskHandler.Delete")
	defer span.End()

	id, err := taskID(r)
	if err != nil {
		h.fail(ctx, w, span, http.MethodDelete, routeTask, err, start)
		return
	}
	span.SetAttributes(attribute.Int64("task.id", id))

	if err := h.store.Delete(ctx, id); err != nil {
		h.fail(ctx, w, span, http.MethodDelete, routeTask, err, start)
		return
	}

	h.logger.InfoContext(ctx, "task deleted", slog.Int64("id", id))

	w.WriteHeader(http.StatusNoContent)
	h.recordMetrics(ctx, http.MethodDelete, routeTask, http.StatusNoContent, start)
}

// Health returns a health check response.
func (h *TaskHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// badRequestError marks malformed requests that never reached the store.
type badRequestError struct {
	msg string
	err error
}

func (e *badRequestError) Error() string { return e.msg }
func (e *badRequestError) Unwrap() error { return e.err }

func decodeInput(r *http.Request) (*model.TaskInput, error) {
	var in model.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return nil, &badRequestError{msg: "invalid request body", err: err}
	}
	return &in, nil
}

func taskID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, &badRequestError{msg: errInvalidID.Error(), err: errInvalidID}
	}
	return id, nil
}

// statusFor maps store and request errors to HTTP status codes.
func statusFor(err error) int {
	var bad *badRequestError
	switch {
	case errors.Is(err, model.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrValidation), errors.As(err, &bad):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *TaskHandler) fail(ctx context.Context, w http.ResponseWriter, span trace.Span, method, route string, err error, start time.Time) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	var verr *model.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr.Field
		h.metrics.ValidationErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("task.field", verr.Field),
		))
	}

	if status >= http.StatusInternalServerError {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		resp.Error = http.StatusText(status)
		h.logger.ErrorContext(ctx, "request failed", slog.String("route", route), slog.Any("error", err))
	} else {
		h.logger.WarnContext(ctx, "request rejected",
			slog.String("route", route),
			slog.Int("status", status),
			slog.Any("error", err),
		)
	}

	h.respondJSON(w, status, resp)
	h.recordMetrics(ctx, method, route, status, start)
}

func (h *TaskHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			h.logger.Error("failed to encode response", slog.Any("error", err))
		}
	}
}

func (h *TaskHandler) recordMetrics(ctx context.Context, method, route string, status int, start time.Time) {
	duration := time.Since(start).Seconds()

	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)

	h.metrics.RequestCounter.Add(ctx, 1, attrs)
	h.metrics.RequestDuration.Record(ctx, duration, attrs)
}
