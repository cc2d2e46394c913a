package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/hiroki-koketsu/go-task-store/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/go-task-store/internal/repository")

// TaskRepository provides an in-memory storage for tasks.
// Tasks are kept in creation order and IDs are never reused.
type TaskRepository struct {
	mu     sync.RWMutex
	tasks  []*model.Task
	nextID int64
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository() *TaskRepository {
	return &TaskRepository{
		tasks:  make([]*model.Task, 0),
		nextID: 1,
	}
}

// Create validates the input and stores it under the next ID.
func (r *TaskRepository) Create(ctx context.Context, in *model.TaskInput) (*model.Task, error) {
	_, span := tracer.Start(ctx, "TaskRepository.Create",
		trace.WithAttributes(attribute.String("task.title", in.Title)),
	)
	defer span.End()

	if err := in.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	task := &model.Task{
		ID:          r.nextID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
	}
	r.nextID++
	r.tasks = append(r.tasks, task)

	span.SetAttributes(attribute.Int64("task.id", task.ID))
	return clone(task), nil
}

// GetByID retrieves a task by its ID.
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	_, span := tracer.Start(ctx, "TaskRepository.GetByID",
		trace.WithAttributes(attribute.Int64("task.id", id)),
	)
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, model.ErrTaskNotFound
	}

	span.SetAttributes(attribute.Bool("task.found", true))
	return clone(r.tasks[i]), nil
}

// List returns all tasks in creation order.
func (r *TaskRepository) List(ctx context.Context) ([]*model.Task, error) {
	_, span := tracer.Start(ctx, "TaskRepository.List")
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]*model.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		tasks = append(tasks, clone(task))
	}

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return tasks, nil
}

// Update overwrites title, description and status of an existing task.
// A missing task is reported before the input is validated.
func (r *TaskRepository) Update(ctx context.Context, id int64, in *model.TaskInput) (*model.Task, error) {
	_, span := tracer.Start(ctx, "TaskRepository.Update",
		trace.WithAttributes(attribute.Int64("task.id", id)),
	)
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, model.ErrTaskNotFound
	}
	span.SetAttributes(attribute.Bool("task.found", true))

	if err := in.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	task := r.tasks[i]
	task.Title = in.Title
	task.Description = in.Description
	task.Status = in.Status

	return clone(task), nil
}

// Delete removes a task from the repository.
func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	_, span := tracer.Start(ctx, "TaskRepository.Delete",
		trace.WithAttributes(attribute.Int64("task.id", id)),
	)
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		span.SetAttributes(attribute.Bool("task.found", false))
		return model.ErrTaskNotFound
	}

	r.tasks = slices.Delete(r.tasks, i, i+1)

	span.SetAttributes(attribute.Bool("task.found", true))
	return nil
}

// Count returns the current number of tasks.
func (r *TaskRepository) Count() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.tasks))
}

// indexOf relies on tasks being sorted by ID, which holds because IDs are
// assigned in increasing order and appended. Callers must hold mu.
func (r *TaskRepository) indexOf(id int64) int {
	i, ok := slices.BinarySearchFunc(r.tasks, id, func(t *model.Task, id int64) int {
		return cmp.Compare(t.ID, id)
	})
	if !ok {
		return -1
	}
	return i
}

func clone(t *model.Task) *model.Task {
	c := *t
	return &c
}
