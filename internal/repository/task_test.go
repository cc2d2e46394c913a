package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/hiroki-koketsu/go-task-store/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func input(title, description string, status bool) *model.TaskInput {
	return &model.TaskInput{Title: title, Description: description, Status: status}
}

func TestTaskRepository_Scenario(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository()

	first, err := repo.Create(ctx, input("Buy milk", "2% fat", false))
	require.NoError(t, err)
	assert.Equal(t, &model.Task{ID: 1, Title: "Buy milk", Description: "2% fat", Status: false}, first)

	second, err := repo.Create(ctx, input("Walk dog", "Around the block", false))
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)

	tasks, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, int64(1), tasks[0].ID)
	assert.Equal(t, int64(2), tasks[1].ID)

	updated, err := repo.Update(ctx, 1, input("Buy milk", "2% fat", true))
	require.NoError(t, err)
	assert.Equal(t, &model.Task{ID: 1, Title: "Buy milk", Description: "2% fat", Status: true}, updated)

	require.NoError(t, repo.Delete(ctx, 2))

	_, err = repo.GetByID(ctx, 2)
	assert.ErrorIs(t, err, model.ErrTaskNotFound)
}

func TestTaskRepository_IDsNeverReused(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository()

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, input("t", "d", false))
		require.NoError(t, err)
	}
	require.NoError(t, repo.Delete(ctx, 3))
	require.NoError(t, repo.Delete(ctx, 1))

	task, err := repo.Create(ctx, input("t", "d", false))
	require.NoError(t, err)
	assert.Equal(t, int64(4), task.ID)

	tasks, err := repo.List(ctx)
	require.NoError(t, err)
	ids := make([]int64, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []int64{2, 4}, ids)
}

func TestTaskRepository_CreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		input *model.TaskInput
		field string
	}{
		{name: "empty title", input: input("", "d", false), field: "title"},
		{name: "blank title", input: input("   ", "d", false), field: "title"},
		{name: "blank description", input: input("t", "\t", false), field: "description"},
		{name: "long title", input: input(strings.Repeat("x", 101), "d", false), field: "title"},
		{name: "long description", input: input("t", strings.Repeat("x", 501), false), field: "description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo := NewTaskRepository()

			task, err := repo.Create(ctx, tt.input)
			assert.Nil(t, task)
			require.ErrorIs(t, err, model.ErrValidation)

			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Zero(t, repo.Count())

			// A rejected create must not consume an ID.
			created, err := repo.Create(ctx, input("t", "d", false))
			require.NoError(t, err)
			assert.Equal(t, int64(1), created.ID)
		})
	}
}

func TestTaskRepository_UpdateValidationLeavesTaskUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository()

	_, err := repo.Create(ctx, input("Buy milk", "2% fat", false))
	require.NoError(t, err)

	_, err = repo.Update(ctx, 1, input(" ", "skim", true))
	require.ErrorIs(t, err, model.ErrValidation)

	task, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, "2% fat", task.Description)
	assert.False(t, task.Status)
}

func TestTaskRepository_UpdateMissingReportsNotFoundFirst(t *testing.T) {
	repo := NewTaskRepository()

	_, err := repo.Update(context.Background(), 7, input("", "", false))
	assert.ErrorIs(t, err, model.ErrTaskNotFound)
}

func TestTaskRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository()

	_, err := repo.Create(ctx, input("t", "d", false))
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, 1))

	for _, id := range []int64{0, 1, 2, -5} {
		_, err := repo.GetByID(ctx, id)
		assert.ErrorIs(t, err, model.ErrTaskNotFound, "get %d", id)

		_, err = repo.Update(ctx, id, input("t", "d", false))
		assert.ErrorIs(t, err, model.ErrTaskNotFound, "update %d", id)

		assert.ErrorIs(t, repo.Delete(ctx, id), model.ErrTaskNotFound, "delete %d", id)
	}
}

func TestTaskRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository()

	created, err := repo.Create(ctx, input("t", "d", false))
	require.NoError(t, err)
	created.Title = "mutated"
	created.ID = 99

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)

	tasks, err := repo.List(ctx)
	require.NoError(t, err)
	tasks[0].Status = true

	got, err = repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.False(t, got.Status)
}

func TestTaskRepository_ListEmpty(t *testing.T) {
	tasks, err := NewTaskRepository().List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestTaskRepository_ConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository()

	const workers = 50
	ids := make([]int64, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task, err := repo.Create(ctx, input("t", "d", false))
			if err == nil {
				ids[i] = task.ID
			}
		}(i)
	}
	wg.Wait()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		assert.Equal(t, int64(i+1), id)
	}
	assert.Equal(t, int64(workers), repo.Count())
}

func TestTaskRepository_ConcurrentUpdateDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository()

	_, err := repo.Create(ctx, input("t", "d", false))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var updateErr, deleteErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, updateErr = repo.Update(ctx, 1, input("new", "desc", true))
	}()
	go func() {
		defer wg.Done()
		deleteErr = repo.Delete(ctx, 1)
	}()
	wg.Wait()

	require.NoError(t, deleteErr)
	if updateErr != nil {
		assert.ErrorIs(t, updateErr, model.ErrTaskNotFound)
	}

	_, err = repo.GetByID(ctx, 1)
	assert.ErrorIs(t, err, model.ErrTaskNotFound)
	assert.Zero(t, repo.Count())
}
