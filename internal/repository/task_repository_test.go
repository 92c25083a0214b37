package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifelock/internal/bus"
	"lifelock/internal/model"
)

func newTestRepo(t *testing.T) (*TaskRepository, *bus.Bus) {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	b := bus.New(16)
	t.Cleanup(b.Close)
	return NewTaskRepository(db, b), b
}

func mustCreate(t *testing.T, r *TaskRepository, task *model.Task) *model.Task {
	t.Helper()
	stored, err := r.Create(context.Background(), task, "test")
	require.NoError(t, err)
	return stored
}

func drainEvent(t *testing.T, ch <-chan bus.ChangeEvent) bus.ChangeEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change event")
		return bus.ChangeEvent{}
	}
}

func TestCreateAssignsServerIDAndPublishes(t *testing.T) {
	repo, b := newTestRepo(t)
	events := b.Subscribe()

	stored := mustCreate(t, repo, &model.Task{
		ID:    "tmp-draft",
		Title: "Plan sprint",
		Subtasks: []model.Subtask{
			{ID: "tmp-sub", Title: "collect topics"},
		},
	})

	assert.False(t, stored.IsTemp())
	assert.NotEmpty(t, stored.ID)
	assert.False(t, stored.CreatedAt.IsZero())
	require.Len(t, stored.Subtasks, 1)
	assert.NotEqual(t, "tmp-sub", stored.Subtasks[0].ID)
	assert.Equal(t, stored.ID, stored.Subtasks[0].TaskID)

	ev := drainEvent(t, events)
	assert.Equal(t, bus.OpCreated, ev.Op)
	assert.Equal(t, stored.ID, ev.EntityID)
	assert.Equal(t, "test", ev.Origin)
}

func TestCreateRejectsEmptyTitle(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.Create(context.Background(), &model.Task{Title: "   "}, "test")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestGetRoundTripAndNotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	stored := mustCreate(t, repo, &model.Task{
		Title:    "Read book",
		Priority: model.PriorityHigh,
		Tags:     []string{"home", "evening"},
	})

	got, err := repo.Get(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "Read book", got.Title)
	assert.Equal(t, model.PriorityHigh, got.Priority)
	assert.Equal(t, []string{"home", "evening"}, got.Tags)

	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAppliesFilter(t *testing.T) {
	repo, _ := newTestRepo(t)
	mustCreate(t, repo, &model.Task{Title: "A", Status: model.StatusInProgress})
	mustCreate(t, repo, &model.Task{Title: "B", Status: model.StatusNotStarted})

	got, err := repo.List(context.Background(), model.Filter{
		Statuses: []model.Status{model.StatusInProgress},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Title)

	all, err := repo.List(context.Background(), model.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateAppliesPartialChanges(t *testing.T) {
	repo, b := newTestRepo(t)
	stored := mustCreate(t, repo, &model.Task{Title: "Old", Priority: model.PriorityLow})
	events := b.Subscribe()

	updated, err := repo.Update(context.Background(), stored.ID, model.TaskChanges{
		Title:  model.StringPtr("New"),
		Status: model.StatusPtr(model.StatusInProgress),
	}, stored.UpdatedAt, "test")
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, model.StatusInProgress, updated.Status)
	assert.Equal(t, model.PriorityLow, updated.Priority)
	assert.True(t, updated.UpdatedAt.After(stored.UpdatedAt))

	ev := drainEvent(t, events)
	assert.Equal(t, bus.OpUpdated, ev.Op)
	require.NotNil(t, ev.Task)
	assert.Equal(t, "New", ev.Task.Title)
}

func TestUpdateStaleRevisionConflicts(t *testing.T) {
	repo, _ := newTestRepo(t)
	stored := mustCreate(t, repo, &model.Task{Title: "Shared"})

	stale := stored.UpdatedAt.Add(-time.Hour)
	_, err := repo.Update(context.Background(), stored.ID, model.TaskChanges{
		Title: model.StringPtr("Mine"),
	}, stale, "test")
	assert.ErrorIs(t, err, ErrConflict)

	// Zero expected revision skips the check.
	_, err = repo.Update(context.Background(), stored.ID, model.TaskChanges{
		Title: model.StringPtr("Forced"),
	}, time.Time{}, "test")
	assert.NoError(t, err)
}

func TestUpdateReplacesSubtasks(t *testing.T) {
	repo, _ := newTestRepo(t)
	stored := mustCreate(t, repo, &model.Task{
		Title: "Split",
		Subtasks: []model.Subtask{
			{Title: "one"},
			{Title: "two"},
		},
	})

	updated, err := repo.Update(context.Background(), stored.ID, model.TaskChanges{
		Subtasks: &[]model.Subtask{{Title: "only"}},
	}, time.Time{}, "test")
	require.NoError(t, err)
	require.Len(t, updated.Subtasks, 1)
	assert.Equal(t, "only", updated.Subtasks[0].Title)

	got, err := repo.Get(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Len(t, got.Subtasks, 1)
}

func TestDeleteRemovesTaskAndSubtasks(t *testing.T) {
	repo, b := newTestRepo(t)
	stored := mustCreate(t, repo, &model.Task{
		Title:    "Doomed",
		Subtasks: []model.Subtask{{Title: "child"}},
	})
	events := b.Subscribe()

	require.NoError(t, repo.Delete(context.Background(), stored.ID, "test"))
	_, err := repo.Get(context.Background(), stored.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	ev := drainEvent(t, events)
	assert.Equal(t, bus.OpDeleted, ev.Op)
	assert.Equal(t, stored.ID, ev.EntityID)

	assert.ErrorIs(t, repo.Delete(context.Background(), "missing", "test"), ErrNotFound)
}

func TestBulkUpdateIsTransactional(t *testing.T) {
	repo, _ := newTestRepo(t)
	a := mustCreate(t, repo, &model.Task{Title: "A"})
	bTask := mustCreate(t, repo, &model.Task{Title: "B"})

	_, err := repo.BulkUpdate(context.Background(), map[string]model.TaskChanges{
		a.ID:      {Status: model.StatusPtr(model.StatusCompleted)},
		"missing": {Status: model.StatusPtr(model.StatusCompleted)},
	}, "test")
	assert.ErrorIs(t, err, ErrNotFound)

	// The valid row must not have been committed.
	got, err := repo.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNotStarted, got.Status)

	out, err := repo.BulkUpdate(context.Background(), map[string]model.TaskChanges{
		a.ID:     {Status: model.StatusPtr(model.StatusCompleted)},
		bTask.ID: {Status: model.StatusPtr(model.StatusCompleted)},
	}, "test")
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestBulkDeleteIsTransactional(t *testing.T) {
	repo, _ := newTestRepo(t)
	a := mustCreate(t, repo, &model.Task{Title: "A"})
	bTask := mustCreate(t, repo, &model.Task{Title: "B"})

	err := repo.BulkDelete(context.Background(), []string{a.ID, "missing"}, "test")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.Get(context.Background(), a.ID)
	assert.NoError(t, err)

	require.NoError(t, repo.BulkDelete(context.Background(), []string{a.ID, bTask.ID}, "test"))
	all, err := repo.List(context.Background(), model.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}
