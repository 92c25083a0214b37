package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lifelock/internal/bus"
	"lifelock/internal/model"
)

// TaskRepository is the authoritative CRUD backend for tasks. It assigns ids
// and timestamps, enforces an optimistic revision check on updates, and
// announces every successful write on the change bus so other clients can
// refresh.
type TaskRepository struct {
	db  *gorm.DB
	bus *bus.Bus
	now func() time.Time
}

func NewTaskRepository(db *gorm.DB, b *bus.Bus) *TaskRepository {
	return &TaskRepository{db: db, bus: b, now: time.Now}
}

// List returns tasks matching the filter, subtasks preloaded. Filtering runs
// through the same predicate logic the client view uses, so both sides agree
// on what a filter means.
func (r *TaskRepository) List(ctx context.Context, filter model.Filter) ([]*model.Task, error) {
	var rows []model.Task
	if err := r.db.WithContext(ctx).Preload("Subtasks").
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	now := r.now()
	out := make([]*model.Task, 0, len(rows))
	for i := range rows {
		if filter.Matches(&rows[i], now) {
			out = append(out, &rows[i])
		}
	}
	return out, nil
}

// Get returns one task by id.
func (r *TaskRepository) Get(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Preload("Subtasks").Where("id = ?", id).First(&task).Error
	switch {
	case err == nil:
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("find task: %w", err)
	}
}

// Create stores a new task, replacing any client-side temporary id with a
// server-assigned one. Returns the stored task.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task, origin string) (*model.Task, error) {
	if strings.TrimSpace(task.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalid)
	}

	stored := task.Clone()
	stored.ID = uuid.NewString()
	now := r.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	for i := range stored.Subtasks {
		if stored.Subtasks[i].ID == "" || strings.HasPrefix(stored.Subtasks[i].ID, model.TempIDPrefix) {
			stored.Subtasks[i].ID = uuid.NewString()
		}
		stored.Subtasks[i].TaskID = stored.ID
	}

	if err := r.db.WithContext(ctx).Create(stored).Error; err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	r.publish(bus.ChangeEvent{EntityID: stored.ID, Op: bus.OpCreated, Task: stored.Clone(), Origin: origin})
	return stored, nil
}

// Update applies a partial update. expectedUpdatedAt, when non-zero, must
// match the stored revision or ErrConflict is returned.
func (r *TaskRepository) Update(ctx context.Context, id string, changes model.TaskChanges, expectedUpdatedAt time.Time, origin string) (*model.Task, error) {
	if changes.Title != nil && strings.TrimSpace(*changes.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalid)
	}

	var updated *model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task model.Task
		if err := tx.Preload("Subtasks").Where("id = ?", id).First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("find task: %w", err)
		}
		if !expectedUpdatedAt.IsZero() && !task.UpdatedAt.Equal(expectedUpdatedAt) {
			return ErrConflict
		}

		replaceSubtasks := changes.Subtasks != nil
		changes.Apply(&task)
		task.UpdatedAt = r.now()

		if err := tx.Omit(clause.Associations).Save(&task).Error; err != nil {
			return fmt.Errorf("save task: %w", err)
		}

		if replaceSubtasks {
			if err := tx.Where("task_id = ?", task.ID).Delete(&model.Subtask{}).Error; err != nil {
				return fmt.Errorf("clear subtasks: %w", err)
			}
			for i := range task.Subtasks {
				if task.Subtasks[i].ID == "" || strings.HasPrefix(task.Subtasks[i].ID, model.TempIDPrefix) {
					task.Subtasks[i].ID = uuid.NewString()
				}
				task.Subtasks[i].TaskID = task.ID
				if err := tx.Create(&task.Subtasks[i]).Error; err != nil {
					return fmt.Errorf("create subtask: %w", err)
				}
			}
		}

		updated = task.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.publish(bus.ChangeEvent{EntityID: updated.ID, Op: bus.OpUpdated, Task: updated.Clone(), Origin: origin})
	return updated, nil
}

// Delete removes a task and its subtasks.
func (r *TaskRepository) Delete(ctx context.Context, id string, origin string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&model.Task{})
		if res.Error != nil {
			return fmt.Errorf("delete task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("task_id = ?", id).Delete(&model.Subtask{}).Error; err != nil {
			return fmt.Errorf("delete subtasks: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.publish(bus.ChangeEvent{EntityID: id, Op: bus.OpDeleted, Origin: origin})
	return nil
}

// BulkUpdate applies all updates in one transaction: either every row is
// updated or none is.
func (r *TaskRepository) BulkUpdate(ctx context.Context, updates map[string]model.TaskChanges, origin string) ([]*model.Task, error) {
	var out []*model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, changes := range updates {
			var task model.Task
			if err := tx.Preload("Subtasks").Where("id = ?", id).First(&task).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: %s", ErrNotFound, id)
				}
				return fmt.Errorf("find task %s: %w", id, err)
			}
			changes.Apply(&task)
			task.UpdatedAt = r.now()
			if err := tx.Omit(clause.Associations).Save(&task).Error; err != nil {
				return fmt.Errorf("save task %s: %w", id, err)
			}
			out = append(out, task.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, t := range out {
		r.publish(bus.ChangeEvent{EntityID: t.ID, Op: bus.OpUpdated, Task: t.Clone(), Origin: origin})
	}
	return out, nil
}

// BulkDelete removes all ids in one transaction.
func (r *TaskRepository) BulkDelete(ctx context.Context, ids []string, origin string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			res := tx.Where("id = ?", id).Delete(&model.Task{})
			if res.Error != nil {
				return fmt.Errorf("delete task %s: %w", id, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			if err := tx.Where("task_id = ?", id).Delete(&model.Subtask{}).Error; err != nil {
				return fmt.Errorf("delete subtasks of %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, id := range ids {
		r.publish(bus.ChangeEvent{EntityID: id, Op: bus.OpDeleted, Origin: origin})
	}
	return nil
}

func (r *TaskRepository) publish(ev bus.ChangeEvent) {
	if r.bus != nil {
		r.bus.Publish(ev)
	}
}
