package model

import (
	"sort"
	"time"
)

// ViewType identifies one of the UI views that share the task collection.
type ViewType string

const (
	ViewList     ViewType = "list"
	ViewKanban   ViewType = "kanban"
	ViewCalendar ViewType = "calendar"
	ViewTimeline ViewType = "timeline"
)

// SortKey selects the field the filtered view is ordered by.
type SortKey string

const (
	SortByDueDate  SortKey = "due_date"
	SortByPriority SortKey = "priority"
	SortByTitle    SortKey = "title"
	SortByCreated  SortKey = "created_at"
	SortByUpdated  SortKey = "updated_at"
)

// ViewConfig holds per-view presentation preferences. It is UI preference,
// not domain data: persisted across sessions but never sent to the server.
type ViewConfig struct {
	SortKey        SortKey  `yaml:"sort_key"`
	SortDesc       bool     `yaml:"sort_desc"`
	GroupBy        string   `yaml:"group_by,omitempty"`
	VisibleColumns []string `yaml:"visible_columns,omitempty"`
}

// DefaultViewConfigs returns the initial configuration for every view type.
func DefaultViewConfigs() map[ViewType]ViewConfig {
	return map[ViewType]ViewConfig{
		ViewList:     {SortKey: SortByDueDate, VisibleColumns: []string{"title", "priority", "due_date", "status"}},
		ViewKanban:   {SortKey: SortByPriority, SortDesc: true, GroupBy: "status"},
		ViewCalendar: {SortKey: SortByDueDate},
		ViewTimeline: {SortKey: SortByCreated, SortDesc: true},
	}
}

// SortTasks orders tasks in place by the configured key. Ties always fall
// back to the id so the order is deterministic.
func SortTasks(tasks []*Task, cfg ViewConfig) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if cfg.SortDesc {
			a, b = b, a
		}
		switch cfg.SortKey {
		case SortByPriority:
			if a.Priority.Rank() != b.Priority.Rank() {
				return a.Priority.Rank() < b.Priority.Rank()
			}
		case SortByTitle:
			if a.Title != b.Title {
				return a.Title < b.Title
			}
		case SortByCreated:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		case SortByUpdated:
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.Before(b.UpdatedAt)
			}
		default: // due date, tasks without one sort last
			if c := compareDue(a.DueDate, b.DueDate); c != 0 {
				return c < 0
			}
		}
		return tasks[i].ID < tasks[j].ID
	})
}

func compareDue(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case b.Before(*a):
		return 1
	}
	return 0
}
