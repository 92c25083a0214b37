package model

import (
	"math"
	"strings"
	"time"
)

// Status is the lifecycle state of a task or subtask.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Priority orders tasks by urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank maps priorities to a comparable weight for sorting.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Category groups tasks by area of life (deep work, light work, routine, admin).
type Category string

const (
	CategoryAdmin          Category = "admin"
	CategoryDeepWork       Category = "deep_work"
	CategoryLightWork      Category = "light_work"
	CategoryMorningRoutine Category = "morning_routine"
)

// TempIDPrefix marks client-side ids that have not been confirmed remotely.
const TempIDPrefix = "tmp-"

// Task represents a single item in the planner.
//
// The ID is assigned by the persistence layer on creation; a client that
// created a task optimistically holds a temporary id until the create is
// confirmed.
type Task struct {
	ID               string   `gorm:"primaryKey"`
	Title            string
	Description      string
	Status           Status   `gorm:"index;default:not_started"`
	Priority         Priority `gorm:"index;default:medium"`
	Category         Category `gorm:"index"`
	DueDate          *time.Time
	AssignedTo       string
	ProjectID        string   `gorm:"index"`
	ParentID         string   `gorm:"index"` // one level of nesting only
	Tags             []string `gorm:"serializer:json"`
	BlockedBy        []string `gorm:"serializer:json"` // advisory, not cycle-checked
	EstimatedMinutes int
	ActualMinutes    int
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Subtasks         []Subtask `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

// Subtask is owned by exactly one task and carries no nested children.
// It is created and deleted only through the parent task's lifecycle.
type Subtask struct {
	ID        string `gorm:"primaryKey"`
	TaskID    string `gorm:"index"`
	Title     string
	Status    Status `gorm:"default:not_started"`
	Position  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTemp reports whether the task still carries a client-assigned id.
func (t *Task) IsTemp() bool {
	return strings.HasPrefix(t.ID, TempIDPrefix)
}

// IsOverdue reports whether the due date has passed and the task is not done.
// Tasks without a due date are never overdue.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == StatusCompleted {
		return false
	}
	return t.DueDate.Before(now)
}

// DaysUntilDue returns whole days until the due date, negative when overdue.
// The second return is false when the task has no due date.
func (t *Task) DaysUntilDue(now time.Time) (int, bool) {
	if t.DueDate == nil {
		return 0, false
	}
	hours := t.DueDate.Sub(now).Hours()
	return int(math.Ceil(hours / 24)), true
}

// CompletionPercent is recomputed on every read, never persisted. With
// subtasks it is the share of completed subtasks; without, it is binary on
// the task's own status.
func (t *Task) CompletionPercent() float64 {
	if len(t.Subtasks) == 0 {
		if t.Status == StatusCompleted {
			return 100
		}
		return 0
	}
	done := 0
	for _, st := range t.Subtasks {
		if st.Status == StatusCompleted {
			done++
		}
	}
	return float64(done) / float64(len(t.Subtasks)) * 100
}

// HasTag reports whether the task carries the given tag (case-insensitive).
func (t *Task) HasTag(tag string) bool {
	for _, have := range t.Tags {
		if strings.EqualFold(have, tag) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, used for rollback snapshots.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	if t.DueDate != nil {
		due := *t.DueDate
		cp.DueDate = &due
	}
	cp.Tags = append([]string(nil), t.Tags...)
	cp.BlockedBy = append([]string(nil), t.BlockedBy...)
	cp.Subtasks = append([]Subtask(nil), t.Subtasks...)
	return &cp
}

// TaskChanges is a partial update: nil fields are left untouched.
type TaskChanges struct {
	Title            *string
	Description      *string
	Status           *Status
	Priority         *Priority
	Category         *Category
	DueDate          **time.Time // outer nil = untouched, inner nil = cleared
	AssignedTo       *string
	ProjectID        *string
	Tags             *[]string
	BlockedBy        *[]string
	EstimatedMinutes *int
	ActualMinutes    *int
	Subtasks         *[]Subtask
}

// Apply merges the changes into the task in place.
func (c TaskChanges) Apply(t *Task) {
	if c.Title != nil {
		t.Title = *c.Title
	}
	if c.Description != nil {
		t.Description = *c.Description
	}
	if c.Status != nil {
		t.Status = *c.Status
	}
	if c.Priority != nil {
		t.Priority = *c.Priority
	}
	if c.Category != nil {
		t.Category = *c.Category
	}
	if c.DueDate != nil {
		t.DueDate = *c.DueDate
	}
	if c.AssignedTo != nil {
		t.AssignedTo = *c.AssignedTo
	}
	if c.ProjectID != nil {
		t.ProjectID = *c.ProjectID
	}
	if c.Tags != nil {
		t.Tags = append([]string(nil), (*c.Tags)...)
	}
	if c.BlockedBy != nil {
		t.BlockedBy = append([]string(nil), (*c.BlockedBy)...)
	}
	if c.EstimatedMinutes != nil {
		t.EstimatedMinutes = *c.EstimatedMinutes
	}
	if c.ActualMinutes != nil {
		t.ActualMinutes = *c.ActualMinutes
	}
	if c.Subtasks != nil {
		t.Subtasks = append([]Subtask(nil), (*c.Subtasks)...)
	}
}

// Pointer helpers for building TaskChanges literals.

func StringPtr(s string) *string       { return &s }
func StatusPtr(s Status) *Status       { return &s }
func PriorityPtr(p Priority) *Priority { return &p }
func CategoryPtr(c Category) *Category { return &c }
func IntPtr(n int) *int                { return &n }
func DuePtr(t *time.Time) **time.Time  { return &t }
func TagsPtr(tags []string) *[]string  { return &tags }
