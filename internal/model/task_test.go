package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestIsOverdue(t *testing.T) {
	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"no due date", Task{Status: StatusNotStarted}, false},
		{"due in the past", Task{DueDate: datePtr(2024, 3, 1), Status: StatusNotStarted}, true},
		{"due in the future", Task{DueDate: datePtr(2024, 4, 1), Status: StatusNotStarted}, false},
		{"past due but completed", Task{DueDate: datePtr(2024, 3, 1), Status: StatusCompleted}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.IsOverdue(testNow))
		})
	}
}

func TestDaysUntilDue(t *testing.T) {
	task := Task{DueDate: datePtr(2024, 3, 18)}
	days, ok := task.DaysUntilDue(testNow)
	require.True(t, ok)
	assert.Equal(t, 3, days)

	overdue := Task{DueDate: datePtr(2024, 3, 10)}
	days, ok = overdue.DaysUntilDue(testNow)
	require.True(t, ok)
	assert.Negative(t, days)

	_, ok = (&Task{}).DaysUntilDue(testNow)
	assert.False(t, ok)
}

func TestCompletionPercent(t *testing.T) {
	t.Run("binary without subtasks", func(t *testing.T) {
		assert.Equal(t, float64(0), (&Task{Status: StatusInProgress}).CompletionPercent())
		assert.Equal(t, float64(100), (&Task{Status: StatusCompleted}).CompletionPercent())
	})

	t.Run("subtask weighted", func(t *testing.T) {
		task := Task{
			Status: StatusInProgress,
			Subtasks: []Subtask{
				{ID: "s1", Status: StatusCompleted},
				{ID: "s2", Status: StatusCompleted},
				{ID: "s3", Status: StatusNotStarted},
				{ID: "s4", Status: StatusInProgress},
			},
		}
		assert.InDelta(t, 50.0, task.CompletionPercent(), 0.001)
	})

	t.Run("completing subtasks does not complete the parent", func(t *testing.T) {
		task := Task{
			Status:   StatusInProgress,
			Subtasks: []Subtask{{ID: "s1", Status: StatusCompleted}},
		}
		assert.InDelta(t, 100.0, task.CompletionPercent(), 0.001)
		assert.Equal(t, StatusInProgress, task.Status)
	})
}

func TestCloneIsDeep(t *testing.T) {
	orig := &Task{
		ID:       "a",
		Title:    "Original",
		DueDate:  datePtr(2024, 3, 20),
		Tags:     []string{"work"},
		Subtasks: []Subtask{{ID: "s1", Title: "step"}},
	}

	cp := orig.Clone()
	cp.Title = "Changed"
	*cp.DueDate = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cp.Tags[0] = "play"
	cp.Subtasks[0].Title = "other"

	assert.Equal(t, "Original", orig.Title)
	assert.Equal(t, 2024, orig.DueDate.Year())
	assert.Equal(t, "work", orig.Tags[0])
	assert.Equal(t, "step", orig.Subtasks[0].Title)
}

func TestTaskChangesApply(t *testing.T) {
	task := &Task{
		ID:       "a",
		Title:    "Old",
		Status:   StatusNotStarted,
		Priority: PriorityLow,
		DueDate:  datePtr(2024, 3, 20),
	}

	TaskChanges{
		Title:    StringPtr("New"),
		Status:   StatusPtr(StatusInProgress),
		Priority: PriorityPtr(PriorityHigh),
		DueDate:  DuePtr(nil), // explicit clear
		Tags:     TagsPtr([]string{"focus"}),
	}.Apply(task)

	assert.Equal(t, "New", task.Title)
	assert.Equal(t, StatusInProgress, task.Status)
	assert.Equal(t, PriorityHigh, task.Priority)
	assert.Nil(t, task.DueDate)
	assert.Equal(t, []string{"focus"}, task.Tags)

	// Untouched fields survive an empty change set.
	TaskChanges{}.Apply(task)
	assert.Equal(t, "New", task.Title)
}

func TestHasTag(t *testing.T) {
	task := Task{Tags: []string{"Work", "deep"}}
	assert.True(t, task.HasTag("work"))
	assert.True(t, task.HasTag("DEEP"))
	assert.False(t, task.HasTag("play"))
}
