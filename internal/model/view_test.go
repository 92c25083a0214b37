package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func idsOf(tasks []*Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

func TestSortTasksByDueDateNilLast(t *testing.T) {
	tasks := []*Task{
		{ID: "c"},
		{ID: "b", DueDate: datePtr(2024, 2, 1)},
		{ID: "a", DueDate: datePtr(2024, 1, 1)},
	}
	SortTasks(tasks, ViewConfig{SortKey: SortByDueDate})
	assert.Equal(t, []string{"a", "b", "c"}, idsOf(tasks))
}

func TestSortTasksTieBreaksByID(t *testing.T) {
	// Equal sort keys must yield a deterministic id order.
	tasks := []*Task{
		{ID: "z", Priority: PriorityHigh},
		{ID: "a", Priority: PriorityHigh},
		{ID: "m", Priority: PriorityHigh},
	}
	SortTasks(tasks, ViewConfig{SortKey: SortByPriority, SortDesc: true})
	assert.Equal(t, []string{"a", "m", "z"}, idsOf(tasks))

	SortTasks(tasks, ViewConfig{SortKey: SortByPriority})
	assert.Equal(t, []string{"a", "m", "z"}, idsOf(tasks))
}

func TestSortTasksByPriorityDesc(t *testing.T) {
	tasks := []*Task{
		{ID: "low", Priority: PriorityLow},
		{ID: "high", Priority: PriorityHigh},
		{ID: "med", Priority: PriorityMedium},
	}
	SortTasks(tasks, ViewConfig{SortKey: SortByPriority, SortDesc: true})
	assert.Equal(t, []string{"high", "med", "low"}, idsOf(tasks))
}
