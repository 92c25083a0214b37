package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Filter is a set of optional predicates over the task collection. A zero
// field means no constraint on that field. Values within one field are OR'd,
// fields are AND'd against each other.
type Filter struct {
	Statuses    []Status
	Priorities  []Priority
	Categories  []Category
	Assignees   []string
	Projects    []string
	Tags        []string
	DueFrom     *time.Time
	DueTo       *time.Time
	Search      string
	Overdue     *bool
	HasSubtasks *bool
}

// IsZero reports whether the filter constrains nothing.
func (f Filter) IsZero() bool {
	return len(f.Statuses) == 0 && len(f.Priorities) == 0 && len(f.Categories) == 0 &&
		len(f.Assignees) == 0 && len(f.Projects) == 0 && len(f.Tags) == 0 &&
		f.DueFrom == nil && f.DueTo == nil && f.Search == "" &&
		f.Overdue == nil && f.HasSubtasks == nil
}

// Merge overlays the non-zero fields of other onto a copy of f.
func (f Filter) Merge(other Filter) Filter {
	out := f
	if len(other.Statuses) > 0 {
		out.Statuses = other.Statuses
	}
	if len(other.Priorities) > 0 {
		out.Priorities = other.Priorities
	}
	if len(other.Categories) > 0 {
		out.Categories = other.Categories
	}
	if len(other.Assignees) > 0 {
		out.Assignees = other.Assignees
	}
	if len(other.Projects) > 0 {
		out.Projects = other.Projects
	}
	if len(other.Tags) > 0 {
		out.Tags = other.Tags
	}
	if other.DueFrom != nil {
		out.DueFrom = other.DueFrom
	}
	if other.DueTo != nil {
		out.DueTo = other.DueTo
	}
	if other.Search != "" {
		out.Search = other.Search
	}
	if other.Overdue != nil {
		out.Overdue = other.Overdue
	}
	if other.HasSubtasks != nil {
		out.HasSubtasks = other.HasSubtasks
	}
	return out
}

// Matches applies the filter to one task. The free-text search is checked
// first, then each remaining non-empty predicate conjunctively.
func (f Filter) Matches(t *Task, now time.Time) bool {
	if f.Search != "" && !f.matchesSearch(t) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !containsPriority(f.Priorities, t.Priority) {
		return false
	}
	if len(f.Categories) > 0 && !containsCategory(f.Categories, t.Category) {
		return false
	}
	if len(f.Assignees) > 0 && !containsFold(f.Assignees, t.AssignedTo) {
		return false
	}
	if len(f.Projects) > 0 && !containsFold(f.Projects, t.ProjectID) {
		return false
	}
	if len(f.Tags) > 0 {
		found := false
		for _, tag := range f.Tags {
			if t.HasTag(tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.DueFrom != nil || f.DueTo != nil {
		// A task without a due date never matches a due-date range.
		if t.DueDate == nil {
			return false
		}
		if f.DueFrom != nil && t.DueDate.Before(*f.DueFrom) {
			return false
		}
		if f.DueTo != nil && t.DueDate.After(*f.DueTo) {
			return false
		}
	}
	if f.Overdue != nil && t.IsOverdue(now) != *f.Overdue {
		return false
	}
	if f.HasSubtasks != nil && (len(t.Subtasks) > 0) != *f.HasSubtasks {
		return false
	}
	return true
}

// matchesSearch does a case-insensitive substring match against title,
// description, tags and assignee.
func (f Filter) matchesSearch(t *Task) bool {
	needle := strings.ToLower(f.Search)
	if strings.Contains(strings.ToLower(t.Title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(t.Description), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(t.AssignedTo), needle) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// Key returns a canonical cache key: field order is fixed and multi-value
// fields are sorted, so two equivalent filters always key the same entry.
func (f Filter) Key() string {
	var parts []string
	if vals := sortedStrings(statusStrings(f.Statuses)); len(vals) > 0 {
		parts = append(parts, "status="+strings.Join(vals, ","))
	}
	if vals := sortedStrings(priorityStrings(f.Priorities)); len(vals) > 0 {
		parts = append(parts, "priority="+strings.Join(vals, ","))
	}
	if vals := sortedStrings(categoryStrings(f.Categories)); len(vals) > 0 {
		parts = append(parts, "category="+strings.Join(vals, ","))
	}
	if vals := sortedStrings(f.Assignees); len(vals) > 0 {
		parts = append(parts, "assignee="+strings.Join(vals, ","))
	}
	if vals := sortedStrings(f.Projects); len(vals) > 0 {
		parts = append(parts, "project="+strings.Join(vals, ","))
	}
	if vals := sortedStrings(f.Tags); len(vals) > 0 {
		parts = append(parts, "tag="+strings.Join(vals, ","))
	}
	if f.DueFrom != nil {
		parts = append(parts, "due_from="+f.DueFrom.UTC().Format(time.RFC3339))
	}
	if f.DueTo != nil {
		parts = append(parts, "due_to="+f.DueTo.UTC().Format(time.RFC3339))
	}
	if f.Search != "" {
		parts = append(parts, "q="+strings.ToLower(f.Search))
	}
	if f.Overdue != nil {
		parts = append(parts, fmt.Sprintf("overdue=%t", *f.Overdue))
	}
	if f.HasSubtasks != nil {
		parts = append(parts, fmt.Sprintf("has_subtasks=%t", *f.HasSubtasks))
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, "&")
}

// HasSearch reports whether the filter carries a free-text query. Search
// results are cached with a shorter TTL than plain lists.
func (f Filter) HasSearch() bool {
	return f.Search != ""
}

func containsStatus(haystack []Status, want Status) bool {
	for _, s := range haystack {
		if s == want {
			return true
		}
	}
	return false
}

func containsPriority(haystack []Priority, want Priority) bool {
	for _, p := range haystack {
		if p == want {
			return true
		}
	}
	return false
}

func containsCategory(haystack []Category, want Category) bool {
	for _, c := range haystack {
		if c == want {
			return true
		}
	}
	return false
}

func containsFold(haystack []string, want string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}

func sortedStrings(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func statusStrings(in []Status) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func priorityStrings(in []Priority) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func categoryStrings(in []Category) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

// BoolPtr is a literal helper for the Overdue and HasSubtasks predicates.
func BoolPtr(b bool) *bool { return &b }
