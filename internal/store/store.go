// Package store holds the in-memory task collection and the derived view the
// UI renders from. Every mutation recomputes the filtered view before the
// store's lock is released, so callers never observe the collection and the
// view out of sync.
package store

import (
	"log"
	"sync"
	"time"

	"lifelock/internal/model"
)

// Stats aggregates the collection for dashboard widgets.
type Stats struct {
	Total          int
	Completed      int
	Overdue        int
	InProgress     int
	CompletionRate float64
}

// TaskStore is the single source of truth for tasks in memory. Construct one
// per client with New; there is no package-level instance.
type TaskStore struct {
	mu       sync.RWMutex
	tasks    map[string]*model.Task
	order    []string // insertion order of ids, stable input to sorting
	filtered []*model.Task
	filter   model.Filter
	views    map[model.ViewType]model.ViewConfig
	active   model.ViewType
	selected map[string]struct{}
	detailID string

	now func() time.Time
}

// Option configures a TaskStore at construction time.
type Option func(*TaskStore)

// WithClock overrides the time source, used by tests and by callers that
// need reproducible overdue computation.
func WithClock(now func() time.Time) Option {
	return func(s *TaskStore) { s.now = now }
}

// WithViewConfigs seeds the per-view preferences, e.g. from persisted prefs.
func WithViewConfigs(views map[model.ViewType]model.ViewConfig) Option {
	return func(s *TaskStore) {
		for vt, cfg := range views {
			s.views[vt] = cfg
		}
	}
}

// New creates an empty store with default view configuration.
func New(opts ...Option) *TaskStore {
	s := &TaskStore{
		tasks:    make(map[string]*model.Task),
		views:    model.DefaultViewConfigs(),
		active:   model.ViewList,
		selected: make(map[string]struct{}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.recompute()
	return s
}

// SetTasks replaces the whole collection, typically after a full remote
// refresh. Selection entries for ids that vanished are pruned.
func (s *TaskStore) SetTasks(tasks []*model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make(map[string]*model.Task, len(tasks))
	s.order = s.order[:0]
	for _, t := range tasks {
		if _, dup := s.tasks[t.ID]; dup {
			log.Printf("[warn] store: duplicate id %q in SetTasks, keeping last", t.ID)
		} else {
			s.order = append(s.order, t.ID)
		}
		s.tasks[t.ID] = t.Clone()
	}
	for id := range s.selected {
		if _, ok := s.tasks[id]; !ok {
			delete(s.selected, id)
		}
	}
	if s.detailID != "" {
		if _, ok := s.tasks[s.detailID]; !ok {
			s.detailID = ""
		}
	}
	s.recompute()
}

// AddTask appends a task. Inserting an id that already exists overwrites the
// stored task and logs a warning, since it points at a sync bug upstream.
func (s *TaskStore) AddTask(t *model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(t)
	s.recompute()
}

func (s *TaskStore) addLocked(t *model.Task) {
	if _, exists := s.tasks[t.ID]; exists {
		log.Printf("[warn] store: AddTask overwriting existing id %q", t.ID)
	} else {
		s.order = append(s.order, t.ID)
	}
	s.tasks[t.ID] = t.Clone()
}

// UpdateTask merges changes into the task with the given id and bumps its
// UpdatedAt. A missing id is a logged no-op, not an error.
func (s *TaskStore) UpdateTask(id string, changes model.TaskChanges) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateLocked(id, changes)
	s.recompute()
}

func (s *TaskStore) updateLocked(id string, changes model.TaskChanges) {
	t, ok := s.tasks[id]
	if !ok {
		log.Printf("[warn] store: UpdateTask on unknown id %q", id)
		return
	}
	changes.Apply(t)
	t.UpdatedAt = s.now()
}

// ReplaceTask swaps a stored task wholesale, keyed by its previous id. Used
// by the sync layer when the server confirms a create and assigns the real
// id, and when rolling a task back to a snapshot.
func (s *TaskStore) ReplaceTask(oldID string, t *model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[oldID]; !ok {
		s.addLocked(t)
		s.recompute()
		return
	}
	delete(s.tasks, oldID)
	s.tasks[t.ID] = t.Clone()
	for i, id := range s.order {
		if id == oldID {
			s.order[i] = t.ID
			break
		}
	}
	if _, sel := s.selected[oldID]; sel && oldID != t.ID {
		delete(s.selected, oldID)
		s.selected[t.ID] = struct{}{}
	}
	if s.detailID == oldID {
		s.detailID = t.ID
	}
	s.recompute()
}

// ReplaceTasks swaps several stored tasks wholesale under one lock
// acquisition, re-inserting any that are missing. The sync layer uses it to
// confirm or roll back a whole batch without exposing intermediate views.
func (s *TaskStore) ReplaceTasks(tasks []*model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tasks {
		if _, ok := s.tasks[t.ID]; ok {
			s.tasks[t.ID] = t.Clone()
		} else {
			s.order = append(s.order, t.ID)
			s.tasks[t.ID] = t.Clone()
		}
	}
	s.recompute()
}

// DeleteTask removes the task, its selection entry and the detail reference.
func (s *TaskStore) DeleteTask(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(id)
	s.recompute()
}

func (s *TaskStore) deleteLocked(id string) {
	if _, ok := s.tasks[id]; !ok {
		return
	}
	delete(s.tasks, id)
	delete(s.selected, id)
	if s.detailID == id {
		s.detailID = ""
	}
	for i, have := range s.order {
		if have == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// BulkUpdateTasks applies every update under one lock acquisition, so the
// derived view only ever reflects all of them together.
func (s *TaskStore) BulkUpdateTasks(updates map[string]model.TaskChanges) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, changes := range updates {
		s.updateLocked(id, changes)
	}
	s.recompute()
}

// BulkDeleteTasks removes all ids atomically with respect to the view.
func (s *TaskStore) BulkDeleteTasks(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.deleteLocked(id)
	}
	s.recompute()
}

// SetFilters overlays the given predicates onto the active filter.
func (s *TaskStore) SetFilters(partial model.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = s.filter.Merge(partial)
	s.recompute()
}

// ResetFilters clears every predicate.
func (s *TaskStore) ResetFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = model.Filter{}
	s.recompute()
}

// Filter returns the active filter criteria.
func (s *TaskStore) Filter() model.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// SetViewConfig updates the preferences for one view type.
func (s *TaskStore) SetViewConfig(vt model.ViewType, cfg model.ViewConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[vt] = cfg
	s.recompute()
}

// SetActiveView switches the view whose sort configuration drives the
// filtered ordering.
func (s *TaskStore) SetActiveView(vt model.ViewType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = vt
	s.recompute()
}

// ActiveView returns the view whose configuration drives the ordering.
func (s *TaskStore) ActiveView() model.ViewType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// ViewConfigs returns a copy of the per-view preferences for persistence.
func (s *TaskStore) ViewConfigs() map[model.ViewType]model.ViewConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[model.ViewType]model.ViewConfig, len(s.views))
	for vt, cfg := range s.views {
		out[vt] = cfg
	}
	return out
}

// ToggleSelection flips membership of one id in the selection set. Unknown
// ids are ignored so the selection can never reference a missing task.
func (s *TaskStore) ToggleSelection(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return
	}
	if _, sel := s.selected[id]; sel {
		delete(s.selected, id)
	} else {
		s.selected[id] = struct{}{}
	}
}

// SelectAll selects exactly the ids currently in the filtered view.
func (s *TaskStore) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[string]struct{}, len(s.filtered))
	for _, t := range s.filtered {
		s.selected[t.ID] = struct{}{}
	}
}

// ClearSelection empties the selection set.
func (s *TaskStore) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[string]struct{})
}

// Selection returns the selected ids in no particular order.
func (s *TaskStore) Selection() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.selected))
	for id := range s.selected {
		out = append(out, id)
	}
	return out
}

// IsSelected reports membership of one id in the selection set.
func (s *TaskStore) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.selected[id]
	return ok
}

// SetDetail points the detail view at a task; empty id clears it.
func (s *TaskStore) SetDetail(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		s.detailID = ""
		return
	}
	if _, ok := s.tasks[id]; ok {
		s.detailID = id
	}
}

// Detail returns the task the detail view points at, nil when unset.
func (s *TaskStore) Detail() *model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.detailID == "" {
		return nil
	}
	return s.tasks[s.detailID].Clone()
}

// GetByID returns a copy of one task, nil when absent.
func (s *TaskStore) GetByID(id string) *model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil
	}
	return t.Clone()
}

// Tasks returns copies of the full collection in insertion order.
func (s *TaskStore) Tasks() []*model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tasks[id].Clone())
	}
	return out
}

// Filtered returns copies of the current derived view, already sorted.
func (s *TaskStore) Filtered() []*model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Task, len(s.filtered))
	for i, t := range s.filtered {
		out[i] = t.Clone()
	}
	return out
}

// GetByStatus returns copies of tasks with the given status.
func (s *TaskStore) GetByStatus(status model.Status) []*model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Task
	for _, id := range s.order {
		if t := s.tasks[id]; t.Status == status {
			out = append(out, t.Clone())
		}
	}
	return out
}

// GetByPriority returns copies of tasks with the given priority.
func (s *TaskStore) GetByPriority(priority model.Priority) []*model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Task
	for _, id := range s.order {
		if t := s.tasks[id]; t.Priority == priority {
			out = append(out, t.Clone())
		}
	}
	return out
}

// GetOverdue returns copies of tasks whose due date has passed.
func (s *TaskStore) GetOverdue() []*model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	var out []*model.Task
	for _, id := range s.order {
		if t := s.tasks[id]; t.IsOverdue(now) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// GetCompletedToday returns copies of tasks completed since local midnight.
func (s *TaskStore) GetCompletedToday() []*model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var out []*model.Task
	for _, id := range s.order {
		t := s.tasks[id]
		if t.Status == model.StatusCompleted && !t.UpdatedAt.Before(midnight) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Stats aggregates the whole collection, ignoring the active filter.
func (s *TaskStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	st := Stats{Total: len(s.tasks)}
	for _, t := range s.tasks {
		switch {
		case t.Status == model.StatusCompleted:
			st.Completed++
		case t.Status == model.StatusInProgress:
			st.InProgress++
		}
		if t.IsOverdue(now) {
			st.Overdue++
		}
	}
	if st.Total > 0 {
		st.CompletionRate = float64(st.Completed) / float64(st.Total) * 100
	}
	return st
}

// recompute rebuilds the filtered view from scratch, never incrementally.
// Caller holds s.mu.
func (s *TaskStore) recompute() {
	now := s.now()
	filtered := make([]*model.Task, 0, len(s.order))
	for _, id := range s.order {
		t := s.tasks[id]
		if s.filter.Matches(t, now) {
			filtered = append(filtered, t)
		}
	}
	model.SortTasks(filtered, s.views[s.active])
	s.filtered = filtered
}
