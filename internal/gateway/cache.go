package gateway

import (
	"sync"
	"time"

	"lifelock/internal/model"
)

// Cache holds read results for a bounded time so repeated list and get calls
// do not hit the remote service. Writes invalidate conservatively: any
// mutation clears the whole list namespace plus the mutated entity entry.
type Cache struct {
	mu    sync.Mutex
	lists map[string]listEntry
	byID  map[string]taskEntry

	listTTL   time.Duration
	searchTTL time.Duration
	taskTTL   time.Duration
	now       func() time.Time
}

type listEntry struct {
	tasks   []*model.Task
	expires time.Time
}

type taskEntry struct {
	task    *model.Task
	expires time.Time
}

// NewCache creates a cache with separate TTLs for plain lists, search-backed
// lists and single entities.
func NewCache(listTTL, searchTTL, taskTTL time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		lists:     make(map[string]listEntry),
		byID:      make(map[string]taskEntry),
		listTTL:   listTTL,
		searchTTL: searchTTL,
		taskTTL:   taskTTL,
		now:       now,
	}
}

// GetList returns a cached list younger than its TTL, or ok=false.
func (c *Cache) GetList(key string) ([]*model.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lists[key]
	if !ok || c.now().After(e.expires) {
		delete(c.lists, key)
		return nil, false
	}
	return cloneTasks(e.tasks), true
}

// PutList stores a list result. Search results age out faster than plain
// list results.
func (c *Cache) PutList(key string, tasks []*model.Task, search bool) {
	ttl := c.listTTL
	if search {
		ttl = c.searchTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[key] = listEntry{tasks: cloneTasks(tasks), expires: c.now().Add(ttl)}
}

// GetTask returns a cached entity younger than its TTL, or ok=false.
func (c *Cache) GetTask(id string) (*model.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byID[id]
	if !ok || c.now().After(e.expires) {
		delete(c.byID, id)
		return nil, false
	}
	return e.task.Clone(), true
}

// PutTask stores a single entity result.
func (c *Cache) PutTask(t *model.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[t.ID] = taskEntry{task: t.Clone(), expires: c.now().Add(c.taskTTL)}
}

// InvalidateLists drops every list entry.
func (c *Cache) InvalidateLists() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists = make(map[string]listEntry)
}

// InvalidateTask drops the entity entry for one id.
func (c *Cache) InvalidateTask(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, id)
}

// Sweep evicts expired entries. Driven periodically by the scheduler so the
// cache does not hold dead data between reads.
func (c *Cache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, e := range c.lists {
		if now.After(e.expires) {
			delete(c.lists, key)
		}
	}
	for id, e := range c.byID {
		if now.After(e.expires) {
			delete(c.byID, id)
		}
	}
}

func cloneTasks(in []*model.Task) []*model.Task {
	out := make([]*model.Task, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}
