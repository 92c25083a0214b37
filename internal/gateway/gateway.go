// Package gateway mediates between the in-memory task store and the remote
// persistence service. Mutations are applied optimistically, confirmed
// against the server's authoritative response, and rolled back on failure.
// Reads go through a TTL cache; change notifications from other clients
// invalidate it and refresh the store.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lifelock/internal/bus"
	"lifelock/internal/model"
	"lifelock/internal/repository"
	"lifelock/internal/store"
)

// Remote is the CRUD contract of the persistence service. It is
// authoritative for id assignment and timestamps.
type Remote interface {
	List(ctx context.Context, filter model.Filter) ([]*model.Task, error)
	Get(ctx context.Context, id string) (*model.Task, error)
	Create(ctx context.Context, task *model.Task, origin string) (*model.Task, error)
	Update(ctx context.Context, id string, changes model.TaskChanges, expectedUpdatedAt time.Time, origin string) (*model.Task, error)
	Delete(ctx context.Context, id string, origin string) error
	BulkUpdate(ctx context.Context, updates map[string]model.TaskChanges, origin string) ([]*model.Task, error)
	BulkDelete(ctx context.Context, ids []string, origin string) error
}

// RetryConfig holds backoff settings for read retries. Mutations are never
// retried automatically.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts per read.
	MaxAttempts int

	// BackoffBase is the initial backoff duration.
	BackoffBase time.Duration

	// BackoffMultiplier is applied to backoff on each retry.
	BackoffMultiplier float64

	// MaxBackoff caps the maximum backoff duration.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns sensible retry defaults for remote reads.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       500 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        10 * time.Second,
	}
}

// Options configure a Gateway.
type Options struct {
	Store    *store.TaskStore
	Remote   Remote
	Bus      *bus.Bus
	ClientID string

	ListTTL         time.Duration // default 5m
	SearchTTL       time.Duration // default 1m
	TaskTTL         time.Duration // default 2m
	MutationTimeout time.Duration // default 10s
	ReadTimeout     time.Duration // default 15s

	Retry           RetryConfig
	RefreshStrategy string // "entity" or "full"

	Clock func() time.Time
}

// Gateway is the single choke point between user intents and the remote
// service. Construct one per store with New.
type Gateway struct {
	store    *store.TaskStore
	remote   Remote
	bus      *bus.Bus
	cache    *Cache
	clientID string

	mutationTimeout time.Duration
	readTimeout     time.Duration
	retry           RetryConfig
	refresh         refreshFunc

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	now func() time.Time
}

// New wires a gateway to its store and remote. The store must not be mutated
// by anyone else; the gateway is the sole writer.
func New(opts Options) (*Gateway, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("gateway: store is required")
	}
	if opts.Remote == nil {
		return nil, fmt.Errorf("gateway: remote is required")
	}
	if opts.ClientID == "" {
		opts.ClientID = uuid.NewString()
	}
	if opts.ListTTL <= 0 {
		opts.ListTTL = 5 * time.Minute
	}
	if opts.SearchTTL <= 0 {
		opts.SearchTTL = time.Minute
	}
	if opts.TaskTTL <= 0 {
		opts.TaskTTL = 2 * time.Minute
	}
	if opts.MutationTimeout <= 0 {
		opts.MutationTimeout = 10 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryConfig()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Gateway{
		store:           opts.Store,
		remote:          opts.Remote,
		bus:             opts.Bus,
		cache:           NewCache(opts.ListTTL, opts.SearchTTL, opts.TaskTTL, opts.Clock),
		clientID:        opts.ClientID,
		mutationTimeout: opts.MutationTimeout,
		readTimeout:     opts.ReadTimeout,
		retry:           opts.Retry,
		refresh:         resolveRefreshStrategy(opts.RefreshStrategy),
		locks:           make(map[string]*sync.Mutex),
		now:             opts.Clock,
	}, nil
}

// ClientID identifies this gateway on the change bus.
func (g *Gateway) ClientID() string { return g.clientID }

// Store exposes the underlying store for read-only consumers (views).
func (g *Gateway) Store() *store.TaskStore { return g.store }

// CreateTask inserts the task optimistically under a temporary id, then
// confirms it against the server-assigned task or removes it on failure.
func (g *Gateway) CreateTask(ctx context.Context, task *model.Task) (*model.Task, error) {
	optimistic := task.Clone()
	optimistic.ID = model.TempIDPrefix + uuid.NewString()
	now := g.now()
	optimistic.CreatedAt = now
	optimistic.UpdatedAt = now
	g.store.AddTask(optimistic)

	mctx, cancel := g.mutationCtx(ctx)
	defer cancel()
	created, err := g.remote.Create(mctx, task, g.clientID)
	if err != nil {
		g.store.DeleteTask(optimistic.ID)
		return nil, g.classify(err)
	}

	g.store.ReplaceTask(optimistic.ID, created)
	g.invalidateAfterWrite(created.ID)
	return created.Clone(), nil
}

// UpdateTask merges the changes optimistically, then reconciles the stored
// task with the server copy. On failure the pre-mutation snapshot is
// restored; on conflict the server copy wins and the error still surfaces.
func (g *Gateway) UpdateTask(ctx context.Context, id string, changes model.TaskChanges) (*model.Task, error) {
	unlock := g.lockIDs(id)
	defer unlock()

	snapshot := g.store.GetByID(id)
	var expected time.Time
	if snapshot != nil {
		expected = snapshot.UpdatedAt
	}
	g.store.UpdateTask(id, changes)

	mctx, cancel := g.mutationCtx(ctx)
	defer cancel()
	updated, err := g.remote.Update(mctx, id, changes, expected, g.clientID)
	if err != nil {
		kindErr := g.classify(err)
		if IsConflict(kindErr) {
			g.forceRefresh(ctx, id)
		} else if snapshot != nil {
			g.store.ReplaceTask(id, snapshot)
		}
		return nil, kindErr
	}

	g.store.ReplaceTask(id, updated)
	g.invalidateAfterWrite(id)
	return updated.Clone(), nil
}

// DeleteTask removes the task optimistically and re-inserts the snapshot if
// the remote delete fails. Re-sorting restores its position in the view.
func (g *Gateway) DeleteTask(ctx context.Context, id string) error {
	unlock := g.lockIDs(id)
	defer unlock()

	snapshot := g.store.GetByID(id)
	wasSelected := g.store.IsSelected(id)
	g.store.DeleteTask(id)

	mctx, cancel := g.mutationCtx(ctx)
	defer cancel()
	if err := g.remote.Delete(mctx, id, g.clientID); err != nil {
		if snapshot != nil {
			g.store.AddTask(snapshot)
			if wasSelected {
				g.store.ToggleSelection(id)
			}
		}
		return g.classify(err)
	}

	g.invalidateAfterWrite(id)
	return nil
}

// BulkUpdateTasks applies the whole batch optimistically and commits or
// rolls back all of it together. Remote partial success is still treated as
// failure of the batch on the client.
func (g *Gateway) BulkUpdateTasks(ctx context.Context, updates map[string]model.TaskChanges) ([]*model.Task, error) {
	ids := make([]string, 0, len(updates))
	for id := range updates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	unlock := g.lockIDs(ids...)
	defer unlock()

	snapshots := g.snapshotAll(ids)
	g.store.BulkUpdateTasks(updates)

	mctx, cancel := g.mutationCtx(ctx)
	defer cancel()
	confirmed, err := g.remote.BulkUpdate(mctx, updates, g.clientID)
	if err != nil {
		g.store.ReplaceTasks(snapshots)
		return nil, g.classify(err)
	}

	g.store.ReplaceTasks(confirmed)
	g.store.ClearSelection()
	for _, id := range ids {
		g.cache.InvalidateTask(id)
	}
	g.cache.InvalidateLists()
	return cloneTasks(confirmed), nil
}

// BulkDeleteTasks removes the batch optimistically; on failure every task is
// re-inserted and previously selected entries are re-selected.
func (g *Gateway) BulkDeleteTasks(ctx context.Context, ids []string) error {
	ordered := append([]string(nil), ids...)
	sort.Strings(ordered)
	unlock := g.lockIDs(ordered...)
	defer unlock()

	snapshots := g.snapshotAll(ordered)
	selected := make(map[string]bool, len(ordered))
	for _, id := range ordered {
		selected[id] = g.store.IsSelected(id)
	}
	g.store.BulkDeleteTasks(ordered)

	mctx, cancel := g.mutationCtx(ctx)
	defer cancel()
	if err := g.remote.BulkDelete(mctx, ids, g.clientID); err != nil {
		g.store.ReplaceTasks(snapshots)
		for _, snap := range snapshots {
			if selected[snap.ID] {
				g.store.ToggleSelection(snap.ID)
			}
		}
		return g.classify(err)
	}

	g.store.ClearSelection()
	for _, id := range ordered {
		g.cache.InvalidateTask(id)
	}
	g.cache.InvalidateLists()
	return nil
}

// GetTasks returns tasks for the filter, from cache when fresh. Cache misses
// hit the remote with retry on transport errors.
func (g *Gateway) GetTasks(ctx context.Context, filter model.Filter) ([]*model.Task, error) {
	key := filter.Key()
	if tasks, ok := g.cache.GetList(key); ok {
		return tasks, nil
	}

	var tasks []*model.Task
	err := g.readWithRetry(ctx, func(ctx context.Context) error {
		var err error
		tasks, err = g.remote.List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}

	g.cache.PutList(key, tasks, filter.HasSearch())
	return cloneTasks(tasks), nil
}

// GetTask returns one task, from cache when fresh.
func (g *Gateway) GetTask(ctx context.Context, id string) (*model.Task, error) {
	if t, ok := g.cache.GetTask(id); ok {
		return t, nil
	}

	var task *model.Task
	err := g.readWithRetry(ctx, func(ctx context.Context) error {
		var err error
		task, err = g.remote.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	g.cache.PutTask(task)
	return task.Clone(), nil
}

// RefreshAll replaces the store collection wholesale from the remote,
// bypassing the cache. Used on startup and by the full refresh strategy.
func (g *Gateway) RefreshAll(ctx context.Context) error {
	var tasks []*model.Task
	err := g.readWithRetry(ctx, func(ctx context.Context) error {
		var err error
		tasks, err = g.remote.List(ctx, model.Filter{})
		return err
	})
	if err != nil {
		return err
	}
	g.store.SetTasks(tasks)
	g.cache.PutList(model.Filter{}.Key(), tasks, false)
	return nil
}

// Run consumes change notifications until ctx is done. Events originating
// from this client are skipped: its own writes are already reconciled.
func (g *Gateway) Run(ctx context.Context) {
	if g.bus == nil {
		return
	}
	events := g.bus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Origin == g.clientID {
				continue
			}
			g.handleChange(ctx, ev)
		}
	}
}

// SweepCache evicts expired cache entries; wired to a scheduler job.
func (g *Gateway) SweepCache() {
	g.cache.Sweep()
}

func (g *Gateway) handleChange(ctx context.Context, ev bus.ChangeEvent) {
	g.cache.InvalidateLists()
	g.cache.InvalidateTask(ev.EntityID)
	g.refresh(ctx, g, ev)
}

// forceRefresh reconciles one entity with the server after a conflict.
func (g *Gateway) forceRefresh(ctx context.Context, id string) {
	g.cache.InvalidateLists()
	g.cache.InvalidateTask(id)
	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.readTimeout)
	defer cancel()
	server, err := g.remote.Get(refreshCtx, id)
	if err != nil {
		if IsNotFound(g.classify(err)) {
			g.store.DeleteTask(id)
			return
		}
		log.Printf("[warn] gateway: refresh after conflict on %s: %v", id, err)
		return
	}
	g.store.ReplaceTask(id, server)
}

func (g *Gateway) snapshotAll(ids []string) []*model.Task {
	snapshots := make([]*model.Task, 0, len(ids))
	for _, id := range ids {
		if t := g.store.GetByID(id); t != nil {
			snapshots = append(snapshots, t)
		}
	}
	return snapshots
}

func (g *Gateway) invalidateAfterWrite(id string) {
	g.cache.InvalidateLists()
	g.cache.InvalidateTask(id)
}

// lockIDs serializes in-flight mutations per task id. A second mutation on
// the same id queues behind the first instead of racing it.
func (g *Gateway) lockIDs(ids ...string) func() {
	acquired := make([]*sync.Mutex, 0, len(ids))
	for _, id := range ids {
		g.locksMu.Lock()
		mu, ok := g.locks[id]
		if !ok {
			mu = &sync.Mutex{}
			g.locks[id] = mu
		}
		g.locksMu.Unlock()
		mu.Lock()
		acquired = append(acquired, mu)
	}
	return func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			acquired[i].Unlock()
		}
	}
}

func (g *Gateway) mutationCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.mutationTimeout)
}

// readWithRetry runs one read with capped exponential backoff on transport
// errors. Other error kinds surface immediately.
func (g *Gateway) readWithRetry(ctx context.Context, call func(ctx context.Context) error) error {
	backoff := g.retry.BackoffBase
	var lastErr error
	for attempt := 1; attempt <= g.retry.MaxAttempts; attempt++ {
		readCtx, cancel := context.WithTimeout(ctx, g.readTimeout)
		err := call(readCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = g.classify(err)
		if !IsNetwork(lastErr) || attempt == g.retry.MaxAttempts {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(backoff):
		}
		backoff = time.Duration(float64(backoff) * g.retry.BackoffMultiplier)
		if backoff > g.retry.MaxBackoff {
			backoff = g.retry.MaxBackoff
		}
	}
	return lastErr
}

// classify normalizes a remote failure into the caller-facing taxonomy.
func (g *Gateway) classify(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return &NotFoundError{err: err}
	case errors.Is(err, repository.ErrConflict):
		return &ConflictError{err: err}
	case errors.Is(err, repository.ErrInvalid):
		return &ValidationError{err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &NetworkError{err: err}
	case errors.As(err, &netErr):
		return &NetworkError{err: err}
	default:
		return &UnknownError{err: err}
	}
}
