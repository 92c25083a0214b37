package gateway

import (
	"context"
	"log"

	"lifelock/internal/bus"
)

// refreshFunc applies one change notification to the store after the cache
// has been invalidated.
type refreshFunc func(ctx context.Context, g *Gateway, ev bus.ChangeEvent)

// Refresh strategy names. The strategy is picked once at construction, not
// branched on per call site.
const (
	RefreshEntity = "entity"
	RefreshFull   = "full"
)

var refreshStrategies = map[string]refreshFunc{
	RefreshEntity: refreshEntity,
	RefreshFull:   refreshFull,
}

func resolveRefreshStrategy(name string) refreshFunc {
	if name == "" {
		return refreshStrategies[RefreshEntity]
	}
	fn, ok := refreshStrategies[name]
	if !ok {
		log.Printf("[warn] gateway: unknown refresh strategy %q, using %q", name, RefreshEntity)
		return refreshStrategies[RefreshEntity]
	}
	return fn
}

// refreshEntity applies the single affected entity, fetching it when the
// event carries no payload.
func refreshEntity(ctx context.Context, g *Gateway, ev bus.ChangeEvent) {
	switch ev.Op {
	case bus.OpDeleted:
		g.store.DeleteTask(ev.EntityID)
		return
	case bus.OpCreated, bus.OpUpdated:
	default:
		log.Printf("[warn] gateway: unknown change op %q for %s", ev.Op, ev.EntityID)
		return
	}

	task := ev.Task
	if task == nil {
		fetched, err := g.GetTask(ctx, ev.EntityID)
		if err != nil {
			if IsNotFound(err) {
				g.store.DeleteTask(ev.EntityID)
				return
			}
			log.Printf("[warn] gateway: fetch changed task %s: %v", ev.EntityID, err)
			return
		}
		task = fetched
	}
	g.store.ReplaceTask(task.ID, task)
}

// refreshFull refetches the whole list and replaces the store collection.
func refreshFull(ctx context.Context, g *Gateway, ev bus.ChangeEvent) {
	if err := g.RefreshAll(ctx); err != nil {
		log.Printf("[warn] gateway: full refresh after %s %s: %v", ev.Op, ev.EntityID, err)
	}
}
