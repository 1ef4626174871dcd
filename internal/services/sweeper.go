package services

import (
	"context"
	"log"
	"time"

	"chatroom-backend/internal/models"
	"chatroom-backend/internal/observability"
	"chatroom-backend/internal/store"
)

// Evictable is the slice of the registry the sweeper needs.
type Evictable interface {
	Type() models.EntityType
	EvictOlderThan(ctx context.Context, maxAge time.Duration) (int, error)
}

// Sweeper evicts entities and messages older than the retention window.
// Every worker runs one, but a per-tick store lock elects a single process
// to actually sweep. Sweeping is best-effort and non-transactional: it only
// deletes whole keys, so racing concurrent readers and writers is safe.
type Sweeper struct {
	store    *store.Store
	owner    string
	lifetime time.Duration
	interval time.Duration
	targets  []Evictable
}

func NewSweeper(s *store.Store, owner string, lifetime, interval time.Duration, targets ...Evictable) *Sweeper {
	return &Sweeper{
		store:    s,
		owner:    owner,
		lifetime: lifetime,
		interval: interval,
		targets:  targets,
	}
}

// Run blocks until ctx is cancelled.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			acquired, err := sw.store.TryAcquireSweepLock(ctx, sw.owner)
			if err != nil {
				log.Printf("sweeper: lock check failed: %v", err)
				continue
			}
			if !acquired {
				continue
			}
			sw.SweepOnce(ctx)
		}
	}
}

// SweepOnce evicts everything past the retention window.
func (sw *Sweeper) SweepOnce(ctx context.Context) {
	for _, target := range sw.targets {
		removed, err := target.EvictOlderThan(ctx, sw.lifetime)
		if err != nil {
			log.Printf("sweeper: evicting %ss failed: %v", target.Type(), err)
			continue
		}
		if removed > 0 {
			observability.SweptEntities.WithLabelValues(string(target.Type())).Add(float64(removed))
			log.Printf("sweeper: evicted %d expired %ss", removed, target.Type())
		}
	}

	removed, err := sw.store.CleanupMessages(ctx, sw.lifetime)
	if err != nil {
		log.Printf("sweeper: message cleanup failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("sweeper: dropped %d expired messages", removed)
	}
}
