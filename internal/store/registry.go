package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chatroom-backend/internal/models"
)

// maxUpdateRetries bounds the optimistic retry loop under write contention
// on the same entity hash.
const maxUpdateRetries = 16

// Registry is typed CRUD over one entity kind. Each kind lives in its own
// hash (id -> JSON snapshot). Update is atomic with respect to other
// Update/Create/Get calls on the same key; nothing here is atomic across
// two different keys.
type Registry[T models.Entity] struct {
	s   *Store
	typ models.EntityType
}

func NewRegistry[T models.Entity](s *Store, typ models.EntityType) *Registry[T] {
	return &Registry[T]{s: s, typ: typ}
}

func (r *Registry[T]) Type() models.EntityType {
	return r.typ
}

func (r *Registry[T]) key() string {
	return fmt.Sprintf(KeyEntityHash, r.typ)
}

func (r *Registry[T]) Create(ctx context.Context, id string, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.s.client.HSet(ctx, r.key(), id, data).Err()
}

func (r *Registry[T]) Get(ctx context.Context, id string) (*T, error) {
	data, err := r.s.client.HGet(ctx, r.key(), id).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %v", r.typ, id, err)
	}

	v := new(T)
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s %s: %v", r.typ, id, err)
	}
	return v, nil
}

// Update reads the entity, applies fn and writes the result back under an
// optimistic WATCH transaction, retrying when another worker wrote the hash
// in between. fn runs inside the retry loop, so uniqueness and state-machine
// guards belong in fn, not before the call. A missing id returns ErrNotFound
// without invoking fn; an error from fn aborts the write and is returned
// as-is.
func (r *Registry[T]) Update(ctx context.Context, id string, fn func(*T) error) (*T, error) {
	key := r.key()

	for i := 0; i < maxUpdateRetries; i++ {
		var out *T

		err := r.s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.HGet(ctx, key, id).Result()
			if err == redis.Nil {
				return ErrNotFound
			}
			if err != nil {
				return err
			}

			v := new(T)
			if err := json.Unmarshal([]byte(data), v); err != nil {
				return err
			}
			if err := fn(v); err != nil {
				return err
			}

			updated, err := json.Marshal(v)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, key, id, updated)
				return nil
			})
			if err == nil {
				out = v
			}
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	return nil, fmt.Errorf("update %s %s: too much contention", r.typ, id)
}

func (r *Registry[T]) Remove(ctx context.Context, id string) error {
	return r.s.client.HDel(ctx, r.key(), id).Err()
}

func (r *Registry[T]) All(ctx context.Context) ([]T, error) {
	data, err := r.s.client.HGetAll(ctx, r.key()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %ss: %v", r.typ, err)
	}

	out := make([]T, 0, len(data))
	for _, raw := range data {
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// EvictOlderThan deletes entities created before the retention cutoff.
// Eviction only removes whole keys, so racing concurrent readers or writers
// is safe; a writer losing to eviction sees ErrNotFound on its next Update.
func (r *Registry[T]) EvictOlderThan(ctx context.Context, maxAge time.Duration) (int, error) {
	all, err := r.s.client.HGetAll(ctx, r.key()).Result()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge).UnixMilli()
	removed := 0
	for id, raw := range all {
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			continue
		}
		if v.CreatedAtMillis() < cutoff {
			if err := r.s.client.HDel(ctx, r.key(), id).Err(); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
