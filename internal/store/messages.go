package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chatroom-backend/internal/models"
)

// AppendMessage pushes a message onto the log and trims it to the newest
// MaxMessages entries.
func (s *Store) AppendMessage(ctx context.Context, msg *models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if err := s.client.RPush(ctx, KeyMessages, data).Err(); err != nil {
		return fmt.Errorf("failed to append message: %v", err)
	}
	return s.client.LTrim(ctx, KeyMessages, -MaxMessages, -1).Err()
}

func (s *Store) GetMessages(ctx context.Context) ([]models.Message, error) {
	data, err := s.client.LRange(ctx, KeyMessages, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %v", err)
	}

	messages := make([]models.Message, 0, len(data))
	for _, raw := range data {
		var msg models.Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// CleanupMessages pops entries older than maxAge off the head of the log.
// The log is append-only and time-ordered, so popping stops at the first
// young enough entry. Racing a concurrent append is safe: appends only
// touch the tail.
func (s *Store) CleanupMessages(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	removed := 0

	for {
		raw, err := s.client.LIndex(ctx, KeyMessages, 0).Result()
		if err == redis.Nil {
			return removed, nil
		}
		if err != nil {
			return removed, err
		}

		var msg models.Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			// Unparseable head entry, drop it rather than wedge the sweep.
			s.client.LPop(ctx, KeyMessages)
			removed++
			continue
		}

		if msg.Timestamp >= cutoff {
			return removed, nil
		}
		if err := s.client.LPop(ctx, KeyMessages).Err(); err != nil {
			return removed, err
		}
		removed++
	}
}
