package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"chatroom-backend/internal/models"
)

func (s *Store) AddUser(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, KeyUsers, user.ID, data).Err()
}

func (s *Store) GetUser(ctx context.Context, userID string) (*models.User, error) {
	data, err := s.client.HGet(ctx, KeyUsers, userID).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %v", err)
	}

	var user models.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %v", err)
	}
	return &user, nil
}

func (s *Store) RemoveUser(ctx context.Context, userID string) error {
	return s.client.HDel(ctx, KeyUsers, userID).Err()
}

func (s *Store) GetAllUsers(ctx context.Context) ([]models.User, error) {
	data, err := s.client.HGetAll(ctx, KeyUsers).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %v", err)
	}

	users := make([]models.User, 0, len(data))
	for _, raw := range data {
		var user models.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

// UpdateUser applies fn to the user's current snapshot and writes it back.
// This is a plain read-modify-write: a user is almost always mutated from
// the worker owning their connection, so the lost-update window is accepted
// rather than paid for with a transaction on the whole users hash.
func (s *Store) UpdateUser(ctx context.Context, userID string, fn func(*models.User)) (*models.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	fn(user)
	if err := s.AddUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
