// Package redis provides a Redis-backed session repository.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/converse/pkg/models"
	"github.com/dukex/converse/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	defaultTTL       = 24 * time.Hour
)

// SessionRepository stores session snapshots as JSON values with a sliding TTL.
type SessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionRepository creates a Redis session repository. A non-positive ttl
// selects the 24h default.
func NewSessionRepository(client *redis.Client, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &SessionRepository{client: client, ttl: ttl}
}

// NewClient parses a redis:// URL and returns a connected client.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(options)

	err = client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// GetByContextID loads the snapshot and refreshes its TTL.
func (s *SessionRepository) GetByContextID(ctx context.Context, contextID string) (*models.SessionSnapshot, error) {
	key := s.key(contextID)

	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, persistence.NewSessionError("GetByContextID", contextID, persistence.ErrSessionNotFound)
	}

	if err != nil {
		return nil, persistence.NewSessionError("GetByContextID", contextID, err)
	}

	var snapshot models.SessionSnapshot

	err = json.Unmarshal(val, &snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", contextID, err)
	}

	_ = s.client.Expire(ctx, key, s.ttl).Err()

	return &snapshot, nil
}

// Save writes the snapshot inside a WATCH transaction so the conversation name
// and creation time of an existing session survive. A concurrent write to the
// same session yields ErrVersionConflict.
func (s *SessionRepository) Save(ctx context.Context, snapshot *models.SessionSnapshot) error {
	key := s.key(snapshot.ContextID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Bytes()

		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var stored models.SessionSnapshot

			err = json.Unmarshal(val, &stored)
			if err != nil {
				return fmt.Errorf("failed to unmarshal stored session: %w", err)
			}

			snapshot.ConversationName = stored.ConversationName
			snapshot.CreatedAt = stored.CreatedAt
		}

		now := time.Now().UTC()
		if snapshot.CreatedAt.IsZero() {
			snapshot.CreatedAt = now
		}

		snapshot.UpdatedAt = now

		newVal, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newVal, s.ttl)

			return nil
		})

		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return persistence.NewSessionError("Save", snapshot.ContextID, persistence.ErrVersionConflict)
	}

	if err != nil {
		return persistence.NewSessionError("Save", snapshot.ContextID, err)
	}

	return nil
}

func (s *SessionRepository) key(contextID string) string {
	return sessionKeyPrefix + contextID
}
