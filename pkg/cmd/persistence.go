package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/converse/pkg/persistence"
	"github.com/dukex/converse/pkg/persistence/file"
	"github.com/dukex/converse/pkg/persistence/postgresql"
	"github.com/dukex/converse/pkg/persistence/redis"
)

// NewPersistence opens PostgreSQL for postgres:// URLs and treats anything
// else as a file store root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return p, nil
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://")), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	switch scheme {
	case "postgres", "postgresql":
		return "postgresql"
	default:
		return "file"
	}
}

// sessionOverride replaces the session repository of a persistence backend.
type sessionOverride struct {
	persistence.Persistence

	sessions persistence.SessionRepository
	close    func() error
}

func (p *sessionOverride) SessionRepository() persistence.SessionRepository {
	return p.sessions
}

func (p *sessionOverride) Close(ctx context.Context) error {
	err := p.close()
	if err != nil {
		return fmt.Errorf("failed to close session store: %w", err)
	}

	return p.Persistence.Close(ctx)
}

// WithRedisSessions moves session storage of p to Redis. Other repositories
// stay on p.
func WithRedisSessions(ctx context.Context, p persistence.Persistence, redisURL string, ttl time.Duration) (persistence.Persistence, error) {
	client, err := redis.NewClient(ctx, redisURL)
	if err != nil {
		return nil, err
	}

	return &sessionOverride{
		Persistence: p,
		sessions:    redis.NewSessionRepository(client, ttl),
		close:       client.Close,
	}, nil
}
