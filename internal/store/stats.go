package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type countCollection interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// StatsProvider exposes collection counts for the admin statistics header
// without leaking MongoDB internals to callers.
type StatsProvider struct {
	users    countCollection
	consumed countCollection
}

// NewStatsProvider constructs a StatsProvider backed by the provided user and
// consumed item collections.
func NewStatsProvider(users, consumed countCollection) *StatsProvider {
	return &StatsProvider{
		users:    users,
		consumed: consumed,
	}
}

// CountUsers returns the number of registered users.
func (p *StatsProvider) CountUsers(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.users == nil {
		return 0, errors.New("stats provider is not initialized")
	}

	count, err := p.users.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}

	return count, nil
}

// CountConsumed returns the number of logged consumed items across all users.
func (p *StatsProvider) CountConsumed(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.consumed == nil {
		return 0, errors.New("stats provider is not initialized")
	}

	count, err := p.consumed.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count consumed: %w", err)
	}

	return count, nil
}
