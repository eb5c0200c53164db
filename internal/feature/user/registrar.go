// Package user provides helpers for user registration.
package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"kcal_tracker_bot/internal/logging"
)

// userStore.RegisterUser must be idempotent and report whether the call
// created the record.
type userStore interface {
	RegisterUser(ctx context.Context, userID int64, registeredAt time.Time) (bool, error)
}

// Registrar ensures users are present in the store before their first
// command is handled.
type Registrar struct {
	users  userStore
	logger *logrus.Entry
	now    func() time.Time
}

// NewRegistrar constructs a Registrar for the provided user store.
func NewRegistrar(users userStore, logger *logrus.Entry) *Registrar {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Registrar{
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

// EnsureUser registers userID when it has not been seen before and reports
// whether this call created the record.
func (r *Registrar) EnsureUser(ctx context.Context, userID int64) (bool, error) {
	if r == nil || r.users == nil {
		return false, errors.New("user registrar is not initialized")
	}
	if ctx == nil {
		return false, errors.New("context is required")
	}
	if userID == 0 {
		return false, errors.New("user id is required")
	}

	registeredAt := r.now().UTC().Truncate(time.Second)
	created, err := r.users.RegisterUser(ctx, userID, registeredAt)
	if err != nil {
		return false, fmt.Errorf("ensure user: %w", err)
	}

	if created {
		r.logger.WithFields(logging.Fields{
			"event":   "user_registered",
			"user_id": userID,
		}).Info("registered new user")
		return true, nil
	}

	r.logger.WithFields(logging.Fields{
		"event":   "user_seen",
		"user_id": userID,
	}).Debug("user already registered")

	return false, nil
}
