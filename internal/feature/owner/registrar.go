// Package owner guards admin-only commands and makes sure the configured bot
// owner has a diary before the first update arrives.
package owner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"kcal_tracker_bot/internal/command"
	"kcal_tracker_bot/internal/domain"
	"kcal_tracker_bot/internal/logging"
)

type userStore interface {
	RegisterUser(ctx context.Context, userID int64, registeredAt time.Time) (bool, error)
}

// Gate resolves roles against the configured owner id.
type Gate struct {
	ownerID int64
	users   userStore
	logger  *logrus.Entry
}

// NewGate constructs a Gate for ownerID. users may be nil when EnsureOwner is
// never called.
func NewGate(ownerID int64, users userStore, logger *logrus.Entry) *Gate {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Gate{
		ownerID: ownerID,
		users:   users,
		logger:  logger,
	}
}

// OwnerID returns the configured owner id.
func (g *Gate) OwnerID() int64 {
	if g == nil {
		return 0
	}
	return g.ownerID
}

// IsOwner reports whether userID is the configured owner.
func (g *Gate) IsOwner(userID int64) bool {
	if g == nil {
		return false
	}
	return domain.RoleFor(g.ownerID, userID) == domain.RoleOwner
}

// Allows reports whether userID may run action. Non-admin actions are open to
// everyone.
func (g *Gate) Allows(action command.Action, userID int64) bool {
	if !action.AdminOnly() {
		return true
	}
	return g.IsOwner(userID)
}

// EnsureOwner registers the configured owner when it has no record yet.
func (g *Gate) EnsureOwner(ctx context.Context) error {
	if g == nil || g.users == nil {
		return errors.New("owner gate is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if g.ownerID == 0 {
		return errors.New("owner id is required")
	}

	created, err := g.users.RegisterUser(ctx, g.ownerID, time.Now().UTC().Truncate(time.Second))
	if err != nil {
		return fmt.Errorf("ensure owner: %w", err)
	}

	g.logger.WithFields(logging.Fields{
		"event":          "owner_bootstrap",
		"owner_id":       g.ownerID,
		"created_record": created,
	}).Info("ensured bot owner")

	return nil
}
