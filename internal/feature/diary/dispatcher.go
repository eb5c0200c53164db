// Package diary routes user commands to the calorie diary: logging food,
// removing entries, statistics, and per-user settings.
package diary

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

// Store is the persistence contract the dispatcher depends on.
type Store interface {
	AddConsumedItem(ctx context.Context, userID int64, text string, kcal *float64, at time.Time) (domain.ConsumedItem, error)
	RemoveConsumedItem(ctx context.Context, id int64, owner *int64) (domain.ConsumedItem, error)
	ConsumedSum(ctx context.Context, r domain.Range, userID int64) (float64, error)
	ConsumedItems(ctx context.Context, r domain.Range, userID *int64) ([]domain.ConsumedItem, error)
	TimezoneOffset(ctx context.Context, userID int64) (int, error)
	SetTimezoneOffset(ctx context.Context, userID int64, offset int) error
	MaxKcal(ctx context.Context, userID int64) (*float64, error)
	SetMaxKcal(ctx context.Context, userID int64, limit *float64) error
	CountUsers(ctx context.Context) (int64, error)
	CountConsumed(ctx context.Context) (int64, error)
}

type userRegistrar interface {
	EnsureUser(ctx context.Context, userID int64) (bool, error)
}

type accessGate interface {
	Allows(action command.Action, userID int64) bool
}

type shutdownRequester interface {
	RequestAfter(delay time.Duration) bool
}

// Inbound is a single text message or callback payload from a user.
type Inbound struct {
	UserID   int64
	Text     string
	Callback bool
}

// Button is an inline quick action; Command is dispatched as text when pressed.
type Button struct {
	Label   string
	Command string
}

// Reply is one outbound message to the sender of an Inbound.
type Reply struct {
	Text    string
	HTML    bool
	Buttons []Button
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithRegistrar sets the component that registers unseen users.
func WithRegistrar(registrar userRegistrar) Option {
	return func(d *Dispatcher) {
		d.registrar = registrar
	}
}

// WithGate sets the admin gate. Without one every admin-only action is denied.
func WithGate(gate accessGate) Option {
	return func(d *Dispatcher) {
		d.gate = gate
	}
}

// WithShutdown sets the signal that the kill command triggers after delay.
func WithShutdown(signal shutdownRequester, delay time.Duration) Option {
	return func(d *Dispatcher) {
		d.shutdown = signal
		d.shutdownDelay = delay
	}
}

// WithClock overrides the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// Dispatcher handles one inbound update at a time. It keeps no per-user state
// between calls.
type Dispatcher struct {
	store         Store
	registrar     userRegistrar
	gate          accessGate
	shutdown      shutdownRequester
	shutdownDelay time.Duration
	now           func() time.Time
	logger        *logrus.Entry
}

// NewDispatcher constructs a Dispatcher over store.
func NewDispatcher(store Store, logger *logrus.Entry, opts ...Option) (*Dispatcher, error) {
	if store == nil {
		return nil, errors.New("diary store is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	d := &Dispatcher{
		store:  store,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	return d, nil
}

// Handle processes in and returns the replies to deliver, in order. It never
// fails: parse and store problems become user-facing replies, and a panic in a
// handler is recovered into a generic reply.
func (d *Dispatcher) Handle(ctx context.Context, in Inbound) (replies []Reply) {
	if d == nil || d.store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	logger := logging.Scoped(d.logger, logging.Context{UserID: in.UserID})

	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(logging.Fields{
				"event": "dispatch_panic",
				"panic": fmt.Sprint(r),
			}).Error("recovered from handler panic")
			replies = append(replies, plain(msgInternalError))
		}
	}()

	logger.WithFields(logging.Fields{
		"event":    "update_received",
		"callback": in.Callback,
	}).Debug("handling update")

	if d.registrar != nil {
		created, err := d.registrar.EnsureUser(ctx, in.UserID)
		if err != nil {
			logger.WithField("event", "store_error").WithError(err).Error("user registration failed")
			return []Reply{plain(msgRegisterFailed)}
		}
		if created {
			replies = append(replies, plain(msgWelcome), helpReply())
		}
	}

	cmd, err := command.Parse(in.Text)
	if err != nil {
		return append(replies, plain(msgUnknownCommand))
	}

	action := command.Resolve(cmd.Keyword)
	if action.AdminOnly() && (d.gate == nil || !d.gate.Allows(action, in.UserID)) {
		logging.Scoped(logger, logging.Context{Action: string(action), Event: "admin_denied"}).
			Warn("non-admin invoked admin command")
		return append(replies, plain(msgUnknownCommand))
	}

	logger = logging.Scoped(logger, logging.Context{Action: string(action)})
	return append(replies, d.route(ctx, logger, in.UserID, action, cmd.Args)...)
}

func (d *Dispatcher) route(ctx context.Context, logger *logrus.Entry, userID int64, action command.Action, args string) []Reply {
	switch action {
	case command.ActionHelp:
		return []Reply{helpReply()}
	case command.ActionAdd:
		return d.add(ctx, logger, userID, args)
	case command.ActionRemove:
		return d.remove(ctx, logger, userID, args, &userID)
	case command.ActionRemoveForce:
		return d.remove(ctx, logger, userID, args, nil)
	case command.ActionStat:
		return d.shortStat(ctx, logger, userID)
	case command.ActionDayStat:
		return d.dayStat(ctx, logger, userID)
	case command.ActionLongStat:
		return d.longStat(ctx, logger, userID)
	case command.ActionSuperStat:
		return d.superStat(ctx, logger, userID)
	case command.ActionTimezone:
		return d.timezone(ctx, logger, userID, args)
	case command.ActionLimit:
		return d.limit(ctx, logger, userID, args)
	case command.ActionKill:
		return d.kill(logger)
	default:
		return []Reply{plain(msgUnknownCommand)}
	}
}

func plain(text string) Reply {
	return Reply{Text: text}
}

func helpReply() Reply {
	return Reply{Text: msgHelp, Buttons: quickActions()}
}

func quickActions() []Button {
	return []Button{
		{Label: "Today", Command: string(command.ActionStat)},
		{Label: "Day table", Command: string(command.ActionDayStat)},
		{Label: "All time", Command: string(command.ActionLongStat)},
	}
}
