package owner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"kcal_tracker_bot/internal/command"
)

func TestGateAllowsAdminActionsOnlyForOwner(t *testing.T) {
	gate := NewGate(42, nil, nil)

	tests := []struct {
		name   string
		action command.Action
		userID int64
		want   bool
	}{
		{name: "owner superstat", action: command.ActionSuperStat, userID: 42, want: true},
		{name: "stranger superstat", action: command.ActionSuperStat, userID: 7, want: false},
		{name: "stranger kill", action: command.ActionKill, userID: 7, want: false},
		{name: "stranger removeforce", action: command.ActionRemoveForce, userID: 7, want: false},
		{name: "stranger add", action: command.ActionAdd, userID: 7, want: true},
		{name: "owner stat", action: command.ActionStat, userID: 42, want: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := gate.Allows(tt.action, tt.userID); got != tt.want {
				t.Fatalf("Allows(%s, %d) = %v, want %v", tt.action, tt.userID, got, tt.want)
			}
		})
	}
}

func TestGateWithoutOwnerDeniesAdmin(t *testing.T) {
	gate := NewGate(0, nil, nil)
	if gate.IsOwner(0) {
		t.Fatalf("zero owner id must never match")
	}
	if gate.Allows(command.ActionKill, 0) {
		t.Fatalf("expected kill to be denied without configured owner")
	}

	var nilGate *Gate
	if nilGate.Allows(command.ActionSuperStat, 1) {
		t.Fatalf("expected nil gate to deny admin actions")
	}
	if !nilGate.Allows(command.ActionHelp, 1) {
		t.Fatalf("expected nil gate to allow regular actions")
	}
}

func TestEnsureOwnerRegistersMissingOwner(t *testing.T) {
	hookLogger, hook := logtest.NewNullLogger()
	users := &fakeUsers{known: map[int64]bool{}}

	gate := NewGate(999, users, logrus.NewEntry(hookLogger))
	if err := gate.EnsureOwner(context.Background()); err != nil {
		t.Fatalf("EnsureOwner returned error: %v", err)
	}

	if len(users.registered) != 1 || users.registered[0] != 999 {
		t.Fatalf("expected owner 999 to be registered, got %v", users.registered)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Data["event"] != "owner_bootstrap" {
		t.Fatalf("expected owner_bootstrap log entry, got %+v", entry)
	}
	if entry.Data["created_record"] != true {
		t.Fatalf("expected created_record=true, got %v", entry.Data["created_record"])
	}
}

func TestEnsureOwnerSkipsExistingOwner(t *testing.T) {
	hookLogger, hook := logtest.NewNullLogger()
	users := &fakeUsers{known: map[int64]bool{999: true}}

	gate := NewGate(999, users, logrus.NewEntry(hookLogger))
	if err := gate.EnsureOwner(context.Background()); err != nil {
		t.Fatalf("EnsureOwner returned error: %v", err)
	}
	if len(users.registered) != 0 {
		t.Fatalf("expected no registration for existing owner, got %v", users.registered)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Data["created_record"] != false {
		t.Fatalf("expected created_record=false, got %+v", entry)
	}
}

func TestEnsureOwnerValidatesAndPropagatesErrors(t *testing.T) {
	hookLogger, _ := logtest.NewNullLogger()
	tests := []struct {
		name      string
		gate      *Gate
		ctx       context.Context
		expectErr string
	}{
		{
			name:      "nil gate",
			gate:      nil,
			ctx:       context.Background(),
			expectErr: "owner gate",
		},
		{
			name:      "nil store",
			gate:      NewGate(1, nil, logrus.NewEntry(hookLogger)),
			ctx:       context.Background(),
			expectErr: "gate is not initialized",
		},
		{
			name:      "nil context",
			gate:      NewGate(1, &fakeUsers{}, logrus.NewEntry(hookLogger)),
			ctx:       nil,
			expectErr: "context is required",
		},
		{
			name:      "zero owner id",
			gate:      NewGate(0, &fakeUsers{}, logrus.NewEntry(hookLogger)),
			ctx:       context.Background(),
			expectErr: "owner id is required",
		},
		{
			name:      "register error",
			gate:      NewGate(99, &fakeUsers{registerErr: errors.New("insert fail")}, logrus.NewEntry(hookLogger)),
			ctx:       context.Background(),
			expectErr: "insert fail",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := tt.gate.EnsureOwner(tt.ctx)
			if err == nil || !strings.Contains(err.Error(), tt.expectErr) {
				t.Fatalf("expected error containing %q, got %v", tt.expectErr, err)
			}
		})
	}
}

type fakeUsers struct {
	known       map[int64]bool
	registered  []int64
	registerErr error
}

func (f *fakeUsers) RegisterUser(_ context.Context, userID int64, _ time.Time) (bool, error) {
	if f.registerErr != nil {
		return false, f.registerErr
	}
	if f.known[userID] {
		return false, nil
	}
	if f.known == nil {
		f.known = map[int64]bool{}
	}
	f.known[userID] = true
	f.registered = append(f.registered, userID)
	return true, nil
}
