package usecase

import (
	"context"

	"github.com/iho/gojournal/internal/domain"
)

// Authorizer decides whether an actor may perform an action on a branch.
// An empty branch means the action is not branch-scoped.
type Authorizer interface {
	CanPerform(ctx context.Context, actor domain.Actor, action domain.Action, branch string) bool
}

// SettingsProvider supplies runtime-tunable ledger settings.
type SettingsProvider interface {
	// ReadonlyDays is the age in days after which posted entries freeze.
	// Zero disables the rule.
	ReadonlyDays(ctx context.Context) (int, error)
}
