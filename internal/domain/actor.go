package domain

import "context"

// Role represents an actor's access level
type Role string

const (
	// RoleAdmin may perform every action on every branch
	RoleAdmin Role = "admin"

	// RoleAccountant may create, post, reverse and edit entries
	RoleAccountant Role = "accountant"

	// RoleClerk may create and edit drafts only
	RoleClerk Role = "clerk"

	// RoleViewer can only read
	RoleViewer Role = "viewer"
)

var validRoles = map[Role]bool{
	RoleAdmin:      true,
	RoleAccountant: true,
	RoleClerk:      true,
	RoleViewer:     true,
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// Action is a permission checked by the authorization oracle.
type Action string

const (
	ActionJournalCreate  Action = "journal.create"
	ActionJournalPost    Action = "journal.post"
	ActionJournalReverse Action = "journal.reverse"
	ActionJournalEdit    Action = "journal.edit"
	ActionJournalDelete  Action = "journal.delete"
	ActionAccountsManage Action = "accounts.manage"
	ActionPeriodsManage  Action = "periods.manage"
)

// Actor is the caller on whose behalf a mutation runs.
type Actor struct {
	ID       string
	Role     Role
	Branches []string // empty means every branch
}

// SystemActor is used when no caller identity is attached to the context.
var SystemActor = Actor{ID: "system", Role: RoleAdmin}

type actorKey struct{}

// WithActor attaches actor to ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor attached to ctx.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// CoversBranch reports whether the actor may act on branch.
func (a Actor) CoversBranch(branch string) bool {
	if len(a.Branches) == 0 || branch == "" {
		return true
	}
	for _, b := range a.Branches {
		if b == branch {
			return true
		}
	}
	return false
}

type requestIDKey struct{}

// WithRequestID attaches the inbound request id to ctx for audit records.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id attached to ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
