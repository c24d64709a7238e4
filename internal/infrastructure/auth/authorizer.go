package auth

import (
	"context"

	"github.com/iho/gojournal/internal/domain"
)

var rolePermissions = map[domain.Role]map[domain.Action]bool{
	domain.RoleAccountant: {
		domain.ActionJournalCreate:  true,
		domain.ActionJournalPost:    true,
		domain.ActionJournalReverse: true,
		domain.ActionJournalEdit:    true,
		domain.ActionJournalDelete:  true,
		domain.ActionPeriodsManage:  true,
	},
	domain.RoleClerk: {
		domain.ActionJournalCreate: true,
		domain.ActionJournalEdit:   true,
		domain.ActionJournalDelete: true,
	},
}

// RoleAuthorizer grants actions by role and restricts branch-scoped actions
// to the actor's branches. Admins may do everything everywhere.
type RoleAuthorizer struct{}

// NewRoleAuthorizer creates a RoleAuthorizer.
func NewRoleAuthorizer() *RoleAuthorizer {
	return &RoleAuthorizer{}
}

// CanPerform implements usecase.Authorizer.
func (a *RoleAuthorizer) CanPerform(_ context.Context, actor domain.Actor, action domain.Action, branch string) bool {
	if actor.Role == domain.RoleAdmin {
		return true
	}
	if !rolePermissions[actor.Role][action] {
		return false
	}
	return actor.CoversBranch(branch)
}
