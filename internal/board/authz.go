package board

import (
	"github.com/sujalbistaa/raisehand/internal/models"
	"github.com/sujalbistaa/raisehand/internal/ratelimit"
)

// Action is something a connection asks the board to do.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpvote Action = "upvote"
	ActionAnswer Action = "answer"
	ActionPin    Action = "pin"
	ActionDelete Action = "delete"
)

// actions maps inbound types to the action and the rate class it draws from.
var actions = map[string]struct {
	action Action
	class  ratelimit.Class
}{
	TypeCreate: {ActionCreate, ratelimit.Questions},
	TypeUpvote: {ActionUpvote, ratelimit.Upvotes},
	TypeAnswer: {ActionAnswer, ratelimit.Teacher},
	TypePin:    {ActionPin, ratelimit.Teacher},
	TypeDelete: {ActionDelete, ratelimit.Teacher},
}

// Authorizer decides whether a role may perform an action. Roles are
// self-declared, so this is a gate against honest mistakes, not an attacker.
type Authorizer interface {
	Allowed(role models.Role, action Action) bool
}

// RoleAuthorizer is an allow-list of actions per role.
type RoleAuthorizer map[models.Role][]Action

// DefaultAuthorizer lets everyone ask and vote and lets teachers triage.
func DefaultAuthorizer() RoleAuthorizer {
	return RoleAuthorizer{
		models.RoleStudent: {ActionCreate, ActionUpvote},
		models.RoleTeacher: {ActionCreate, ActionUpvote, ActionAnswer, ActionPin, ActionDelete},
	}
}

func (a RoleAuthorizer) Allowed(role models.Role, action Action) bool {
	for _, allowed := range a[role] {
		if allowed == action {
			return true
		}
	}
	return false
}
