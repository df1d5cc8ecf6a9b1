package services

import (
	"github.com/goodsco/referidos_backend/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actor is the authenticated caller of an operation
type Actor struct {
	ID   primitive.ObjectID
	Role models.Role
}

// Authorizer decides whether an actor may run administrative operations
type Authorizer interface {
	CanAdminister(actor Actor) bool
}

// RoleAuthorizer grants administration to a fixed set of roles
type RoleAuthorizer struct {
	roles map[models.Role]bool
}

// NewRoleAuthorizer defaults to ADMIN when no roles are given
func NewRoleAuthorizer(roles ...models.Role) *RoleAuthorizer {
	if len(roles) == 0 {
		roles = []models.Role{models.RoleAdmin}
	}
	a := &RoleAuthorizer{roles: make(map[models.Role]bool, len(roles))}
	for _, r := range roles {
		a.roles[r] = true
	}
	return a
}

func (a *RoleAuthorizer) CanAdminister(actor Actor) bool {
	return !actor.ID.IsZero() && a.roles[actor.Role]
}

// Roles lists the administrative roles
func (a *RoleAuthorizer) Roles() []models.Role {
	out := make([]models.Role, 0, len(a.roles))
	for _, r := range []models.Role{models.RoleAdmin, models.RoleManager, models.RolePartner} {
		if a.roles[r] {
			out = append(out, r)
		}
	}
	return out
}

func requireAdmin(auth Authorizer, actor Actor) error {
	if auth == nil || !auth.CanAdminister(actor) {
		return ErrUnauthorized
	}
	return nil
}
