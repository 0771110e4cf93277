// Package access resolves who may do what to a swap entity.
package access

import (
	"alumnet/internal/models"

	"github.com/google/uuid"
)

// Actor is the authenticated caller of a swap operation.
type Actor struct {
	UserID      uuid.UUID
	Role        string
	Permissions []string
	Active      bool
}

func NewActor(userID uuid.UUID, role string) Actor {
	return Actor{
		UserID:      userID,
		Role:        role,
		Permissions: models.GetDefaultPermissions(role),
		Active:      true,
	}
}

func (a Actor) HasRole(role string) bool {
	return a.Role == role
}

func (a Actor) IsActive() bool {
	return a.Active && a.UserID != uuid.Nil
}

func (a Actor) IsModerator() bool {
	return a.Role == models.RoleModerator || a.Role == models.RoleAdmin
}

func (a Actor) HasPermission(permission string) bool {
	for _, p := range a.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Resource is any entity with a set of users who hold a stake in it.
type Resource interface {
	Stakeholders() []uuid.UUID
}

type Action string

const (
	ActionOfferUpdate    Action = "offer:update"
	ActionOfferSetStatus Action = "offer:set_status"
	ActionOfferDelete    Action = "offer:delete"

	ActionRequestView      Action = "request:view"
	ActionRequestRespond   Action = "request:respond"
	ActionRequestNegotiate Action = "request:negotiate"
	ActionRequestMessage   Action = "request:message"
	ActionRequestProgress  Action = "request:progress"
	ActionRequestCancel    Action = "request:cancel"
	ActionRequestDispute   Action = "request:dispute"

	ActionTransactionView     Action = "transaction:view"
	ActionTransactionUpdate   Action = "transaction:update"
	ActionTransactionFeedback Action = "transaction:feedback"
	ActionTransactionDispute  Action = "transaction:dispute"

	ActionDisputeResolve Action = "dispute:resolve"
)

// Policy is the capability check every swap service consults.
type Policy interface {
	CanPerform(actor Actor, action Action, resource Resource) bool
}

type rule struct {
	permission string
	// stakeholder requires the actor to be one of the resource's stakeholders
	stakeholder bool
	// moderation is the permission that overrides the stakeholder requirement
	moderation string
}

var rules = map[Action]rule{
	ActionOfferUpdate:    {permission: models.PermissionOfferWrite, stakeholder: true, moderation: models.PermissionModerateOffers},
	ActionOfferSetStatus: {permission: models.PermissionOfferWrite, stakeholder: true, moderation: models.PermissionModerateOffers},
	ActionOfferDelete:    {permission: models.PermissionOfferWrite, stakeholder: true, moderation: models.PermissionModerateOffers},

	ActionRequestView:      {permission: models.PermissionSwapRead, stakeholder: true, moderation: models.PermissionModerateDisputes},
	ActionRequestRespond:   {permission: models.PermissionSwapWrite, stakeholder: true},
	ActionRequestNegotiate: {permission: models.PermissionSwapWrite, stakeholder: true},
	ActionRequestMessage:   {permission: models.PermissionSwapWrite, stakeholder: true},
	ActionRequestProgress:  {permission: models.PermissionSwapWrite, stakeholder: true},
	ActionRequestCancel:    {permission: models.PermissionSwapWrite, stakeholder: true},
	ActionRequestDispute:   {permission: models.PermissionSwapWrite, stakeholder: true},

	ActionTransactionView:     {permission: models.PermissionSwapRead, stakeholder: true, moderation: models.PermissionModerateDisputes},
	ActionTransactionUpdate:   {permission: models.PermissionSwapWrite, stakeholder: true},
	ActionTransactionFeedback: {permission: models.PermissionFeedbackWrite, stakeholder: true},
	ActionTransactionDispute:  {permission: models.PermissionSwapWrite, stakeholder: true},

	ActionDisputeResolve: {permission: models.PermissionModerateDisputes},
}

// RolePolicy grants actions from role permissions plus stakeholder membership.
type RolePolicy struct{}

func NewRolePolicy() *RolePolicy { return &RolePolicy{} }

func (p *RolePolicy) CanPerform(actor Actor, action Action, resource Resource) bool {
	if !actor.IsActive() {
		return false
	}
	r, ok := rules[action]
	if !ok {
		return false
	}
	if r.moderation != "" && actor.HasPermission(r.moderation) {
		return true
	}
	if !actor.HasPermission(r.permission) {
		return false
	}
	if !r.stakeholder {
		return true
	}
	if resource == nil {
		return false
	}
	for _, id := range resource.Stakeholders() {
		if id == actor.UserID {
			return true
		}
	}
	return false
}

// OrDefault lets services accept a nil policy.
func OrDefault(p Policy) Policy {
	if p == nil {
		return NewRolePolicy()
	}
	return p
}
