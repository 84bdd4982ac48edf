// Package policy holds the access control table: every (role, action,
// resource) decision the API makes is listed here instead of being scattered
// through handlers. Row-level ownership (own store, own records) is checked
// separately with the scope helpers below.
package policy

import (
	"appointmenthub_backend/internal/model"
)

type Action string

const (
	ActionList   Action = "list"
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

type Resource string

const (
	ResourceStore        Resource = "store"
	ResourceService      Resource = "service"
	ResourceBooking      Resource = "booking"
	ResourcePayment      Resource = "payment"
	ResourcePlan         Resource = "subscription_plan"
	ResourceSubscription Resource = "subscription"
	ResourceNotification Resource = "notification"
	ResourceUser         Resource = "user"
	ResourceCalendar     Resource = "calendar"
	ResourceDashboard    Resource = "dashboard"
)

type rule map[Resource][]Action

var all = []Action{ActionList, ActionRead, ActionCreate, ActionUpdate, ActionDelete}

// table maps role -> resource -> permitted actions. Admin is handled in Can
// and never consulted here. Resources absent from a role's rule are denied.
var table = map[model.UserRole]rule{
	model.RoleStoreManager: {
		ResourceStore:        {ActionRead, ActionUpdate},
		ResourceService:      all,
		ResourceBooking:      {ActionList, ActionRead, ActionUpdate},
		ResourcePayment:      {ActionList, ActionRead, ActionCreate, ActionUpdate},
		ResourcePlan:         {ActionList, ActionRead},
		ResourceSubscription: {ActionList, ActionRead, ActionCreate, ActionUpdate},
		ResourceNotification: {ActionList, ActionRead, ActionCreate},
		ResourceUser:         {ActionList, ActionRead},
		ResourceCalendar:     all,
		ResourceDashboard:    {ActionRead},
	},
	model.RoleClient: {
		ResourceStore:        {ActionList, ActionRead},
		ResourceService:      {ActionList, ActionRead},
		ResourceBooking:      {ActionList, ActionRead, ActionCreate, ActionUpdate},
		ResourcePayment:      {ActionList, ActionRead, ActionCreate},
		ResourcePlan:         {ActionList, ActionRead},
		ResourceNotification: {ActionList, ActionRead},
		ResourceUser:         {ActionRead, ActionUpdate, ActionDelete},
		ResourceCalendar:     {ActionList, ActionRead},
		ResourceDashboard:    {ActionRead},
	},
}

// Can reports whether the role may perform action on resource.
func Can(role model.UserRole, action Action, resource Resource) bool {
	if role == model.RoleAdmin {
		return true
	}
	actions, ok := table[role][resource]
	if !ok {
		return false
	}
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

// CanAccessStore reports whether the role may touch rows belonging to storeID.
// Admins see every store; managers only their own. Clients pass here because
// their ownership is on the record (client user id), not the store.
func CanAccessStore(role model.UserRole, ownStoreID, storeID string) bool {
	switch role {
	case model.RoleAdmin:
		return true
	case model.RoleStoreManager:
		return ownStoreID != "" && ownStoreID == storeID
	case model.RoleClient:
		return true
	}
	return false
}

// OwnsRecord reports whether a client-owned row belongs to the caller.
func OwnsRecord(role model.UserRole, callerUserID, recordUserID string) bool {
	if role == model.RoleAdmin {
		return true
	}
	return callerUserID == recordUserID
}
