package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"appointmenthub_backend/internal/model"
)

func TestAdminIsUnrestricted(t *testing.T) {
	resources := []Resource{
		ResourceStore, ResourceService, ResourceBooking, ResourcePayment,
		ResourcePlan, ResourceSubscription, ResourceNotification, ResourceUser,
		ResourceCalendar, ResourceDashboard,
	}
	actions := []Action{ActionList, ActionRead, ActionCreate, ActionUpdate, ActionDelete}

	for _, r := range resources {
		for _, a := range actions {
			assert.True(t, Can(model.RoleAdmin, a, r), "admin should be allowed %s on %s", a, r)
		}
	}
}

func TestManagerPermissions(t *testing.T) {
	assert.True(t, Can(model.RoleStoreManager, ActionCreate, ResourceService))
	assert.True(t, Can(model.RoleStoreManager, ActionUpdate, ResourceStore))
	assert.True(t, Can(model.RoleStoreManager, ActionCreate, ResourceNotification))

	// Managers never create stores or users, and never delete bookings
	assert.False(t, Can(model.RoleStoreManager, ActionCreate, ResourceStore))
	assert.False(t, Can(model.RoleStoreManager, ActionDelete, ResourceStore))
	assert.False(t, Can(model.RoleStoreManager, ActionCreate, ResourceUser))
	assert.False(t, Can(model.RoleStoreManager, ActionDelete, ResourceBooking))
	assert.False(t, Can(model.RoleStoreManager, ActionCreate, ResourcePlan))
}

func TestClientPermissions(t *testing.T) {
	assert.True(t, Can(model.RoleClient, ActionList, ResourceStore))
	assert.True(t, Can(model.RoleClient, ActionCreate, ResourceBooking))
	assert.True(t, Can(model.RoleClient, ActionRead, ResourcePlan))

	assert.False(t, Can(model.RoleClient, ActionCreate, ResourceService))
	assert.False(t, Can(model.RoleClient, ActionCreate, ResourceNotification))
	assert.False(t, Can(model.RoleClient, ActionList, ResourceSubscription))
	assert.False(t, Can(model.RoleClient, ActionDelete, ResourceStore))
}

func TestUnknownRoleIsDenied(t *testing.T) {
	assert.False(t, Can(model.UserRole("guest"), ActionRead, ResourceStore))
}

func TestCanAccessStore(t *testing.T) {
	assert.True(t, CanAccessStore(model.RoleAdmin, "", "store-1"))
	assert.True(t, CanAccessStore(model.RoleStoreManager, "store-1", "store-1"))
	assert.False(t, CanAccessStore(model.RoleStoreManager, "store-1", "store-2"))
	assert.False(t, CanAccessStore(model.RoleStoreManager, "", "store-1"))
	// Client store access is decided by record ownership, not tenancy
	assert.True(t, CanAccessStore(model.RoleClient, "", "store-1"))
}

func TestOwnsRecord(t *testing.T) {
	assert.True(t, OwnsRecord(model.RoleClient, "u1", "u1"))
	assert.False(t, OwnsRecord(model.RoleClient, "u1", "u2"))
	assert.True(t, OwnsRecord(model.RoleAdmin, "u1", "u2"))
}
