package controller

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appointmenthub_backend/internal/model"
)

func TestCancelSubscriptionClearsStorePlan(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t)

	manager := createTestUser(t, db, model.RoleStoreManager, "")
	store := createTestStore(t, db, manager)

	plan := &model.SubscriptionPlan{
		Name:        "Starter " + randomSuffix(),
		PriceAmount: 19,
		Currency:    "eur",
		Interval:    model.PlanIntervalMonth,
		IsActive:    true,
	}
	require.NoError(t, db.Create(plan).Error)

	subscription := &model.Subscription{
		StoreID:   store.ID,
		PlanID:    plan.ID,
		StartDate: time.Now(),
		Status:    model.SubscriptionActive,
	}
	require.NoError(t, db.Create(subscription).Error)
	require.NoError(t, db.Model(store).Update("current_subscription_plan_id", plan.ID).Error)

	resp, err := app.Test(authedRequest(t, "POST", "/api/subscriptions/"+subscription.ID+"/cancel", nil, manager), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var reloaded model.Subscription
	require.NoError(t, db.First(&reloaded, "id = ?", subscription.ID).Error)
	assert.Equal(t, model.SubscriptionCancelled, reloaded.Status)

	var reloadedStore model.Store
	require.NoError(t, db.First(&reloadedStore, "id = ?", store.ID).Error)
	assert.Nil(t, reloadedStore.CurrentSubscriptionPlanID)

	// A cancelled subscription cannot be cancelled again
	resp, err = app.Test(authedRequest(t, "POST", "/api/subscriptions/"+subscription.ID+"/cancel", nil, manager), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}
