package controller

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v74"
	stripesub "github.com/stripe/stripe-go/v74/subscription"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"appointmenthub_backend/internal/middleware"
	"appointmenthub_backend/internal/model"
	"appointmenthub_backend/pkg/database"
	"appointmenthub_backend/pkg/policy"
)

type PlanInput struct {
	Name          string          `json:"name" validate:"required"`
	Description   string          `json:"description"`
	PriceAmount   float64         `json:"price_amount" validate:"required,min=0"`
	Currency      string          `json:"currency"`
	Interval      string          `json:"interval" validate:"required"`
	Features      json.RawMessage `json:"features"`
	StripePriceID string          `json:"stripe_price_id"`
	IsActive      *bool           `json:"is_active"`
}

type SubscribeInput struct {
	PlanID string `json:"plan_id" validate:"required"`
}

// ListPlans is public: active plans for the pricing page.
func ListPlans(c *fiber.Ctx) error {
	var plans []model.SubscriptionPlan
	err := database.FromCtx(c).
		Where("is_active = ?", true).
		Order("price_amount ASC").
		Find(&plans).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load plans",
		})
	}

	return c.JSON(fiber.Map{
		"plans": plans,
	})
}

// CreatePlan is admin only.
func CreatePlan(c *fiber.Ctx) error {
	input := new(PlanInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if input.Name == "" || input.PriceAmount < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name and price_amount are required",
		})
	}

	interval, ok := model.ParsePlanInterval(input.Interval)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "interval must be month or year",
		})
	}

	currency := input.Currency
	if currency == "" {
		currency = "eur"
	}

	plan := model.SubscriptionPlan{
		Name:          input.Name,
		Description:   input.Description,
		PriceAmount:   input.PriceAmount,
		Currency:      currency,
		Interval:      interval,
		StripePriceID: input.StripePriceID,
		IsActive:      true,
	}
	if input.Features != nil {
		plan.Features = datatypes.JSON(input.Features)
	}
	if input.IsActive != nil {
		plan.IsActive = *input.IsActive
	}

	if err := database.FromCtx(c).Create(&plan).Error; err != nil {
		if err == gorm.ErrDuplicatedKey {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Plan name already exists",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create plan",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Plan created",
		"plan":    plan,
	})
}

// UpdatePlan is admin only.
func UpdatePlan(c *fiber.Ctx) error {
	db := database.FromCtx(c)

	var plan model.SubscriptionPlan
	if err := db.First(&plan, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Plan not found",
		})
	}

	input := new(PlanInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	if input.Name != "" {
		plan.Name = input.Name
	}
	if input.Description != "" {
		plan.Description = input.Description
	}
	if input.PriceAmount > 0 {
		plan.PriceAmount = input.PriceAmount
	}
	if input.Currency != "" {
		plan.Currency = input.Currency
	}
	if input.Interval != "" {
		interval, ok := model.ParsePlanInterval(input.Interval)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "interval must be month or year",
			})
		}
		plan.Interval = interval
	}
	if input.Features != nil {
		plan.Features = datatypes.JSON(input.Features)
	}
	if input.StripePriceID != "" {
		plan.StripePriceID = input.StripePriceID
	}
	if input.IsActive != nil {
		plan.IsActive = *input.IsActive
	}

	if err := db.Save(&plan).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update plan",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Plan updated",
		"plan":    plan,
	})
}

// DeletePlan deactivates a plan instead of removing rows that subscriptions
// still reference.
func DeletePlan(c *fiber.Ctx) error {
	db := database.FromCtx(c)

	var plan model.SubscriptionPlan
	if err := db.First(&plan, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Plan not found",
		})
	}

	plan.IsActive = false
	if err := db.Save(&plan).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete plan",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Plan deactivated",
	})
}

func subscriptionScope(db *gorm.DB, c *fiber.Ctx) *gorm.DB {
	claims := middleware.CurrentUser(c)
	if claims.Role == model.RoleAdmin {
		return db
	}
	return db.Where("store_id = ?", claims.StoreID)
}

func ListSubscriptions(c *fiber.Ctx) error {
	var subscriptions []model.Subscription
	err := subscriptionScope(database.FromCtx(c), c).
		Preload("Plan").
		Order("created_at DESC").
		Find(&subscriptions).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load subscriptions",
		})
	}

	return c.JSON(fiber.Map{
		"subscriptions": subscriptions,
	})
}

func ListStoreSubscriptions(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	storeID := c.Params("store_id")

	if !policy.CanAccessStore(claims.Role, claims.StoreID, storeID) || claims.Role == model.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	var subscriptions []model.Subscription
	err := database.FromCtx(c).
		Preload("Plan").
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Find(&subscriptions).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load subscriptions",
		})
	}

	return c.JSON(fiber.Map{
		"subscriptions": subscriptions,
	})
}

func GetSubscription(c *fiber.Ctx) error {
	var subscription model.Subscription
	err := subscriptionScope(database.FromCtx(c), c).
		Preload("Plan").
		First(&subscription, "subscriptions.id = ?", c.Params("id")).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Subscription not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load subscription",
		})
	}

	return c.JSON(fiber.Map{
		"subscription": subscription,
	})
}

// MySubscription returns the manager's current store subscription.
func MySubscription(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	if claims.StoreID == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No store assigned",
		})
	}

	var subscription model.Subscription
	err := database.FromCtx(c).
		Preload("Plan").
		Where("store_id = ? AND status IN ?", claims.StoreID,
			[]model.SubscriptionStatus{model.SubscriptionActive, model.SubscriptionTrialing}).
		Order("created_at DESC").
		First(&subscription).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "No active subscription",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load subscription",
		})
	}

	return c.JSON(fiber.Map{
		"subscription": subscription,
	})
}

// Subscribe starts a plan subscription for a store. A store can only carry
// one running subscription at a time.
func Subscribe(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	storeID := c.Params("store_id")

	if !policy.CanAccessStore(claims.Role, claims.StoreID, storeID) || claims.Role == model.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	input := new(SubscribeInput)
	if err := c.BodyParser(input); err != nil || input.PlanID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "plan_id is required",
		})
	}

	db := database.FromCtx(c)

	var store model.Store
	if err := db.First(&store, "id = ?", storeID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Store not found",
		})
	}

	var plan model.SubscriptionPlan
	if err := db.Where("id = ? AND is_active = ?", input.PlanID, true).First(&plan).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Plan not found",
		})
	}

	var running int64
	err := db.Model(&model.Subscription{}).
		Where("store_id = ? AND status IN ?", storeID,
			[]model.SubscriptionStatus{model.SubscriptionActive, model.SubscriptionTrialing}).
		Count(&running).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not check subscriptions",
		})
	}
	if running > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Store already has an active subscription",
		})
	}

	subscription := model.Subscription{
		StoreID:   storeID,
		PlanID:    plan.ID,
		StartDate: time.Now(),
		Status:    model.SubscriptionActive,
	}
	if err := db.Create(&subscription).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create subscription",
		})
	}

	if err := db.Model(&store).Update("current_subscription_plan_id", plan.ID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update store plan",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":      "Subscription created",
		"subscription": subscription,
	})
}

// CancelSubscription cancels a running subscription locally and on Stripe.
func CancelSubscription(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	db := database.FromCtx(c)

	var subscription model.Subscription
	if err := db.First(&subscription, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Subscription not found",
		})
	}

	if !policy.CanAccessStore(claims.Role, claims.StoreID, subscription.StoreID) ||
		claims.Role == model.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	if !subscription.CanBeCancelled() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Subscription is not active",
		})
	}

	if subscription.StripeSubscriptionID != "" {
		stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
		if _, err := stripesub.Cancel(subscription.StripeSubscriptionID, nil); err != nil {
			log.Printf("Stripe subscription cancel error: %v", err)
		}
	}

	subscription.Cancel()
	if err := db.Save(&subscription).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not cancel subscription",
		})
	}

	err := db.Model(&model.Store{}).
		Where("id = ? AND current_subscription_plan_id = ?", subscription.StoreID, subscription.PlanID).
		Update("current_subscription_plan_id", nil).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update store plan",
		})
	}

	return c.JSON(fiber.Map{
		"message":      "Subscription cancelled",
		"subscription": subscription,
	})
}

type UpgradeInput struct {
	PlanID string `json:"plan_id" validate:"required"`
}

// UpgradeSubscription cancels the running subscription and starts a new one
// on the requested plan.
func UpgradeSubscription(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	db := database.FromCtx(c)

	var subscription model.Subscription
	if err := db.First(&subscription, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Subscription not found",
		})
	}

	if !policy.CanAccessStore(claims.Role, claims.StoreID, subscription.StoreID) ||
		claims.Role == model.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	if !subscription.IsCurrent() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Subscription is not active",
		})
	}

	input := new(UpgradeInput)
	if err := c.BodyParser(input); err != nil || input.PlanID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "plan_id is required",
		})
	}
	if input.PlanID == subscription.PlanID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Store is already on this plan",
		})
	}

	var plan model.SubscriptionPlan
	if err := db.Where("id = ? AND is_active = ?", input.PlanID, true).First(&plan).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Plan not found",
		})
	}

	if subscription.StripeSubscriptionID != "" {
		stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
		if _, err := stripesub.Cancel(subscription.StripeSubscriptionID, nil); err != nil {
			log.Printf("Stripe subscription cancel error: %v", err)
		}
	}

	subscription.Cancel()
	if err := db.Save(&subscription).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not cancel current subscription",
		})
	}

	replacement := model.Subscription{
		StoreID:   subscription.StoreID,
		PlanID:    plan.ID,
		StartDate: time.Now(),
		Status:    model.SubscriptionActive,
	}
	if err := db.Create(&replacement).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create subscription",
		})
	}

	err := db.Model(&model.Store{}).
		Where("id = ?", subscription.StoreID).
		Update("current_subscription_plan_id", plan.ID).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update store plan",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":      "Subscription upgraded",
		"subscription": replacement,
	})
}
