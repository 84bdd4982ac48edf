// pkg/cron/subscription_expiry.go
package cron

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"appointmenthub_backend/internal/model"
	"appointmenthub_backend/pkg/database"
)

func InitSubscriptionExpiryCron() {
	c := cron.New()

	// Every day at 00:30
	_, err := c.AddFunc("30 0 * * *", func() {
		expireSubscriptions()
	})

	if err != nil {
		log.Printf("Could not initialize subscription expiry cron: %v", err)
		return
	}

	c.Start()
	log.Printf("Subscription expiry cron initialized successfully")
}

func expireSubscriptions() {
	now := time.Now()

	var expired []model.Subscription
	err := database.DB.
		Where("status = ? AND end_date IS NOT NULL AND end_date < ?", model.SubscriptionActive, now).
		Find(&expired).Error
	if err != nil {
		log.Printf("Error fetching expired subscriptions: %v", err)
		return
	}

	for _, sub := range expired {
		sub.Status = model.SubscriptionEnded
		if err := database.DB.Save(&sub).Error; err != nil {
			log.Printf("Error ending subscription %s: %v", sub.ID, err)
			continue
		}

		// Clear the store's current plan when its subscription ends
		err := database.DB.Model(&model.Store{}).
			Where("id = ? AND current_subscription_plan_id = ?", sub.StoreID, sub.PlanID).
			Update("current_subscription_plan_id", nil).Error
		if err != nil {
			log.Printf("Error clearing store plan for store %s: %v", sub.StoreID, err)
		}
	}

	if len(expired) > 0 {
		log.Printf("Ended %d expired subscriptions", len(expired))
	}
}
