package seed

import (
	"log"

	"gorm.io/gorm"

	"appointmenthub_backend/internal/model"
)

type planSeed struct {
	name        string
	description string
	price       float64
	interval    model.PlanInterval
	features    []string
}

var defaultPlans = []planSeed{
	{
		name:        "Starter",
		description: "For single-chair shops getting started with online bookings",
		price:       19.00,
		interval:    model.PlanIntervalMonth,
		features:    []string{"Online booking page", "Up to 3 services", "Email notifications"},
	},
	{
		name:        "Professional",
		description: "Full toolkit for growing stores",
		price:       49.00,
		interval:    model.PlanIntervalMonth,
		features:    []string{"Unlimited services", "SMS notifications", "Online payments", "Calendly sync"},
	},
	{
		name:        "Business",
		description: "Everything in Professional, billed yearly",
		price:       490.00,
		interval:    model.PlanIntervalYear,
		features:    []string{"Unlimited services", "SMS notifications", "Online payments", "Calendly sync", "Priority support"},
	},
}

// SeedPlans creates the default subscription plans if they do not exist yet.
func SeedPlans(db *gorm.DB) error {
	for _, p := range defaultPlans {
		plan := model.SubscriptionPlan{
			Name:        p.name,
			Description: p.description,
			PriceAmount: p.price,
			Currency:    "eur",
			Interval:    p.interval,
			IsActive:    true,
		}
		if err := plan.SetFeatures(p.features); err != nil {
			return err
		}

		if err := db.Where(model.SubscriptionPlan{Name: p.name}).
			Attrs(plan).
			FirstOrCreate(&model.SubscriptionPlan{}).Error; err != nil {
			return err
		}
	}

	log.Println("Subscription plans seeded")
	return nil
}

// SeedDemoAdmin creates a demo admin account for local development.
func SeedDemoAdmin(db *gorm.DB) error {
	admin := model.User{
		FirstName: "Demo",
		LastName:  "Admin",
		Email:     "admin@example.com",
		Role:      model.RoleAdmin,
	}
	if err := admin.SetPassword("admin1234"); err != nil {
		return err
	}

	if err := db.Where(model.User{Email: admin.Email}).
		Attrs(admin).
		FirstOrCreate(&model.User{}).Error; err != nil {
		return err
	}

	log.Println("Demo admin seeded (admin@example.com)")
	return nil
}
