package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Plan Intervals
type PlanInterval string

const (
	PlanIntervalMonth PlanInterval = "month"
	PlanIntervalYear  PlanInterval = "year"
)

func ParsePlanInterval(s string) (PlanInterval, bool) {
	switch PlanInterval(s) {
	case PlanIntervalMonth, PlanIntervalYear:
		return PlanInterval(s), true
	}
	return "", false
}

// Subscription Statuses
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionTrialing  SubscriptionStatus = "trialing"
	SubscriptionEnded     SubscriptionStatus = "ended"
)

func ParseSubscriptionStatus(s string) (SubscriptionStatus, bool) {
	switch SubscriptionStatus(s) {
	case SubscriptionActive, SubscriptionCancelled, SubscriptionPastDue, SubscriptionTrialing, SubscriptionEnded:
		return SubscriptionStatus(s), true
	}
	return "", false
}

type SubscriptionPlan struct {
	ID          string         `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name        string         `json:"name" gorm:"size:255;uniqueIndex;not null"`
	Description string         `json:"description" gorm:"type:text"`
	PriceAmount float64        `json:"price_amount" gorm:"type:decimal(10,2);not null"`
	Currency    string         `json:"currency" gorm:"size:3;default:eur;not null"`
	Interval    PlanInterval   `json:"interval" gorm:"size:10;not null;default:month"`
	Features    datatypes.JSON `json:"features"`

	StripePriceID string `json:"stripe_price_id" gorm:"size:255"`
	IsActive      bool   `json:"is_active" gorm:"default:true;not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Subscriptions []Subscription `json:"-" gorm:"foreignKey:PlanID"`
}

func (p *SubscriptionPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// FeatureList returns the plan feature strings stored in the JSON column.
func (p *SubscriptionPlan) FeatureList() []string {
	var features []string
	if len(p.Features) == 0 {
		return features
	}
	if err := json.Unmarshal(p.Features, &features); err != nil {
		return nil
	}
	return features
}

func (p *SubscriptionPlan) SetFeatures(features []string) error {
	raw, err := json.Marshal(features)
	if err != nil {
		return err
	}
	p.Features = raw
	return nil
}

type Subscription struct {
	ID string `json:"id" gorm:"type:varchar(36);primaryKey"`

	// Multi-tenancy
	StoreID string `json:"store_id" gorm:"type:varchar(36);not null;index"`
	PlanID  string `json:"plan_id" gorm:"type:varchar(36);not null;index"`

	StartDate time.Time  `json:"start_date" gorm:"not null"`
	EndDate   *time.Time `json:"end_date"`

	Status               SubscriptionStatus `json:"status" gorm:"size:20;not null;default:active;index"`
	StripeSubscriptionID string             `json:"stripe_subscription_id" gorm:"size:255;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Store *Store            `json:"-" gorm:"foreignKey:StoreID"`
	Plan  *SubscriptionPlan `json:"plan,omitempty" gorm:"foreignKey:PlanID"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// IsCurrent reports whether the subscription still grants access.
func (s *Subscription) IsCurrent() bool {
	return s.Status == SubscriptionActive || s.Status == SubscriptionTrialing
}

// CanBeCancelled mirrors IsCurrent: only running subscriptions can be cancelled.
func (s *Subscription) CanBeCancelled() bool {
	return s.IsCurrent()
}

// Cancel marks the subscription cancelled and records the end date.
func (s *Subscription) Cancel() {
	now := time.Now()
	s.Status = SubscriptionCancelled
	s.EndDate = &now
}

// ApplyStripeEvent maps a Stripe subscription event onto the local status.
// stripeStatus is the subscription status field from the event payload.
// Returns false for event types that do not affect subscriptions.
func (s *Subscription) ApplyStripeEvent(eventType, stripeStatus string) bool {
	switch eventType {
	case "customer.subscription.created":
		s.Status = SubscriptionActive
		return true
	case "customer.subscription.updated":
		switch stripeStatus {
		case "active", "trialing":
			s.Status = SubscriptionActive
		case "past_due", "unpaid":
			s.Status = SubscriptionPastDue
		case "canceled":
			s.Cancel()
		}
		return true
	case "customer.subscription.deleted":
		now := time.Now()
		s.Status = SubscriptionEnded
		s.EndDate = &now
		return true
	}
	return false
}
