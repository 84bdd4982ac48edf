package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment Statuses
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch PaymentStatus(s) {
	case PaymentPending, PaymentSucceeded, PaymentFailed, PaymentRefunded:
		return PaymentStatus(s), true
	}
	return "", false
}

type Payment struct {
	ID string `json:"id" gorm:"type:varchar(36);primaryKey"`

	// Multi-tenancy
	StoreID string `json:"store_id" gorm:"type:varchar(36);not null;index"`
	UserID  string `json:"user_id" gorm:"type:varchar(36);not null;index"`

	// A payment belongs to either a booking or a subscription, never both
	BookingID      *string `json:"booking_id" gorm:"type:varchar(36);index"`
	SubscriptionID *string `json:"subscription_id" gorm:"type:varchar(36);index"`

	StripeChargeID        string `json:"stripe_charge_id" gorm:"size:255"`
	StripePaymentIntentID string `json:"stripe_payment_intent_id" gorm:"size:255;uniqueIndex"`

	Amount        float64       `json:"amount" gorm:"type:decimal(10,2);not null"`
	Currency      string        `json:"currency" gorm:"size:3;default:eur;not null"`
	Status        PaymentStatus `json:"status" gorm:"size:20;not null;default:pending;index"`
	PaymentMethod string        `json:"payment_method" gorm:"size:50"`
	PaymentDate   *time.Time    `json:"payment_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Store        *Store        `json:"-" gorm:"foreignKey:StoreID"`
	User         *User         `json:"-" gorm:"foreignKey:UserID"`
	Booking      *Booking      `json:"booking,omitempty" gorm:"foreignKey:BookingID"`
	Subscription *Subscription `json:"subscription,omitempty" gorm:"foreignKey:SubscriptionID"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// ApplyStripeEvent maps a Stripe payment event type onto the local payment
// status. Returns false for event types that do not affect payments.
func (p *Payment) ApplyStripeEvent(eventType string, chargeID string) bool {
	switch eventType {
	case "payment_intent.succeeded":
		p.Status = PaymentSucceeded
		if chargeID != "" {
			p.StripeChargeID = chargeID
		}
		now := time.Now()
		p.PaymentDate = &now
		return true
	case "payment_intent.payment_failed":
		p.Status = PaymentFailed
		return true
	case "charge.dispute.created":
		p.Status = PaymentRefunded
		return true
	}
	return false
}
