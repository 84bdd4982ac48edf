package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Price Types
type PriceType string

const (
	PriceTypeFixed     PriceType = "fixed"
	PriceTypePerHour   PriceType = "per_hour"
	PriceTypePerPerson PriceType = "per_person"
)

func ParsePriceType(s string) (PriceType, bool) {
	switch PriceType(s) {
	case PriceTypeFixed, PriceTypePerHour, PriceTypePerPerson:
		return PriceType(s), true
	}
	return "", false
}

// Advance Payment Types
type AdvancePaymentType string

const (
	AdvancePaymentFixed   AdvancePaymentType = "fixed"
	AdvancePaymentPercent AdvancePaymentType = "percent"
)

func ParseAdvancePaymentType(s string) (AdvancePaymentType, bool) {
	switch AdvancePaymentType(s) {
	case AdvancePaymentFixed, AdvancePaymentPercent:
		return AdvancePaymentType(s), true
	}
	return "", false
}

// Recurring Intervals
type RecurringInterval string

const (
	RecurringDay   RecurringInterval = "day"
	RecurringWeek  RecurringInterval = "week"
	RecurringMonth RecurringInterval = "month"
	RecurringYear  RecurringInterval = "year"
)

func ParseRecurringInterval(s string) (RecurringInterval, bool) {
	switch RecurringInterval(s) {
	case RecurringDay, RecurringWeek, RecurringMonth, RecurringYear:
		return RecurringInterval(s), true
	}
	return "", false
}

type Service struct {
	ID string `json:"id" gorm:"type:varchar(36);primaryKey"`

	// Multi-tenancy
	StoreID string `json:"store_id" gorm:"type:varchar(36);not null;index"`

	Name            string `json:"name" gorm:"size:255;not null"`
	Description     string `json:"description" gorm:"type:text"`
	DurationMinutes int    `json:"duration_minutes" gorm:"not null"`
	MinPersons      int    `json:"min_persons" gorm:"default:1;not null"`
	MaxPersons      int    `json:"max_persons" gorm:"default:1;not null"`

	// Pricing
	PriceType       PriceType `json:"price_type" gorm:"size:20;not null"`
	BasePriceAmount float64   `json:"base_price_amount" gorm:"type:decimal(10,2);not null"`

	// Payment settings
	PaymentEnabled       bool               `json:"payment_enabled" gorm:"default:false;not null"`
	AdvancePaymentType   AdvancePaymentType `json:"advance_payment_type" gorm:"size:20"`
	AdvancePaymentAmount float64            `json:"advance_payment_amount" gorm:"type:decimal(10,2)"`

	// Recurring settings
	IsRecurring       bool              `json:"is_recurring" gorm:"default:false;not null"`
	RecurringInterval RecurringInterval `json:"recurring_interval" gorm:"size:20"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Store    *Store    `json:"-" gorm:"foreignKey:StoreID"`
	Bookings []Booking `json:"-" gorm:"foreignKey:ServiceID"`
}

func (s *Service) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// CalculateTotalPrice derives the booking total from the price type.
// durationHours <= 0 falls back to the configured service duration.
func (s *Service) CalculateTotalPrice(numPersons int, durationHours float64) float64 {
	switch s.PriceType {
	case PriceTypeFixed:
		return s.BasePriceAmount
	case PriceTypePerPerson:
		return s.BasePriceAmount * float64(numPersons)
	case PriceTypePerHour:
		hours := durationHours
		if hours <= 0 {
			hours = float64(s.DurationMinutes) / 60.0
		}
		return s.BasePriceAmount * hours
	}
	return s.BasePriceAmount
}

// CalculateAdvancePayment derives the up-front amount from the service's
// advance payment rule. Returns 0 when payment is disabled and never more
// than the total, whatever the configured amount.
func (s *Service) CalculateAdvancePayment(totalAmount float64) float64 {
	if !s.PaymentEnabled || s.AdvancePaymentType == "" {
		return 0
	}

	var advance float64
	switch s.AdvancePaymentType {
	case AdvancePaymentFixed:
		advance = s.AdvancePaymentAmount
	case AdvancePaymentPercent:
		advance = totalAmount * (s.AdvancePaymentAmount / 100.0)
	}

	if advance > totalAmount {
		return totalAmount
	}
	return advance
}
