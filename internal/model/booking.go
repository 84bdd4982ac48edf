package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Booking Statuses
type BookingStatus string

const (
	BookingPending     BookingStatus = "pending"
	BookingConfirmed   BookingStatus = "confirmed"
	BookingCancelled   BookingStatus = "cancelled"
	BookingCompleted   BookingStatus = "completed"
	BookingRescheduled BookingStatus = "rescheduled"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted, BookingRescheduled:
		return BookingStatus(s), true
	}
	return "", false
}

// Booking Payment Statuses
type BookingPaymentStatus string

const (
	BookingUnpaid   BookingPaymentStatus = "unpaid"
	BookingPartial  BookingPaymentStatus = "partial"
	BookingPaid     BookingPaymentStatus = "paid"
	BookingRefunded BookingPaymentStatus = "refunded"
)

func ParseBookingPaymentStatus(s string) (BookingPaymentStatus, bool) {
	switch BookingPaymentStatus(s) {
	case BookingUnpaid, BookingPartial, BookingPaid, BookingRefunded:
		return BookingPaymentStatus(s), true
	}
	return "", false
}

type Booking struct {
	ID string `json:"id" gorm:"type:varchar(36);primaryKey"`

	// Multi-tenancy
	StoreID      string `json:"store_id" gorm:"type:varchar(36);not null;index"`
	ClientUserID string `json:"client_user_id" gorm:"type:varchar(36);not null;index"`
	ServiceID    string `json:"service_id" gorm:"type:varchar(36);not null;index"`

	BookingDate     time.Time `json:"booking_date" gorm:"type:date;not null;index"`
	StartTime       string    `json:"start_time" gorm:"size:5;not null"` // HH:MM
	EndTime         string    `json:"end_time" gorm:"size:5;not null"`   // HH:MM
	NumberOfPersons int       `json:"number_of_persons" gorm:"default:1;not null"`

	Status BookingStatus `json:"status" gorm:"size:20;not null;default:pending;index"`

	// Amounts are frozen at creation from the service pricing rules
	TotalAmount          float64 `json:"total_amount" gorm:"type:decimal(10,2);not null"`
	AdvancePaymentAmount float64 `json:"advance_payment_amount" gorm:"type:decimal(10,2)"`

	PaymentStatus BookingPaymentStatus `json:"payment_status" gorm:"size:20;not null;default:unpaid"`

	Notes            string `json:"notes" gorm:"type:text"`
	CalendlyEventURI string `json:"calendly_event_uri" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Store   *Store   `json:"store,omitempty" gorm:"foreignKey:StoreID"`
	Client  *User    `json:"client,omitempty" gorm:"foreignKey:ClientUserID"`
	Service *Service `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// BookingDateTime combines the booking date with its start time.
func (b *Booking) BookingDateTime() time.Time {
	start, err := time.Parse("15:04", b.StartTime)
	if err != nil {
		return b.BookingDate
	}
	return time.Date(
		b.BookingDate.Year(), b.BookingDate.Month(), b.BookingDate.Day(),
		start.Hour(), start.Minute(), 0, 0, b.BookingDate.Location(),
	)
}

func (b *Booking) IsPast() bool {
	return b.BookingDateTime().Before(time.Now())
}

// CanBeCancelled reports whether the booking may still be cancelled:
// only pending or confirmed bookings that have not started yet.
func (b *Booking) CanBeCancelled() bool {
	if b.Status != BookingPending && b.Status != BookingConfirmed {
		return false
	}
	return !b.IsPast()
}

func (b *Booking) CanBeRescheduled() bool {
	return b.CanBeCancelled()
}

// RemainingPayment is the amount still owed after the advance, never negative.
func (b *Booking) RemainingPayment() float64 {
	remaining := b.TotalAmount - b.AdvancePaymentAmount
	if remaining < 0 {
		return 0
	}
	return remaining
}
