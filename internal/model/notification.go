package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification Types
type NotificationType string

const (
	NotificationEmail NotificationType = "email"
	NotificationSMS   NotificationType = "sms"
)

func ParseNotificationType(s string) (NotificationType, bool) {
	switch NotificationType(s) {
	case NotificationEmail, NotificationSMS:
		return NotificationType(s), true
	}
	return "", false
}

// Notification Statuses
type NotificationStatus string

const (
	NotificationSent      NotificationStatus = "sent"
	NotificationDelivered NotificationStatus = "delivered"
	NotificationFailed    NotificationStatus = "failed"
	NotificationRead      NotificationStatus = "read"
)

func ParseNotificationStatus(s string) (NotificationStatus, bool) {
	switch NotificationStatus(s) {
	case NotificationSent, NotificationDelivered, NotificationFailed, NotificationRead:
		return NotificationStatus(s), true
	}
	return "", false
}

type Notification struct {
	ID string `json:"id" gorm:"type:varchar(36);primaryKey"`

	// Multi-tenancy
	StoreID         string  `json:"store_id" gorm:"type:varchar(36);not null;index"`
	RecipientUserID string  `json:"recipient_user_id" gorm:"type:varchar(36);not null;index"`
	BookingID       *string `json:"booking_id" gorm:"type:varchar(36);index"`

	Type    NotificationType   `json:"type" gorm:"size:10;not null"`
	Subject string             `json:"subject" gorm:"size:255"`
	Body    string             `json:"body" gorm:"type:text;not null"`
	Status  NotificationStatus `json:"status" gorm:"size:20;not null;default:sent;index"`

	// EasySMS message id, used to match delivery reports
	ExternalMessageID string     `json:"external_message_id" gorm:"size:255;index"`
	SentAt            *time.Time `json:"sent_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Store     *Store   `json:"-" gorm:"foreignKey:StoreID"`
	Recipient *User    `json:"-" gorm:"foreignKey:RecipientUserID"`
	Booking   *Booking `json:"-" gorm:"foreignKey:BookingID"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// MarkDelivered records a successful dispatch with the provider message id.
func (n *Notification) MarkDelivered(externalMessageID string) {
	now := time.Now()
	n.Status = NotificationDelivered
	n.ExternalMessageID = externalMessageID
	n.SentAt = &now
}

func (n *Notification) MarkFailed() {
	n.Status = NotificationFailed
}
