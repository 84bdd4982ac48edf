package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WebhookEvent records every externally delivered event so that webhook
// handlers can detect redelivery. The (provider, external id) pair is unique.
type WebhookEvent struct {
	ID              string `json:"id" gorm:"type:varchar(36);primaryKey"`
	Provider        string `json:"provider" gorm:"size:50;not null;uniqueIndex:idx_webhook_provider_event"`
	ExternalEventID string `json:"external_event_id" gorm:"size:255;not null;uniqueIndex:idx_webhook_provider_event"`
	EventType       string `json:"event_type" gorm:"size:100"`

	CreatedAt time.Time `json:"created_at"`
}

func (e *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// RecordWebhookEvent inserts the event and reports whether it is the first
// delivery. A conflicting insert means the event was already processed.
func RecordWebhookEvent(db *gorm.DB, provider, externalEventID, eventType string) (bool, error) {
	event := WebhookEvent{
		Provider:        provider,
		ExternalEventID: externalEventID,
		EventType:       eventType,
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&event)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
