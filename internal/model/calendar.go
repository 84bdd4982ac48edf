package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Calendar struct {
	ID string `json:"id" gorm:"type:varchar(36);primaryKey"`

	// Multi-tenancy
	StoreID string `json:"store_id" gorm:"type:varchar(36);not null;index"`

	Name                    string `json:"name" gorm:"size:255;not null"`
	CalendlyEventTypeID     string `json:"calendly_event_type_id" gorm:"size:255;index"`
	CalendlyOrganizationURL string `json:"calendly_organization_url" gorm:"size:500"`
	IsActive                bool   `json:"is_active" gorm:"default:true;not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Store *Store         `json:"-" gorm:"foreignKey:StoreID"`
	Slots []CalendarSlot `json:"slots,omitempty" gorm:"foreignKey:CalendarID;constraint:OnDelete:CASCADE"`
}

func (c *Calendar) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type CalendarSlot struct {
	ID         string `json:"id" gorm:"type:varchar(36);primaryKey"`
	CalendarID string `json:"calendar_id" gorm:"type:varchar(36);not null;index"`

	StartTime time.Time `json:"start_time" gorm:"not null;index"`
	EndTime   time.Time `json:"end_time" gorm:"not null"`

	IsBooked          bool `json:"is_booked" gorm:"default:false;not null"`
	CapacityAvailable int  `json:"capacity_available" gorm:"default:1;not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Calendar *Calendar `json:"-" gorm:"foreignKey:CalendarID"`
}

func (s *CalendarSlot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Available reports whether the slot can still take the required capacity.
func (s *CalendarSlot) Available(required int) bool {
	if s.IsBooked {
		return false
	}
	return s.CapacityAvailable >= required
}

// Book consumes capacity from the slot, marking it booked when exhausted.
func (s *CalendarSlot) Book(used int) bool {
	if !s.Available(used) {
		return false
	}
	s.CapacityAvailable -= used
	if s.CapacityAvailable <= 0 {
		s.IsBooked = true
	}
	return true
}
