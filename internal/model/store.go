package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Store struct {
	ID          string         `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name        string         `json:"name" gorm:"size:255;not null"`
	Slug        string         `json:"slug" gorm:"size:100;uniqueIndex;not null"` // public URL: web-app-url/slug
	Address     string         `json:"address" gorm:"type:text"`
	City        string         `json:"city" gorm:"size:100"`
	PostalCode  string         `json:"postal_code" gorm:"size:20"`
	Country     string         `json:"country" gorm:"size:100"`
	PhoneNumber string         `json:"phone_number" gorm:"size:20"`
	Email       string         `json:"email" gorm:"size:255"`
	Website     string         `json:"website" gorm:"size:255"`
	Description string         `json:"description" gorm:"type:text"`
	PhotosURL   datatypes.JSON `json:"photos_url"`

	// Manager relationship (one-to-one)
	ManagerUserID string `json:"manager_user_id" gorm:"type:varchar(36);uniqueIndex;not null"`

	// External integrations
	CalendlyAPIKey string         `json:"-" gorm:"type:text"`
	StripeEnabled  bool           `json:"stripe_enabled" gorm:"default:false;not null"`
	IsActive       bool           `json:"is_active" gorm:"default:true;not null"`
	BusinessHours  datatypes.JSON `json:"business_hours"`

	// Subscription
	CurrentSubscriptionPlanID *string `json:"current_subscription_plan_id" gorm:"type:varchar(36)"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships (tenant-scoped rows cascade with the store)
	Manager       *User          `json:"-" gorm:"foreignKey:ManagerUserID"`
	Services      []Service      `json:"-" gorm:"foreignKey:StoreID;constraint:OnDelete:CASCADE"`
	Calendars     []Calendar     `json:"-" gorm:"foreignKey:StoreID;constraint:OnDelete:CASCADE"`
	Bookings      []Booking      `json:"-" gorm:"foreignKey:StoreID;constraint:OnDelete:CASCADE"`
	Payments      []Payment      `json:"-" gorm:"foreignKey:StoreID;constraint:OnDelete:CASCADE"`
	Subscriptions []Subscription `json:"-" gorm:"foreignKey:StoreID;constraint:OnDelete:CASCADE"`
	Notifications []Notification `json:"-" gorm:"foreignKey:StoreID;constraint:OnDelete:CASCADE"`
}

func (s *Store) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Photos returns the photo URL list stored in the JSON column.
func (s *Store) Photos() []string {
	var photos []string
	if len(s.PhotosURL) == 0 {
		return photos
	}
	if err := json.Unmarshal(s.PhotosURL, &photos); err != nil {
		return nil
	}
	return photos
}

func (s *Store) SetPhotos(photos []string) error {
	raw, err := json.Marshal(photos)
	if err != nil {
		return err
	}
	s.PhotosURL = raw
	return nil
}

func (s *Store) AddPhoto(url string) error {
	photos := s.Photos()
	for _, p := range photos {
		if p == url {
			return nil
		}
	}
	return s.SetPhotos(append(photos, url))
}

func (s *Store) RemovePhoto(url string) error {
	photos := s.Photos()
	kept := photos[:0]
	for _, p := range photos {
		if p != url {
			kept = append(kept, p)
		}
	}
	return s.SetPhotos(kept)
}
