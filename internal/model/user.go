package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User Roles
type UserRole string

const (
	RoleClient       UserRole = "client"
	RoleStoreManager UserRole = "store_manager"
	RoleAdmin        UserRole = "admin"
)

// ParseUserRole validates a role string coming from the API boundary.
func ParseUserRole(s string) (UserRole, bool) {
	switch UserRole(s) {
	case RoleClient, RoleStoreManager, RoleAdmin:
		return UserRole(s), true
	}
	return "", false
}

type User struct {
	ID           string   `json:"id" gorm:"type:varchar(36);primaryKey"`
	FirstName    string   `json:"first_name" gorm:"size:100;not null"`
	LastName     string   `json:"last_name" gorm:"size:100;not null"`
	Email        string   `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string   `json:"-" gorm:"size:255;not null"`
	PhoneNumber  string   `json:"phone_number" gorm:"size:20"`
	Address      string   `json:"address" gorm:"type:text"`
	Age          *int     `json:"age"` // nullable for managers/admins
	Role         UserRole `json:"role" gorm:"size:20;not null;index"`

	// Multi-tenancy: set for store managers, empty otherwise
	StoreID string `json:"store_id" gorm:"type:varchar(36);index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Bookings      []Booking      `json:"-" gorm:"foreignKey:ClientUserID"`
	Payments      []Payment      `json:"-" gorm:"foreignKey:UserID"`
	Notifications []Notification `json:"-" gorm:"foreignKey:RecipientUserID"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashed)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
