package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FullName     string     `gorm:"size:255;not null" json:"full_name"`
	Email        string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password     string     `gorm:"not null" json:"-"`
	Role         string     `gorm:"size:20;not null;default:'user'" json:"role"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	PhoneNumber  *string    `gorm:"size:20;index" json:"phone_number"`
	ReferralCode *string    `gorm:"size:10;uniqueIndex" json:"referral_code"`
	ReferredByID *uuid.UUID `gorm:"type:uuid;index" json:"referred_by_id"`

	Wallet *Wallet `gorm:"foreignKey:UserID" json:"wallet,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
