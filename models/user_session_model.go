package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserSession struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	SessionKey string     `gorm:"size:255;not null;uniqueIndex" json:"-"`
	Device     *string    `gorm:"size:255" json:"device"`
	IPAddress  *string    `gorm:"size:64" json:"ip_address"`
	LoginTime  time.Time  `gorm:"not null" json:"login_time"`
	LogoutTime *time.Time `json:"logout_time"`
	IsActive   bool       `gorm:"not null;default:true" json:"is_active"`
}

func (s *UserSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
