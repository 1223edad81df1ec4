package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a back-office account. Accounts are created by the seed process only.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Username     string    `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"` // Hashed, never exposed in JSON
	Role         string    `gorm:"size:20;not null;default:ADMIN" json:"role"`
}

func (u *User) BeforeCreate(*gorm.DB) error { newID(&u.ID); return nil }
