package db

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/auth"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/models"
)

// AdminSeed describes the back-office account created at startup.
type AdminSeed struct {
	Username string
	Email    string
	Password string
}

// Seed creates the admin account if it does not exist yet. An empty password skips seeding.
func Seed(ctx context.Context, db *gorm.DB, admin AdminSeed) error {
	if admin.Password == "" {
		log.Warn("ADMIN_PASSWORD not set; skipping admin seed")
		return nil
	}
	var existing models.User
	err := db.WithContext(ctx).Where("username = ?", admin.Username).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}
	hash, err := auth.HashPassword(admin.Password)
	if err != nil {
		return err
	}
	u := models.User{Username: admin.Username, Email: admin.Email, PasswordHash: hash, Role: auth.RoleAdmin}
	if err := db.WithContext(ctx).Create(&u).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.WithField("username", u.Username).Info("Seeded admin user")
	return nil
}
