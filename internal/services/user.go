package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/auth"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/models"
)

type UserService struct{ DB *gorm.DB }

func NewUserService(db *gorm.DB) *UserService { return &UserService{DB: db} }

// Authenticate returns the user whose username or email matches login and whose
// password hash matches password.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).Where("username = ? OR email = ?", login, login).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// UserExists reports whether a user with id is stored.
func (s *UserService) UserExists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}
