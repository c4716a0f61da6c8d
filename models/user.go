package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ltdedn/editions_backend/config"
	"github.com/ltdedn/editions_backend/utils"
	"gorm.io/gorm"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:150;not null;uniqueIndex" json:"email"`
	Password  string    `gorm:"size:100;not null" json:"-"`
	Role      UserRole  `gorm:"size:20;not null;default:'collector'" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

func (input *NewUser) validate() error {
	if !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email")
	}
	switch UserRole(input.Role) {
	case "", UserRoleAdmin, UserRoleArtist, UserRoleCollector:
	default:
		return errors.New("invalid role")
	}
	return nil
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {

	if err := input.validate(); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	role := UserRole(input.Role)
	if role == "" {
		role = UserRoleCollector
	}

	user := User{
		Name:     input.Name,
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Password: string(hashed),
		Role:     role,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Create(&user).Error
	if err != nil {
		return nil, err
	}

	// Admin-created accounts get a welcome notification so the user knows
	// credentials exist for them.
	_ = EnqueueNotification(ctx, db, user.ID, NotificationKindAccountCreated, map[string]any{
		"name":  user.Name,
		"email": user.Email,
	})

	return &user, nil
}

func GetUserById(ctx context.Context, id int) (*User, error) {
	var user User
	db := config.GetDB()
	if err := db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail returns nil (no error) when no user matches; callers decide
// whether an unknown address is an error.
func GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	db := config.GetDB()
	err := db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func GetAllUsers(ctx context.Context) ([]*User, error) {
	var users []*User
	db := config.GetDB()
	if err := db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
