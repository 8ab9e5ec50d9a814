package user

import "time"

type User struct {
	ID             string     `gorm:"column:id;primaryKey" json:"id"`
	OrganizationID string     `gorm:"column:organization_id;index" json:"organizationId,omitempty"`
	Name           string     `gorm:"column:name" json:"name"`
	Username       string     `gorm:"column:username" json:"username"`
	Email          string     `gorm:"column:email;uniqueIndex" json:"email"`
	PasswordHash   string     `gorm:"column:password_hash" json:"-"`
	Role           string     `gorm:"column:role;index" json:"role"`
	Phone          string     `gorm:"column:phone" json:"phone,omitempty"`
	Document       string     `gorm:"column:document" json:"document,omitempty"`
	AvatarURL      string     `gorm:"column:avatar_url" json:"avatarUrl,omitempty"`
	Bio            string     `gorm:"column:bio" json:"bio,omitempty"`
	IsActive       bool       `gorm:"column:is_active" json:"isActive"`
	LastLoginAt    *time.Time `gorm:"column:last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"column:updated_at" json:"updatedAt"`
}

func (User) TableName() string { return "users" }

type CreateRequest struct {
	OrganizationID string `json:"organizationId"`
	Name           string `json:"name" validate:"required,max=255"`
	Email          string `json:"email" validate:"required,email"`
	Username       string `json:"username" validate:"omitempty,max=64"`
	Password       string `json:"password" validate:"required,min=8,max=72"`
	Role           string `json:"role" validate:"required"`
	Phone          string `json:"phone" validate:"omitempty,max=32"`
	Document       string `json:"document" validate:"omitempty,max=32"`
}

type UpdateProfileRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=255"`
	Phone     *string `json:"phone" validate:"omitempty,max=32"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,url"`
	Bio       *string `json:"bio" validate:"omitempty,max=2000"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}
