package organization

import "time"

const (
	TypeAssociation = "association"
	TypeClinic      = "clinic"
	TypeCompany     = "company"
	TypeLaboratory  = "laboratory"
	TypePharmacy    = "pharmacy"

	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusArchived  = "archived"
)

type Organization struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	Name      string    `gorm:"column:name" json:"name"`
	Slug      string    `gorm:"column:slug;uniqueIndex" json:"slug"`
	Type      string    `gorm:"column:type" json:"type"`
	Status    string    `gorm:"column:status;index" json:"status"`
	Document  string    `gorm:"column:document" json:"document,omitempty"`
	Email     string    `gorm:"column:email" json:"email,omitempty"`
	Phone     string    `gorm:"column:phone" json:"phone,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Organization) TableName() string { return "organizations" }

type CreateRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Type     string `json:"type" validate:"required,oneof=association clinic company laboratory pharmacy"`
	Document string `json:"document" validate:"omitempty,max=32"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active suspended archived"`
}

type ListRequest struct {
	Status string
	Type   string
	Query  string
}
