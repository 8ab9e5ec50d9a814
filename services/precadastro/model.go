package precadastro

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusNovo       = "novo"
	StatusContatado  = "contatado"
	StatusConvertido = "convertido"
	StatusDescartado = "descartado"
)

type PreCadastro struct {
	ID                  string         `gorm:"column:id;primaryKey" json:"id"`
	Name                string         `gorm:"column:name" json:"name"`
	Email               string         `gorm:"column:email;index" json:"email"`
	Phone               string         `gorm:"column:phone" json:"phone,omitempty"`
	Organization        string         `gorm:"column:organization" json:"organization"`
	Interest            string         `gorm:"column:interest" json:"interest,omitempty"`
	ModulosSelecionados datatypes.JSON `gorm:"column:modulos_selecionados" json:"modulosSelecionados"`
	TermosAceitos       bool           `gorm:"column:termos_aceitos" json:"termosAceitos"`
	Status              string         `gorm:"column:status;index" json:"status"`
	Notes               string         `gorm:"column:notes" json:"notes,omitempty"`
	OrganizationID      string         `gorm:"column:organization_id" json:"organizationId,omitempty"`
	UserID              string         `gorm:"column:user_id" json:"userId,omitempty"`
	ConvertedAt         *time.Time     `gorm:"column:converted_at" json:"convertedAt,omitempty"`
	CreatedAt           time.Time      `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt           time.Time      `gorm:"column:updated_at" json:"updatedAt"`
}

func (PreCadastro) TableName() string { return "pre_cadastros" }

type CreateRequest struct {
	Name                string   `json:"name" validate:"required,max=255"`
	Email               string   `json:"email" validate:"required,email"`
	Phone               string   `json:"phone" validate:"omitempty,max=32"`
	Organization        string   `json:"organization" validate:"required,max=255"`
	Interest            string   `json:"interest" validate:"omitempty,max=2000"`
	ModulosSelecionados []string `json:"modulosSelecionados" validate:"omitempty,max=50,dive,required,max=64"`
	TermosAceitos       bool     `json:"termosAceitos"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=novo contatado descartado"`
	Notes  string `json:"notes" validate:"omitempty,max=2000"`
}

type ConvertRequest struct {
	OrganizationType string `json:"organizationType" validate:"omitempty,oneof=association clinic company laboratory pharmacy"`
}

type ListRequest struct {
	Status string
	Query  string
}

// OnboardingInput is the workflow argument. It only carries identifiers so
// nothing sensitive lands in workflow history.
type OnboardingInput struct {
	LeadID           string
	OrganizationType string
}

type AdminInput struct {
	LeadID         string
	OrganizationID string
}

type OnboardingResult struct {
	OrganizationID string `json:"organizationId"`
	UserID         string `json:"userId"`
}

type ConvertResult struct {
	LeadID         string `json:"leadId"`
	Status         string `json:"status"`
	WorkflowID     string `json:"workflowId,omitempty"`
	RunID          string `json:"runId,omitempty"`
	OrganizationID string `json:"organizationId,omitempty"`
	UserID         string `json:"userId,omitempty"`
}
