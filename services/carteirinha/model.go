package carteirinha

import "time"

const (
	StatusActive  = "active"
	StatusRevoked = "revoked"
	StatusExpired = "expired"
)

// Reasons reported by a failed verification.
const (
	ReasonNotFound         = "not_found"
	ReasonInvalidSignature = "invalid_signature"
	ReasonExpired          = "expired"
	ReasonRevoked          = "revoked"
)

// Card is a patient's membership card. A patient holds at most one active
// card per organization.
type Card struct {
	ID               string     `gorm:"column:id;primaryKey" json:"id"`
	OrganizationID   string     `gorm:"column:organization_id;index" json:"organizationId"`
	OrganizationName string     `gorm:"column:organization_name" json:"organizationName"`
	PatientID        string     `gorm:"column:patient_id;index" json:"patientId"`
	Number           string     `gorm:"column:number;uniqueIndex" json:"number"`
	HolderName       string     `gorm:"column:holder_name" json:"holderName"`
	Document         string     `gorm:"column:document" json:"document,omitempty"`
	Status           string     `gorm:"column:status;index" json:"status"`
	Token            string     `gorm:"column:token;type:text" json:"token"`
	ValidUntil       time.Time  `gorm:"column:valid_until" json:"validUntil"`
	IssuedBy         string     `gorm:"column:issued_by" json:"issuedBy"`
	RevokedAt        *time.Time `gorm:"column:revoked_at" json:"revokedAt,omitempty"`
	RevokedBy        string     `gorm:"column:revoked_by" json:"revokedBy,omitempty"`
	RevokeReason     string     `gorm:"column:revoke_reason" json:"revokeReason,omitempty"`
	CreatedAt        time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt        time.Time  `gorm:"column:updated_at" json:"updatedAt"`
}

func (Card) TableName() string { return "carteirinhas" }

type IssueRequest struct {
	PatientID  string     `json:"patientId" validate:"required"`
	Document   string     `json:"document" validate:"omitempty,max=32"`
	ValidUntil *time.Time `json:"validUntil"`
}

type RevokeRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type ListRequest struct {
	PatientID string
	Status    string
}

// Verification is the public answer for a scanned card.
type Verification struct {
	Valid            bool       `json:"valid"`
	Status           string     `json:"status,omitempty"`
	Number           string     `json:"number,omitempty"`
	HolderName       string     `json:"holderName,omitempty"`
	OrganizationName string     `json:"organizationName,omitempty"`
	ValidUntil       *time.Time `json:"validUntil,omitempty"`
	Reason           string     `json:"reason,omitempty"`
}
