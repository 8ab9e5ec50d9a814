package notification

import "time"

const (
	TypeInfo    = "info"
	TypeSuccess = "success"
	TypeWarning = "warning"
	TypeError   = "error"
)

type Notification struct {
	ID             string     `gorm:"column:id;primaryKey" json:"id"`
	OrganizationID string     `gorm:"column:organization_id;index" json:"organizationId,omitempty"`
	UserID         string     `gorm:"column:user_id;index" json:"userId"`
	Type           string     `gorm:"column:type" json:"type"`
	Title          string     `gorm:"column:title" json:"title"`
	Message        string     `gorm:"column:message" json:"message"`
	Link           string     `gorm:"column:link" json:"link,omitempty"`
	IsRead         bool       `gorm:"column:is_read;index" json:"isRead"`
	ReadAt         *time.Time `gorm:"column:read_at" json:"readAt,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"createdAt"`
}

func (Notification) TableName() string { return "notifications" }

// Notice is what services hand to a Notifier.
type Notice struct {
	OrganizationID string
	UserID         string `validate:"required"`
	Type           string `validate:"omitempty,oneof=info success warning error"`
	Title          string `validate:"required,max=255"`
	Message        string `validate:"max=2000"`
	Link           string
}

type BroadcastRequest struct {
	Title   string `json:"title" validate:"required,max=255"`
	Message string `json:"message" validate:"max=2000"`
	Type    string `json:"type" validate:"omitempty,oneof=info success warning error"`
	Link    string `json:"link"`
}

type broadcastPayload struct {
	OrganizationID string           `json:"organizationId"`
	SenderID       string           `json:"senderId"`
	Request        BroadcastRequest `json:"request"`
}
