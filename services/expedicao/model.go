package expedicao

import "time"

const (
	StatusPending   = "pending"
	StatusInTransit = "in_transit"
	StatusDelivered = "delivered"
	StatusReturned  = "returned"
)

// States are the 27 Brazilian federative units.
var States = map[string]string{
	"AC": "Acre", "AL": "Alagoas", "AP": "Amapá", "AM": "Amazonas", "BA": "Bahia",
	"CE": "Ceará", "DF": "Distrito Federal", "ES": "Espírito Santo", "GO": "Goiás",
	"MA": "Maranhão", "MT": "Mato Grosso", "MS": "Mato Grosso do Sul", "MG": "Minas Gerais",
	"PA": "Pará", "PB": "Paraíba", "PR": "Paraná", "PE": "Pernambuco", "PI": "Piauí",
	"RJ": "Rio de Janeiro", "RN": "Rio Grande do Norte", "RS": "Rio Grande do Sul",
	"RO": "Rondônia", "RR": "Roraima", "SC": "Santa Catarina", "SP": "São Paulo",
	"SE": "Sergipe", "TO": "Tocantins",
}

var transitions = map[string][]string{
	StatusPending:   {StatusInTransit, StatusReturned},
	StatusInTransit: {StatusDelivered, StatusReturned},
}

type Shipment struct {
	ID             string     `gorm:"column:id;primaryKey" json:"id"`
	OrganizationID string     `gorm:"column:organization_id;index" json:"organizationId"`
	Code           string     `gorm:"column:code;uniqueIndex" json:"code"`
	RecipientName  string     `gorm:"column:recipient_name" json:"recipientName"`
	State          string     `gorm:"column:state;index" json:"state"`
	City           string     `gorm:"column:city" json:"city"`
	Carrier        string     `gorm:"column:carrier" json:"carrier,omitempty"`
	TrackingCode   string     `gorm:"column:tracking_code" json:"trackingCode,omitempty"`
	Status         string     `gorm:"column:status;index" json:"status"`
	CreatedBy      string     `gorm:"column:created_by" json:"createdBy"`
	ShippedAt      *time.Time `gorm:"column:shipped_at" json:"shippedAt,omitempty"`
	DeliveredAt    *time.Time `gorm:"column:delivered_at" json:"deliveredAt,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"column:updated_at" json:"updatedAt"`
}

func (Shipment) TableName() string { return "shipments" }

type CreateRequest struct {
	RecipientName string `json:"recipientName" validate:"required,max=255"`
	State         string `json:"state" validate:"required,len=2"`
	City          string `json:"city" validate:"required,max=128"`
	Carrier       string `json:"carrier" validate:"omitempty,max=64"`
	TrackingCode  string `json:"trackingCode" validate:"omitempty,max=64"`
}

type UpdateStatusRequest struct {
	Status       string `json:"status" validate:"required,oneof=pending in_transit delivered returned"`
	TrackingCode string `json:"trackingCode" validate:"omitempty,max=64"`
}

type ListRequest struct {
	Status string
	State  string
}

// StateSummary is one row of the shipments-by-state report.
type StateSummary struct {
	State     string `json:"state"`
	Total     int64  `json:"total"`
	Delivered int64  `json:"delivered"`
	InTransit int64  `json:"inTransit"`
	Pending   int64  `json:"pending"`
	Returned  int64  `json:"returned"`
}
