package module

import "time"

const (
	BillingMonthly   = "monthly"
	BillingQuarterly = "quarterly"
	BillingYearly    = "yearly"

	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
)

type CatalogModule struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	Key         string    `gorm:"column:module_key;uniqueIndex" json:"key"`
	Name        string    `gorm:"column:name" json:"name"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	Category    string    `gorm:"column:category" json:"category,omitempty"`
	SortOrder   int       `gorm:"column:sort_order" json:"sortOrder"`
	IsActive    bool      `gorm:"column:is_active" json:"isActive"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (CatalogModule) TableName() string { return "modules" }

type Plan struct {
	ID            string    `gorm:"column:id;primaryKey" json:"id"`
	ModuleID      string    `gorm:"column:module_id;index" json:"moduleId"`
	Name          string    `gorm:"column:name" json:"name"`
	BillingPeriod string    `gorm:"column:billing_period" json:"billingPeriod"`
	PriceCents    int64     `gorm:"column:price_cents" json:"priceCents"`
	Currency      string    `gorm:"column:currency" json:"currency"`
	IsActive      bool      `gorm:"column:is_active" json:"isActive"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Plan) TableName() string { return "module_plans" }

type Subscription struct {
	ID             string     `gorm:"column:id;primaryKey" json:"id"`
	OrganizationID string     `gorm:"column:organization_id;uniqueIndex:idx_org_module" json:"organizationId"`
	ModuleID       string     `gorm:"column:module_id;uniqueIndex:idx_org_module" json:"moduleId"`
	PlanID         string     `gorm:"column:plan_id" json:"planId"`
	Status         string     `gorm:"column:status;index" json:"status"`
	SubscribedAt   time.Time  `gorm:"column:subscribed_at" json:"subscribedAt"`
	CancelledAt    *time.Time `gorm:"column:cancelled_at" json:"cancelledAt,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"column:updated_at" json:"updatedAt"`
}

func (Subscription) TableName() string { return "organization_modules" }

func Models() []any {
	return []any{&CatalogModule{}, &Plan{}, &Subscription{}}
}

type CreateModuleRequest struct {
	Key         string `json:"key" validate:"required,max=64"`
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	Category    string `json:"category" validate:"omitempty,max=64"`
	SortOrder   int    `json:"sortOrder"`
}

type CreatePlanRequest struct {
	ModuleID      string `json:"moduleId" validate:"required"`
	Name          string `json:"name" validate:"required,max=255"`
	BillingPeriod string `json:"billingPeriod" validate:"required,oneof=monthly quarterly yearly"`
	PriceCents    int64  `json:"priceCents" validate:"gte=0"`
	Currency      string `json:"currency" validate:"omitempty,len=3"`
}

type SubscribeRequest struct {
	PlanID string `json:"planId" validate:"required"`
}

// OrganizationModule is a subscribed module as the organization sees it.
type OrganizationModule struct {
	Module       *CatalogModule   `json:"module"`
	Plan         *Plan     `json:"plan"`
	SubscribedAt time.Time `json:"subscribedAt"`
}
