package affiliate

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TypePatient      = "patient"
	TypeOrganization = "organization"
	TypeCompany      = "company"
	TypeAssociation  = "association"

	LevelBeginner = "beginner"
	LevelBronze   = "bronze"
	LevelSilver   = "silver"
	LevelGold     = "gold"
	LevelPlatinum = "platinum"

	ActivityRedemption       = "redemption"
	ActivityRedemptionRefund = "redemption_refund"

	RedemptionPending   = "pending"
	RedemptionCompleted = "completed"
	RedemptionFailed    = "failed"
	RedemptionCancelled = "cancelled"

	ReferralPending = "pending"

	genesisHash = "GENESIS"
)

type Affiliate struct {
	ID             string    `gorm:"column:id;primaryKey" json:"id"`
	UserID         string    `gorm:"column:user_id;uniqueIndex:idx_affiliate_org_user" json:"userId"`
	OrganizationID string    `gorm:"column:organization_id;uniqueIndex:idx_affiliate_org_user" json:"organizationId"`
	AffiliateCode  string    `gorm:"column:affiliate_code;uniqueIndex" json:"affiliateCode"`
	Type           string    `gorm:"column:type" json:"type"`
	Level          string    `gorm:"column:level" json:"level"`
	Points         int64     `gorm:"column:points" json:"points"`
	TotalEarned    int64     `gorm:"column:total_earned" json:"totalEarned"`
	TotalRedeemed  int64     `gorm:"column:total_redeemed" json:"totalRedeemed"`
	IsActive       bool      `gorm:"column:is_active" json:"isActive"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Affiliate) TableName() string { return "affiliates" }

// AffiliatePoint is one entry of an affiliate's points ledger. Points is
// signed: redemptions are negative. Entries are chained through Hash.
type AffiliatePoint struct {
	ID             string         `gorm:"column:id;primaryKey" json:"id"`
	AffiliateID    string         `gorm:"column:affiliate_id;index" json:"affiliateId"`
	OrganizationID string         `gorm:"column:organization_id" json:"organizationId"`
	ActivityType   string         `gorm:"column:activity_type" json:"activityType"`
	Points         int64          `gorm:"column:points" json:"points"`
	BalanceAfter   int64          `gorm:"column:balance_after" json:"balanceAfter"`
	Description    string         `gorm:"column:description" json:"description,omitempty"`
	ReferenceID    string         `gorm:"column:reference_id;index" json:"referenceId,omitempty"`
	PreviousHash   string         `gorm:"column:previous_hash" json:"previousHash"`
	Hash           string         `gorm:"column:hash" json:"hash"`
	Metadata       datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time      `gorm:"column:created_at" json:"createdAt"`
}

func (AffiliatePoint) TableName() string { return "affiliate_points" }

type AffiliateReferral struct {
	ID             string    `gorm:"column:id;primaryKey" json:"id"`
	OrganizationID string    `gorm:"column:organization_id;index" json:"organizationId"`
	ReferrerID     string    `gorm:"column:referrer_id;index" json:"referrerId"`
	ReferredUserID string    `gorm:"column:referred_user_id" json:"referredUserId,omitempty"`
	ReferredEmail  string    `gorm:"column:referred_email" json:"referredEmail,omitempty"`
	Status         string    `gorm:"column:status" json:"status"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (AffiliateReferral) TableName() string { return "affiliate_referrals" }

type AffiliateReward struct {
	ID                    string    `gorm:"column:id;primaryKey" json:"id"`
	OrganizationID        string    `gorm:"column:organization_id;index" json:"organizationId"`
	Name                  string    `gorm:"column:name" json:"name"`
	Description           string    `gorm:"column:description" json:"description,omitempty"`
	PointsCost            int64     `gorm:"column:points_cost" json:"pointsCost"`
	IsActive              bool      `gorm:"column:is_active" json:"isActive"`
	EligibilityExpression string    `gorm:"column:eligibility_expression" json:"eligibilityExpression,omitempty"`
	CreatedAt             time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt             time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (AffiliateReward) TableName() string { return "affiliate_rewards" }

type AffiliateRedemption struct {
	ID             string     `gorm:"column:id;primaryKey" json:"id"`
	AffiliateID    string     `gorm:"column:affiliate_id;index" json:"affiliateId"`
	OrganizationID string     `gorm:"column:organization_id" json:"organizationId"`
	RewardID       string     `gorm:"column:reward_id" json:"rewardId"`
	PointsSpent    int64      `gorm:"column:points_spent" json:"pointsSpent"`
	Status         string     `gorm:"column:status;index" json:"status"`
	Notes          string     `gorm:"column:notes" json:"notes,omitempty"`
	ProcessedBy    string     `gorm:"column:processed_by" json:"processedBy,omitempty"`
	ProcessedAt    *time.Time `gorm:"column:processed_at" json:"processedAt,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"column:updated_at" json:"updatedAt"`
}

func (AffiliateRedemption) TableName() string { return "affiliate_redemptions" }

type PromotionalMaterial struct {
	ID             string    `gorm:"column:id;primaryKey" json:"id"`
	OrganizationID string    `gorm:"column:organization_id;index" json:"organizationId"`
	Title          string    `gorm:"column:title" json:"title"`
	Description    string    `gorm:"column:description" json:"description,omitempty"`
	FileName       string    `gorm:"column:file_name" json:"fileName"`
	ContentType    string    `gorm:"column:content_type" json:"contentType"`
	Size           int64     `gorm:"column:size" json:"size"`
	ObjectKey      string    `gorm:"column:object_key" json:"-"`
	DownloadCount  int64     `gorm:"column:download_count" json:"downloadCount"`
	IsActive       bool      `gorm:"column:is_active" json:"isActive"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (PromotionalMaterial) TableName() string { return "promotional_materials" }

func Models() []any {
	return []any{
		&Affiliate{},
		&AffiliatePoint{},
		&AffiliateReferral{},
		&AffiliateReward{},
		&AffiliateRedemption{},
		&PromotionalMaterial{},
	}
}

// Actor is the authenticated caller.
type Actor struct {
	UserID         string
	OrganizationID string
	Role           string
}

type EnrollRequest struct {
	UserID string `json:"userId"`
	Type   string `json:"type" validate:"required,oneof=patient organization company association"`
}

type ListRequest struct {
	Level    string
	Type     string
	IsActive *bool
	Query    string
}

type SetLevelRequest struct {
	Level string `json:"level" validate:"required,oneof=beginner bronze silver gold platinum"`
}

type SetStatusRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

type AddPointsRequest struct {
	ActivityType string         `json:"activityType" validate:"required,max=64,ne=redemption,ne=redemption_refund"`
	Points       int64          `json:"points" validate:"gt=0"`
	Description  string         `json:"description" validate:"max=500"`
	ReferenceID  string         `json:"referenceId" validate:"max=128"`
	Metadata     map[string]any `json:"metadata"`
}

type ReferralRequest struct {
	AffiliateCode  string `json:"affiliateCode" validate:"required"`
	ReferredUserID string `json:"referredUserId" validate:"required_without=ReferredEmail"`
	ReferredEmail  string `json:"referredEmail" validate:"omitempty,email"`
}

type RewardRequest struct {
	Name                  string `json:"name" validate:"required,max=255"`
	Description           string `json:"description" validate:"max=2000"`
	PointsCost            int64  `json:"pointsCost" validate:"gt=0"`
	IsActive              *bool  `json:"isActive"`
	EligibilityExpression string `json:"eligibilityExpression" validate:"max=2000"`
}

type UpdateRewardRequest struct {
	Name                  *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description           *string `json:"description" validate:"omitempty,max=2000"`
	PointsCost            *int64  `json:"pointsCost" validate:"omitempty,gt=0"`
	IsActive              *bool   `json:"isActive"`
	EligibilityExpression *string `json:"eligibilityExpression" validate:"omitempty,max=2000"`
}

type RedeemRequest struct {
	RewardID string `json:"rewardId" validate:"required"`
	Notes    string `json:"notes" validate:"max=500"`
}

type ProcessRedemptionRequest struct {
	Notes string `json:"notes" validate:"max=500"`
}

type MaterialRequest struct {
	Title       string `validate:"required,max=255"`
	Description string `validate:"max=2000"`
}

type ChainReport struct {
	Valid    bool   `json:"valid"`
	Entries  int    `json:"entries"`
	BrokenAt string `json:"brokenAt,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type Stats struct {
	AffiliateID          string `json:"affiliateId"`
	Level                string `json:"level"`
	Points               int64  `json:"points"`
	TotalEarned          int64  `json:"totalEarned"`
	TotalRedeemed        int64  `json:"totalRedeemed"`
	Referrals            int64  `json:"referrals"`
	LedgerEntries        int64  `json:"ledgerEntries"`
	RedemptionsPending   int64  `json:"redemptionsPending"`
	RedemptionsCompleted int64  `json:"redemptionsCompleted"`
}

type DownloadLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type referralPayload struct {
	ReferralID string `json:"referralId"`
}
