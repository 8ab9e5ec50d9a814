package affiliate

import (
	"context"
	"strings"

	"endurancy-platform/pkg/db/option"
	"endurancy-platform/pkg/errutil"
)

func (s *Service) checkExpression(expr string) error {
	if expr == "" {
		return nil
	}
	if err := s.rules.Validate(expr); err != nil {
		return errutil.UnprocessableEntity("Invalid eligibility expression", err, errutil.WithDetails(errutil.Detail{
			Field:   "eligibilityExpression",
			Message: err.Error(),
		}))
	}
	return nil
}

// eligible evaluates the reward's expression for a. An empty expression
// admits everyone.
func (s *Service) eligible(r *AffiliateReward, a *Affiliate) (bool, error) {
	if r.EligibilityExpression == "" {
		return true, nil
	}
	return s.rules.Evaluate(r.EligibilityExpression, map[string]any{
		"level":         a.Level,
		"points":        a.Points,
		"totalEarned":   a.TotalEarned,
		"affiliateType": a.Type,
	})
}

func (s *Service) CreateReward(ctx context.Context, actor Actor, req RewardRequest) (*AffiliateReward, error) {
	req.EligibilityExpression = strings.TrimSpace(req.EligibilityExpression)
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}
	if err := s.checkExpression(req.EligibilityExpression); err != nil {
		return nil, err
	}

	r := &AffiliateReward{
		ID:                    s.ids.NewID(),
		OrganizationID:        actor.OrganizationID,
		Name:                  req.Name,
		Description:           req.Description,
		PointsCost:            req.PointsCost,
		IsActive:              req.IsActive == nil || *req.IsActive,
		EligibilityExpression: req.EligibilityExpression,
	}
	if err := s.reward.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ListRewards returns the organization catalog. Non managers only see
// active rewards.
func (s *Service) ListRewards(ctx context.Context, actor Actor) ([]*AffiliateReward, error) {
	opts := []option.QueryOption{option.Equal("organization_id", actor.OrganizationID)}
	if !isManager(actor) {
		opts = append(opts, option.Equal("is_active", true))
	}
	opts = append(opts, option.WithSortBy(option.QuerySortBy{SortBy: "points_cost", OrderBy: "asc", Allow: map[string]bool{"points_cost": true}}))
	return s.reward.Find(ctx, nil, opts...)
}

func (s *Service) getReward(ctx context.Context, actor Actor, id string) (*AffiliateReward, error) {
	r, err := s.reward.FindOne(ctx, &AffiliateReward{ID: id}, option.Equal("organization_id", actor.OrganizationID))
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errutil.NotFound("Reward not found", nil)
	}
	return r, nil
}

func (s *Service) UpdateReward(ctx context.Context, actor Actor, id string, req UpdateRewardRequest) (*AffiliateReward, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}
	r, err := s.getReward(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"], r.Name = *req.Name, *req.Name
	}
	if req.Description != nil {
		updates["description"], r.Description = *req.Description, *req.Description
	}
	if req.PointsCost != nil {
		updates["points_cost"], r.PointsCost = *req.PointsCost, *req.PointsCost
	}
	if req.IsActive != nil {
		updates["is_active"], r.IsActive = *req.IsActive, *req.IsActive
	}
	if req.EligibilityExpression != nil {
		expr := strings.TrimSpace(*req.EligibilityExpression)
		if err := s.checkExpression(expr); err != nil {
			return nil, err
		}
		updates["eligibility_expression"], r.EligibilityExpression = expr, expr
	}
	if len(updates) == 0 {
		return r, nil
	}
	if err := s.reward.Update(ctx, r.ID, updates); err != nil {
		return nil, err
	}
	return r, nil
}
