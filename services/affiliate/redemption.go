package affiliate

import (
	"context"
	"time"

	"endurancy-platform/pkg/access"
	"endurancy-platform/pkg/db/option"
	"endurancy-platform/pkg/db/pagination"
	"endurancy-platform/pkg/errutil"

	"gorm.io/gorm"
)

func isManager(actor Actor) bool {
	return access.IsManager(actor.Role)
}

// Redeem spends points on a reward. The debit and the pending redemption are
// written in the same transaction as the locked balance check.
func (s *Service) Redeem(ctx context.Context, actor Actor, affiliateID string, req RedeemRequest) (*AffiliateRedemption, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}

	var out *AffiliateRedemption
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := s.load(ctx, tx, actor, affiliateID, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if !a.IsActive {
			return errutil.UnprocessableEntity("Affiliate is inactive", nil)
		}

		r, err := s.reward.WithTrx(tx).FindOne(ctx, &AffiliateReward{ID: req.RewardID}, option.Equal("organization_id", a.OrganizationID))
		if err != nil {
			return err
		}
		if r == nil {
			return errutil.NotFound("Reward not found", nil)
		}
		if !r.IsActive {
			return errutil.UnprocessableEntity("Reward is not available", nil)
		}

		ok, err := s.eligible(r, a)
		if err != nil {
			return errutil.UnprocessableEntity("Reward eligibility could not be evaluated", err)
		}
		if !ok {
			return errutil.Forbidden("Affiliate is not eligible for this reward", nil)
		}
		if a.Points < r.PointsCost {
			return errutil.UnprocessableEntity("Insufficient points", nil)
		}

		out = &AffiliateRedemption{
			ID:             s.ids.NewID(),
			AffiliateID:    a.ID,
			OrganizationID: a.OrganizationID,
			RewardID:       r.ID,
			PointsSpent:    r.PointsCost,
			Status:         RedemptionPending,
			Notes:          req.Notes,
		}
		if err := s.redemption.WithTrx(tx).Create(ctx, out); err != nil {
			return err
		}

		_, err = s.post(ctx, tx, a, entry{
			activity:    ActivityRedemption,
			points:      -r.PointsCost,
			redeemed:    r.PointsCost,
			description: r.Name,
			referenceID: out.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) ListRedemptions(ctx context.Context, actor Actor, affiliateID string, p pagination.Pagination) ([]*AffiliateRedemption, *pagination.PageInfo, error) {
	a, err := s.get(ctx, actor, affiliateID)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.redemption.Find(ctx, &AffiliateRedemption{AffiliateID: a.ID}, option.WithSortBy(option.QuerySortBy{}), option.ApplyPagination(p))
	if err != nil {
		return nil, nil, err
	}
	data, info := pagination.Page(rows, p.Normalize().Limit, func(r *AffiliateRedemption) string {
		return pagination.CursorOf(r.ID, r.CreatedAt)
	})
	return data, info, nil
}

// ProcessRedemption moves a pending redemption to status. Failed and
// cancelled redemptions give the points back.
func (s *Service) ProcessRedemption(ctx context.Context, actor Actor, id, status string, req ProcessRedemptionRequest) (*AffiliateRedemption, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}
	switch status {
	case RedemptionCompleted, RedemptionFailed, RedemptionCancelled:
	default:
		return nil, errutil.BadRequest("unknown redemption status", nil)
	}

	var out *AffiliateRedemption
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.redemption.WithTrx(tx).FindOne(ctx, &AffiliateRedemption{ID: id}, option.Equal("organization_id", actor.OrganizationID), option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if r == nil {
			return errutil.NotFound("Redemption not found", nil)
		}
		if r.Status != RedemptionPending {
			return errutil.Conflict("Redemption was already processed", nil)
		}

		now := time.Now().UTC()
		updates := map[string]any{"status": status, "processed_by": actor.UserID, "processed_at": now}
		if req.Notes != "" {
			updates["notes"] = req.Notes
			r.Notes = req.Notes
		}
		if err := s.redemption.WithTrx(tx).Update(ctx, r.ID, updates); err != nil {
			return err
		}
		r.Status, r.ProcessedBy, r.ProcessedAt = status, actor.UserID, &now
		out = r

		if status == RedemptionCompleted {
			return nil
		}
		a, err := s.affiliate.WithTrx(tx).FindOne(ctx, &Affiliate{ID: r.AffiliateID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if a == nil {
			return errutil.NotFound("Affiliate not found", nil)
		}
		_, err = s.post(ctx, tx, a, entry{
			activity:    ActivityRedemptionRefund,
			points:      r.PointsSpent,
			redeemed:    -r.PointsSpent,
			description: "refund of redemption " + r.ID,
			referenceID: r.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
