package affiliate

import (
	"context"
	"fmt"
	"strings"

	"endurancy-platform/pkg/db/option"
	"endurancy-platform/pkg/db/pagination"
	"endurancy-platform/pkg/emailtemplate"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/logger"
	"endurancy-platform/pkg/mailer"
	"endurancy-platform/pkg/task"
	"endurancy-platform/pkg/taskname"
	"endurancy-platform/services/notification"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// CreateReferral records that the affiliate owning req.AffiliateCode brought
// in a new user. The referrer is told asynchronously.
func (s *Service) CreateReferral(ctx context.Context, actor Actor, req ReferralRequest) (*AffiliateReferral, error) {
	req.AffiliateCode = strings.ToUpper(strings.TrimSpace(req.AffiliateCode))
	req.ReferredEmail = strings.ToLower(strings.TrimSpace(req.ReferredEmail))
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}

	referrer, err := s.affiliate.FindOne(ctx, &Affiliate{AffiliateCode: req.AffiliateCode}, option.Equal("organization_id", actor.OrganizationID))
	if err != nil {
		return nil, err
	}
	if referrer == nil || !referrer.IsActive {
		return nil, errutil.NotFound("Affiliate code not found", nil)
	}

	if req.ReferredUserID != "" {
		referred, err := s.users.GetInOrganization(ctx, actor.OrganizationID, req.ReferredUserID)
		if err != nil {
			return nil, err
		}
		if req.ReferredEmail == "" {
			req.ReferredEmail = referred.Email
		}
	}

	if req.ReferredUserID == referrer.UserID {
		return nil, errutil.Conflict("Affiliates cannot refer themselves", nil)
	}
	if owner, err := s.users.Get(ctx, referrer.UserID); err == nil && strings.EqualFold(owner.Email, req.ReferredEmail) {
		return nil, errutil.Conflict("Affiliates cannot refer themselves", nil)
	}

	dup := s.db.WithContext(ctx).Model(&AffiliateReferral{}).Where("organization_id = ?", actor.OrganizationID)
	if req.ReferredUserID != "" {
		dup = dup.Where("referred_user_id = ? OR referred_email = ?", req.ReferredUserID, req.ReferredEmail)
	} else {
		dup = dup.Where("referred_email = ?", req.ReferredEmail)
	}
	var n int64
	if err := dup.Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, errutil.Conflict("This user was already referred", nil)
	}

	ref := &AffiliateReferral{
		ID:             s.ids.NewID(),
		OrganizationID: actor.OrganizationID,
		ReferrerID:     referrer.ID,
		ReferredUserID: req.ReferredUserID,
		ReferredEmail:  req.ReferredEmail,
		Status:         ReferralPending,
	}
	if err := s.referral.Create(ctx, ref); err != nil {
		return nil, err
	}

	job, err := task.NewJSONTask(taskname.AffiliateReferralNotify, referralPayload{ReferralID: ref.ID})
	if err == nil {
		_, err = s.enqueuer.Enqueue(job, asynq.Queue(task.QueueDefault), asynq.MaxRetry(5))
	}
	if err != nil {
		logger.FromContext(ctx).Warn("failed to enqueue referral notification", zap.String("referral_id", ref.ID), zap.Error(err))
	}
	return ref, nil
}

func (s *Service) ListReferrals(ctx context.Context, actor Actor, affiliateID string, p pagination.Pagination) ([]*AffiliateReferral, *pagination.PageInfo, error) {
	a, err := s.get(ctx, actor, affiliateID)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.referral.Find(ctx, &AffiliateReferral{ReferrerID: a.ID}, option.WithSortBy(option.QuerySortBy{}), option.ApplyPagination(p))
	if err != nil {
		return nil, nil, err
	}
	data, info := pagination.Page(rows, p.Normalize().Limit, func(r *AffiliateReferral) string {
		return pagination.CursorOf(r.ID, r.CreatedAt)
	})
	return data, info, nil
}

// HandleReferralNotify tells the referrer, in app and by e-mail, that a
// referral was registered.
func (s *Service) HandleReferralNotify(ctx context.Context, t *asynq.Task) error {
	var p referralPayload
	if err := task.Decode(t, &p); err != nil {
		return err
	}

	ref, err := s.referral.FindByID(ctx, p.ReferralID)
	if err != nil {
		return err
	}
	if ref == nil {
		return nil
	}
	referrer, err := s.affiliate.FindByID(ctx, ref.ReferrerID)
	if err != nil {
		return err
	}
	if referrer == nil {
		return nil
	}
	owner, err := s.users.Get(ctx, referrer.UserID)
	if err != nil {
		return fmt.Errorf("load referrer: %v: %w", err, asynq.SkipRetry)
	}

	referredName := ref.ReferredEmail
	if ref.ReferredUserID != "" {
		if u, err := s.users.Get(ctx, ref.ReferredUserID); err == nil {
			referredName = u.Name
		}
	}

	if err := s.notifier.Notify(ctx, notification.Notice{
		OrganizationID: referrer.OrganizationID,
		UserID:         owner.ID,
		Type:           notification.TypeSuccess,
		Title:          "Nova indicação registrada",
		Message:        referredName,
		Link:           "/affiliate/referrals",
	}); err != nil {
		return err
	}

	msg, err := emailtemplate.ReferralReceived(emailtemplate.Referral{
		ReferrerName:  owner.Name,
		ReferredName:  referredName,
		AffiliateCode: referrer.AffiliateCode,
	})
	if err != nil {
		return err
	}
	return s.outbox.Deliver(ctx, mailer.Message{To: []string{owner.Email}, Subject: msg.Subject, HTML: msg.HTML})
}
