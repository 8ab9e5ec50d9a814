package affiliate

import (
	"context"
	"strings"

	"endurancy-platform/pkg/access"
	"endurancy-platform/pkg/celengine"
	"endurancy-platform/pkg/config"
	"endurancy-platform/pkg/db/option"
	"endurancy-platform/pkg/db/pagination"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/gen"
	"endurancy-platform/pkg/logger"
	"endurancy-platform/pkg/mailer"
	"endurancy-platform/pkg/minio"
	"endurancy-platform/pkg/repository"
	"endurancy-platform/pkg/sequence"
	"endurancy-platform/pkg/task"
	"endurancy-platform/services/notification"
	"endurancy-platform/services/user"

	"github.com/go-playground/validator/v10"
	"github.com/google/cel-go/cel"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Service struct {
	db         *gorm.DB
	ids        gen.IDGenerator
	validate   *validator.Validate
	codePrefix string
	rules      *celengine.Engine

	users    *user.Service
	seq      sequence.Generator
	enqueuer task.Enqueuer
	notifier notification.Notifier
	outbox   mailer.Outbox
	storage  minio.ObjectStorage

	affiliate  repository.Repository[Affiliate]
	point      repository.Repository[AffiliatePoint]
	referral   repository.Repository[AffiliateReferral]
	reward     repository.Repository[AffiliateReward]
	redemption repository.Repository[AffiliateRedemption]
	material   repository.Repository[PromotionalMaterial]
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	IDs      gen.IDGenerator
	Config   *config.Config
	Users    *user.Service
	Sequence sequence.Generator
	Enqueuer task.Enqueuer
	Notifier notification.Notifier
	Outbox   mailer.Outbox
	Storage  minio.ObjectStorage
}

// NewRuleEngine declares the attributes reward eligibility expressions may
// reference.
func NewRuleEngine() (*celengine.Engine, error) {
	return celengine.New(
		celengine.Variable{Name: "level", Type: cel.StringType},
		celengine.Variable{Name: "points", Type: cel.IntType},
		celengine.Variable{Name: "totalEarned", Type: cel.IntType},
		celengine.Variable{Name: "affiliateType", Type: cel.StringType},
	)
}

func NewService(p ServiceParams) (*Service, error) {
	rules, err := NewRuleEngine()
	if err != nil {
		return nil, err
	}

	return &Service{
		db:         p.DB,
		ids:        p.IDs,
		validate:   validator.New(),
		codePrefix: p.Config.Features.AffiliateCodePrefix,
		rules:      rules,

		users:    p.Users,
		seq:      p.Sequence,
		enqueuer: p.Enqueuer,
		notifier: p.Notifier,
		outbox:   p.Outbox,
		storage:  p.Storage,

		affiliate:  repository.ProvideStore[Affiliate](p.DB),
		point:      repository.ProvideStore[AffiliatePoint](p.DB),
		referral:   repository.ProvideStore[AffiliateReferral](p.DB),
		reward:     repository.ProvideStore[AffiliateReward](p.DB),
		redemption: repository.ProvideStore[AffiliateRedemption](p.DB),
		material:   repository.ProvideStore[PromotionalMaterial](p.DB),
	}, nil
}

// get loads an affiliate of the caller's organization. Non managers may only
// reach their own.
func (s *Service) get(ctx context.Context, actor Actor, id string) (*Affiliate, error) {
	return s.load(ctx, s.db, actor, id)
}

func (s *Service) load(ctx context.Context, db *gorm.DB, actor Actor, id string, opts ...option.QueryOption) (*Affiliate, error) {
	opts = append([]option.QueryOption{option.Equal("organization_id", actor.OrganizationID)}, opts...)
	a, err := s.affiliate.WithTrx(db).FindOne(ctx, &Affiliate{ID: id}, opts...)
	if err != nil {
		return nil, err
	}
	if a == nil || (!access.IsManager(actor.Role) && a.UserID != actor.UserID) {
		return nil, errutil.NotFound("Affiliate not found", nil)
	}
	return a, nil
}

func (s *Service) Enroll(ctx context.Context, actor Actor, req EnrollRequest) (*Affiliate, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}

	userID := actor.UserID
	if req.UserID != "" && req.UserID != actor.UserID {
		if !access.IsManager(actor.Role) {
			return nil, errutil.Forbidden("Only managers can enroll other users", nil)
		}
		if _, err := s.users.GetInOrganization(ctx, actor.OrganizationID, req.UserID); err != nil {
			return nil, err
		}
		userID = req.UserID
	}

	existing, err := s.affiliate.FindOne(ctx, &Affiliate{UserID: userID, OrganizationID: actor.OrganizationID})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errutil.Conflict("User is already an affiliate of this organization", nil)
	}

	code, err := s.seq.NextAffiliateCode(ctx, actor.OrganizationID, s.codePrefix)
	if err != nil {
		logger.FromContext(ctx).Error("failed to generate affiliate code", zap.Error(err))
		return nil, errutil.ServiceUnavailable("failed to generate affiliate code", err)
	}

	a := &Affiliate{
		ID:             s.ids.NewID(),
		UserID:         userID,
		OrganizationID: actor.OrganizationID,
		AffiliateCode:  code,
		Type:           req.Type,
		Level:          LevelBeginner,
		IsActive:       true,
	}
	if err := s.affiliate.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Me(ctx context.Context, actor Actor) (*Affiliate, error) {
	a, err := s.affiliate.FindOne(ctx, &Affiliate{UserID: actor.UserID, OrganizationID: actor.OrganizationID})
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, errutil.NotFound("You are not enrolled as an affiliate", nil)
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, actor Actor, id string) (*Affiliate, error) {
	return s.get(ctx, actor, id)
}

func (s *Service) List(ctx context.Context, actor Actor, req ListRequest, p pagination.Pagination) ([]*Affiliate, *pagination.PageInfo, error) {
	opts := []option.QueryOption{
		option.Equal("organization_id", actor.OrganizationID),
		option.Contains("affiliate_code", req.Query),
	}
	if req.IsActive != nil {
		opts = append(opts, option.Equal("is_active", *req.IsActive))
	}
	opts = append(opts, option.WithSortBy(option.QuerySortBy{}), option.ApplyPagination(p))

	rows, err := s.affiliate.Find(ctx, &Affiliate{Level: req.Level, Type: req.Type}, opts...)
	if err != nil {
		return nil, nil, err
	}
	data, info := pagination.Page(rows, p.Normalize().Limit, func(a *Affiliate) string {
		return pagination.CursorOf(a.ID, a.CreatedAt)
	})
	return data, info, nil
}

// SetLevel assigns a level explicitly. Levels never change on their own.
func (s *Service) SetLevel(ctx context.Context, actor Actor, id string, req SetLevelRequest) (*Affiliate, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}
	a, err := s.get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.affiliate.Update(ctx, a.ID, map[string]any{"level": req.Level}); err != nil {
		return nil, err
	}
	a.Level = req.Level
	return a, nil
}

func (s *Service) SetStatus(ctx context.Context, actor Actor, id string, req SetStatusRequest) (*Affiliate, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}
	a, err := s.get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.affiliate.Update(ctx, a.ID, map[string]any{"is_active": *req.IsActive}); err != nil {
		return nil, err
	}
	a.IsActive = *req.IsActive
	return a, nil
}

// AddPoints credits points to an affiliate. A repeated referenceId for the
// same affiliate is rejected so callers can retry safely.
func (s *Service) AddPoints(ctx context.Context, actor Actor, id string, req AddPointsRequest) (*AffiliatePoint, error) {
	req.ActivityType = strings.TrimSpace(req.ActivityType)
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}

	var out *AffiliatePoint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := s.load(ctx, tx, actor, id, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if !a.IsActive {
			return errutil.UnprocessableEntity("Affiliate is inactive", nil)
		}

		if req.ReferenceID != "" {
			dup, err := s.point.WithTrx(tx).Count(ctx, &AffiliatePoint{AffiliateID: a.ID, ReferenceID: req.ReferenceID})
			if err != nil {
				return err
			}
			if dup > 0 {
				return errutil.Conflict("Points already credited for this reference", nil)
			}
		}

		var meta any
		if len(req.Metadata) > 0 {
			meta = req.Metadata
		}
		out, err = s.post(ctx, tx, a, entry{
			activity:    req.ActivityType,
			points:      req.Points,
			description: req.Description,
			referenceID: req.ReferenceID,
			metadata:    meta,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) ListPoints(ctx context.Context, actor Actor, id string, p pagination.Pagination) ([]*AffiliatePoint, *pagination.PageInfo, error) {
	a, err := s.get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.point.Find(ctx, &AffiliatePoint{AffiliateID: a.ID}, option.WithSortBy(option.QuerySortBy{}), option.ApplyPagination(p))
	if err != nil {
		return nil, nil, err
	}
	data, info := pagination.Page(rows, p.Normalize().Limit, func(e *AffiliatePoint) string {
		return pagination.CursorOf(e.ID, e.CreatedAt)
	})
	return data, info, nil
}

func (s *Service) Stats(ctx context.Context, actor Actor, id string) (*Stats, error) {
	a, err := s.get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	st := &Stats{
		AffiliateID:   a.ID,
		Level:         a.Level,
		Points:        a.Points,
		TotalEarned:   a.TotalEarned,
		TotalRedeemed: a.TotalRedeemed,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.Referrals, err = s.referral.Count(gctx, &AffiliateReferral{ReferrerID: a.ID})
		return err
	})
	g.Go(func() (err error) {
		st.LedgerEntries, err = s.point.Count(gctx, &AffiliatePoint{AffiliateID: a.ID})
		return err
	})
	g.Go(func() (err error) {
		st.RedemptionsPending, err = s.redemption.Count(gctx, &AffiliateRedemption{AffiliateID: a.ID, Status: RedemptionPending})
		return err
	})
	g.Go(func() (err error) {
		st.RedemptionsCompleted, err = s.redemption.Count(gctx, &AffiliateRedemption{AffiliateID: a.ID, Status: RedemptionCompleted})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return st, nil
}
