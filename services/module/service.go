package module

import (
	"context"
	"strings"
	"time"

	"endurancy-platform/pkg/cache"
	"endurancy-platform/pkg/db/option"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/featureflags"
	"endurancy-platform/pkg/gen"
	"endurancy-platform/pkg/logger"
	"endurancy-platform/pkg/rediskey"
	"endurancy-platform/pkg/repository"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	catalogTTL = 10 * time.Minute
	orgTTL     = 5 * time.Minute
)

type Service struct {
	db       *gorm.DB
	ids      gen.IDGenerator
	validate *validator.Validate
	cache    *cache.Loader
	flags    featureflags.FeatureFlag

	module       repository.Repository[CatalogModule]
	plan         repository.Repository[Plan]
	subscription repository.Repository[Subscription]
}

type ServiceParams struct {
	fx.In
	DB    *gorm.DB
	IDs   gen.IDGenerator
	Cache cache.Store
	Flags featureflags.FeatureFlag
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		ids:      p.IDs,
		validate: validator.New(),
		cache:    cache.NewLoader(p.Cache, "module"),
		flags:    p.Flags,

		module:       repository.ProvideStore[CatalogModule](p.DB),
		plan:         repository.ProvideStore[Plan](p.DB),
		subscription: repository.ProvideStore[Subscription](p.DB),
	}
}

func byPosition() option.QueryOption {
	return option.WithSortBy(option.QuerySortBy{SortBy: "sort_order", OrderBy: "asc", Allow: map[string]bool{"sort_order": true}})
}

// Catalog returns the active modules, served from Redis.
func (s *Service) Catalog(ctx context.Context) ([]*CatalogModule, error) {
	return cache.Load(ctx, s.cache, rediskey.ModuleCatalogKey, catalogTTL, func(ctx context.Context) ([]*CatalogModule, error) {
		return s.module.Find(ctx, nil, option.Equal("is_active", true), byPosition())
	})
}

func (s *Service) CreateModule(ctx context.Context, req CreateModuleRequest) (*CatalogModule, error) {
	req.Key = slug.Make(req.Key)
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}
	exist, err := s.module.FindOne(ctx, &CatalogModule{Key: req.Key})
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, errutil.Conflict("A module with this key already exists", nil)
	}

	m := &CatalogModule{
		ID:          s.ids.NewID(),
		Key:         req.Key,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		SortOrder:   req.SortOrder,
		IsActive:    true,
	}
	if err := s.module.Create(ctx, m); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, rediskey.ModuleCatalogKey)
	return m, nil
}

// Plans returns the active plans, optionally of one module.
func (s *Service) Plans(ctx context.Context, moduleID string) ([]*Plan, error) {
	plans, err := cache.Load(ctx, s.cache, rediskey.ModulePlansKey, catalogTTL, func(ctx context.Context) ([]*Plan, error) {
		return s.plan.Find(ctx, nil, option.Equal("is_active", true),
			option.WithSortBy(option.QuerySortBy{SortBy: "price_cents", OrderBy: "asc", Allow: map[string]bool{"price_cents": true}}))
	})
	if err != nil || moduleID == "" {
		return plans, err
	}
	out := make([]*Plan, 0, len(plans))
	for _, p := range plans {
		if p.ModuleID == moduleID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) CreatePlan(ctx context.Context, req CreatePlanRequest) (*Plan, error) {
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}
	m, err := s.module.FindByID(ctx, req.ModuleID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errutil.NotFound("Module not found", nil)
	}
	if req.Currency == "" {
		req.Currency = "BRL"
	}

	p := &Plan{
		ID:            s.ids.NewID(),
		ModuleID:      m.ID,
		Name:          req.Name,
		BillingPeriod: req.BillingPeriod,
		PriceCents:    req.PriceCents,
		Currency:      req.Currency,
		IsActive:      true,
	}
	if err := s.plan.Create(ctx, p); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, rediskey.ModulePlansKey)
	return p, nil
}

func (s *Service) subscriptions(ctx context.Context, organizationID string) ([]*OrganizationModule, error) {
	return cache.Load(ctx, s.cache, rediskey.BuildOrgModulesKey(organizationID), orgTTL, func(ctx context.Context) ([]*OrganizationModule, error) {
		subs, err := s.subscription.Find(ctx, &Subscription{OrganizationID: organizationID, Status: SubscriptionActive})
		if err != nil {
			return nil, err
		}
		out := make([]*OrganizationModule, 0, len(subs))
		for _, sub := range subs {
			m, err := s.module.FindByID(ctx, sub.ModuleID)
			if err != nil {
				return nil, err
			}
			p, err := s.plan.FindByID(ctx, sub.PlanID)
			if err != nil {
				return nil, err
			}
			if m == nil || !m.IsActive {
				continue
			}
			out = append(out, &OrganizationModule{Module: m, Plan: p, SubscribedAt: sub.SubscribedAt})
		}
		return out, nil
	})
}

// OrganizationModules lists the organization's subscribed modules that are
// also switched on in Flagsmith. A Flagsmith failure keeps the module on.
func (s *Service) OrganizationModules(ctx context.Context, organizationID string) ([]*OrganizationModule, error) {
	subs, err := s.subscriptions(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	out := make([]*OrganizationModule, 0, len(subs))
	for _, om := range subs {
		on, err := s.flags.ModuleEnabled(ctx, organizationID, om.Module.Key)
		if err != nil {
			logger.FromContext(ctx).Warn("feature flag lookup failed", zap.String("module", om.Module.Key), zap.Error(err))
			on = true
		}
		if on {
			out = append(out, om)
		}
	}
	return out, nil
}

func (s *Service) Subscribe(ctx context.Context, organizationID string, req SubscribeRequest) (*Subscription, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}

	var out *Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.plan.WithTrx(tx).FindByID(ctx, req.PlanID)
		if err != nil {
			return err
		}
		if p == nil || !p.IsActive {
			return errutil.NotFound("Plan not found", nil)
		}

		sub, err := s.subscription.WithTrx(tx).FindOne(ctx, &Subscription{OrganizationID: organizationID, ModuleID: p.ModuleID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		if sub == nil {
			out = &Subscription{
				ID:             s.ids.NewID(),
				OrganizationID: organizationID,
				ModuleID:       p.ModuleID,
				PlanID:         p.ID,
				Status:         SubscriptionActive,
				SubscribedAt:   now,
			}
			return s.subscription.WithTrx(tx).Create(ctx, out)
		}
		if sub.Status == SubscriptionActive {
			return errutil.Conflict("Organization is already subscribed to this module", nil)
		}
		sub.PlanID, sub.Status, sub.SubscribedAt, sub.CancelledAt = p.ID, SubscriptionActive, now, nil
		out = sub
		return s.subscription.WithTrx(tx).Update(ctx, sub.ID, map[string]any{
			"plan_id":       p.ID,
			"status":        SubscriptionActive,
			"subscribed_at": now,
			"cancelled_at":  nil,
		})
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, rediskey.BuildOrgModulesKey(organizationID))
	return out, nil
}

func (s *Service) Unsubscribe(ctx context.Context, organizationID, moduleID string) error {
	sub, err := s.subscription.FindOne(ctx, &Subscription{OrganizationID: organizationID, ModuleID: moduleID, Status: SubscriptionActive})
	if err != nil {
		return err
	}
	if sub == nil {
		return errutil.NotFound("Subscription not found", nil)
	}
	if err := s.subscription.Update(ctx, sub.ID, map[string]any{
		"status":       SubscriptionCancelled,
		"cancelled_at": time.Now().UTC(),
	}); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, rediskey.BuildOrgModulesKey(organizationID))
	return nil
}
