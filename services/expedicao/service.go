package expedicao

import (
	"context"
	"slices"
	"strings"
	"time"

	"endurancy-platform/pkg/cache"
	"endurancy-platform/pkg/db/option"
	"endurancy-platform/pkg/db/pagination"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/gen"
	"endurancy-platform/pkg/logger"
	"endurancy-platform/pkg/rediskey"
	"endurancy-platform/pkg/repository"
	"endurancy-platform/pkg/sequence"

	"github.com/go-playground/validator/v10"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const byStateTTL = 60 * time.Second

type Actor struct {
	UserID         string
	OrganizationID string
}

type Service struct {
	db       *gorm.DB
	ids      gen.IDGenerator
	validate *validator.Validate
	seq      sequence.Generator
	cache    *cache.Loader

	shipment repository.Repository[Shipment]
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	IDs      gen.IDGenerator
	Sequence sequence.Generator
	Cache    cache.Store
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		ids:      p.IDs,
		validate: validator.New(),
		seq:      p.Sequence,
		cache:    cache.NewLoader(p.Cache, "expedicao"),

		shipment: repository.ProvideStore[Shipment](p.DB),
	}
}

func invalidState() error {
	return errutil.ValidationFailed("validation failed", nil, errutil.WithDetails(errutil.Detail{
		Field:   "State",
		Message: "must be a Brazilian state (UF)",
	}))
}

func (s *Service) Create(ctx context.Context, actor Actor, req CreateRequest) (*Shipment, error) {
	req.State = strings.ToUpper(strings.TrimSpace(req.State))
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}
	if _, ok := States[req.State]; !ok {
		return nil, invalidState()
	}

	code, err := s.seq.NextShipmentCode(ctx, actor.OrganizationID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to generate shipment code", zap.Error(err))
		return nil, errutil.ServiceUnavailable("failed to generate shipment code", err)
	}

	sh := &Shipment{
		ID:             s.ids.NewID(),
		OrganizationID: actor.OrganizationID,
		Code:           code,
		RecipientName:  strings.TrimSpace(req.RecipientName),
		State:          req.State,
		City:           strings.TrimSpace(req.City),
		Carrier:        req.Carrier,
		TrackingCode:   req.TrackingCode,
		Status:         StatusPending,
		CreatedBy:      actor.UserID,
	}
	if err := s.shipment.Create(ctx, sh); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, rediskey.BuildShipmentsByStateKey(actor.OrganizationID))
	return sh, nil
}

func (s *Service) Get(ctx context.Context, actor Actor, id string) (*Shipment, error) {
	sh, err := s.shipment.FindOne(ctx, &Shipment{ID: id}, option.Equal("organization_id", actor.OrganizationID))
	if err != nil {
		return nil, err
	}
	if sh == nil {
		return nil, errutil.NotFound("Shipment not found", nil)
	}
	return sh, nil
}

func (s *Service) List(ctx context.Context, actor Actor, req ListRequest, p pagination.Pagination) ([]*Shipment, *pagination.PageInfo, error) {
	rows, err := s.shipment.Find(ctx, &Shipment{Status: req.Status, State: strings.ToUpper(req.State)},
		option.Equal("organization_id", actor.OrganizationID),
		option.WithSortBy(option.QuerySortBy{}),
		option.ApplyPagination(p),
	)
	if err != nil {
		return nil, nil, err
	}
	data, info := pagination.Page(rows, p.Normalize().Limit, func(sh *Shipment) string {
		return pagination.CursorOf(sh.ID, sh.CreatedAt)
	})
	return data, info, nil
}

// UpdateStatus moves a shipment forward. delivered and returned are final.
func (s *Service) UpdateStatus(ctx context.Context, actor Actor, id string, req UpdateStatusRequest) (*Shipment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}

	var out *Shipment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sh, err := s.shipment.WithTrx(tx).FindOne(ctx, &Shipment{ID: id}, option.Equal("organization_id", actor.OrganizationID), option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if sh == nil {
			return errutil.NotFound("Shipment not found", nil)
		}
		if !slices.Contains(transitions[sh.Status], req.Status) {
			return errutil.Conflict("Shipment cannot move from "+sh.Status+" to "+req.Status, nil)
		}

		now := time.Now().UTC()
		updates := map[string]any{"status": req.Status}
		switch req.Status {
		case StatusInTransit:
			updates["shipped_at"], sh.ShippedAt = now, &now
		case StatusDelivered:
			updates["delivered_at"], sh.DeliveredAt = now, &now
		}
		if req.TrackingCode != "" {
			updates["tracking_code"], sh.TrackingCode = req.TrackingCode, req.TrackingCode
		}
		if err := s.shipment.WithTrx(tx).Update(ctx, sh.ID, updates); err != nil {
			return err
		}
		sh.Status = req.Status
		out = sh
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, rediskey.BuildShipmentsByStateKey(actor.OrganizationID))
	return out, nil
}

// ByState aggregates the organization's shipments per UF, busiest first.
// Results are cached for a minute and dropped on every write.
func (s *Service) ByState(ctx context.Context, actor Actor) ([]StateSummary, error) {
	return cache.Load(ctx, s.cache, rediskey.BuildShipmentsByStateKey(actor.OrganizationID), byStateTTL, func(ctx context.Context) ([]StateSummary, error) {
		rows := []StateSummary{}
		err := s.db.WithContext(ctx).Model(&Shipment{}).
			Select(`state,
				COUNT(*) AS total,
				SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS delivered,
				SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS in_transit,
				SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS pending,
				SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS returned`,
				StatusDelivered, StatusInTransit, StatusPending, StatusReturned).
			Where("organization_id = ?", actor.OrganizationID).
			Group("state").
			Order("total DESC, state ASC").
			Scan(&rows).Error
		return rows, err
	})
}
