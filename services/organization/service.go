package organization

import (
	"context"

	"endurancy-platform/pkg/db/option"
	"endurancy-platform/pkg/db/pagination"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/gen"
	"endurancy-platform/pkg/logger"
	"endurancy-platform/pkg/repository"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	ids      gen.IDGenerator
	validate *validator.Validate

	organization repository.Repository[Organization]
}

type ServiceParams struct {
	fx.In
	DB  *gorm.DB
	IDs gen.IDGenerator
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		ids:      p.IDs,
		validate: validator.New(),

		organization: repository.ProvideStore[Organization](p.DB),
	}
}

// WithTrx returns a copy bound to tx, for callers composing a larger
// transaction such as lead conversion.
func (s *Service) WithTrx(tx *gorm.DB) *Service {
	cp := *s
	cp.db = tx
	cp.organization = s.organization.WithTrx(tx)
	return &cp
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Organization, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}

	sl := slug.Make(req.Name)
	exist, err := s.organization.FindOne(ctx, &Organization{Slug: sl})
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, errutil.Conflict("An organization with this name already exists", nil)
	}

	org := &Organization{
		ID:       s.ids.NewID(),
		Name:     req.Name,
		Slug:     sl,
		Type:     req.Type,
		Status:   StatusActive,
		Document: req.Document,
		Email:    req.Email,
		Phone:    req.Phone,
	}
	if err := s.organization.Create(ctx, org); err != nil {
		logger.FromContext(ctx).Error("failed to create organization", zap.Error(err))
		return nil, err
	}

	logger.FromContext(ctx).Info("organization created", zap.String("organization_id", org.ID), zap.String("slug", org.Slug))
	return org, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Organization, error) {
	org, err := s.organization.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, errutil.NotFound("Organization not found", nil)
	}
	return org, nil
}

func (s *Service) List(ctx context.Context, req ListRequest, p pagination.Pagination) ([]*Organization, *pagination.PageInfo, error) {
	opts := []option.QueryOption{
		option.Contains("name", req.Query),
		option.WithSortBy(option.QuerySortBy{}),
		option.ApplyPagination(p),
	}

	orgs, err := s.organization.Find(ctx, &Organization{Status: req.Status, Type: req.Type}, opts...)
	if err != nil {
		return nil, nil, err
	}

	data, info := pagination.Page(orgs, p.Normalize().Limit, func(o *Organization) string {
		return pagination.CursorOf(o.ID, o.CreatedAt)
	})
	return data, info, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (*Organization, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}

	org, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.organization.Update(ctx, id, map[string]any{"status": req.Status}); err != nil {
		return nil, err
	}
	org.Status = req.Status
	return org, nil
}
