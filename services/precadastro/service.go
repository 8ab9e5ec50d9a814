package precadastro

import (
	"context"
	"encoding/json"
	"strings"

	"endurancy-platform/pkg/config"
	"endurancy-platform/pkg/db/option"
	"endurancy-platform/pkg/db/pagination"
	"endurancy-platform/pkg/dns"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/gen"
	"endurancy-platform/pkg/logger"
	"endurancy-platform/pkg/repository"
	"endurancy-platform/services/user"

	"github.com/go-playground/validator/v10"
	"go.temporal.io/sdk/client"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	ids      gen.IDGenerator
	validate *validator.Validate

	verifyDomain bool
	verifier     dns.MailDomainVerifier
	temporal     client.Client
	taskQueue    string
	activities   *Activities
	users        *user.Service

	lead repository.Repository[PreCadastro]
}

type ServiceParams struct {
	fx.In
	DB         *gorm.DB
	IDs        gen.IDGenerator
	Config     *config.Config
	Verifier   dns.MailDomainVerifier `optional:"true"`
	Temporal   client.Client          `optional:"true"`
	Activities *Activities
	Users      *user.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		ids:      p.IDs,
		validate: validator.New(),

		verifyDomain: p.Config.Features.VerifyLeadEmailDomain && p.Verifier != nil,
		verifier:     p.Verifier,
		temporal:     p.Temporal,
		taskQueue:    p.Config.Temporal.TaskQueue,
		activities:   p.Activities,
		users:        p.Users,

		lead: repository.ProvideStore[PreCadastro](p.DB),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create stores a public pre-registration. An e-mail may only have one open
// lead at a time.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*PreCadastro, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}
	if !req.TermosAceitos {
		return nil, errutil.ValidationFailed("validation failed", nil, errutil.WithDetails(errutil.Detail{
			Field:   "TermosAceitos",
			Message: "must be accepted",
		}))
	}

	if s.verifyDomain {
		if err := s.verifier.VerifyMailDomain(ctx, req.Email); err != nil {
			return nil, errutil.ValidationFailed("validation failed", err, errutil.WithDetails(errutil.Detail{
				Field:   "Email",
				Message: "domain does not accept mail",
			}))
		}
	}

	open, err := s.lead.Count(ctx, &PreCadastro{Email: req.Email}, option.ApplyOperator(option.Condition{
		Field:    "status",
		Operator: option.IN,
		Value:    []string{StatusNovo, StatusContatado},
	}))
	if err != nil {
		return nil, err
	}
	if open > 0 {
		return nil, errutil.Conflict("A pre-registration for this e-mail is already open", nil)
	}

	modules := req.ModulosSelecionados
	if modules == nil {
		modules = []string{}
	}
	b, err := json.Marshal(modules)
	if err != nil {
		return nil, err
	}

	lead := &PreCadastro{
		ID:                  s.ids.NewID(),
		Name:                strings.TrimSpace(req.Name),
		Email:               req.Email,
		Phone:               req.Phone,
		Organization:        strings.TrimSpace(req.Organization),
		Interest:            req.Interest,
		ModulosSelecionados: datatypes.JSON(b),
		TermosAceitos:       true,
		Status:              StatusNovo,
	}
	if err := s.lead.Create(ctx, lead); err != nil {
		logger.FromContext(ctx).Error("failed to create pre-registration", zap.Error(err))
		return nil, err
	}
	return lead, nil
}

func (s *Service) Get(ctx context.Context, id string) (*PreCadastro, error) {
	lead, err := s.lead.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, errutil.NotFound("Pre-registration not found", nil)
	}
	return lead, nil
}

func (s *Service) List(ctx context.Context, req ListRequest, p pagination.Pagination) ([]*PreCadastro, *pagination.PageInfo, error) {
	rows, err := s.lead.Find(ctx, &PreCadastro{Status: req.Status},
		option.Contains("organization", req.Query),
		option.WithSortBy(option.QuerySortBy{}),
		option.ApplyPagination(p),
	)
	if err != nil {
		return nil, nil, err
	}
	data, info := pagination.Page(rows, p.Normalize().Limit, func(l *PreCadastro) string {
		return pagination.CursorOf(l.ID, l.CreatedAt)
	})
	return data, info, nil
}

// UpdateStatus moves a lead through the sales funnel. convertido is only
// reachable through Convert.
func (s *Service) UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (*PreCadastro, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}
	lead, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead.Status == StatusConvertido {
		return nil, errutil.Conflict("Pre-registration was already converted", nil)
	}

	updates := map[string]any{"status": req.Status}
	if req.Notes != "" {
		updates["notes"] = req.Notes
		lead.Notes = req.Notes
	}
	if err := s.lead.Update(ctx, lead.ID, updates); err != nil {
		return nil, err
	}
	lead.Status = req.Status
	return lead, nil
}

// Convert onboards the lead. With Temporal configured the onboarding
// workflow is started and the call returns right away, otherwise the
// activities run inline.
func (s *Service) Convert(ctx context.Context, id string, req ConvertRequest) (*ConvertResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}
	lead, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch lead.Status {
	case StatusConvertido:
		return nil, errutil.Conflict("Pre-registration was already converted", nil)
	case StatusDescartado:
		return nil, errutil.UnprocessableEntity("Discarded pre-registrations cannot be converted", nil)
	}
	if lead.UserID == "" {
		existing, err := s.users.FindByEmail(ctx, lead.Email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, errutil.Conflict("A user with this email already exists", nil)
		}
	}

	in := OnboardingInput{LeadID: lead.ID, OrganizationType: req.OrganizationType}
	if s.temporal == nil {
		res, err := s.activities.runInline(ctx, in)
		if err != nil {
			return nil, err
		}
		return &ConvertResult{
			LeadID:         lead.ID,
			Status:         StatusConvertido,
			OrganizationID: res.OrganizationID,
			UserID:         res.UserID,
		}, nil
	}

	run, err := s.temporal.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "precadastro-onboarding-" + lead.ID,
		TaskQueue: s.taskQueue,
	}, OnboardLead, in)
	if err != nil {
		logger.FromContext(ctx).Error("failed to start onboarding workflow", zap.String("lead_id", lead.ID), zap.Error(err))
		return nil, errutil.ServiceUnavailable("failed to start onboarding", err)
	}
	return &ConvertResult{
		LeadID:     lead.ID,
		Status:     "processing",
		WorkflowID: run.GetID(),
		RunID:      run.GetRunID(),
	}, nil
}
