package precadastro

import (
	"context"
	"strings"
	"time"

	"endurancy-platform/pkg/access"
	"endurancy-platform/pkg/config"
	"endurancy-platform/pkg/db/option"
	"endurancy-platform/pkg/emailtemplate"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/logger"
	"endurancy-platform/pkg/mailer"
	"endurancy-platform/pkg/repository"
	"endurancy-platform/pkg/security"
	"endurancy-platform/services/organization"
	"endurancy-platform/services/user"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const temporaryPasswordLength = 16

// Activities are the onboarding steps. Each one is idempotent: a retried
// step returns what the previous attempt already wrote on the lead.
type Activities struct {
	db        *gorm.DB
	orgs      *organization.Service
	users     *user.Service
	outbox    mailer.Outbox
	publicURL string

	lead repository.Repository[PreCadastro]
}

type ActivitiesParams struct {
	fx.In
	DB            *gorm.DB
	Config        *config.Config
	Organizations *organization.Service
	Users         *user.Service
	Outbox        mailer.Outbox
}

func NewActivities(p ActivitiesParams) *Activities {
	return &Activities{
		db:        p.DB,
		orgs:      p.Organizations,
		users:     p.Users,
		outbox:    p.Outbox,
		publicURL: strings.TrimRight(p.Config.PublicURL, "/"),

		lead: repository.ProvideStore[PreCadastro](p.DB),
	}
}

func (a *Activities) lockLead(ctx context.Context, tx *gorm.DB, id string) (*PreCadastro, error) {
	lead, err := a.lead.WithTrx(tx).FindOne(ctx, &PreCadastro{ID: id}, option.WithLockingUpdate())
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, errutil.NotFound("Pre-registration not found", nil)
	}
	return lead, nil
}

// ProvisionOrganization creates the lead's organization and links it.
func (a *Activities) ProvisionOrganization(ctx context.Context, in OnboardingInput) (string, error) {
	var orgID string
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lead, err := a.lockLead(ctx, tx, in.LeadID)
		if err != nil {
			return err
		}
		if lead.OrganizationID != "" {
			orgID = lead.OrganizationID
			return nil
		}

		orgType := in.OrganizationType
		if orgType == "" {
			orgType = organization.TypeAssociation
		}
		org, err := a.orgs.WithTrx(tx).Create(ctx, organization.CreateRequest{
			Name:  lead.Organization,
			Type:  orgType,
			Email: lead.Email,
			Phone: lead.Phone,
		})
		if err != nil {
			return err
		}
		orgID = org.ID
		return a.lead.WithTrx(tx).Update(ctx, lead.ID, map[string]any{"organization_id": org.ID})
	})
	return orgID, err
}

// ProvisionAdmin creates the organization admin with a temporary password,
// mails the access instructions and marks the lead convertido. The password
// never leaves this step.
func (a *Activities) ProvisionAdmin(ctx context.Context, in AdminInput) (string, error) {
	var userID string
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lead, err := a.lockLead(ctx, tx, in.LeadID)
		if err != nil {
			return err
		}
		if lead.UserID != "" {
			userID = lead.UserID
			return nil
		}

		org, err := a.orgs.WithTrx(tx).Get(ctx, in.OrganizationID)
		if err != nil {
			return err
		}
		password, err := security.RandomPassword(temporaryPasswordLength)
		if err != nil {
			return err
		}
		u, err := a.users.WithTrx(tx).Create(ctx, user.CreateRequest{
			OrganizationID: org.ID,
			Name:           lead.Name,
			Email:          lead.Email,
			Password:       password,
			Role:           access.RoleOrgAdmin,
			Phone:          lead.Phone,
		})
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := a.lead.WithTrx(tx).Update(ctx, lead.ID, map[string]any{
			"user_id":      u.ID,
			"status":       StatusConvertido,
			"converted_at": now,
		}); err != nil {
			return err
		}

		msg, err := emailtemplate.PasswordSetup(emailtemplate.Credentials{
			Name:              u.Name,
			Email:             u.Email,
			OrganizationName:  org.Name,
			TemporaryPassword: password,
			SetupURL:          a.publicURL + "/login",
		})
		if err != nil {
			return err
		}
		if err := a.outbox.Deliver(ctx, mailer.Message{To: []string{u.Email}, Subject: msg.Subject, HTML: msg.HTML}); err != nil {
			return err
		}

		userID = u.ID
		logger.FromContext(ctx).Info("lead converted",
			zap.String("lead_id", lead.ID),
			zap.String("organization_id", org.ID),
			zap.String("user_id", u.ID),
		)
		return nil
	})
	return userID, err
}

var activities *Activities

// OnboardLead turns a pre-registration into an organization with its first
// admin. Domain errors are final, infrastructure errors are retried.
func OnboardLead(ctx workflow.Context, in OnboardingInput) (*OnboardingResult, error) {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{"BaseError"},
		},
	})

	res := &OnboardingResult{}
	if err := workflow.ExecuteActivity(ctx, activities.ProvisionOrganization, in).Get(ctx, &res.OrganizationID); err != nil {
		workflow.GetLogger(ctx).Error("ProvisionOrganization failed", "lead_id", in.LeadID, "error", err)
		return nil, err
	}
	if err := workflow.ExecuteActivity(ctx, activities.ProvisionAdmin, AdminInput{
		LeadID:         in.LeadID,
		OrganizationID: res.OrganizationID,
	}).Get(ctx, &res.UserID); err != nil {
		workflow.GetLogger(ctx).Error("ProvisionAdmin failed", "lead_id", in.LeadID, "error", err)
		return nil, err
	}
	return res, nil
}

// runInline executes the onboarding steps in process, used when no Temporal
// server is configured.
func (a *Activities) runInline(ctx context.Context, in OnboardingInput) (*OnboardingResult, error) {
	orgID, err := a.ProvisionOrganization(ctx, in)
	if err != nil {
		return nil, err
	}
	userID, err := a.ProvisionAdmin(ctx, AdminInput{LeadID: in.LeadID, OrganizationID: orgID})
	if err != nil {
		return nil, err
	}
	return &OnboardingResult{OrganizationID: orgID, UserID: userID}, nil
}
