package precadastro

import (
	"context"
	"errors"
	"testing"

	"endurancy-platform/pkg/config"
	"endurancy-platform/pkg/db/pagination"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/mailer"
	"endurancy-platform/services/organization"
	"endurancy-platform/services/testutil"
	"endurancy-platform/services/user"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeOutbox struct{ sent []mailer.Message }

func (f *fakeOutbox) Deliver(_ context.Context, m mailer.Message) error {
	f.sent = append(f.sent, m)
	return nil
}

type fakeVerifier struct{ bad map[string]bool }

func (f fakeVerifier) VerifyMailDomain(_ context.Context, email string) error {
	if f.bad[email] {
		return errors.New("no MX")
	}
	return nil
}

type fixture struct {
	db         *gorm.DB
	svc        *Service
	activities *Activities
	orgs       *organization.Service
	users      *user.Service
	outbox     *fakeOutbox
}

func newFixture(t *testing.T, temporal client.Client) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t, &PreCadastro{}, &organization.Organization{}, &user.User{})
	ids := testutil.NewIDs(t)

	cfg := &config.Config{}
	cfg.PublicURL = "https://app.endurancy.test/"
	cfg.Features.VerifyLeadEmailDomain = true
	cfg.Temporal.TaskQueue = "endurancy"

	f := &fixture{
		db:     db,
		orgs:   organization.NewService(organization.ServiceParams{DB: db, IDs: ids}),
		users:  user.NewService(user.ServiceParams{DB: db, IDs: ids}),
		outbox: &fakeOutbox{},
	}
	f.activities = NewActivities(ActivitiesParams{
		DB:            db,
		Config:        cfg,
		Organizations: f.orgs,
		Users:         f.users,
		Outbox:        f.outbox,
	})
	f.svc = NewService(ServiceParams{
		DB:         db,
		IDs:        ids,
		Config:     cfg,
		Verifier:   fakeVerifier{bad: map[string]bool{"x@nomx.example": true}},
		Temporal:   temporal,
		Activities: f.activities,
		Users:      f.users,
	})
	return f
}

func validRequest() CreateRequest {
	return CreateRequest{
		Name:                "Marina Alves",
		Email:               " Marina@Assoc.org ",
		Phone:               "+55 11 99999-0000",
		Organization:        "Associação Flor de Lis",
		Interest:            "Gestão de pacientes",
		ModulosSelecionados: []string{"pacientes", "expedicao"},
		TermosAceitos:       true,
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	req := validRequest()
	req.TermosAceitos = false
	_, err := f.svc.Create(ctx, req)
	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusValidationFailed, be.Code)
	require.Equal(t, "TermosAceitos", be.Details[0].Field)

	req = validRequest()
	req.Email = "x@nomx.example"
	_, err = f.svc.Create(ctx, req)
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))

	lead, err := f.svc.Create(ctx, validRequest())
	require.NoError(t, err)
	require.Equal(t, StatusNovo, lead.Status)
	require.Equal(t, "marina@assoc.org", lead.Email)
	require.JSONEq(t, `["pacientes","expedicao"]`, string(lead.ModulosSelecionados))

	_, err = f.svc.Create(ctx, validRequest())
	require.True(t, errutil.Is(err, errutil.StatusConflict))

	_, err = f.svc.UpdateStatus(ctx, lead.ID, UpdateStatusRequest{Status: StatusDescartado, Notes: "sem retorno"})
	require.NoError(t, err)

	again, err := f.svc.Create(ctx, validRequest())
	require.NoError(t, err)

	list, _, err := f.svc.List(ctx, ListRequest{Status: StatusNovo}, pagination.Pagination{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, again.ID, list[0].ID)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	lead, err := f.svc.Create(ctx, validRequest())
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, lead.ID, UpdateStatusRequest{Status: StatusConvertido})
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))

	got, err := f.svc.UpdateStatus(ctx, lead.ID, UpdateStatusRequest{Status: StatusContatado})
	require.NoError(t, err)
	require.Equal(t, StatusContatado, got.Status)

	_, err = f.svc.UpdateStatus(ctx, "missing", UpdateStatusRequest{Status: StatusContatado})
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
}

func TestConvertInline(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	lead, err := f.svc.Create(ctx, validRequest())
	require.NoError(t, err)

	res, err := f.svc.Convert(ctx, lead.ID, ConvertRequest{OrganizationType: organization.TypeClinic})
	require.NoError(t, err)
	require.Equal(t, StatusConvertido, res.Status)
	require.Empty(t, res.WorkflowID)

	org, err := f.orgs.Get(ctx, res.OrganizationID)
	require.NoError(t, err)
	require.Equal(t, "Associação Flor de Lis", org.Name)
	require.Equal(t, organization.TypeClinic, org.Type)

	admin, err := f.users.Get(ctx, res.UserID)
	require.NoError(t, err)
	require.Equal(t, "org_admin", admin.Role)
	require.Equal(t, org.ID, admin.OrganizationID)

	require.Len(t, f.outbox.sent, 1)
	require.Equal(t, []string{"marina@assoc.org"}, f.outbox.sent[0].To)
	require.Contains(t, f.outbox.sent[0].HTML, "https://app.endurancy.test/login")

	converted, err := f.svc.Get(ctx, lead.ID)
	require.NoError(t, err)
	require.Equal(t, StatusConvertido, converted.Status)
	require.NotNil(t, converted.ConvertedAt)

	_, err = f.svc.Convert(ctx, lead.ID, ConvertRequest{})
	require.True(t, errutil.Is(err, errutil.StatusConflict))
	_, err = f.svc.UpdateStatus(ctx, lead.ID, UpdateStatusRequest{Status: StatusNovo})
	require.True(t, errutil.Is(err, errutil.StatusConflict))
}

func TestConvertRejects(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	lead, err := f.svc.Create(ctx, validRequest())
	require.NoError(t, err)
	_, err = f.users.Create(ctx, user.CreateRequest{Name: "Marina", Email: "marina@assoc.org", Password: "password-1", Role: "patient"})
	require.NoError(t, err)
	_, err = f.svc.Convert(ctx, lead.ID, ConvertRequest{})
	require.True(t, errutil.Is(err, errutil.StatusConflict))

	req := validRequest()
	req.Email = "outra@assoc.org"
	discarded, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, discarded.ID, UpdateStatusRequest{Status: StatusDescartado})
	require.NoError(t, err)
	_, err = f.svc.Convert(ctx, discarded.ID, ConvertRequest{})
	require.True(t, errutil.Is(err, errutil.StatusUnprocessableEntity))
}

func TestConvertStartsWorkflow(t *testing.T) {
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("precadastro-onboarding-x")
	run.On("GetRunID").Return("run-1")

	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
		return o.TaskQueue == "endurancy"
	}), mock.Anything, mock.Anything).Return(run, nil)

	f := newFixture(t, c)
	ctx := context.Background()
	lead, err := f.svc.Create(ctx, validRequest())
	require.NoError(t, err)

	res, err := f.svc.Convert(ctx, lead.ID, ConvertRequest{})
	require.NoError(t, err)
	require.Equal(t, "processing", res.Status)
	require.Equal(t, "run-1", res.RunID)
	c.AssertExpectations(t)

	got, err := f.svc.Get(ctx, lead.ID)
	require.NoError(t, err)
	require.Equal(t, StatusNovo, got.Status)
	require.Empty(t, f.outbox.sent)
}
