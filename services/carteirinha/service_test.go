package carteirinha

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"endurancy-platform/pkg/access"
	"endurancy-platform/pkg/config"
	"endurancy-platform/pkg/db/pagination"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/session"
	"endurancy-platform/services/organization"
	"endurancy-platform/services/testutil"
	"endurancy-platform/services/user"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeSequence struct{ n int }

func (f *fakeSequence) NextAffiliateCode(context.Context, string, string) (string, error) {
	return "", nil
}

func (f *fakeSequence) NextCarteirinhaNumber(context.Context, string) (string, error) {
	f.n++
	return fmt.Sprintf("CART-250101-%04d", f.n), nil
}

func (f *fakeSequence) NextShipmentCode(context.Context, string) (string, error) {
	return "", nil
}

type fixture struct {
	svc     *Service
	users   *user.Service
	org     *organization.Organization
	admin   Actor
	patient *user.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t, &Card{}, &user.User{}, &organization.Organization{})
	ids := testutil.NewIDs(t)
	cfg := &config.Config{}
	cfg.Carteirinha.SigningKey = testSecret
	cfg.Carteirinha.Validity = 30 * 24 * time.Hour

	signer, err := NewSigner(cfg)
	require.NoError(t, err)
	users := user.NewService(user.ServiceParams{DB: db, IDs: ids})
	orgs := organization.NewService(organization.ServiceParams{DB: db, IDs: ids})

	ctx := context.Background()
	org, err := orgs.Create(ctx, organization.CreateRequest{Name: "Associação Flor", Type: "association"})
	require.NoError(t, err)
	patient, err := users.Create(ctx, user.CreateRequest{
		OrganizationID: org.ID, Name: "Paula Souza", Email: "paula@mail.com",
		Password: "secret-123", Role: access.RolePatient, Document: "123.456.789-00",
	})
	require.NoError(t, err)

	svc := NewService(ServiceParams{
		DB: db, IDs: ids, Config: cfg, Sequence: &fakeSequence{},
		Signer: signer, Users: users, Organizations: orgs,
	})
	return &fixture{
		svc:     svc,
		users:   users,
		org:     org,
		admin:   Actor{UserID: "admin-1", OrganizationID: org.ID},
		patient: patient,
	}
}

func TestIssue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	card, err := f.svc.Issue(ctx, f.admin, IssueRequest{PatientID: f.patient.ID})
	require.NoError(t, err)
	require.Equal(t, StatusActive, card.Status)
	require.Equal(t, "CART-250101-0001", card.Number)
	require.Equal(t, "Paula Souza", card.HolderName)
	require.Equal(t, "123.456.789-00", card.Document)
	require.Equal(t, "Associação Flor", card.OrganizationName)
	require.WithinDuration(t, time.Now().Add(30*24*time.Hour), card.ValidUntil, time.Minute)
	require.NotEmpty(t, card.Token)

	staff, err := f.users.Create(ctx, user.CreateRequest{
		OrganizationID: f.org.ID, Name: "Dra. Ana", Email: "ana@mail.com", Password: "secret-123", Role: access.RoleDoctor,
	})
	require.NoError(t, err)
	_, err = f.svc.Issue(ctx, f.admin, IssueRequest{PatientID: staff.ID})
	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusValidationFailed, be.Code)
	require.Equal(t, "PatientID", be.Details[0].Field)

	past := time.Now().Add(-time.Hour)
	_, err = f.svc.Issue(ctx, f.admin, IssueRequest{PatientID: f.patient.ID, ValidUntil: &past})
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))

	_, err = f.svc.Issue(ctx, Actor{UserID: "x", OrganizationID: "other-org"}, IssueRequest{PatientID: f.patient.ID})
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
}

func TestReissueRevokesPrevious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Issue(ctx, f.admin, IssueRequest{PatientID: f.patient.ID})
	require.NoError(t, err)
	second, err := f.svc.Issue(ctx, f.admin, IssueRequest{PatientID: f.patient.ID})
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, f.admin, first.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRevoked, got.Status)
	require.Equal(t, "reissued", got.RevokeReason)

	mine, err := f.svc.Mine(ctx, Actor{UserID: f.patient.ID, OrganizationID: f.org.ID})
	require.NoError(t, err)
	require.Equal(t, second.ID, mine.ID)

	active, _, err := f.svc.List(ctx, f.admin, ListRequest{PatientID: f.patient.ID, Status: StatusActive}, pagination.Pagination{})
	require.NoError(t, err)
	require.Len(t, active, 1)
}

func TestRevoke(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	card, err := f.svc.Issue(ctx, f.admin, IssueRequest{PatientID: f.patient.ID})
	require.NoError(t, err)

	got, err := f.svc.Revoke(ctx, f.admin, card.ID, RevokeRequest{Reason: "perdida"})
	require.NoError(t, err)
	require.Equal(t, StatusRevoked, got.Status)
	require.NotNil(t, got.RevokedAt)

	_, err = f.svc.Revoke(ctx, f.admin, card.ID, RevokeRequest{})
	require.True(t, errutil.Is(err, errutil.StatusConflict))
	_, err = f.svc.Revoke(ctx, f.admin, "missing", RevokeRequest{})
	require.True(t, errutil.Is(err, errutil.StatusNotFound))

	_, err = f.svc.Mine(ctx, Actor{UserID: f.patient.ID, OrganizationID: f.org.ID})
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
}

func TestVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	card, err := f.svc.Issue(ctx, f.admin, IssueRequest{PatientID: f.patient.ID})
	require.NoError(t, err)

	for _, ref := range []string{card.ID, card.Token} {
		res, err := f.svc.Verify(ctx, ref)
		require.NoError(t, err)
		require.True(t, res.Valid)
		require.Equal(t, StatusActive, res.Status)
		require.Equal(t, "Paula Souza", res.HolderName)
		require.Equal(t, "Associação Flor", res.OrganizationName)
		require.Empty(t, res.Reason)
	}

	res, err := f.svc.Verify(ctx, "nope")
	require.NoError(t, err)
	require.Equal(t, &Verification{Valid: false, Reason: ReasonNotFound}, res)

	parts := strings.Split(card.Token, ".")
	res, err = f.svc.Verify(ctx, parts[0]+"."+parts[1]+"."+strings.Repeat("A", len(parts[2])))
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Equal(t, ReasonInvalidSignature, res.Reason)

	f.svc.now = func() time.Time { return card.ValidUntil.Add(time.Minute) }
	res, err = f.svc.Verify(ctx, card.Token)
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Equal(t, StatusExpired, res.Status)
	require.Equal(t, ReasonExpired, res.Reason)

	f.svc.now = func() time.Time { return time.Now().UTC() }
	_, err = f.svc.Revoke(ctx, f.admin, card.ID, RevokeRequest{})
	require.NoError(t, err)
	res, err = f.svc.Verify(ctx, card.Token)
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Equal(t, ReasonRevoked, res.Reason)
}

func TestRoutes(t *testing.T) {
	f := newFixture(t)
	h := testutil.NewHTTP(t)
	registerRoutes(h.Router, NewHandler(f.svc))

	doctor := h.Login(t, session.Data{UserID: "doc-1", OrganizationID: f.org.ID, Role: access.RoleDoctor})
	patient := h.Login(t, session.Data{UserID: f.patient.ID, OrganizationID: f.org.ID, Role: access.RolePatient})

	w := h.Do(t, http.MethodPost, "/api/carteirinha", IssueRequest{PatientID: f.patient.ID}, patient)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = h.Do(t, http.MethodPost, "/api/carteirinha", IssueRequest{PatientID: f.patient.ID}, doctor)
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.Do(t, http.MethodGet, "/api/carteirinha/me", nil, patient)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"holderName":"Paula Souza"`)

	card, err := f.svc.Mine(context.Background(), Actor{UserID: f.patient.ID, OrganizationID: f.org.ID})
	require.NoError(t, err)

	w = h.Do(t, http.MethodGet, "/api/carteirinha/verify/"+card.Token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"valid":true`)

	w = h.Do(t, http.MethodPost, "/api/carteirinha/"+card.ID+"/revoke", nil, patient)
	require.Equal(t, http.StatusForbidden, w.Code)
	w = h.Do(t, http.MethodPost, "/api/carteirinha/"+card.ID+"/revoke", nil, doctor)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.Do(t, http.MethodGet, "/api/carteirinha/verify/"+card.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"reason":"revoked"`)
}
