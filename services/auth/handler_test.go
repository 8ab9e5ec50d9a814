package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"endurancy-platform/internal/httpapi"
	"endurancy-platform/pkg/access"
	"endurancy-platform/pkg/config"
	"endurancy-platform/pkg/middleware"
	"endurancy-platform/pkg/session"
	"endurancy-platform/services/organization"
	"endurancy-platform/services/testutil"
	"endurancy-platform/services/user"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
	gin.SetMode(gin.TestMode)
}

type env struct {
	engine *gin.Engine
	users  *user.Service
	orgs   *organization.Service
}

func newEnv(t *testing.T, testAuth bool) *env {
	t.Helper()

	cfg := &config.Config{}
	cfg.Session.Name = "endurancy.sid"
	cfg.Session.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Session.TTL = time.Hour
	cfg.Session.TestAuth = testAuth

	sessions, err := session.NewManager(cfg, session.NewMemoryStore())
	require.NoError(t, err)
	authz, err := access.New(cfg)
	require.NoError(t, err)

	db := testutil.NewTestDB(t, &user.User{}, &organization.Organization{})
	ids := testutil.NewIDs(t)
	users := user.NewService(user.ServiceParams{DB: db, IDs: ids})
	orgs := organization.NewService(organization.ServiceParams{DB: db, IDs: ids})

	r := gin.New()
	r.Use(sessions.Load(), middleware.Error())
	router := httpapi.NewRouter(r, authz)

	h := NewHandler(NewService(ServiceParams{Users: users, Organizations: orgs}), sessions)
	registerRoutes(router, h, cfg)

	return &env{engine: r, users: users, orgs: orgs}
}

func (e *env) do(t *testing.T, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestTestAuthFlow(t *testing.T) {
	e := newEnv(t, true)

	w := e.do(t, http.MethodGet, "/api/test-auth/status", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPost, "/api/test-auth/login", TestLoginRequest{Username: "ana"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var errBody map[string]any
	decode(t, w, &errBody)
	require.Equal(t, "Username and password are required", errBody["message"])

	w = e.do(t, http.MethodPost, "/api/test-auth/login", TestLoginRequest{Username: "ana", Password: "x"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res LoginResponse
	decode(t, w, &res)
	require.Equal(t, "test-ana", res.User.ID)
	require.Equal(t, access.RoleAdmin, res.User.Role)
	require.Equal(t, "/dashboard", res.Redirect)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	w = e.do(t, http.MethodGet, "/api/test-auth/me", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	var me SessionUser
	decode(t, w, &me)
	require.Equal(t, "ana", me.Username)

	w = e.do(t, http.MethodPost, "/api/test-auth/logout", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/api/test-auth/me", nil, cookies)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTestAuthDisabled(t *testing.T) {
	e := newEnv(t, false)
	w := e.do(t, http.MethodPost, "/api/test-auth/login", TestLoginRequest{Username: "ana", Password: "x"}, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoginAudiences(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, false)

	org, err := e.orgs.Create(ctx, organization.CreateRequest{Name: "Clínica Verde", Type: organization.TypeClinic})
	require.NoError(t, err)
	_, err = e.users.Create(ctx, user.CreateRequest{OrganizationID: org.ID, Name: "Dr. Caio", Email: "caio@verde.com", Password: "doctor-pass", Role: access.RoleDoctor})
	require.NoError(t, err)
	_, err = e.users.Create(ctx, user.CreateRequest{OrganizationID: org.ID, Name: "Bia", Email: "bia@verde.com", Password: "patient-pass", Role: access.RolePatient})
	require.NoError(t, err)

	w := e.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "caio@verde.com", Password: "wrong-pass"}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPost, "/api/auth/patient/login", LoginRequest{Email: "caio@verde.com", Password: "doctor-pass"}, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "bia@verde.com", Password: "patient-pass"}, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, "/api/auth/patient/login", LoginRequest{Email: "bia@verde.com", Password: "patient-pass"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res LoginResponse
	decode(t, w, &res)
	require.Equal(t, "/patient/dashboard", res.Redirect)
	require.Equal(t, org.ID, res.User.OrganizationID)

	_, err = e.orgs.UpdateStatus(ctx, org.ID, organization.UpdateStatusRequest{Status: organization.StatusSuspended})
	require.NoError(t, err)
	w = e.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "caio@verde.com", Password: "doctor-pass"}, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, false)

	org, err := e.orgs.Create(ctx, organization.CreateRequest{Name: "Associação Raiz", Type: organization.TypeAssociation})
	require.NoError(t, err)
	_, err = e.users.Create(ctx, user.CreateRequest{OrganizationID: org.ID, Name: "Gestora", Email: "gestora@raiz.org", Password: "manager-pass", Role: access.RoleOrgAdmin})
	require.NoError(t, err)

	w := e.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "gestora@raiz.org", Password: "manager-pass"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()

	w = e.do(t, http.MethodPost, "/api/auth/register", RegisterRequest{Name: "Farmacêutico", Email: "farm@raiz.org", Password: "pharma-pass", Role: access.RolePharmacist}, cookies)
	require.Equal(t, http.StatusCreated, w.Code)
	var created user.User
	decode(t, w, &created)
	require.Equal(t, org.ID, created.OrganizationID)

	w = e.do(t, http.MethodPost, "/api/auth/register", RegisterRequest{Name: "Root", Email: "root@raiz.org", Password: "root-pass-1", Role: access.RoleAdmin}, cookies)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, "/api/auth/register", RegisterRequest{Name: "Anon", Email: "anon@raiz.org", Password: "anon-pass-1", Role: access.RolePatient}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
