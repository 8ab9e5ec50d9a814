package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
	gin.SetMode(gin.TestMode)
}

type staticAuthz map[string]bool

func (a staticAuthz) Allowed(role, path, method string) (bool, error) {
	return a[role+" "+method+" "+path], nil
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestErrorMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(), Error())
	r.GET("/missing", func(c *gin.Context) {
		_ = c.Error(errutil.NotFound("Tarefa not found", nil))
	})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("db down"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Tarefa not found", decode(t, w)["message"])
	require.NotEmpty(t, w.Header().Get(HeaderRequestID))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "internal server error", decode(t, w)["message"])
}

func withSession(d *session.Data) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d != nil {
			c.Set("session", d)
		}
		c.Next()
	}
}

func TestAuthorize(t *testing.T) {
	authz := staticAuthz{"doctor GET /api/tarefas": true, "admin GET /api/tarefas": true}

	run := func(d *session.Data, header string) (*httptest.ResponseRecorder, string) {
		var org string
		r := gin.New()
		r.Use(withSession(d), Authorize(authz))
		r.GET("/api/tarefas", func(c *gin.Context) {
			org = OrganizationID(c)
			c.Status(http.StatusOK)
		})
		req := httptest.NewRequest(http.MethodGet, "/api/tarefas", nil)
		if header != "" {
			req.Header.Set(HeaderOrganizationID, header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w, org
	}

	w, _ := run(nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Not authenticated", decode(t, w)["message"])

	w, _ = run(&session.Data{UserID: "u", Role: "patient"}, "")
	require.Equal(t, http.StatusForbidden, w.Code)

	w, org := run(&session.Data{UserID: "u", Role: "doctor", OrganizationID: "org-1"}, "org-2")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "org-1", org)

	_, org = run(&session.Data{UserID: "u", Role: "admin", OrganizationID: "org-1"}, "org-2")
	require.Equal(t, "org-2", org)
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://app.endurancy.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.endurancy.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "https://app.endurancy.com", w.Header().Get("Access-Control-Allow-Origin"))
}
