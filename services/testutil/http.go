package testutil

import (
	"bytes"
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

	"github.com/gin-gonic/gin"
)

// HTTP is a gin engine wired with sessions, the casbin authorizer and the
// error renderer. POST /_login starts a session for the posted session.Data.
type HTTP struct {
	Engine *gin.Engine
	Router *httpapi.Router
	Config *config.Config
}

func NewHTTP(t *testing.T) *HTTP {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Session.Name = "endurancy.sid"
	cfg.Session.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Session.TTL = time.Hour

	sessions, err := session.NewManager(cfg, session.NewMemoryStore())
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	authz, err := access.New(cfg)
	if err != nil {
		t.Fatalf("failed to create authorizer: %v", err)
	}

	r := gin.New()
	r.Use(sessions.Load(), middleware.Error())
	r.POST("/_login", func(c *gin.Context) {
		var data session.Data
		if err := c.ShouldBindJSON(&data); err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		if err := sessions.Start(c, &data); err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})

	return &HTTP{Engine: r, Router: httpapi.NewRouter(r, authz), Config: cfg}
}

// Login returns the cookies of a fresh session for data.
func (h *HTTP) Login(t *testing.T, data session.Data) []*http.Cookie {
	t.Helper()
	w := h.Do(t, http.MethodPost, "/_login", data, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("login failed with status %d", w.Code)
	}
	return w.Result().Cookies()
}

func (h *HTTP) Do(t *testing.T, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.Engine.ServeHTTP(w, req)
	return w
}
