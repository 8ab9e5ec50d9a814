package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"endurancy-platform/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, store Store) *Manager {
	t.Helper()
	cfg := &config.Config{}
	cfg.Session.Name = "sid"
	cfg.Session.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Session.TTL = time.Hour

	m, err := NewManager(cfg, store)
	require.NoError(t, err)
	return m
}

func TestManagerLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewMemoryStore()
	m := newManager(t, store)

	r := gin.New()
	r.Use(m.Load())
	r.POST("/login", func(c *gin.Context) {
		require.NoError(t, m.Start(c, &Data{UserID: "u1", Role: "admin"}))
		c.Status(http.StatusNoContent)
	})
	r.GET("/me", func(c *gin.Context) {
		if d := Current(c); d != nil {
			c.String(http.StatusOK, d.UserID)
			return
		}
		c.Status(http.StatusUnauthorized)
	})
	r.POST("/logout", func(c *gin.Context) {
		require.NoError(t, m.Destroy(c))
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	cookie := w.Result().Cookies()[0]
	require.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "u1", w.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookie)
	r.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTamperedCookieIgnored(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newManager(t, NewMemoryStore())

	r := gin.New()
	r.Use(m.Load())
	r.GET("/me", func(c *gin.Context) {
		require.Nil(t, Current(c))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "forged"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(context.Background(), "a", &Data{UserID: "u"}, time.Minute))
	d, err := s.Get(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, "u", d.UserID)

	now = now.Add(2 * time.Minute)
	d, err = s.Get(context.Background(), "a")
	require.NoError(t, err)
	require.Nil(t, d)
}

func TestNewManagerRejectsShortSecret(t *testing.T) {
	cfg := &config.Config{}
	cfg.Session.Secret = "short"
	_, err := NewManager(cfg, NewMemoryStore())
	require.Error(t, err)
}
