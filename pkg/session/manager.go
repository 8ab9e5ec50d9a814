package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"endurancy-platform/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const contextKey = "session"

var Module = fx.Module("session",
	fx.Provide(ProvideStore, NewManager),
)

type storeParams struct {
	fx.In
	Config *config.Config
	Redis  *redis.Client `optional:"true"`
}

// ProvideStore selects the backend from SESSION.TYPE ("redis" or "memory").
func ProvideStore(p storeParams) (Store, error) {
	switch p.Config.Session.Type {
	case "memory":
		zap.L().Warn("[Session] using in-memory session store")
		return NewMemoryStore(), nil
	case "redis", "":
		if p.Redis == nil {
			return nil, fmt.Errorf("redis session store requires a redis client")
		}
		return NewRedisStore(p.Redis), nil
	default:
		return nil, fmt.Errorf("unknown session type %q", p.Config.Session.Type)
	}
}

// Manager binds sessions to a signed cookie.
type Manager struct {
	store  Store
	codec  *securecookie.SecureCookie
	name   string
	ttl    time.Duration
	secure bool
}

func NewManager(cfg *config.Config, store Store) (*Manager, error) {
	if len(cfg.Session.Secret) < 32 {
		return nil, fmt.Errorf("SESSION.SECRET must be at least 32 bytes")
	}

	ttl := cfg.Session.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	codec := securecookie.New([]byte(cfg.Session.Secret), nil)
	codec.MaxAge(int(ttl.Seconds()))

	return &Manager{
		store:  store,
		codec:  codec,
		name:   cfg.Session.Name,
		ttl:    ttl,
		secure: cfg.Session.Secure,
	}, nil
}

// Load resolves the cookie into session data for downstream handlers. It never
// rejects a request; use Current or a guard middleware for that.
func (m *Manager) Load() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, ok := m.sessionID(c); ok {
			data, err := m.store.Get(c.Request.Context(), id)
			if err != nil {
				zap.L().Warn("[Session] failed to load session", zap.Error(err))
			} else if data != nil {
				c.Set(contextKey, data)
			}
		}
		c.Next()
	}
}

func (m *Manager) sessionID(c *gin.Context) (string, bool) {
	raw, err := c.Cookie(m.name)
	if err != nil || raw == "" {
		return "", false
	}
	var id string
	if err := m.codec.Decode(m.name, raw, &id); err != nil {
		return "", false
	}
	return id, true
}

// Start replaces any existing session with a fresh ID holding data.
func (m *Manager) Start(c *gin.Context, data *Data) error {
	if old, ok := m.sessionID(c); ok {
		_ = m.store.Destroy(c.Request.Context(), old)
	}

	id, err := newID()
	if err != nil {
		return err
	}
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now().UTC()
	}
	if err := m.store.Save(c.Request.Context(), id, data, m.ttl); err != nil {
		return err
	}

	encoded, err := m.codec.Encode(m.name, id)
	if err != nil {
		return err
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.name, encoded, int(m.ttl.Seconds()), "/", "", m.secure, true)
	c.Set(contextKey, data)
	return nil
}

// Destroy removes the session server side and expires the cookie.
func (m *Manager) Destroy(c *gin.Context) error {
	id, ok := m.sessionID(c)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.name, "", -1, "/", "", m.secure, true)
	c.Set(contextKey, nil)
	if !ok {
		return nil
	}
	return m.store.Destroy(c.Request.Context(), id)
}

// Current returns the session bound to the request, or nil.
func Current(c *gin.Context) *Data {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil
	}
	d, _ := v.(*Data)
	return d
}

func newID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
