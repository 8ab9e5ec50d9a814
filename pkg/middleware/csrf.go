package middleware

import (
	"net/http"

	"endurancy-platform/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

// CSRF protects cookie-authenticated, state changing requests when
// SESSION.CSRF is enabled. Clients read the token from X-CSRF-Token on any GET
// and echo it back on writes.
func CSRF(cfg *config.Config) gin.HandlerFunc {
	if !cfg.Session.CSRF {
		return func(c *gin.Context) { c.Next() }
	}

	protect := csrf.Protect(
		[]byte(cfg.Session.Secret),
		csrf.Secure(cfg.Session.Secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"invalid CSRF token","error":{"code":"forbidden"}}`))
		})),
	)

	return func(c *gin.Context) {
		passed := false
		protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Header("X-CSRF-Token", csrf.Token(r))
		})).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
			return
		}
		c.Next()
	}
}
