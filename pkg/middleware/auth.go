package middleware

import (
	"endurancy-platform/pkg/access"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	HeaderOrganizationID = "X-Organization-ID"
	organizationKey      = "organization_id"
)

// RequireSession rejects requests without an authenticated session.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if session.Current(c) == nil {
			abort(c, errutil.Unauthorized("Not authenticated", nil))
			return
		}
		c.Next()
	}
}

// Authorize checks the session role against the access policy for the
// request path and method.
func Authorize(authz access.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := session.Current(c)
		if s == nil {
			abort(c, errutil.Unauthorized("Not authenticated", nil))
			return
		}

		ok, err := authz.Allowed(s.Role, c.Request.URL.Path, c.Request.Method)
		if err != nil {
			zap.L().Error("authorization check failed", zap.Error(err))
			abort(c, errutil.Internal("authorization check failed", err))
			return
		}
		if !ok {
			abort(c, errutil.Forbidden("You do not have permission to perform this action", nil))
			return
		}

		c.Set(organizationKey, resolveOrganization(c, s))
		c.Next()
	}
}

// resolveOrganization scopes the request to the user's organization. Platform
// admins may act on another organization through X-Organization-ID.
func resolveOrganization(c *gin.Context, s *session.Data) string {
	if s.Role == "admin" {
		if v := c.GetHeader(HeaderOrganizationID); v != "" {
			return v
		}
	}
	return s.OrganizationID
}

// OrganizationID returns the organization resolved by Authorize.
func OrganizationID(c *gin.Context) string {
	if v := c.GetString(organizationKey); v != "" {
		return v
	}
	if s := session.Current(c); s != nil {
		return s.OrganizationID
	}
	return ""
}

func abort(c *gin.Context, err error) {
	be := errutil.From(err)
	c.AbortWithStatusJSON(be.Code.HTTPStatus(), be.Body())
}
