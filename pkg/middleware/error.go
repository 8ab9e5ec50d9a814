package middleware

import (
	"endurancy-platform/pkg/errutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error renders the last error attached with c.Error. Domain errors keep their
// status and message; anything else is logged and reported as a 500.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		err := c.Errors.Last()
		if err == nil || c.Writer.Written() {
			return
		}

		be := errutil.From(err.Err)
		status := be.Code.HTTPStatus()
		if status >= 500 {
			zap.L().Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.String("request_id", RequestID(c)),
				zap.Error(err.Err),
			)
		}

		c.JSON(status, be.Body())
	}
}
