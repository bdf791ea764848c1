package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gramseva/swasthya-sahayak/pkg/logger"
)

// RequestLogger logs one line per request on the localhost status
// surface. Bodies are never logged: commands can carry health data.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	log = log.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"request_id", c.GetString(ContextRequestID),
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", time.Since(start).String(),
		}
		switch {
		case status >= 500:
			log.Warn("request failed", fields...)
		default:
			log.Info("request served", fields...)
		}
	}
}
