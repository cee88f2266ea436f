// Package health provides the readiness and liveness probes shared by the
// HTTP services.
package health

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ReadinessPath = "/readiness"
	LivenessPath  = "/liveness"
)

func Register(r gin.IRoutes) {
	r.GET(ReadinessPath, func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ready"}) })
	r.GET(LivenessPath, func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "alive"}) })
}

// Logging logs the latency of probe requests and ignores everything else.
func Logging(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if IsProbe(c.Request.URL.Path) {
			logger.Info("health check",
				zap.String("path", c.Request.URL.Path),
				zap.Int("status", c.Writer.Status()),
				zap.Duration("latency", time.Since(start)),
			)
		}
	}
}

// IsProbe reports whether path is exactly one of the probe routes.
func IsProbe(path string) bool {
	return path == ReadinessPath || path == LivenessPath
}
