package http

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/example/trading-services/internal/health"
	"github.com/example/trading-services/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

// Options configures the middleware stack shared by both services.
type Options struct {
	CORSOrigin   string
	RateLimitRPS float64
	RateBurst    int
	Metrics      *metrics.Metrics
}

func newEngine(logger *zap.Logger, opts Options) *gin.Engine {
	g := gin.New()

	g.Use(requestID())

	// Request logging
	g.Use(func(cn *gin.Context) {
		start := time.Now()
		cn.Next()
		if health.IsProbe(cn.Request.URL.Path) {
			return
		}
		logger.Info("http_request",
			zap.String("request_id", cn.GetString(requestIDHeader)),
			zap.String("method", cn.Request.Method),
			zap.String("path", cn.Request.URL.Path),
			zap.Int("status", cn.Writer.Status()),
			zap.String("ip", cn.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		)
	})
	g.Use(health.Logging(logger))

	g.Use(gin.Recovery())
	g.Use(cors(opts.CORSOrigin))

	if opts.Metrics != nil {
		g.Use(observe(opts.Metrics))
		g.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	if opts.RateLimitRPS > 0 {
		g.Use(newRateLimiter(opts.RateLimitRPS, opts.RateBurst).handler(logger))
	}

	health.Register(g)
	return g
}

func requestID() gin.HandlerFunc {
	return func(cn *gin.Context) {
		id := cn.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		cn.Set(requestIDHeader, id)
		cn.Writer.Header().Set(requestIDHeader, id)
		cn.Next()
	}
}

func cors(corsOrigin string) gin.HandlerFunc {
	return func(cn *gin.Context) {
		origin := cn.GetHeader("Origin")
		cn.Writer.Header().Set("Vary", "Origin")
		cn.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+requestIDHeader)
		cn.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		cn.Writer.Header().Set("Access-Control-Max-Age", "86400")
		if corsOrigin == "*" {
			cn.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin != "" && origin == corsOrigin {
			cn.Writer.Header().Set("Access-Control-Allow-Origin", corsOrigin)
		}
		if cn.Request.Method == http.MethodOptions {
			cn.AbortWithStatus(http.StatusNoContent)
			return
		}
		cn.Next()
	}
}

func observe(m *metrics.Metrics) gin.HandlerFunc {
	return func(cn *gin.Context) {
		start := time.Now()
		m.IncInFlight()
		defer m.DecInFlight()
		cn.Next()
		route := cn.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(cn.Request.Method, route, strconv.Itoa(cn.Writer.Status()), time.Since(start))
	}
}

// rateLimiter keeps one token bucket per client IP. Buckets unused for
// idleTTL are dropped.
type rateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	rate      rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type clientLimiter struct {
	*rate.Limiter
	lastSeen time.Time
}

const limiterIdleTTL = 10 * time.Minute

func newRateLimiter(rps float64, burst int) *rateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{
		limiters:  make(map[string]*clientLimiter),
		rate:      rate.Limit(rps),
		burst:     burst,
		idleTTL:   limiterIdleTTL,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (rl *rateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.idleTTL {
		rl.sweep(now)
	}
	l, ok := rl.limiters[key]
	if !ok {
		l = &clientLimiter{Limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = l
	}
	l.lastSeen = now
	return l.Limiter
}

func (rl *rateLimiter) sweep(now time.Time) {
	for key, l := range rl.limiters {
		if now.Sub(l.lastSeen) >= rl.idleTTL {
			delete(rl.limiters, key)
		}
	}
	rl.lastSweep = now
}

func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *rateLimiter) handler(logger *zap.Logger) gin.HandlerFunc {
	return func(cn *gin.Context) {
		if health.IsProbe(cn.Request.URL.Path) {
			cn.Next()
			return
		}
		key := cn.ClientIP()
		if !rl.limiter(key).Allow() {
			logger.Warn("rate limit exceeded", zap.String("ip", key), zap.String("path", cn.Request.URL.Path))
			cn.AbortWithStatusJSON(http.StatusTooManyRequests, apiError{Error: "rate limit exceeded", Code: "rate_limited"})
			return
		}
		cn.Next()
	}
}
