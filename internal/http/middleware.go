package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/saleemjadallah/skinsense-backend-sub002/internal/metrics"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/repo"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/security"
)

const (
	requestIDKey = "X-Request-ID"
	authUserKey  = "auth_user_id"
)

// RequestID propagates the inbound X-Request-ID or mints one. The id rides
// outbound events so the notify worker can correlate email sends.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDKey)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDKey, id)
		c.Next()
	}
}

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.InFlight.Inc()
		start := time.Now()
		c.Next()
		metrics.InFlight.Dec()
		metrics.ReqDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// RequireAuth admits only bearer tokens carrying the access purpose and
// stores the subject for handlers.
func RequireAuth(tokens *security.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		sub, ok := tokens.Verify(raw, security.PurposeAccess)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(authUserKey, sub)
		c.Next()
	}
}

func authUserID(c *gin.Context) string {
	v, _ := c.Get(authUserKey)
	s, _ := v.(string)
	return s
}

// RateLimit applies a fixed per-minute budget keyed by scope, route and
// client IP. Scopes keep stacked limiters (base plus strict) on separate
// counters. Redis being down fails open: dropping auth traffic because the
// limiter is unreachable would be worse than a window without limiting.
func RateLimit(rds *repo.Redis, scope string, perMin int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rds == nil || perMin <= 0 {
			c.Next()
			return
		}
		key := "rl:" + scope + ":" + c.FullPath() + ":" + c.ClientIP()
		allowed, err := rds.Allow(c.Request.Context(), key, perMin, 60)
		if err != nil {
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
