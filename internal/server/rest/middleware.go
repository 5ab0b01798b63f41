package rest

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/dmitrijs2005/gophnotes/internal/server/auth"
	"github.com/dmitrijs2005/gophnotes/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	ctxUserKey      = "user"
	ctxRequestIDKey = "request_id"
)

// requireAuth admits requests carrying a valid access token in the
// Authorization header. A missing header or an expired token is a 401 so
// the client knows to refresh; anything else is a 403.
func requireAuth(v *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeaderName)
		if !strings.HasPrefix(header, common.BearerPrefix) || len(header) == len(common.BearerPrefix) {
			fail(c, http.StatusUnauthorized, "missing token")
			return
		}

		claims, err := v.VerifyAccess(strings.TrimPrefix(header, common.BearerPrefix))
		switch {
		case err == nil:
		case errors.Is(err, auth.ErrExpired):
			fail(c, http.StatusUnauthorized, "token expired")
			return
		default:
			fail(c, http.StatusForbidden, "invalid token")
			return
		}

		c.Set(ctxUserKey, claims.User)
		c.Next()
	}
}

// currentUser returns the identity placed by requireAuth.
func currentUser(c *gin.Context) models.SafeUser {
	u, _ := c.MustGet(ctxUserKey).(models.SafeUser)
	return u
}

// requestLogger tags each request with an id and logs its outcome.
func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(common.RequestIDHeaderName)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestIDKey, id)
		c.Header(common.RequestIDHeaderName, id)

		c.Next()

		args := []any{
			"request_id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"client_ip", c.ClientIP(),
			"duration", time.Since(start),
		}
		if len(c.Errors) > 0 {
			logger.Error(c.Request.Context(), "request failed", append(args, "error", c.Errors.String())...)
			return
		}
		logger.Info(c.Request.Context(), "request", args...)
	}
}

// cors answers preflight requests and sets the headers browsers need to
// send the refresh cookie cross-origin. A "*" entry reflects any origin.
func cors(allowed []string) gin.HandlerFunc {
	anyOrigin := false
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			anyOrigin = true
		}
		set[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := set[origin]; ok || anyOrigin {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+common.RequestIDHeaderName)
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				h.Add("Vary", "Origin")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps one token bucket per client address. Buckets idle long
// enough to have refilled are dropped, which loses no state.
type ipLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newIPLimiter(perMinute, burst int) *ipLimiter {
	limit := rate.Limit(float64(perMinute) / 60)
	refill := time.Duration(float64(burst) / float64(limit) * float64(time.Second))
	return &ipLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
		idle:     max(refill, time.Minute),
		now:      time.Now,
	}
}

func (l *ipLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// sweep must be called with l.mu held.
func (l *ipLimiter) sweep(now time.Time) {
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) >= l.idle {
			delete(l.visitors, k)
		}
	}
	l.lastSweep = now
}

// middleware rejects requests above the per-IP budget. A nil limiter disables it.
func (l *ipLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l != nil && !l.allow(c.ClientIP()) {
			writeError(c, common.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
