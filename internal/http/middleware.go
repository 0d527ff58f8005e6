package http

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/maddiethegm/Home-Inventory-Controller/internal/auth"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/domain"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/metrics"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/throttle"
)

const identityKey = "identity"

// TokenVerifier checks a bearer token and returns the identity it asserts.
type TokenVerifier interface {
	Verify(token string) (domain.Identity, error)
}

// IdentityFrom returns the identity set by RequireAuth.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}

// extractBearerToken returns the credential of a "Bearer <token>" header.
func extractBearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireAuth rejects requests without a bearer token with 401 and requests
// with an invalid or expired one with 403. The bodies are empty.
func RequireAuth(tokens TokenVerifier, m *metrics.Metrics, logger *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := extractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			m.Denied(metrics.DeniedMissing)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		id, err := tokens.Verify(raw)
		if err != nil {
			m.TokenVerified(tokenResult(err))
			m.Denied(metrics.DeniedInvalid)
			logger.WithError(err).WithField("client_ip", c.ClientIP()).Debug("token rejected")
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		m.TokenVerified("ok")

		c.Set(identityKey, id)
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// RequireRole admits identities holding one of roles. It must run after
// RequireAuth.
func RequireRole(m *metrics.Metrics, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			m.Denied(metrics.DeniedMissing)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		for _, role := range roles {
			if id.Role == role {
				c.Next()
				return
			}
		}
		m.Denied(metrics.DeniedRole)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	}
}

// LoginThrottle counts every attempt per client address before the login
// handler runs. A limiter failure denies the attempt.
func LoginThrottle(limiter throttle.Limiter, m *metrics.Metrics, logger *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		d, err := limiter.Allow(c.Request.Context(), clientIP)
		if err != nil {
			m.Login(metrics.LoginError)
			logger.WithError(err).WithField("client_ip", clientIP).Error("login throttle unavailable")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Service unavailable"})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if err := d.Err(); err != nil {
			retry := int(math.Ceil(d.ResetIn.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			m.Login(metrics.LoginThrottled)
			logger.WithError(err).WithField("client_ip", clientIP).Warn("login throttled")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many requests. Try again later.",
			})
			return
		}
		c.Next()
	}
}

func tokenResult(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired"
	case errors.Is(err, auth.ErrTokenBadSignature):
		return "bad_signature"
	default:
		return "malformed"
	}
}
