package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/maddiethegm/Home-Inventory-Controller/internal/domain"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/metrics"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/repository"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/service"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/throttle"
)

// Tokens issues and verifies session tokens.
type Tokens interface {
	Issue(id domain.Identity) (string, error)
	Verify(token string) (domain.Identity, error)
}

// Auditor records requests without blocking them.
type Auditor interface {
	Record(route string, payload any, actor string)
	RecordRead(route string, payload any, actor string)
}

// Deps collects what the Handler needs.
type Deps struct {
	Auth    service.AuthService
	Users   service.UserService
	Tokens  Tokens
	Store   repository.Executor
	Limiter throttle.Limiter
	Audit   Auditor
	Metrics *metrics.Metrics
	Logger  *logrus.Logger
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth    service.AuthService
	users   service.UserService
	tokens  Tokens
	store   repository.Executor
	limiter throttle.Limiter
	audit   Auditor
	metrics *metrics.Metrics
	logger  *logrus.Entry
}

func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = logrus.New()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewNop()
	}
	if d.Limiter == nil {
		d.Limiter = throttle.NewMemoryLimiter(throttle.DefaultConfig())
	}
	if d.Audit == nil {
		d.Audit = nopAuditor{}
	}
	return &Handler{
		auth:    d.Auth,
		users:   d.Users,
		tokens:  d.Tokens,
		store:   d.Store,
		limiter: d.Limiter,
		audit:   d.Audit,
		metrics: d.Metrics,
		logger:  d.Logger.WithField("component", "http"),
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	login := []gin.HandlerFunc{LoginThrottle(h.limiter, h.metrics, h.logger), h.login}
	router.POST("/login", login...)

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
		api.POST("/auth/login", login...)

		authed := api.Group("", RequireAuth(h.tokens, h.metrics, h.logger))
		authed.POST("/auth/register", RequireRole(h.metrics, domain.RoleAdmin), h.register)

		authed.GET("/users", h.listUsers)
		authed.GET("/users/:user", h.getUser)
		authed.PUT("/users/:user", h.updateUser)
		authed.DELETE("/users/:user", RequireRole(h.metrics, domain.RoleAdmin), h.deleteUser)

		items := h.resource(itemsResource)
		authed.GET("/inventory", items.list)
		authed.POST("/inventory", items.create)
		authed.PUT("/inventory/:id", items.update)
		authed.DELETE("/inventory/:id", items.remove)

		locations := h.resource(locationsResource)
		authed.GET("/locations", locations.list)
		authed.POST("/locations", locations.create)
		authed.PUT("/locations/:id", locations.update)
		authed.DELETE("/locations/:id", locations.remove)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Retry-After, X-RateLimit-Limit, X-RateLimit-Remaining")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// auditRoute names a request as "<METHOD> <path>".
func auditRoute(c *gin.Context) string {
	return c.Request.Method + " " + c.Request.URL.Path
}

// actor is the authenticated username, or "" for anonymous requests.
func actor(c *gin.Context) string {
	id, ok := IdentityFrom(c)
	if !ok {
		return ""
	}
	return id.Username
}

// storeError maps data-access failures onto responses. msg is the body for
// unexpected failures.
func (h *Handler) storeError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, repository.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Already exists"})
	case errors.Is(err, repository.ErrInvalidParams):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).WithField("route", auditRoute(c)).Error(msg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

type nopAuditor struct{}

func (nopAuditor) Record(string, any, string)     {}
func (nopAuditor) RecordRead(string, any, string) {}
