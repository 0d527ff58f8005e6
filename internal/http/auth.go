package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/maddiethegm/Home-Inventory-Controller/internal/metrics"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/service"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username    string `json:"Username"`
	Password    string `json:"Password"`
	Role        string `json:"Role"`
	Email       string `json:"Email"`
	DisplayName string `json:"DisplayName"`
	AvatarURL   string `json:"AvatarURL"`
	UITheme     string `json:"UITheme"`
	Team        string `json:"Team"`
	Bio         string `json:"Bio"`
	// SQLUser selects local password verification; absent means local.
	SQLUser *bool `json:"SQL_USER"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Username) == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	logger := h.logger.WithFields(logrus.Fields{"username": req.Username, "client_ip": c.ClientIP()})
	route := auditRoute(c)

	id, err := h.auth.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.metrics.Login(metrics.LoginInvalid)
			h.audit.Record(route, map[string]any{"username": req.Username, "success": false}, "")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		h.metrics.Login(metrics.LoginError)
		logger.WithError(err).Error("login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
		return
	}

	token, err := h.tokens.Issue(id)
	if err != nil {
		h.metrics.Login(metrics.LoginError)
		logger.WithError(err).Error("issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
		return
	}

	h.metrics.Login(metrics.LoginSuccess)
	h.audit.Record(route, map[string]any{"username": id.Username, "success": true}, id.Username)
	logger.Info("login successful")
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username, password, and role are required"})
		return
	}

	local := req.SQLUser == nil || *req.SQLUser
	user, err := h.users.Register(c.Request.Context(), service.Registration{
		Username:    req.Username,
		Password:    req.Password,
		Role:        req.Role,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
		UITheme:     req.UITheme,
		Team:        req.Team,
		Bio:         req.Bio,
		Local:       local,
	})
	switch {
	case errors.Is(err, service.ErrRegistrationInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username, password, and role are required"})
		return
	case errors.Is(err, service.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "User already exists"})
		return
	case err != nil:
		h.logger.WithError(err).WithField("username", req.Username).Error("registration failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	h.audit.Record(auditRoute(c), map[string]any{
		"Username": user.Username,
		"Role":     user.Role,
		"SQL_USER": local,
	}, actor(c))
	h.logger.WithField("username", user.Username).Info("user registered")
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    userToResponse(user),
	})
}
