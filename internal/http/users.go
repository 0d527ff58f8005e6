package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/maddiethegm/Home-Inventory-Controller/internal/domain"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/metrics"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/repository"
)

// UserResponse is a user record without its password hash.
type UserResponse struct {
	ID          string `json:"ID"`
	Username    string `json:"Username"`
	Role        string `json:"Role"`
	Email       string `json:"Email"`
	DisplayName string `json:"DisplayName"`
	AvatarURL   string `json:"AvatarURL"`
	UITheme     string `json:"UITheme"`
	Team        string `json:"Team"`
	Bio         string `json:"Bio"`
	SQLUser     bool   `json:"SQL_USER"`
}

type updateUserRequest struct {
	Username    *string `json:"Username"`
	Role        *string `json:"Role"`
	Email       *string `json:"Email"`
	DisplayName *string `json:"DisplayName"`
	AvatarURL   *string `json:"AvatarURL"`
	UITheme     *string `json:"UITheme"`
	Team        *string `json:"Team"`
	Bio         *string `json:"Bio"`
	SQLUser     *bool   `json:"SQL_USER"`
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Role:        user.Role,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		UITheme:     user.UITheme,
		Team:        user.Team,
		Bio:         user.Bio,
		SQLUser:     user.AuthMode == domain.AuthModeLocal,
	}
}

func (h *Handler) listUsers(c *gin.Context) {
	params := queryParams(c)
	// password hashes are never searchable
	delete(params, "PasswordHash")
	if column, _ := params["filterColumn"].(string); strings.EqualFold(column, "PasswordHash") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter column"})
		return
	}

	rows, err := h.store.ExecuteQuery(c.Request.Context(), repository.TableUsers, repository.OpRead, params)
	if err != nil {
		h.storeError(c, err, "Database query failed")
		return
	}

	resp := make([]UserResponse, len(rows))
	for i := range rows {
		resp[i] = userToResponse(repository.UserFromRow(rows[i]))
	}
	h.audit.RecordRead(auditRoute(c), c.Request.URL.Query(), actor(c))
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getUser(c *gin.Context) {
	username := domain.NormalizeUsername(c.Param("user"))
	rows, err := h.store.ExecuteQuery(c.Request.Context(), repository.TableUsers, repository.OpRead, repository.Params{"Username": username})
	if err != nil {
		h.storeError(c, err, "Failed to fetch user details")
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	h.audit.RecordRead(auditRoute(c), nil, actor(c))
	c.JSON(http.StatusOK, userToResponse(repository.UserFromRow(rows[0])))
}

// updateUser edits a user by ID. Admins may edit anyone and change
// Username, Role and SQL_USER; others may only edit their own profile.
func (h *Handler) updateUser(c *gin.Context) {
	id := c.Param("user")
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	caller, _ := IdentityFrom(c)
	isAdmin := caller.Role == domain.RoleAdmin
	if !isAdmin {
		rows, err := h.store.ExecuteQuery(c.Request.Context(), repository.TableUsers, repository.OpRead, repository.Params{"ID": id})
		if err != nil {
			h.storeError(c, err, "Failed to update user details")
			return
		}
		if len(rows) == 0 || !sameUser(rows[0].String("Username"), caller.Username) {
			h.metrics.Denied(metrics.DeniedRole)
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		if req.Username != nil || req.Role != nil || req.SQLUser != nil {
			h.metrics.Denied(metrics.DeniedRole)
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
	}

	params := repository.Params{"ID": id}
	setString := func(column string, v *string) {
		if v != nil {
			params[column] = *v
		}
	}
	if req.Username != nil {
		params["Username"] = domain.NormalizeUsername(*req.Username)
	}
	setString("Role", req.Role)
	setString("Email", req.Email)
	setString("DisplayName", req.DisplayName)
	setString("AvatarURL", req.AvatarURL)
	setString("UITheme", req.UITheme)
	setString("Team", req.Team)
	setString("Bio", req.Bio)
	if req.SQLUser != nil {
		params["SQL_USER"] = *req.SQLUser
	}

	if _, err := h.store.ExecuteQuery(c.Request.Context(), repository.TableUsers, repository.OpUpdate, params); err != nil {
		h.storeError(c, err, "Failed to update user details")
		return
	}

	h.audit.Record(auditRoute(c), params, actor(c))
	c.JSON(http.StatusOK, gin.H{"message": "User updated successfully"})
}

func (h *Handler) deleteUser(c *gin.Context) {
	id := c.Param("user")
	if _, err := h.store.ExecuteQuery(c.Request.Context(), repository.TableUsers, repository.OpDelete, repository.Params{"ID": id}); err != nil {
		h.storeError(c, err, "Failed to delete user")
		return
	}

	h.audit.Record(auditRoute(c), nil, actor(c))
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func sameUser(a, b string) bool {
	return domain.NormalizeUsername(a) == domain.NormalizeUsername(b)
}

// queryParams copies the query string into a parameter bag, keeping the
// first value of each key.
func queryParams(c *gin.Context) repository.Params {
	params := repository.Params{}
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}
