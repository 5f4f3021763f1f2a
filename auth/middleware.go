package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"nexuslab/models"
)

const principalKey = "principal"

// CurrentPrincipal returns the authenticated principal for the request, or
// nil when the request is anonymous.
func CurrentPrincipal(c *gin.Context) *Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, ok := v.(*Principal)
	if !ok {
		return nil
	}
	return p
}

// LoadPrincipal resolves the requester's identity when credentials are
// present but never rejects the request. Public routes use it so handlers
// can vary their response for signed-in users.
func (m *Module) LoadPrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		if p := m.resolvePrincipal(c); p != nil {
			c.Set(principalKey, p)
		}
		c.Next()
	}
}

// RequireAuth rejects requests that carry no valid session cookie or Bearer
// token.
func (m *Module) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := m.resolvePrincipal(c)
		if p == nil {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "auth_required",
				Message: "authentication required",
			})
			c.Abort()
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireAdmin rejects non-admin requesters. It must run after RequireAuth.
func (m *Module) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := CurrentPrincipal(c)
		if !p.IsAdmin() {
			c.JSON(http.StatusForbidden, models.ErrorResponse{
				Error:   "restricted_access",
				Message: "administrator access required",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// resolvePrincipal tries the session cookie first, then a Bearer token.
func (m *Module) resolvePrincipal(c *gin.Context) *Principal {
	session := sessions.Default(c)
	if v := session.Get("user_id"); v != nil {
		if userID, ok := v.(string); ok {
			if p := m.loadPrincipal(userID); p != nil {
				return p
			}
		}
	}

	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil
	}
	userID, err := ValidateToken(strings.TrimPrefix(header, "Bearer "), m.jwtSecret)
	if err != nil {
		return nil
	}
	return m.loadPrincipal(userID)
}

func (m *Module) loadPrincipal(userID string) *Principal {
	var user models.User
	if err := m.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil
	}

	var profile models.Profile
	if err := m.db.First(&profile, "id = ?", userID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		profile = models.Profile{ID: userID}
	}

	return &Principal{User: user, Profile: profile}
}
