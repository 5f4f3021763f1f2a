package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"nexuslab/models"
)

type Module struct {
	db        *gorm.DB
	store     *SessionStore
	jwtSecret string
}

func NewAuthModule(db *gorm.DB, store *SessionStore, jwtSecret string) *Module {
	return &Module{db: db, store: store, jwtSecret: jwtSecret}
}

func (m *Module) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/auth")
	group.POST("/register", m.register)
	group.POST("/login", m.login)

	authed := group.Group("")
	authed.Use(m.RequireAuth())
	authed.POST("/logout", m.logout)
	authed.GET("/me", m.me)
	authed.PUT("/password", m.updatePassword)

	router.GET("/profiles/:id", m.getProfile)
	profiles := router.Group("/profiles")
	profiles.Use(m.RequireAuth())
	profiles.PUT("/me", m.updateProfile)
}

func (m *Module) getProfile(c *gin.Context) {
	var profile models.Profile
	if err := m.db.First(&profile, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not_found", Message: "profile not found"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (m *Module) register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation_error", Message: err.Error()})
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "backend_error", Message: "could not process password"})
		return
	}

	username := strings.Split(req.Email, "@")[0]
	if req.Username != nil && *req.Username != "" {
		username = *req.Username
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
	}
	profile := models.Profile{ID: user.ID, Username: username}

	err = m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&profile).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, models.ErrorResponse{Error: "email_taken", Message: "an account with this email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "backend_error", Message: "could not create account"})
		return
	}

	m.signIn(c, &Principal{User: user, Profile: profile})
}

func (m *Module) login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation_error", Message: err.Error()})
		return
	}

	var user models.User
	if err := m.db.First(&user, "email = ?", strings.ToLower(strings.TrimSpace(req.Email))).Error; err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid_credentials", Message: "email or password is incorrect"})
		return
	}
	if !checkPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid_credentials", Message: "email or password is incorrect"})
		return
	}

	p := m.loadPrincipal(user.ID)
	if p == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "backend_error", Message: "could not load profile"})
		return
	}
	m.signIn(c, p)
}

// signIn establishes both credential surfaces: the cookie session for
// browser clients and a Bearer token for API clients.
func (m *Module) signIn(c *gin.Context, p *Principal) {
	session := sessions.Default(c)
	session.Set("user_id", p.User.ID)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "backend_error", Message: "could not save session"})
		return
	}

	token, err := GenerateToken(p.User.ID, m.jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "backend_error", Message: "could not issue token"})
		return
	}

	m.store.SignedIn(p)

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"user":    p.User,
		"profile": p.Profile,
	})
}

func (m *Module) logout(c *gin.Context) {
	p := CurrentPrincipal(c)

	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "backend_error", Message: "could not clear session"})
		return
	}

	m.store.SignedOut(p.User.ID)
	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

func (m *Module) me(c *gin.Context) {
	p := CurrentPrincipal(c)
	c.JSON(http.StatusOK, gin.H{"user": p.User, "profile": p.Profile})
}

func (m *Module) updatePassword(c *gin.Context) {
	var req models.UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation_error", Message: err.Error()})
		return
	}
	if req.Password != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation_error", Message: "passwords do not match"})
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "backend_error", Message: "could not process password"})
		return
	}

	p := CurrentPrincipal(c)
	if err := m.db.Model(&models.User{}).Where("id = ?", p.User.ID).Update("password_hash", hash).Error; err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "backend_error", Message: "could not update password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

func (m *Module) updateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation_error", Message: err.Error()})
		return
	}

	p := CurrentPrincipal(c)
	updates := map[string]interface{}{}
	if req.Username != nil {
		updates["username"] = *req.Username
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}
	if len(updates) == 0 {
		c.JSON(http.StatusOK, p.Profile)
		return
	}

	if err := m.db.Model(&models.Profile{}).Where("id = ?", p.User.ID).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "backend_error", Message: "could not update profile"})
		return
	}

	var profile models.Profile
	if err := m.db.First(&profile, "id = ?", p.User.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "backend_error", Message: "could not load profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
