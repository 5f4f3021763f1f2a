package saved

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"nexuslab/auth"
	"nexuslab/common"
	"nexuslab/models"
)

// Coordinator implements the save-toggle for posts. A save is pure row
// existence, so toggling is delete-if-present or insert, and the composite
// unique index absorbs concurrent inserts.
type Coordinator struct {
	db *gorm.DB
}

func NewCoordinator(db *gorm.DB) *Coordinator {
	return &Coordinator{db: db}
}

// CheckSaved reports whether a user has saved a post. A missing row is a
// plain false, never an error.
func (co *Coordinator) CheckSaved(userID, postID string) (bool, error) {
	var save models.SavedPost
	err := co.db.First(&save, "user_id = ? AND post_id = ?", userID, postID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Toggle flips the saved state of a post for a user and returns the new
// state. Toggling a nonexistent post is rejected.
func (co *Coordinator) Toggle(userID, postID string) (bool, error) {
	var count int64
	if err := co.db.Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, common.ErrNotFound
	}

	saved, err := co.CheckSaved(userID, postID)
	if err != nil {
		return false, err
	}

	if saved {
		result := co.db.Delete(&models.SavedPost{}, "user_id = ? AND post_id = ?", userID, postID)
		if result.Error != nil {
			return false, result.Error
		}
		return false, nil
	}

	save := models.SavedPost{ID: uuid.NewString(), UserID: userID, PostID: postID}
	if err := co.db.Create(&save).Error; err != nil {
		// a concurrent toggle won the insert race; the post is saved either way
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return true, nil
		}
		return false, err
	}
	return true, nil
}

type SavedModule struct {
	coordinator *Coordinator
	auth        *auth.Module
}

func NewSavedModule(db *gorm.DB, authModule *auth.Module) *SavedModule {
	return &SavedModule{coordinator: NewCoordinator(db), auth: authModule}
}

func (m *SavedModule) RegisterRoutes(router *gin.Engine) {
	group := router.Group("")
	group.Use(m.auth.RequireAuth())
	group.GET("/posts/:id/saved", m.checkSaved)
	group.POST("/posts/:id/save-toggle", m.toggleSaved)
}

func (m *SavedModule) checkSaved(c *gin.Context) {
	principal := auth.CurrentPrincipal(c)

	saved, err := m.coordinator.CheckSaved(principal.User.ID, c.Param("id"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": saved})
}

func (m *SavedModule) toggleSaved(c *gin.Context) {
	principal := auth.CurrentPrincipal(c)

	saved, err := m.coordinator.Toggle(principal.User.ID, c.Param("id"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": saved})
}
