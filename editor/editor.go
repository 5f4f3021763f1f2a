package editor

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"nexuslab/auth"
	"nexuslab/common"
	"nexuslab/models"
)

type EditorModule struct {
	db   *gorm.DB
	auth *auth.Module
}

func NewEditorModule(db *gorm.DB, authModule *auth.Module) *EditorModule {
	return &EditorModule{db: db, auth: authModule}
}

func (m *EditorModule) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/admin/pages")
	group.Use(m.auth.RequireAuth(), m.auth.RequireAdmin())
	group.GET("", m.listPages)
	group.POST("", m.createPage)
	group.GET("/:page_name", m.getPage)
	group.PUT("/:page_name", m.updatePage)
	group.DELETE("/:page_name", m.deletePage)
}

// requireAdmin re-checks the flag inside each handler. The route group
// already gates on it, but content mutation must never depend on middleware
// ordering alone.
func (m *EditorModule) requireAdmin(c *gin.Context) *auth.Principal {
	principal := auth.CurrentPrincipal(c)
	if !principal.IsAdmin() {
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Error:   "restricted_access",
			Message: "administrator access required",
		})
		return nil
	}
	return principal
}

func (m *EditorModule) listPages(c *gin.Context) {
	if m.requireAdmin(c) == nil {
		return
	}

	var pages []models.WebsiteContent
	if err := m.db.Order("page_name ASC").Find(&pages).Error; err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, pages)
}

func (m *EditorModule) createPage(c *gin.Context) {
	principal := m.requireAdmin(c)
	if principal == nil {
		return
	}

	var req models.CreatePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation_error", Message: err.Error()})
		return
	}

	content := NewPageContent(req.PageName)
	if len(req.Content) > 0 {
		content = datatypes.JSONMap(req.Content)
	}

	page := models.WebsiteContent{
		ID:        uuid.NewString(),
		PageName:  req.PageName,
		Content:   content,
		UpdatedBy: principal.User.ID,
	}
	if err := m.db.Create(&page).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Error:   "page_exists",
				Message: "a page with this name already exists",
			})
			return
		}
		common.WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"page":     page,
		"document": ParseDocument(page.Content),
	})
}

func (m *EditorModule) getPage(c *gin.Context) {
	if m.requireAdmin(c) == nil {
		return
	}

	page, err := m.pageByName(c.Param("page_name"))
	if err != nil {
		common.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"page":     page,
		"document": ParseDocument(page.Content),
	})
}

// updatePage overwrites the whole content document. Partial patches are a
// client concern; the API stores what it is given.
func (m *EditorModule) updatePage(c *gin.Context) {
	principal := m.requireAdmin(c)
	if principal == nil {
		return
	}

	var req models.UpdatePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation_error", Message: err.Error()})
		return
	}

	page, err := m.pageByName(c.Param("page_name"))
	if err != nil {
		common.WriteError(c, err)
		return
	}

	page.Content = datatypes.JSONMap(req.Content)
	page.UpdatedBy = principal.User.ID
	page.UpdatedAt = time.Now()

	if err := m.db.Save(page).Error; err != nil {
		common.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"page":     page,
		"document": ParseDocument(page.Content),
	})
}

func (m *EditorModule) deletePage(c *gin.Context) {
	if m.requireAdmin(c) == nil {
		return
	}

	result := m.db.Delete(&models.WebsiteContent{}, "page_name = ?", c.Param("page_name"))
	if result.Error != nil {
		common.WriteError(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		common.WriteError(c, common.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "page deleted"})
}

func (m *EditorModule) pageByName(pageName string) (*models.WebsiteContent, error) {
	var page models.WebsiteContent
	if err := m.db.First(&page, "page_name = ?", pageName).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return &page, nil
}
