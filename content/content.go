package content

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"nexuslab/auth"
	"nexuslab/common"
	"nexuslab/models"
	"nexuslab/storage"
)

type ContentModule struct {
	repo     *Repository
	auth     *auth.Module
	renderer *Renderer
}

func NewContentModule(db *gorm.DB, blobs storage.BlobStore, authModule *auth.Module, renderer *Renderer) *ContentModule {
	return &ContentModule{
		repo:     NewRepository(db, blobs),
		auth:     authModule,
		renderer: renderer,
	}
}

func (m *ContentModule) Repo() *Repository {
	return m.repo
}

func (m *ContentModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/categories", m.listCategories)
	router.GET("/categories/:slug", m.getCategory)

	public := router.Group("")
	public.Use(m.auth.LoadPrincipal())
	public.GET("/posts", m.listPosts)
	public.GET("/posts/slug/:slug", m.getPostBySlug)
	public.GET("/posts/:id/comments", m.listComments)

	authed := router.Group("")
	authed.Use(m.auth.RequireAuth())
	authed.POST("/posts", m.createPost)
	authed.PUT("/posts/:id", m.updatePost)
	authed.DELETE("/posts/:id", m.deletePost)
	authed.POST("/posts/:id/publish", m.publishPost)
	authed.POST("/posts/:id/comments", m.addComment)
	authed.GET("/saved-posts", m.listSavedPosts)
}

func (m *ContentModule) listCategories(c *gin.Context) {
	categories, err := m.repo.ListCategories()
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (m *ContentModule) getCategory(c *gin.Context) {
	category, posts, err := m.repo.GetCategoryBySlug(c.Param("slug"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category, "posts": posts})
}

func (m *ContentModule) listPosts(c *gin.Context) {
	principal := auth.CurrentPrincipal(c)

	includeDrafts := c.Query("published_only") == "false"
	if includeDrafts && principal == nil {
		common.WriteError(c, common.ErrAuthRequired)
		return
	}

	posts, err := m.repo.ListPosts(principal, includeDrafts)
	if err != nil {
		common.WriteError(c, err)
		return
	}

	opts := ListOptions{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		Sort:     Order(c.DefaultQuery("sort", string(OrderRecent))),
	}
	c.JSON(http.StatusOK, ApplyListOptions(posts, opts))
}

func (m *ContentModule) getPostBySlug(c *gin.Context) {
	principal := auth.CurrentPrincipal(c)

	post, err := m.repo.GetPostBySlug(c.Param("slug"), principal)
	if err != nil {
		common.WriteError(c, err)
		return
	}

	html, err := m.renderer.RenderPost(post)
	if err != nil {
		common.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": post, "html": html})
}

func (m *ContentModule) createPost(c *gin.Context) {
	principal := auth.CurrentPrincipal(c)

	title := strings.TrimSpace(c.PostForm("title"))
	body := c.PostForm("content")
	if title == "" || strings.TrimSpace(body) == "" {
		common.WriteError(c, fmt.Errorf("%w: title and content are required", common.ErrValidation))
		return
	}

	input := CreatePostInput{Title: title, Content: body}
	if categoryID := c.PostForm("category_id"); categoryID != "" {
		input.CategoryID = &categoryID
	}

	if file, err := c.FormFile("thumbnail"); err == nil {
		reader, err := file.Open()
		if err != nil {
			common.WriteError(c, err)
			return
		}
		defer reader.Close()
		input.Thumbnail = reader
		input.ThumbnailName = file.Filename
		input.ThumbnailSize = file.Size
	}

	post, err := m.repo.CreatePost(c.Request.Context(), principal, input)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (m *ContentModule) updatePost(c *gin.Context) {
	principal := auth.CurrentPrincipal(c)

	var req models.UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c, fmt.Errorf("%w: %s", common.ErrValidation, err.Error()))
		return
	}

	existing, err := m.repo.postByID(c.Param("id"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	oldSlug := existing.Slug

	post, err := m.repo.UpdatePost(principal, c.Param("id"), req)
	if err != nil {
		common.WriteError(c, err)
		return
	}

	m.renderer.Invalidate(oldSlug)
	m.renderer.Invalidate(post.Slug)
	c.JSON(http.StatusOK, post)
}

func (m *ContentModule) deletePost(c *gin.Context) {
	principal := auth.CurrentPrincipal(c)

	existing, err := m.repo.postByID(c.Param("id"))
	if err != nil {
		common.WriteError(c, err)
		return
	}

	if err := m.repo.DeletePost(principal, c.Param("id")); err != nil {
		common.WriteError(c, err)
		return
	}

	m.renderer.Invalidate(existing.Slug)
	c.JSON(http.StatusOK, gin.H{"message": "post deleted"})
}

func (m *ContentModule) publishPost(c *gin.Context) {
	principal := auth.CurrentPrincipal(c)

	post, err := m.repo.PublishPost(principal, c.Param("id"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (m *ContentModule) listComments(c *gin.Context) {
	comments, err := m.repo.ListComments(c.Param("id"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (m *ContentModule) addComment(c *gin.Context) {
	principal := auth.CurrentPrincipal(c)

	var req models.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c, fmt.Errorf("%w: %s", common.ErrValidation, err.Error()))
		return
	}

	comment, err := m.repo.AddComment(principal, c.Param("id"), req.Content)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (m *ContentModule) listSavedPosts(c *gin.Context) {
	principal := auth.CurrentPrincipal(c)

	posts, err := m.repo.ListSavedPosts(principal.User.ID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}
