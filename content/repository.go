package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"nexuslab/auth"
	"nexuslab/common"
	"nexuslab/models"
	"nexuslab/storage"
)

// PostView is a post joined with the display fields listings need.
type PostView struct {
	models.Post
	AuthorUsername  string  `json:"author_username"`
	AuthorAvatarURL *string `json:"author_avatar_url,omitempty"`
	CategoryName    string  `json:"category_name,omitempty"`
	CategorySlug    string  `json:"category_slug,omitempty"`
}

// CommentView is a comment joined with its author's display fields.
type CommentView struct {
	models.Comment
	AuthorUsername  string  `json:"author_username"`
	AuthorAvatarURL *string `json:"author_avatar_url,omitempty"`
}

// CreatePostInput carries everything a new post needs. The thumbnail is
// optional; when present it is uploaded before the row is written.
type CreatePostInput struct {
	Title         string
	Content       string
	CategoryID    *string
	Thumbnail     io.Reader
	ThumbnailName string
	ThumbnailSize int64
}

// Repository owns all reads and writes of posts, categories and comments.
type Repository struct {
	db    *gorm.DB
	blobs storage.BlobStore
}

func NewRepository(db *gorm.DB, blobs storage.BlobStore) *Repository {
	return &Repository{db: db, blobs: blobs}
}

// ListCategories returns every category ordered by name.
func (r *Repository) ListCategories() ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// GetCategoryBySlug returns a category and its published posts,
// newest-first.
func (r *Repository) GetCategoryBySlug(slug string) (*models.Category, []PostView, error) {
	var category models.Category
	if err := r.db.First(&category, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, common.ErrNotFound
		}
		return nil, nil, err
	}

	var posts []models.Post
	err := r.db.Order("created_at DESC").
		Find(&posts, "category_id = ? AND published = ?", category.ID, true).Error
	if err != nil {
		return nil, nil, err
	}

	views, err := r.assemblePostViews(posts)
	if err != nil {
		return nil, nil, err
	}
	return &category, views, nil
}

// ListPosts returns posts newest-first. Anonymous requesters only see
// published posts. With includeDrafts, admins see everything and regular
// users additionally see their own drafts.
func (r *Repository) ListPosts(principal *auth.Principal, includeDrafts bool) ([]PostView, error) {
	query := r.db.Order("created_at DESC")

	switch {
	case !includeDrafts || principal == nil:
		query = query.Where("published = ?", true)
	case !principal.IsAdmin():
		query = query.Where("published = ? OR author_id = ?", true, principal.User.ID)
	}

	var posts []models.Post
	if err := query.Find(&posts).Error; err != nil {
		return nil, err
	}
	return r.assemblePostViews(posts)
}

// GetPostBySlug fetches a single post. Drafts are only visible to their
// author and to admins; everyone else gets a not-found, never a hint that
// the draft exists.
func (r *Repository) GetPostBySlug(slug string, principal *auth.Principal) (*PostView, error) {
	var post models.Post
	if err := r.db.First(&post, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}

	if !post.Published {
		if principal == nil || (principal.User.ID != post.AuthorID && !principal.IsAdmin()) {
			return nil, common.ErrNotFound
		}
	}

	views, err := r.assemblePostViews([]models.Post{post})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// CreatePost stores a new draft. The thumbnail upload happens first so a
// failed upload never leaves a post pointing at a missing image.
func (r *Repository) CreatePost(ctx context.Context, principal *auth.Principal, input CreatePostInput) (*PostView, error) {
	if principal == nil {
		return nil, common.ErrAuthRequired
	}

	slug := Slugify(input.Title)
	if slug == "" {
		return nil, fmt.Errorf("%w: title must contain letters or numbers", common.ErrValidation)
	}

	var thumbnailURL *string
	if input.Thumbnail != nil {
		ext := filepath.Ext(input.ThumbnailName)
		path := fmt.Sprintf("%s/%d-%s%s", principal.User.ID, time.Now().UnixMilli(), slug, ext)
		if err := r.blobs.Upload(ctx, path, input.Thumbnail, input.ThumbnailSize); err != nil {
			return nil, fmt.Errorf("uploading thumbnail: %w", err)
		}
		url := r.blobs.PublicURL(path)
		thumbnailURL = &url
	}

	post := models.Post{
		ID:           uuid.NewString(),
		Title:        input.Title,
		Content:      input.Content,
		Slug:         slug,
		ThumbnailURL: thumbnailURL,
		AuthorID:     principal.User.ID,
		CategoryID:   input.CategoryID,
		Published:    false,
	}
	if err := r.db.Create(&post).Error; err != nil {
		return nil, err
	}

	views, err := r.assemblePostViews([]models.Post{post})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// UpdatePost edits a draft. Only the author may edit, published posts are
// locked, and admins are exempt from both rules. A title change re-derives
// the slug.
func (r *Repository) UpdatePost(principal *auth.Principal, postID string, req models.UpdatePostRequest) (*PostView, error) {
	if principal == nil {
		return nil, common.ErrAuthRequired
	}

	var post models.Post
	if err := r.db.First(&post, "id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}

	if post.AuthorID != principal.User.ID && !principal.IsAdmin() {
		return nil, common.ErrForbidden
	}
	if post.Published && !principal.IsAdmin() {
		return nil, fmt.Errorf("%w: published posts cannot be edited", common.ErrForbidden)
	}

	if req.Title != nil {
		slug := Slugify(*req.Title)
		if slug == "" {
			return nil, fmt.Errorf("%w: title must contain letters or numbers", common.ErrValidation)
		}
		post.Title = *req.Title
		post.Slug = slug
	}
	if req.Content != nil {
		post.Content = *req.Content
	}
	if req.CategoryID != nil {
		if *req.CategoryID == "" {
			post.CategoryID = nil
		} else {
			post.CategoryID = req.CategoryID
		}
	}

	if err := r.db.Save(&post).Error; err != nil {
		return nil, err
	}

	views, err := r.assemblePostViews([]models.Post{post})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// DeletePost removes a post. Authors may delete their own, admins any.
func (r *Repository) DeletePost(principal *auth.Principal, postID string) error {
	if principal == nil {
		return common.ErrAuthRequired
	}

	var post models.Post
	if err := r.db.First(&post, "id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.ErrNotFound
		}
		return err
	}

	if post.AuthorID != principal.User.ID && !principal.IsAdmin() {
		return common.ErrForbidden
	}

	result := r.db.Delete(&models.Post{}, "id = ?", postID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// PublishPost flips a draft to published. Publishing is one-way and
// idempotent.
func (r *Repository) PublishPost(principal *auth.Principal, postID string) (*PostView, error) {
	if principal == nil {
		return nil, common.ErrAuthRequired
	}

	var post models.Post
	if err := r.db.First(&post, "id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}

	if post.AuthorID != principal.User.ID && !principal.IsAdmin() {
		return nil, common.ErrForbidden
	}

	if !post.Published {
		if err := r.db.Model(&post).Update("published", true).Error; err != nil {
			return nil, err
		}
		post.Published = true
	}

	views, err := r.assemblePostViews([]models.Post{post})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (r *Repository) postByID(postID string) (*models.Post, error) {
	var post models.Post
	if err := r.db.First(&post, "id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

// ListComments returns a post's comments newest-first.
func (r *Repository) ListComments(postID string) ([]CommentView, error) {
	var comments []models.Comment
	if err := r.db.Order("created_at DESC").Find(&comments, "post_id = ?", postID).Error; err != nil {
		return nil, err
	}
	return r.assembleCommentViews(comments)
}

// AddComment attaches a comment to an existing post. Blank content is
// rejected before touching the database.
func (r *Repository) AddComment(principal *auth.Principal, postID, body string) (*CommentView, error) {
	if principal == nil {
		return nil, common.ErrAuthRequired
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: comment content is required", common.ErrValidation)
	}

	var count int64
	if err := r.db.Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, common.ErrNotFound
	}

	comment := models.Comment{
		ID:      uuid.NewString(),
		PostID:  postID,
		UserID:  principal.User.ID,
		Content: body,
	}
	if err := r.db.Create(&comment).Error; err != nil {
		return nil, err
	}

	views, err := r.assembleCommentViews([]models.Comment{comment})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListSavedPosts returns the posts a user has saved, most recently saved
// first. Saves whose post has since been deleted are skipped.
func (r *Repository) ListSavedPosts(userID string) ([]PostView, error) {
	var saves []models.SavedPost
	if err := r.db.Order("created_at DESC").Find(&saves, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	if len(saves) == 0 {
		return []PostView{}, nil
	}

	postIDs := make([]string, 0, len(saves))
	for _, s := range saves {
		postIDs = append(postIDs, s.PostID)
	}

	var posts []models.Post
	if err := r.db.Find(&posts, "id IN ?", postIDs).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	ordered := make([]models.Post, 0, len(posts))
	for _, s := range saves {
		if p, ok := byID[s.PostID]; ok {
			ordered = append(ordered, p)
		}
	}
	return r.assemblePostViews(ordered)
}

// assemblePostViews resolves author and category display fields with two
// batch lookups instead of per-row queries.
func (r *Repository) assemblePostViews(posts []models.Post) ([]PostView, error) {
	if len(posts) == 0 {
		return []PostView{}, nil
	}

	authorIDs := make([]string, 0, len(posts))
	categoryIDs := make([]string, 0, len(posts))
	for _, p := range posts {
		authorIDs = append(authorIDs, p.AuthorID)
		if p.CategoryID != nil {
			categoryIDs = append(categoryIDs, *p.CategoryID)
		}
	}

	var profiles []models.Profile
	if err := r.db.Find(&profiles, "id IN ?", authorIDs).Error; err != nil {
		return nil, err
	}
	authors := make(map[string]models.Profile, len(profiles))
	for _, p := range profiles {
		authors[p.ID] = p
	}

	categories := make(map[string]models.Category)
	if len(categoryIDs) > 0 {
		var rows []models.Category
		if err := r.db.Find(&rows, "id IN ?", categoryIDs).Error; err != nil {
			return nil, err
		}
		for _, c := range rows {
			categories[c.ID] = c
		}
	}

	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		author := authors[p.AuthorID]
		view := PostView{Post: p, AuthorUsername: author.Username, AuthorAvatarURL: author.AvatarURL}
		if p.CategoryID != nil {
			if c, ok := categories[*p.CategoryID]; ok {
				view.CategoryName = c.Name
				view.CategorySlug = c.Slug
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (r *Repository) assembleCommentViews(comments []models.Comment) ([]CommentView, error) {
	if len(comments) == 0 {
		return []CommentView{}, nil
	}

	userIDs := make([]string, 0, len(comments))
	for _, c := range comments {
		userIDs = append(userIDs, c.UserID)
	}

	var profiles []models.Profile
	if err := r.db.Find(&profiles, "id IN ?", userIDs).Error; err != nil {
		return nil, err
	}
	authors := make(map[string]models.Profile, len(profiles))
	for _, p := range profiles {
		authors[p.ID] = p
	}

	views := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		author := authors[c.UserID]
		views = append(views, CommentView{
			Comment:         c,
			AuthorUsername:  author.Username,
			AuthorAvatarURL: author.AvatarURL,
		})
	}
	return views, nil
}
