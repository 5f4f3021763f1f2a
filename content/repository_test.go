package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"nexuslab/auth"
	"nexuslab/common"
	"nexuslab/models"
	"nexuslab/storage"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{}, &models.Profile{}, &models.Category{},
		&models.Post{}, &models.Comment{}, &models.SavedPost{},
	)
	require.NoError(t, err)

	return db
}

func setupTestRepo(t *testing.T) (*Repository, *gorm.DB) {
	db := setupTestDB(t)
	return NewRepository(db, storage.NewMemoryStore("http://localhost:8080")), db
}

func createTestUser(t *testing.T, db *gorm.DB, username string, admin bool) *auth.Principal {
	user := models.User{
		ID:           uuid.NewString(),
		Email:        username + "@example.com",
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(&user).Error)

	profile := models.Profile{ID: user.ID, Username: username, IsAdmin: admin}
	require.NoError(t, db.Create(&profile).Error)

	return &auth.Principal{User: user, Profile: profile}
}

func createTestPost(t *testing.T, repo *Repository, author *auth.Principal, title string) *PostView {
	post, err := repo.CreatePost(context.Background(), author, CreatePostInput{
		Title:   title,
		Content: "some **markdown** content",
	})
	require.NoError(t, err)
	return post
}

func TestCreatePostStartsAsDraft(t *testing.T) {
	repo, db := setupTestRepo(t)
	author := createTestUser(t, db, "ada", false)

	post := createTestPost(t, repo, author, "My First Exploit")

	assert.False(t, post.Published)
	assert.Equal(t, "my-first-exploit", post.Slug)
	assert.Equal(t, author.User.ID, post.AuthorID)
	assert.Equal(t, "ada", post.AuthorUsername)
	assert.Nil(t, post.ThumbnailURL)
}

func TestCreatePostUploadsThumbnailFirst(t *testing.T) {
	db := setupTestDB(t)
	blobs := storage.NewMemoryStore("http://localhost:8080")
	repo := NewRepository(db, blobs)
	author := createTestUser(t, db, "ada", false)

	data := "fake image bytes"
	post, err := repo.CreatePost(context.Background(), author, CreatePostInput{
		Title:         "With Thumbnail",
		Content:       "body",
		Thumbnail:     strings.NewReader(data),
		ThumbnailName: "cover.png",
		ThumbnailSize: int64(len(data)),
	})
	require.NoError(t, err)

	require.NotNil(t, post.ThumbnailURL)
	assert.Contains(t, *post.ThumbnailURL, "with-thumbnail.png")
	assert.Contains(t, *post.ThumbnailURL, author.User.ID)
	assert.Equal(t, 1, blobs.Len())
}

type failStore struct{}

func (failStore) Upload(context.Context, string, io.Reader, int64) error {
	return errors.New("upload failed")
}

func (failStore) PublicURL(path string) string { return path }

func TestCreatePostAbortsWhenUploadFails(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, failStore{})
	author := createTestUser(t, db, "ada", false)

	_, err := repo.CreatePost(context.Background(), author, CreatePostInput{
		Title:         "Doomed",
		Content:       "body",
		Thumbnail:     strings.NewReader("x"),
		ThumbnailName: "x.png",
		ThumbnailSize: 1,
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreatePostRejectsUnsluggableTitle(t *testing.T) {
	repo, db := setupTestRepo(t)
	author := createTestUser(t, db, "ada", false)

	_, err := repo.CreatePost(context.Background(), author, CreatePostInput{
		Title:   "!!!???",
		Content: "body",
	})
	assert.ErrorIs(t, err, common.ErrValidation)

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdatePostRejectsUnsluggableTitle(t *testing.T) {
	repo, db := setupTestRepo(t)
	author := createTestUser(t, db, "ada", false)

	post := createTestPost(t, repo, author, "Fine Title")

	badTitle := "..."
	_, err := repo.UpdatePost(author, post.ID, models.UpdatePostRequest{Title: &badTitle})
	assert.ErrorIs(t, err, common.ErrValidation)

	kept, err := repo.GetPostBySlug("fine-title", author)
	require.NoError(t, err)
	assert.Equal(t, "Fine Title", kept.Title)
}

func TestGetPostBySlugHidesDrafts(t *testing.T) {
	repo, db := setupTestRepo(t)
	author := createTestUser(t, db, "ada", false)
	other := createTestUser(t, db, "bob", false)
	admin := createTestUser(t, db, "root", true)

	draft := createTestPost(t, repo, author, "Secret Draft")

	_, err := repo.GetPostBySlug(draft.Slug, nil)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = repo.GetPostBySlug(draft.Slug, other)
	assert.ErrorIs(t, err, common.ErrNotFound)

	got, err := repo.GetPostBySlug(draft.Slug, author)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, got.ID)

	got, err = repo.GetPostBySlug(draft.Slug, admin)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, got.ID)
}

func TestGetPostBySlugPublished(t *testing.T) {
	repo, db := setupTestRepo(t)
	author := createTestUser(t, db, "ada", false)

	post := createTestPost(t, repo, author, "Public Post")
	_, err := repo.PublishPost(author, post.ID)
	require.NoError(t, err)

	got, err := repo.GetPostBySlug(post.Slug, nil)
	require.NoError(t, err)
	assert.True(t, got.Published)
}

func TestListPostsDraftVisibility(t *testing.T) {
	repo, db := setupTestRepo(t)
	author := createTestUser(t, db, "ada", false)
	other := createTestUser(t, db, "bob", false)
	admin := createTestUser(t, db, "root", true)

	published := createTestPost(t, repo, author, "Published One")
	_, err := repo.PublishPost(author, published.ID)
	require.NoError(t, err)
	draft := createTestPost(t, repo, author, "Draft One")
	otherDraft := createTestPost(t, repo, other, "Bob Draft")

	anon, err := repo.ListPosts(nil, false)
	require.NoError(t, err)
	require.Len(t, anon, 1)
	assert.Equal(t, published.ID, anon[0].ID)

	own, err := repo.ListPosts(author, true)
	require.NoError(t, err)
	assert.Len(t, own, 2)
	for _, p := range own {
		assert.NotEqual(t, otherDraft.ID, p.ID)
	}

	all, err := repo.ListPosts(admin, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	_ = draft
}

func TestUpdatePostOwnership(t *testing.T) {
	repo, db := setupTestRepo(t)
	author := createTestUser(t, db, "ada", false)
	other := createTestUser(t, db, "bob", false)

	post := createTestPost(t, repo, author, "Original Title")

	newTitle := "Hijacked"
	_, err := repo.UpdatePost(other, post.ID, models.UpdatePostRequest{Title: &newTitle})
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestUpdatePostReslugsOnTitleChange(t *testing.T) {
	repo, db := setupTestRepo(t)
	author := createTestUser(t, db, "ada", false)

	post := createTestPost(t, repo, author, "Original Title")

	newTitle := "Renamed Post"
	updated, err := repo.UpdatePost(author, post.ID, models.UpdatePostRequest{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, "renamed-post", updated.Slug)
}

func TestUpdatePostLockedAfterPublish(t *testing.T) {
	repo, db := setupTestRepo(t)
	author := createTestUser(t, db, "ada", false)
	admin := createTestUser(t, db, "root", true)

	post := createTestPost(t, repo, author, "Soon Published")
	_, err := repo.PublishPost(author, post.ID)
	require.NoError(t, err)

	newContent := "edited"
	_, err = repo.UpdatePost(author, post.ID, models.UpdatePostRequest{Content: &newContent})
	assert.ErrorIs(t, err, common.ErrForbidden)

	updated, err := repo.UpdatePost(admin, post.ID, models.UpdatePostRequest{Content: &newContent})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)
}

func TestPublishPostIsOneWayAndIdempotent(t *testing.T) {
	repo, db := setupTestRepo(t)
	author := createTestUser(t, db, "ada", false)

	post := createTestPost(t, repo, author, "To Publish")

	first, err := repo.PublishPost(author, post.ID)
	require.NoError(t, err)
	assert.True(t, first.Published)

	second, err := repo.PublishPost(author, post.ID)
	require.NoError(t, err)
	assert.True(t, second.Published)
}

func TestPublishPostForbiddenForOthers(t *testing.T) {
	repo, db := setupTestRepo(t)
	author := createTestUser(t, db, "ada", false)
	other := createTestUser(t, db, "bob", false)

	post := createTestPost(t, repo, author, "Mine")

	_, err := repo.PublishPost(other, post.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestDeletePost(t *testing.T) {
	repo, db := setupTestRepo(t)
	author := createTestUser(t, db, "ada", false)
	other := createTestUser(t, db, "bob", false)
	admin := createTestUser(t, db, "root", true)

	post := createTestPost(t, repo, author, "Short Lived")

	assert.ErrorIs(t, repo.DeletePost(other, post.ID), common.ErrForbidden)
	require.NoError(t, repo.DeletePost(author, post.ID))
	assert.ErrorIs(t, repo.DeletePost(author, post.ID), common.ErrNotFound)

	second := createTestPost(t, repo, author, "Admin Removable")
	require.NoError(t, repo.DeletePost(admin, second.ID))
}

func TestAddComment(t *testing.T) {
	repo, db := setupTestRepo(t)
	author := createTestUser(t, db, "ada", false)
	commenter := createTestUser(t, db, "bob", false)

	post := createTestPost(t, repo, author, "Discussed")

	_, err := repo.AddComment(commenter, post.ID, "   ")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = repo.AddComment(commenter, "no-such-post", "hello")
	assert.ErrorIs(t, err, common.ErrNotFound)

	comment, err := repo.AddComment(commenter, post.ID, "great writeup")
	require.NoError(t, err)
	assert.Equal(t, "bob", comment.AuthorUsername)

	comments, err := repo.ListComments(post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "great writeup", comments[0].Content)
}

func TestListSavedPostsSkipsDeleted(t *testing.T) {
	repo, db := setupTestRepo(t)
	author := createTestUser(t, db, "ada", false)
	reader := createTestUser(t, db, "bob", false)

	first := createTestPost(t, repo, author, "Keep Me")
	second := createTestPost(t, repo, author, "Delete Me")

	now := time.Now()
	require.NoError(t, db.Create(&models.SavedPost{
		ID: uuid.NewString(), UserID: reader.User.ID, PostID: first.ID, CreatedAt: now.Add(-time.Minute),
	}).Error)
	require.NoError(t, db.Create(&models.SavedPost{
		ID: uuid.NewString(), UserID: reader.User.ID, PostID: second.ID, CreatedAt: now,
	}).Error)

	saved, err := repo.ListSavedPosts(reader.User.ID)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, second.ID, saved[0].ID)

	require.NoError(t, repo.DeletePost(author, second.ID))

	saved, err = repo.ListSavedPosts(reader.User.ID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, first.ID, saved[0].ID)
}

func TestListSavedPostsEmpty(t *testing.T) {
	repo, db := setupTestRepo(t)
	reader := createTestUser(t, db, "bob", false)

	saved, err := repo.ListSavedPosts(reader.User.ID)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestRenderMarkdown(t *testing.T) {
	html, err := RenderMarkdown("# Title\n\nsome **bold** text")
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>")
	assert.Contains(t, html, "<strong>bold</strong>")
}

func TestListCategoriesOrdered(t *testing.T) {
	repo, db := setupTestRepo(t)

	for _, name := range []string{"Web", "Binary", "Crypto"} {
		require.NoError(t, db.Create(&models.Category{
			ID: uuid.NewString(), Name: name, Slug: Slugify(name),
		}).Error)
	}

	categories, err := repo.ListCategories()
	require.NoError(t, err)
	require.Len(t, categories, 3)
	assert.Equal(t, "Binary", categories[0].Name)
	assert.Equal(t, "Crypto", categories[1].Name)
	assert.Equal(t, "Web", categories[2].Name)
}

func TestGetCategoryBySlug(t *testing.T) {
	repo, db := setupTestRepo(t)
	author := createTestUser(t, db, "ada", false)

	category := models.Category{ID: uuid.NewString(), Name: "Web", Slug: "web"}
	require.NoError(t, db.Create(&category).Error)

	post, err := repo.CreatePost(context.Background(), author, CreatePostInput{
		Title: "In Category", Content: "x", CategoryID: &category.ID,
	})
	require.NoError(t, err)

	// drafts are not part of a public category page
	got, posts, err := repo.GetCategoryBySlug("web")
	require.NoError(t, err)
	assert.Equal(t, "Web", got.Name)
	assert.Empty(t, posts)

	_, err = repo.PublishPost(author, post.ID)
	require.NoError(t, err)

	_, posts, err = repo.GetCategoryBySlug("web")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, post.ID, posts[0].ID)
	assert.Equal(t, "web", posts[0].CategorySlug)

	_, _, err = repo.GetCategoryBySlug("missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestThumbnailPathFormat(t *testing.T) {
	db := setupTestDB(t)
	blobs := storage.NewMemoryStore("")
	repo := NewRepository(db, blobs)
	author := createTestUser(t, db, "ada", false)

	data := "img"
	post, err := repo.CreatePost(context.Background(), author, CreatePostInput{
		Title:         "Path Check",
		Content:       "body",
		Thumbnail:     strings.NewReader(data),
		ThumbnailName: "shot.jpeg",
		ThumbnailSize: int64(len(data)),
	})
	require.NoError(t, err)
	require.NotNil(t, post.ThumbnailURL)
	assert.True(t, strings.HasPrefix(*post.ThumbnailURL, fmt.Sprintf("/uploads/%s/", author.User.ID)) ||
		strings.Contains(*post.ThumbnailURL, author.User.ID))
	assert.True(t, strings.HasSuffix(*post.ThumbnailURL, "-path-check.jpeg"))
}
