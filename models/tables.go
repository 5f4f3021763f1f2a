package models

import (
	"time"

	"gorm.io/datatypes"
)

type User struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"unique;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"` // json:"-" prevents password from being exposed in API
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is the public identity of a User, one row per user with the same id.
// IsAdmin is only ever read by this application; flipping it is a direct
// database operation.
type Profile struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"not null;index" json:"username"`
	Bio       *string   `gorm:"type:text" json:"bio,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	IsAdmin   bool      `gorm:"default:false" json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Category struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Slug        string    `gorm:"unique;not null;index" json:"slug"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Post struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"not null" json:"title"`
	Content      string    `gorm:"type:text" json:"content"`
	Slug         string    `gorm:"not null;index" json:"slug"` // derived from title, not unique
	ThumbnailURL *string   `json:"thumbnail_url,omitempty"`
	AuthorID     string    `gorm:"not null;index" json:"author_id"`
	CategoryID   *string   `gorm:"index" json:"category_id,omitempty"`
	Published    bool      `gorm:"default:false;index" json:"published"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Comment struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	PostID    string    `gorm:"not null;index" json:"post_id"`
	UserID    string    `gorm:"not null;index" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SavedPost existence alone means "saved". The composite unique index keeps
// at most one row per (user, post) pair even under concurrent toggles.
type SavedPost struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"not null;index;uniqueIndex:idx_user_post_save" json:"user_id"`
	PostID    string    `gorm:"not null;index;uniqueIndex:idx_user_post_save" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// WebsiteContent holds a semi-structured JSON document per static page,
// edited only by admins.
type WebsiteContent struct {
	ID        string            `gorm:"primaryKey" json:"id"`
	PageName  string            `gorm:"unique;not null;index" json:"page_name"`
	Content   datatypes.JSONMap `json:"content"`
	UpdatedBy string            `json:"updated_by"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
