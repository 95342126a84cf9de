// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Post represents a forum post. Title, description and tags are optional;
// the image payload (remote URL or embedded data URI) is required at creation.
type Post struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UserID      uint   `gorm:"not null;index" json:"user_id"`
	User        User   `gorm:"foreignKey:UserID" json:"-"`
	Title       string `json:"title"`
	Description string `gorm:"type:text" json:"description"`
	ImageURL    string `gorm:"type:text;not null" json:"image_url"`
	Tags        string `json:"tags"`
	// Username, AuthorBio and AuthorAvatar are not persisted; joined from users at query time
	Username     string `gorm:"->" json:"username,omitempty"`
	AuthorBio    string `gorm:"->" json:"author_bio,omitempty"`
	AuthorAvatar string `gorm:"->" json:"author_avatar,omitempty"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"->" json:"commentCount"`
	// CommentPreview is the single most recent comment, filled only by
	// preview listings. Null when the post has no comments.
	CommentPreview *CommentPreview `gorm:"-" json:"commentPreview,omitempty"`
	Comments       []Comment       `gorm:"foreignKey:PostID" json:"comments,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`
}

// CommentPreview is the most recent comment of a post, used in feed summaries.
type CommentPreview struct {
	ID        uint      `json:"id"`
	PostID    uint      `json:"post_id"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
