package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account within the BookLoft platform.
type User struct {
	ID         int64     `json:"id,string"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Bio        string    `json:"bio"`
	AvatarHash *string   `json:"avatar_hash"`
	CreatedAt  time.Time `json:"created_at"`
}

// Credential holds the password hash for a user. It is created in the same
// unit of work as the owning user row and never leaves the auth boundary.
type Credential struct {
	UserID   int64
	Passhash string
}

// Session is a bearer token issued to an authenticated user. A session
// authorizes requests only while ExpiresAt is in the future.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id,string"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Asset is an arbitrary binary blob identified by the base64url-encoded
// SHA-256 hash of its data. Rows are immutable once written.
type Asset struct {
	Hash        string    `json:"hash"`
	Data        []byte    `json:"-"`
	ContentType string    `json:"content_type"`
	Alt         *string   `json:"alt"`
	CreatedAt   time.Time `json:"created_at"`
}

// Book is a cataloged title owned by a user and written by an author.
type Book struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageHash   *string   `json:"image_hash"`
	AuthorID    int64     `json:"author,string"`
	OwnerID     int64     `json:"owner,string"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Author is a catalog entity that books reference.
type Author struct {
	ID         int64     `json:"id,string"`
	Name       string    `json:"name"`
	Bio        string    `json:"bio"`
	AvatarHash *string   `json:"avatar_hash"`
	CreatedAt  time.Time `json:"created_at"`
}

// Tag labels books through the book_tags join table.
type Tag struct {
	ID          int64  `json:"id,string"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CommentMessage is a comment posted on a book. Its id is time-ordered, so
// sorting by id approximates sorting by creation time.
type CommentMessage struct {
	ID        int64          `json:"id,string"`
	BookID    uuid.UUID      `json:"book_id"`
	AuthorID  int64          `json:"author_id,string"`
	Content   CommentContent `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
}
