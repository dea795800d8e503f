package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/bookloft/backend/internal/auth"
	"github.com/bookloft/backend/internal/models"
)

// Page carries pagination parameters. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

// Limit returns the row cap for the page.
func (p Page) Limit() int {
	if p.Size <= 0 {
		return 50
	}
	return p.Size
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Limit()
}

// UserStore defines the data access contract for users.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id int64) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	Update(ctx context.Context, user models.User) error
}

// CredentialStore persists password records, one per user.
type CredentialStore interface {
	Create(ctx context.Context, cred models.Credential) error
	FindByUserID(ctx context.Context, userID int64) (models.Credential, error)
	Update(ctx context.Context, cred models.Credential) error
}

// AssetStore persists content-addressed binary blobs.
type AssetStore interface {
	Put(ctx context.Context, asset models.Asset) error
	Find(ctx context.Context, hash string) (models.Asset, error)
	FindMetadata(ctx context.Context, hash string) (models.Asset, error)
	Exists(ctx context.Context, hash string) error
}

// BookStore defines data access for books and their tag links.
type BookStore interface {
	Create(ctx context.Context, book models.Book) error
	FindByID(ctx context.Context, id uuid.UUID) (models.Book, error)
	Update(ctx context.Context, book models.Book) error
	Delete(ctx context.Context, id uuid.UUID, ownerID int64) error
	List(ctx context.Context, page Page) ([]models.Book, int64, error)
	ListCollection(ctx context.Context, userID int64, page Page) ([]models.Book, int64, error)
	AttachTag(ctx context.Context, bookID uuid.UUID, tagID int64) error
}

// TagStore defines data access for tags.
type TagStore interface {
	Create(ctx context.Context, tag models.Tag) error
	FindByName(ctx context.Context, name string) (models.Tag, error)
	List(ctx context.Context) ([]models.Tag, error)
}

// AuthorStore defines data access for authors.
type AuthorStore interface {
	Create(ctx context.Context, author models.Author) error
	FindByID(ctx context.Context, id int64) (models.Author, error)
	Update(ctx context.Context, author models.Author) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, page Page) ([]models.Author, int64, error)
}

// CommentStore defines data access for comment messages.
type CommentStore interface {
	Create(ctx context.Context, msg models.CommentMessage) error
	ListForBook(ctx context.Context, bookID uuid.UUID, page Page) ([]models.CommentMessage, int64, error)
}

// PhotoStore manages the user_photos join rows.
type PhotoStore interface {
	ListHashes(ctx context.Context, userID int64) ([]string, error)
	Add(ctx context.Context, userID int64, hash string) error
	Remove(ctx context.Context, userID int64, hash string) error
}

// CollectionStore manages the user_collections join rows.
type CollectionStore interface {
	Add(ctx context.Context, userID int64, bookID uuid.UUID) error
	Remove(ctx context.Context, userID int64, bookID uuid.UUID) error
}

// Stores bundles every entity store bound to one querier, so a handler
// operating inside a unit of work sees a consistent transactional view.
type Stores struct {
	Users       UserStore
	Credentials CredentialStore
	Sessions    auth.SessionStore
	Assets      AssetStore
	Books       BookStore
	Tags        TagStore
	Authors     AuthorStore
	Comments    CommentStore
	Photos      PhotoStore
	Collections CollectionStore

	nested func(ctx context.Context, fn func(Stores) error) error
}

// Nested runs fn as an inner unit of work (a savepoint when backed by an open
// transaction). When no transactional backing exists, fn runs directly.
func (s Stores) Nested(ctx context.Context, fn func(Stores) error) error {
	if s.nested == nil {
		return fn(s)
	}
	return s.nested(ctx, fn)
}
