package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bookloft/backend/internal/db"
	"github.com/bookloft/backend/internal/models"
)

// PostgresBookRepository provides PostgreSQL-backed persistence for books and
// their tag links.
type PostgresBookRepository struct {
	db db.Querier
}

// NewPostgresBookRepository constructs a book repository over the provided querier.
func NewPostgresBookRepository(q db.Querier) *PostgresBookRepository {
	return &PostgresBookRepository{db: q}
}

// Create persists a new book record.
func (r *PostgresBookRepository) Create(ctx context.Context, book models.Book) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO books (id, title, description, image_hash, author_id, owner_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, book.ID, book.Title, book.Description, book.ImageHash, book.AuthorID, book.OwnerID, book.CreatedAt, book.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return fmt.Errorf("%w: %s", ErrBadReference, pgErr.ConstraintName)
			}
		}
		return fmt.Errorf("insert book: %w", err)
	}

	return nil
}

// FindByID fetches a book by primary key.
func (r *PostgresBookRepository) FindByID(ctx context.Context, id uuid.UUID) (models.Book, error) {
	row := r.db.QueryRow(ctx, `
        SELECT id, title, description, image_hash, author_id, owner_id, created_at, updated_at
        FROM books
        WHERE id = $1
    `, id)
	return scanBookRow(row)
}

// Update modifies an existing book record.
func (r *PostgresBookRepository) Update(ctx context.Context, book models.Book) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE books
        SET title = $2, description = $3, image_hash = $4, updated_at = $5
        WHERE id = $1
    `, book.ID, book.Title, book.Description, book.ImageHash, book.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a book owned by the provided user. A book owned by someone
// else reports ErrNotFound, indistinguishable from a missing book.
func (r *PostgresBookRepository) Delete(ctx context.Context, id uuid.UUID, ownerID int64) error {
	tag, err := r.db.Exec(ctx, `
        DELETE FROM books
        WHERE id = $1 AND owner_id = $2
    `, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// List returns a page of books in reverse chronological order plus the total count.
func (r *PostgresBookRepository) List(ctx context.Context, page Page) ([]models.Book, int64, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, title, description, image_hash, author_id, owner_id, created_at, updated_at
        FROM books
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2
    `, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("query books: %w", err)
	}

	books, err := collectBooks(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM books`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	return books, total, nil
}

// ListCollection returns a page of the user's collected books plus the total count.
func (r *PostgresBookRepository) ListCollection(ctx context.Context, userID int64, page Page) ([]models.Book, int64, error) {
	rows, err := r.db.Query(ctx, `
        SELECT b.id, b.title, b.description, b.image_hash, b.author_id, b.owner_id, b.created_at, b.updated_at
        FROM books b
        JOIN user_collections uc ON uc.book_id = b.id
        WHERE uc.user_id = $1
        ORDER BY b.created_at DESC
        LIMIT $2 OFFSET $3
    `, userID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("query collection: %w", err)
	}

	books, err := collectBooks(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.QueryRow(ctx, `
        SELECT COUNT(*) FROM user_collections WHERE user_id = $1
    `, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count collection: %w", err)
	}

	return books, total, nil
}

// AttachTag links a tag to a book. Re-attaching an existing pair is a no-op.
func (r *PostgresBookRepository) AttachTag(ctx context.Context, bookID uuid.UUID, tagID int64) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO book_tags (tag_id, book_id)
        VALUES ($1, $2)
        ON CONFLICT (tag_id, book_id) DO NOTHING
    `, tagID, bookID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return fmt.Errorf("%w: %s", ErrBadReference, pgErr.ConstraintName)
		}
		return fmt.Errorf("attach tag: %w", err)
	}

	return nil
}

func scanBookRow(row pgx.Row) (models.Book, error) {
	var book models.Book
	if err := row.Scan(&book.ID, &book.Title, &book.Description, &book.ImageHash, &book.AuthorID, &book.OwnerID, &book.CreatedAt, &book.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Book{}, ErrNotFound
		}
		return models.Book{}, fmt.Errorf("select book: %w", err)
	}
	return book, nil
}

func collectBooks(rows pgx.Rows) ([]models.Book, error) {
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		var book models.Book
		if err := rows.Scan(&book.ID, &book.Title, &book.Description, &book.ImageHash, &book.AuthorID, &book.OwnerID, &book.CreatedAt, &book.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}

	return books, nil
}

var _ BookStore = (*PostgresBookRepository)(nil)
