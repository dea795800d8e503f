package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bookloft/backend/internal/db"
	"github.com/bookloft/backend/internal/models"
)

// PostgresCommentRepository persists comment messages. The polymorphic
// content payload is stored as JSONB with its discriminator inline, so it
// round-trips exactly through encode/decode.
type PostgresCommentRepository struct {
	db db.Querier
}

// NewPostgresCommentRepository constructs a comment repository over the provided querier.
func NewPostgresCommentRepository(q db.Querier) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: q}
}

// Create persists a new comment message.
func (r *PostgresCommentRepository) Create(ctx context.Context, msg models.CommentMessage) error {
	content, err := json.Marshal(msg.Content)
	if err != nil {
		return fmt.Errorf("encode comment content: %w", err)
	}

	_, err = r.db.Exec(ctx, `
        INSERT INTO comment_messages (id, book_id, author_id, content, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, msg.ID, msg.BookID, msg.AuthorID, content, msg.CreatedAt)
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
		return fmt.Errorf("insert comment: %w", err)
	}

	return nil
}

// ListForBook returns a page of a book's comments in ascending id order
// (comment ids are time-ordered) plus the total count.
func (r *PostgresCommentRepository) ListForBook(ctx context.Context, bookID uuid.UUID, page Page) ([]models.CommentMessage, int64, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, book_id, author_id, content, created_at
        FROM comment_messages
        WHERE book_id = $1
        ORDER BY id ASC
        LIMIT $2 OFFSET $3
    `, bookID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var messages []models.CommentMessage
	for rows.Next() {
		var msg models.CommentMessage
		var content []byte
		if err := rows.Scan(&msg.ID, &msg.BookID, &msg.AuthorID, &content, &msg.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan comment: %w", err)
		}
		if err := json.Unmarshal(content, &msg.Content); err != nil {
			return nil, 0, fmt.Errorf("decode comment content: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate comments: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, `
        SELECT COUNT(*) FROM comment_messages WHERE book_id = $1
    `, bookID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}

	return messages, total, nil
}

var _ CommentStore = (*PostgresCommentRepository)(nil)
