package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bookloft/backend/internal/db"
)

// PostgresPhotoRepository manages the user_photos join rows. Rows have no
// lifecycle beyond existence, so the API is membership-shaped.
type PostgresPhotoRepository struct {
	db db.Querier
}

// NewPostgresPhotoRepository constructs a photo repository over the provided querier.
func NewPostgresPhotoRepository(q db.Querier) *PostgresPhotoRepository {
	return &PostgresPhotoRepository{db: q}
}

// ListHashes returns the asset hashes in a user's photo set.
func (r *PostgresPhotoRepository) ListHashes(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.Query(ctx, `
        SELECT photo_hash
        FROM user_photos
        WHERE user_id = $1
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query user photos: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("scan user photo: %w", err)
		}
		hashes = append(hashes, hash)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user photos: %w", err)
	}

	return hashes, nil
}

// Add inserts a photo membership row.
func (r *PostgresPhotoRepository) Add(ctx context.Context, userID int64, hash string) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO user_photos (user_id, photo_hash)
        VALUES ($1, $2)
        ON CONFLICT (user_id, photo_hash) DO NOTHING
    `, userID, hash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return fmt.Errorf("%w: photo %s", ErrBadReference, hash)
		}
		return fmt.Errorf("insert user photo: %w", err)
	}

	return nil
}

// Remove deletes a photo membership row.
func (r *PostgresPhotoRepository) Remove(ctx context.Context, userID int64, hash string) error {
	_, err := r.db.Exec(ctx, `
        DELETE FROM user_photos
        WHERE user_id = $1 AND photo_hash = $2
    `, userID, hash)
	if err != nil {
		return fmt.Errorf("delete user photo: %w", err)
	}

	return nil
}

// PostgresCollectionRepository manages the user_collections join rows.
type PostgresCollectionRepository struct {
	db db.Querier
}

// NewPostgresCollectionRepository constructs a collection repository over the provided querier.
func NewPostgresCollectionRepository(q db.Querier) *PostgresCollectionRepository {
	return &PostgresCollectionRepository{db: q}
}

// Add places a book in a user's collection. Re-adding is a no-op.
func (r *PostgresCollectionRepository) Add(ctx context.Context, userID int64, bookID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO user_collections (user_id, book_id)
        VALUES ($1, $2)
        ON CONFLICT (user_id, book_id) DO NOTHING
    `, userID, bookID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return fmt.Errorf("%w: book %s", ErrBadReference, bookID)
		}
		return fmt.Errorf("insert collection entry: %w", err)
	}

	return nil
}

// Remove takes a book out of a user's collection.
func (r *PostgresCollectionRepository) Remove(ctx context.Context, userID int64, bookID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
        DELETE FROM user_collections
        WHERE user_id = $1 AND book_id = $2
    `, userID, bookID)
	if err != nil {
		return fmt.Errorf("delete collection entry: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

var _ PhotoStore = (*PostgresPhotoRepository)(nil)
var _ CollectionStore = (*PostgresCollectionRepository)(nil)
