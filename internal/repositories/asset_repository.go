package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bookloft/backend/internal/db"
	"github.com/bookloft/backend/internal/models"
)

// PostgresAssetRepository persists content-addressed blobs to PostgreSQL.
type PostgresAssetRepository struct {
	db db.Querier
}

// NewPostgresAssetRepository constructs an asset repository over the provided querier.
func NewPostgresAssetRepository(q db.Querier) *PostgresAssetRepository {
	return &PostgresAssetRepository{db: q}
}

// Put inserts an asset row. The hash is the identity of the bytes, so a
// conflicting insert means the identical payload is already stored: the first
// writer wins and the second insert is a no-op, never an error. Stored rows
// are never mutated.
func (r *PostgresAssetRepository) Put(ctx context.Context, asset models.Asset) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO assets (hash, data, content_type, alt, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (hash) DO NOTHING
    `, asset.Hash, asset.Data, asset.ContentType, asset.Alt, asset.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}

	return nil
}

// Find loads an asset with its payload.
func (r *PostgresAssetRepository) Find(ctx context.Context, hash string) (models.Asset, error) {
	row := r.db.QueryRow(ctx, `
        SELECT hash, data, content_type, alt, created_at
        FROM assets
        WHERE hash = $1
    `, hash)

	var asset models.Asset
	if err := row.Scan(&asset.Hash, &asset.Data, &asset.ContentType, &asset.Alt, &asset.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Asset{}, ErrNotFound
		}
		return models.Asset{}, fmt.Errorf("select asset: %w", err)
	}

	return asset, nil
}

// FindMetadata loads an asset's metadata without transferring the payload.
func (r *PostgresAssetRepository) FindMetadata(ctx context.Context, hash string) (models.Asset, error) {
	row := r.db.QueryRow(ctx, `
        SELECT hash, content_type, alt, created_at
        FROM assets
        WHERE hash = $1
    `, hash)

	var asset models.Asset
	if err := row.Scan(&asset.Hash, &asset.ContentType, &asset.Alt, &asset.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Asset{}, ErrNotFound
		}
		return models.Asset{}, fmt.Errorf("select asset metadata: %w", err)
	}

	return asset, nil
}

// Exists verifies a referenced hash points at a stored asset. A dangling
// reference is the caller's input error, reported as ErrBadReference.
func (r *PostgresAssetRepository) Exists(ctx context.Context, hash string) error {
	row := r.db.QueryRow(ctx, `
        SELECT 1
        FROM assets
        WHERE hash = $1
    `, hash)

	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: asset %s", ErrBadReference, hash)
		}
		return fmt.Errorf("check asset: %w", err)
	}

	return nil
}

var _ AssetStore = (*PostgresAssetRepository)(nil)
