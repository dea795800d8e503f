package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bookloft/backend/internal/db"
	"github.com/bookloft/backend/internal/models"
)

// PostgresTagRepository provides PostgreSQL-backed persistence for tags.
type PostgresTagRepository struct {
	db db.Querier
}

// NewPostgresTagRepository constructs a tag repository over the provided querier.
func NewPostgresTagRepository(q db.Querier) *PostgresTagRepository {
	return &PostgresTagRepository{db: q}
}

// Create persists a new tag record.
func (r *PostgresTagRepository) Create(ctx context.Context, tag models.Tag) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO tags (id, name, description)
        VALUES ($1, $2, $3)
    `, tag.ID, tag.Name, tag.Description)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert tag: %w", err)
	}

	return nil
}

// FindByName fetches a tag by its unique name.
func (r *PostgresTagRepository) FindByName(ctx context.Context, name string) (models.Tag, error) {
	row := r.db.QueryRow(ctx, `
        SELECT id, name, description
        FROM tags
        WHERE name = $1
    `, name)

	var tag models.Tag
	if err := row.Scan(&tag.ID, &tag.Name, &tag.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Tag{}, ErrNotFound
		}
		return models.Tag{}, fmt.Errorf("select tag: %w", err)
	}

	return tag, nil
}

// List returns every tag ordered by name.
func (r *PostgresTagRepository) List(ctx context.Context) ([]models.Tag, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, name, description
        FROM tags
        ORDER BY name ASC
    `)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Description); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}

	return tags, nil
}

// PostgresAuthorRepository provides PostgreSQL-backed persistence for authors.
type PostgresAuthorRepository struct {
	db db.Querier
}

// NewPostgresAuthorRepository constructs an author repository over the provided querier.
func NewPostgresAuthorRepository(q db.Querier) *PostgresAuthorRepository {
	return &PostgresAuthorRepository{db: q}
}

// Create persists a new author record.
func (r *PostgresAuthorRepository) Create(ctx context.Context, author models.Author) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO authors (id, name, bio, avatar_hash, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, author.ID, author.Name, author.Bio, author.AvatarHash, author.CreatedAt)
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
		return fmt.Errorf("insert author: %w", err)
	}

	return nil
}

// FindByID fetches an author by primary key.
func (r *PostgresAuthorRepository) FindByID(ctx context.Context, id int64) (models.Author, error) {
	row := r.db.QueryRow(ctx, `
        SELECT id, name, bio, avatar_hash, created_at
        FROM authors
        WHERE id = $1
    `, id)

	var author models.Author
	if err := row.Scan(&author.ID, &author.Name, &author.Bio, &author.AvatarHash, &author.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Author{}, ErrNotFound
		}
		return models.Author{}, fmt.Errorf("select author: %w", err)
	}

	return author, nil
}

// Update modifies an existing author record.
func (r *PostgresAuthorRepository) Update(ctx context.Context, author models.Author) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE authors
        SET name = $2, bio = $3, avatar_hash = $4
        WHERE id = $1
    `, author.ID, author.Name, author.Bio, author.AvatarHash)
	if err != nil {
		return fmt.Errorf("update author: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes an author record.
func (r *PostgresAuthorRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `
        DELETE FROM authors
        WHERE id = $1
    `, id)
	if err != nil {
		return fmt.Errorf("delete author: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// List returns a page of authors ordered by name plus the total count.
func (r *PostgresAuthorRepository) List(ctx context.Context, page Page) ([]models.Author, int64, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, name, bio, avatar_hash, created_at
        FROM authors
        ORDER BY name ASC
        LIMIT $1 OFFSET $2
    `, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("query authors: %w", err)
	}
	defer rows.Close()

	var authors []models.Author
	for rows.Next() {
		var author models.Author
		if err := rows.Scan(&author.ID, &author.Name, &author.Bio, &author.AvatarHash, &author.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan author: %w", err)
		}
		authors = append(authors, author)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate authors: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM authors`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count authors: %w", err)
	}

	return authors, total, nil
}

var _ TagStore = (*PostgresTagRepository)(nil)
var _ AuthorStore = (*PostgresAuthorRepository)(nil)
