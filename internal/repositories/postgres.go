package repositories

import (
	"errors"
	"fmt"

	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bookloft/backend/internal/db"
	"github.com/bookloft/backend/internal/models"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	db db.Querier
}

// NewPostgresUserRepository constructs a user repository over the provided querier.
func NewPostgresUserRepository(q db.Querier) *PostgresUserRepository {
	return &PostgresUserRepository{db: q}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO users (id, name, email, bio, avatar_hash, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, user.ID, user.Name, user.Email, user.Bio, user.AvatarHash, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by primary key.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id int64) (models.User, error) {
	row := r.db.QueryRow(ctx, `
        SELECT id, name, email, bio, avatar_hash, created_at
        FROM users
        WHERE id = $1
    `, id)
	return scanUser(row, "select user by id")
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	row := r.db.QueryRow(ctx, `
        SELECT id, name, email, bio, avatar_hash, created_at
        FROM users
        WHERE email = $1
    `, email)
	return scanUser(row, "select user by email")
}

// Update modifies an existing user record.
func (r *PostgresUserRepository) Update(ctx context.Context, user models.User) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE users
        SET name = $2, email = $3, bio = $4, avatar_hash = $5
        WHERE id = $1
    `, user.ID, user.Name, user.Email, user.Bio, user.AvatarHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanUser(row pgx.Row, op string) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Bio, &user.AvatarHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// PostgresCredentialRepository persists password records, one row per user.
type PostgresCredentialRepository struct {
	db db.Querier
}

// NewPostgresCredentialRepository constructs a credential repository over the provided querier.
func NewPostgresCredentialRepository(q db.Querier) *PostgresCredentialRepository {
	return &PostgresCredentialRepository{db: q}
}

// Create persists a new credential record.
func (r *PostgresCredentialRepository) Create(ctx context.Context, cred models.Credential) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO user_passwords (user_id, passhash)
        VALUES ($1, $2)
    `, cred.UserID, cred.Passhash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert credential: %w", err)
	}

	return nil
}

// FindByUserID fetches the credential for a user.
func (r *PostgresCredentialRepository) FindByUserID(ctx context.Context, userID int64) (models.Credential, error) {
	row := r.db.QueryRow(ctx, `
        SELECT user_id, passhash
        FROM user_passwords
        WHERE user_id = $1
    `, userID)

	var cred models.Credential
	if err := row.Scan(&cred.UserID, &cred.Passhash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Credential{}, ErrNotFound
		}
		return models.Credential{}, fmt.Errorf("select credential: %w", err)
	}

	return cred, nil
}

// Update replaces the stored password hash for a user.
func (r *PostgresCredentialRepository) Update(ctx context.Context, cred models.Credential) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE user_passwords
        SET passhash = $2
        WHERE user_id = $1
    `, cred.UserID, cred.Passhash)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

var _ UserStore = (*PostgresUserRepository)(nil)
var _ CredentialStore = (*PostgresCredentialRepository)(nil)
