package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bookloft/backend/internal/db"
)

// NewStores binds every postgres store to the provided querier. When the
// querier can begin transactions (a pool or an open transaction), the
// returned bundle supports nested units of work via savepoints.
func NewStores(q db.Querier) Stores {
	s := Stores{
		Users:       NewPostgresUserRepository(q),
		Credentials: NewPostgresCredentialRepository(q),
		Sessions:    NewPostgresSessionStore(q),
		Assets:      NewPostgresAssetRepository(q),
		Books:       NewPostgresBookRepository(q),
		Tags:        NewPostgresTagRepository(q),
		Authors:     NewPostgresAuthorRepository(q),
		Comments:    NewPostgresCommentRepository(q),
		Photos:      NewPostgresPhotoRepository(q),
		Collections: NewPostgresCollectionRepository(q),
	}

	if beginner, ok := q.(db.Beginner); ok {
		s.nested = func(ctx context.Context, fn func(Stores) error) error {
			return pgx.BeginFunc(ctx, beginner, func(tx pgx.Tx) error {
				return fn(NewStores(tx))
			})
		}
	}

	return s
}

// UnitOfWork wraps multi-row mutations in a single transaction: all writes
// become visible together on commit, or none do.
type UnitOfWork struct {
	pool db.Beginner
}

// NewUnitOfWork constructs a coordinator over the provided pool.
func NewUnitOfWork(pool db.Beginner) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

// Run executes fn against stores bound to a fresh transaction. The
// transaction commits when fn returns nil and rolls back otherwise, including
// on context cancellation. Integrity violations surface as ErrConflict or
// ErrBadReference rather than generic storage errors.
func (u *UnitOfWork) Run(ctx context.Context, fn func(Stores) error) error {
	err := pgx.BeginFunc(ctx, u.pool, func(tx pgx.Tx) error {
		return fn(NewStores(tx))
	})
	return TranslateError(err)
}

// Stores returns a bundle bound directly to the pool for reads and
// single-statement writes that need no enclosing transaction.
func (u *UnitOfWork) Stores() Stores {
	return NewStores(u.pool)
}

// TranslateError maps storage-layer integrity errors onto the repository
// sentinels: unique violations to ErrConflict, foreign key violations to
// ErrBadReference.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", ErrBadReference, pgErr.ConstraintName)
		}
	}

	return err
}
