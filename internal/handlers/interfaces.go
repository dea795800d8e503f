package handlers

import (
	"context"
	"net/http"

	"github.com/bookloft/backend/internal/metrics"
	"github.com/bookloft/backend/internal/models"
	"github.com/bookloft/backend/internal/repositories"
)

// UnitOfWork runs fn with every write inside one atomic transaction.
type UnitOfWork interface {
	Run(ctx context.Context, fn func(repositories.Stores) error) error
}

// SessionIssuer covers the session lifecycle operations handlers need.
type SessionIssuer interface {
	NewSession(userID int64) (models.Session, error)
	Resolve(ctx context.Context, token string) (int64, error)
	Revoke(ctx context.Context, token string)
}

// IdentityGenerator mints time-ordered primary keys.
type IdentityGenerator interface {
	NextID() (int64, error)
}

// RateLimiter is the minimal interface required to guard sensitive endpoints.
type RateLimiter interface {
	Allow(key string) bool
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	UoW          UnitOfWork
	Stores       repositories.Stores
	Sessions     SessionIssuer
	IDs          IdentityGenerator
	LoginLimiter RateLimiter

	// Metrics, when set, is mounted at GET /metrics.
	Metrics http.Handler
	// Recorder, when set, observes every routed request.
	Recorder metrics.Recorder
}
