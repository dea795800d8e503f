package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/bookloft/backend/internal/auth"
	"github.com/bookloft/backend/internal/logging"
	"github.com/bookloft/backend/internal/middleware"
	"github.com/bookloft/backend/internal/models"
	"github.com/bookloft/backend/internal/repositories"
)

// AuthHandler implements registration, login, and logout.
type AuthHandler struct {
	UoW      UnitOfWork
	Stores   repositories.Stores
	Sessions SessionIssuer
	IDs      IdentityGenerator
	Limiter  RateLimiter
	NowFunc  func() time.Time
}

type registerRequest struct {
	Name     string `json:"name"`
	Bio      string `json:"bio"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /register. The user row, its credential, and the
// initial session are written in one unit of work: a failure at any step
// leaves no partial account behind.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "register") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid register payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		logger.Warn("register missing credentials", "email", req.Email)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		logger.Warn("register invalid email", "email", req.Email, "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid email address"})
		return
	}

	if len(req.Password) < 8 {
		logger.Warn("register password too short", "email", req.Email)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
		return
	}

	// Hashing is deliberately slow; keep it outside the transaction so it
	// never holds a database connection.
	passhash, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("register failed to hash password", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to secure password"})
		return
	}

	var session models.Session
	err = h.UoW.Run(ctx, func(s repositories.Stores) error {
		spanCtx, span := logging.StartSpan(ctx, "register")
		defer span.End()

		userID, err := h.IDs.NextID()
		if err != nil {
			return err
		}

		user := models.User{
			ID:        userID,
			Name:      req.Name,
			Email:     req.Email,
			Bio:       req.Bio,
			CreatedAt: h.now(),
		}
		if err := s.Users.Create(spanCtx, user); err != nil {
			return err
		}

		if err := s.Credentials.Create(spanCtx, models.Credential{UserID: userID, Passhash: passhash}); err != nil {
			return err
		}

		session, err = h.Sessions.NewSession(userID)
		if err != nil {
			return err
		}
		return s.Sessions.Save(spanCtx, session)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			logger.Warn("register conflict", "email", req.Email)
			respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "account already exists"})
			return
		}
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, session)
}

// Login handles POST /login.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "login") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		logger.Warn("login missing credentials", "email", req.Email)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	user, err := h.Stores.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		logger.Warn("login user lookup failed", "email", req.Email, "error", err)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	cred, err := h.Stores.Credentials.FindByUserID(ctx, user.ID)
	if err != nil {
		logger.Warn("login credential lookup failed", "userId", user.ID, "error", err)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	ok, err := auth.VerifyPassword(req.Password, cred.Passhash)
	if err != nil {
		logger.Error("login stored hash unreadable", "userId", user.ID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if !ok {
		logger.Warn("login password mismatch", "userId", user.ID)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	session, err := h.Sessions.NewSession(user.ID)
	if err != nil {
		logger.Error("failed to issue session", "error", err, "userId", user.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
		return
	}

	if err := h.Stores.Sessions.Save(ctx, session); err != nil {
		logger.Error("failed to persist session", "error", err, "userId", user.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, session)
}

// Logout handles POST /logout, revoking the presented bearer token.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, ok := middleware.BearerToken(r)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	h.Sessions.Revoke(ctx, token)
	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
