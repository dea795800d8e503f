package handlers

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bookloft/backend/internal/auth"
	"github.com/bookloft/backend/internal/logging"
	"github.com/bookloft/backend/internal/models"
	"github.com/bookloft/backend/internal/repositories"
)

// UserHandler implements the authenticated profile endpoints.
type UserHandler struct {
	UoW    UnitOfWork
	Stores repositories.Stores
}

// Me handles GET /users/me.
func (h UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, auth.ErrUnauthorized)
		return
	}

	user, err := h.Stores.Users.FindByID(ctx, userID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, user)
}

// updateMeRequest is a typed patch: nil fields are left untouched, and every
// populated field has an explicit update branch.
type updateMeRequest struct {
	Name        *string   `json:"name"`
	Bio         *string   `json:"bio"`
	Email       *string   `json:"email"`
	Password    *string   `json:"password"`
	AvatarHash  *string   `json:"avatar_hash"`
	PhotoHashes *[]string `json:"photo_hashes"`
}

// UpdateMe handles PATCH /users/me. Profile fields, the credential, and the
// photo-set diff are applied in one unit of work.
func (h UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, auth.ErrUnauthorized)
		return
	}

	var req updateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid profile patch payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Email != nil {
		normalized := strings.TrimSpace(strings.ToLower(*req.Email))
		if _, err := mail.ParseAddress(normalized); err != nil {
			logger.Warn("profile patch invalid email", "error", err)
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid email address"})
			return
		}
		req.Email = &normalized
	}

	var passhash string
	if req.Password != nil {
		if len(*req.Password) < 8 {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
			return
		}
		hashed, err := auth.HashPassword(*req.Password)
		if err != nil {
			logger.Error("profile patch failed to hash password", "error", err)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to secure password"})
			return
		}
		passhash = hashed
	}

	var updated models.User
	err := h.UoW.Run(ctx, func(s repositories.Stores) error {
		spanCtx, span := logging.StartSpan(ctx, "update_profile")
		defer span.End()

		user, err := s.Users.FindByID(spanCtx, userID)
		if err != nil {
			return err
		}

		if req.Name != nil {
			user.Name = *req.Name
		}
		if req.Bio != nil {
			user.Bio = *req.Bio
		}
		if req.Email != nil {
			user.Email = *req.Email
		}
		if req.AvatarHash != nil {
			if *req.AvatarHash == "" {
				user.AvatarHash = nil
			} else {
				if err := s.Assets.Exists(spanCtx, *req.AvatarHash); err != nil {
					return err
				}
				user.AvatarHash = req.AvatarHash
			}
		}
		if req.Password != nil {
			if err := s.Credentials.Update(spanCtx, models.Credential{UserID: userID, Passhash: passhash}); err != nil {
				return err
			}
		}
		if req.PhotoHashes != nil {
			for _, hash := range *req.PhotoHashes {
				if err := s.Assets.Exists(spanCtx, hash); err != nil {
					return err
				}
			}
			if err := repositories.SyncPhotoSet(spanCtx, s.Photos, userID, *req.PhotoHashes); err != nil {
				return err
			}
		}

		if err := s.Users.Update(spanCtx, user); err != nil {
			return err
		}

		updated = user
		return nil
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, updated)
}

// MyBooks handles GET /users/me/books, the authenticated user's collection.
func (h UserHandler) MyBooks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, auth.ErrUnauthorized)
		return
	}

	books, total, err := h.Stores.Books.ListCollection(ctx, userID, parsePage(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, newPageResponse(books, total))
}

// CollectBook handles PUT /users/me/books/{id}, adding a book to the collection.
func (h UserHandler) CollectBook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, auth.ErrUnauthorized)
		return
	}

	bookID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid book id"})
		return
	}

	if err := h.Stores.Collections.Add(ctx, userID, bookID); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

// UncollectBook handles DELETE /users/me/books/{id}.
func (h UserHandler) UncollectBook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, auth.ErrUnauthorized)
		return
	}

	bookID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid book id"})
		return
	}

	if err := h.Stores.Collections.Remove(ctx, userID, bookID); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}
