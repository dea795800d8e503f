package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bookloft/backend/internal/auth"
	"github.com/bookloft/backend/internal/logging"
	"github.com/bookloft/backend/internal/models"
	"github.com/bookloft/backend/internal/repositories"
)

// BookHandler implements the book catalog endpoints.
type BookHandler struct {
	UoW     UnitOfWork
	Stores  repositories.Stores
	NowFunc func() time.Time
}

// List handles GET /books.
func (h BookHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	books, total, err := h.Stores.Books.List(ctx, parsePage(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, newPageResponse(books, total))
}

// Get handles GET /books/{id}.
func (h BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid book id"})
		return
	}

	book, err := h.Stores.Books.FindByID(ctx, id)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, book)
}

type createBookRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	AuthorID    int64    `json:"author,string"`
	ImageHash   *string  `json:"image_hash"`
	Tags        []string `json:"tags"`
}

// Create handles POST /books/create. The book row and its tag links are
// written in a nested unit of work: a tag that does not exist rolls the whole
// creation back as a bad reference.
func (h BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, auth.ErrUnauthorized)
		return
	}

	var req createBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid book payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Title == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	now := h.now()
	book := models.Book{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		ImageHash:   req.ImageHash,
		AuthorID:    req.AuthorID,
		OwnerID:     userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := h.UoW.Run(ctx, func(s repositories.Stores) error {
		spanCtx, span := logging.StartSpan(ctx, "create_book")
		defer span.End()

		return s.Nested(spanCtx, func(s repositories.Stores) error {
			if book.ImageHash != nil {
				if err := s.Assets.Exists(spanCtx, *book.ImageHash); err != nil {
					return err
				}
			}

			if err := s.Books.Create(spanCtx, book); err != nil {
				return err
			}

			for _, name := range req.Tags {
				tag, err := s.Tags.FindByName(spanCtx, name)
				if err != nil {
					if errors.Is(err, repositories.ErrNotFound) {
						return fmt.Errorf("%w: tag %q", repositories.ErrBadReference, name)
					}
					return err
				}
				if err := s.Books.AttachTag(spanCtx, book.ID, tag.ID); err != nil {
					return err
				}
			}

			return nil
		})
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, book)
}

type updateBookRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	ImageHash   *string `json:"image_hash"`
}

// Update handles PATCH /books/{id}. Only the owner may edit; anyone else
// sees the same NotFound a missing book produces.
func (h BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, auth.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid book id"})
		return
	}

	var req updateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid book patch payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var updated models.Book
	err = h.UoW.Run(ctx, func(s repositories.Stores) error {
		book, err := s.Books.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if book.OwnerID != userID {
			return repositories.ErrNotFound
		}

		if req.Title != nil {
			book.Title = *req.Title
		}
		if req.Description != nil {
			book.Description = *req.Description
		}
		if req.ImageHash != nil {
			if *req.ImageHash == "" {
				book.ImageHash = nil
			} else {
				if err := s.Assets.Exists(ctx, *req.ImageHash); err != nil {
					return err
				}
				book.ImageHash = req.ImageHash
			}
		}
		book.UpdatedAt = h.now()

		if err := s.Books.Update(ctx, book); err != nil {
			return err
		}

		updated = book
		return nil
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, updated)
}

// Delete handles DELETE /books/{id}, owner-only.
func (h BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, auth.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid book id"})
		return
	}

	if err := h.Stores.Books.Delete(ctx, id, userID); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h BookHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
