package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bookloft/backend/internal/auth"
	"github.com/bookloft/backend/internal/logging"
	"github.com/bookloft/backend/internal/models"
	"github.com/bookloft/backend/internal/repositories"
)

// CommentHandler implements the per-book comment endpoints.
type CommentHandler struct {
	UoW     UnitOfWork
	Stores  repositories.Stores
	IDs     IdentityGenerator
	NowFunc func() time.Time
}

// List handles GET /books/{id}/comments.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bookID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid book id"})
		return
	}

	comments, total, err := h.Stores.Comments.ListForBook(ctx, bookID, parsePage(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, newPageResponse(comments, total))
}

type createCommentRequest struct {
	Content models.CommentContent `json:"content"`
}

// Create handles POST /books/{id}/comments. Sticker and image payloads must
// reference stored assets.
func (h CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

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

	var req createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid comment payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	id, err := h.IDs.NextID()
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	msg := models.CommentMessage{
		ID:        id,
		BookID:    bookID,
		AuthorID:  userID,
		Content:   req.Content,
		CreatedAt: h.now(),
	}

	err = h.UoW.Run(ctx, func(s repositories.Stores) error {
		if _, err := s.Books.FindByID(ctx, bookID); err != nil {
			return err
		}

		if req.Content.Type == models.CommentContentSticker || req.Content.Type == models.CommentContentImage {
			if err := s.Assets.Exists(ctx, req.Content.AssetHash); err != nil {
				return err
			}
		}

		return s.Comments.Create(ctx, msg)
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, msg)
}

func (h CommentHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
