package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bookloft/backend/internal/logging"
	"github.com/bookloft/backend/internal/models"
	"github.com/bookloft/backend/internal/repositories"
)

// AuthorHandler implements the author catalog endpoints.
type AuthorHandler struct {
	UoW     UnitOfWork
	Stores  repositories.Stores
	IDs     IdentityGenerator
	NowFunc func() time.Time
}

// List handles GET /authors.
func (h AuthorHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	authors, total, err := h.Stores.Authors.List(ctx, parsePage(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, newPageResponse(authors, total))
}

// Get handles GET /authors/{id}.
func (h AuthorHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid author id"})
		return
	}

	author, err := h.Stores.Authors.FindByID(ctx, id)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, author)
}

type createAuthorRequest struct {
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

// Create handles POST /authors/create.
func (h AuthorHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req createAuthorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid author payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	id, err := h.IDs.NextID()
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	author := models.Author{
		ID:        id,
		Name:      req.Name,
		Bio:       req.Bio,
		CreatedAt: h.now(),
	}

	if err := h.Stores.Authors.Create(ctx, author); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, author)
}

type updateAuthorRequest struct {
	Name       *string `json:"name"`
	Bio        *string `json:"bio"`
	AvatarHash *string `json:"avatar_hash"`
}

// Update handles PATCH /authors/{id}.
func (h AuthorHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid author id"})
		return
	}

	var req updateAuthorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid author patch payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var updated models.Author
	err = h.UoW.Run(ctx, func(s repositories.Stores) error {
		author, err := s.Authors.FindByID(ctx, id)
		if err != nil {
			return err
		}

		if req.Name != nil {
			author.Name = *req.Name
		}
		if req.Bio != nil {
			author.Bio = *req.Bio
		}
		if req.AvatarHash != nil {
			if *req.AvatarHash == "" {
				author.AvatarHash = nil
			} else {
				if err := s.Assets.Exists(ctx, *req.AvatarHash); err != nil {
					return err
				}
				author.AvatarHash = req.AvatarHash
			}
		}

		if err := s.Authors.Update(ctx, author); err != nil {
			return err
		}

		updated = author
		return nil
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, updated)
}

// Delete handles DELETE /authors/{id}.
func (h AuthorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid author id"})
		return
	}

	if err := h.Stores.Authors.Delete(ctx, id); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h AuthorHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

// TagHandler implements the tag catalog endpoints.
type TagHandler struct {
	UoW    UnitOfWork
	Stores repositories.Stores
	IDs    IdentityGenerator
}

// List handles GET /tags.
func (h TagHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tags, err := h.Stores.Tags.List(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if tags == nil {
		tags = []models.Tag{}
	}
	respondJSON(ctx, w, http.StatusOK, tags)
}

type createTagRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create handles POST /tags/create.
func (h TagHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req createTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid tag payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	id, err := h.IDs.NextID()
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	tag := models.Tag{ID: id, Name: req.Name, Description: req.Description}
	if err := h.Stores.Tags.Create(ctx, tag); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, tag)
}

// BulkCreate handles POST /tags/bulk-create. All tags are inserted in one
// unit of work, so a single duplicate rolls the whole batch back.
func (h TagHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var reqs []createTagRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		logger.Warn("invalid bulk tag payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	for _, req := range reqs {
		if req.Name == "" {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "name is required"})
			return
		}
	}

	created := make([]models.Tag, 0, len(reqs))
	err := h.UoW.Run(ctx, func(s repositories.Stores) error {
		for _, req := range reqs {
			id, err := h.IDs.NextID()
			if err != nil {
				return err
			}

			tag := models.Tag{ID: id, Name: req.Name, Description: req.Description}
			if err := s.Tags.Create(ctx, tag); err != nil {
				return err
			}
			created = append(created, tag)
		}
		return nil
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, created)
}
