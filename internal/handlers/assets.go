package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bookloft/backend/internal/assets"
	"github.com/bookloft/backend/internal/logging"
	"github.com/bookloft/backend/internal/models"
	"github.com/bookloft/backend/internal/repositories"
)

// AssetHandler implements the content-addressed asset endpoints.
type AssetHandler struct {
	Stores  repositories.Stores
	NowFunc func() time.Time
}

type uploadResponse struct {
	Hash        string  `json:"hash"`
	ContentType string  `json:"content_type"`
	Alt         *string `json:"alt"`
}

// Upload handles POST /assets. The payload is capped at the upload limit
// before it is fully buffered; uploads without a declared length are
// rejected outright.
func (h AssetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		respondError(ctx, w, assets.ErrMissingContentType)
		return
	}

	if r.ContentLength < 0 || r.ContentLength > assets.UploadLimit {
		respondError(ctx, w, assets.ErrTooLarge)
		return
	}

	body := http.MaxBytesReader(w, r.Body, assets.UploadLimit)
	data, err := io.ReadAll(body)
	if err != nil {
		logger.Warn("asset upload read failed", "error", err)
		respondError(ctx, w, assets.ErrTooLarge)
		return
	}

	if err := assets.ValidateUpload(data, contentType); err != nil {
		respondError(ctx, w, err)
		return
	}

	var alt *string
	if raw := strings.TrimSpace(r.URL.Query().Get("alt")); raw != "" {
		alt = &raw
	}

	asset := models.Asset{
		Hash:        assets.HashBytes(data),
		Data:        data,
		ContentType: contentType,
		Alt:         alt,
		CreatedAt:   h.now(),
	}

	// Identical bytes race to the same row; the conflicting insert is a
	// no-op and the first writer's metadata wins.
	if err := h.Stores.Assets.Put(ctx, asset); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, uploadResponse{
		Hash:        asset.Hash,
		ContentType: asset.ContentType,
		Alt:         asset.Alt,
	})
}

// Get handles GET /assets/{hash}, streaming the raw bytes back with the
// stored content type.
func (h AssetHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	asset, err := h.Stores.Assets.Find(ctx, chi.URLParam(r, "hash"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", asset.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(asset.Data); err != nil {
		logging.FromContext(ctx).Error("write asset body", "hash", asset.Hash, "error", err)
	}
}

type assetMetadataResponse struct {
	ContentType string  `json:"content_type"`
	Alt         *string `json:"alt"`
}

// Metadata handles GET /assets/{hash}/metadata.
func (h AssetHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	asset, err := h.Stores.Assets.FindMetadata(ctx, chi.URLParam(r, "hash"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, assetMetadataResponse{
		ContentType: asset.ContentType,
		Alt:         asset.Alt,
	})
}

func (h AssetHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
