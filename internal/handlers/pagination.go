package handlers

import (
	"net/http"
	"strconv"

	"github.com/bookloft/backend/internal/repositories"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// pageResponse is the envelope for paginated listings.
type pageResponse[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
}

func newPageResponse[T any](items []T, total int64) pageResponse[T] {
	if items == nil {
		items = []T{}
	}
	return pageResponse[T]{Data: items, Total: total}
}

// parsePage reads page/size query parameters, clamping them to sane bounds.
func parsePage(r *http.Request) repositories.Page {
	page := repositories.Page{Number: 1, Size: defaultPageSize}

	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 {
			page.Number = n
		}
	}

	if raw := r.URL.Query().Get("size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 {
			if n > maxPageSize {
				n = maxPageSize
			}
			page.Size = n
		}
	}

	return page
}
