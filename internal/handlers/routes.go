package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bookloft/backend/internal/middleware"
)

// NewRouter wires the HTTP surface. Protected routes sit behind the
// authorization gate, which resolves the bearer token before any handler
// logic runs.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	if deps.Recorder != nil {
		r.Use(middleware.Metrics(deps.Recorder))
	}

	health := HealthHandler{}
	authn := AuthHandler{UoW: deps.UoW, Stores: deps.Stores, Sessions: deps.Sessions, IDs: deps.IDs, Limiter: deps.LoginLimiter}
	users := UserHandler{UoW: deps.UoW, Stores: deps.Stores}
	assets := AssetHandler{Stores: deps.Stores}
	books := BookHandler{UoW: deps.UoW, Stores: deps.Stores}
	authors := AuthorHandler{UoW: deps.UoW, Stores: deps.Stores, IDs: deps.IDs}
	tags := TagHandler{UoW: deps.UoW, Stores: deps.Stores, IDs: deps.IDs}
	comments := CommentHandler{UoW: deps.UoW, Stores: deps.Stores, IDs: deps.IDs}

	r.Get("/healthz", health.Handle)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Post("/register", authn.Register)
	r.Post("/login", authn.Login)

	r.Get("/books", books.List)
	r.Get("/books/{id}", books.Get)
	r.Get("/tags", tags.List)
	r.Get("/authors", authors.List)
	r.Get("/authors/{id}", authors.Get)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(deps.Sessions))

		r.Post("/logout", authn.Logout)

		r.Get("/users/me", users.Me)
		r.Patch("/users/me", users.UpdateMe)
		r.Get("/users/me/books", users.MyBooks)
		r.Put("/users/me/books/{id}", users.CollectBook)
		r.Delete("/users/me/books/{id}", users.UncollectBook)

		r.Post("/assets", assets.Upload)
		r.Get("/assets/{hash}", assets.Get)
		r.Get("/assets/{hash}/metadata", assets.Metadata)

		r.Post("/books/create", books.Create)
		r.Patch("/books/{id}", books.Update)
		r.Delete("/books/{id}", books.Delete)
		r.Get("/books/{id}/comments", comments.List)
		r.Post("/books/{id}/comments", comments.Create)

		r.Post("/authors/create", authors.Create)
		r.Patch("/authors/{id}", authors.Update)
		r.Delete("/authors/{id}", authors.Delete)

		r.Post("/tags/create", tags.Create)
		r.Post("/tags/bulk-create", tags.BulkCreate)
	})

	return r
}
