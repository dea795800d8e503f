package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bookloft/backend/internal/auth"
	"github.com/bookloft/backend/internal/models"
)

func authedRequest(r *http.Request, userID int64) *http.Request {
	return r.WithContext(auth.WithUserID(r.Context(), userID))
}

func seedAuthor(db *memDB, id int64) {
	db.authors[id] = models.Author{ID: id, Name: "Author"}
}

func seedBook(db *memDB, ownerID int64) models.Book {
	book := models.Book{
		ID:        uuid.New(),
		Title:     "Invisible Cities",
		AuthorID:  1,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	db.books[book.ID] = book
	return book
}

func TestBookHandlerCreate(t *testing.T) {
	db := newMemDB()
	seedAuthor(db, 1)
	db.tags["fiction"] = models.Tag{ID: 10, Name: "fiction"}
	handler := BookHandler{UoW: memUnitOfWork{db: db}, Stores: db.stores()}

	body, _ := json.Marshal(createBookRequest{Title: "Invisible Cities", Description: "travel stories", AuthorID: 1, Tags: []string{"fiction"}})
	req := authedRequest(httptest.NewRequest(http.MethodPost, "/books/create", bytes.NewReader(body)), 7)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected %d got %d (%s)", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var created models.Book
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.OwnerID != 7 {
		t.Fatalf("expected owner 7, got %d", created.OwnerID)
	}

	stored, ok := db.books[created.ID]
	if !ok {
		t.Fatal("expected the book to be stored")
	}
	if stored.Title != "Invisible Cities" {
		t.Fatalf("unexpected stored title %q", stored.Title)
	}
	if _, ok := db.bookTags[created.ID][10]; !ok {
		t.Fatal("expected the tag link to be stored")
	}
}

func TestBookHandlerCreateUnknownTagRollsBack(t *testing.T) {
	db := newMemDB()
	seedAuthor(db, 1)
	handler := BookHandler{UoW: memUnitOfWork{db: db}, Stores: db.stores()}

	body, _ := json.Marshal(createBookRequest{Title: "Orphaned", AuthorID: 1, Tags: []string{"no-such-tag"}})
	req := authedRequest(httptest.NewRequest(http.MethodPost, "/books/create", bytes.NewReader(body)), 7)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected %d got %d (%s)", http.StatusBadRequest, rec.Code, rec.Body.String())
	}
	if len(db.books) != 0 {
		t.Fatal("expected the book insert to roll back with the failed tag link")
	}
}

func TestBookHandlerCreateRequiresTitle(t *testing.T) {
	db := newMemDB()
	seedAuthor(db, 1)
	handler := BookHandler{UoW: memUnitOfWork{db: db}, Stores: db.stores()}

	body, _ := json.Marshal(createBookRequest{AuthorID: 1})
	req := authedRequest(httptest.NewRequest(http.MethodPost, "/books/create", bytes.NewReader(body)), 7)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestBookHandlerUpdateByOwner(t *testing.T) {
	db := newMemDB()
	seedAuthor(db, 1)
	book := seedBook(db, 7)
	handler := BookHandler{UoW: memUnitOfWork{db: db}, Stores: db.stores()}

	title := "Renamed"
	body, _ := json.Marshal(updateBookRequest{Title: &title})
	req := authedRequest(httptest.NewRequest(http.MethodPatch, "/books/"+book.ID.String(), bytes.NewReader(body)), 7)
	req = withURLParam(req, "id", book.ID.String())
	rec := httptest.NewRecorder()
	handler.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected %d got %d (%s)", http.StatusOK, rec.Code, rec.Body.String())
	}
	if db.books[book.ID].Title != "Renamed" {
		t.Fatalf("expected title to change, got %q", db.books[book.ID].Title)
	}
	if !db.books[book.ID].UpdatedAt.After(book.UpdatedAt) {
		t.Fatal("expected updated_at to move forward")
	}
}

func TestBookHandlerUpdateByNonOwnerLooksMissing(t *testing.T) {
	db := newMemDB()
	seedAuthor(db, 1)
	book := seedBook(db, 7)
	handler := BookHandler{UoW: memUnitOfWork{db: db}, Stores: db.stores()}

	title := "Hijacked"
	body, _ := json.Marshal(updateBookRequest{Title: &title})
	req := authedRequest(httptest.NewRequest(http.MethodPatch, "/books/"+book.ID.String(), bytes.NewReader(body)), 99)
	req = withURLParam(req, "id", book.ID.String())
	rec := httptest.NewRecorder()
	handler.Update(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected %d got %d", http.StatusNotFound, rec.Code)
	}
	if db.books[book.ID].Title != "Invisible Cities" {
		t.Fatal("expected the book to be untouched")
	}
}

func TestBookHandlerDeleteOwnerOnly(t *testing.T) {
	db := newMemDB()
	seedAuthor(db, 1)
	book := seedBook(db, 7)
	handler := BookHandler{Stores: db.stores()}

	req := authedRequest(httptest.NewRequest(http.MethodDelete, "/books/"+book.ID.String(), nil), 99)
	req = withURLParam(req, "id", book.ID.String())
	rec := httptest.NewRecorder()
	handler.Delete(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("non-owner delete: expected %d got %d", http.StatusNotFound, rec.Code)
	}

	req = authedRequest(httptest.NewRequest(http.MethodDelete, "/books/"+book.ID.String(), nil), 7)
	req = withURLParam(req, "id", book.ID.String())
	rec = httptest.NewRecorder()
	handler.Delete(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner delete: expected %d got %d", http.StatusOK, rec.Code)
	}
	if len(db.books) != 0 {
		t.Fatal("expected the book to be deleted")
	}
}

func TestBookHandlerListPaginates(t *testing.T) {
	db := newMemDB()
	seedAuthor(db, 1)
	for i := 0; i < 5; i++ {
		book := models.Book{ID: uuid.New(), Title: "Book", AuthorID: 1, OwnerID: 7, CreatedAt: time.Unix(int64(i), 0)}
		db.books[book.ID] = book
	}
	handler := BookHandler{Stores: db.stores()}

	req := httptest.NewRequest(http.MethodGet, "/books?page=2&size=2", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected %d got %d", http.StatusOK, rec.Code)
	}

	var resp pageResponse[models.Book]
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 5 {
		t.Fatalf("expected total 5, got %d", resp.Total)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("expected 2 items on page 2, got %d", len(resp.Data))
	}
}

func TestBookHandlerGetInvalidID(t *testing.T) {
	handler := BookHandler{Stores: newMemDB().stores()}

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/books/not-a-uuid", nil), "id", "not-a-uuid")
	rec := httptest.NewRecorder()
	handler.Get(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected %d got %d", http.StatusBadRequest, rec.Code)
	}
}
