package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bookloft/backend/internal/auth"
	"github.com/bookloft/backend/internal/models"
)

func newAuthHandler(db *memDB) AuthHandler {
	manager := auth.NewManager(auth.DefaultExpiry, auth.DefaultRenewAfter, auth.NewInMemorySessionStore())
	return AuthHandler{
		UoW:      memUnitOfWork{db: db},
		Stores:   db.stores(),
		Sessions: manager,
		IDs:      &sequentialIDs{},
		Limiter:  allowAll{},
	}
}

func TestAuthHandlerRegister(t *testing.T) {
	db := newMemDB()
	handler := newAuthHandler(db)

	body, err := json.Marshal(registerRequest{Name: "Ada", Email: "ada@example.com", Password: "supersafe"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d (%s)", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var session models.Session
	if err := json.NewDecoder(rec.Body).Decode(&session); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if session.Token == "" {
		t.Fatal("expected a session token to be issued")
	}

	if _, ok := db.sessions[session.Token]; !ok {
		t.Fatal("expected session to be persisted alongside the account")
	}

	user, err := db.stores().Users.FindByEmail(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("expected user to be stored: %v", err)
	}
	if session.UserID != user.ID {
		t.Fatalf("session user %d does not match stored user %d", session.UserID, user.ID)
	}

	cred, ok := db.creds[user.ID]
	if !ok {
		t.Fatal("expected credential to be stored")
	}
	match, err := auth.VerifyPassword("supersafe", cred.Passhash)
	if err != nil {
		t.Fatalf("verify stored hash: %v", err)
	}
	if !match {
		t.Fatal("stored hash does not verify against the plaintext")
	}
	if cred.Passhash == "supersafe" {
		t.Fatal("password stored in plaintext")
	}
}

func TestAuthHandlerRegisterNormalizesEmail(t *testing.T) {
	db := newMemDB()
	handler := newAuthHandler(db)

	body, _ := json.Marshal(registerRequest{Email: "  Ada@Example.COM ", Password: "supersafe"})
	rec := httptest.NewRecorder()
	handler.Register(rec, httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d", http.StatusCreated, rec.Code)
	}
	if _, err := db.stores().Users.FindByEmail(context.Background(), "ada@example.com"); err != nil {
		t.Fatalf("expected normalized email to be stored: %v", err)
	}
}

func TestAuthHandlerRegisterDuplicateEmail(t *testing.T) {
	db := newMemDB()
	handler := newAuthHandler(db)

	body, _ := json.Marshal(registerRequest{Email: "dupe@example.com", Password: "supersafe"})
	rec := httptest.NewRecorder()
	handler.Register(rec, httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first registration: expected %d got %d", http.StatusCreated, rec.Code)
	}

	body, _ = json.Marshal(registerRequest{Email: "dupe@example.com", Password: "othersafe"})
	rec = httptest.NewRecorder()
	handler.Register(rec, httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("second registration: expected %d got %d", http.StatusConflict, rec.Code)
	}
}

func TestAuthHandlerRegisterValidation(t *testing.T) {
	cases := []struct {
		name string
		req  registerRequest
	}{
		{"missing email", registerRequest{Password: "supersafe"}},
		{"missing password", registerRequest{Email: "a@example.com"}},
		{"invalid email", registerRequest{Email: "not-an-email", Password: "supersafe"}},
		{"short password", registerRequest{Email: "a@example.com", Password: "short"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := newMemDB()
			handler := newAuthHandler(db)

			body, _ := json.Marshal(tc.req)
			rec := httptest.NewRecorder()
			handler.Register(rec, httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body)))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected %d got %d", http.StatusBadRequest, rec.Code)
			}
			if len(db.users) != 0 {
				t.Fatal("expected no user to be stored")
			}
		})
	}
}

func TestAuthHandlerRegisterRateLimited(t *testing.T) {
	db := newMemDB()
	handler := newAuthHandler(db)
	handler.Limiter = denyAll{}

	body, _ := json.Marshal(registerRequest{Email: "a@example.com", Password: "supersafe"})
	rec := httptest.NewRecorder()
	handler.Register(rec, httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body)))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected %d got %d", http.StatusTooManyRequests, rec.Code)
	}
}

// failingIssuer stands in for the session manager when token generation
// breaks, to prove the whole registration rolls back.
type failingIssuer struct{}

func (failingIssuer) NewSession(int64) (models.Session, error) {
	return models.Session{}, errors.New("entropy exhausted")
}
func (failingIssuer) Resolve(context.Context, string) (int64, error) { return 0, auth.ErrUnauthorized }
func (failingIssuer) Revoke(context.Context, string)                 {}

func TestAuthHandlerRegisterRollsBackOnSessionFailure(t *testing.T) {
	db := newMemDB()
	handler := newAuthHandler(db)
	handler.Sessions = failingIssuer{}

	body, _ := json.Marshal(registerRequest{Email: "a@example.com", Password: "supersafe"})
	rec := httptest.NewRecorder()
	handler.Register(rec, httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body)))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected %d got %d", http.StatusInternalServerError, rec.Code)
	}
	if len(db.users) != 0 {
		t.Fatal("expected the user write to roll back")
	}
	if len(db.creds) != 0 {
		t.Fatal("expected the credential write to roll back")
	}
	if len(db.sessions) != 0 {
		t.Fatal("expected no session to be persisted")
	}
}

func registerAccount(t *testing.T, handler AuthHandler, email, password string) models.Session {
	t.Helper()

	body, _ := json.Marshal(registerRequest{Email: email, Password: password})
	rec := httptest.NewRecorder()
	handler.Register(rec, httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected %d got %d (%s)", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var session models.Session
	if err := json.NewDecoder(rec.Body).Decode(&session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return session
}

func TestAuthHandlerLogin(t *testing.T) {
	db := newMemDB()
	handler := newAuthHandler(db)
	registerAccount(t, handler, "ada@example.com", "supersafe")

	body, _ := json.Marshal(loginRequest{Email: "ada@example.com", Password: "supersafe"})
	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected %d got %d (%s)", http.StatusOK, rec.Code, rec.Body.String())
	}

	var session models.Session
	if err := json.NewDecoder(rec.Body).Decode(&session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.Token == "" {
		t.Fatal("expected a fresh session token")
	}
	if _, ok := db.sessions[session.Token]; !ok {
		t.Fatal("expected the login session to be persisted")
	}
	if time.Until(session.ExpiresAt) <= 0 {
		t.Fatal("expected the session to expire in the future")
	}
}

func TestAuthHandlerLoginRejectsBadCredentials(t *testing.T) {
	db := newMemDB()
	handler := newAuthHandler(db)
	registerAccount(t, handler, "ada@example.com", "supersafe")

	cases := []struct {
		name string
		req  loginRequest
	}{
		{"unknown email", loginRequest{Email: "ghost@example.com", Password: "supersafe"}},
		{"wrong password", loginRequest{Email: "ada@example.com", Password: "wrongpass"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, _ := json.Marshal(tc.req)
			rec := httptest.NewRecorder()
			handler.Login(rec, httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body)))

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected %d got %d", http.StatusUnauthorized, rec.Code)
			}
		})
	}
}

func TestAuthHandlerLogoutRevokesSession(t *testing.T) {
	db := newMemDB()
	store := auth.NewInMemorySessionStore()
	handler := newAuthHandler(db)
	handler.Sessions = auth.NewManager(auth.DefaultExpiry, auth.DefaultRenewAfter, store)

	session, err := handler.Sessions.NewSession(42)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := store.Save(context.Background(), session); err != nil {
		t.Fatalf("save session: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rec := httptest.NewRecorder()
	handler.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected %d got %d", http.StatusOK, rec.Code)
	}
	if store.Has(session.Token) {
		t.Fatal("expected the token to be revoked")
	}

	if _, err := handler.Sessions.Resolve(context.Background(), session.Token); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected revoked token to resolve to ErrUnauthorized, got %v", err)
	}
}
