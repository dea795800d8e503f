package handlers

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bookloft/backend/internal/auth"
	"github.com/bookloft/backend/internal/models"
	"github.com/bookloft/backend/internal/repositories"
)

// memDB is a shared in-memory backing for the fake stores. Every fake holds a
// pointer to the same memDB so reads observe earlier writes, mirroring how the
// postgres stores share one querier.
type memDB struct {
	users       map[int64]models.User
	creds       map[int64]models.Credential
	sessions    map[string]models.Session
	assets      map[string]models.Asset
	books       map[uuid.UUID]models.Book
	tags        map[string]models.Tag
	authors     map[int64]models.Author
	comments    map[uuid.UUID][]models.CommentMessage
	photos      map[int64]map[string]struct{}
	collections map[int64]map[uuid.UUID]struct{}
	bookTags    map[uuid.UUID]map[int64]struct{}
}

func newMemDB() *memDB {
	return &memDB{
		users:       make(map[int64]models.User),
		creds:       make(map[int64]models.Credential),
		sessions:    make(map[string]models.Session),
		assets:      make(map[string]models.Asset),
		books:       make(map[uuid.UUID]models.Book),
		tags:        make(map[string]models.Tag),
		authors:     make(map[int64]models.Author),
		comments:    make(map[uuid.UUID][]models.CommentMessage),
		photos:      make(map[int64]map[string]struct{}),
		collections: make(map[int64]map[uuid.UUID]struct{}),
		bookTags:    make(map[uuid.UUID]map[int64]struct{}),
	}
}

func (m *memDB) snapshot() *memDB {
	clone := newMemDB()
	for k, v := range m.users {
		clone.users[k] = v
	}
	for k, v := range m.creds {
		clone.creds[k] = v
	}
	for k, v := range m.sessions {
		clone.sessions[k] = v
	}
	for k, v := range m.assets {
		clone.assets[k] = v
	}
	for k, v := range m.books {
		clone.books[k] = v
	}
	for k, v := range m.tags {
		clone.tags[k] = v
	}
	for k, v := range m.authors {
		clone.authors[k] = v
	}
	for k, v := range m.comments {
		clone.comments[k] = append([]models.CommentMessage(nil), v...)
	}
	for k, v := range m.photos {
		inner := make(map[string]struct{}, len(v))
		for h := range v {
			inner[h] = struct{}{}
		}
		clone.photos[k] = inner
	}
	for k, v := range m.collections {
		inner := make(map[uuid.UUID]struct{}, len(v))
		for id := range v {
			inner[id] = struct{}{}
		}
		clone.collections[k] = inner
	}
	for k, v := range m.bookTags {
		inner := make(map[int64]struct{}, len(v))
		for id := range v {
			inner[id] = struct{}{}
		}
		clone.bookTags[k] = inner
	}
	return clone
}

func (m *memDB) restore(from *memDB) {
	*m = *from
}

func (m *memDB) stores() repositories.Stores {
	return repositories.Stores{
		Users:       memUserStore{m},
		Credentials: memCredentialStore{m},
		Sessions:    memSessionStore{m},
		Assets:      memAssetStore{m},
		Books:       memBookStore{m},
		Tags:        memTagStore{m},
		Authors:     memAuthorStore{m},
		Comments:    memCommentStore{m},
		Photos:      memPhotoStore{m},
		Collections: memCollectionStore{m},
	}
}

// memUnitOfWork snapshots state before fn and restores it when fn fails, so
// a mid-sequence error leaves no partial writes, matching transactional
// rollback.
type memUnitOfWork struct {
	db *memDB
}

func (u memUnitOfWork) Run(_ context.Context, fn func(repositories.Stores) error) error {
	before := u.db.snapshot()
	if err := fn(u.db.stores()); err != nil {
		u.db.restore(before)
		return err
	}
	return nil
}

type memUserStore struct{ db *memDB }

func (s memUserStore) Create(_ context.Context, user models.User) error {
	for _, existing := range s.db.users {
		if existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	if _, ok := s.db.users[user.ID]; ok {
		return repositories.ErrConflict
	}
	s.db.users[user.ID] = user
	return nil
}

func (s memUserStore) FindByID(_ context.Context, id int64) (models.User, error) {
	user, ok := s.db.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s memUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	for _, user := range s.db.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s memUserStore) Update(_ context.Context, user models.User) error {
	if _, ok := s.db.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.db.users[user.ID] = user
	return nil
}

type memCredentialStore struct{ db *memDB }

func (s memCredentialStore) Create(_ context.Context, cred models.Credential) error {
	if _, ok := s.db.creds[cred.UserID]; ok {
		return repositories.ErrConflict
	}
	s.db.creds[cred.UserID] = cred
	return nil
}

func (s memCredentialStore) FindByUserID(_ context.Context, userID int64) (models.Credential, error) {
	cred, ok := s.db.creds[userID]
	if !ok {
		return models.Credential{}, repositories.ErrNotFound
	}
	return cred, nil
}

func (s memCredentialStore) Update(_ context.Context, cred models.Credential) error {
	if _, ok := s.db.creds[cred.UserID]; !ok {
		return repositories.ErrNotFound
	}
	s.db.creds[cred.UserID] = cred
	return nil
}

type memSessionStore struct{ db *memDB }

func (s memSessionStore) Save(_ context.Context, session models.Session) error {
	s.db.sessions[session.Token] = session
	return nil
}

func (s memSessionStore) Find(_ context.Context, token string) (models.Session, error) {
	session, ok := s.db.sessions[token]
	if !ok {
		return models.Session{}, auth.ErrSessionNotFound
	}
	return session, nil
}

func (s memSessionStore) Extend(_ context.Context, token string, expiresAt time.Time) error {
	session, ok := s.db.sessions[token]
	if !ok {
		return auth.ErrSessionNotFound
	}
	session.ExpiresAt = expiresAt
	s.db.sessions[token] = session
	return nil
}

func (s memSessionStore) Delete(_ context.Context, token string) error {
	delete(s.db.sessions, token)
	return nil
}

func (s memSessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var removed int64
	for token, session := range s.db.sessions {
		if !session.ExpiresAt.After(now) {
			delete(s.db.sessions, token)
			removed++
		}
	}
	return removed, nil
}

type memAssetStore struct{ db *memDB }

func (s memAssetStore) Put(_ context.Context, asset models.Asset) error {
	if _, ok := s.db.assets[asset.Hash]; ok {
		return nil
	}
	s.db.assets[asset.Hash] = asset
	return nil
}

func (s memAssetStore) Find(_ context.Context, hash string) (models.Asset, error) {
	asset, ok := s.db.assets[hash]
	if !ok {
		return models.Asset{}, repositories.ErrNotFound
	}
	return asset, nil
}

func (s memAssetStore) FindMetadata(ctx context.Context, hash string) (models.Asset, error) {
	asset, err := s.Find(ctx, hash)
	if err != nil {
		return models.Asset{}, err
	}
	asset.Data = nil
	return asset, nil
}

func (s memAssetStore) Exists(_ context.Context, hash string) error {
	if _, ok := s.db.assets[hash]; !ok {
		return repositories.ErrBadReference
	}
	return nil
}

type memBookStore struct{ db *memDB }

func (s memBookStore) Create(_ context.Context, book models.Book) error {
	if _, ok := s.db.books[book.ID]; ok {
		return repositories.ErrConflict
	}
	if _, ok := s.db.authors[book.AuthorID]; !ok {
		return repositories.ErrBadReference
	}
	s.db.books[book.ID] = book
	return nil
}

func (s memBookStore) FindByID(_ context.Context, id uuid.UUID) (models.Book, error) {
	book, ok := s.db.books[id]
	if !ok {
		return models.Book{}, repositories.ErrNotFound
	}
	return book, nil
}

func (s memBookStore) Update(_ context.Context, book models.Book) error {
	if _, ok := s.db.books[book.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.db.books[book.ID] = book
	return nil
}

func (s memBookStore) Delete(_ context.Context, id uuid.UUID, ownerID int64) error {
	book, ok := s.db.books[id]
	if !ok || book.OwnerID != ownerID {
		return repositories.ErrNotFound
	}
	delete(s.db.books, id)
	return nil
}

func (s memBookStore) List(_ context.Context, page repositories.Page) ([]models.Book, int64, error) {
	all := make([]models.Book, 0, len(s.db.books))
	for _, book := range s.db.books {
		all = append(all, book)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, page), int64(len(all)), nil
}

func (s memBookStore) ListCollection(_ context.Context, userID int64, page repositories.Page) ([]models.Book, int64, error) {
	var owned []models.Book
	for id := range s.db.collections[userID] {
		if book, ok := s.db.books[id]; ok {
			owned = append(owned, book)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })
	return paginate(owned, page), int64(len(owned)), nil
}

func (s memBookStore) AttachTag(_ context.Context, bookID uuid.UUID, tagID int64) error {
	if _, ok := s.db.books[bookID]; !ok {
		return repositories.ErrBadReference
	}
	if s.db.bookTags[bookID] == nil {
		s.db.bookTags[bookID] = make(map[int64]struct{})
	}
	s.db.bookTags[bookID][tagID] = struct{}{}
	return nil
}

type memTagStore struct{ db *memDB }

func (s memTagStore) Create(_ context.Context, tag models.Tag) error {
	if _, ok := s.db.tags[tag.Name]; ok {
		return repositories.ErrConflict
	}
	s.db.tags[tag.Name] = tag
	return nil
}

func (s memTagStore) FindByName(_ context.Context, name string) (models.Tag, error) {
	tag, ok := s.db.tags[name]
	if !ok {
		return models.Tag{}, repositories.ErrNotFound
	}
	return tag, nil
}

func (s memTagStore) List(_ context.Context) ([]models.Tag, error) {
	all := make([]models.Tag, 0, len(s.db.tags))
	for _, tag := range s.db.tags {
		all = append(all, tag)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name > all[j].Name })
	return all, nil
}

type memAuthorStore struct{ db *memDB }

func (s memAuthorStore) Create(_ context.Context, author models.Author) error {
	if _, ok := s.db.authors[author.ID]; ok {
		return repositories.ErrConflict
	}
	s.db.authors[author.ID] = author
	return nil
}

func (s memAuthorStore) FindByID(_ context.Context, id int64) (models.Author, error) {
	author, ok := s.db.authors[id]
	if !ok {
		return models.Author{}, repositories.ErrNotFound
	}
	return author, nil
}

func (s memAuthorStore) Update(_ context.Context, author models.Author) error {
	if _, ok := s.db.authors[author.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.db.authors[author.ID] = author
	return nil
}

func (s memAuthorStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.db.authors[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.db.authors, id)
	return nil
}

func (s memAuthorStore) List(_ context.Context, page repositories.Page) ([]models.Author, int64, error) {
	all := make([]models.Author, 0, len(s.db.authors))
	for _, author := range s.db.authors {
		all = append(all, author)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, page), int64(len(all)), nil
}

type memCommentStore struct{ db *memDB }

func (s memCommentStore) Create(_ context.Context, msg models.CommentMessage) error {
	s.db.comments[msg.BookID] = append(s.db.comments[msg.BookID], msg)
	return nil
}

func (s memCommentStore) ListForBook(_ context.Context, bookID uuid.UUID, page repositories.Page) ([]models.CommentMessage, int64, error) {
	all := s.db.comments[bookID]
	return paginate(all, page), int64(len(all)), nil
}

type memPhotoStore struct{ db *memDB }

func (s memPhotoStore) ListHashes(_ context.Context, userID int64) ([]string, error) {
	hashes := make([]string, 0, len(s.db.photos[userID]))
	for hash := range s.db.photos[userID] {
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)
	return hashes, nil
}

func (s memPhotoStore) Add(_ context.Context, userID int64, hash string) error {
	if _, ok := s.db.assets[hash]; !ok {
		return repositories.ErrBadReference
	}
	if s.db.photos[userID] == nil {
		s.db.photos[userID] = make(map[string]struct{})
	}
	s.db.photos[userID][hash] = struct{}{}
	return nil
}

func (s memPhotoStore) Remove(_ context.Context, userID int64, hash string) error {
	delete(s.db.photos[userID], hash)
	return nil
}

type memCollectionStore struct{ db *memDB }

func (s memCollectionStore) Add(_ context.Context, userID int64, bookID uuid.UUID) error {
	if _, ok := s.db.books[bookID]; !ok {
		return repositories.ErrBadReference
	}
	if s.db.collections[userID] == nil {
		s.db.collections[userID] = make(map[uuid.UUID]struct{})
	}
	s.db.collections[userID][bookID] = struct{}{}
	return nil
}

func (s memCollectionStore) Remove(_ context.Context, userID int64, bookID uuid.UUID) error {
	delete(s.db.collections[userID], bookID)
	return nil
}

func paginate[T any](all []T, page repositories.Page) []T {
	offset := page.Offset()
	if offset >= len(all) {
		return nil
	}
	end := offset + page.Limit()
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

// sequentialIDs hands out predictable identifiers for tests.
type sequentialIDs struct{ next int64 }

func (g *sequentialIDs) NextID() (int64, error) {
	g.next++
	return g.next, nil
}

// allowAll is a rate limiter that never throttles.
type allowAll struct{}

func (allowAll) Allow(string) bool { return true }

// denyAll is a rate limiter that always throttles.
type denyAll struct{}

func (denyAll) Allow(string) bool { return false }
