package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/myphotos/backend/internal/auth"
	"github.com/myphotos/backend/internal/friendships"
	"github.com/myphotos/backend/internal/models"
	"github.com/myphotos/backend/internal/photos"
	"github.com/myphotos/backend/internal/repositories"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type inMemoryUserStore struct {
	mu      sync.Mutex
	byLogin map[string]models.User
	byID    map[string]models.User
}

func newInMemoryUserStore() *inMemoryUserStore {
	return &inMemoryUserStore{byLogin: make(map[string]models.User), byID: make(map[string]models.User)}
}

func (s *inMemoryUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byLogin[user.Login]; exists {
		return repositories.ErrConflict
	}
	s.byLogin[user.Login] = user
	s.byID[user.ID] = user
	return nil
}

func (s *inMemoryUserStore) FindByLogin(_ context.Context, login string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byLogin[login]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *inMemoryUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

type inMemoryImageStore struct {
	mu     sync.Mutex
	images []models.Image
}

func (s *inMemoryImageStore) Create(_ context.Context, image models.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.images {
		if existing.OwnerID == image.OwnerID && existing.FileName == image.FileName {
			return repositories.ErrConflict
		}
	}
	s.images = append(s.images, image)
	return nil
}

func (s *inMemoryImageStore) ListByOwner(_ context.Context, ownerID string) ([]models.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Image
	for _, image := range s.images {
		if image.OwnerID == ownerID {
			out = append(out, image)
		}
	}
	return out, nil
}

func (s *inMemoryImageStore) Find(_ context.Context, ownerID, fileName string) (models.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, image := range s.images {
		if image.OwnerID == ownerID && image.FileName == fileName {
			return image, nil
		}
	}
	return models.Image{}, repositories.ErrNotFound
}

func (s *inMemoryImageStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, image := range s.images {
		if image.ID == id {
			s.images = append(s.images[:i], s.images[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

type inMemoryBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (b *inMemoryBlobs) Save(_ context.Context, key string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[key] = data
	return b.Location(key), nil
}

func (b *inMemoryBlobs) Open(_ context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.blobs[key]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *inMemoryBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, key)
	return nil
}

func (b *inMemoryBlobs) Location(key string) string { return "mem://" + key }

type limiterStub struct {
	allow bool
	keys  []string
}

func (l *limiterStub) Allow(key string) bool {
	l.keys = append(l.keys, key)
	return l.allow
}

// testServer wires the full route table over in-memory collaborators.
type testServer struct {
	t           *testing.T
	mux         *http.ServeMux
	users       *inMemoryUserStore
	friendStore *friendships.InMemoryStore
	sessions    *auth.InMemorySessionStore
	manager     *auth.Manager
	limiter     *limiterStub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	users := newInMemoryUserStore()
	friendStore := friendships.NewInMemoryStore()
	engine := friendships.NewEngine(friendStore, friendships.EngineConfig{})
	sessions := auth.NewInMemorySessionStore()
	manager := auth.NewManager(auth.ManagerConfig{
		Secret:     testSecret,
		Issuer:     "myphotos-test",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}, sessions)
	service := photos.NewService(photos.NewPolicy(engine, nil), users, &inMemoryImageStore{}, &inMemoryBlobs{blobs: make(map[string][]byte)})
	limiter := &limiterStub{allow: true}

	mux := http.NewServeMux()
	RegisterRoutes(mux, Dependencies{
		Users:          users,
		Sessions:       manager,
		Tokens:         manager,
		Friends:        engine,
		Photos:         service,
		AuthLimiter:    limiter,
		MaxUploadBytes: 1024,
	})

	return &testServer{
		t:           t,
		mux:         mux,
		users:       users,
		friendStore: friendStore,
		sessions:    sessions,
		manager:     manager,
		limiter:     limiter,
	}
}

// addUser registers an account and returns its id and a valid access token.
func (s *testServer) addUser(login, password string) (string, string) {
	s.t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		s.t.Fatalf("hash password: %v", err)
	}
	user := models.User{ID: uuid.NewString(), Login: login, PasswordHash: string(hashed)}
	if err := s.users.Create(context.Background(), user); err != nil {
		s.t.Fatalf("create user: %v", err)
	}
	s.friendStore.AddUser(user.ID)

	tokens, err := s.manager.Issue(context.Background(), auth.Identity{UserID: user.ID, Login: login})
	if err != nil {
		s.t.Fatalf("issue tokens: %v", err)
	}
	return user.ID, tokens.AccessToken
}

func (s *testServer) do(method, target, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.serve(req)
}

func (s *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d got %d: %s", want, rec.Code, rec.Body.String())
	}
}
