package handler_test

// Shared fixtures for the handler tests: in-memory implementations of
// the store interfaces and a helper that wires the real routes,
// middleware and handlers into an Echo instance backed by them.

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/task-tracker/internal/config"
	"github.com/iliyamo/task-tracker/internal/handler"
	"github.com/iliyamo/task-tracker/internal/middleware"
	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/repository"
	"github.com/iliyamo/task-tracker/internal/router"
)

const testSecret = "test-secret"

// memUsers is an in-memory handler.UserStore / middleware.IdentityResolver.
type memUsers struct {
	mu  sync.Mutex
	seq uint64
	m   map[uint64]model.User
}

func newMemUsers() *memUsers { return &memUsers{m: map[uint64]model.User{}} }

func (s *memUsers) Create(_ context.Context, email, passwordHash, name string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.m {
		if u.Email == email {
			return model.User{}, repository.ErrEmailExists
		}
	}
	s.seq++
	now := time.Now().UTC()
	u := model.User{ID: s.seq, Email: email, Name: name, PasswordHash: passwordHash, CreatedAt: now, UpdatedAt: now}
	s.m[u.ID] = u
	return u, nil
}

func (s *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.m {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (s *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.m[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

// memTasks is an in-memory handler.TaskStore.
type memTasks struct {
	mu  sync.Mutex
	seq uint64
	m   map[uint64]model.Task
}

func newMemTasks() *memTasks { return &memTasks{m: map[uint64]model.Task{}} }

func (s *memTasks) Create(_ context.Context, t *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t.ID = s.seq
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.m[t.ID] = *t
	return nil
}

func (s *memTasks) GetByID(_ context.Context, id uint64) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.m[id]
	if !ok {
		return nil, repository.ErrTaskNotFound
	}
	cp := t
	return &cp, nil
}

func (s *memTasks) ListByOwner(_ context.Context, ownerID uint64) ([]*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*model.Task{}
	for _, t := range s.m {
		if t.OwnerID == ownerID {
			cp := t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *memTasks) Update(_ context.Context, t *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[t.ID]; !ok {
		return repository.ErrTaskNotFound
	}
	t.UpdatedAt = time.Now().UTC()
	s.m[t.ID] = *t
	return nil
}

func (s *memTasks) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[id]; !ok {
		return repository.ErrTaskNotFound
	}
	delete(s.m, id)
	return nil
}

func (s *memTasks) Stats(_ context.Context, ownerID uint64) (model.TaskStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st model.TaskStats
	for _, t := range s.m {
		if t.OwnerID != ownerID {
			continue
		}
		st.Total++
		if t.Completed {
			st.Completed++
		}
	}
	st.Pending = st.Total - st.Completed
	return st, nil
}

// newTestServer wires the real router, gate and handlers over the
// in-memory stores. MinCost keeps bcrypt cheap in tests.
func newTestServer(t *testing.T) (*echo.Echo, *memUsers, *memTasks) {
	t.Helper()
	cfg := config.Config{
		Env:          "test",
		JWTSecret:    testSecret,
		AccessTTLMin: 60,
		BcryptCost:   bcrypt.MinCost,
	}
	users := newMemUsers()
	tasks := newMemTasks()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users))
	router.RegisterProtected(e, handler.NewUserHandler(), handler.NewTaskHandler(tasks, nil),
		middleware.JWTAuth(cfg.JWTSecret, users), nil)
	return e, users, tasks
}

// doJSON performs a request against the test server, optionally with a
// JSON body and bearer token, and returns the recorder.
func doJSON(t *testing.T, e *echo.Echo, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// decode unmarshals a recorder body into out.
func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("unmarshal response %q: %v", rec.Body.String(), err)
	}
}

// registerUser registers a user through the HTTP surface and returns
// the access token and public user payload.
func registerUser(t *testing.T, e *echo.Echo, email, password, name string) (string, map[string]interface{}) {
	t.Helper()
	rec := doJSON(t, e, http.MethodPost, "/v1/auth/register", "",
		map[string]string{"email": email, "password": password, "name": name})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d: %s", email, rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken string                 `json:"access_token"`
		User        map[string]interface{} `json:"user"`
	}
	decode(t, rec, &resp)
	if resp.AccessToken == "" {
		t.Fatalf("register %s: empty access token", email)
	}
	return resp.AccessToken, resp.User
}

// createTask creates a task through the HTTP surface and returns it.
func createTask(t *testing.T, e *echo.Echo, token string, body map[string]interface{}) model.Task {
	t.Helper()
	rec := doJSON(t, e, http.MethodPost, "/v1/tasks", token, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create task: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var task model.Task
	decode(t, rec, &task)
	return task
}
