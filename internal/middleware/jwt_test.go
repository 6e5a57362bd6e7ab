package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/repository"
	"github.com/iliyamo/task-tracker/internal/utils"
)

type fakeResolver struct {
	users map[uint64]model.User
}

func (f *fakeResolver) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

const gateSecret = "gate-secret"

func gateTestServer(t *testing.T, users *fakeResolver) *echo.Echo {
	t.Helper()
	e := echo.New()
	g := e.Group("/v1")
	g.Use(JWTAuth(gateSecret, users))
	g.GET("/whoami", func(c echo.Context) error {
		u, err := CurrentUser(c)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "identity missing"})
		}
		id, err := CurrentUserID(c)
		if err != nil || id != u.ID {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "id mismatch"})
		}
		return c.JSON(http.StatusOK, u.Public())
	})
	return e
}

func doGet(e *echo.Echo, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth_ValidToken(t *testing.T) {
	t.Parallel()

	u := model.User{ID: 7, Email: "u@example.com", Name: "U"}
	e := gateTestServer(t, &fakeResolver{users: map[uint64]model.User{7: u}})

	tok, err := utils.NewAccessToken(gateSecret, u, 60)
	if err != nil {
		t.Fatalf("NewAccessToken error: %v", err)
	}
	rec := doGet(e, "/v1/whoami", "Bearer "+tok.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestJWTAuth_Rejections(t *testing.T) {
	t.Parallel()

	u := model.User{ID: 7, Email: "u@example.com", Name: "U"}
	e := gateTestServer(t, &fakeResolver{users: map[uint64]model.User{7: u}})

	expired, err := utils.NewAccessToken(gateSecret, u, -1)
	if err != nil {
		t.Fatalf("NewAccessToken error: %v", err)
	}
	foreign, err := utils.NewAccessToken("other-secret", u, 60)
	if err != nil {
		t.Fatalf("NewAccessToken error: %v", err)
	}

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Token abc"},
		{"malformed token", "Bearer not.a.jwt"},
		{"expired token", "Bearer " + expired.Token},
		{"wrong signature", "Bearer " + foreign.Token},
	}
	for _, tc := range cases {
		rec := doGet(e, "/v1/whoami", tc.header)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", tc.name, rec.Code)
		}
	}
}

func TestJWTAuth_UnknownSubject(t *testing.T) {
	t.Parallel()

	// Token is valid, but the account no longer resolves.
	gone := model.User{ID: 99, Email: "gone@example.com", Name: "Gone"}
	e := gateTestServer(t, &fakeResolver{users: map[uint64]model.User{}})

	tok, err := utils.NewAccessToken(gateSecret, gone, 60)
	if err != nil {
		t.Fatalf("NewAccessToken error: %v", err)
	}
	rec := doGet(e, "/v1/whoami", "Bearer "+tok.Token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown subject, got %d", rec.Code)
	}
}
