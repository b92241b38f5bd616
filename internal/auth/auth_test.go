package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
	"budget/internal/storage"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return NewService(repo, time.Hour, nil)
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "battery staple"))
}

func TestLoginLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, core.User{Username: " anna "}, "tajnehaslo")
	require.NoError(t, err)
	assert.Equal(t, "anna", u.Username)

	_, _, err = svc.Login(ctx, "anna", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody", "tajnehaslo")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	sess, p, err := svc.Login(ctx, "anna", "tajnehaslo")
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID)
	assert.NotEmpty(t, sess.Token)

	got, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	require.NoError(t, svc.Logout(ctx, sess.Token))
	_, err = svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionsExpire(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, core.User{Username: "anna"}, "tajnehaslo")
	require.NoError(t, err)

	start := time.Now()
	svc.now = func() time.Time { return start }
	sess, _, err := svc.Login(ctx, "anna", "tajnehaslo")
	require.NoError(t, err)

	svc.now = func() time.Time { return start.Add(2 * time.Hour) }
	_, err = svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrNoSession)

	n, err := svc.PruneSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSetPassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, core.User{Username: "anna"}, "tajnehaslo")
	require.NoError(t, err)

	require.NoError(t, svc.SetPassword(ctx, "anna", "nowehaslo1"))
	_, _, err = svc.Login(ctx, "anna", "tajnehaslo")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "anna", "nowehaslo1")
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.SetPassword(ctx, "nobody", "whatever1"), storage.ErrNotFound)
}

func TestRequireUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, core.User{Username: "anna"}, "tajnehaslo")
	require.NoError(t, err)
	sess, _, err := svc.Login(ctx, "anna", "tajnehaslo")
	require.NoError(t, err)

	var seen Principal
	h := RequireUser(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFrom(r.Context())
	}))

	t.Run("anonymous is redirected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/expenses?name=x", nil))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login?next=%2Fexpenses%3Fname%3Dx", rec.Header().Get("Location"))
	})

	t.Run("session cookie passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		CookieWriter{}.Set(rec, sess)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: sess.Token})
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "anna", seen.Username)
	})
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                     "/",
		"/expenses":            "/expenses",
		"//evil.example":       "/",
		"/\\evil.example":      "/",
		"https://evil.example": "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeNext(in), in)
	}
}
