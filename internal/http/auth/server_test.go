package authhttp_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authhttp "github.com/Mathew-Seliverstov/projectAuthServer/internal/http/auth"
	"github.com/Mathew-Seliverstov/projectAuthServer/internal/lib/jwt"
	"github.com/Mathew-Seliverstov/projectAuthServer/internal/services/auth"
	"github.com/Mathew-Seliverstov/projectAuthServer/internal/storage/sqlite"
)

const clientURL = "http://client.example"

type testMailer struct {
	lastLink string
}

func (m *testMailer) SendActivationMail(_ context.Context, _ string, link string) error {
	m.lastLink = link
	return nil
}

type testServer struct {
	app     *fiber.App
	storage *sqlite.Storage
	mailer  *testMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	path := filepath.Join(t.TempDir(), "auth.db")

	schema, err := os.ReadFile("../../../migrations/1_init.up.sql")
	require.NoError(t, err)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	st, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	issuer := jwt.NewIssuer("test-access-secret", "test-refresh-secret", time.Hour, 24*time.Hour)
	mailer := &testMailer{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := auth.New(log, st, st, st, st, st, issuer, mailer)

	app := fiber.New(fiber.Config{ErrorHandler: authhttp.ErrorHandler})
	authhttp.Register(app, svc, issuer, 24*time.Hour, clientURL)

	return &testServer{app: app, storage: st, mailer: mailer}
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func refreshCookieOf(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "refreshToken" {
			return cookie
		}
	}
	t.Fatal("refreshToken cookie not set")
	return nil
}

func signup(t *testing.T, ts *testServer, email, password string) (auth.Result, *http.Cookie) {
	t.Helper()

	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	resp, err := ts.app.Test(jsonRequest(http.MethodPost, "/api/signup", body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result auth.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))

	return result, refreshCookieOf(t, resp)
}

func TestSignup(t *testing.T) {
	ts := newTestServer(t)

	email := gofakeit.Email()
	result, cookie := signup(t, ts, email, "password1")

	assert.Equal(t, email, result.Account.Email)
	assert.False(t, result.Account.IsActivated)
	assert.NotEmpty(t, result.Tokens.AccessToken)

	assert.Equal(t, result.Tokens.RefreshToken, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Positive(t, cookie.MaxAge)
}

func TestSignup_Validation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid email", body: `{"email":"not-an-email","password":"password1"}`},
		{name: "password too short", body: fmt.Sprintf(`{"email":%q,"password":"abc"}`, gofakeit.Email())},
		{name: "password too long", body: fmt.Sprintf(`{"email":%q,"password":%q}`, gofakeit.Email(), strings.Repeat("x", 33))},
		{name: "not json", body: `email=a@b.c`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ts.app.Test(jsonRequest(http.MethodPost, "/api/signup", tt.body))
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	ts := newTestServer(t)

	email := gofakeit.Email()
	signup(t, ts, email, "password1")

	body := fmt.Sprintf(`{"email":%q,"password":"wrongpass"}`, email)
	resp, err := ts.app.Test(jsonRequest(http.MethodPost, "/api/login", body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRefresh_WithCookie(t *testing.T) {
	ts := newTestServer(t)

	_, cookie := signup(t, ts, gofakeit.Email(), "password1")

	req := httptest.NewRequest(http.MethodGet, "/api/refresh", nil)
	req.AddCookie(cookie)

	resp, err := ts.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rotated := refreshCookieOf(t, resp)
	assert.NotEqual(t, cookie.Value, rotated.Value)

	// The superseded cookie no longer refreshes.
	req = httptest.NewRequest(http.MethodGet, "/api/refresh", nil)
	req.AddCookie(cookie)

	resp, err = ts.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefresh_NoCookie(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.app.Test(httptest.NewRequest(http.MethodGet, "/api/refresh", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestActivate_RedirectsToClient(t *testing.T) {
	ts := newTestServer(t)

	email := gofakeit.Email()
	signup(t, ts, email, "password1")
	require.NotEmpty(t, ts.mailer.lastLink)

	resp, err := ts.app.Test(httptest.NewRequest(http.MethodGet, "/api/activate/"+ts.mailer.lastLink, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, clientURL, resp.Header.Get(fiber.HeaderLocation))

	account, err := ts.storage.AccountByEmail(context.Background(), email)
	require.NoError(t, err)
	assert.True(t, account.IsActivated)
}

func TestActivate_UnknownLink(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.app.Test(httptest.NewRequest(http.MethodGet, "/api/activate/no-such-link", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogout_ClearsCookieAndRevokes(t *testing.T) {
	ts := newTestServer(t)

	_, cookie := signup(t, ts, gofakeit.Email(), "password1")

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.AddCookie(cookie)

	resp, err := ts.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cleared := refreshCookieOf(t, resp)
	assert.Empty(t, cleared.Value)

	req = httptest.NewRequest(http.MethodGet, "/api/refresh", nil)
	req.AddCookie(cookie)

	resp, err = ts.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUsers_RequiresAccessToken(t *testing.T) {
	ts := newTestServer(t)

	result, _ := signup(t, ts, gofakeit.Email(), "password1")

	resp, err := ts.app.Test(httptest.NewRequest(http.MethodGet, "/api/users", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+result.Tokens.AccessToken)

	resp, err = ts.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var views []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&views))
	require.Len(t, views, 1)

	// Public projection only: no hash, no activation link.
	for key := range views[0] {
		assert.NotContains(t, []string{"passwordHash", "passHash", "activationLink"}, key)
	}
}

func TestUsers_RefreshTokenNotAcceptedAsBearer(t *testing.T) {
	ts := newTestServer(t)

	result, _ := signup(t, ts, gofakeit.Email(), "password1")

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+result.Tokens.RefreshToken)

	resp, err := ts.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
