package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/arashthr/shelf/internal/auth/context/usercontext"
	"github.com/arashthr/shelf/internal/errors"
	"github.com/arashthr/shelf/internal/models"
	"github.com/arashthr/shelf/internal/types"
	"github.com/arashthr/shelf/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pageRecorder struct {
	data any
	msgs []web.NavbarMessage
}

func (p *pageRecorder) Execute(w http.ResponseWriter, r *http.Request, data any, msgs ...web.NavbarMessage) {
	p.data = data
	p.msgs = msgs
}

type fakeUsers struct {
	users map[string]*models.User
}

func (f *fakeUsers) Create(_ context.Context, email, password string) (*models.User, error) {
	if _, ok := f.users[email]; ok {
		return nil, errors.ErrEmailTaken
	}
	u := &models.User{ID: types.UserId(len(f.users) + 1), Email: email, PasswordHash: password}
	f.users[email] = u
	return u, nil
}

func (f *fakeUsers) Authenticate(_ context.Context, email, password string) (*models.User, error) {
	u, ok := f.users[email]
	if !ok || u.PasswordHash != password {
		return nil, errors.ErrNotFound
	}
	return u, nil
}

type fakeSessions struct {
	byToken map[string]*models.User
	users   *fakeUsers
	lastIP  string
}

func (f *fakeSessions) Create(_ context.Context, userId types.UserId, ipAddress string) (*models.Session, error) {
	f.lastIP = ipAddress
	token := "token-" + string(rune('a'+len(f.byToken)))
	for _, u := range f.users.users {
		if u.ID == userId {
			f.byToken[token] = u
		}
	}
	return &models.Session{UserId: userId, Token: token}, nil
}

func (f *fakeSessions) User(_ context.Context, token string) (*models.User, error) {
	u, ok := f.byToken[token]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return u, nil
}

func (f *fakeSessions) Delete(_ context.Context, token string) error {
	delete(f.byToken, token)
	return nil
}

type fixture struct {
	users    Users
	sessions *fakeSessions
	signUp   *pageRecorder
	signIn   *pageRecorder
}

func newFixture() *fixture {
	users := &fakeUsers{users: map[string]*models.User{
		"alice@example.com": {ID: 1, Email: "alice@example.com", PasswordHash: "correct-horse"},
	}}
	f := &fixture{
		sessions: &fakeSessions{byToken: map[string]*models.User{}, users: users},
		signUp:   &pageRecorder{},
		signIn:   &pageRecorder{},
	}
	f.users = Users{UserService: users, SessionService: f.sessions}
	f.users.Templates.New = f.signUp
	f.users.Templates.SignIn = f.signIn
	return f
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieSession {
			return c
		}
	}
	t.Fatalf("no %s cookie set", CookieSession)
	return nil
}

func TestProcessSignIn(t *testing.T) {
	f := newFixture()
	rec := httptest.NewRecorder()

	f.users.ProcessSignIn(rec, postForm("/signin", url.Values{
		"email":    {"alice@example.com"},
		"password": {"correct-horse"},
	}))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Contains(t, f.sessions.byToken, cookie.Value)
	assert.Equal(t, "192.0.2.1", f.sessions.lastIP, "stored without the port")
}

func TestSessionIPFromProxy(t *testing.T) {
	f := newFixture()
	req := postForm("/signin", url.Values{
		"email":    {"alice@example.com"},
		"password": {"correct-horse"},
	})
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	f.users.ProcessSignIn(httptest.NewRecorder(), req)

	assert.Equal(t, "203.0.113.9", f.sessions.lastIP)
}

func TestProcessSignInWrongPassword(t *testing.T) {
	f := newFixture()
	rec := httptest.NewRecorder()

	f.users.ProcessSignIn(rec, postForm("/signin", url.Values{
		"email":    {"alice@example.com"},
		"password": {"wrong"},
	}))

	assert.Empty(t, rec.Result().Cookies())
	require.Len(t, f.signIn.msgs, 1)
	assert.True(t, f.signIn.msgs[0].IsError)
	assert.Equal(t, authPageData{Title: "Sign In", Email: "alice@example.com"}, f.signIn.data)
}

func TestCreateUser(t *testing.T) {
	f := newFixture()

	rec := httptest.NewRecorder()
	f.users.Create(rec, postForm("/users", url.Values{"email": {"bob@example.com"}, "password": {"long-enough"}}))
	assert.Equal(t, http.StatusFound, rec.Code)
	sessionCookie(t, rec)
	assert.Equal(t, "192.0.2.1", f.sessions.lastIP)

	rec = httptest.NewRecorder()
	f.users.Create(rec, postForm("/users", url.Values{"email": {"alice@example.com"}, "password": {"long-enough"}}))
	require.Len(t, f.signUp.msgs, 1)
	assert.Equal(t, "That email address is already taken", f.signUp.msgs[0].Message)
}

func TestProcessSignOut(t *testing.T) {
	f := newFixture()
	f.sessions.byToken["token-x"] = &models.User{ID: 1}
	req := postForm("/signout", nil)
	req.AddCookie(&http.Cookie{Name: CookieSession, Value: "token-x"})
	rec := httptest.NewRecorder()

	f.users.ProcessSignOut(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/signin", rec.Header().Get("Location"))
	assert.NotContains(t, f.sessions.byToken, "token-x")
	assert.Less(t, sessionCookie(t, rec).MaxAge, 0)
}

func TestUserMiddleware(t *testing.T) {
	f := newFixture()
	alice := &models.User{ID: 1, Email: "alice@example.com"}
	f.sessions.byToken["valid"] = alice
	umw := UserMiddleware{SessionService: f.sessions}

	var seen *models.User
	handler := umw.SetUser(umw.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = usercontext.User(r.Context())
	})))

	tests := []struct {
		name     string
		cookie   string
		status   int
		wantUser *models.User
	}{
		{"valid session", "valid", http.StatusOK, alice},
		{"unknown session", "stale", http.StatusFound, nil},
		{"no cookie", "", http.StatusFound, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieSession, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.wantUser, seen)
			if tt.status == http.StatusFound {
				assert.Equal(t, "/signin", rec.Header().Get("Location"))
			}
		})
	}
}
