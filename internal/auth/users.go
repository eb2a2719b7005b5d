package auth

import (
	"context"
	"net/http"

	"github.com/arashthr/shelf/internal/auth/context/loggercontext"
	"github.com/arashthr/shelf/internal/auth/context/usercontext"
	"github.com/arashthr/shelf/internal/errors"
	"github.com/arashthr/shelf/internal/models"
	"github.com/arashthr/shelf/internal/ratelimit"
	"github.com/arashthr/shelf/internal/types"
	"github.com/arashthr/shelf/web"
)

type UserService interface {
	Create(ctx context.Context, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

type SessionService interface {
	Create(ctx context.Context, userId types.UserId, ipAddress string) (*models.Session, error)
	User(ctx context.Context, token string) (*models.User, error)
	Delete(ctx context.Context, token string) error
}

type Users struct {
	Templates struct {
		New    web.Template
		SignIn web.Template
	}
	UserService    UserService
	SessionService SessionService
}

type authPageData struct {
	Title string
	Email string
}

func (u Users) New(w http.ResponseWriter, r *http.Request) {
	u.Templates.New.Execute(w, r, authPageData{Title: "Sign Up", Email: r.FormValue("email")})
}

func (u Users) Create(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	data := authPageData{Title: "Sign Up", Email: r.FormValue("email")}

	user, err := u.UserService.Create(r.Context(), data.Email, r.FormValue("password"))
	if err != nil {
		if errors.Is(err, errors.ErrEmailTaken) {
			err = errors.Public(err, "That email address is already taken")
		}
		logger.Infow("sign up failed", "error", err)
		u.Templates.New.Execute(w, r, data, web.NavbarMessage{
			Message: errors.PublicMessage(err, "Something went wrong"),
			IsError: true,
		})
		return
	}

	session, err := u.SessionService.Create(r.Context(), user.ID, ratelimit.GetClientIP(r))
	if err != nil {
		logger.Errorw("create session after sign up", "error", err)
		u.Templates.New.Execute(w, r, data, web.NavbarMessage{
			Message: "Creating session failed",
			IsError: true,
		})
		return
	}
	setCookie(w, CookieSession, session.Token)
	logger.Infow("create user success", "user", user.ID)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (u Users) SignIn(w http.ResponseWriter, r *http.Request) {
	u.Templates.SignIn.Execute(w, r, authPageData{Title: "Sign In", Email: r.FormValue("email")})
}

func (u Users) ProcessSignIn(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	data := authPageData{Title: "Sign In", Email: r.FormValue("email")}

	user, err := u.UserService.Authenticate(r.Context(), data.Email, r.FormValue("password"))
	if err != nil {
		logger.Infow("sign in failed", "error", err)
		u.Templates.SignIn.Execute(w, r, data, web.NavbarMessage{
			Message: "Email address or password is incorrect",
			IsError: true,
		})
		return
	}
	session, err := u.SessionService.Create(r.Context(), user.ID, ratelimit.GetClientIP(r))
	if err != nil {
		logger.Errorw("sign in process failed", "error", err)
		http.Error(w, "Sign in process failed", http.StatusInternalServerError)
		return
	}
	setCookie(w, CookieSession, session.Token)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (u Users) ProcessSignOut(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	token, err := readCookie(r, CookieSession)
	if err != nil {
		http.Redirect(w, r, "/signin", http.StatusFound)
		return
	}
	if err := u.SessionService.Delete(r.Context(), token); err != nil {
		logger.Errorw("sign out failed", "error", err)
		http.Error(w, "Sign out failed", http.StatusInternalServerError)
		return
	}
	deleteCookie(w, CookieSession)
	http.Redirect(w, r, "/signin", http.StatusFound)
}

type UserMiddleware struct {
	SessionService SessionService
}

func (umw UserMiddleware) SetUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := readCookie(r, CookieSession)
		if err != nil || token == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, err := umw.SessionService.User(r.Context(), token)
		if err != nil {
			if !errors.Is(err, errors.ErrNotFound) {
				loggercontext.Logger(r.Context()).Errorw("look up session", "error", err)
			}
			next.ServeHTTP(w, r)
			return
		}
		ctx := usercontext.WithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (umw UserMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if usercontext.User(r.Context()) == nil {
			http.Redirect(w, r, "/signin", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
