package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/arashthr/shelf/internal/auth"
	"github.com/arashthr/shelf/internal/auth/context/loggercontext"
	"github.com/arashthr/shelf/internal/auth/context/usercontext"
	"github.com/arashthr/shelf/internal/config"
	"github.com/arashthr/shelf/internal/db"
	"github.com/arashthr/shelf/internal/library"
	"github.com/arashthr/shelf/internal/logging"
	"github.com/arashthr/shelf/internal/metadata"
	"github.com/arashthr/shelf/internal/models"
	"github.com/arashthr/shelf/internal/ratelimit"
	"github.com/arashthr/shelf/internal/service"
	"github.com/arashthr/shelf/internal/speech"
	"github.com/arashthr/shelf/internal/summary"
	"github.com/arashthr/shelf/web"
	"github.com/arashthr/shelf/web/views"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionCleanupInterval = time.Hour

func setupDb(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PgConnectionString()); err != nil {
		return nil, fmt.Errorf("migrating db: %w", err)
	}

	pool, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to db: %w", err)
	}
	return pool, nil
}

func main() {
	cfg, err := config.LoadEnvConfig()
	if err != nil {
		panic(err)
	}

	logging.Init(cfg)
	defer logging.Sync()

	if err := run(cfg); err != nil {
		logging.Logger.Errorw("server stopped", "error", err)
		os.Exit(1)
	}
}

// newLimiter uses Redis when an address is configured so the budget is
// shared between instances, and an in-process window otherwise.
func newLimiter(ctx context.Context, cfg config.RateLimitConfig) (ratelimit.Limiter, func(), error) {
	if cfg.Redis.Addr == "" {
		rl := ratelimit.NewRateLimiter(cfg.EnrichmentsPerHour, cfg.Window())
		return rl, rl.Stop, nil
	}
	client, err := ratelimit.Connect(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	rl := &ratelimit.RedisLimiter{Client: client, Limit: cfg.EnrichmentsPerHour, Window: cfg.Window()}
	return rl, func() { client.Close() }, nil
}

func run(cfg *config.AppConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := setupDb(ctx, cfg.PSQL)
	if err != nil {
		return err
	}
	defer pool.Close()

	httpClient := &http.Client{Timeout: 30 * time.Second}

	summarizer, err := summary.FromConfig(ctx, cfg.Summary, httpClient)
	if err != nil {
		return err
	}
	tts := speech.NewElevenLabs(httpClient, cfg.Speech.APIKey)
	tts.BaseURL = cfg.Speech.BaseURL
	tts.VoiceID = cfg.Speech.VoiceID

	limiter, closeLimiter, err := newLimiter(ctx, cfg.RateLimit)
	if err != nil {
		return err
	}
	defer closeLimiter()

	// Services
	userService := &models.UserModel{
		Pool: pool,
	}
	sessionService := &models.SessionService{
		Pool: pool,
	}
	lib := &library.Library{
		Store:      &models.BookmarkModel{Pool: pool},
		Fetcher:    metadata.NewFetcher(nil),
		Summarizer: summarizer,
		Speech:     tts,
		MaxWords:   cfg.Summary.MaxWords,
	}

	go cleanupSessions(ctx, sessionService)

	// Middlewares
	umw := auth.UserMiddleware{
		SessionService: sessionService,
	}
	csrfMw := csrf.Protect(
		[]byte(cfg.CSRF.Key),
		csrf.Secure(cfg.CSRF.Secure),
		csrf.Path("/"),
	)
	enrichmentLimit := ratelimit.Middleware(limiter, func(r *http.Request) string {
		return "enrich:" + strconv.Itoa(int(usercontext.User(r.Context()).ID))
	})

	// Controllers
	usersController := auth.Users{
		UserService:    userService,
		SessionService: sessionService,
	}
	usersController.Templates.New = views.Must(views.ParseTemplate("signup.gohtml", "tailwind.gohtml"))
	usersController.Templates.SignIn = views.Must(views.ParseTemplate("signin.gohtml", "tailwind.gohtml"))

	bookmarksController := service.Bookmarks{
		Library: lib,
	}
	bookmarksController.Templates.Index = views.Must(views.ParseTemplate("bookmarks/index.gohtml", "tailwind.gohtml"))
	bookmarksController.Templates.New = views.Must(views.ParseTemplate("bookmarks/new.gohtml", "tailwind.gohtml"))
	bookmarksController.Templates.Show = views.Must(views.ParseTemplate("bookmarks/show.gohtml", "tailwind.gohtml"))

	notFound := web.NotFound(views.Must(views.ParseTemplate("not-found.gohtml", "tailwind.gohtml")))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthCheck(pool))

	// Web routes
	r.Group(func(r chi.Router) {
		r.Use(csrfMw)
		r.Use(umw.SetUser)
		r.Use(LoggerMiddleware)

		r.Get("/signup", usersController.New)
		r.Post("/signup", usersController.Create)
		r.Get("/signin", usersController.SignIn)
		r.Post("/signin", usersController.ProcessSignIn)
		r.Post("/signout", usersController.ProcessSignOut)

		r.Group(func(r chi.Router) {
			r.Use(umw.RequireUser)
			r.Get("/", bookmarksController.Index)
			r.Post("/folders", bookmarksController.CreateFolder)
			r.Route("/bookmarks", func(r chi.Router) {
				r.Get("/new", bookmarksController.New)
				r.Post("/", bookmarksController.Create)
				r.Get("/{id}", bookmarksController.Show)
				r.Post("/{id}", bookmarksController.Update)
				r.Group(func(r chi.Router) {
					r.Use(enrichmentLimit)
					r.Post("/{id}/generate-summary", bookmarksController.GenerateSummary)
					r.Post("/{id}/text-to-speech", bookmarksController.TextToSpeech)
				})
			})
		})
	})
	r.NotFound(csrfMw(umw.SetUser(LoggerMiddleware(notFound))).ServeHTTP)

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logging.Logger.Infow("starting server", "address", cfg.Server.Address, "summary_provider", cfg.Summary.Provider)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logging.Logger.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func cleanupSessions(ctx context.Context, sessions *models.SessionService) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sessions.CleanupExpiredSessions(ctx); err != nil {
				logging.Logger.Errorw("cleanup expired sessions", "error", err)
			}
		}
	}
}

func healthCheck(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			logging.Logger.Errorw("health check", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}
}

func LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t1 := time.Now()
		ctx := r.Context()
		reqLogger := logging.Logger.With(
			"req_path", r.URL.Path,
			"req_method", r.Method,
			"req_id", middleware.GetReqID(ctx),
		)

		if user := usercontext.User(ctx); user != nil {
			reqLogger = reqLogger.With("user", user.ID)
		}
		ctx = loggercontext.WithLogger(ctx, reqLogger)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			reqLogger.Debugw("http request", "from", r.RemoteAddr, "status", ww.Status(), "size", ww.BytesWritten(), "duration", time.Since(t1))
		}()

		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}
