// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware, and
// routes, and decides:
//   - which URL patterns map to which handler functions
//   - which routes require a logged-in user (the Auth flag in the route table)
//   - which routes are rate limited
//   - how the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → New() opens sqlite.DB, picks the Mailer and Limiter
//	NewRouter()   → services (get repository interfaces)
//	              → handlers (get services)
//	              → routes
//
// This is the "composition root": all dependencies are wired here and
// nowhere else.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/config"
	"github.com/sakif/inkwell/internal/handler"
	"github.com/sakif/inkwell/internal/mail"
	"github.com/sakif/inkwell/internal/media"
	"github.com/sakif/inkwell/internal/middleware"
	"github.com/sakif/inkwell/internal/ratelimit"
	sqliteRepo "github.com/sakif/inkwell/internal/repository/sqlite"
	"github.com/sakif/inkwell/internal/service"
	"github.com/sakif/inkwell/internal/view"
	"github.com/sakif/inkwell/web"
)

// Deps are the external resources the router needs. New builds them from
// the config; tests build their own (in-memory DB, fake mailer).
type Deps struct {
	DB      *sqliteRepo.DB
	Mailer  mail.Mailer
	Limiter ratelimit.Limiter
	// Passwords defaults to auth.NewPasswordService(). Tests pass a
	// low-cost one.
	Passwords *auth.PasswordService
}

// Server represents the HTTP server and the resources it owns.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection and, when configured, the Redis
// client. Both are closed in Start() after the HTTP server has drained.
type Server struct {
	router http.Handler
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	redis  *redis.Client // nil when rate limiting is in-memory
}

// New opens the database and the optional Redis connection and builds the
// router.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{config: cfg, logger: logger, db: db}

	limiter, err := s.newLimiter()
	if err != nil {
		db.Close()
		return nil, err
	}

	router, err := NewRouter(cfg, Deps{
		DB:      db,
		Mailer:  newMailer(cfg, logger),
		Limiter: limiter,
	}, logger)
	if err != nil {
		s.closeResources()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	s.router = router

	return s, nil
}

// newMailer sends through SendGrid when an API key is configured and only
// logs messages otherwise.
func newMailer(cfg *config.Config, logger *slog.Logger) mail.Mailer {
	if cfg.SendGridAPIKey == "" {
		logger.Info("SENDGRID_API_KEY not set, shared posts are logged instead of emailed")
		return mail.NewLogMailer(logger)
	}
	return mail.NewSendGridMailer(cfg.SendGridAPIKey, "Inkwell", logger)
}

// newLimiter uses Redis when REDIS_URL is set, so every instance behind a
// load balancer shares one budget per client. Without it each process
// counts on its own.
func (s *Server) newLimiter() (ratelimit.Limiter, error) {
	if s.config.RedisURL == "" {
		s.logger.Info("REDIS_URL not set, rate limiting in memory")
		return ratelimit.NewMemoryLimiter(s.config.RateLimit, s.config.RateWindow), nil
	}

	opts, err := redis.ParseURL(s.config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
	}
	s.redis = redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		// The limiter fails open, so a Redis outage degrades to "no limit"
		// instead of taking the login form down.
		s.logger.Warn("redis unreachable at startup", slog.String("error", err.Error()))
	}
	return ratelimit.NewRedisLimiter(s.redis, s.config.RateLimit, s.config.RateWindow), nil
}

// route is one row of the route table.
type route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	// Auth routes redirect anonymous visitors to the login page.
	Auth bool
	// Limit names the rate limit bucket ("login"); "" means unlimited.
	Limit string
}

// NewRouter builds the complete HTTP handler.
//
// ROUTE STRUCTURE:
//
//	GET       /                        → redirect to /blog/
//	GET       /accounts/               → dashboard              [auth]
//	GET,POST  /accounts/register       → registration           [limited]
//	GET,POST  /accounts/login          → login                  [limited]
//	POST      /accounts/logout         → logout
//	GET,POST  /accounts/edit           → profile edit           [auth]
//	GET       /blog/                   → post list, 5 per page
//	GET       /blog/tag/{tagID}/       → posts by tag
//	GET,POST  /blog/create             → new post               [auth]
//	GET       /blog/{postID}/          → post detail
//	POST      /blog/{postID}/comment   → add comment
//	GET,POST  /blog/{postID}/update    → edit post              [auth]
//	GET,POST  /blog/{postID}/delete    → delete post            [auth]
//	GET,POST  /blog/{postID}/share     → share by email         [limited]
//	GET       /static/*, /media/*      → files
//	GET       /healthz, /metrics       → ops
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: assigns an ID to each request
//  2. RealIP: client IP from proxy headers (the rate limiter keys on it)
//  3. Logger + Metrics: wrap everything below, so they see the final status
//  4. Recoverer: turns panics into 500s
//  5. Authenticate: puts the session user ID on the context, if any
func NewRouter(cfg *config.Config, deps Deps, logger *slog.Logger) (http.Handler, error) {
	tokens, err := auth.NewTokenService(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}
	views, err := view.New(web.Templates(), logger)
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	store := media.NewStore(cfg.MediaDir)
	passwords := deps.Passwords
	if passwords == nil {
		passwords = auth.NewPasswordService()
	}

	// === SERVICES ===
	// sqlite.DB implements every repository interface; each service only
	// sees the ones it needs.
	accounts := service.NewAccountService(deps.DB, deps.DB, deps.DB, tokens, passwords, logger)
	posts := service.NewPostService(deps.DB, deps.DB, deps.DB, logger)
	shares := service.NewShareService(deps.Mailer, cfg.DefaultFromEmail, logger)

	// === HANDLERS ===
	accountHandler := handler.NewAccountHandler(views, accounts, store, logger)
	postHandler := handler.NewPostHandler(views, accounts, posts, logger)
	shareHandler := handler.NewShareHandler(views, accounts, posts, shares, cfg.BaseURL, logger)

	routes := []route{
		{Method: http.MethodGet, Pattern: "/accounts/", Handler: accountHandler.HandleDashboard, Auth: true},
		{Method: http.MethodGet, Pattern: "/accounts/register", Handler: accountHandler.HandleRegister},
		{Method: http.MethodPost, Pattern: "/accounts/register", Handler: accountHandler.HandleRegister, Limit: "register"},
		{Method: http.MethodGet, Pattern: "/accounts/login", Handler: accountHandler.HandleLogin},
		{Method: http.MethodPost, Pattern: "/accounts/login", Handler: accountHandler.HandleLogin, Limit: "login"},
		{Method: http.MethodPost, Pattern: "/accounts/logout", Handler: accountHandler.HandleLogout},
		{Method: http.MethodGet, Pattern: "/accounts/edit", Handler: accountHandler.HandleEdit, Auth: true},
		{Method: http.MethodPost, Pattern: "/accounts/edit", Handler: accountHandler.HandleEdit, Auth: true},

		{Method: http.MethodGet, Pattern: "/blog/", Handler: postHandler.HandleList},
		{Method: http.MethodGet, Pattern: "/blog/tag/{tagID}/", Handler: postHandler.HandleListByTag},
		{Method: http.MethodGet, Pattern: "/blog/create", Handler: postHandler.HandleCreate, Auth: true},
		{Method: http.MethodPost, Pattern: "/blog/create", Handler: postHandler.HandleCreate, Auth: true},
		{Method: http.MethodGet, Pattern: "/blog/{postID}/", Handler: postHandler.HandleDetail},
		{Method: http.MethodPost, Pattern: "/blog/{postID}/comment", Handler: postHandler.HandleComment},
		{Method: http.MethodGet, Pattern: "/blog/{postID}/update", Handler: postHandler.HandleUpdate, Auth: true},
		{Method: http.MethodPost, Pattern: "/blog/{postID}/update", Handler: postHandler.HandleUpdate, Auth: true},
		{Method: http.MethodGet, Pattern: "/blog/{postID}/delete", Handler: postHandler.HandleDelete, Auth: true},
		{Method: http.MethodPost, Pattern: "/blog/{postID}/delete", Handler: postHandler.HandleDelete, Auth: true},
		{Method: http.MethodGet, Pattern: "/blog/{postID}/share", Handler: shareHandler.HandleShare},
		{Method: http.MethodPost, Pattern: "/blog/{postID}/share", Handler: shareHandler.HandleShare, Limit: "share"},
	}

	r := chi.NewRouter()

	// === Global Middleware ===
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics)
	r.Use(chimiddleware.Recoverer)
	r.Use(auth.Authenticate(tokens))

	// === Files ===
	// GET /static/css/style.css → {StaticDir}/css/style.css
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))
	r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(store.Root()))))

	// === Ops ===
	r.Get("/healthz", healthz(deps.DB))
	r.Handle("/metrics", promhttp.Handler())

	// === Pages ===
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/blog/", http.StatusFound)
	})

	requireAuth := auth.RequireAuth(handler.LoginPath)
	for _, rt := range routes {
		var h http.Handler = rt.Handler
		if rt.Limit != "" {
			h = ratelimit.Middleware(deps.Limiter, rt.Limit, logger)(h)
		}
		if rt.Auth {
			h = requireAuth(h)
		}
		r.Method(rt.Method, rt.Pattern, h)
	}

	r.NotFound(postHandler.HandleNotFound)

	return r, nil
}

// healthz reports whether the database answers.
func healthz(db *sqliteRepo.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}

func (s *Server) closeResources() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("closing redis", slog.String("error", err.Error()))
		}
	}
	if err := s.db.Close(); err != nil {
		s.logger.Warn("closing database", slog.String("error", err.Error()))
	}
}

// Start runs the HTTP server until SIGINT/SIGTERM.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections
//  2. Wait up to 30s for in-flight requests to finish
//  3. Close Redis and the database (flushes the WAL, releases the file lock)
func (s *Server) Start() error {
	defer s.closeResources()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("env", s.config.Env),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
