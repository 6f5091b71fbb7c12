package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"AuthPortalwebserver/internal/auth"
	"AuthPortalwebserver/internal/metrics"
	"AuthPortalwebserver/internal/service"
)

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	DBPing func(context.Context) error

	Auth         *service.AuthService
	Resets       *service.PasswordResetService
	Verification *service.VerificationService
	Profile      *service.ProfileService
	Admin        *service.AdminService
	Posts        *service.PostService

	Codec        auth.SessionCodec
	CookieSecure bool
	SessionTTL   time.Duration

	IDTokens *auth.IDTokenVerifier
	GitHub   *auth.GitHubOAuth

	Metrics        metrics.Recorder
	MetricsHandler http.Handler

	// RateLimitPerMinute caps POSTs under /auth per client IP; 0 disables.
	RateLimitPerMinute int

	// AcceptedFloor is the minimum time the reset and resend endpoints take
	// to answer.
	AcceptedFloor time.Duration
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = auth.DefaultSessionTTL
	}

	a := &api{
		logger:        logger,
		isProd:        opts.IsProd,
		dbPing:        opts.DBPing,
		authSvc:       opts.Auth,
		resetSvc:      opts.Resets,
		verifySvc:     opts.Verification,
		profileSvc:    opts.Profile,
		adminSvc:      opts.Admin,
		postSvc:       opts.Posts,
		codec:         opts.Codec,
		cookieSecure:  opts.CookieSecure,
		sessionTTL:    opts.SessionTTL,
		idTokens:      opts.IDTokens,
		github:        opts.GitHub,
		metrics:       metrics.OrNop(opts.Metrics),
		loginLimiter:  newLoginLimiter(10, 5*time.Minute),
		formRateLimit: newIPRateLimiter(opts.RateLimitPerMinute),
		acceptedFloor: opts.AcceptedFloor,
	}

	r := chi.NewRouter()
	r.Use(RequestID())
	r.Use(RequestLogger(logger, a.metrics))
	r.Use(Recoverer(logger, opts.IsProd))
	r.Use(a.loadSession)
	r.Use(a.enforceGate)

	r.Get("/healthz", a.handleHealthz)
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(a.formRateLimit.Middleware(logger))
		r.Post("/signin", a.handleSignIn)
		r.Post("/two-factor", a.handleTwoFactor)
		r.Post("/signup", a.handleSignUp)
		r.Post("/reset-password", a.handleResetPassword)
		r.Post("/new-password", a.handleNewPassword)
		r.Post("/verify-email", a.handleVerifyEmail)
		r.Post("/verify-email/resend", a.handleResendVerification)
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signout", a.handleSignOut)
		r.Get("/session", a.handleSession)
		r.Post("/google", a.handleGoogle)
		r.Post("/apple", a.handleApple)
		r.Get("/github/login", a.handleGitHubLogin)
		r.Get("/github/callback", a.handleGitHubCallback)
	})

	r.Get("/dashboard", a.requireSession(a.handleDashboard))
	r.Route("/profile", func(r chi.Router) {
		r.Get("/", a.requireSession(a.handleProfile))
		r.Patch("/", a.requireSession(a.handleProfileUpdate))
		r.Post("/password", a.requireSession(a.handleProfilePassword))
		r.Post("/two-factor", a.requireSession(a.handleProfileTwoFactor))
	})
	r.Get("/api/protected", a.requireSession(a.handleProtected))
	r.Post("/api/protected", a.requireSession(a.handleProtected))

	r.Get("/posts", a.handlePostsList)
	r.Get("/posts/{id}", a.handlePostGet)
	r.Post("/posts/{id}/moderate", a.requireSession(a.handlePostModerate))
	r.Route("/user/posts", func(r chi.Router) {
		r.Get("/", a.requireSession(a.handleMyPosts))
		r.Post("/", a.requireSession(a.handlePostCreate))
		r.Patch("/{id}", a.requireSession(a.handlePostUpdate))
		r.Delete("/{id}", a.requireSession(a.handlePostDelete))
	})

	r.Get("/admin", a.requireSession(a.handleAdminDashboard))
	r.Route("/api/admin/users", func(r chi.Router) {
		r.Get("/", a.requireSession(a.handleAdminUsers))
		r.Patch("/", a.requireSession(a.handleAdminUserRoleBody))
		r.Patch("/{id}/role", a.requireSession(a.handleAdminUserRole))
		r.Delete("/{id}", a.requireSession(a.handleAdminUserDelete))
	})

	r.NotFound(handleNotFound)
	r.MethodNotAllowed(handleMethodNotAllowed)
	return r
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, "not_found", "not found")
}

func handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}

type api struct {
	logger *slog.Logger
	isProd bool

	dbPing func(context.Context) error

	authSvc    *service.AuthService
	resetSvc   *service.PasswordResetService
	verifySvc  *service.VerificationService
	profileSvc *service.ProfileService
	adminSvc   *service.AdminService
	postSvc    *service.PostService

	codec        auth.SessionCodec
	cookieSecure bool
	sessionTTL   time.Duration

	idTokens *auth.IDTokenVerifier
	github   *auth.GitHubOAuth

	metrics metrics.Recorder

	loginLimiter  *loginLimiter
	formRateLimit *ipRateLimiter
	acceptedFloor time.Duration
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}
