package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"AuthPortalwebserver/internal/auth"
	"AuthPortalwebserver/internal/config"
	"AuthPortalwebserver/internal/domain"
	"AuthPortalwebserver/internal/email"
	"AuthPortalwebserver/internal/httpapi"
	"AuthPortalwebserver/internal/metrics"
	"AuthPortalwebserver/internal/service"
	"AuthPortalwebserver/internal/store/memory"
	"AuthPortalwebserver/internal/store/postgres"
)

const purgeInterval = time.Hour

type stores struct {
	users       service.UsersStore
	profiles    service.ProfileStore
	adminUsers  service.AdminUsersStore
	directory   service.AdminDirectory
	tokens      service.TokensStore
	revocations service.SessionRevocationStore
	posts       service.PostsStore
	resetUsers  service.ResetUsersStore
	verifyUsers service.VerificationUsersStore
	ping        func(context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st stores
	if cfg.DBDSN != "" {
		if cfg.MigrateOnStart {
			if err := postgres.Migrate(cfg.DBDSN); err != nil {
				logger.Error("db migrate failed", "err", err)
				os.Exit(1)
			}
			logger.Info("db migrations applied")
		}

		pgPool, err := postgres.Open(ctx, cfg.DBDSN)
		if err != nil {
			logger.Error("db open failed", "err", err)
			os.Exit(1)
		}
		defer pgPool.Close()

		users := postgres.NewUsersStore(pgPool)
		st = stores{
			users:       users,
			profiles:    users,
			adminUsers:  users,
			directory:   postgres.NewAdminDirectory(pgPool),
			tokens:      postgres.NewTokensStore(pgPool),
			revocations: postgres.NewRevocationsStore(pgPool),
			posts:       postgres.NewPostsStore(pgPool),
			resetUsers:  users,
			verifyUsers: users,
			ping:        pgPool.Ping,
		}
	} else {
		logger.Warn("APP_DB_DSN not set, using in-memory store; data is lost on restart")
		mem := memory.New()
		st = stores{
			users:       mem,
			profiles:    mem,
			adminUsers:  mem,
			directory:   mem,
			tokens:      mem,
			revocations: mem,
			posts:       mem,
			resetUsers:  mem,
			verifyUsers: mem,
			ping:        mem.Ping,
		}
	}

	if err := bootstrapAdminUser(ctx, logger, st.users, cfg.AdminBootstrapEmail, cfg.AdminBootstrapName, cfg.AdminBootstrapPassword); err != nil {
		logger.Error("bootstrap admin failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	var mailer email.Mailer = &email.LogMailer{Logger: logger}
	if cfg.SMTP.Configured() {
		mailer = &email.SMTPMailer{Settings: cfg.SMTP}
		logger.Info("smtp enabled", "host", cfg.SMTP.Host, "port", cfg.SMTP.Port)
	} else {
		logger.Info("smtp disabled, emails are logged")
	}
	mail := &service.EmailService{Mailer: mailer, PublicURL: cfg.BaseURL(), Metrics: rec}

	tokens := &service.TokenService{Store: st.tokens, Users: st.users, Metrics: rec}
	authSvc := &service.AuthService{
		Users:       st.users,
		Tokens:      tokens,
		Mail:        mail,
		Revocations: st.revocations,
		SessionTTL:  cfg.SessionTTL,
		Logger:      logger,
		Metrics:     rec,
	}

	var idTokens *auth.IDTokenVerifier
	if cfg.GoogleClientID != "" || cfg.AppleServiceID != "" {
		idTokens = &auth.IDTokenVerifier{GoogleClientID: cfg.GoogleClientID, AppleServiceID: cfg.AppleServiceID}
	}
	var github *auth.GitHubOAuth
	if cfg.GitHubClientID != "" {
		github = auth.NewGitHubOAuth(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.BaseURL().JoinPath("/api/auth/github/callback").String())
	}

	secret := cfg.SessionSecret
	if secret == "" {
		secret = ephemeralSecret()
		logger.Warn("APP_SESSION_SECRET not set, sessions will not survive a restart")
	}

	apiRouter := httpapi.NewRouter(httpapi.RouterOpts{
		Logger:             logger,
		IsProd:             cfg.IsProd(),
		DBPing:             st.ping,
		Auth:               authSvc,
		Resets:             &service.PasswordResetService{Tokens: tokens, Users: st.resetUsers, Mail: mail},
		Verification:       &service.VerificationService{Tokens: tokens, Users: st.verifyUsers, Mail: mail},
		Profile:            &service.ProfileService{Store: st.profiles},
		Admin:              &service.AdminService{Directory: st.directory, Users: st.adminUsers},
		Posts:              &service.PostService{Store: st.posts},
		Codec:              auth.NewSessionCodec([]byte(secret)),
		CookieSecure:       cfg.CookieSecure(),
		SessionTTL:         cfg.SessionTTL,
		IDTokens:           idTokens,
		GitHub:             github,
		Metrics:            rec,
		MetricsHandler:     metrics.Handler(reg),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AcceptedFloor:      cfg.AcceptedFloor,
	})

	go runPurger(ctx, logger, authSvc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiRouter,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr, "db_enabled", cfg.DBDSN != "")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

// runPurger drops expired tokens and revocations at startup and then every
// purgeInterval until ctx is done.
func runPurger(ctx context.Context, logger *slog.Logger, authSvc *service.AuthService) {
	purge := func() {
		if err := authSvc.PurgeExpired(ctx); err != nil && ctx.Err() == nil {
			logger.Error("purge expired failed", "err", err)
		}
	}
	purge()

	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			purge()
		}
	}
}

type bootstrapUsers interface {
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
	CreateUser(ctx context.Context, nu domain.NewUser) (domain.User, error)
}

func bootstrapAdminUser(ctx context.Context, logger *slog.Logger, users bootstrapUsers, email, name, password string) error {
	if password == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(password) < 12 {
		return errors.New("APP_ADMIN_BOOTSTRAP_PASSWORD: must be at least 12 characters")
	}
	if email == "" || name == "" {
		return errors.New("admin bootstrap: email and name are required")
	}

	_, err := users.GetUserByEmail(ctx, email)
	if err == nil {
		logger.Info("admin bootstrap: user already exists", "email", email)
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("admin bootstrap: lookup user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("admin bootstrap: hash password: %w", err)
	}

	now := time.Now()
	_, err = users.CreateUser(ctx, domain.NewUser{
		Email:         email,
		Name:          name,
		PasswordHash:  hash,
		Role:          domain.RoleAdmin,
		EmailVerified: &now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyInUse) {
			logger.Info("admin bootstrap: user already exists", "email", email)
			return nil
		}
		return fmt.Errorf("admin bootstrap: create user: %w", err)
	}

	logger.Info("admin bootstrap: created admin user", "email", email)
	return nil
}

func ephemeralSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
