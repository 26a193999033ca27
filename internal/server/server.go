// Package server wires the identity service together: database, stores,
// auth services, and the HTTP listener.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	_ "github.com/lib/pq"

	auditpg "github.com/tradevault/identity/pkg/audit/postgres"
	"github.com/tradevault/identity/pkg/authkey"
	authkeypg "github.com/tradevault/identity/pkg/authkey/postgres"
	"github.com/tradevault/identity/pkg/authn"
	"github.com/tradevault/identity/pkg/config"
	"github.com/tradevault/identity/pkg/database/migrate"
	"github.com/tradevault/identity/pkg/health"
	"github.com/tradevault/identity/pkg/httpapi"
	"github.com/tradevault/identity/pkg/ratelimit"
	"github.com/tradevault/identity/pkg/realtime"
	sessionpg "github.com/tradevault/identity/pkg/session/postgres"
	"github.com/tradevault/identity/pkg/token"
	"github.com/tradevault/identity/pkg/twofactor"
	userpg "github.com/tradevault/identity/pkg/user/postgres"
)

// Version is set at build time.
var Version = "dev"

// Server is the assembled identity service.
type Server struct {
	cfg      *config.Config
	db       *sql.DB
	httpSrv  *http.Server
	limiter  *ratelimit.Limiter
	sessions *sessionpg.Store
	auditLog *auditpg.Store
	checker  *health.Checker
}

// New builds the service from configuration: opens the database, applies
// migrations, and wires every component behind the HTTP handler.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := migrate.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	codec, err := token.NewCodec(token.Config{
		Secret:       []byte(cfg.Auth.Secret),
		LifetimeDays: cfg.Auth.LifetimeDays,
		Issuer:       cfg.Auth.Issuer,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating token codec: %w", err)
	}

	cookieName := cfg.Auth.CookieName
	if cookieName == "" {
		cookieName = token.DefaultCookieName
	}
	jar := token.NewCookieJar(cookieName, codec.Lifetime(), cfg.Auth.SecureCookies)

	users := userpg.New(db)
	sessions := sessionpg.New(db)
	sessions.StartCleanupRoutine(cfg.Sessions.CleanupInterval)

	auditLog := auditpg.New(db, auditpg.Config{RetentionDays: cfg.Audit.RetentionDays})
	auditLog.StartCleanupRoutine(cfg.Audit.CleanupInterval)

	limiter := ratelimit.New()
	limiter.StartCleanup(cfg.RateLimit.CleanupInterval)

	resolver := authn.NewResolver(codec, jar, sessions)
	guard := authn.NewGuard(resolver, users)
	bridge := realtime.NewBridge(cfg.Realtime.SocketURL)
	promotion := twofactor.NewPromotion(
		twofactor.NewTOTPVerifier(users), codec, sessions, users, bridge)
	keys := authkey.NewService(authkeypg.New(db), cfg.AuthKeys.TTL)

	api := httpapi.NewHandler(httpapi.Deps{
		Codec:     codec,
		Jar:       jar,
		Resolver:  resolver,
		Guard:     guard,
		Users:     users,
		Sessions:  sessions,
		Keys:      keys,
		Promotion: promotion,
		Bridge:    bridge,
		Limiter:   limiter,
		Audit:     auditLog,
	}, httpapi.Config{
		LoginLimit:      cfg.RateLimit.Login.Limit,
		LoginWindow:     cfg.RateLimit.Login.Window,
		TwoFactorLimit:  cfg.RateLimit.TwoFactor.Limit,
		TwoFactorWindow: cfg.RateLimit.TwoFactor.Window,
	})

	checker := health.NewChecker()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", checker.LivenessHandler())
	mux.HandleFunc("GET /readyz", checker.ReadinessHandler())
	mux.Handle("/", api)

	return &Server{
		cfg: cfg,
		db:  db,
		httpSrv: &http.Server{
			Addr:         cfg.Server.Address,
			Handler:      mux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		limiter:  limiter,
		sessions: sessions,
		auditLog: auditLog,
		checker:  checker,
	}, nil
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("identity service listening",
			"address", s.httpSrv.Addr,
			"version", Version,
			"tls", s.cfg.Server.TLS.Enabled,
		)

		var err error
		if s.cfg.Server.TLS.Enabled {
			err = s.httpSrv.ListenAndServeTLS(s.cfg.Server.TLS.CertFile, s.cfg.Server.TLS.KeyFile)
		} else {
			err = s.httpSrv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.checker.SetReady()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	s.checker.SetDraining()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// Close releases background routines and the database.
func (s *Server) Close() error {
	var errs []error

	s.limiter.Stop()
	if err := s.sessions.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.auditLog.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing server: %v", errs)
	}
	return nil
}
