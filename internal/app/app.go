package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	_ "secureauth/docs"
	"secureauth/internal/auth"
	"secureauth/internal/config"
	"secureauth/internal/database"
	"secureauth/internal/handlers"
	"secureauth/internal/logger"
	"secureauth/internal/middleware"
	"secureauth/internal/repositories"
	"secureauth/internal/routes"
	"secureauth/internal/services"
)

const (
	readTimeout  = 15 * time.Second
	writeTimeout = services.SMTPSendDeadline + 5*time.Second // ответ ждёт отправку письма
	idleTimeout  = 60 * time.Second
)

type App struct {
	cfg     *config.Config
	db      *sql.DB
	handler http.Handler
	server  *http.Server
}

// New собирает зависимости. Для postgres создаёт схему с ретраями.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	a := &App{cfg: cfg}

	// === Store ===
	var repo repositories.AccountRepository
	switch cfg.Database.Driver {
	case config.DriverMemory:
		log.Warn().Msg("[app][db] using in-memory store, data is lost on restart")
		repo = repositories.NewMemoryAccountRepository()
	default:
		db, err := database.Open(database.PoolConfig{
			URL:            cfg.Database.URL,
			MaxOpenConns:   cfg.Database.MaxOpenConns,
			IdleTimeout:    cfg.Database.IdleTimeout,
			ConnectTimeout: cfg.Database.ConnectTimeout,
		})
		if err != nil {
			return nil, err
		}
		if err := repositories.EnsureSchema(ctx, db, cfg.Database.InitAttempts, cfg.Database.InitRetryDelay); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		repo = repositories.NewAccountRepository(db)
	}

	// === Services ===
	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, auth.WithTTL(cfg.Auth.TokenTTL))
	if err != nil {
		return nil, err
	}
	authService := services.NewAuthService(
		repo,
		auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		auth.NewOTPGenerator(),
		tokens,
		newDispatcher(cfg),
		services.WithChallengeTTL(cfg.Auth.OTPTTL),
		services.WithStrictTokenScope(cfg.Auth.StrictTokenScope),
	)

	// === Gin ===
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.Origins()))

	routes.SetupRoutes(
		router,
		tokens,
		handlers.NewAuthHandler(authService),
		handlers.NewVerifyHandler(authService),
		handlers.NewHealthHandler(cfg.Server.Environment),
	)

	a.handler = router
	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	return a, nil
}

func newDispatcher(cfg *config.Config) services.ChallengeDispatcher {
	switch cfg.Email.Provider {
	case config.ProviderSendGrid:
		return services.NewSendGridDispatcher(cfg.Email.SendGridAPIKey, cfg.Email.FromEmail, cfg.Auth.OTPTTL)
	case config.ProviderLog:
		log.Warn().Msg("[app][email] log provider: verification codes go to the log")
		return services.NewLogDispatcher()
	default:
		return services.NewSMTPDispatcher(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.SMTPUser,
			cfg.Email.SMTPPassword,
			cfg.Email.FromEmail,
			cfg.Auth.OTPTTL,
		)
	}
}

func (a *App) Handler() http.Handler { return a.handler }

// Serve слушает до отмены ctx, затем делает graceful shutdown и закрывает пул.
func (a *App) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", a.server.Addr).
			Str("environment", a.cfg.Server.Environment).
			Msg("[app][http] server started")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case err := <-errCh:
		serveErr = errors.Wrap(err, "listen")
	case <-ctx.Done():
		log.Info().Msg("[app][http] shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			serveErr = errors.Wrap(err, "shutdown")
		}
	}

	if err := a.Close(); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return errors.Wrap(err, "close db")
}

// Run: точка входа для cmd/secureauth.
func Run() {
	cfg := config.LoadConfig()
	if err := logger.Setup(cfg.Logger.Level, cfg.Logger.Encoder, nil); err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("[app][init] failed to start")
	}
	if err := a.Serve(ctx); err != nil {
		log.Fatal().Err(err).Msg("[app][http] server stopped with error")
	}
	log.Info().Msg("[app][http] server stopped")
}
