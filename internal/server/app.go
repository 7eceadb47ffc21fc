// Package server initializes and runs the famvault server: database and
// migrations, the bootstrap admin account, the HTTP API, and the periodic
// cleanup of expired revocation entries.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mpopescu/famvault/internal/cryptox"
	"github.com/mpopescu/famvault/internal/logging"
	"github.com/mpopescu/famvault/internal/server/config"
	"github.com/mpopescu/famvault/internal/server/repositories/repomanager"
	"github.com/mpopescu/famvault/internal/server/rest"
	"github.com/mpopescu/famvault/internal/server/services"
)

// purgeInterval is how often expired revocation entries are swept.
const purgeInterval = time.Hour

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	sessionService *services.SessionService
	mediaService   *services.MediaService
}

func NewApp(c *config.Config) (*App, error) {
	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	cipher, err := cryptox.NewSearchableCipher([]byte(c.EncryptionKey), []byte(c.EncryptionIV))
	if err != nil {
		return nil, fmt.Errorf("cipher init error: %w", err)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager(cipher)

	ss := services.NewSessionService(db, m, c)
	ms := services.NewMediaService(db, m, c)

	ctx := context.Background()
	if err := m.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}
	if err := ss.EnsureBootstrapAdmin(ctx, c.AdminUsername, c.AdminPassword); err != nil {
		return nil, fmt.Errorf("bootstrap error: %w", err)
	}

	return &App{config: c, logger: logger, db: db, sessionService: ss, mediaService: ms}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	handler := rest.NewHandler(app.sessionService, app.mediaService, app.logger)
	router := rest.NewRouter(handler)

	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: rest.CORSHandler(router, app.config.AllowedOrigins()),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "http server listening", "addr", app.config.EndpointAddrHTTP)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		app.logger.Error(ctx, "http server error", "error", err)
		cancelFunc()
	}
}

// runRevocationPurge periodically removes revocation entries whose retention
// window has passed.
func (app *App) runRevocationPurge(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := app.sessionService.PurgeRevoked(ctx)
			if err != nil {
				app.logger.Error(ctx, "revocation purge error", "error", err)
				continue
			}
			if removed > 0 {
				app.logger.Info(ctx, "revocation purge", "removed", removed)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runRevocationPurge(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
