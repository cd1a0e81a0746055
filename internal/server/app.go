// Package server initializes and runs the auth service: it opens the
// credential store, runs migrations, and serves HTTP, gRPC and metrics
// endpoints until a signal or a fatal listener error stops it.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/teamterraforge/tgmsauth/internal/common"
	"github.com/teamterraforge/tgmsauth/internal/logging"
	"github.com/teamterraforge/tgmsauth/internal/metrics"
	"github.com/teamterraforge/tgmsauth/internal/server/auth"
	"github.com/teamterraforge/tgmsauth/internal/server/config"
	"github.com/teamterraforge/tgmsauth/internal/server/httpapi"
	"github.com/teamterraforge/tgmsauth/internal/server/repositories/repomanager"
	"github.com/teamterraforge/tgmsauth/internal/server/services"
	"github.com/teamterraforge/tgmsauth/internal/telemetry"

	gs "github.com/teamterraforge/tgmsauth/internal/server/grpc"
)

const (
	serviceName       = "tgms-auth"
	dbPingTimeout     = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
	pipelines   map[string]*auth.Pipeline
}

// NewApp validates c, connects to PostgreSQL and migrates the schema. A bad
// signing secret fails here, before anything listens.
func NewApp(c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(c.LogLevel, c.LogFormat, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfig, err)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	return newApp(c, logger, db, rm)
}

// newApp wires the service graph on top of an already prepared store. db
// may be nil for the in-memory manager.
func newApp(c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) (*App, error) {
	codec, err := auth.NewCodec(c.SecretKey, c.MinSecretLength)
	if err != nil {
		return nil, err
	}

	us := services.NewUserService(db, rm, codec, c, logger)

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		userService: us,
		pipelines: map[string]*auth.Pipeline{
			"http": auth.NewPipeline(codec, us, logger, "http"),
			"grpc": auth.NewPipeline(codec, us, logger, "grpc"),
		},
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case sig := <-sigs:
			app.logger.Info(ctx, "Received signal", "signal", sig.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.pipelines["grpc"])

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "gRPC server error", "error", err)
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	h := httpapi.NewHandler(app.userService, app.pipelines["http"], app.logger, app.config.DefaultPhoneRegion)
	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           h.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "HTTP server error", "error", err)
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	_, errCh := metrics.StartServer(ctx, app.config.MetricsAddr, app.logger)
	if errCh == nil {
		return
	}
	select {
	case err := <-errCh:
		app.logger.Error(ctx, "metrics server error", "error", err)
		cancelFunc()
	case <-ctx.Done():
	}
}

// Run serves every endpoint until ctx is cancelled, a signal arrives or one
// listener fails, and then shuts everything down.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	shutdownTracing := telemetry.Setup(ctx, serviceName, app.config.OTLPEndpoint, app.config.OTLPInsecure, app.logger)

	var wg sync.WaitGroup

	for _, start := range []func(context.Context, context.CancelFunc){
		app.startHTTPServer,
		app.startGRPCServer,
		app.startMetricsServer,
	} {
		start := start
		wg.Add(1)
		go func() {
			defer wg.Done()
			start(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		app.logger.Warn(shutdownCtx, "tracing shutdown error", "error", err)
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn(shutdownCtx, "db close error", "error", err)
		}
	}

	app.logger.Info(shutdownCtx, "App stopped")
}
