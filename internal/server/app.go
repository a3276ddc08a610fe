// Package server wires keygate's components together and runs the gRPC and
// ops HTTP servers until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/keygate/internal/logging"
	"github.com/dmitrijs2005/keygate/internal/server/archive"
	"github.com/dmitrijs2005/keygate/internal/server/auth"
	"github.com/dmitrijs2005/keygate/internal/server/config"
	"github.com/dmitrijs2005/keygate/internal/server/entitlement"
	"github.com/dmitrijs2005/keygate/internal/server/metrics"
	"github.com/dmitrijs2005/keygate/internal/server/ops"
	"github.com/dmitrijs2005/keygate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/keygate/internal/server/services"

	gs "github.com/dmitrijs2005/keygate/internal/server/grpc"
)

type App struct {
	config             *config.Config
	logger             logging.Logger
	db                 *sql.DB
	metrics            *metrics.Metrics
	authService        *services.AuthService
	entitlementService *services.EntitlementService
	adminService       *services.AdminService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(c.LogLevel, c.LogFormat, os.Stdout)

	loc, err := c.Location()
	if err != nil {
		return nil, err
	}

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	var archiver services.Archiver
	if c.ArchiveEnabled() {
		a, err := archive.NewS3Archiver(ctx, c)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("archive init error: %w", err)
		}
		archiver = a
	}

	mx := metrics.New()
	clock := services.SystemClock{}

	as := services.NewAuthService(db, rm, auth.NewBcryptHasher(c.BcryptCost), clock, c, logger, mx)
	es := services.NewEntitlementService(db, rm, entitlement.NewEngine(loc), clock, logger, mx)
	ad := services.NewAdminService(db, rm, clock, c, archiver, logger, mx)

	if c.AdminToken == "" {
		logger.Warn(ctx, "admin token not configured, admin API disabled")
	}

	return &App{
		config:             c,
		logger:             logger,
		db:                 db,
		metrics:            mx,
		authService:        as,
		entitlementService: es,
		adminService:       ad,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config, app.logger, app.metrics, app.authService, app.entitlementService, app.adminService)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startOpsServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := ops.NewHTTPServer(app.config.EndpointAddrHTTP, app.db, app.metrics, app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startOpsServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close error", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
