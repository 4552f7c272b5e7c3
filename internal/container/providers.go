package container

import (
	"context"
	"fmt"

	"github.com/garyjia/club-approvals/internal/application/dispatcher"
	"github.com/garyjia/club-approvals/internal/application/port"
	"github.com/garyjia/club-approvals/internal/application/service"
	"github.com/garyjia/club-approvals/internal/domain/approval"
	"github.com/garyjia/club-approvals/internal/infrastructure/identity"
	"github.com/garyjia/club-approvals/internal/infrastructure/persistence/memory"
	"github.com/garyjia/club-approvals/internal/infrastructure/persistence/postgres"
	"github.com/garyjia/club-approvals/internal/infrastructure/persistence/repository"
	"github.com/garyjia/club-approvals/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/club-approvals/internal/infrastructure/report"
	"github.com/garyjia/club-approvals/pkg/database"
	"go.uber.org/zap"
)

// StorageBundle holds the repositories of one storage driver and its lifecycle hooks.
type StorageBundle struct {
	Driver    string
	Entities  port.EntityRepository
	History   port.HistoryRepository
	TxManager port.TransactionManager

	ping  func(ctx context.Context) error
	close func() error
}

// Ping checks connectivity of the underlying store
func (b *StorageBundle) Ping(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

// Close releases the underlying store
func (b *StorageBundle) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// ProvideStorage opens the configured driver, applies its migrations and builds the repositories.
func ProvideStorage(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*StorageBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	switch cfg.Driver {
	case DriverSQLite:
		return provideSQLite(cfg, logger)
	case DriverPostgres:
		return providePostgres(ctx, cfg, logger)
	case DriverMemory:
		logger.Warn("Using in-memory storage; data is lost on restart")
		return &StorageBundle{
			Driver:    DriverMemory,
			Entities:  memory.NewEntityRepository(),
			History:   memory.NewHistoryRepository(),
			TxManager: memory.NewTxManager(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func provideSQLite(cfg *DatabaseConfig, logger *zap.Logger) (*StorageBundle, error) {
	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).Run(database.SQLiteMigrations()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	txDB := sqlite.NewDB(db.DB, logger)
	return &StorageBundle{
		Driver:    DriverSQLite,
		Entities:  repository.NewEntityRepository(txDB, logger),
		History:   repository.NewHistoryRepository(txDB, logger),
		TxManager: txDB,
		ping:      db.PingContext,
		close:     db.Close,
	}, nil
}

func providePostgres(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*StorageBundle, error) {
	pg, err := database.NewPostgres(ctx, database.PostgresConfig{
		DSN:             cfg.DSN,
		MaxConns:        int32(cfg.MaxOpenConns),
		MinConns:        int32(cfg.MaxIdleConns),
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.MigratePostgres(ctx, pg, database.PostgresMigrations(), logger); err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &StorageBundle{
		Driver:    DriverPostgres,
		Entities:  postgres.NewEntityRepository(pg, logger),
		History:   postgres.NewHistoryRepository(pg, logger),
		TxManager: postgres.NewTxManager(pg),
		ping:      pg.Ping,
		close:     pg.Close,
	}, nil
}

// ProvideRegistry builds the reviewer registry from configuration.
func ProvideRegistry(cfg *ApprovalConfig) (*approval.Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("approval config is required")
	}
	return approval.NewRegistry(cfg.Registry)
}

// ProvideIdentity creates the bearer-token resolver.
func ProvideIdentity(cfg *AuthConfig) (*identity.JWTResolver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("auth config is required")
	}
	return identity.NewJWTResolver(identity.Config{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.Issuer,
		TokenTTL: cfg.TokenTTL,
	})
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(NewLoggerAdapter(logger.Named("dispatcher"))),
	), nil
}

// ServiceDeps holds dependencies required for creating application services.
type ServiceDeps struct {
	Storage    *StorageBundle
	Registry   *approval.Registry
	Dispatcher dispatcher.Dispatcher
	Approval   ApprovalConfig
	Logger     *zap.Logger
}

// ProvideServices creates all application services and subscribes the history recorder.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := NewLoggerAdapter(deps.Logger.Named("service"))

	gates := deps.Approval.Gates
	if gates == nil {
		gates = service.DefaultGateConfig(deps.Registry)
	}

	history := service.NewHistoryRecorder(deps.Storage.History, serviceLogger)
	history.Register(deps.Dispatcher)

	gate := service.NewAccessGate(deps.Storage.Entities, gates, serviceLogger)

	return &ServiceBundle{
		Gate: gate,
		Decisions: service.NewDecisionRecorder(
			deps.Storage.Entities,
			deps.Registry,
			deps.Dispatcher,
			deps.Approval.Recorder,
			serviceLogger,
		),
		Reviews: service.NewReviewQueueService(deps.Storage.Entities, deps.Registry, serviceLogger),
		Submissions: service.NewSubmissionService(
			deps.Storage.Entities,
			deps.Storage.History,
			deps.Storage.TxManager,
			deps.Registry,
			gate,
			deps.Dispatcher,
			serviceLogger,
		),
		History: history,
	}, nil
}

// ProvideExporter creates the XLSX review exporter.
func ProvideExporter(cfg *ReportConfig, logger *zap.Logger) (port.ReviewExporter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("report config is required")
	}
	return report.NewExcelExporter(cfg.SheetName, logger.Named("report")), nil
}
