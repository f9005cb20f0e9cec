package container

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/dispatcher"
	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/application/service"
	"github.com/garyjia/travel-approval/internal/application/workflow"
	"github.com/garyjia/travel-approval/internal/domain/policy"
	"github.com/garyjia/travel-approval/internal/domain/sla"
	"github.com/garyjia/travel-approval/internal/infrastructure/export"
	"github.com/garyjia/travel-approval/internal/infrastructure/metrics"
	"github.com/garyjia/travel-approval/internal/infrastructure/persistence/memory"
	"github.com/garyjia/travel-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/travel-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/travel-approval/internal/infrastructure/storage"
	"github.com/garyjia/travel-approval/internal/infrastructure/worker"
	transport "github.com/garyjia/travel-approval/internal/interfaces/http"
	"github.com/garyjia/travel-approval/pkg/database"
)

// StorageBundle holds the repositories and the transaction manager that
// spans them.
type StorageBundle struct {
	// DB is nil for the memory driver
	DB        *database.DB
	TxManager port.TransactionManager
	Repos     *RepositoryBundle
}

// ProvideStorage opens the configured backend. For sqlite, pending
// migrations are applied before the repositories are built.
func ProvideStorage(cfg *DatabaseConfig, logger *zap.Logger) (*StorageBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if cfg.Driver == DriverMemory {
		store := memory.NewStore(logger)
		return &StorageBundle{
			TxManager: store,
			Repos: &RepositoryBundle{
				Requests:  store.Requests(),
				Instances: store.Instances(),
				Audit:     store.Audit(),
			},
		}, nil
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &StorageBundle{
		DB:        db,
		TxManager: sqlite.NewDB(db.DB, logger),
		Repos: &RepositoryBundle{
			Requests:  repository.NewTravelRequestRepository(db.DB, logger),
			Instances: repository.NewInstanceRepository(db.DB, logger),
			Audit:     repository.NewAuditRepository(db.DB, logger),
		},
	}, nil
}

// ProvideCatalog builds the grade policy catalog.
func ProvideCatalog(cfg *PolicyConfig) (*policy.Catalog, error) {
	if cfg == nil {
		return nil, fmt.Errorf("policy config is required")
	}
	return policy.NewCatalog(cfg.Currency, cfg.Grades)
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(dispatcher.WithLogger(logger)), nil
}

// ProvideMetrics registers the workflow collectors on reg and subscribes
// them to the dispatcher.
func ProvideMetrics(reg prometheus.Registerer, disp dispatcher.Dispatcher) (*metrics.Recorder, error) {
	if reg == nil {
		return nil, fmt.Errorf("registerer is required")
	}
	if disp == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	recorder := metrics.NewRecorder(reg)
	recorder.Subscribe(disp)
	return recorder, nil
}

// WorkflowDeps holds dependencies required for creating the workflow engine
// and the services around it.
type WorkflowDeps struct {
	Storage    *StorageBundle
	Catalog    *policy.Catalog
	Clock      *sla.Clock
	Dispatcher dispatcher.Dispatcher
	Logger     *zap.Logger
}

// ProvideServices creates the audit service, the workflow engine and the
// services layered on top of it.
func ProvideServices(deps *WorkflowDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}
	if deps.Storage == nil || deps.Storage.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Storage.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("policy catalog is required")
	}
	if deps.Clock == nil {
		return nil, fmt.Errorf("sla clock is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	repos := deps.Storage.Repos
	audit := service.NewAuditService(repos.Audit, repos.Instances, export.NewAuditWorkbook(deps.Logger), deps.Logger,
		service.WithSnapshots(deps.Storage.TxManager))

	engine := workflow.NewEngine(
		repos.Requests,
		repos.Instances,
		audit,
		deps.Storage.TxManager,
		deps.Catalog,
		deps.Logger,
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithSLAClock(deps.Clock),
	)

	return &ServiceBundle{
		Engine:   engine,
		Audit:    audit,
		Queries:  service.NewQueryService(engine, deps.Clock),
		Requests: service.NewRequestService(repos.Requests, deps.Storage.TxManager, deps.Catalog, deps.Logger),
	}, nil
}

// ProvideArchiver subscribes an audit archiver to the closing events.
// Returns nil when archiving is disabled.
func ProvideArchiver(cfg *ArchiveConfig, audit service.AuditService, disp dispatcher.Dispatcher, logger *zap.Logger) (*service.AuditArchiver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("archive config is required")
	}
	if !cfg.Enabled {
		return nil, nil
	}
	if audit == nil || disp == nil || logger == nil {
		return nil, fmt.Errorf("audit service, dispatcher and logger are required")
	}

	archiver := service.NewAuditArchiver(audit, storage.NewLocalArchive(cfg.Dir, logger), logger)
	archiver.Subscribe(disp)
	logger.Info("Audit archive enabled", zap.String("dir", cfg.Dir))
	return archiver, nil
}

// WorkerDeps holds dependencies required for creating workers.
type WorkerDeps struct {
	SLA        *SLAConfig
	Queries    service.QueryService
	Dispatcher dispatcher.Dispatcher
	// Observer is nil when metrics are disabled
	Observer worker.SweepObserver
	Logger   *zap.Logger
}

// ProvideWorkers creates and registers all background workers.
// Returns a manager with all workers registered but not started.
func ProvideWorkers(deps *WorkerDeps) (*worker.Manager, error) {
	if deps == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}
	if deps.SLA == nil {
		return nil, fmt.Errorf("sla config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	manager := worker.NewManager(deps.Logger)
	if !deps.SLA.Enabled {
		deps.Logger.Info("SLA sweep disabled")
		return manager, nil
	}
	if deps.Queries == nil {
		return nil, fmt.Errorf("query service is required")
	}

	opts := []worker.SLAMonitorOption{}
	if deps.Dispatcher != nil {
		opts = append(opts, worker.WithBreachDispatcher(deps.Dispatcher))
	}
	if deps.Observer != nil {
		opts = append(opts, worker.WithSweepObserver(deps.Observer))
	}

	manager.Register(worker.NewSLAMonitor(deps.SLA.SweepSchedule, deps.Queries, deps.Logger, opts...))
	return manager, nil
}

// ProvideHTTPServer wires the REST handlers. gatherer may be nil when
// metrics are disabled.
func ProvideHTTPServer(cfg transport.ServerConfig, services *ServiceBundle, catalog *policy.Catalog,
	gatherer prometheus.Gatherer, version string, logger *zap.Logger) (*transport.Server, error) {
	if services == nil {
		return nil, fmt.Errorf("services are required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("policy catalog is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	handlers := transport.NewHandlers(
		services.Engine,
		services.Queries,
		services.Requests,
		services.Audit,
		catalog,
		version,
		logger,
	)
	return transport.NewServer(cfg, handlers, gatherer, logger), nil
}
