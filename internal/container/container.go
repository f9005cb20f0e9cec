package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/dispatcher"
	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/application/service"
	"github.com/garyjia/travel-approval/internal/application/workflow"
	"github.com/garyjia/travel-approval/internal/domain/policy"
	"github.com/garyjia/travel-approval/internal/domain/sla"
	"github.com/garyjia/travel-approval/internal/infrastructure/metrics"
	"github.com/garyjia/travel-approval/internal/infrastructure/worker"
	transport "github.com/garyjia/travel-approval/internal/interfaces/http"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	storage *StorageBundle

	// Domain
	catalog *policy.Catalog
	clock   *sla.Clock

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	// Observability
	registry *prometheus.Registry
	recorder *metrics.Recorder

	// Workers
	workers *worker.Manager

	// Interfaces
	server *transport.Server

	// Lifecycle
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Requests  port.TravelRequestRepository
	Instances port.InstanceRepository
	Audit     port.AuditRepository
}

// ServiceBundle groups the workflow engine and the application services.
type ServiceBundle struct {
	Engine   workflow.WorkflowEngine
	Audit    service.AuditService
	Queries  service.QueryService
	Requests service.RequestService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and starts the background workers.
// Components are initialized in dependency order:
// 1. Storage and repositories
// 2. Policy catalog and SLA clock
// 3. Dispatcher and metrics
// 4. Workflow engine, services and audit archive
// 5. Workers
// 6. HTTP server (not started; see Server)
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization",
		zap.String("database_driver", c.config.Database.Driver))

	// Step 1: Storage
	storage, err := ProvideStorage(&c.config.Database, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.storage = storage
	c.logger.Info("Storage initialized")

	// Step 2: Policy and SLA
	catalog, err := ProvideCatalog(&c.config.Policy)
	if err != nil {
		c.teardown()
		return fmt.Errorf("failed to load policy catalog: %w", err)
	}
	c.catalog = catalog
	c.clock = sla.NewClock(c.config.SLA.DueSoonRatio)

	// Step 3: Dispatcher and metrics
	if err := c.initDispatcherAndMetrics(); err != nil {
		c.teardown()
		return err
	}

	// Step 4: Engine and services
	services, err := ProvideServices(&WorkflowDeps{
		Storage:    c.storage,
		Catalog:    c.catalog,
		Clock:      c.clock,
		Dispatcher: c.dispatcher,
		Logger:     c.logger,
	})
	if err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.services = services
	c.logger.Info("Workflow engine and services initialized")

	if _, err := ProvideArchiver(&c.config.Archive, c.services.Audit, c.dispatcher, c.logger); err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize audit archive: %w", err)
	}

	// Step 5: Workers
	if err := c.initWorkers(); err != nil {
		c.teardown()
		return err
	}

	// Step 6: HTTP server
	var gatherer prometheus.Gatherer
	if c.registry != nil {
		gatherer = c.registry
	}
	server, err := ProvideHTTPServer(c.config.Server, c.services, c.catalog, gatherer, c.config.Version, c.logger)
	if err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize http server: %w", err)
	}
	c.server = server

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

func (c *Container) initDispatcherAndMetrics() error {
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	c.dispatcher = disp

	if !c.config.MetricsEnabled {
		c.logger.Info("Metrics disabled")
		return nil
	}

	c.registry = prometheus.NewRegistry()
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := ProvideMetrics(c.registry, c.dispatcher)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	c.recorder = recorder
	c.logger.Info("Dispatcher and metrics initialized")
	return nil
}

func (c *Container) initWorkers() error {
	deps := &WorkerDeps{
		SLA:        &c.config.SLA,
		Queries:    c.services.Queries,
		Dispatcher: c.dispatcher,
		Logger:     c.logger,
	}
	if c.recorder != nil {
		deps.Observer = c.recorder
	}

	workers, err := ProvideWorkers(deps)
	if err != nil {
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	c.workers = workers

	if err := c.workers.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	c.logger.Info("Workers initialized and started", zap.Int("count", c.workers.Count()))
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	errs := c.teardown()

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors: %w", len(errs), errs[0])
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// teardown releases whatever has been initialized so far
func (c *Container) teardown() []error {
	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
		c.workers = nil
	}

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
		c.dispatcher = nil
	}

	if c.storage != nil && c.storage.DB != nil {
		if err := c.storage.DB.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	c.storage = nil

	return errs
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, h ComponentHealth) {
		status.Components[name] = h
		if !h.Healthy {
			status.Overall = false
		}
	}

	switch {
	case c.storage == nil:
		set("database", ComponentHealth{Message: "not initialized"})
	case c.storage.DB == nil:
		set("database", ComponentHealth{Healthy: true, Message: "in-memory"})
	default:
		if err := c.storage.DB.PingContext(ctx); err != nil {
			set("database", ComponentHealth{Message: fmt.Sprintf("ping failed: %v", err)})
		} else {
			set("database", ComponentHealth{Healthy: true})
		}
	}

	switch {
	case c.workers == nil:
		set("workers", ComponentHealth{Message: "not initialized"})
	case c.workers.Count() == 0:
		set("workers", ComponentHealth{Healthy: true, Message: "no workers registered"})
	default:
		set("workers", ComponentHealth{
			Healthy: c.workers.IsRunning(),
			Message: fmt.Sprintf("worker count: %d", c.workers.Count()),
		})
	}

	if c.dispatcher != nil {
		set("dispatcher", ComponentHealth{Healthy: true})
	} else {
		set("dispatcher", ComponentHealth{Message: "not initialized"})
	}

	return status
}

// Services returns the engine and application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Catalog returns the policy catalog.
func (c *Container) Catalog() *policy.Catalog {
	return c.catalog
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.Manager {
	return c.workers
}

// Server returns the HTTP server. It is built by Start but not listening.
func (c *Container) Server() *transport.Server {
	return c.server
}

// Registry returns the Prometheus registry, or nil when metrics are disabled.
func (c *Container) Registry() *prometheus.Registry {
	return c.registry
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}
