// HomePulse Core - home automation rule engine
//
// This is the main entry point for the HomePulse Core service: the
// automation engine behind a personal health and smart-home dashboard.
// It mirrors the device registry of an external control gateway, runs
// scenes and automations against it, and suggests scenes from the
// user's health telemetry ("body weather").
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/homepulse/homepulse-core/migrations"

	"github.com/homepulse/homepulse-core/internal/api"
	"github.com/homepulse/homepulse-core/internal/automation"
	"github.com/homepulse/homepulse-core/internal/device"
	"github.com/homepulse/homepulse-core/internal/gateway"
	"github.com/homepulse/homepulse-core/internal/health"
	"github.com/homepulse/homepulse-core/internal/infrastructure/config"
	"github.com/homepulse/homepulse-core/internal/infrastructure/database"
	"github.com/homepulse/homepulse-core/internal/infrastructure/influxdb"
	"github.com/homepulse/homepulse-core/internal/infrastructure/logging"
	"github.com/homepulse/homepulse-core/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit // wiring: each dependency adds a block
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting HomePulse Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	loc := cfg.Location()

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Gateway client. An unconfigured gateway (no token) is not fatal:
	// the engine runs degraded and every command fails fast.
	gw := gateway.New(cfg.Gateway)
	gw.SetLogger(log)
	if !gw.IsConfigured() {
		log.Warn("gateway token not configured, running degraded (no device control)")
	}

	// Device cache and commander
	cache := device.NewCache(gw)
	cache.SetLogger(log)
	if syncErr := cache.SyncAll(ctx); syncErr != nil {
		log.Warn("initial device sync failed, cache starts empty", "error", syncErr)
	} else {
		log.Info("device cache synced", "devices", len(cache.List()))
	}
	commander := device.NewCommander(gw, cache)
	commander.SetLogger(log)

	// MQTT event feed (optional): gateway-pushed attribute changes
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		feed := device.NewEventFeed(cache)
		feed.SetLogger(log)
		if feedErr := feed.Start(mqttClient, byte(cfg.MQTT.QoS)); feedErr != nil {
			return fmt.Errorf("starting event feed: %w", feedErr)
		}
	} else {
		log.Info("MQTT disabled, device events limited to manual refresh")
	}

	// Connect to InfluxDB (optional): health telemetry + execution history
	var influxClient *influxdb.Client
	if cfg.Health.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.Health.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.Health.InfluxDB.URL,
			"bucket", cfg.Health.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled, health suggestions degraded")
	}

	// Automation store
	store := automation.NewStore(automation.NewSQLiteRepository(db.DB))
	store.SetLogger(log)
	if refreshErr := store.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading automation store: %w", refreshErr)
	}
	log.Info("automation store loaded", "scenes", store.SceneCount())

	// WebSocket hub, shared by the API server, executor and suggestor
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// Executor
	executor := automation.NewExecutor(store, commander, cache, loc)
	executor.SetLogger(log)
	executor.SetHub(hub)
	if influxClient != nil {
		executor.SetHistory(influxClient)
	}

	// Health store and suggestion engine
	healthStore := health.NewStore(influxClient, cfg.Health.RecentDays)
	healthStore.SetLogger(log)

	suggestor := health.NewSuggestor(healthStore, store, executor, loc)
	suggestor.SetLogger(log)
	suggestor.SetHub(hub)
	suggestor.SetCycle(cfg.Health.Interval())
	if startErr := suggestor.Start(); startErr != nil {
		return fmt.Errorf("starting suggestion engine: %w", startErr)
	}
	defer func() {
		log.Info("stopping suggestion engine")
		suggestor.Stop()
	}()

	// Trigger scheduler
	scheduler := automation.NewScheduler(store, executor, loc,
		cfg.Site.Location.Latitude, cfg.Site.Location.Longitude, cfg.Scheduler.Tick())
	scheduler.SetLogger(log)
	scheduler.SetHealthReader(healthStore)
	cache.Subscribe(scheduler.OnDeviceChange)
	if cfg.Scheduler.Enabled {
		if startErr := scheduler.Start(); startErr != nil {
			return fmt.Errorf("starting scheduler: %w", startErr)
		}
		defer func() {
			log.Info("stopping scheduler")
			scheduler.Stop()
		}()
		log.Info("scheduler started", "tick", cfg.Scheduler.Tick().String(), "timezone", cfg.Site.Timezone)
	} else {
		log.Info("scheduler disabled, automations fire only manually")
	}

	// API server
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Logger:      log,
		Cache:       cache,
		Commander:   commander,
		Gateway:     gw,
		Store:       store,
		Executor:    executor,
		Scheduler:   scheduler,
		Suggestor:   suggestor,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Verify infrastructure connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, scheduler, suggestor, InfluxDB, MQTT, database.

	log.Info("HomePulse Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HOMEPULSE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HOMEPULSE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	// The gateway is deliberately absent here: an unreachable or
	// unconfigured gateway is a degraded state, not a startup failure.

	return nil
}
