// Devpool Core - Test Device Pool Manager
//
// This is the main entry point for the device pool service. It manages a
// shared pool of physical test devices (Android, iOS, Windows) and exposes
// the pool as MCP tools over two transports:
//   - stdio: line-delimited JSON-RPC for MCP clients spawning the binary
//   - HTTP: REST tool routes, a /mcp JSON-RPC endpoint and a WebSocket
//     event stream
//
// A third mode imports legacy CSV inventory exports and exits.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	_ "github.com/devicelab/devpool-core/migrations"

	"github.com/devicelab/devpool-core/internal/api"
	"github.com/devicelab/devpool-core/internal/audit"
	"github.com/devicelab/devpool-core/internal/device"
	"github.com/devicelab/devpool-core/internal/infrastructure/config"
	"github.com/devicelab/devpool-core/internal/infrastructure/database"
	"github.com/devicelab/devpool-core/internal/infrastructure/influxdb"
	"github.com/devicelab/devpool-core/internal/infrastructure/logging"
	"github.com/devicelab/devpool-core/internal/infrastructure/mqtt"
	"github.com/devicelab/devpool-core/internal/ingest"
	"github.com/devicelab/devpool-core/internal/mcp"
	"github.com/devicelab/devpool-core/internal/tools"
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

// options are the parsed command-line flags.
type options struct {
	configPath string
	stdio      bool
	importFile string
	category   string
}

func main() {
	opts := parseFlags(os.Args[1:])

	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags parses command-line arguments into options.
func parseFlags(args []string) options {
	var opts options
	fs := flag.NewFlagSet("devpoold", flag.ExitOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to config file (default "+defaultConfigPath+")")
	fs.BoolVar(&opts.stdio, "stdio", false, "serve MCP over stdio instead of HTTP")
	fs.StringVar(&opts.importFile, "import", "", "import a legacy CSV inventory file and exit")
	fs.StringVar(&opts.category, "category", "", "default category for imported rows (android, ios, windows)")
	fs.Parse(args) //nolint:errcheck // ExitOnError flag set never returns an error
	return opts
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context, opts options) error {
	// A .env file is optional; ignore its absence.
	_ = godotenv.Load()

	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting devpool core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := resolveConfigPath(opts.configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings. Logs always go to stderr
	// in stdio mode; stdout carries the JSON-RPC frames.
	if opts.stdio {
		cfg.Logging.Output = "stderr"
	}
	log = logging.New(cfg.Logging, version)

	// Open the device inventory
	store, err := device.NewFileStore(cfg.Inventory.Root)
	if err != nil {
		return fmt.Errorf("opening inventory: %w", err)
	}
	manager := device.NewManager(store)
	manager.SetLogger(log)
	log.Info("inventory loaded", "root", cfg.Inventory.Root)

	// Import mode: load the CSV, print the report, exit.
	if opts.importFile != "" {
		return runImport(ctx, manager, log, opts)
	}

	// Open the audit database
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
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
		manager.AddSink(influxClient)
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Tool registry with audit trail
	registry, err := tools.NewRegistry(manager)
	if err != nil {
		return fmt.Errorf("building tool registry: %w", err)
	}
	registry.SetLogger(log)
	recorder := audit.NewSQLiteRecorder(db.DB)
	registry.SetRecorder(&latencyRecorder{recorder: recorder, influx: influxClient})

	// Connect to MQTT broker (optional)
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
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		manager.AddSink(mqttClient)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Republish pool counters after every lifecycle change
	if mqttClient != nil || influxClient != nil {
		manager.AddSink(&statsPublisher{
			manager: manager,
			mqtt:    mqttClient,
			influx:  influxClient,
			log:     log,
		})
	}

	// stdio mode: serve JSON-RPC frames on stdin/stdout until EOF or signal
	if opts.stdio {
		handler := mcp.NewHandler(registry, version, "stdio")
		server := mcp.NewServer(handler)
		server.SetLogger(log)
		return server.Serve(ctx)
	}

	// HTTP mode
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		Registry: registry,
		Manager:  manager,
		Audit:    recorder,
		DB:       db,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// The hub must be a sink before the first mutation can happen.
	manager.AddSink(apiServer.Hub())

	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// runImport loads a legacy CSV inventory export and prints the report to
// stdout as JSON.
func runImport(ctx context.Context, manager *device.Manager, log *logging.Logger, opts options) error {
	importer := ingest.NewImporter(manager)
	importer.SetLogger(log)

	report, err := importer.ImportFile(ctx, opts.importFile, device.Category(opts.category))
	if err != nil {
		return fmt.Errorf("importing %s: %w", opts.importFile, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("writing import report: %w", err)
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d rows failed to import", report.Failed, report.Rows)
	}
	return nil
}

// resolveConfigPath returns the configuration file path. Precedence:
// -config flag, DEVPOOL_CONFIG environment variable, default.
func resolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if path := os.Getenv("DEVPOOL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// latencyRecorder persists audit entries and mirrors tool latency to
// InfluxDB when it is configured.
type latencyRecorder struct {
	recorder *audit.SQLiteRecorder
	influx   *influxdb.Client
}

// Record implements tools.Recorder.
func (r *latencyRecorder) Record(ctx context.Context, entry *audit.Entry) error {
	if r.influx != nil {
		r.influx.WriteToolLatency(entry.Tool, entry.Outcome, entry.Duration)
	}
	return r.recorder.Record(ctx, entry)
}

// statsPublisher recomputes pool counters after each lifecycle event and
// publishes them to the retained MQTT stats topic and the utilisation
// measurement.
type statsPublisher struct {
	manager *device.Manager
	mqtt    *mqtt.Client
	influx  *influxdb.Client
	log     *logging.Logger
}

// PublishDeviceEvent implements device.EventSink.
func (p *statsPublisher) PublishDeviceEvent(_ device.Event) {
	stats, err := p.manager.Stats(context.Background())
	if err != nil {
		p.log.Warn("pool stats snapshot failed", "error", err)
		return
	}

	if p.influx != nil {
		p.influx.WritePoolGauge(stats)
	}
	if p.mqtt != nil {
		payload := map[string]any{
			"total_devices": stats.TotalDevices,
			"by_category":   stats.ByCategory,
			"by_status":     stats.ByStatus,
		}
		if err := p.mqtt.PublishPoolStats(payload); err != nil {
			p.log.Warn("pool stats publish failed", "error", err)
		}
	}
}
