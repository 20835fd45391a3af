// Package main provides the entry point for the compliance engine server
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/compliance-engine/go-core/internal/audit"
	"github.com/compliance-engine/go-core/internal/db"
	"github.com/compliance-engine/go-core/internal/engine"
	"github.com/compliance-engine/go-core/internal/metrics"
	"github.com/compliance-engine/go-core/internal/rules"
	"github.com/compliance-engine/go-core/internal/server"
	"github.com/compliance-engine/go-core/internal/tracker"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var (
		dbDSN              = flag.String("db-dsn", "", "Postgres DSN; empty runs with in-memory stores")
		rulesDir           = flag.String("rules-dir", "", "Directory to load compliance rule bundles from")
		watchRules         = flag.Bool("watch-rules", true, "Hot-reload rule bundles on file changes")
		auditLog           = flag.String("audit-log", "", "File path for the audit ledger mirror (rotated)")
		httpPort           = flag.Int("http-port", 8080, "HTTP port for health/metrics/verification")
		workers            = flag.Int("workers", 16, "Number of parallel check workers")
		checkedBy          = flag.String("checked-by", "compliance-engine", "Identity recorded on check logs")
		escalationInterval = flag.Duration("escalation-interval", 15*time.Minute, "How often to scan for overdue violations")
		logLevel           = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		logFormat          = flag.String("log-format", "json", "Log format (json, console)")
		showVersion        = flag.Bool("version", false, "Show version information")
		gracefulTimeout    = flag.Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("compliance-server %s\n", Version)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	logger, err := initLogger(*logLevel, *logFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting compliance engine server",
		zap.String("version", Version),
		zap.Int("http_port", *httpPort),
	)

	// Storage: Postgres when a DSN is given, in-memory otherwise.
	var (
		sqlDB      *sql.DB
		persister  engine.Persister
		auditStore audit.Store
		violations tracker.Store
	)
	if *dbDSN != "" {
		sqlDB, err = sql.Open("postgres", *dbDSN)
		if err != nil {
			logger.Fatal("Failed to open database", zap.Error(err))
		}
		defer sqlDB.Close()

		if err := sqlDB.Ping(); err != nil {
			logger.Fatal("Failed to reach database", zap.Error(err))
		}

		runner, err := db.NewMigrationRunner(sqlDB, logger)
		if err != nil {
			logger.Fatal("Failed to create migration runner", zap.Error(err))
		}
		if err := runner.Up(); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}

		persister = engine.NewPostgresPersister(sqlDB)
		auditStore = audit.NewPostgresStore(sqlDB)
		violations = tracker.NewPostgresStore(sqlDB)
	} else {
		logger.Warn("No database configured, using in-memory stores")
		mem := engine.NewMemoryPersister()
		persister = mem
		auditStore = mem.Entries
		violations = mem.Violations
	}

	// Audit ledger, with an optional rotated file mirror.
	var writers []audit.Writer
	if *auditLog != "" {
		fw, err := audit.NewFileWriter(*auditLog, 100, 90, 10)
		if err != nil {
			logger.Fatal("Failed to open audit log mirror", zap.Error(err))
		}
		writers = append(writers, fw)
	}
	ledger := audit.NewLedger(auditStore, logger, writers...)
	defer ledger.Close()

	trk := tracker.NewTracker(violations, logger)

	promMetrics := metrics.NewPrometheusMetrics("compliance")

	// Rule bundles and hot reload.
	ruleStore := rules.NewMemoryStore()
	ruleLoader := rules.NewLoader(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var watcher *rules.FileWatcher
	if *rulesDir != "" {
		loaded, err := ruleLoader.LoadFromDirectory(*rulesDir)
		if err != nil {
			logger.Fatal("Failed to load rules", zap.Error(err))
		}
		for _, rule := range loaded {
			if err := ruleStore.Add(rule); err != nil {
				logger.Fatal("Failed to register rule", zap.String("rule", rule.Code), zap.Error(err))
			}
		}
		promMetrics.UpdateActiveRules(ruleStore.Count())
		logger.Info("Rules loaded", zap.Int("count", len(loaded)), zap.String("dir", *rulesDir))

		if *watchRules {
			watcher, err = rules.NewFileWatcher(*rulesDir, ruleStore, ruleLoader, logger)
			if err != nil {
				logger.Fatal("Failed to create rule watcher", zap.Error(err))
			}
			if err := watcher.Watch(ctx); err != nil {
				logger.Fatal("Failed to start rule watcher", zap.Error(err))
			}
			go consumeReloads(watcher, ruleStore, promMetrics)
		}
	}

	// Compliance engine.
	engConfig := engine.DefaultConfig()
	engConfig.ParallelWorkers = *workers
	engConfig.CheckedBy = *checkedBy

	eng, err := engine.New(engConfig, persister, ledger, trk, logger,
		engine.WithRules(ruleStore, ruleLoader),
		engine.WithMetrics(promMetrics),
	)
	if err != nil {
		logger.Fatal("Failed to create engine", zap.Error(err))
	}
	defer eng.Close()

	logger.Info("Compliance engine initialized",
		zap.Int("workers", *workers),
		zap.Int("rules", ruleStore.Count()),
	)

	// Periodic escalation scan.
	go escalationLoop(ctx, trk, promMetrics, *escalationInterval, logger)

	// Operational HTTP surface.
	healthHandler := server.NewHealthHandler(sqlDB, logger)
	verifyHandler := server.NewVerifyHandler(ledger, promMetrics, logger)

	httpMux := http.NewServeMux()
	server.RegisterHealthHandlers(httpMux, healthHandler)
	server.RegisterVerifyHandler(httpMux, verifyHandler)
	httpMux.Handle("/metrics", promMetrics.HTTPHandler())

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", *httpPort),
		Handler:      httpMux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.Int("port", *httpPort))
		errChan <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), *gracefulTimeout)
		defer shutdownCancel()

		healthHandler.SetReady(false)
		cancel()

		if watcher != nil {
			watcher.Stop()
		}

		logger.Info("Stopping HTTP server")
		httpSrv.Shutdown(shutdownCtx)
	}

	logger.Info("Server stopped successfully")
}

// consumeReloads turns rule reload events into metrics.
func consumeReloads(watcher *rules.FileWatcher, store rules.Store, m metrics.Metrics) {
	for event := range watcher.EventChan() {
		if event.Error != nil {
			m.RecordRuleReload(false)
			continue
		}
		m.RecordRuleReload(true)
		m.UpdateActiveRules(store.Count())
	}
}

// escalationLoop periodically scans for violations open past their severity
// deadline.
func escalationLoop(ctx context.Context, trk *tracker.Tracker, m metrics.Metrics, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			escalations, err := trk.ScanEscalations(ctx)
			if err != nil {
				logger.Error("Escalation scan failed", zap.Error(err))
				continue
			}
			for _, esc := range escalations {
				m.RecordEscalation(string(esc.Violation.Severity))
			}
		}
	}
}

// initLogger initializes the zap logger
func initLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var config zap.Config
	if format == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	return config.Build()
}
