package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/dbxmcp/dbxmcp/internal/config"
	"github.com/dbxmcp/dbxmcp/mcp"
	"github.com/dbxmcp/dbxmcp/observe"
	"github.com/dbxmcp/dbxmcp/runtimeconfig"
	"github.com/dbxmcp/dbxmcp/state/factory"
)

func main() {
	configPath := flag.String("config", "", "Path to optional YAML configuration file")
	toolsFlag := flag.String("tools", "", "Comma-separated tools and @bundles to serve (default: all)")
	auditDB := flag.String("audit-db", os.Getenv("DBXMCP_AUDIT_DB"), "Path to sqlite audit database (empty disables)")
	metricsAddr := flag.String("metrics-addr", os.Getenv("DBXMCP_METRICS_ADDR"), "Address for the Prometheus /metrics endpoint (empty disables)")
	isDebug := flag.Bool("debug", config.ParseBoolEnv("DBXMCP_DEBUG", false), "Enable debug logging")
	flag.Parse()

	// Credentials may live in a local .env during development.
	_ = godotenv.Load()

	var cfg runtimeconfig.Config
	if *configPath != "" {
		loaded, err := runtimeconfig.Load(*configPath)
		if err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logger := newLogger(cfg, *isDebug)
	slog.SetDefault(logger)

	selection := cfg.Tools
	if *toolsFlag != "" {
		selection = splitList(*toolsFlag)
	}

	sinks := []observe.Sink{observe.SlogSink{Logger: logger}}
	auditPath := cfg.AuditDB
	if *auditDB != "" {
		auditPath = *auditDB
	}
	var audit *observe.SQLiteSink
	if auditPath != "" {
		var err error
		audit, err = observe.NewSQLiteSink(auditPath)
		if err != nil {
			logger.Error("failed to open audit database", "error", err)
			os.Exit(1)
		}
		defer audit.Close()
		sinks = append(sinks, audit)
	}
	async := observe.NewAsyncSink(observe.NewMultiSink(sinks...), 256)
	defer async.Close()

	if cfg.StateBackend != "" {
		os.Setenv("DBXMCP_STATE_BACKEND", cfg.StateBackend)
	}
	cursors, err := factory.FromEnv(context.Background())
	if err != nil {
		logger.Error("failed to initialize cursor store", "error", err)
		os.Exit(1)
	}
	defer cursors.Close()

	addr := cfg.MetricsAddr
	if *metricsAddr != "" {
		addr = *metricsAddr
	}
	if addr != "" {
		go serveMetrics(logger, addr)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName("dbxmcp"),
		)),
	)
	otel.SetTracerProvider(tp)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := mcp.NewServer(os.Stdin, os.Stdout, logger,
		mcp.WithSelection(selection),
		mcp.WithSink(async),
		mcp.WithCursorStore(cursors),
	)
	if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server shutting down")
}

// newLogger writes to stderr; stdout belongs to the protocol stream.
func newLogger(cfg runtimeconfig.Config, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug || cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))
}

func serveMetrics(logger *slog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("metrics listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
