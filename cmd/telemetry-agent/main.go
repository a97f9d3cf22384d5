// Command telemetry-agent is the telemetry streaming agent binary.
//
// It loads a persisted declaration (or an initial one from disk), starts
// the Config Worker, and serves the debug injection and self-metrics HTTP
// endpoints until interrupted (SIGINT / SIGTERM).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"gopkg.in/yaml.v3"

	"github.com/f5devcentral/telemetry-streaming-agent/internal/worker"
	"github.com/f5devcentral/telemetry-streaming-agent/models"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry-agent: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		logLevel    string
		logFmt      string
		listenAddr  string
		storagePath string
		declPath    string
	)

	flag.StringVar(&logLevel, "log.level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&logFmt, "log.fmt", "json", "Log format: json, text")
	flag.StringVar(&listenAddr, "mgmt.listen", "0.0.0.0:8100", "Management HTTP listen address")
	flag.StringVar(&storagePath, "storage.path", "/var/lib/telemetry-agent/config.json", "Persisted declaration path")
	flag.StringVar(&declPath, "declaration", "", "Optional initial declaration JSON file")
	flag.Parse()

	logger, err := buildLogger(logLevel, logFmt)
	if err != nil {
		return err
	}

	meterProvider := sdkmetric.NewMeterProvider()
	defer meterProvider.Shutdown(context.Background())

	fileStorage := worker.NewFileStorage(storagePath)
	w := worker.New(worker.Config{
		Storage: fileStorage,
		Meter:   meterProvider.Meter("telemetry-agent"),
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w.Start(ctx)

	if err := w.Load(ctx); err != nil {
		return fmt.Errorf("load persisted declaration: %w", err)
	}

	go fileStorage.Watch(ctx, logger, func() {
		if err := w.Load(ctx); err != nil {
			logger.Error("telemetry-agent: reload on out-of-band change failed", "error", err.Error())
		}
	})

	if declPath != "" {
		decl, err := loadDeclarationFile(declPath)
		if err != nil {
			return fmt.Errorf("load initial declaration: %w", err)
		}
		if err := w.ProcessDeclaration(ctx, decl, worker.ProcessOptions{Save: true}); err != nil {
			return fmt.Errorf("apply initial declaration: %w", err)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/mgmt/shared/telemetry/", debugInjectionHandler(w))

	srv := &http.Server{Addr: listenAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("telemetry-agent: management server failed", "error", err.Error())
		}
	}()

	logger.Info("telemetry-agent: running", "mgmt_addr", listenAddr)

	<-ctx.Done()
	logger.Info("telemetry-agent: received shutdown signal")

	_ = srv.Close()
	w.Stop()
	return nil
}

// debugInjectionHandler implements §6's debug injection endpoint:
// POST /mgmt/shared/telemetry/[namespace/<ns>/]eventListener/<name>.
func debugInjectionHandler(w *worker.Worker) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		namespace, name, ok := parseEventListenerPath(req.URL.Path)
		if !ok {
			http.Error(rw, "not found", http.StatusNotFound)
			return
		}

		body, err := io.ReadAll(io.LimitReader(req.Body, 1<<20))
		if err != nil {
			http.Error(rw, "read body: "+err.Error(), http.StatusBadRequest)
			return
		}
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			http.Error(rw, "invalid json: "+err.Error(), http.StatusBadRequest)
			return
		}

		if err := w.InjectDebugEvent(req.Context(), namespace, name, payload); err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}
		rw.WriteHeader(http.StatusNoContent)
	}
}

// parseEventListenerPath extracts (namespace, name) from
// "/mgmt/shared/telemetry/eventListener/<name>" or
// "/mgmt/shared/telemetry/namespace/<ns>/eventListener/<name>".
func parseEventListenerPath(path string) (namespace, name string, ok bool) {
	const prefix = "/mgmt/shared/telemetry/"
	rest := strings.TrimPrefix(path, prefix)
	if rest == path {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] == "eventListener":
		return "f5telemetry_default", parts[1], true
	case len(parts) == 4 && parts[0] == "namespace" && parts[2] == "eventListener":
		return parts[1], parts[3], true
	default:
		return "", "", false
	}
}

// loadDeclarationFile reads a declaration from disk. Decoding goes through
// yaml.v3, which accepts YAML and its JSON-compatible subset, so operators
// can author either format for the initial declaration file.
func loadDeclarationFile(path string) (models.Declaration, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var decl models.Declaration
	if err := yaml.Unmarshal(b, &decl); err != nil {
		return nil, err
	}
	return decl, nil
}

func buildLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q (expected debug|info|warn|error)", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q (expected json|text)", format)
	}
	return slog.New(handler), nil
}
