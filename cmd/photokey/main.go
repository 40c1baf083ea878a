package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/photokey/floorplan/internal/config"
	"github.com/photokey/floorplan/internal/logging"
	intOtel "github.com/photokey/floorplan/internal/otel"
	"github.com/photokey/floorplan/internal/session"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"

	AppName = "photokey"
)

var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// DBLogger is used by the database layer
	DBLogger zerolog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	// RunContext is attached to every log record
	RunContext = session.NewContext()

	RunStart = time.Now()

	logFile  *os.File
	otelFile *os.File
)

func main() {
	configDir := os.Getenv("PHOTOKEY_CONFIG_DIR")
	if configDir == "" {
		configDir = "."
	}
	if err := setup(configDir); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Args[1:])
	stop()
	shutdown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// setup loads the config and wires logging and telemetry.
func setup(configDir string) error {
	SlogManager = logging.NewSlogManager()
	SlogManager.Context = RunContext.Attrs
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs dir: %w", err)
	}

	var err error
	logPath := logging.LogFilePath(logsDir, AppName, RunStart)
	logFile, err = os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", logPath)
		logFile = nil
	}

	otelCfg := config.GetOTelConfig()
	providerCfg := intOtel.Config{
		Enabled:        otelCfg.Enabled,
		ServiceName:    otelCfg.ServiceName,
		BatchTimeout:   otelCfg.BatchTimeout,
		MetricInterval: otelCfg.MetricInterval,
	}
	if otelCfg.Enabled {
		otelPath := logging.LogFilePath(logsDir, AppName+".otel", RunStart)
		otelFile, err = os.OpenFile(otelPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open otel export file: %w", err)
		}
		providerCfg.LogWriter = otelFile
		providerCfg.MetricWriter = otelFile
	}
	OTelProvider, err = intOtel.New(providerCfg)
	if err != nil {
		return fmt.Errorf("failed to create otel provider: %w", err)
	}

	var out io.Writer
	if logFile != nil {
		out = logFile
	}
	SlogManager.Setup(out, config.GetString("logLevel"), OTelProvider.LoggerProvider())
	Logger = SlogManager.Logger()

	DBLogger = newDBLogger(out, config.GetString("logLevel"))

	Logger.Info("Starting up", "version", Version, "buildDate", BuildDate, "otel", OTelProvider.Enabled())
	return nil
}

func newDBLogger(file io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}}
	if file != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: file, TimeFormat: time.RFC3339, NoColor: true})
	}
	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lvl).
		With().Timestamp().Str("component", "database").Logger()
}

func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := SlogManager.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to flush logs: %v\n", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to shut down otel: %v\n", err)
		}
	}
	for _, f := range []*os.File{logFile, otelFile} {
		if f != nil {
			f.Close()
		}
	}
}

func absFrom(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
