package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/twinlayout/sceneedit/internal/config"
	"github.com/twinlayout/sceneedit/internal/entity"
	"github.com/twinlayout/sceneedit/internal/logging"
	intOtel "github.com/twinlayout/sceneedit/internal/otel"
	"github.com/twinlayout/sceneedit/internal/scenectx"
)

// BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "sceneedit"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger = slog.Default()

	// ZLogger backs the dispatcher and the database and influx managers
	ZLogger zerolog.Logger = zerolog.Nop()

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	// SceneContext carries the open scene and floor into every log record
	SceneContext *scenectx.Context = scenectx.NewContext()

	SessionStartTime time.Time = time.Now()

	LogFilePath string
	LogFile     *os.File
)

func main() {
	configDir := os.Getenv("SCENEEDIT_CONFIG_DIR")
	if configDir == "" {
		configDir = "."
	}

	setup(configDir)
	defer shutdown()

	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		Logger.Error("Command failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		shutdown()
		os.Exit(1)
	}
}

// setup loads the configuration and wires logging, telemetry and log
// shipping. A missing config file falls back to defaults.
func setup(configDir string) {
	SlogManager = logging.NewSlogManager().WithContext(SceneContext.Attrs)

	configErr := config.Load(configDir)

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logs dir: %v\n", err)
	}
	LogFilePath = logging.LogFilePath(logsDir, AppName, SessionStartTime)
	var logOut io.Writer
	if f, err := os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v\n", LogFilePath, err)
	} else {
		LogFile = f
		logOut = f
	}

	otelCfg := config.GetOTelConfig()
	var err error
	OTelProvider, err = intOtel.New(intOtel.Config{
		Enabled:        otelCfg.Enabled,
		ServiceName:    otelCfg.ServiceName,
		ServiceVersion: CurrentVersion,
		BatchTimeout:   otelCfg.BatchTimeout,
		LogWriter:      logOut,
		Endpoint:       otelCfg.Endpoint,
		Insecure:       otelCfg.Insecure,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize OTel provider: %v\n", err)
	}

	graylogCfg := config.GetGraylogConfig()
	if graylogCfg.Enabled {
		if w, err := logging.NewGELFWriter(graylogCfg.Address); err != nil {
			fmt.Fprintf(os.Stderr, "Graylog disabled: %v\n", err)
		} else {
			var lvl slog.Level
			_ = lvl.UnmarshalText([]byte(viper.GetString("logLevel")))
			SlogManager.AddSink(logging.NewGELFHandler(w, lvl, AppName))
		}
	}

	SlogManager.Setup(logOut, viper.GetString("logLevel"), OTelProvider.LoggerProvider())
	Logger = SlogManager.Logger()
	slog.SetDefault(Logger)

	zlevel, err := zerolog.ParseLevel(viper.GetString("logLevel"))
	if err != nil {
		zlevel = zerolog.InfoLevel
	}
	if logOut != nil {
		ZLogger = zerolog.New(logOut).Level(zlevel).With().Timestamp().Str("app", AppName).Logger()
	}

	entity.Strict = viper.GetBool("strict")

	if configErr != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", configErr)
	} else {
		Logger.Info("Loaded config", "dir", configDir)
	}
	Logger.Info("Starting", "version", CurrentVersion, "build", BuildDate, "log", LogFilePath, "strict", entity.Strict)
}

func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if SlogManager != nil {
		_ = SlogManager.Flush(ctx)
	}
	_ = OTelProvider.Shutdown(ctx)
	OTelProvider = nil
	if LogFile != nil {
		_ = LogFile.Close()
		LogFile = nil
	}
}

// influxBackupPath is where commit metrics go when InfluxDB is unreachable.
func influxBackupPath() string {
	return filepath.Join(viper.GetString("logsDir"), fmt.Sprintf("%s_influx_%s.lp.gz", AppName, SessionStartTime.Format("20060102_150405")))
}
