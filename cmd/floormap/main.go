package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/northwalk/floormap/internal/config"
	"github.com/northwalk/floormap/internal/engine"
	"github.com/northwalk/floormap/internal/logging"
	intOtel "github.com/northwalk/floormap/internal/otel"
)

// module defs - Version and BuildDate can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"

	AppName string = "floormap"
)

var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager = logging.NewSlogManager()

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger = slog.Default()

	// ZLogger feeds the database and influx managers.
	ZLogger zerolog.Logger = zerolog.Nop()

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()

	configDir  string
	logFile    *os.File
	gelfWriter *gelf.Writer

	// Read by the log context provider, which must never block.
	activeEngine  atomic.Pointer[engine.Engine]
	activeSession atomic.Value
)

func main() {
	err := newRootCmd().Execute()
	closeLogging()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           AppName,
		Short:         "Interactive multi-floor indoor map engine",
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildDate),
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(configDir); err != nil {
				Logger.Warn("Failed to load config, using defaults!", "error", err)
			}
			return setupLogging()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configDir, "config", ".", "directory containing "+config.FileName)
	flags.String("log-level", "", "log level: DEBUG, INFO, WARN or ERROR")
	flags.String("logs-dir", "", "directory for log files, empty logs to stdout")
	flags.String("assets", "", "asset source: file, http, sqlite, postgres or memory")
	flags.String("assets-dir", "", "asset directory for the file and memory sources")
	_ = viper.BindPFlag("logLevel", flags.Lookup("log-level"))
	_ = viper.BindPFlag("logsDir", flags.Lookup("logs-dir"))
	_ = viper.BindPFlag("assets.type", flags.Lookup("assets"))
	_ = viper.BindPFlag("assets.dir", flags.Lookup("assets-dir"))

	root.AddCommand(
		newServeCmd(),
		newSnapshotCmd(),
		newValidateCmd(),
		newRouteCmd(),
		newImportCmd(),
	)
	return root
}

// logContext tags every record with the active floor and bridge session.
// Empty values are dropped by the handler.
func logContext() []slog.Attr {
	var floor string
	if e := activeEngine.Load(); e != nil {
		floor = string(e.ActiveFloor())
	}
	session, _ := activeSession.Load().(string)
	return []slog.Attr{slog.String("floor", floor), slog.String("session", session)}
}

func setupLogging() error {
	closeLogging()
	level := viper.GetString("logLevel")

	var file io.Writer
	var pruned []string
	var pruneErr error
	zlogOut := io.Writer(os.Stderr)
	if dir := viper.GetString("logsDir"); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create logs dir: %w", err)
		}
		path := logging.LogFilePath(dir, AppName, SessionStartTime)
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		logFile = f
		file = f
		zlogOut = f
		pruned, pruneErr = logging.PruneLogFiles(dir, AppName, viper.GetInt("logsKeep"))
	}

	zlevel, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		zlevel = zerolog.InfoLevel
	}
	ZLogger = zerolog.New(zlogOut).Level(zlevel).With().Timestamp().Str("app", AppName).Logger()

	var extra []slog.Handler
	if viper.GetBool("graylog.enabled") {
		h, w, err := logging.NewGELFHandler(viper.GetString("graylog.address"), SlogManager.Leveler())
		if err != nil {
			Logger.Error("Failed to connect to Graylog", "error", err)
		} else {
			gelfWriter = w
			extra = append(extra, h)
		}
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		writer := file
		if writer == nil {
			writer = os.Stderr
		}
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			Version:      Version,
			InstanceID:   viper.GetString("otel.instanceId"),
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    writer,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
			OTelProvider = nil
		}
	}

	SlogManager.SetContextProvider(logContext)
	if OTelProvider != nil {
		SlogManager.Setup(file, level, OTelProvider.LoggerProvider(), extra...)
	} else {
		SlogManager.Setup(file, level, nil, extra...)
	}
	Logger = SlogManager.Logger()
	slog.SetDefault(Logger)
	if pruneErr != nil {
		Logger.Warn("Failed to prune old logs", "error", pruneErr)
	}
	if len(pruned) > 0 {
		Logger.Debug("Pruned old logs", "count", len(pruned))
	}
	return nil
}

func closeLogging() {
	if OTelProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := OTelProvider.Flush(ctx); err != nil {
			Logger.Warn("Failed to flush OTel data", "error", err)
		}
		_ = OTelProvider.Shutdown(ctx)
		cancel()
		OTelProvider = nil
	}
	if gelfWriter != nil {
		_ = gelfWriter.Close()
		gelfWriter = nil
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}
