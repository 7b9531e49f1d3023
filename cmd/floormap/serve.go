package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/northwalk/floormap/internal/bridge"
	"github.com/northwalk/floormap/internal/config"
	"github.com/northwalk/floormap/internal/directory"
	"github.com/northwalk/floormap/internal/dispatcher"
	"github.com/northwalk/floormap/internal/engine"
	"github.com/northwalk/floormap/internal/influx"
	"github.com/northwalk/floormap/internal/loader"
	"github.com/northwalk/floormap/internal/logging"
	"github.com/northwalk/floormap/internal/monitor"
	"github.com/northwalk/floormap/internal/render/headless"
	"github.com/northwalk/floormap/pkg/floorplan"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine behind the kiosk bridge and the monitor endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
	cmd.Flags().String("floor", "", "floor shown at startup")
	cmd.Flags().String("listen", "", "monitor listen address")
	_ = viper.BindPFlag("engine.initialFloor", cmd.Flags().Lookup("floor"))
	_ = viper.BindPFlag("monitor.listen", cmd.Flags().Lookup("listen"))
	return cmd
}

func runServe(ctx context.Context) error {
	Logger.Info("Starting up...", "version", Version, "build", BuildDate)
	if config.Watch(func() { SlogManager.SetLevel(viper.GetString("logLevel")) }) {
		Logger.Debug("Watching config file", "path", viper.ConfigFileUsed())
	}

	ecfg := config.GetEngineConfig()
	initial, err := floorplan.ParseFloorID(ecfg.InitialFloor)
	if err != nil {
		return fmt.Errorf("engine.initialFloor: %w", err)
	}
	nav, err := loadNavigation(ecfg)
	if err != nil {
		return err
	}
	profiles, err := loadProfiles(ecfg)
	if err != nil {
		return err
	}

	src, closeSrc, err := openSource(ctx, config.GetAssetsConfig())
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSrc(); err != nil {
			Logger.Warn("Failed to close asset source", "error", err)
		}
	}()

	floors, err := loader.New(src, Logger).LoadAll(ctx, floorplan.Floors)
	if err != nil {
		Logger.Warn("Some floors could not be loaded for the store directory", "error", err)
	}
	dir := directory.Build(floors)
	Logger.Info("Store directory built", "stores", dir.Len())

	eng, err := engine.New(engine.Options{
		Device:        headless.New(),
		Source:        src,
		Navigation:    nav,
		Profiles:      profiles,
		Width:         ecfg.Width,
		Height:        ecfg.Height,
		FrameInterval: ecfg.FrameInterval,
		Logger:        Logger,
	})
	if err != nil {
		return err
	}
	activeEngine.Store(eng)
	defer func() {
		activeEngine.Store(nil)
		if err := eng.Dispose(); err != nil {
			Logger.Warn("Engine dispose incomplete", "error", err)
		}
	}()

	var influxManager *influx.Manager
	if viper.GetBool("influx.enabled") {
		backup := filepath.Join(viper.GetString("logsDir"), AppName+"_influx_backup.lp.gz")
		influxManager = influx.New(influx.OptionsFromViper(backup), ZLogger)
		if err := influxManager.Connect(ctx); err != nil {
			Logger.Warn("InfluxDB unavailable", "error", err)
		}
		defer func() { _ = influxManager.Close() }()
	}

	monitorService := monitor.NewService(monitor.Dependencies{
		Stats:      eng.Stats,
		Navigation: nav,
		Influx:     influxManager,
		StatusFile: viper.GetString("monitor.statusFile"),
		Interval:   viper.GetDuration("monitor.interval"),
		Logger:     Logger,
	})
	if err := monitorService.Start(); err != nil {
		return err
	}
	defer monitorService.Stop()
	if addr := viper.GetString("monitor.listen"); addr != "" {
		go func() {
			if err := monitorService.Serve(ctx, addr); err != nil {
				Logger.Error("Monitor server stopped", "error", err)
			}
		}()
	}

	input := engine.Input{Floor: initial}
	bcfg := config.GetBridgeConfig()
	if bcfg.URL != "" {
		disp, err := dispatcher.New(logging.NewDispatcherLogger(ZLogger, "bridge"))
		if err != nil {
			return err
		}
		b, err := bridge.New(bridge.Config{
			URL:            bcfg.URL,
			Secret:         bcfg.Secret,
			Version:        Version,
			StatusInterval: bcfg.StatusInterval,
		}, eng, dir, disp, Logger)
		if err != nil {
			return err
		}
		activeSession.Store(b.Session())
		if err := b.Start(ctx, input); err != nil {
			return fmt.Errorf("failed to start bridge: %w", err)
		}
		defer func() { _ = b.Close() }()
	} else {
		Logger.Warn("No bridge URL configured, running without kiosk input")
		if err := eng.Configure(input, nil); err != nil {
			return err
		}
	}

	err = eng.Run(ctx)
	if errors.Is(err, context.Canceled) {
		Logger.Info("Shutting down")
		return nil
	}
	return err
}
