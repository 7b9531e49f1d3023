package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/northwalk/floormap/internal/config"
	"github.com/northwalk/floormap/internal/engine"
	"github.com/northwalk/floormap/internal/render/raster"
	"github.com/northwalk/floormap/pkg/floorplan"
)

// settleFrames covers a full route reveal and its pulse.
const settleFrames = 240

type snapshotOptions struct {
	floor     string
	selected  string
	showRoute bool
	out       string
	width     int
	height    int
	timeout   time.Duration
}

func newSnapshotCmd() *cobra.Command {
	var opts snapshotOptions
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Render one floor to a PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.floor, "floor", "ground", "floor to render")
	f.StringVar(&opts.selected, "select", "", "id to highlight")
	f.BoolVar(&opts.showRoute, "route", false, "draw the route to the selected id")
	f.StringVarP(&opts.out, "out", "o", "", "output file, defaults to <floor>.png")
	f.IntVar(&opts.width, "width", 1280, "image width in pixels")
	f.IntVar(&opts.height, "height", 720, "image height in pixels")
	f.DurationVar(&opts.timeout, "timeout", 30*time.Second, "time allowed for loading the floor")
	return cmd
}

func runSnapshot(ctx context.Context, opts snapshotOptions) error {
	floor, err := floorplan.ParseFloorID(opts.floor)
	if err != nil {
		return err
	}
	if opts.out == "" {
		opts.out = string(floor) + ".png"
	}

	ecfg := config.GetEngineConfig()
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
	defer func() { _ = closeSrc() }()

	dev := raster.New()
	eng, err := engine.New(engine.Options{
		Device:     dev,
		Source:     src,
		Navigation: nav,
		Profiles:   profiles,
		Width:      opts.width,
		Height:     opts.height,
		Logger:     Logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = eng.Dispose() }()

	in := engine.Input{Floor: floor, SelectedID: opts.selected, ShowRoute: opts.showRoute}
	if err := eng.Configure(in, nil); err != nil {
		return err
	}
	if err := stepUntilReady(ctx, eng, opts.timeout); err != nil {
		return err
	}
	if opts.showRoute && opts.selected != "" {
		for i := 0; i < settleFrames; i++ {
			if err := eng.Step(); err != nil {
				return err
			}
		}
	}

	out, err := os.Create(opts.out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", opts.out, err)
	}
	if err := dev.EncodePNG(out); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	st := eng.Stats()
	Logger.Info("Snapshot written", "path", opts.out, "entities", st.Entities, "frames", st.Frames)
	return nil
}

// stepUntilReady drives frames until the floor document and every texture
// have arrived.
func stepUntilReady(ctx context.Context, eng *engine.Engine, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if err := eng.Step(); err != nil {
			return err
		}
		st := eng.Stats()
		if st.Floor != "" && !st.Loading && st.PendingTextures == 0 && st.Queued == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("floor %s not ready after %s", st.Floor, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(engine.DefaultFrameInterval):
		}
	}
}
