package main

import (
	"fmt"

	"github.com/northwalk/floormap/internal/config"
	"github.com/northwalk/floormap/internal/navigation"
	"github.com/northwalk/floormap/internal/scene"
	"github.com/northwalk/floormap/pkg/floorplan"
)

// loadNavigation returns the configured navigation table, or the embedded
// one when no file is set.
func loadNavigation(cfg config.EngineConfig) (*navigation.Table, error) {
	if cfg.NavigationFile == "" {
		return navigation.Default(), nil
	}
	t, err := navigation.Load(cfg.NavigationFile)
	if err != nil {
		return nil, err
	}
	Logger.Info("Loaded navigation table", "path", cfg.NavigationFile)
	return t, nil
}

// loadProfiles applies the configured floor overrides to the built-in
// profiles. A nil map means the built-ins.
func loadProfiles(cfg config.EngineConfig) (map[floorplan.FloorID]scene.Profile, error) {
	if cfg.FloorsFile == "" {
		return nil, nil
	}
	overrides, err := config.LoadFloors(cfg.FloorsFile)
	if err != nil {
		return nil, err
	}
	profiles, err := scene.Profiles(overrides)
	if err != nil {
		return nil, fmt.Errorf("floor profiles: %w", err)
	}
	Logger.Info("Loaded floor profiles", "path", cfg.FloorsFile, "floors", len(overrides))
	return profiles, nil
}
