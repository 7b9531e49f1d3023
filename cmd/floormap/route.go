package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/northwalk/floormap/internal/config"
	"github.com/northwalk/floormap/internal/geo"
	"github.com/northwalk/floormap/internal/route"
	"github.com/northwalk/floormap/pkg/floorplan"
)

type routeOutput struct {
	Floor floorplan.FloorID `json:"floor"`
	ID    string            `json:"id"`
	Paths []routePath       `json:"paths"`
}

type routePath struct {
	Length float64          `json:"length"`
	Points []floorplan.Vec2 `json:"points"`
}

func newRouteCmd() *cobra.Command {
	var waypoints string
	cmd := &cobra.Command{
		Use:   "route <floor> [id]",
		Short: "Print the resampled route points to a destination",
		Long: `Print the resampled route points to a destination from the navigation table.
With --waypoints the given authoring coordinates are resampled instead, which
helps when drawing a new route.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 2 {
				id = args[1]
			}
			return runRoute(cmd.OutOrStdout(), args[0], id, waypoints)
		},
	}
	cmd.Flags().StringVar(&waypoints, "waypoints", "", `ad-hoc route as "[[x,y],...]" in authoring coordinates`)
	return cmd
}

func runRoute(w io.Writer, floorArg, id, waypoints string) error {
	floor, err := floorplan.ParseFloorID(floorArg)
	if err != nil {
		return err
	}

	var routes floorplan.NavigationPath
	if waypoints != "" {
		pts, err := geo.ParseWaypoints(waypoints)
		if err != nil {
			return err
		}
		routes = floorplan.NavigationPath{pts}
	} else {
		if id == "" {
			return fmt.Errorf("route needs a destination id or --waypoints")
		}
		nav, err := loadNavigation(config.GetEngineConfig())
		if err != nil {
			return err
		}
		var ok bool
		if routes, ok = nav.Lookup(floor, id); !ok {
			return fmt.Errorf("no route to %q on %s", id, floor)
		}
	}

	out := routeOutput{Floor: floor, ID: id}
	for i, pts := range routes {
		length, err := geo.PathLength(pts)
		if err != nil {
			return fmt.Errorf("route %d: %w", i, err)
		}
		out.Paths = append(out.Paths, routePath{
			Length: length,
			Points: geo.Resample(pts, route.Spacing, route.MinSegments),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
