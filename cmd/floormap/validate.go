package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/northwalk/floormap/internal/config"
	"github.com/northwalk/floormap/internal/directory"
	"github.com/northwalk/floormap/internal/loader"
	"github.com/northwalk/floormap/pkg/floorplan"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the floor documents and the navigation table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func runValidate(ctx context.Context, w io.Writer) error {
	ecfg := config.GetEngineConfig()
	nav, err := loadNavigation(ecfg)
	if err != nil {
		return err
	}
	src, closeSrc, err := openSource(ctx, config.GetAssetsConfig())
	if err != nil {
		return err
	}
	defer func() { _ = closeSrc() }()

	var problems []error
	ld := loader.New(src, Logger)
	known := make(map[floorplan.FloorID]map[string]bool, len(floorplan.Floors))
	firstFloor := make(map[string]floorplan.FloorID)

	// Ground first, so a duplicate is reported on the floor that loses.
	for i := len(floorplan.Floors) - 1; i >= 0; i-- {
		floor := floorplan.Floors[i]
		res := ld.Fetch(ctx, floor)
		if res.Err != nil {
			problems = append(problems, res.Err)
			fmt.Fprintf(w, "%-17s FAILED %v\n", floor, res.Err)
			continue
		}
		ids := make(map[string]bool, len(res.Features))
		for _, f := range res.Features {
			ids[f.ID] = true
			if !f.Type.IsBusiness() || directory.IsPlaceholder(f.ID) {
				continue
			}
			if prev, ok := firstFloor[f.ID]; ok && prev != floor {
				problems = append(problems, fmt.Errorf("%s/%s: id already used on %s", floor, f.ID, prev))
				continue
			}
			firstFloor[f.ID] = floor
		}
		known[floor] = ids
		for _, s := range res.Skipped {
			problems = append(problems, fmt.Errorf("%s feature %d (%s): %s", floor, s.Index, s.ID, s.Reason))
		}
		fmt.Fprintf(w, "%-17s %4d features %3d skipped %3d routes\n",
			floor, len(res.Features), len(res.Skipped), len(nav.Destinations(floor)))
	}

	if err := nav.Validate(known); err != nil {
		problems = append(problems, err)
	}
	if len(problems) > 0 {
		err := errors.Join(problems...)
		fmt.Fprintf(w, "\n%v\n", err)
		return fmt.Errorf("validation found problems")
	}
	fmt.Fprintln(w, "OK")
	return nil
}
