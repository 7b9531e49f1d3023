package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/northwalk/floormap/internal/config"
	"github.com/northwalk/floormap/internal/storage"
	"github.com/northwalk/floormap/internal/storage/file"
)

func newImportCmd() *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Copy floor documents and assets from a directory into the configured source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), cmd.OutOrStdout(), args[0], prefix)
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "only import keys with this prefix")
	return cmd
}

func runImport(ctx context.Context, w io.Writer, dir, prefix string) error {
	cfg := config.GetAssetsConfig()
	dst, closeDst, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeDst() }()

	writable, ok := dst.(storage.Writable)
	if !ok {
		return fmt.Errorf("asset source %q is read-only", cfg.Type)
	}

	from := file.New(dir)
	if err := from.Init(); err != nil {
		return err
	}
	n, err := copyKeys(ctx, from, writable, prefix)
	if err != nil {
		return err
	}
	Logger.Info("Import complete", "keys", n, "from", dir, "to", cfg.Type)
	fmt.Fprintf(w, "imported %d keys into %s\n", n, cfg.Type)
	return nil
}
