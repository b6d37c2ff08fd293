package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"category-import-backend/internal/models"

	"github.com/spf13/cobra"
)

type importOutput struct {
	Command    string                 `json:"command"`
	DurationMS int64                  `json:"duration_ms"`
	Import     *models.CategoryImport `json:"import"`
	Skips      []models.SkipRecord    `json:"skips,omitempty"`
}

func newImportCmd(root *rootOptions) *cobra.Command {
	var showSkips bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import categories from a CSV or XLSX file and wait for it to finish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer f.Close()

			application, cleanup, err := root.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			start := time.Now()
			imp, err := application.Service.CreateImport(cmd.Context(), filepath.Base(path), f)
			if err != nil {
				return err
			}
			imp, err = application.Service.Run(cmd.Context(), imp.ID)
			if err != nil {
				return err
			}

			out := importOutput{
				Command:    "import",
				DurationMS: time.Since(start).Milliseconds(),
				Import:     imp,
			}
			if showSkips {
				out.Skips, err = application.Service.Skips(cmd.Context(), imp.ID)
				if err != nil {
					return err
				}
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().BoolVar(&showSkips, "show-skips", false, "Include every skipped row in the output")
	return cmd
}

func newRebuildTreeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild-tree",
		Short: "Recompute the nested-set encoding of the category tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cleanup, err := root.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			start := time.Now()
			if err := application.Service.RebuildTree(cmd.Context()); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"command":     "rebuild-tree",
				"duration_ms": time.Since(start).Milliseconds(),
			})
		},
	}
}
