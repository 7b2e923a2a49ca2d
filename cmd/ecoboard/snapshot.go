package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/ecoboard"
	"github.com/jpalmerr/ecoboard/config"
	"github.com/jpalmerr/ecoboard/internal/chart"
)

// snapshotCmd runs one polling cycle and writes every panel to disk.
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Render every panel once and write it to files",
	Long: `Run a single polling cycle and write the rendered panels to a directory.

Chart panels are written as SVG (<panel>.svg), the metrics panel as an HTML
fragment (metrics-container.html). Panels whose upstream request fails are
skipped and reported; the command then exits with status 1.

Example:
  ecoboard snapshot -o ./out
  ecoboard snapshot -c config.yaml -o ./out --width 1200 --height 600`,
	RunE: runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)

	addConfigFlags(snapshotCmd)
	snapshotCmd.Flags().StringP("output", "o", ".", "directory to write panels to")
	snapshotCmd.Flags().Int("width", 900, "SVG width in pixels")
	snapshotCmd.Flags().Int("height", 450, "SVG height in pixels")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dir, _ := cmd.Flags().GetString("output")
	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")
	if width < 100 || height < 100 {
		return fmt.Errorf("width and height must be at least 100, got %dx%d", width, height)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	opts := append(config.BuildOptions(cfg), ecoboard.WithLogger(newLogger(false)))
	d, err := ecoboard.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create EcoBoard: %w", err)
	}

	tickErr := d.Tick(cmd.Context())

	out := cmd.OutOrStdout()
	for _, p := range d.Panels() {
		path, err := writePanel(dir, p, width, height)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", path)
	}

	if tickErr != nil {
		return fmt.Errorf("some panels failed to render: %w", tickErr)
	}
	return nil
}

// writePanel writes one panel and returns the file path.
func writePanel(dir string, p ecoboard.Panel, width, height int) (string, error) {
	if p.Kind == ecoboard.KindHTML {
		path := filepath.Join(dir, p.ID+".html")
		if err := os.WriteFile(path, []byte(p.HTML), 0o644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}
		return path, nil
	}

	path := filepath.Join(dir, p.ID+".svg")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	err = chart.RenderSVG(f, *p.Figure, width, height)
	if errors.Is(err, chart.ErrNothingToPlot) {
		// an empty dataset still yields a file so the set is complete
		_, err = fmt.Fprintf(f, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"></svg>`, width, height)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", p.ID, err)
	}
	return path, nil
}
