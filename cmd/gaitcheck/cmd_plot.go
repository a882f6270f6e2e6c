package main

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gait.report/internal/chart"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/gait/classify"
)

var plotFlags struct {
	mode   string
	task   string
	data   string
	ranges string
	out    string
}

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Render classification charts for step data",
	Long: `Validate step data and write, under --out:

  matrix.png       one cell per (step, feature)
  matrix.html      the same grid as an interactive page
  <feature>.png    every step's trace for one feature, coloured by class`,
	Args: cobra.NoArgs,
	RunE: runPlot,
}

func init() {
	f := plotCmd.Flags()
	f.StringVar(&plotFlags.mode, "mode", "kinematic", "Mode: kinematic or kinetic")
	f.StringVar(&plotFlags.task, "task", "", "Task to validate (default: every task in the data)")
	f.StringVar(&plotFlags.data, "data", "", "Step data JSON file")
	f.StringVar(&plotFlags.ranges, "ranges", "", "Range table YAML (default: from config)")
	f.StringVar(&plotFlags.out, "out", "plots", "Output directory")
	_ = plotCmd.MarkFlagRequired("data")
}

func runPlot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mode, err := gait.ParseMode(plotFlags.mode)
	if err != nil {
		return err
	}
	data, mapping, err := readStepFile(plotFlags.data)
	if err != nil {
		return err
	}
	table, err := loadRanges(cfg, mode, plotFlags.ranges)
	if err != nil {
		return err
	}
	result, err := runValidation(cmd.Context(), data, table, mode, plotFlags.task, mapping)
	if err != nil {
		return err
	}
	matrix, err := classify.Classify(result.Violations, mapping, mode)
	if err != nil {
		return err
	}

	if err := fsys.MkdirAll(plotFlags.out, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := chart.SaveMatrixPNG(matrix, filepath.Join(plotFlags.out, "matrix.png")); err != nil {
		return err
	}

	var page bytes.Buffer
	title := fmt.Sprintf("%s validation: %d steps", mode, data.Steps)
	if err := chart.WriteMatrixHTML(&page, matrix, title); err != nil {
		return err
	}
	if err := fsys.WriteFile(filepath.Join(plotFlags.out, "matrix.html"), page.Bytes(), 0644); err != nil {
		return err
	}

	features := matrix.Features()
	n := len(features)
	if data.Features < n {
		n = data.Features
	}
	for fi := 0; fi < n; fi++ {
		path := filepath.Join(plotFlags.out, features[fi]+".png")
		if err := chart.SaveFeaturePNG(data, matrix.Column(fi), fi, features[fi], path); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d charts to %s\n", n+2, plotFlags.out)
	return nil
}
