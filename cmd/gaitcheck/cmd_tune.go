package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/gait/tuning"
	"github.com/banshee-data/gait.report/internal/rangestore"
)

var tuneFlags struct {
	mode       string
	task       string
	data       string
	ranges     string
	buffer     float64
	suggestOut string
	json       bool
}

var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Aggregate failures and suggest range adjustments",
	Long: `Validate step data, group the failures by (task, variable, phase) and
propose widened ranges from the 5th/95th percentiles of the failing values.

With --suggest-out the current table, with every suggestion applied, is
written as a new range YAML file. The input table is never modified.`,
	Args: cobra.NoArgs,
	RunE: runTune,
}

func init() {
	f := tuneCmd.Flags()
	f.StringVar(&tuneFlags.mode, "mode", "kinematic", "Mode: kinematic or kinetic")
	f.StringVar(&tuneFlags.task, "task", "", "Task to tune (default: every task in the data)")
	f.StringVar(&tuneFlags.data, "data", "", "Step data JSON file")
	f.StringVar(&tuneFlags.ranges, "ranges", "", "Range table YAML (default: from config)")
	f.Float64Var(&tuneFlags.buffer, "buffer-factor", 0, "Buffer factor >= 1 (default: from config)")
	f.StringVar(&tuneFlags.suggestOut, "suggest-out", "", "Write the adjusted range table to this YAML file")
	f.BoolVar(&tuneFlags.json, "json", false, "Print the report as JSON")
	_ = tuneCmd.MarkFlagRequired("data")
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mode, err := gait.ParseMode(tuneFlags.mode)
	if err != nil {
		return err
	}
	data, mapping, err := readStepFile(tuneFlags.data)
	if err != nil {
		return err
	}
	table, err := loadRanges(cfg, mode, tuneFlags.ranges)
	if err != nil {
		return err
	}
	result, err := runValidation(cmd.Context(), data, table, mode, tuneFlags.task, mapping)
	if err != nil {
		return err
	}

	bf := cfg.GetBufferFactor()
	if tuneFlags.buffer != 0 {
		bf = tuneFlags.buffer
	}
	report := tuning.NewAggregator(bf).Export(result.Violations, mapping)

	if tuneFlags.suggestOut != "" {
		tuned, err := tuning.ApplySuggestions(table, report)
		if err != nil {
			return err
		}
		if err := rangestore.Save(fsys, tuneFlags.suggestOut, tuned); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d suggested ranges to %s\n", len(report.Targets), tuneFlags.suggestOut)
	}

	w := cmd.OutOrStdout()
	if tuneFlags.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return tuning.WriteSummary(w, report)
}
