package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gait.report/internal/db"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/gait/classify"
	"github.com/banshee-data/gait.report/internal/gait/tuning"
	"github.com/banshee-data/gait.report/internal/gait/validate"
)

var validateFlags struct {
	mode   string
	task   string
	data   string
	ranges string
	record bool
	json   bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check step data against a range table",
	Long: `Validate every step mapped to --task (or every task when --task is empty)
at the representative phases and report each out-of-range value.

Usage:
  gaitcheck validate --mode kinematic --task level_walking --data steps.json
  gaitcheck validate --mode kinetic --data steps.json --ranges kinetic.yaml --record`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.StringVar(&validateFlags.mode, "mode", "kinematic", "Mode: kinematic or kinetic")
	f.StringVar(&validateFlags.task, "task", "", "Task to validate (default: every task in the data)")
	f.StringVar(&validateFlags.data, "data", "", "Step data JSON file")
	f.StringVar(&validateFlags.ranges, "ranges", "", "Range table YAML (default: from config)")
	f.BoolVar(&validateFlags.record, "record", false, "Store the run in the run history database")
	f.BoolVar(&validateFlags.json, "json", false, "Print the result as JSON")
	_ = validateCmd.MarkFlagRequired("data")
}

type validateOutput struct {
	RunID      string               `json:"run_id,omitempty"`
	Mode       gait.Mode            `json:"mode"`
	Checks     int                  `json:"checks"`
	Violations []validate.Violation `json:"violations"`
	Overview   []classify.Color     `json:"overview"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mode, err := gait.ParseMode(validateFlags.mode)
	if err != nil {
		return err
	}
	data, mapping, err := readStepFile(validateFlags.data)
	if err != nil {
		return err
	}
	table, err := loadRanges(cfg, mode, validateFlags.ranges)
	if err != nil {
		return err
	}
	result, err := runValidation(cmd.Context(), data, table, mode, validateFlags.task, mapping)
	if err != nil {
		return err
	}
	overview, err := classify.ClassifyOverview(result.Violations, mapping, mode)
	if err != nil {
		return err
	}

	out := validateOutput{Mode: mode, Checks: result.Checks, Violations: result.Violations, Overview: overview}
	if out.Violations == nil {
		out.Violations = []validate.Violation{}
	}

	if validateFlags.record {
		database, err := db.Open(cfg.GetDBPath())
		if err != nil {
			return fmt.Errorf("open run history: %w", err)
		}
		defer database.Close()
		report := tuning.NewAggregator(cfg.GetBufferFactor()).Export(result.Violations, mapping)
		out.RunID, err = database.RecordRun(cmd.Context(), db.RunRecord{
			Mode:       mode,
			Task:       validateFlags.task,
			NumSteps:   data.Steps,
			Checks:     result.Checks,
			Mapping:    mapping,
			Violations: result.Violations,
			Targets:    report.Targets,
		})
		if err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	if validateFlags.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	return writeValidateText(w, out, data.Steps)
}

func writeValidateText(w io.Writer, out validateOutput, steps int) error {
	failed := 0
	for _, c := range out.Overview {
		if c != classify.Valid {
			failed++
		}
	}
	fmt.Fprintf(w, "mode=%s steps=%d checks=%d violations=%d failed_steps=%d\n",
		out.Mode, steps, out.Checks, len(out.Violations), failed)
	if out.RunID != "" {
		fmt.Fprintf(w, "recorded run %s\n", out.RunID)
	}
	if len(out.Violations) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tTASK\tPHASE\tVARIABLE\tREASON")
	for _, v := range out.Violations {
		step := "-"
		if s, ok := v.StepIndex(); ok {
			step = fmt.Sprint(s)
		}
		fmt.Fprintf(tw, "%s\t%s\t%g%%\t%s\t%s\n", step, v.Task, v.Phase, v.Variable, v.Reason)
	}
	return tw.Flush()
}
