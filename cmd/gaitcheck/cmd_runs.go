package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gait.report/internal/db"
)

var runsFlags struct {
	limit int
}

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List recorded runs, or print one as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsFlags.limit, "limit", db.DefaultListLimit, "Maximum runs to list")
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := db.Open(cfg.GetDBPath())
	if err != nil {
		return err
	}
	defer database.Close()

	w := cmd.OutOrStdout()
	if len(args) == 1 {
		rec, err := database.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	runs, err := database.ListRuns(cmd.Context(), runsFlags.limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCREATED\tMODE\tTASK\tSTEPS\tCHECKS\tVIOLATIONS")
	for _, r := range runs {
		task := r.Task
		if task == "" {
			task = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Mode, task, r.NumSteps, r.Checks, r.ViolationCount())
	}
	return tw.Flush()
}
