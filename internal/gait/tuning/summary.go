package tuning

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteSummary writes a tab-aligned, human-readable view of report.
func WriteSummary(w io.Writer, report OptimizationReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Total failures:\t%d\n", report.TotalFailures)
	fmt.Fprintf(tw, "Buffer factor:\t%.2f\n\n", report.BufferFactor)

	fmt.Fprintln(tw, "TASK\tSTEPS\tFAILED\tPASS RATE")
	for _, pr := range report.TaskPassRates {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f%%\n", pr.Task, pr.TotalSteps, pr.FailedSteps, pr.PassRate*100)
	}

	if len(report.PhaseSeverity) > 0 {
		fmt.Fprintln(tw, "\nPHASE\tFAILURES")
		for _, pc := range report.PhaseSeverity {
			fmt.Fprintf(tw, "%g%%\t%d\n", pc.Phase, pc.Failures)
		}
	}

	if len(report.VariableImpact) > 0 {
		fmt.Fprintln(tw, "\nVARIABLE\tFAILURES")
		for _, vc := range report.VariableImpact {
			fmt.Fprintf(tw, "%s\t%d\n", vc.Variable, vc.Failures)
		}
	}

	if len(report.Targets) > 0 {
		fmt.Fprintln(tw, "\nTASK\tVARIABLE\tPHASE\tN\tCURRENT\tOBSERVED\tSUGGESTED")
		for _, t := range report.Targets {
			fmt.Fprintf(tw, "%s\t%s\t%g%%\t%d\t[%.3f, %.3f]\t[%.3f, %.3f]\t[%.3f, %.3f]\n",
				t.Task, t.Variable, t.Phase, t.FailureCount,
				t.CurrentRange.Min, t.CurrentRange.Max,
				t.Stats.Min, t.Stats.Max,
				t.SuggestedRange.Min, t.SuggestedRange.Max)
		}
	}
	return tw.Flush()
}
