package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"monbudget/internal/clock"
	"monbudget/internal/logger"
	"monbudget/internal/metrics"
	"monbudget/internal/services"
)

const jobExecuteRecurrences = "execute_recurrences"

func newExecuteRecurrencesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "execute-recurrences",
		Short: "Book one occurrence of every due recurrence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.executeRecurrences(cmd)
		},
	}
}

func (a *app) executeRecurrences(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	today := clock.Today(a.clock)

	fmt.Fprintln(out, renderBanner("RECURRING TRANSACTIONS - "+today.Format(time.DateOnly)))
	fmt.Fprintln(out)

	result, err := a.runtime.Executor.ExecuteAllPendingRecurrences(cmd.Context())
	if err != nil {
		fmt.Fprintln(out, errStyle.Render("Fatal: "+err.Error()))
		return err
	}

	printExecutionResult(out, result)
	a.pushMetrics(jobExecuteRecurrences)
	return nil
}

func printExecutionResult(out io.Writer, result *services.ExecutionResult) {
	fmt.Fprintln(out, headerStyle.Render("Summary"))
	fmt.Fprintf(out, "  Checked:  %d\n", result.TotalChecked)
	fmt.Fprintf(out, "  Executed: %d\n", result.TotalExecuted)
	fmt.Fprintf(out, "  Skipped:  %d\n", result.TotalSkipped)
	fmt.Fprintf(out, "  Errors:   %d\n", len(result.Errors))
	fmt.Fprintln(out)

	if result.TotalExecuted > 0 {
		fmt.Fprintln(out, headerStyle.Render("Executed"))
		for _, o := range result.Outcomes {
			if o.Status != services.OutcomeExecuted {
				continue
			}
			fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("  [User:%s] Recurrence #%s executed on %s -> %s",
				o.UserID, o.RecurrenceID, o.Date.Format(time.DateOnly), o.Label)))
		}
		fmt.Fprintln(out)
	}

	if result.TotalSkipped > 0 {
		fmt.Fprintln(out, headerStyle.Render("Skipped"))
		for _, o := range result.Outcomes {
			if o.Status != services.OutcomeSkipped {
				continue
			}
			fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("  [User:%s] Recurrence #%s skipped: %s",
				o.UserID, o.RecurrenceID, o.Reason)))
		}
		fmt.Fprintln(out)
	}

	if len(result.Errors) > 0 {
		fmt.Fprintln(out, headerStyle.Render("Errors"))
		payload, err := json.MarshalIndent(result.Errors, "", "  ")
		if err != nil {
			logger.Get().Errorw("Failed to encode recurrence errors", "error", err)
		} else {
			fmt.Fprintln(out, errStyle.Render(string(payload)))
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, executionVerdict(result))
}

func executionVerdict(result *services.ExecutionResult) string {
	switch {
	case result.TotalExecuted > 0:
		return okStyle.Render(fmt.Sprintf("Done: %d recurring transaction(s) executed", result.TotalExecuted))
	case result.TotalChecked == 0 && len(result.Errors) == 0:
		return mutedStyle.Render("Nothing to do: no recurrence is due")
	case result.TotalSkipped > 0 && len(result.Errors) == 0:
		return mutedStyle.Render("All due recurrences were already executed today")
	default:
		return warnStyle.Render("No recurrence executed, see errors above")
	}
}

func (a *app) pushMetrics(job string) {
	if err := metrics.Push(a.runtime.PushgatewayURL, job); err != nil {
		logger.Get().Warnw("Failed to push metrics", "job", job, "error", err)
	}
}
