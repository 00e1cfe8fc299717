package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"monbudget/internal/services"
)

const jobCheckBudgetAlerts = "check_budget_alerts"

func newCheckBudgetAlertsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check-budget-alerts",
		Short: "Evaluate budgets and record threshold notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.checkBudgetAlerts(cmd)
		},
	}
}

func (a *app) checkBudgetAlerts(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "[%s] Starting budget alert check\n", a.clock.Now().Format(time.DateTime))

	result, err := a.runtime.Evaluator.CheckAllBudgets(cmd.Context())
	if err != nil {
		fmt.Fprintln(out, errStyle.Render("Fatal: "+err.Error()))
		return err
	}

	printBudgetCheckResult(out, result)
	a.pushMetrics(jobCheckBudgetAlerts)
	return nil
}

func printBudgetCheckResult(out io.Writer, result *services.BudgetCheckResult) {
	fmt.Fprintf(out, "Found %d user(s) with alerts enabled\n\n", result.UsersChecked)

	for _, u := range result.Users {
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Checking budgets for user %s (%s)", u.Email, u.UserID)))
		for _, b := range u.Budgets {
			if len(b.Alerts) == 0 {
				continue
			}
			fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("  - Budget '%s': %.2f%% - %d alert(s)",
				b.BudgetName, b.Percentage, len(b.Alerts))))
		}
		fmt.Fprintf(out, "  Result: %d budget(s) checked, %d alert(s) triggered\n\n", u.BudgetsChecked, u.AlertsTriggered)
	}

	for _, e := range result.Errors {
		line := fmt.Sprintf("Error for user %s: %s", e.UserID, e.Error)
		if e.BudgetID != "" {
			line = fmt.Sprintf("Error for user %s, budget %s: %s", e.UserID, e.BudgetID, e.Error)
		}
		fmt.Fprintln(out, errStyle.Render(line))
	}
	if len(result.Errors) > 0 {
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("Done: %d budget(s) checked, %d alert(s) triggered",
		result.BudgetsChecked, result.AlertsTriggered)))
}
