// Package cli implements the monbudget batch commands run by the scheduler.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"monbudget/internal/clock"
	"monbudget/internal/services"
)

// Runtime holds what the batch commands operate on.
type Runtime struct {
	Executor       services.RecurrenceExecutor
	Evaluator      services.BudgetAlertEvaluator
	IBANs          services.IBANMigrator
	PushgatewayURL string
}

// Builder wires a Runtime around the given clock. The returned cleanup func
// releases its connections.
type Builder func(clk clock.Clock) (*Runtime, func(), error)

type app struct {
	build   Builder
	flagAt  string
	clock   clock.Clock
	runtime *Runtime
	cleanup func()
}

// NewRootCommand returns the monbudget command tree.
func NewRootCommand(build Builder, base clock.Clock) *cobra.Command {
	a := &app{build: build, clock: base}

	root := &cobra.Command{
		Use:           "monbudget",
		Short:         "Monbudget batch jobs",
		Long:          "Run recurring transactions, budget alert checks and maintenance tasks.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.flagAt, "at", "", "Run as if today were this date (YYYY-MM-DD)")

	root.AddCommand(
		newExecuteRecurrencesCommand(a),
		newCheckBudgetAlertsCommand(a),
		newEncryptIBANsCommand(a),
	)
	// PersistentPostRun is skipped when RunE fails, so release the runtime
	// from a deferred call instead.
	for _, sub := range root.Commands() {
		sub.RunE = a.releasing(sub.RunE)
	}
	return root
}

func (a *app) releasing(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.release()
		return run(cmd, args)
	}
}

func (a *app) release() {
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
}

func (a *app) setup() error {
	if a.flagAt != "" {
		at, err := parseAt(a.flagAt)
		if err != nil {
			return err
		}
		a.clock = clock.Fixed(at)
	}
	rt, cleanup, err := a.build(a.clock)
	if err != nil {
		return err
	}
	a.runtime = rt
	a.cleanup = cleanup
	return nil
}

// parseAt reads a --at value as midday UTC so the calendar day survives
// any zone conversion done downstream.
func parseAt(value string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at date %q: expected YYYY-MM-DD", value)
	}
	return d.Add(12 * time.Hour), nil
}
