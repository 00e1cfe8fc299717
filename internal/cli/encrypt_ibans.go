package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEncryptIBANsCommand(a *app) *cobra.Command {
	var dryRun, force bool

	cmd := &cobra.Command{
		Use:   "encrypt-ibans",
		Short: "Encrypt IBANs stored in clear text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			report, err := a.runtime.IBANs.EncryptExisting(cmd.Context(), dryRun, force)
			if err != nil {
				fmt.Fprintln(out, errStyle.Render("Fatal: "+err.Error()))
				return err
			}

			if report.DryRun {
				fmt.Fprintln(out, warnStyle.Render("Dry run: no account was modified"))
			}
			fmt.Fprintf(out, "Accounts with an IBAN: %d\n", report.Total)
			fmt.Fprintf(out, "Encrypted:             %d\n", report.Encrypted)
			fmt.Fprintf(out, "Already encrypted:     %d\n", report.AlreadyEncrypted)
			fmt.Fprintf(out, "Skipped:               %d\n", report.Skipped)
			for _, e := range report.Errors {
				fmt.Fprintln(out, errStyle.Render("  "+e))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without writing")
	cmd.Flags().BoolVar(&force, "force", false, "Re-encrypt values that already look encrypted")
	return cmd
}
