package cli

import (
	"fmt"

	"github.com/goliatone/go-fintrack/pagination"
	"github.com/spf13/cobra"
)

func newReportCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Monthly income and expense reports",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get PERIOD",
			Short: "Show the report of a month (YYYY-MM)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				user, err := e.requireUser()
				if err != nil {
					return err
				}
				rep, err := e.api.Report(cmd.Context(), user.ID, args[0])
				if err != nil {
					return err
				}
				return printReport(e.io.Out, e.printer, rep)
			},
		},
		newReportListCommand(e),
		&cobra.Command{
			Use:   "summary START END",
			Short: "Aggregate the reports of a month range",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				user, err := e.requireUser()
				if err != nil {
					return err
				}
				summary, err := e.api.Summary(cmd.Context(), user.ID, args[0], args[1])
				if err != nil {
					return err
				}
				return printSummary(e.io.Out, e.printer, summary)
			},
		},
		&cobra.Command{
			Use:   "delete PERIOD",
			Short: "Delete the report of a month",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				user, err := e.requireUser()
				if err != nil {
					return err
				}
				if err := e.api.DeleteReport(cmd.Context(), user.ID, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(e.io.Out, "Deleted report %s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "recalculate PERIOD",
			Short: "Rebuild the report of a month from its transactions",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				user, err := e.requireUser()
				if err != nil {
					return err
				}
				rep, err := e.api.RecalculateReport(cmd.Context(), user.ID, args[0])
				if err != nil {
					return err
				}
				return printReport(e.io.Out, e.printer, rep)
			},
		},
	)
	return cmd
}

func newReportListCommand(e *env) *cobra.Command {
	var page pagination.Request
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports, latest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := e.requireUser()
			if err != nil {
				return err
			}
			result, err := e.api.Reports(cmd.Context(), user.ID, page)
			if err != nil {
				return err
			}
			if err := printReports(e.io.Out, e.printer, result.Content); err != nil {
				return err
			}
			fmt.Fprintf(e.io.Out, "page %d of %d, %d reports\n", result.Page+1, max(result.TotalPages, 1), result.TotalElements)
			return nil
		},
	}
	addPageFlags(cmd, &page)
	return cmd
}
