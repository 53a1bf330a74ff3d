package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"chronicle/internal/audit"
)

func auditCmd() *cobra.Command {
	var slug string
	var threshold float64
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Run consistency checks against a world",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			world, err := a.world(ctx, slug)
			if err != nil {
				return err
			}
			if threshold == 0 {
				threshold = a.cfg.Audit.DuplicateThreshold
			}

			report, err := audit.Run(ctx, a.db, world, audit.Options{DuplicateThreshold: threshold})
			if err != nil {
				return err
			}

			var errorIssues, warnIssues []audit.Issue
			for _, issue := range report.Issues {
				switch issue.Severity {
				case audit.SeverityError:
					errorIssues = append(errorIssues, issue)
				case audit.SeverityWarn:
					warnIssues = append(warnIssues, issue)
				}
			}

			out := cmd.OutOrStdout()
			if len(errorIssues) == 0 && len(warnIssues) == 0 {
				fmt.Fprintln(out, "No issues found.")
				return nil
			}
			if len(errorIssues) > 0 {
				fmt.Fprintf(out, "Errors (%d):\n", len(errorIssues))
				printIssues(out, errorIssues)
			}
			if len(warnIssues) > 0 {
				if len(errorIssues) > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "Warnings (%d):\n", len(warnIssues))
				printIssues(out, warnIssues)
			}

			if len(errorIssues) > 0 {
				return fmt.Errorf("audit found errors")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&slug, "world", "", "World slug")
	cmd.Flags().Float64Var(&threshold, "duplicate-threshold", 0, "Similarity at which entities are reported as duplicates")
	return cmd
}

func printIssues(out io.Writer, issues []audit.Issue) {
	for _, issue := range issues {
		subject := fmt.Sprintf("%s %d", issue.Kind, issue.ID)
		if issue.Name != "" {
			subject = fmt.Sprintf("%s %q", subject, issue.Name)
		}
		fmt.Fprintf(out, "  - %s: %s (%s)\n", subject, issue.Message, issue.Code)
	}
}
