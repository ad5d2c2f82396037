package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/noah-isme/portal-sabido-api/internal/service"
)

func reconcileCmd(a *app) *cobra.Command {
	var studentID string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Repair display ids and roster links left by interrupted registrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.with(cmd, func(ctx context.Context, rt *runtime, out io.Writer) error {
				svc := service.NewReconcileService(rt.stores.Students, rt.stores.Instructors, rt.publisher, nil, rt.logger)
				if studentID != "" {
					result, err := svc.RepairStudent(ctx, studentID)
					if err != nil {
						return err
					}
					if a.jsonOut {
						return writeJSON(out, result)
					}
					fmt.Fprintf(out, "student %s: display id fixed=%t roster linked=%t orphaned=%t\n",
						result.StudentID, result.DisplayIDFixed, result.RosterLinked, result.Orphaned)
					return nil
				}

				summary, err := svc.RepairAll(ctx)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return writeJSON(out, summary)
				}
				fmt.Fprintf(out, "scanned %d students: %d display ids fixed, %d roster links, %d orphaned, %d failed\n",
					summary.Scanned, summary.DisplayIDsFixed, summary.RosterLinks, summary.Orphaned, summary.Failed)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&studentID, "student", "", "Repair a single student by record id")
	return cmd
}
