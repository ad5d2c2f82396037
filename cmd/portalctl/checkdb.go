package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noah-isme/portal-sabido-api/internal/models"
)

type dbReport struct {
	Driver        string                `json:"driver"`
	Instructors   []models.Instructor   `json:"instructors,omitempty"`
	Students      []models.Student      `json:"students,omitempty"`
	Announcements []models.Announcement `json:"announcements,omitempty"`
	Counts        map[string]int        `json:"counts"`
}

func checkDBCmd(a *app) *cobra.Command {
	var countsOnly bool
	cmd := &cobra.Command{
		Use:   "check-db",
		Short: "Count and dump instructors, students and announcements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.with(cmd, func(ctx context.Context, rt *runtime, out io.Writer) error {
				report, err := collectReport(ctx, rt)
				if err != nil {
					return err
				}
				if countsOnly {
					report.Instructors, report.Students, report.Announcements = nil, nil, nil
				}
				if a.jsonOut {
					return writeJSON(out, report)
				}
				return printReport(out, report)
			})
		},
	}
	cmd.Flags().BoolVar(&countsOnly, "counts-only", false, "Print only the record counts")
	return cmd
}

func collectReport(ctx context.Context, rt *runtime) (*dbReport, error) {
	instructors, err := rt.stores.Instructors.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list instructors: %w", err)
	}
	students, err := rt.stores.Students.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	announcements, err := rt.stores.Announcements.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	return &dbReport{
		Driver:        rt.stores.Driver,
		Instructors:   instructors,
		Students:      students,
		Announcements: announcements,
		Counts: map[string]int{
			"instructors":   len(instructors),
			"students":      len(students),
			"announcements": len(announcements),
		},
	}, nil
}

func printReport(out io.Writer, r *dbReport) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "store\t%s\n", r.Driver)
	fmt.Fprintf(w, "instructors\t%d\n", r.Counts["instructors"])
	fmt.Fprintf(w, "students\t%d\n", r.Counts["students"])
	fmt.Fprintf(w, "announcements\t%d\n", r.Counts["announcements"])

	if len(r.Instructors) > 0 {
		fmt.Fprintln(w, "\nCODE\tNAME\tEMAIL\tSTUDENTS")
		for _, in := range r.Instructors {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", in.InstructorCode, in.Name, in.Email, len(in.Students))
		}
	}
	if len(r.Students) > 0 {
		fmt.Fprintln(w, "\nSTUDENT ID\tNAME\tINSTRUCTOR\tBALANCE\tSTATUS")
		for _, st := range r.Students {
			fmt.Fprintf(w, "%s\t%s, %s\t%s\t%.2f\t%s\n", st.StudentID, st.LastName, st.FirstName, st.InstructorReference, st.Balance, st.Status)
		}
	}
	if len(r.Announcements) > 0 {
		fmt.Fprintln(w, "\nCODE\tTITLE\tPRIORITY\tVIEWS\tACKS")
		for _, an := range r.Announcements {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", an.InstructorCode, an.Title, an.Priority, an.TotalViews, an.TotalAcknowledgments)
		}
	}
	return w.Flush()
}
