package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/noah-isme/portal-sabido-api/internal/seed"
)

func seedCmd(a *app) *cobra.Command {
	var (
		file  string
		codes []string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "seed-announcements",
		Short: "Create sample announcements for instructors",
		Long: `Create sample announcements for every instructor, or only those named
with --code. Entries come from --file (YAML with a top level
"announcements" list) or the built-in set. Seeding is skipped when any
announcement exists unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries := seed.Defaults()
			if file != "" {
				loaded, err := seed.LoadFile(file)
				if err != nil {
					return err
				}
				entries = loaded
			}
			return a.with(cmd, func(ctx context.Context, rt *runtime, out io.Writer) error {
				seeder := seed.NewSeeder(rt.stores.Instructors, rt.stores.Announcements, rt.logger)
				result, err := seeder.Run(ctx, entries, seed.Options{Codes: codes, Force: force})
				if err != nil {
					return err
				}
				if a.jsonOut {
					return writeJSON(out, result)
				}
				if result.Skipped {
					fmt.Fprintf(out, "skipped: %d announcements already exist (use --force)\n", result.Existing)
					return nil
				}
				fmt.Fprintf(out, "created %d announcements for %d instructors (%d failed)\n", result.Created, result.Instructors, result.Failed)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with announcements")
	cmd.Flags().StringSliceVar(&codes, "code", nil, "Instructor code to seed (repeatable)")
	cmd.Flags().BoolVar(&force, "force", false, "Seed even when announcements exist")
	return cmd
}
