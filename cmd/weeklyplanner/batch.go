package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"weekly-planner/internal/apperr"
	"weekly-planner/internal/lifecycle"
	"weekly-planner/internal/week"
)

func rolloverCmd() *cobra.Command {
	var (
		userID   uint
		fromFlag string
		toFlag   string
	)
	cmd := &cobra.Command{
		Use:   "rollover",
		Short: "Carry unfinished tasks into the next week and reinstate recurring ones",
		Long: `Runs the week-boundary rollover once.

Without flags every user is rolled from the previous ISO week into the
current one, exactly like the scheduled job. Reruns are safe.

Examples:
  weeklyplanner rollover
  weeklyplanner rollover --user 3 --from 2025-W10 --to 2025-W11`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			current := a.tasks.CurrentWeek()
			from, to, err := resolveWeeks(fromFlag, toFlag, current.Prev(), current)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if userID == 0 {
				reports, err := a.rollover.Run(cmd.Context(), from, to)
				for _, r := range reports {
					printRolloverReport(out, r)
				}
				return err
			}

			report, err := a.engine.RolloverWeek(cmd.Context(), userID, from, to)
			if report != nil {
				printRolloverReport(out, report)
			}
			return err
		},
	}
	cmd.Flags().UintVar(&userID, "user", 0, "user ID (default: all users)")
	cmd.Flags().StringVar(&fromFlag, "from", "", "source week, e.g. 2025-W10 (default: previous week)")
	cmd.Flags().StringVar(&toFlag, "to", "", "target week (default: current week)")
	return cmd
}

func migrateCmd() *cobra.Command {
	var (
		userID   uint
		fromFlag string
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Pull unfinished tasks of an older week into the current one",
		Long: `Moves todo tasks and copies in-progress tasks of --from into the
current week.

Copies start over as todo; the originals keep their status and history.
Running the same migration twice copies in-progress tasks again.

Examples:
  weeklyplanner migrate --user 3 --from 2025-W08`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fromFlag == "" {
				return errors.New("--from is required")
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			current := a.tasks.CurrentWeek()
			from, to, err := resolveWeeks(fromFlag, "", current, current)
			if err != nil {
				return err
			}
			report, err := a.engine.MigrateWeek(cmd.Context(), userID, from, to)
			if report != nil {
				printMigrationReport(cmd.OutOrStdout(), report)
			}
			return err
		},
	}
	cmd.Flags().UintVar(&userID, "user", 0, "user ID")
	cmd.Flags().StringVar(&fromFlag, "from", "", "older week to pull from, e.g. 2025-W08")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// resolveWeeks parses the optional flags, falling back to the defaults.
func resolveWeeks(fromFlag, toFlag string, defFrom, defTo week.Week) (week.Week, week.Week, error) {
	from, to := defFrom, defTo
	var err error
	if fromFlag != "" {
		if from, err = week.Parse(fromFlag); err != nil {
			return week.Week{}, week.Week{}, fmt.Errorf("--from: %w", err)
		}
	}
	if toFlag != "" {
		if to, err = week.Parse(toFlag); err != nil {
			return week.Week{}, week.Week{}, fmt.Errorf("--to: %w", err)
		}
	}
	if !from.Before(to) {
		return week.Week{}, week.Week{}, apperr.NewError(apperr.InvalidArgument, fmt.Sprintf("%s is not before %s", from, to), nil)
	}
	return from, to, nil
}

func printRefs(w io.Writer, label string, refs []lifecycle.TaskRef) {
	if len(refs) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s: %d\n", label, len(refs))
	for _, r := range refs {
		if r.SourceID != 0 {
			fmt.Fprintf(w, "    #%d %s (from #%d)\n", r.TaskID, r.Title, r.SourceID)
			continue
		}
		fmt.Fprintf(w, "    #%d %s\n", r.TaskID, r.Title)
	}
}

func printFailures(w io.Writer, failures []lifecycle.Failure) {
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(w, "  failed: %d\n", len(failures))
	for _, f := range failures {
		fmt.Fprintf(w, "    #%d %v\n", f.TaskID, f.Err)
	}
}

func printRolloverReport(w io.Writer, r *lifecycle.RolloverReport) {
	fmt.Fprintf(w, "user %d rollover %s -> %s\n", r.UserID, r.From, r.To)
	printRefs(w, "moved", r.Moved)
	printRefs(w, "reinstanced", r.Reinstanced)
	printFailures(w, r.Failures)
}

func printMigrationReport(w io.Writer, r *lifecycle.MigrationReport) {
	fmt.Fprintf(w, "user %d migration %s -> %s\n", r.UserID, r.From, r.To)
	printRefs(w, "moved", r.Moved)
	printRefs(w, "copied", r.Copied)
	printFailures(w, r.Failures)
}
