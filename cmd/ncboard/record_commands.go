package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ncboard/internal/mutation"
	"ncboard/internal/record"
)

type refFlags struct {
	id  string
	row int
}

func (f *refFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.id, "id", "", "Candidate store id of the record")
	cmd.Flags().IntVar(&f.row, "row", 0, "Working-set row number as listed by the records command")
}

func (f *refFlags) ref() (mutation.Ref, error) {
	if id := strings.TrimSpace(f.id); id != "" {
		return mutation.ByID(id), nil
	}
	if f.row <= 0 {
		return mutation.Ref{}, errors.New("specify --id or --row")
	}
	return mutation.ByPosition(f.row - 1), nil
}

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List the working set",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.loadSession()
			if err != nil {
				return err
			}
			recs := sess.Records()
			if ctx.jsonOutput() {
				return writeJSON(cmd, recs)
			}
			if len(recs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Working set is empty; run `ncboard import` or `ncboard refresh`")
				return nil
			}
			out := cmd.OutOrStdout()
			tbl := newDataTable("#", "ID", "Name", "Qualification", "Date", "Result", "NC No.", "State").
				withAlign(alignRight, alignRight).
				withColor(shouldColorize(out))
			for i, rec := range recs {
				hidden := sess.IsHidden(i)
				if hidden && !all {
					continue
				}
				state := "store"
				if !rec.HasID() {
					state = "local"
				}
				cells := []string{
					strconv.Itoa(i + 1), rec.ID, rec.Name, rec.Qualification, rec.DateAssessed,
					rec.Result, rec.NCNo, state,
				}
				if hidden {
					cells[len(cells)-1] = state + ",hidden"
					tbl.addMuted(cells...)
					continue
				}
				tbl.add(cells...)
			}
			fmt.Fprintln(out, tbl.render())
			if n := sess.HiddenCount(); n > 0 && !all {
				fmt.Fprintf(out, "%d hidden record(s) not shown (use --all)\n", n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include hidden records")
	return cmd
}

func parseAssignments(values []string) (record.Update, error) {
	pairs := make(map[string]string, len(values))
	for _, raw := range values {
		key, value, ok := strings.Cut(raw, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return record.Update{}, fmt.Errorf("invalid --set %q (want field=value)", raw)
		}
		pairs[strings.TrimSpace(key)] = value
	}
	return record.ParseUpdate(pairs)
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var ref refFlags
	var sets []string
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit a record in the working set, the cache and the candidate store",
		Example: `  ncboard edit --id 12 --set result=Passed
  ncboard edit --row 3 --set "date assessed=2024-05-02" --set school="North HS"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := ref.ref()
			if err != nil {
				return err
			}
			update, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			if update.IsEmpty() {
				return errors.New("nothing to change; pass at least one --set field=value")
			}
			coord, _, err := ctx.coordinator()
			if err != nil {
				return err
			}
			outcome, err := coord.Edit(cmd.Context(), target, update)
			if err != nil {
				return err
			}
			return ctx.reportOutcome(cmd, "Edit", outcome)
		},
	}
	ref.register(cmd)
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Field assignment field=value (repeatable)")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var ref refFlags
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a record from the candidate store and the working set",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := ref.ref()
			if err != nil {
				return err
			}
			coord, _, err := ctx.coordinator()
			if err != nil {
				return err
			}
			outcome, err := coord.Delete(cmd.Context(), target)
			if err != nil {
				return err
			}
			return ctx.reportOutcome(cmd, "Delete", outcome)
		},
	}
	ref.register(cmd)
	return cmd
}

// reportOutcome saves the session and prints the mutation result. A change
// the store rejected is returned as an error.
func (c *commandContext) reportOutcome(cmd *cobra.Command, label string, outcome mutation.Outcome) error {
	if outcome.Status == mutation.NotPersisted {
		return fmt.Errorf("%s not saved: %s", strings.ToLower(label), c.describeRemoteError(outcome.Err))
	}
	if err := c.saveSession(); err != nil {
		return err
	}
	if c.jsonOutput() {
		return writeJSON(cmd, map[string]any{
			"status": outcome.Status.String(),
			"id":     outcome.ID,
			"record": outcome.Record,
			"error":  errorText(outcome.Err),
		})
	}
	out := cmd.OutOrStdout()
	switch outcome.Status {
	case mutation.Persisted:
		c.status(out, label, statusOK, "saved to candidate store (id "+outcome.ID+")")
	case mutation.LocalOnly:
		msg := "applied locally only"
		if outcome.Err != nil {
			msg += ": " + c.describeRemoteError(outcome.Err)
		}
		c.status(out, label, statusWarn, msg)
	}
	return nil
}

func newHideCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "hide <row>...",
		Short: "Hide records from the dashboard views without deleting them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, sess, err := ctx.coordinator()
			if err != nil {
				return err
			}
			// Resolve every row first so earlier hides cannot shift later ones.
			positions := make([]int, 0, len(args))
			for _, arg := range args {
				row, err := strconv.Atoi(arg)
				if err != nil || row <= 0 || row > sess.Len() {
					return fmt.Errorf("invalid row %q", arg)
				}
				positions = append(positions, row-1)
			}
			for _, pos := range positions {
				if err := coord.Hide(pos); err != nil {
					return err
				}
			}
			if err := ctx.saveSession(); err != nil {
				return err
			}
			ctx.status(cmd.OutOrStdout(), "Hide", statusOK, fmt.Sprintf("%d hidden in total", sess.HiddenCount()))
			return nil
		},
	}
}

func newUnhideCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unhide",
		Short: "Show every hidden record again",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.loadSession()
			if err != nil {
				return err
			}
			sess.Unhide()
			if err := ctx.saveSession(); err != nil {
				return err
			}
			ctx.status(cmd.OutOrStdout(), "Unhide", statusOK, "all records visible")
			return nil
		},
	}
}
