package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ncboard/internal/views"
)

type filterFlags struct {
	year   string
	qual   string
	search string
}

func (f *filterFlags) register(cmd *cobra.Command, withSearch bool) {
	cmd.Flags().StringVar(&f.year, "year", "", "Restrict to a year (\"all\" for none)")
	cmd.Flags().StringVar(&f.qual, "qual", "", "Restrict to a qualification (\"all\" for none)")
	if withSearch {
		cmd.Flags().StringVar(&f.search, "search", "", "Case-insensitive name search for the listing")
	}
}

// apply overlays the flags the user actually passed onto base.
func (f *filterFlags) apply(cmd *cobra.Command, base views.Filter) views.Filter {
	if cmd.Flags().Changed("year") {
		base.Year = strings.TrimSpace(f.year)
	}
	if cmd.Flags().Changed("qual") {
		base.Qualification = strings.TrimSpace(f.qual)
	}
	if cmd.Flags().Changed("search") {
		base.Search = strings.TrimSpace(f.search)
	}
	return base
}

// dashboardFor computes the views for this call. Filter flags apply to the
// call only; the saved filter is left as is.
func (c *commandContext) dashboardFor(cmd *cobra.Command, flags *filterFlags) (views.Dashboard, views.Filter, error) {
	sess, err := c.loadSession()
	if err != nil {
		return views.Dashboard{}, views.Filter{}, err
	}
	filter := flags.apply(cmd, sess.Filter())
	return views.Build(sess.ActiveRows(), filter), filter, nil
}

func describeFilter(f views.Filter) string {
	parts := []string{"year " + orAll(f.Year), "qualification " + orAll(f.Qualification)}
	if f.Search != "" {
		parts = append(parts, fmt.Sprintf("search %q", f.Search))
	}
	return strings.Join(parts, ", ")
}

func orAll(value string) string {
	if strings.TrimSpace(value) == "" {
		return "all"
	}
	return value
}

func newDashboardCommand(ctx *commandContext) *cobra.Command {
	var flags filterFlags
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show the summary, charts and trend for the working set",
		RunE: func(cmd *cobra.Command, args []string) error {
			dash, filter, err := ctx.dashboardFor(cmd, &flags)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, dash)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, "Filter: "+describeFilter(filter))
			fmt.Fprintln(out)
			printSummary(out, dash.Summary, colorize)
			fmt.Fprintln(out)
			printCounts(out, "Certified by Qualification", "Qualification", dash.ByQualification, colorize)
			fmt.Fprintln(out)
			printCounts(out, "Gender", "Gender", dash.ByGender, colorize)
			fmt.Fprintln(out)
			printTrend(out, dash.Trend, colorize)
			return nil
		},
	}
	flags.register(cmd, false)
	return cmd
}

func newSummaryCommand(ctx *commandContext) *cobra.Command {
	var flags filterFlags
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show candidate, assessed and certified counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			dash, _, err := ctx.dashboardFor(cmd, &flags)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, dash.Summary)
			}
			out := cmd.OutOrStdout()
			printSummary(out, dash.Summary, shouldColorize(out))
			return nil
		},
	}
	flags.register(cmd, false)
	return cmd
}

func newTrendCommand(ctx *commandContext) *cobra.Command {
	var flags filterFlags
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Show year-over-year candidate, assessed and certified counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			dash, _, err := ctx.dashboardFor(cmd, &flags)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, dash.Trend)
			}
			out := cmd.OutOrStdout()
			printTrend(out, dash.Trend, shouldColorize(out))
			return nil
		},
	}
	flags.register(cmd, false)
	return cmd
}

func newListingCommand(ctx *commandContext) *cobra.Command {
	var flags filterFlags
	var expandAll bool
	cmd := &cobra.Command{
		Use:   "listing",
		Short: "Show certificate holders grouped by qualification and year",
		RunE: func(cmd *cobra.Command, args []string) error {
			dash, _, err := ctx.dashboardFor(cmd, &flags)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, dash.Listing)
			}
			sess, err := ctx.loadSession()
			if err != nil {
				return err
			}
			open := map[string]bool{}
			for _, q := range sess.OpenGroups() {
				open[q] = true
			}
			out := cmd.OutOrStdout()
			if len(dash.Listing) == 0 {
				fmt.Fprintln(out, "No certificate holders match the current filter")
				return nil
			}
			colorize := shouldColorize(out)
			for _, group := range dash.Listing {
				total := 0
				for _, yg := range group.Years {
					total += len(yg.Records)
				}
				fmt.Fprintln(out, renderSectionHeader(fmt.Sprintf("%s (%d)", group.Qualification, total), colorize))
				if !expandAll && !open[group.Qualification] {
					continue
				}
				for _, yg := range group.Years {
					rows := make([][]string, 0, len(yg.Records))
					for _, rec := range yg.Records {
						rows = append(rows, []string{rec.Name, rec.DateAssessed, rec.NCNo, rec.School})
					}
					fmt.Fprintln(out, yg.Year)
					fmt.Fprintln(out, renderTable([]string{"Name", "Date", "NC No.", "School"}, rows, nil))
				}
			}
			return nil
		},
	}
	flags.register(cmd, true)
	cmd.Flags().BoolVar(&expandAll, "expand", false, "Expand every qualification group")
	return cmd
}

func printSummary(out io.Writer, s views.Summary, colorize bool) {
	fmt.Fprintln(out, renderSectionHeader("Summary", colorize))
	fmt.Fprintln(out, renderTable(
		[]string{"Candidates", "Assessed", "Certified"},
		[][]string{{strconv.Itoa(s.Candidates), strconv.Itoa(s.Assessed), strconv.Itoa(s.Certified)}},
		[]columnAlignment{alignRight, alignRight, alignRight},
	))
}

func printCounts(out io.Writer, title, keyHeader string, counts []views.Count, colorize bool) {
	fmt.Fprintln(out, renderSectionHeader(title, colorize))
	if len(counts) == 0 {
		fmt.Fprintln(out, "No data")
		return
	}
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{c.Key, strconv.Itoa(c.Count)})
	}
	fmt.Fprintln(out, renderTable([]string{keyHeader, "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func printTrend(out io.Writer, t views.Trend, colorize bool) {
	fmt.Fprintln(out, renderSectionHeader("Trend", colorize))
	if len(t.Years) == 0 {
		fmt.Fprintln(out, "No data")
		return
	}
	rows := make([][]string, 0, len(t.Years))
	for i, year := range t.Years {
		rows = append(rows, []string{
			year,
			strconv.Itoa(t.Candidates[i]),
			strconv.Itoa(t.Assessed[i]),
			strconv.Itoa(t.Certified[i]),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Year", "Candidates", "Assessed", "Certified"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
	))
}

func newFilterCommand(ctx *commandContext) *cobra.Command {
	filterCmd := &cobra.Command{
		Use:   "filter",
		Short: "Show or change the saved dashboard filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.loadSession()
			if err != nil {
				return err
			}
			filter := sess.Filter()
			options := views.FilterOptions(sess.ActiveRows())
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{"filter": filter, "options": options})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Filter: "+describeFilter(filter))
			fmt.Fprintln(out, "Years: "+strings.Join(append([]string{"all"}, options.Years...), ", "))
			fmt.Fprintln(out, "Qualifications: "+strings.Join(append([]string{"all"}, options.Qualifications...), ", "))
			return nil
		},
	}

	var flags filterFlags
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change the saved filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.loadSession()
			if err != nil {
				return err
			}
			sess.SetFilter(flags.apply(cmd, sess.Filter()))
			if err := ctx.saveSession(); err != nil {
				return err
			}
			ctx.status(cmd.OutOrStdout(), "Filter", statusOK, describeFilter(sess.Filter()))
			return nil
		},
	}
	flags.register(setCmd, true)

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Reset the saved filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.loadSession()
			if err != nil {
				return err
			}
			sess.SetFilter(views.Filter{})
			if err := ctx.saveSession(); err != nil {
				return err
			}
			ctx.status(cmd.OutOrStdout(), "Filter", statusOK, describeFilter(views.Filter{}))
			return nil
		},
	}

	filterCmd.AddCommand(setCmd, clearCmd)
	return filterCmd
}

func newGroupCommand(ctx *commandContext) *cobra.Command {
	groupCmd := &cobra.Command{
		Use:   "group",
		Short: "Expand or collapse listing groups",
	}
	groupCmd.AddCommand(&cobra.Command{
		Use:   "open <qualification>",
		Short: "Expand one qualification group, collapsing the others",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.loadSession()
			if err != nil {
				return err
			}
			sess.OpenGroup(strings.TrimSpace(args[0]))
			if err := ctx.saveSession(); err != nil {
				return err
			}
			ctx.status(cmd.OutOrStdout(), "Group", statusOK, args[0]+" expanded")
			return nil
		},
	})
	groupCmd.AddCommand(&cobra.Command{
		Use:   "close",
		Short: "Collapse every listing group",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.loadSession()
			if err != nil {
				return err
			}
			sess.CloseGroups()
			if err := ctx.saveSession(); err != nil {
				return err
			}
			ctx.status(cmd.OutOrStdout(), "Group", statusOK, "all groups collapsed")
			return nil
		},
	})
	return groupCmd
}
