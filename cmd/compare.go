package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/londongap/internal/cli"
	"github.com/theirongolddev/londongap/internal/model"
	"github.com/theirongolddev/londongap/internal/series"
)

var flagCompareBorough string

var compareCmd = &cobra.Command{
	Use:   "compare YEAR1 YEAR2",
	Short: "Compare house price and income between two years",
	Args:  cobra.ExactArgs(2),
	RunE:  runCompare,
}

func init() {
	compareCmd.Flags().StringVarP(&flagCompareBorough, "borough", "b", "", "Borough to compare (default: London overview)")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	sel := series.Selection{}
	for _, a := range args {
		y, err := strconv.Atoi(a)
		if err != nil {
			return fmt.Errorf("invalid year %q", a)
		}
		sel = series.SelectYear(sel, y)
	}
	from, to, ok := sel.Range()
	if !ok {
		return errors.New("pick two different years")
	}

	e, err := newEnv("")
	if err != nil {
		return err
	}
	defer e.Close()

	_, chart, err := loadChart(cmd, e, flagCompareBorough, false)
	if err != nil {
		return err
	}

	in, err := series.ComputeInsight(series.InsightSeriesOf(chart), from, to)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("%s  %d → %d", chart.Title, from, to)))
	fmt.Println()

	var rows [][]string
	for _, m := range model.Metrics {
		c := in.Metric(m)
		rows = append(rows, []string{m.Label(), cli.FormatMaybeGBP(c.From), cli.FormatMaybeGBP(c.To), cli.FormatDelta(c.Pct)})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", strconv.Itoa(from), strconv.Itoa(to), "Change"},
		Rows:    rows,
	}))
	fmt.Println()
	fmt.Printf("  %s\n", in.Message)
	for _, y := range []int{from, to} {
		if chart.IsProjected(y) {
			fmt.Printf("  %s\n", cli.RenderMuted(fmt.Sprintf("%d is a forecast year.", y)))
		}
	}
	fmt.Println()
	return nil
}
