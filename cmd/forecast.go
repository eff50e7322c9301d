package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/londongap/internal/cli"
	"github.com/theirongolddev/londongap/internal/model"
	"github.com/theirongolddev/londongap/internal/money"
	"github.com/theirongolddev/londongap/internal/pipeline"
	"github.com/theirongolddev/londongap/internal/render"
	"github.com/theirongolddev/londongap/internal/series"
	"github.com/theirongolddev/londongap/internal/source"
)

var (
	flagForecastSVG     string
	flagForecastSave    string
	flagForecastMetric  string
	flagForecastRefresh bool
	flagForecastJSON    bool
)

var forecastCmd = &cobra.Command{
	Use:   "forecast [BOROUGH]",
	Short: "Show the house price and income forecast for London or a borough",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runForecast,
}

func init() {
	forecastCmd.Flags().StringVar(&flagForecastSVG, "svg", "", "Write the chart as an SVG file")
	forecastCmd.Flags().StringVar(&flagForecastSave, "save", "", "Append the dataset to an offline archive file")
	forecastCmd.Flags().StringVar(&flagForecastMetric, "metric", string(model.HousePrice), "Metric for --svg (house_price or annual_income)")
	forecastCmd.Flags().BoolVar(&flagForecastRefresh, "refresh", false, "Fetch from the provider even when the cache is fresh")
	forecastCmd.Flags().BoolVar(&flagForecastJSON, "json", false, "Print the projected chart as JSON")
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(cmd *cobra.Command, args []string) error {
	e, err := newEnv("")
	if err != nil {
		return err
	}
	defer e.Close()

	metric, err := parseMetric(flagForecastMetric)
	if err != nil {
		return err
	}

	var borough string
	if len(args) == 1 {
		borough = args[0]
	}
	res, chart, err := loadChart(cmd, e, borough, flagForecastRefresh)
	if err != nil {
		return err
	}

	if flagForecastJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(chart)
	}

	printChart(chart, res)

	if flagForecastSVG != "" {
		if err := writeSVG(flagForecastSVG, chart, metric); err != nil {
			return err
		}
		fmt.Printf("  Chart written to %s\n", flagForecastSVG)
	}
	if flagForecastSave != "" {
		if err := saveArchive(cmd, e, flagForecastSave, res); err != nil {
			return err
		}
		fmt.Printf("  Dataset saved to %s\n", flagForecastSave)
	}
	return nil
}

// loadChart resolves borough, loads its dataset and projects it.
func loadChart(cmd *cobra.Command, e *env, borough string, refresh bool) (*pipeline.Result, series.Chart, error) {
	ctx := cmd.Context()
	years, err := e.yearsAhead()
	if err != nil {
		return nil, series.Chart{}, err
	}
	if borough != "" {
		borough, err = e.loader.Resolve(ctx, borough)
		if err != nil {
			return nil, series.Chart{}, err
		}
	}

	req := pipeline.Request{Borough: borough, YearsAhead: years}
	progressf("  Loading %s (%d years ahead)...\n", req.Label(), years)

	var res *pipeline.Result
	if refresh {
		res, err = e.loader.Refresh(ctx, req)
	} else {
		res, err = e.loader.Load(ctx, req)
	}
	if err != nil {
		return nil, series.Chart{}, err
	}

	chart, err := series.ProjectDataset(res.Dataset)
	if err != nil {
		return nil, series.Chart{}, err
	}
	return res, chart, nil
}

func printChart(chart series.Chart, res *pipeline.Result) {
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("%s  %d years ahead", chart.Title, chart.YearsAhead)))
	fmt.Println()

	ratios := make(map[int]float64)
	for _, r := range series.Ratios(chart) {
		ratios[r.Year] = r.Ratio
	}

	rows := make([][]string, 0, len(chart.Labels))
	for i, y := range chart.Labels {
		kind := "observed"
		if chart.IsProjected(y) {
			kind = "forecast"
		}
		ratio := "-"
		if r, ok := ratios[y]; ok {
			ratio = cli.FormatRatio(r)
		}
		band := ""
		if chart.IsProjected(y) {
			band = fmt.Sprintf("%s – %s",
				money.FormatCompactGBP(deref(chart.HousePrice.Lower[i])),
				money.FormatCompactGBP(deref(chart.HousePrice.Upper[i])))
		}
		rows = append(rows, []string{
			strconv.Itoa(y),
			cli.FormatMaybeGBP(chart.HousePrice.Shown(i)),
			band,
			cli.FormatMaybeGBP(chart.AnnualIncome.Shown(i)),
			ratio,
			kind,
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Year", "House price", "Price range", "Income", "Ratio", ""},
		Rows:    rows,
	}))
	fmt.Println()

	for _, m := range model.Metrics {
		cs := chart.Metric(m)
		shown := make([]*float64, len(chart.Labels))
		for i := range shown {
			shown[i] = cs.Shown(i)
		}
		fmt.Printf("  %-14s %s\n", m.Label(), cli.RenderSparkline(shown))
	}

	if latest, ok := series.Latest(series.Ratios(chart)); ok {
		fmt.Printf("\n  %s\n", cli.RenderHeader(fmt.Sprintf(
			"House prices were %s annual income in %d", cli.FormatRatio(latest.Ratio), latest.Year)))
	}
	if chart.Note != "" {
		fmt.Printf("  %s\n", cli.RenderMuted(chart.Note))
	}

	origin := string(res.Origin)
	if !res.FetchedAt.IsZero() {
		origin += ", fetched " + cli.FormatAge(time.Since(res.FetchedAt)) + " ago"
	}
	fmt.Printf("  %s\n\n", cli.RenderMuted("Source: "+origin))
}

func writeSVG(path string, chart series.Chart, m model.Metric) error {
	f, err := os.Create(path) //nolint:gosec // output path chosen by the local user
	if err != nil {
		return fmt.Errorf("creating svg: %w", err)
	}
	if err := render.Write(f, chart, m, render.Options{}); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing svg: %w", err)
	}
	return f.Close()
}

// saveArchive adds res to the archive at path, creating it when missing.
func saveArchive(cmd *cobra.Command, e *env, path string, res *pipeline.Result) error {
	archive := source.NewArchive()
	if _, err := os.Stat(path); err == nil {
		existing, err := source.Load(path)
		if err != nil {
			return err
		}
		archive = existing
	}

	archive.Put(source.Entry{
		Borough:    res.Request.Borough,
		YearsAhead: res.Request.YearsAhead,
		Dataset:    res.Dataset,
	})
	if names, err := e.loader.Boroughs(cmd.Context()); err == nil && len(names) > 0 {
		archive.Boroughs = names
	}
	archive.SavedAt = time.Now()
	return source.WriteFile(path, archive)
}

func parseMetric(s string) (model.Metric, error) {
	for _, m := range model.Metrics {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q (want %s or %s)", s, model.HousePrice, model.AnnualIncome)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
