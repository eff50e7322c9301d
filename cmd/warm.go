package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/londongap/internal/cli"
	"github.com/theirongolddev/londongap/internal/pipeline"
)

var flagWarmAll bool

var warmCmd = &cobra.Command{
	Use:   "warm [BOROUGH...]",
	Short: "Refresh cached forecasts for the overview and boroughs",
	RunE:  runWarm,
}

func init() {
	warmCmd.Flags().BoolVar(&flagWarmAll, "all", false, "Refresh every borough the provider lists")
	rootCmd.AddCommand(warmCmd)
}

func runWarm(cmd *cobra.Command, args []string) error {
	e, err := newEnv("")
	if err != nil {
		return err
	}
	defer e.Close()

	years, err := e.yearsAhead()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	boroughs := args
	if flagWarmAll {
		boroughs, err = e.loader.Boroughs(ctx)
		if err != nil {
			return err
		}
	}

	reqs := []pipeline.Request{pipeline.Overview(years)}
	for _, b := range boroughs {
		name, err := e.loader.Resolve(ctx, b)
		if err != nil {
			return err
		}
		reqs = append(reqs, pipeline.Request{Borough: name, YearsAhead: years})
	}

	start := time.Now()
	progressFn := func(current, total int) {
		progressf("\r  Refreshing %s", cli.RenderProgressBar(current, total, 30))
	}
	results := e.loader.LoadMany(ctx, reqs, true, progressFn)
	progressf("\n")

	rows := make([][]string, 0, len(results))
	failed := 0
	for _, r := range results {
		status := string(r.Origin)
		if r.Err != nil {
			status = "failed: " + r.Err.Error()
			failed++
		}
		rows = append(rows, []string{r.Request.Label(), status})
	}
	fmt.Print(cli.RenderTable(cli.Table{Headers: []string{"Dataset", "Result"}, Rows: rows}))
	fmt.Printf("  %d refreshed, %d failed in %s\n", len(results)-failed, failed, time.Since(start).Round(time.Millisecond))

	if failed > 0 {
		fmt.Fprintln(os.Stderr, "  Some datasets could not be refreshed.")
	}
	return nil
}
