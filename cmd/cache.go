package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/londongap/internal/cli"
	"github.com/theirongolddev/londongap/internal/pipeline"
	"github.com/theirongolddev/londongap/internal/store"
)

var flagCacheOlderThan time.Duration

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and prune the forecast cache",
	RunE:  runCacheList,
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached datasets",
	RunE:  runCacheList,
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete cached datasets older than a cutoff",
	RunE:  runCachePurge,
}

var cacheRmCmd = &cobra.Command{
	Use:   "rm KEY",
	Short: "Delete one cached dataset",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheRm,
}

func init() {
	cachePurgeCmd.Flags().DurationVar(&flagCacheOlderThan, "older-than", 0, "Only purge entries fetched before now minus this (0 purges everything)")
	cacheCmd.AddCommand(cacheListCmd, cachePurgeCmd, cacheRmCmd)
	rootCmd.AddCommand(cacheCmd)
}

func openCache() (*store.Cache, error) {
	path := pipeline.CachePath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no cache at %s", path)
	}
	return store.Open(path)
}

func runCacheList(_ *cobra.Command, _ []string) error {
	c, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	entries, err := c.ListDatasets()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("  Cache is empty.")
		return nil
	}

	now := time.Now()
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Key,
			e.Title,
			strconv.Itoa(e.YearsAhead),
			cli.FormatAge(now.Sub(e.FetchedAt)),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Cached forecasts",
		Headers: []string{"Key", "Title", "Years", "Age"},
		Rows:    rows,
	}))
	fmt.Printf("  %s\n", cli.RenderMuted(pipeline.CachePath()))
	return nil
}

func runCachePurge(_ *cobra.Command, _ []string) error {
	c, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	cutoff := time.Now().Add(-flagCacheOlderThan)
	n, err := c.PurgeBefore(cutoff)
	if err != nil {
		return err
	}
	left, err := c.DatasetCount()
	if err != nil {
		return err
	}
	fmt.Printf("  Purged %d datasets, %d remain.\n", n, left)
	return nil
}

func runCacheRm(_ *cobra.Command, args []string) error {
	c, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if err := c.DeleteDataset(args[0]); err != nil {
		return err
	}
	fmt.Printf("  Removed %s\n", args[0])
	return nil
}
