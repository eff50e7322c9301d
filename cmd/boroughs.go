package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/londongap/internal/cli"
)

var boroughsCmd = &cobra.Command{
	Use:   "boroughs [QUERY]",
	Short: "List the boroughs the provider forecasts, or resolve a name",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBoroughs,
}

func init() {
	rootCmd.AddCommand(boroughsCmd)
}

func runBoroughs(cmd *cobra.Command, args []string) error {
	e, err := newEnv("")
	if err != nil {
		return err
	}
	defer e.Close()

	if len(args) == 1 {
		name, err := e.loader.Resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(name)
		return nil
	}

	names, err := e.loader.Boroughs(cmd.Context())
	if err != nil {
		return err
	}

	rows := make([][]string, len(names))
	for i, n := range names {
		rows[i] = []string{strconv.Itoa(i + 1), n}
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Boroughs (%d)", len(names)),
		Headers: []string{"#", "Borough"},
		Rows:    rows,
	}))
	fmt.Println()
	return nil
}
