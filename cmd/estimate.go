package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/londongap/internal/afford"
	"github.com/theirongolddev/londongap/internal/cli"
	"github.com/theirongolddev/londongap/internal/config"
	"github.com/theirongolddev/londongap/internal/money"
)

var (
	flagSalary  string
	flagPrice   string
	flagAge     int
	flagModel   string
	flagLang    string
	flagEstJSON bool
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate how long it takes to afford a property",
	Example: "  londongap estimate --salary 60000 --price 300000\n" +
		"  londongap estimate --salary \"45 000\" --price 520000 --age 32 --model linear-ratio",
	RunE: runEstimate,
}

func init() {
	estimateCmd.Flags().StringVar(&flagSalary, "salary", "", "Annual salary in GBP")
	estimateCmd.Flags().StringVar(&flagPrice, "price", "", "Property price in GBP")
	estimateCmd.Flags().IntVar(&flagAge, "age", 0, "Your current age (optional)")
	estimateCmd.Flags().StringVar(&flagModel, "model", "", "Calculator model: log-amortization or linear-ratio")
	estimateCmd.Flags().StringVar(&flagLang, "lang", "", "Message language (en, es)")
	estimateCmd.Flags().BoolVar(&flagEstJSON, "json", false, "Print the result as JSON")
	_ = estimateCmd.MarkFlagRequired("salary")
	_ = estimateCmd.MarkFlagRequired("price")
	rootCmd.AddCommand(estimateCmd)
}

func runEstimate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	est, err := config.Estimator(cfg, flagModel, flagLang)
	if err != nil {
		return err
	}

	salary, err := money.ParseAmount(flagSalary)
	if err != nil {
		return fmt.Errorf("--salary: %w", err)
	}
	price, err := money.ParseAmount(flagPrice)
	if err != nil {
		return fmt.Errorf("--price: %w", err)
	}
	in := afford.Input{Salary: salary, Price: price}
	// Out-of-range ages are left for Validate to reject.
	if cmd.Flags().Changed("age") {
		age := flagAge
		in.Age = &age
	}

	res, err := est.Estimate(in)
	if err != nil {
		return err
	}

	if flagEstJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("YEARS TO AFFORD A HOME"))
	fmt.Println()
	fmt.Printf("  %s\n\n", cli.RenderStatus(res.Status, res.Message))

	rows := [][]string{
		{"Salary", money.FormatGBP(salary)},
		{"Price", money.FormatGBP(price)},
		{"Time to afford", cli.FormatYearsMonths(res.Years, res.Months)},
		{"Age at purchase", strconv.Itoa(res.TotalAge)},
		{"Tier", string(res.Status)},
		{"Model", res.Model},
	}
	fmt.Print(cli.RenderTable(cli.Table{Rows: rows}))
	fmt.Println()
	return nil
}
