package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/smart-finance-import/pkg/money"
)

func newSampleCommand() *cobra.Command {
	var rows int
	var seed int64
	var dialect string
	var month string

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print a synthetic bank statement CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := time.Parse("2006-01", month)
			if err != nil {
				return fmt.Errorf("--month must be YYYY-MM: %w", err)
			}

			var d money.Dialect
			switch dialect {
			case "en":
				d = money.EnglishDialect
			case "it":
				d = money.ItalianDialect
			default:
				return fmt.Errorf("--dialect must be en or it, got %q", dialect)
			}

			lines := money.NewStatementGenerator(seed, money.EUR, start).Lines(rows)
			_, err = fmt.Fprint(cmd.OutOrStdout(), money.CSV(lines, d))
			return err
		},
	}

	cmd.Flags().IntVar(&rows, "rows", 50, "number of rows")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().StringVar(&dialect, "dialect", "en", "en (comma, ISO dates) or it (semicolon, dd/mm/yyyy, decimal comma)")
	cmd.Flags().StringVar(&month, "month", time.Now().Format("2006-01"), "statement month, YYYY-MM")
	return cmd
}
