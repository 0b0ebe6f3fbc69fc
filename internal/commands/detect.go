package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/smart-finance-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/smart-finance-import/internal/domain/import/parser"
	"github.com/FACorreiaa/smart-finance-import/internal/domain/import/sniffer"
)

func newDetectCommand() *cobra.Command {
	var headerRow int
	var sheet string

	cmd := &cobra.Command{
		Use:   "detect <file>",
		Short: "Print the detected format and column mapping of a statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			opts := parser.DefaultOptions()
			if headerRow > 0 {
				opts.HeaderRowIndex = headerRow - 1
			}
			opts.Sheet = sheet

			table, err := parser.Read(data, filepath.Base(args[0]), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "format:      %s\n", table.Format)
			if table.Sheet != "" {
				fmt.Fprintf(out, "sheet:       %s\n", table.Sheet)
			}
			if table.Delimiter != 0 {
				fmt.Fprintf(out, "delimiter:   %q\n", table.Delimiter)
			}
			fmt.Fprintf(out, "headers:     %s\n", strings.Join(table.Headers, " | "))
			fmt.Fprintf(out, "fingerprint: %s\n", table.Fingerprint)
			fmt.Fprintf(out, "data rows:   %d\n", len(table.Rows))

			mapping, err := sniffer.DetectColumns(table.Headers)
			if err != nil {
				var derr *sniffer.DetectionError
				if errors.As(err, &derr) {
					for field, hint := range derr.Hints {
						fmt.Fprintf(out, "hint:        %s -> %q\n", field, hint)
					}
				}
				return err
			}

			fmt.Fprintf(out, "date:        column %d (%s)\n", mapping.DateCol+1, table.Headers[mapping.DateCol])
			fmt.Fprintf(out, "description: column %d (%s)\n", mapping.DescCol+1, table.Headers[mapping.DescCol])
			fmt.Fprintf(out, "amount:      column %d (%s, %s)\n", mapping.AmountCol+1, table.Headers[mapping.AmountCol], mapping.AmountKind)
			fmt.Fprintf(out, "decimal:     %s\n", decimalName(normalizer.ProbeTable(table, *mapping, 50)))
			return nil
		},
	}

	cmd.Flags().IntVar(&headerRow, "header-row", 0, "1-based line of the header")
	cmd.Flags().StringVar(&sheet, "sheet", "", "workbook sheet name")
	return cmd
}

func decimalName(comma bool) string {
	if comma {
		return "comma"
	}
	return "point"
}
