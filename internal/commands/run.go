package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/smart-finance-import/internal/clients"
	"github.com/FACorreiaa/smart-finance-import/internal/domain/import/parser"
	importservice "github.com/FACorreiaa/smart-finance-import/internal/domain/import/service"
	"github.com/FACorreiaa/smart-finance-import/internal/domain/transaction"
	"github.com/FACorreiaa/smart-finance-import/pkg/config"
	"github.com/FACorreiaa/smart-finance-import/pkg/money"
)

type runOptions struct {
	known     string
	jsonOut   string
	csvOut    string
	noAI      bool
	requireAI bool
	headerRow int
	sheet     string
	currency  string
}

func newRunCommand(newLogger func(*cobra.Command) *slog.Logger) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run the import pipeline on a CSV or XLSX statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, newLogger(cmd), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.known, "known", "", "CSV or JSON file of already imported transactions")
	cmd.Flags().StringVar(&opts.jsonOut, "json", "", "write the full report as JSON to this file (- for stdout)")
	cmd.Flags().StringVar(&opts.csvOut, "csv", "", "write new transactions as CSV to this file")
	cmd.Flags().BoolVar(&opts.noAI, "no-ai", false, "use the keyword rules only")
	cmd.Flags().BoolVar(&opts.requireAI, "require-ai", false, "fail when no model credentials are configured")
	cmd.Flags().IntVar(&opts.headerRow, "header-row", 0, "1-based line of the header (default: first non-empty line)")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "workbook sheet name")
	cmd.Flags().StringVar(&opts.currency, "currency", money.EUR, "currency used in the summary")

	return cmd
}

func runImport(cmd *cobra.Command, logger *slog.Logger, path string, opts runOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var known []transaction.Reference
	if opts.known != "" {
		known, err = loadKnown(opts.known)
		if err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	classifier, err := clients.NewClassificationService(ctx, cfg.AI, logger)
	if err != nil {
		return err
	}
	svc := importservice.NewImportService(classifier, importservice.Config{
		ReviewThreshold: cfg.Import.ReviewThreshold,
		RequireAI:       cfg.AI.Required,
	}, logger)

	report, runErr := svc.Run(ctx, importservice.Request{
		FileName: filepath.Base(path),
		Data:     data,
		Known:    known,
		Options: importservice.Options{
			HeaderRow: opts.headerRow,
			Sheet:     opts.sheet,
			DisableAI: opts.noAI,
			RequireAI: opts.requireAI,
		},
	})

	if opts.jsonOut != "" {
		if err := writeReportJSON(cmd.OutOrStdout(), opts.jsonOut, report); err != nil {
			return err
		}
	}
	if runErr != nil {
		printFailure(cmd.ErrOrStderr(), report)
		return runErr
	}

	if opts.csvOut != "" {
		if err := writeCSV(opts.csvOut, report.Transactions); err != nil {
			return err
		}
	}
	if opts.jsonOut != "-" {
		printSummary(cmd.OutOrStdout(), report, opts.currency)
	}
	return nil
}

func loadKnown(path string) ([]transaction.Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening known transactions: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var refs []transaction.Reference
		if err := json.NewDecoder(f).Decode(&refs); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		for i := range refs {
			refs[i].Amount = refs[i].Amount.Abs()
		}
		return refs, nil
	}
	return parser.ReadReferenceCSV(f)
}

func writeReportJSON(stdout io.Writer, path string, report *importservice.Report) error {
	w := stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writeCSV(path string, txs []transaction.Transaction) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return parser.WriteTransactionsCSV(f, txs)
}

func printFailure(w io.Writer, report *importservice.Report) {
	if report == nil {
		return
	}
	fmt.Fprintf(w, "import failed: %s\n", report.Message)
	if len(report.FoundHeaders) > 0 {
		fmt.Fprintf(w, "found headers: %s\n", strings.Join(report.FoundHeaders, ", "))
	}
	for field, hint := range report.Hints {
		fmt.Fprintf(w, "  %s: did you mean %q?\n", field, hint)
	}
}

func printSummary(w io.Writer, report *importservice.Report, currency string) {
	s := report.Stats
	fmt.Fprintf(w, "%s: %d rows, %d imported, %d duplicates, %d rejected, %d need review (avg confidence %.1f)\n",
		report.FileName, s.Total, len(report.Transactions), s.Duplicates, s.Invalid, s.NeedsReview, s.AvgConfidence)

	var income, expenses []decimal.Decimal
	byCategory := map[transaction.Category][]decimal.Decimal{}
	for _, tx := range report.Transactions {
		if tx.Type == transaction.TypeIncome {
			income = append(income, tx.Amount)
		} else {
			expenses = append(expenses, tx.Amount)
		}
		byCategory[tx.Category] = append(byCategory[tx.Category], tx.Amount)
	}
	fmt.Fprintf(w, "income %s, expenses %s\n",
		money.Sum(income, currency).Display(), money.Sum(expenses, currency).Display())

	categories := make([]transaction.Category, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
	for _, c := range categories {
		fmt.Fprintf(w, "  %-14s %4d  %s\n", c, len(byCategory[c]), money.Sum(byCategory[c], currency).Display())
	}

	for _, tx := range report.Transactions {
		if tx.NeedsReview() {
			fmt.Fprintf(w, "  ? row %d %s %s %s (%s, %d)\n", tx.Row, tx.Date, tx.Description,
				money.FormatDecimal(tx.Amount, currency), tx.Category, tx.Confidence)
		}
	}

	if report.Interrupted {
		fmt.Fprintln(w, "classification was interrupted; unclassified rows keep their keyword result")
	}
	for _, e := range report.Errors {
		fmt.Fprintf(w, "  ! %s\n", e)
	}
}
