package normalizer

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-finance-import/internal/domain/import/parser"
	"github.com/FACorreiaa/smart-finance-import/internal/domain/import/sniffer"
	"github.com/FACorreiaa/smart-finance-import/internal/domain/transaction"
)

// RowError is a rejected row. Line is the 1-based line in the source file.
type RowError struct {
	Line   int
	Field  sniffer.Field
	Raw    string
	Reason string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Line, e.Reason)
}

func (e *RowError) Unwrap() error { return e.Err }

// Options tunes how cells are interpreted for one file.
type Options struct {
	// SerialDates accepts spreadsheet serial day numbers in the date column.
	SerialDates bool
	// DecimalComma resolves "1.234" as one thousand two hundred thirty-four.
	DecimalComma bool
}

// Normalizer turns raw rows into canonical transaction drafts for one file.
type Normalizer struct {
	mapping sniffer.ColumnMapping
	opts    Options
}

// New creates a normalizer bound to a column mapping.
func New(mapping sniffer.ColumnMapping, opts Options) *Normalizer {
	return &Normalizer{mapping: mapping, opts: opts}
}

// Draft is a normalized row before the file-level sign convention is applied.
type Draft struct {
	Transaction transaction.Transaction
	Negative    bool
}

// Result holds every accepted draft and every rejected row of a file.
type Result struct {
	Transactions []transaction.Transaction
	Errors       []*RowError
}

// Normalize converts one raw row. The row itself is never modified.
func (n *Normalizer) Normalize(row parser.RawRow) (*Draft, *RowError) {
	rawDate := row.Cell(n.mapping.DateCol)
	date, err := ParseDate(rawDate)
	if err != nil && n.opts.SerialDates {
		if serial, ok := parser.SerialDate(rawDate); ok {
			date, err = serial, nil
		}
	}
	if err != nil {
		return nil, &RowError{
			Line:   row.Line,
			Field:  sniffer.FieldDate,
			Raw:    rawDate,
			Reason: fmt.Sprintf("invalid date %q", rawDate),
			Err:    err,
		}
	}

	rawAmount := row.Cell(n.mapping.AmountCol)
	amount, err := ParseAmount(rawAmount, n.opts.DecimalComma)
	if err != nil {
		reason := fmt.Sprintf("invalid amount %q", rawAmount)
		if errors.Is(err, ErrZeroAmount) {
			reason = fmt.Sprintf("amount %q is zero", rawAmount)
		}
		return nil, &RowError{
			Line:   row.Line,
			Field:  sniffer.FieldAmount,
			Raw:    rawAmount,
			Reason: reason,
			Err:    err,
		}
	}

	rawDesc := row.Cell(n.mapping.DescCol)
	desc, err := CleanDescription(rawDesc)
	if err != nil {
		return nil, &RowError{
			Line:   row.Line,
			Field:  sniffer.FieldDescription,
			Raw:    rawDesc,
			Reason: "empty description",
			Err:    err,
		}
	}

	return &Draft{
		Transaction: transaction.Transaction{
			ID:          uuid.New(),
			Row:         row.Line,
			Date:        date,
			Description: desc,
			Amount:      amount.Value,
			Type:        transaction.TypeExpense,
			Category:    transaction.CategoryOther,
		},
		Negative: amount.Negative,
	}, nil
}

// NormalizeAll normalizes every row, keeps going past rejected rows, and applies
// the sign convention of the amount column to the accepted ones.
func (n *Normalizer) NormalizeAll(rows []parser.RawRow) Result {
	drafts := make([]*Draft, 0, len(rows))
	result := Result{}

	for _, row := range rows {
		draft, rowErr := n.Normalize(row)
		if rowErr != nil {
			result.Errors = append(result.Errors, rowErr)
			continue
		}
		drafts = append(drafts, draft)
	}

	assignTypes(drafts, n.mapping.AmountKind)

	result.Transactions = make([]transaction.Transaction, len(drafts))
	for i, d := range drafts {
		result.Transactions[i] = d.Transaction
	}
	return result
}

// assignTypes derives Income/Expense. Debit and credit columns fix the type.
// A signed column is only trusted when the file actually contains a negative
// amount; otherwise every row defaults to Expense.
func assignTypes(drafts []*Draft, kind sniffer.AmountKind) {
	switch kind {
	case sniffer.AmountCredit:
		for _, d := range drafts {
			d.Transaction.Type = transaction.TypeIncome
		}
		return
	case sniffer.AmountDebit:
		for _, d := range drafts {
			d.Transaction.Type = transaction.TypeExpense
		}
		return
	}

	signed := false
	for _, d := range drafts {
		if d.Negative {
			signed = true
			break
		}
	}
	for _, d := range drafts {
		if signed && !d.Negative {
			d.Transaction.Type = transaction.TypeIncome
		} else {
			d.Transaction.Type = transaction.TypeExpense
		}
	}
}

// ProbeTable samples the amount column of a table to decide on decimal-comma handling.
// The table's delimiter breaks ties between ambiguous samples.
func ProbeTable(table *parser.Table, mapping sniffer.ColumnMapping, limit int) bool {
	samples := make([]string, 0, limit)
	for _, row := range table.Rows {
		if len(samples) >= limit {
			break
		}
		if v := row.Cell(mapping.AmountCol); v != "" {
			samples = append(samples, v)
		}
	}
	return ProbeDecimalComma(samples, table.Delimiter)
}
