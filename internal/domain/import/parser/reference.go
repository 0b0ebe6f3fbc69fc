package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-finance-import/internal/domain/transaction"
)

// ReferenceRecord is the CSV row shape of an already-known transaction.
// Files written by WriteTransactionsCSV can be read back as references.
type ReferenceRecord struct {
	Date        string          `csv:"date"`
	Description string          `csv:"description"`
	Amount      decimal.Decimal `csv:"amount"`
}

// TransactionRecord is the CSV export shape of a canonical transaction.
type TransactionRecord struct {
	Row         int    `csv:"row"`
	Date        string `csv:"date"`
	Description string `csv:"description"`
	Amount      string `csv:"amount"`
	Type        string `csv:"type"`
	Category    string `csv:"category"`
	Confidence  int    `csv:"confidence"`
	NeedsReview string `csv:"needs_review"`
	IsDuplicate string `csv:"is_duplicate"`
}

// ReadReferenceCSV loads a reference set with date, description and amount columns.
// Amounts are stored as magnitudes, matching canonical transactions.
func ReadReferenceCSV(r io.Reader) ([]transaction.Reference, error) {
	var records []*ReferenceRecord
	if err := gocsv.UnmarshalCSV(gocsv.LazyCSVReader(r), &records); err != nil {
		return nil, fmt.Errorf("failed to read reference CSV: %w", err)
	}

	refs := make([]transaction.Reference, 0, len(records))
	for i, rec := range records {
		if rec == nil {
			continue
		}
		desc := strings.TrimSpace(rec.Description)
		if rec.Date == "" || desc == "" {
			return nil, fmt.Errorf("reference row %d: date and description are required", i+2)
		}
		refs = append(refs, transaction.Reference{
			Date:        strings.TrimSpace(rec.Date),
			Description: desc,
			Amount:      rec.Amount.Abs(),
		})
	}
	return refs, nil
}

// WriteTransactionsCSV exports canonical transactions with a header row.
func WriteTransactionsCSV(w io.Writer, txs []transaction.Transaction) error {
	records := make([]*TransactionRecord, len(txs))
	for i := range txs {
		tx := &txs[i]
		records[i] = &TransactionRecord{
			Row:         tx.Row,
			Date:        tx.Date,
			Description: tx.Description,
			Amount:      tx.Amount.StringFixed(2),
			Type:        string(tx.Type),
			Category:    string(tx.Category),
			Confidence:  tx.Confidence,
			NeedsReview: strconv.FormatBool(tx.NeedsReview()),
			IsDuplicate: strconv.FormatBool(tx.IsDuplicate),
		}
	}
	if err := gocsv.Marshal(&records, w); err != nil {
		return fmt.Errorf("failed to write transactions CSV: %w", err)
	}
	return nil
}
