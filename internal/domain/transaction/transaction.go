// Package transaction defines the canonical record produced by the import pipeline.
package transaction

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the only date representation a canonical transaction carries.
const DateLayout = "2006-01-02"

const (
	// ReviewThreshold is the confidence below which a transaction needs human review.
	ReviewThreshold = 70

	MinConfidence = 0
	MaxConfidence = 100
)

// Type carries the sign of a transaction, amounts are always positive.
type Type string

const (
	TypeIncome  Type = "Income"
	TypeExpense Type = "Expense"
)

// Transaction is the canonical output record of the pipeline.
type Transaction struct {
	ID          uuid.UUID
	Row         int // 1-based line in the source file, header included
	Date        string
	Description string
	Amount      decimal.Decimal
	Type        Type
	Category    Category
	Confidence  int
	IsDuplicate bool
}

// NeedsReview is derived from Confidence and cannot be set independently.
func (t *Transaction) NeedsReview() bool {
	return t.Confidence < ReviewThreshold
}

// SetClassification validates the category against the vocabulary and clamps confidence.
func (t *Transaction) SetClassification(c Category, confidence int) {
	if !c.Valid() {
		c = ParseCategory(string(c))
	}
	t.Category = c
	t.Confidence = ClampConfidence(confidence)
}

// ClampConfidence bounds a score to [0, 100].
func ClampConfidence(c int) int {
	if c < MinConfidence {
		return MinConfidence
	}
	if c > MaxConfidence {
		return MaxConfidence
	}
	return c
}

// Time returns the calendar date as midnight UTC.
func (t *Transaction) Time() (time.Time, error) {
	return time.Parse(DateLayout, t.Date)
}

// Signed returns the amount with the sign implied by Type.
func (t *Transaction) Signed() decimal.Decimal {
	if t.Type == TypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Validate checks the output invariants of a canonical record.
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("description is empty")
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", t.Amount.String())
	}
	d, err := time.Parse(DateLayout, t.Date)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", t.Date, err)
	}
	if d.Format(DateLayout) != t.Date {
		return fmt.Errorf("date %q does not round-trip", t.Date)
	}
	if !t.Category.Valid() {
		return fmt.Errorf("category %q outside vocabulary", t.Category)
	}
	if t.Type != TypeIncome && t.Type != TypeExpense {
		return fmt.Errorf("invalid type %q", t.Type)
	}
	return nil
}

type transactionJSON struct {
	ID          string      `json:"id"`
	Row         int         `json:"row"`
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	Type        Type        `json:"type"`
	Category    Category    `json:"category"`
	Confidence  int         `json:"confidence"`
	NeedsReview bool        `json:"needsReview"`
	IsDuplicate bool        `json:"isDuplicate"`
}

// MarshalJSON emits the wire shape consumed by the dashboard, amount as a number.
func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionJSON{
		ID:          t.ID.String(),
		Row:         t.Row,
		Date:        t.Date,
		Description: t.Description,
		Amount:      json.Number(t.Amount.StringFixed(2)),
		Type:        t.Type,
		Category:    t.Category,
		Confidence:  t.Confidence,
		NeedsReview: t.NeedsReview(),
		IsDuplicate: t.IsDuplicate,
	})
}

// UnmarshalJSON accepts the wire shape. needsReview is ignored and recomputed.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var raw transactionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(raw.Amount.String())
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	id := uuid.Nil
	if raw.ID != "" {
		if id, err = uuid.Parse(raw.ID); err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
	}
	*t = Transaction{
		ID:          id,
		Row:         raw.Row,
		Date:        raw.Date,
		Description: raw.Description,
		Amount:      amount,
		Type:        raw.Type,
		IsDuplicate: raw.IsDuplicate,
	}
	t.SetClassification(raw.Category, raw.Confidence)
	return nil
}

// Reference is an already-known transaction used for duplicate detection.
type Reference struct {
	Date        string          `json:"date" csv:"date"`
	Description string          `json:"description" csv:"description"`
	Amount      decimal.Decimal `json:"amount" csv:"amount"`
}

// Reference projects a transaction onto the fields duplicate detection compares.
func (t *Transaction) Reference() Reference {
	return Reference{Date: t.Date, Description: t.Description, Amount: t.Amount}
}
