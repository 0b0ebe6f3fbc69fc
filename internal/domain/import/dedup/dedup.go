// Package dedup flags drafts that were already imported.
package dedup

import (
	"strings"

	"github.com/FACorreiaa/smart-finance-import/internal/domain/transaction"
)

// Result splits a file into new transactions and duplicates.
// Both keep their original relative order.
type Result struct {
	New        []transaction.Transaction
	Duplicates []transaction.Transaction
}

// Deduplicate marks each draft that matches a not-yet-claimed reference.
// A reference absorbs at most one draft, so two identical purchases in a file
// against one known purchase yield one new transaction and one duplicate.
// The reference slice is only read.
func Deduplicate(drafts []transaction.Transaction, refs []transaction.Reference) Result {
	index := buildIndex(refs)
	claimed := make([]bool, len(refs))
	result := Result{
		New: make([]transaction.Transaction, 0, len(drafts)),
	}

	for _, draft := range drafts {
		draft.IsDuplicate = false
		for _, i := range index[key(draft.Date, draft.Amount.StringFixed(2))] {
			if claimed[i] {
				continue
			}
			if DescriptionsMatch(draft.Description, refs[i].Description) {
				claimed[i] = true
				draft.IsDuplicate = true
				break
			}
		}
		if draft.IsDuplicate {
			result.Duplicates = append(result.Duplicates, draft)
		} else {
			result.New = append(result.New, draft)
		}
	}

	return result
}

// IsDuplicate reports whether tx matches ref on date, amount to the cent, and description.
func IsDuplicate(tx transaction.Transaction, ref transaction.Reference) bool {
	return tx.Date == ref.Date &&
		tx.Amount.StringFixed(2) == ref.Amount.Abs().StringFixed(2) &&
		DescriptionsMatch(tx.Description, ref.Description)
}

// DescriptionsMatch is true for a case-insensitive exact match, or when either
// normalized description contains the other.
// TODO: "CARREFOUR" also matches "CARREFOUR EXPRESS"; tighten once the product decision on prefix matches is made.
func DescriptionsMatch(a, b string) bool {
	if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) {
		return true
	}
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// Normalize lower-cases a description and collapses whitespace and punctuation runs.
func Normalize(desc string) string {
	fields := strings.FieldsFunc(strings.ToLower(desc), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '*' || r == '"' || r == '\'' || r == ',' || r == '.' || r == '-' || r == '/'
	})
	return strings.Join(fields, " ")
}

func buildIndex(refs []transaction.Reference) map[string][]int {
	index := make(map[string][]int, len(refs))
	for i, ref := range refs {
		k := key(ref.Date, ref.Amount.Abs().StringFixed(2))
		index[k] = append(index[k], i)
	}
	return index
}

func key(date, amount string) string {
	return date + "|" + amount
}
