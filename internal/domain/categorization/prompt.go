package categorization

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/smart-finance-import/internal/domain/transaction"
)

// SystemPrompt returns the instruction sent with every fallback batch.
func SystemPrompt() string {
	return fmt.Sprintf(`You categorize bank transactions.
Allowed categories: %s.
Use exactly one allowed category per transaction, spelled as listed. Use Other when unsure.
Reply with a JSON array only, one element per transaction, in input order:
[{"index": 1, "category": "Food", "confidence": 90}]
"index" is the number of the transaction in the list. "confidence" is an integer from 0 to 100.`,
		strings.Join(transaction.CategoryNames(), ", "))
}

// BatchPrompt renders a batch as a numbered list, starting at 1.
func BatchPrompt(items []Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Categorize these %d transactions:\n", len(items))
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s | %s\n", i+1, sanitizeLine(it.Description), it.Amount.StringFixed(2))
	}
	return b.String()
}

func sanitizeLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
