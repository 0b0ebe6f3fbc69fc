// Package normalizer handles regional money and date parsing.
// Converts bank statement cells into the canonical transaction representation.
package normalizer

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-finance-import/internal/domain/transaction"
)

var (
	ErrInvalidAmount    = errors.New("invalid amount format")
	ErrZeroAmount       = errors.New("amount is zero")
	ErrInvalidDate      = errors.New("invalid date format")
	ErrEmptyDescription = errors.New("description is empty")
)

// Explicit date layouts, tried in order. Single-digit day and month are accepted.
var explicitDateFormats = []string{
	"2006-1-2", // YYYY-MM-DD
	"2/1/2006", // DD/MM/YYYY
	"2-1-2006", // DD-MM-YYYY
}

// Generic layouts tried after the explicit ones. Month-first numeric forms are
// deliberately absent so day/month order is never guessed.
var genericDateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2006/1/2",
	"2.1.2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"Mon, 2 Jan 2006",
	time.RFC1123,
	time.RFC1123Z,
}

var amountPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ParseDate converts a raw cell into an ISO calendar date.
// The date is taken as written: a timestamp keeps the day of its own offset.
func ParseDate(raw string) (string, error) {
	raw = trimCell(raw)
	if raw == "" {
		return "", ErrInvalidDate
	}

	for _, layout := range explicitDateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(transaction.DateLayout), nil
		}
	}

	for _, layout := range genericDateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(transaction.DateLayout), nil
		}
	}

	return "", ErrInvalidDate
}

// Amount is a parsed amount cell: a strictly positive magnitude plus the sign it was written with.
type Amount struct {
	Value    decimal.Decimal
	Negative bool
}

// ParseAmount converts a raw cell into a positive magnitude.
// Currency symbols, thousands separators and whitespace are stripped. When both
// separators appear the last one is the decimal point; a lone comma followed by at
// most two digits is a decimal comma. decimalComma resolves "1.234" as 1234.
func ParseAmount(raw string, decimalComma bool) (Amount, error) {
	s := trimCell(raw)
	if s == "" {
		return Amount{}, ErrInvalidAmount
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = stripCurrency(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\'' || r == '\u2019' {
			return -1
		}
		if r == '\u2212' { // unicode minus
			return '-'
		}
		return r
	}, s)

	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasSuffix(s, "-"):
		negative = true
		s = s[:len(s)-1]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	// Symbols may sit after the sign, as in "-€1.234,56".
	s = stripCurrency(s)

	s, ok := canonicalDecimal(s, decimalComma)
	if !ok {
		return Amount{}, ErrInvalidAmount
	}

	value, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, ErrInvalidAmount
	}
	// Amounts are carried to the cent; anything that rounds to zero is no amount.
	value = value.Abs().Round(2)
	if value.IsZero() {
		return Amount{}, ErrZeroAmount
	}

	return Amount{Value: value, Negative: negative}, nil
}

// canonicalDecimal rewrites s to digits with an optional '.' decimal point.
func canonicalDecimal(s string, decimalComma bool) (string, bool) {
	commas := strings.Count(s, ",")
	dots := strings.Count(s, ".")

	switch {
	case commas > 0 && dots > 0:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case commas == 1:
		if len(s)-strings.Index(s, ",")-1 <= 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case commas > 1:
		s = strings.ReplaceAll(s, ",", "")
	case dots > 1:
		s = strings.ReplaceAll(s, ".", "")
	case dots == 1 && decimalComma && len(s)-strings.Index(s, ".")-1 == 3:
		s = strings.ReplaceAll(s, ".", "")
	}

	s = strings.TrimSuffix(s, ".")
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	return s, amountPattern.MatchString(s)
}

var currencyTokens = []string{"€", "$", "£", "EUR", "USD", "GBP", "CHF"}

func stripCurrency(s string) string {
	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
		s = strings.ReplaceAll(s, strings.ToLower(tok), "")
	}
	return strings.TrimSpace(s)
}

// CleanDescription trims quotes and whitespace and collapses inner runs of spaces.
func CleanDescription(raw string) (string, error) {
	desc := strings.Join(strings.Fields(trimCell(raw)), " ")
	if desc == "" {
		return "", ErrEmptyDescription
	}
	return desc, nil
}

// ProbeDecimalComma inspects a column of amount samples and reports whether the
// file writes amounts as 1.234,56. Ambiguous samples do not count either way.
// A tie in a semicolon separated file goes to the decimal comma, since ';' is the
// separator of exports that write amounts that way.
func ProbeDecimalComma(samples []string, delimiter rune) bool {
	european, us := 0, 0
	for _, raw := range samples {
		switch analyzeAmountFormat(raw) {
		case 1:
			european++
		case -1:
			us++
		}
	}
	if european == us {
		return delimiter == ';'
	}
	return european > us
}

// analyzeAmountFormat returns: >0 for European, <0 for US, 0 for ambiguous
func analyzeAmountFormat(val string) int {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == ',' || r == '.' {
			return r
		}
		return -1
	}, val)

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			return 1
		}
		return -1
	case hasComma:
		if len(cleaned)-strings.LastIndex(cleaned, ",")-1 <= 2 {
			return 1
		}
	case hasDot:
		if len(cleaned)-strings.LastIndex(cleaned, ".")-1 <= 2 {
			return -1
		}
	}
	return 0
}

func trimCell(raw string) string {
	return strings.Trim(raw, " \t\"'\u00a0")
}
