// Package sniffer detects the layout of delimited bank exports: the header line,
// the delimiter, and which columns carry the date, description and amount.
package sniffer

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Field names a semantic column the pipeline needs.
type Field string

const (
	FieldDate        Field = "date"
	FieldDescription Field = "description"
	FieldAmount      Field = "amount"
)

// fieldOrder is the evaluation order used when two fields could claim the same column.
var fieldOrder = []Field{FieldDate, FieldDescription, FieldAmount}

// Alias substrings per field (English + Italian bank exports).
var fieldAliases = map[Field][]string{
	FieldDate:        {"date", "data", "posting", "valuta"},
	FieldDescription: {"description", "descrizione", "details", "merchant", "payee", "causale", "beneficiario"},
	FieldAmount:      {"amount", "importo", "value", "debit", "credit", "dare", "avere"},
}

var (
	creditKeywords = []string{"credit", "avere"}
	debitKeywords  = []string{"debit", "dare"}
)

// AmountKind says how the sign of a transaction is derived from its amount column.
type AmountKind int

const (
	// AmountSigned columns carry the sign in the value itself.
	AmountSigned AmountKind = iota
	// AmountDebit columns only hold outgoing money.
	AmountDebit
	// AmountCredit columns only hold incoming money.
	AmountCredit
)

func (k AmountKind) String() string {
	switch k {
	case AmountDebit:
		return "debit"
	case AmountCredit:
		return "credit"
	default:
		return "signed"
	}
}

// FileConfig holds the detected configuration for a delimited file
type FileConfig struct {
	Delimiter   rune       // ',' or ';'
	SkipLines   int        // Lines before the header (blank lines or an explicit override)
	Headers     []string   // Header cells, trimmed and quote-stripped
	Fingerprint string     // SHA256 of normalized headers
	SampleRows  [][]string // First few data rows for preview
}

// DetectOptions allows callers to override header row or delimiter detection.
type DetectOptions struct {
	// HeaderRowIndex is a 0-based line index for the header. Set to -1 to use the first non-empty line.
	HeaderRowIndex int
	// Delimiter overrides the detected delimiter when non-zero.
	Delimiter rune
}

// ColumnMapping is the resolved position of each semantic field.
type ColumnMapping struct {
	DateCol    int
	DescCol    int
	AmountCol  int
	AmountKind AmountKind
}

// DetectionError is returned when at least one field has no matching header.
// It carries everything needed to tell the user what the file looked like.
type DetectionError struct {
	FoundHeaders []string
	Missing      []Field
	// Hints maps a missing field to the header that most resembles one of its aliases.
	Hints map[Field]string
}

func (e *DetectionError) Error() string {
	missing := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		missing[i] = string(f)
	}
	return fmt.Sprintf("could not detect %s column(s); found headers: [%s]",
		strings.Join(missing, ", "), strings.Join(e.FoundHeaders, ", "))
}

var (
	ErrEmptyFile      = errors.New("file is empty")
	ErrNoHeadersFound = errors.New("could not find a header row")
	ErrNoDataRows     = errors.New("file has a header but no data rows")
)

// DetectConfig analyzes a delimited file and returns its configuration
func DetectConfig(data []byte) (*FileConfig, error) {
	return DetectConfigWithOptions(data, nil)
}

// DetectConfigWithOptions analyzes a delimited file with optional overrides.
func DetectConfigWithOptions(data []byte, opts *DetectOptions) (*FileConfig, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrEmptyFile
	}

	lines := SplitLines(data)

	skipLines := -1
	if opts != nil && opts.HeaderRowIndex >= 0 {
		if opts.HeaderRowIndex >= len(lines) || lines[opts.HeaderRowIndex] == "" {
			return nil, ErrNoHeadersFound
		}
		skipLines = opts.HeaderRowIndex
	} else {
		for i, line := range lines {
			if line != "" {
				skipLines = i
				break
			}
		}
	}
	if skipLines < 0 {
		return nil, ErrNoHeadersFound
	}

	headerLine := lines[skipLines]
	delimiter := DetectDelimiter(headerLine)
	if opts != nil && opts.Delimiter != 0 {
		delimiter = opts.Delimiter
	}

	headers := SplitLine(headerLine, delimiter)
	for i, h := range headers {
		headers[i] = cleanHeader(h)
	}

	return &FileConfig{
		Delimiter:   delimiter,
		SkipLines:   skipLines,
		Headers:     headers,
		Fingerprint: Fingerprint(headers),
		SampleRows:  getSampleRows(lines, delimiter, skipLines+1, 5),
	}, nil
}

// DetectColumns maps header cells to the date, description and amount columns.
// For each field the leftmost header containing one of its aliases wins, and a
// column claimed by an earlier field in date, description, amount order is not
// considered for later ones.
func DetectColumns(headers []string) (*ColumnMapping, error) {
	tokens := make([]string, len(headers))
	for i, h := range headers {
		tokens[i] = normalizeToken(h)
	}

	claimed := make(map[int]bool, len(fieldOrder))
	found := make(map[Field]int, len(fieldOrder))
	var missing []Field

	for _, field := range fieldOrder {
		idx := matchField(tokens, fieldAliases[field], claimed)
		if idx < 0 {
			missing = append(missing, field)
			continue
		}
		claimed[idx] = true
		found[field] = idx
	}

	if len(missing) > 0 {
		foundHeaders := make([]string, len(headers))
		for i, h := range headers {
			foundHeaders[i] = cleanHeader(h)
		}
		return nil, &DetectionError{
			FoundHeaders: foundHeaders,
			Missing:      missing,
			Hints:        suggestHeaders(tokens, missing, claimed),
		}
	}

	amountCol := found[FieldAmount]
	return &ColumnMapping{
		DateCol:    found[FieldDate],
		DescCol:    found[FieldDescription],
		AmountCol:  amountCol,
		AmountKind: amountKind(tokens[amountCol]),
	}, nil
}

func matchField(tokens []string, aliases []string, claimed map[int]bool) int {
	for i, token := range tokens {
		if claimed[i] || token == "" {
			continue
		}
		if containsAny(token, aliases) {
			return i
		}
	}
	return -1
}

func amountKind(token string) AmountKind {
	credit := containsAny(token, creditKeywords)
	debit := containsAny(token, debitKeywords)
	switch {
	case credit && !debit:
		return AmountCredit
	case debit && !credit:
		return AmountDebit
	default:
		return AmountSigned
	}
}

// suggestHeaders finds, for each missing field, the unclaimed header closest to one of its aliases.
func suggestHeaders(tokens []string, missing []Field, claimed map[int]bool) map[Field]string {
	hints := make(map[Field]string)
	for _, field := range missing {
		best, bestDist := "", -1
		for i, token := range tokens {
			if claimed[i] || len(token) < 2 {
				continue
			}
			for _, alias := range fieldAliases[field] {
				dist := fuzzy.LevenshteinDistance(token, alias)
				if !fuzzy.MatchNormalizedFold(token, alias) && dist > 2 {
					continue
				}
				if bestDist < 0 || dist < bestDist {
					best, bestDist = token, dist
				}
			}
		}
		if best != "" {
			hints[field] = best
		}
	}
	return hints
}

// SplitLines splits raw bytes into lines, stripping CR and a leading BOM.
// Lines that only contain whitespace become empty strings so row numbering is kept.
func SplitLines(data []byte) []string {
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line, i == 0)
	}
	return lines
}

// SplitLine splits one line on delim. A double quote toggles quoting, delimiters
// inside quotes are kept, and a doubled quote inside a quoted section is a literal quote.
func SplitLine(line string, delim rune) []string {
	var (
		cells   []string
		current strings.Builder
		inQuote bool
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			if inQuote && i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
				continue
			}
			inQuote = !inQuote
		case r == delim && !inQuote:
			cells = append(cells, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(cells, current.String())
}

// DetectDelimiter picks ';' when it outnumbers ',' outside quotes, otherwise ','.
func DetectDelimiter(line string) rune {
	commas, semicolons := 0, 0
	inQuote := false
	for _, r := range line {
		switch r {
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				commas++
			}
		case ';':
			if !inQuote {
				semicolons++
			}
		}
	}
	if semicolons > commas {
		return ';'
	}
	return ','
}

func cleanLine(line string, firstLine bool) string {
	line = strings.TrimRight(line, "\r")
	if firstLine {
		line = strings.TrimPrefix(line, "\uFEFF")
	}
	if strings.TrimSpace(line) == "" {
		return ""
	}
	return line
}

func cleanHeader(h string) string {
	return strings.TrimSpace(strings.ReplaceAll(h, `"`, ""))
}

func normalizeToken(h string) string {
	return strings.ToLower(cleanHeader(strings.ReplaceAll(h, "'", "")))
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Fingerprint creates a stable hash from header names for bank format recognition
func Fingerprint(headers []string) string {
	var normalized []string
	for _, h := range headers {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, h)
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}

	hash := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(hash[:])
}

// getSampleRows returns the first N non-empty data rows after the header
func getSampleRows(lines []string, delimiter rune, startLine, maxRows int) [][]string {
	var rows [][]string
	for i := startLine; i < len(lines) && len(rows) < maxRows; i++ {
		if lines[i] == "" {
			continue
		}
		rows = append(rows, SplitLine(lines[i], delimiter))
	}
	return rows
}
