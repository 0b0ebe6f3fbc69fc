// Package parser reduces uploaded bank exports to a header row plus numbered raw rows.
// Delimited text and XLSX workbooks produce the same Table shape.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/FACorreiaa/smart-finance-import/internal/domain/import/sniffer"
)

// Format identifies the container the rows were read from.
type Format string

const (
	FormatDelimited Format = "delimited"
	FormatWorkbook  Format = "xlsx"
)

var zipMagic = []byte("PK\x03\x04")

// ErrUnsupportedFormat is returned for containers the pipeline cannot read (PDF, legacy XLS).
var ErrUnsupportedFormat = errors.New("unsupported file format")

// RawRow is one data row as found in the file. Line is 1-based and counts the header.
type RawRow struct {
	Line  int
	Cells []string
}

// Cell returns the cell at idx, or "" when the row is short.
func (r RawRow) Cell(idx int) string {
	if idx < 0 || idx >= len(r.Cells) {
		return ""
	}
	return r.Cells[idx]
}

// Table is the parsed view of one file.
type Table struct {
	Format      Format
	Sheet       string
	Delimiter   rune
	Headers     []string
	Fingerprint string
	Rows        []RawRow
}

// Options controls header and sheet selection.
type Options struct {
	// HeaderRowIndex is the 0-based line (or sheet row) of the header, -1 for auto.
	HeaderRowIndex int
	// Sheet selects a workbook sheet by name; empty picks the most likely one.
	Sheet string
}

// DefaultOptions returns auto-detection for everything.
func DefaultOptions() Options {
	return Options{HeaderRowIndex: -1}
}

// Read parses data into a Table, choosing the reader from the filename and content.
func Read(data []byte, filename string, opts Options) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".xls":
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if IsWorkbook(filename, data) {
		return ReadWorkbook(data, opts)
	}
	return ReadDelimited(data, opts)
}

// IsWorkbook reports whether the upload is an XLSX workbook.
func IsWorkbook(filename string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return bytes.HasPrefix(data, zipMagic)
}

// ReadDelimited parses comma or semicolon separated text.
// Blank lines are skipped but still advance the line counter.
func ReadDelimited(data []byte, opts Options) (*Table, error) {
	data = NormalizeEncoding(data)

	cfg, err := sniffer.DetectConfigWithOptions(data, &sniffer.DetectOptions{HeaderRowIndex: opts.HeaderRowIndex})
	if err != nil {
		return nil, err
	}

	lines := sniffer.SplitLines(data)
	table := &Table{
		Format:      FormatDelimited,
		Delimiter:   cfg.Delimiter,
		Headers:     cfg.Headers,
		Fingerprint: cfg.Fingerprint,
		Rows:        make([]RawRow, 0, len(lines)),
	}

	for i := cfg.SkipLines + 1; i < len(lines); i++ {
		if lines[i] == "" {
			continue
		}
		table.Rows = append(table.Rows, RawRow{
			Line:  i + 1,
			Cells: sniffer.SplitLine(lines[i], cfg.Delimiter),
		})
	}

	return table, nil
}

// NormalizeEncoding strips a UTF-8 BOM and decodes Windows-1252 exports
// (a superset of ISO-8859-1 used by most Italian and Portuguese banks).
func NormalizeEncoding(data []byte) []byte {
	data = bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))
	if utf8.Valid(data) {
		return data
	}
	decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return data
	}
	return decoded
}
