package parser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/smart-finance-import/internal/domain/import/sniffer"
)

// preferredSheets are matched case-insensitively before falling back to the first non-empty sheet.
var preferredSheets = []string{
	"transactions", "movimenti", "estratto", "estratto conto",
	"statement", "movements", "sheet1",
}

// ReadWorkbook reads an XLSX workbook. Cells are read raw so amounts keep
// their stored precision and dates arrive as serial numbers.
func ReadWorkbook(data []byte, opts Options) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = findTransactionSheet(f)
	}
	if sheet == "" {
		return nil, sniffer.ErrEmptyFile
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	headerIdx := opts.HeaderRowIndex
	if headerIdx < 0 {
		headerIdx = firstNonEmptyRow(rows)
	}
	if headerIdx < 0 {
		return nil, sniffer.ErrEmptyFile
	}
	if headerIdx >= len(rows) || isEmptyRow(rows[headerIdx]) {
		return nil, sniffer.ErrNoHeadersFound
	}

	headers := make([]string, len(rows[headerIdx]))
	for i, h := range rows[headerIdx] {
		headers[i] = strings.TrimSpace(strings.ReplaceAll(h, `"`, ""))
	}

	table := &Table{
		Format:      FormatWorkbook,
		Sheet:       sheet,
		Headers:     headers,
		Fingerprint: sniffer.Fingerprint(headers),
		Rows:        make([]RawRow, 0, len(rows)),
	}
	for i := headerIdx + 1; i < len(rows); i++ {
		if isEmptyRow(rows[i]) {
			continue
		}
		table.Rows = append(table.Rows, RawRow{Line: i + 1, Cells: rows[i]})
	}

	return table, nil
}

// findTransactionSheet finds the best sheet for transaction data
func findTransactionSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}

	for _, preferred := range preferredSheets {
		for _, sheet := range sheets {
			if strings.EqualFold(strings.TrimSpace(sheet), preferred) {
				return sheet
			}
		}
	}

	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err == nil && firstNonEmptyRow(rows) >= 0 {
			return sheet
		}
	}
	return sheets[0]
}

func firstNonEmptyRow(rows [][]string) int {
	for i, row := range rows {
		if !isEmptyRow(row) {
			return i
		}
	}
	return -1
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// SerialDate converts an Excel serial day number into an ISO date.
func SerialDate(raw string) (string, bool) {
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "", false
	}
	// Serials below 1 are time-only cells, above 2958465 is past year 9999.
	if serial < 1 || serial > 2958465 {
		return "", false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02"), true
}
