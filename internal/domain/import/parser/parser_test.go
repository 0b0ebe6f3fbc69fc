package parser

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/smart-finance-import/internal/domain/import/sniffer"
	"github.com/FACorreiaa/smart-finance-import/internal/domain/transaction"
)

func TestReadDelimited(t *testing.T) {
	t.Run("comma file with quoted fields", func(t *testing.T) {
		csv := "date,description,amount\n" +
			"2024-01-05,\"ESSELUNGA, MILANO\",-45.20\n" +
			"\n" +
			"2024-01-06,Salary,\"2.500,00\"\n"

		table, err := ReadDelimited([]byte(csv), DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, FormatDelimited, table.Format)
		assert.Equal(t, ',', table.Delimiter)
		assert.Equal(t, []string{"date", "description", "amount"}, table.Headers)
		require.Len(t, table.Rows, 2)

		assert.Equal(t, 2, table.Rows[0].Line)
		assert.Equal(t, []string{"2024-01-05", "ESSELUNGA, MILANO", "-45.20"}, table.Rows[0].Cells)

		// The blank line still counts toward line numbers.
		assert.Equal(t, 4, table.Rows[1].Line)
		assert.Equal(t, "2.500,00", table.Rows[1].Cell(2))
	})

	t.Run("semicolon file with CRLF", func(t *testing.T) {
		csv := "Data operazione;Causale;Importo (EUR)\r\n05/01/2024;ESSELUNGA;-45,20\r\n"
		table, err := ReadDelimited([]byte(csv), DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, ';', table.Delimiter)
		require.Len(t, table.Rows, 1)
		assert.Equal(t, []string{"05/01/2024", "ESSELUNGA", "-45,20"}, table.Rows[0].Cells)
	})

	t.Run("header only", func(t *testing.T) {
		table, err := ReadDelimited([]byte("date,description,amount\n\n"), DefaultOptions())
		require.NoError(t, err)
		assert.Empty(t, table.Rows)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ReadDelimited(nil, DefaultOptions())
		assert.ErrorIs(t, err, sniffer.ErrEmptyFile)
	})
}

func TestRawRowCell(t *testing.T) {
	row := RawRow{Line: 2, Cells: []string{"a"}}
	assert.Equal(t, "a", row.Cell(0))
	assert.Equal(t, "", row.Cell(3))
	assert.Equal(t, "", row.Cell(-1))
}

func TestNormalizeEncoding(t *testing.T) {
	t.Run("latin1 is decoded", func(t *testing.T) {
		latin1 := []byte("Data;Descrizione;Importo\n05/01/2024;Caff\xe8 Centrale;-2,50\n")
		out := NormalizeEncoding(latin1)
		assert.Contains(t, string(out), "Caffè Centrale")
	})

	t.Run("bom is stripped", func(t *testing.T) {
		out := NormalizeEncoding([]byte("\xEF\xBB\xBFdate,description,amount"))
		assert.Equal(t, "date,description,amount", string(out))
	})

	t.Run("utf8 untouched", func(t *testing.T) {
		in := []byte("Data;Descrizione\n05/01/2024;Caffè")
		assert.Equal(t, in, NormalizeEncoding(in))
	})
}

func buildWorkbook(t *testing.T, sheet string, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadWorkbook(t *testing.T) {
	data := buildWorkbook(t, "Movimenti", [][]interface{}{
		{"Data", "Causale", "Importo"},
		{45296, "ESSELUNGA MILANO", -45.2},
		{},
		{"06/01/2024", "STIPENDIO", 2500},
	})

	table, err := Read(data, "estratto.xlsx", DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, FormatWorkbook, table.Format)
	assert.Equal(t, "Movimenti", table.Sheet)
	assert.Equal(t, []string{"Data", "Causale", "Importo"}, table.Headers)
	require.Len(t, table.Rows, 2)

	assert.Equal(t, 2, table.Rows[0].Line)
	assert.Equal(t, "45296", table.Rows[0].Cell(0))
	assert.Equal(t, "-45.2", table.Rows[0].Cell(2))
	assert.Equal(t, 4, table.Rows[1].Line)
	assert.Equal(t, "06/01/2024", table.Rows[1].Cell(0))

	t.Run("detected by content", func(t *testing.T) {
		assert.True(t, IsWorkbook("upload.bin", data))
		assert.False(t, IsWorkbook("upload.csv", []byte("date,description")))
	})
}

func TestReadUnsupported(t *testing.T) {
	_, err := Read([]byte("%PDF-1.4"), "statement.pdf", DefaultOptions())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSerialDate(t *testing.T) {
	got, ok := SerialDate("45296")
	require.True(t, ok)
	assert.Equal(t, "2024-01-05", got)

	got, ok = SerialDate("45296.75")
	require.True(t, ok)
	assert.Equal(t, "2024-01-05", got)

	for _, raw := range []string{"", "abc", "0.5", "-3", "05/01/2024"} {
		_, ok := SerialDate(raw)
		assert.False(t, ok, raw)
	}
}

func TestReferenceCSV(t *testing.T) {
	t.Run("reads reference set", func(t *testing.T) {
		in := "date,description,amount,category\n" +
			"2024-01-05,ESSELUNGA MILANO,-45.20,Food\n" +
			"2024-01-06, Netflix ,12.99,Entertainment\n"

		refs, err := ReadReferenceCSV(strings.NewReader(in))
		require.NoError(t, err)
		require.Len(t, refs, 2)
		assert.Equal(t, "2024-01-05", refs[0].Date)
		assert.True(t, refs[0].Amount.Equal(decimal.RequireFromString("45.20")))
		assert.Equal(t, "Netflix", refs[1].Description)
	})

	t.Run("missing description is rejected", func(t *testing.T) {
		_, err := ReadReferenceCSV(strings.NewReader("date,description,amount\n2024-01-05,,1\n"))
		assert.Error(t, err)
	})

	t.Run("export can be used as the next reference set", func(t *testing.T) {
		tx := transaction.Transaction{
			Row:         2,
			Date:        "2024-01-05",
			Description: "ESSELUNGA MILANO",
			Amount:      decimal.RequireFromString("45.2"),
			Type:        transaction.TypeExpense,
		}
		tx.SetClassification(transaction.CategoryFood, 85)

		var buf bytes.Buffer
		require.NoError(t, WriteTransactionsCSV(&buf, []transaction.Transaction{tx}))
		assert.Contains(t, buf.String(), "row,date,description,amount,type,category,confidence,needs_review,is_duplicate")
		assert.Contains(t, buf.String(), "2,2024-01-05,ESSELUNGA MILANO,45.20,Expense,Food,85,false,false")

		refs, err := ReadReferenceCSV(&buf)
		require.NoError(t, err)
		require.Len(t, refs, 1)
		assert.Equal(t, tx.Reference().Date, refs[0].Date)
		assert.True(t, tx.Amount.Equal(refs[0].Amount))
	})
}
