package normalizer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/smart-finance-import/internal/domain/import/parser"
	"github.com/FACorreiaa/smart-finance-import/internal/domain/import/sniffer"
	"github.com/FACorreiaa/smart-finance-import/internal/domain/transaction"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2024-01-05", "2024-01-05"},
		{"2024-1-5", "2024-01-05"},
		{"05/01/2024", "2024-01-05"},
		{"5/1/2024", "2024-01-05"},
		{"05-01-2024", "2024-01-05"},
		{`"31/12/2023"`, "2023-12-31"},
		{" 29/02/2024 ", "2024-02-29"},
		{"2024-01-05T23:30:00-05:00", "2024-01-05"},
		{"2024-01-05 10:15:00", "2024-01-05"},
		{"05/01/2024 10:15", "2024-01-05"},
		{"05.01.2024", "2024-01-05"},
		{"2024/01/05", "2024-01-05"},
		{"5 Jan 2024", "2024-01-05"},
		{"Jan 5, 2024", "2024-01-05"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDate(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate_Rejects(t *testing.T) {
	for _, raw := range []string{"", "not a date", "31/02/2024", "2023-02-29", "01/15/2024", "13-13-2024", "05/01/24"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseDate(raw)
			assert.ErrorIs(t, err, ErrInvalidDate)
		})
	}
}

func TestParseDate_RoundTrip(t *testing.T) {
	inputs := []string{"2024-01-05", "05/01/2024", "31-12-1999", "29/02/2024", "2024-01-05T01:00:00+09:00", "1 March 2020"}
	for _, raw := range inputs {
		first, err := ParseDate(raw)
		require.NoError(t, err, raw)
		second, err := ParseDate(first)
		require.NoError(t, err)
		assert.Equal(t, first, second, raw)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw      string
		comma    bool
		want     string
		negative bool
	}{
		{"-€1.234,56", false, "1234.56", true},
		{"1234.56", false, "1234.56", false},
		{"-45.20", false, "45.2", true},
		{"-45,20", false, "45.2", true},
		{"$1,234.56", false, "1234.56", false},
		{"£ 12", false, "12", false},
		{"1 234,56 €", false, "1234.56", false},
		{"(12.50)", false, "12.5", true},
		{"12.50-", false, "12.5", true},
		{"+7", false, "7", false},
		{"1,234", false, "1234", false},
		{"1.234.567", false, "1234567", false},
		{"1.234", false, "1.23", false},
		{"12.345", false, "12.35", false},
		{"-0.005", false, "0.01", true},
		{"1.234", true, "1234", false},
		{",50", false, "0.5", false},
		{"45,", false, "45", false},
		{`"2.500,00"`, false, "2500", false},
		{"EUR -3,99", false, "3.99", true},
		{"−8.00", false, "8", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAmount(tt.raw, tt.comma)
			require.NoError(t, err)
			assert.True(t, got.Value.Equal(decimal.RequireFromString(tt.want)), "got %s", got.Value)
			assert.True(t, got.Value.IsPositive())
			assert.Equal(t, tt.negative, got.Negative)
		})
	}
}

func TestParseAmount_Rejects(t *testing.T) {
	tests := map[string]error{
		"":       ErrInvalidAmount,
		"abc":    ErrInvalidAmount,
		"NaN":    ErrInvalidAmount,
		"1-2":    ErrInvalidAmount,
		"0":      ErrZeroAmount,
		"0,00":   ErrZeroAmount,
		"-€0.0":  ErrZeroAmount,
		"-0.004": ErrZeroAmount,
		"0.001":  ErrZeroAmount,
	}
	for raw, want := range tests {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseAmount(raw, false)
			assert.ErrorIs(t, err, want)
		})
	}
}

func TestCleanDescription(t *testing.T) {
	got, err := CleanDescription(`  "ESSELUNGA   MILANO"  `)
	require.NoError(t, err)
	assert.Equal(t, "ESSELUNGA MILANO", got)

	_, err = CleanDescription(`" "`)
	assert.ErrorIs(t, err, ErrEmptyDescription)
}

func TestProbeDecimalComma(t *testing.T) {
	assert.True(t, ProbeDecimalComma([]string{"-45,20", "1.234,56", "1.234"}, ','))
	assert.False(t, ProbeDecimalComma([]string{"-45.20", "1,234.56", "1.234"}, ';'))
	assert.False(t, ProbeDecimalComma(nil, ','))
}

func TestProbeDecimalComma_TieFollowsDelimiter(t *testing.T) {
	thousands := []string{"1.200", "-2.500", "3.000"}
	assert.True(t, ProbeDecimalComma(thousands, ';'))
	assert.False(t, ProbeDecimalComma(thousands, ','))
	assert.False(t, ProbeDecimalComma(thousands, 0))
}

func TestNormalizeAll(t *testing.T) {
	mapping := sniffer.ColumnMapping{DateCol: 0, DescCol: 1, AmountCol: 2}
	rows := []parser.RawRow{
		{Line: 2, Cells: []string{"2024-01-05", "ESSELUNGA MILANO", "-45.20"}},
		{Line: 3, Cells: []string{"31/02/2024", "BAD DATE", "-1"}},
		{Line: 4, Cells: []string{"2024-01-06", "STIPENDIO", "2500"}},
		{Line: 5, Cells: []string{"2024-01-07", "ZERO", "0"}},
		{Line: 6, Cells: []string{"2024-01-08", "  ", "-3"}},
		{Line: 7, Cells: []string{"2024-01-09"}},
	}
	original := make([]parser.RawRow, len(rows))
	for i, r := range rows {
		original[i] = parser.RawRow{Line: r.Line, Cells: append([]string(nil), r.Cells...)}
	}

	result := New(mapping, Options{}).NormalizeAll(rows)

	require.Len(t, result.Transactions, 2)
	first := result.Transactions[0]
	assert.Equal(t, 2, first.Row)
	assert.Equal(t, "2024-01-05", first.Date)
	assert.Equal(t, "ESSELUNGA MILANO", first.Description)
	assert.True(t, first.Amount.Equal(decimal.RequireFromString("45.20")))
	assert.Equal(t, transaction.TypeExpense, first.Type)
	assert.Equal(t, transaction.CategoryOther, first.Category)

	assert.Equal(t, transaction.TypeIncome, result.Transactions[1].Type)

	require.Len(t, result.Errors, 4)
	assert.Equal(t, "row 3: invalid date \"31/02/2024\"", result.Errors[0].Error())
	assert.Equal(t, sniffer.FieldAmount, result.Errors[1].Field)
	assert.ErrorIs(t, result.Errors[1], ErrZeroAmount)
	assert.Equal(t, "row 6: empty description", result.Errors[2].Error())
	assert.Equal(t, 7, result.Errors[3].Line)

	assert.Equal(t, original, rows, "raw rows must not be modified")
}

func TestAssignTypes(t *testing.T) {
	rows := []parser.RawRow{
		{Line: 2, Cells: []string{"2024-01-05", "A", "10"}},
		{Line: 3, Cells: []string{"2024-01-05", "B", "20"}},
	}

	t.Run("unsigned file defaults to expense", func(t *testing.T) {
		res := New(sniffer.ColumnMapping{DateCol: 0, DescCol: 1, AmountCol: 2}, Options{}).NormalizeAll(rows)
		for _, tx := range res.Transactions {
			assert.Equal(t, transaction.TypeExpense, tx.Type)
		}
	})

	t.Run("credit column is income", func(t *testing.T) {
		mapping := sniffer.ColumnMapping{DateCol: 0, DescCol: 1, AmountCol: 2, AmountKind: sniffer.AmountCredit}
		res := New(mapping, Options{}).NormalizeAll(rows)
		for _, tx := range res.Transactions {
			assert.Equal(t, transaction.TypeIncome, tx.Type)
		}
	})

	t.Run("debit column with negative values stays expense", func(t *testing.T) {
		mapping := sniffer.ColumnMapping{DateCol: 0, DescCol: 1, AmountCol: 2, AmountKind: sniffer.AmountDebit}
		res := New(mapping, Options{}).NormalizeAll([]parser.RawRow{{Line: 2, Cells: []string{"2024-01-05", "A", "-10"}}})
		require.Len(t, res.Transactions, 1)
		assert.Equal(t, transaction.TypeExpense, res.Transactions[0].Type)
	})
}

func TestNormalize_SerialDates(t *testing.T) {
	mapping := sniffer.ColumnMapping{DateCol: 0, DescCol: 1, AmountCol: 2}
	row := parser.RawRow{Line: 2, Cells: []string{"45296", "ESSELUNGA", "-45.2"}}

	_, rowErr := New(mapping, Options{}).Normalize(row)
	require.NotNil(t, rowErr)

	draft, rowErr := New(mapping, Options{SerialDates: true}).Normalize(row)
	require.Nil(t, rowErr)
	assert.Equal(t, "2024-01-05", draft.Transaction.Date)
	assert.True(t, draft.Negative)
}

func TestProbeTable(t *testing.T) {
	table := &parser.Table{Rows: []parser.RawRow{
		{Line: 2, Cells: []string{"05/01/2024", "A", "1.234,56"}},
		{Line: 3, Cells: []string{"06/01/2024", "B", "-45,20"}},
	}}
	assert.True(t, ProbeTable(table, sniffer.ColumnMapping{AmountCol: 2}, 50))
}

func TestProbeTable_SemicolonWholeThousands(t *testing.T) {
	table := &parser.Table{Delimiter: ';', Rows: []parser.RawRow{
		{Line: 2, Cells: []string{"05/01/2024", "AFFITTO", "1.200"}},
		{Line: 3, Cells: []string{"06/01/2024", "STIPENDIO", "2.500"}},
	}}
	mapping := sniffer.ColumnMapping{DateCol: 0, DescCol: 1, AmountCol: 2}
	comma := ProbeTable(table, mapping, 50)
	require.True(t, comma)

	result := New(mapping, Options{DecimalComma: comma}).NormalizeAll(table.Rows)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, "1200", result.Transactions[0].Amount.String())
	assert.Equal(t, "2500", result.Transactions[1].Amount.String())
}
