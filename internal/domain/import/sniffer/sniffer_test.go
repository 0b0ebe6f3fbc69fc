package sniffer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectColumns(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    ColumnMapping
	}{
		{
			name:    "english",
			headers: []string{"Date", "Description", "Amount"},
			want:    ColumnMapping{DateCol: 0, DescCol: 1, AmountCol: 2},
		},
		{
			name:    "italian aliases",
			headers: []string{"Data operazione", "Causale", "Importo (EUR)"},
			want:    ColumnMapping{DateCol: 0, DescCol: 1, AmountCol: 2},
		},
		{
			name:    "quoted and reordered",
			headers: []string{`"AMOUNT"`, ` "Payee" `, `"Posting Date"`},
			want:    ColumnMapping{DateCol: 2, DescCol: 1, AmountCol: 0},
		},
		{
			name:    "leftmost match wins",
			headers: []string{"Data operazione", "Data valuta", "Descrizione", "Importo"},
			want:    ColumnMapping{DateCol: 0, DescCol: 2, AmountCol: 3},
		},
		{
			name:    "debit column",
			headers: []string{"Date", "Details", "Debit"},
			want:    ColumnMapping{DateCol: 0, DescCol: 1, AmountCol: 2, AmountKind: AmountDebit},
		},
		{
			name:    "avere column",
			headers: []string{"Data", "Beneficiario", "Avere"},
			want:    ColumnMapping{DateCol: 0, DescCol: 1, AmountCol: 2, AmountKind: AmountCredit},
		},
		{
			name:    "debit and credit in one header is signed",
			headers: []string{"Date", "Merchant", "Debit/Credit"},
			want:    ColumnMapping{DateCol: 0, DescCol: 1, AmountCol: 2, AmountKind: AmountSigned},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectColumns(tt.headers)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestDetectColumns_NoDoubleClaim(t *testing.T) {
	// "Update description" satisfies both date and description; date claims it first.
	got, err := DetectColumns([]string{"Update description", "Merchant", "Amount"})
	require.NoError(t, err)
	assert.Equal(t, 0, got.DateCol)
	assert.Equal(t, 1, got.DescCol)
	assert.Equal(t, 2, got.AmountCol)

	_, err = DetectColumns([]string{"Update description", "Amount"})
	var detErr *DetectionError
	require.ErrorAs(t, err, &detErr)
	assert.Equal(t, []Field{FieldDescription}, detErr.Missing)
}

func TestDetectColumns_Failure(t *testing.T) {
	_, err := DetectColumns([]string{"x", "y", "z"})
	require.Error(t, err)

	var detErr *DetectionError
	require.True(t, errors.As(err, &detErr))
	assert.Equal(t, []string{"x", "y", "z"}, detErr.FoundHeaders)
	assert.Equal(t, []Field{FieldDate, FieldDescription, FieldAmount}, detErr.Missing)
	assert.Empty(t, detErr.Hints)
	assert.Contains(t, err.Error(), "x, y, z")
}

func TestDetectColumns_Hints(t *testing.T) {
	_, err := DetectColumns([]string{"Date", "Description", "Amt"})
	var detErr *DetectionError
	require.ErrorAs(t, err, &detErr)
	assert.Equal(t, []Field{FieldAmount}, detErr.Missing)
	assert.Equal(t, "amt", detErr.Hints[FieldAmount])
}

func TestDetectColumns_Deterministic(t *testing.T) {
	headers := []string{"Valuta", "Data", "Dettagli", "Payee", "Value", "Amount"}
	first, err := DetectColumns(headers)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := DetectColumns(headers)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, 0, first.DateCol)
	assert.Equal(t, 3, first.DescCol)
	assert.Equal(t, 4, first.AmountCol)
}

func TestSplitLine(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		delim rune
		want  []string
	}{
		{"plain", "a,b,c", ',', []string{"a", "b", "c"}},
		{"quoted delimiter", `2024-01-05,"Shop, Milan",-1.234,56`, ';', []string{`2024-01-05,Shop, Milan,-1.234,56`}},
		{"quoted comma kept", `2024-01-05,"Shop, Milan","-1.234,56"`, ',', []string{"2024-01-05", "Shop, Milan", "-1.234,56"}},
		{"escaped quote", `"He said ""hi""",1`, ',', []string{`He said "hi"`, "1"}},
		{"semicolon", "05/01/2024;ESSELUNGA;-45,20", ';', []string{"05/01/2024", "ESSELUNGA", "-45,20"}},
		{"trailing empty", "a,b,", ',', []string{"a", "b", ""}},
		{"unterminated quote", `a,"b,c`, ',', []string{"a", "b,c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitLine(tt.line, tt.delim))
		})
	}
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ',', DetectDelimiter("date,description,amount"))
	assert.Equal(t, ';', DetectDelimiter("Data;Causale;Importo"))
	assert.Equal(t, ',', DetectDelimiter(`"a;b";"c;d",e,f`))
	assert.Equal(t, ',', DetectDelimiter("single"))
}

func TestDetectConfig(t *testing.T) {
	t.Run("first non-empty line is the header", func(t *testing.T) {
		data := []byte("\uFEFF\r\n\r\nData;Causale;Importo\r\n05/01/2024;ESSELUNGA;-45,20\r\n")
		cfg, err := DetectConfig(data)
		require.NoError(t, err)
		assert.Equal(t, ';', cfg.Delimiter)
		assert.Equal(t, 2, cfg.SkipLines)
		assert.Equal(t, []string{"Data", "Causale", "Importo"}, cfg.Headers)
		require.Len(t, cfg.SampleRows, 1)
		assert.Equal(t, []string{"05/01/2024", "ESSELUNGA", "-45,20"}, cfg.SampleRows[0])
		assert.Len(t, cfg.Fingerprint, 64)
	})

	t.Run("header override", func(t *testing.T) {
		data := []byte("Bank export 2024\nDate,Description,Amount\n2024-01-05,Shop,-1\n")
		cfg, err := DetectConfigWithOptions(data, &DetectOptions{HeaderRowIndex: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"Date", "Description", "Amount"}, cfg.Headers)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := DetectConfig([]byte(" \n\r\n"))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("override past end", func(t *testing.T) {
		_, err := DetectConfigWithOptions([]byte("a,b\n"), &DetectOptions{HeaderRowIndex: 5})
		assert.ErrorIs(t, err, ErrNoHeadersFound)
	})
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint([]string{"Date", "Description", "Amount"})
	b := Fingerprint([]string{" date ", "DESCRIPTION", "amount!"})
	c := Fingerprint([]string{"Data", "Causale", "Importo"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
