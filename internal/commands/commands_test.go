package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const italianStatement = "Data operazione;Descrizione;Importo\n" +
	"05/01/2024;ESSELUNGA MILANO;-12,50\n" +
	"06/01/2024;ZZQ VENDOR;-3,00\n" +
	"27/01/2024;STIPENDIO GENNAIO;1.500,00\n"

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("AI_PROVIDER", "none")
	t.Setenv("DATABASE_ENABLED", "false")

	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_WritesReportAndSummary(t *testing.T) {
	statement := writeFile(t, "estratto.csv", italianStatement)
	reportPath := filepath.Join(t.TempDir(), "report.json")
	csvPath := filepath.Join(t.TempDir(), "out.csv")

	stdout, _, err := execute(t, "run", statement, "--json", reportPath, "--csv", csvPath)
	require.NoError(t, err)

	assert.Contains(t, stdout, "estratto.csv: 3 rows, 3 imported, 0 duplicates, 0 rejected")
	assert.Contains(t, stdout, "income €")
	assert.Contains(t, stdout, "? row 3 2024-01-06 ZZQ VENDOR")

	raw, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var report struct {
		State        string `json:"state"`
		Delimiter    string `json:"delimiter"`
		Transactions []struct {
			Category string      `json:"category"`
			Amount   json.Number `json:"amount"`
			Type     string      `json:"type"`
		} `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(raw, &report))
	assert.Equal(t, "Done", report.State)
	assert.Equal(t, ";", report.Delimiter)
	require.Len(t, report.Transactions, 3)
	assert.Equal(t, "Food", report.Transactions[0].Category)
	assert.Equal(t, "Other", report.Transactions[1].Category)
	assert.Equal(t, "Income", report.Transactions[2].Category)
	assert.Equal(t, "Income", report.Transactions[2].Type)
	assert.Equal(t, "1500.00", report.Transactions[2].Amount.String())

	exported, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(exported)), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "row,date,description,amount"))
}

func TestRun_KnownTransactionsAreDuplicates(t *testing.T) {
	statement := writeFile(t, "estratto.csv", italianStatement)
	known := writeFile(t, "known.csv", "date,description,amount\n2024-01-05,ESSELUNGA MILANO,12.50\n")

	stdout, _, err := execute(t, "run", statement, "--known", known)
	require.NoError(t, err)
	assert.Contains(t, stdout, "3 rows, 2 imported, 1 duplicates")
}

func TestRun_KnownAsJSON(t *testing.T) {
	statement := writeFile(t, "estratto.csv", italianStatement)
	known := writeFile(t, "known.json", `[{"date":"2024-01-27","description":"STIPENDIO GENNAIO","amount":"1500"}]`)

	stdout, _, err := execute(t, "run", statement, "--known", known)
	require.NoError(t, err)
	assert.Contains(t, stdout, "2 imported, 1 duplicates")
}

func TestRun_FailureIsReported(t *testing.T) {
	statement := writeFile(t, "odd.csv", "Foo,Bar,Baz\n1,2,3\n")

	_, stderr, err := execute(t, "run", statement)
	require.Error(t, err)
	assert.Contains(t, stderr, "import failed:")
	assert.Contains(t, stderr, "found headers: Foo, Bar, Baz")
}

func TestRun_RequireAIWithoutCredentials(t *testing.T) {
	statement := writeFile(t, "estratto.csv", italianStatement)

	_, _, err := execute(t, "run", statement, "--require-ai")
	require.Error(t, err)
}

func TestRun_MissingFile(t *testing.T) {
	_, _, err := execute(t, "run", filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading")
}

func TestDetect(t *testing.T) {
	statement := writeFile(t, "estratto.csv", italianStatement)

	stdout, _, err := execute(t, "detect", statement)
	require.NoError(t, err)
	assert.Contains(t, stdout, "format:      delimited")
	assert.Contains(t, stdout, "delimiter:   ';'")
	assert.Contains(t, stdout, "date:        column 1 (Data operazione)")
	assert.Contains(t, stdout, "amount:      column 3 (Importo, signed)")
	assert.Contains(t, stdout, "decimal:     comma")
}

func TestDetect_PrintsHints(t *testing.T) {
	statement := writeFile(t, "odd.csv", "Datum,Omschrijving,Bedrag\n2024-01-05,X,-1\n")

	stdout, _, err := execute(t, "detect", statement)
	require.Error(t, err)
	assert.Contains(t, stdout, "headers:     Datum | Omschrijving | Bedrag")
}

func TestClassify(t *testing.T) {
	stdout, _, err := execute(t, "classify", "ESSELUNGA MILANO", "ZZQ VENDOR")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Food\t85\tesselunga\tESSELUNGA MILANO", lines[0])
	assert.Equal(t, "Other\t50\t-\tZZQ VENDOR", lines[1])
}

func TestClassify_RequiresArgument(t *testing.T) {
	_, _, err := execute(t, "classify")
	require.Error(t, err)
}

func TestSample(t *testing.T) {
	first, _, err := execute(t, "sample", "--rows", "5", "--seed", "7", "--dialect", "it", "--month", "2024-03")
	require.NoError(t, err)
	second, _, err := execute(t, "sample", "--rows", "5", "--seed", "7", "--dialect", "it", "--month", "2024-03")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	lines := strings.Split(strings.TrimSpace(first), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "Data operazione;Descrizione;Importo (EUR)", lines[0])
}

func TestSample_RoundTripsThroughDetect(t *testing.T) {
	csv, _, err := execute(t, "sample", "--rows", "10", "--dialect", "en", "--month", "2024-03")
	require.NoError(t, err)
	statement := writeFile(t, "sample.csv", csv)

	stdout, _, err := execute(t, "detect", statement)
	require.NoError(t, err)
	assert.Contains(t, stdout, "data rows:   10")
	assert.Contains(t, stdout, "decimal:     point")
}

func TestSample_InvalidFlags(t *testing.T) {
	_, _, err := execute(t, "sample", "--dialect", "fr")
	require.Error(t, err)

	_, _, err = execute(t, "sample", "--month", "March")
	require.Error(t, err)
}
