package service

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-finance-import/internal/domain/import/sniffer"
	"github.com/FACorreiaa/smart-finance-import/internal/domain/transaction"
)

// State is a stage of one import run. Runs only move forward.
type State string

const (
	StateDetecting     State = "Detecting"
	StateNormalizing   State = "Normalizing"
	StateDeduplicating State = "Deduplicating"
	StateClassifying   State = "Classifying"
	StateDone          State = "Done"
	StateFailed        State = "Failed"
)

// Stats summarises a run. Valid counts rows that survived normalization,
// duplicates included; NeedsReview and AvgConfidence are taken over the same set.
type Stats struct {
	Total                 int     `json:"total"`
	Valid                 int     `json:"valid"`
	Invalid               int     `json:"invalid"`
	NeedsReview           int     `json:"needsReview"`
	AvgConfidence         float64 `json:"avgConfidence"`
	Duplicates            int     `json:"duplicates"`
	ClassifiedByRule      int     `json:"classifiedByRule"`
	ClassifiedByModel     int     `json:"classifiedByModel"`
	FallbackBatches       int     `json:"fallbackBatches"`
	FallbackBatchesFailed int     `json:"fallbackBatchesFailed"`
}

// Columns echoes the detected mapping back to the caller.
type Columns struct {
	Date        int    `json:"date"`
	Description int    `json:"description"`
	Amount      int    `json:"amount"`
	AmountKind  string `json:"amountKind"`
}

// Report is the result of a run, in both Done and Failed states.
type Report struct {
	RunID        uuid.UUID                 `json:"runId"`
	State        State                     `json:"state"`
	FileName     string                    `json:"fileName"`
	Format       string                    `json:"format,omitempty"`
	Sheet        string                    `json:"sheet,omitempty"`
	Delimiter    string                    `json:"delimiter,omitempty"`
	Fingerprint  string                    `json:"fingerprint,omitempty"`
	Columns      *Columns                  `json:"columns,omitempty"`
	Transactions []transaction.Transaction `json:"transactions"`
	Duplicates   []transaction.Transaction `json:"duplicates"`
	Stats        Stats                     `json:"stats"`
	Errors       []string                  `json:"errors"`
	Interrupted  bool                      `json:"interrupted"`
	Persisted    int64                     `json:"persisted,omitempty"`
	Message      string                    `json:"message,omitempty"`
	FoundHeaders []string                  `json:"foundHeaders,omitempty"`
	Hints        map[sniffer.Field]string  `json:"hints,omitempty"`
}

func newReport(fileName string) *Report {
	return &Report{
		RunID:        uuid.New(),
		State:        StateDetecting,
		FileName:     fileName,
		Transactions: []transaction.Transaction{},
		Duplicates:   []transaction.Transaction{},
		Errors:       []string{},
	}
}

// PipelineError is a fatal run error. Status is the HTTP status the caller should answer with.
type PipelineError struct {
	Stage        State
	Status       int
	Message      string
	FoundHeaders []string
	Err          error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("import failed while %s: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("import failed while %s: %s", e.Stage, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func badInput(stage State, message string, err error) *PipelineError {
	return &PipelineError{Stage: stage, Status: http.StatusBadRequest, Message: message, Err: err}
}
