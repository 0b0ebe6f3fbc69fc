// Package service provides the import orchestration logic.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/smart-finance-import/internal/domain/categorization"
	"github.com/FACorreiaa/smart-finance-import/internal/domain/import/dedup"
	"github.com/FACorreiaa/smart-finance-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/smart-finance-import/internal/domain/import/parser"
	"github.com/FACorreiaa/smart-finance-import/internal/domain/import/repository"
	"github.com/FACorreiaa/smart-finance-import/internal/domain/import/sniffer"
	"github.com/FACorreiaa/smart-finance-import/internal/domain/transaction"
	"github.com/FACorreiaa/smart-finance-import/pkg/metrics"
	"github.com/FACorreiaa/smart-finance-import/pkg/storage"
)

// probeRows is how many amount cells are sampled to pick the decimal separator.
const probeRows = 50

// Options are per-request switches.
type Options struct {
	// HeaderRow is the 1-based line holding the header; 0 detects it.
	HeaderRow int
	// Sheet picks a workbook sheet by name.
	Sheet string
	// DisableAI keeps every transaction at its rule result.
	DisableAI bool
	// RequireAI fails the run with 500 when no model is configured.
	RequireAI bool
	// Persist stores the new transactions after a successful run.
	Persist bool
}

// Request is one file to import.
type Request struct {
	UserID   uuid.UUID
	FileName string
	Data     []byte
	// Known is the reference set for deduplication. When nil and a repository
	// is configured, stored transactions of UserID are used instead.
	Known   []transaction.Reference
	Options Options
}

// Config holds service-wide settings.
type Config struct {
	// ReviewThreshold sends rule results below it to the model tier.
	ReviewThreshold int
	// RequireAI makes every request behave as if Options.RequireAI was set.
	RequireAI bool
}

// ImportService orchestrates the detect, normalize, deduplicate and classify stages.
type ImportService struct {
	classifier *categorization.Service
	repo       repository.ImportRepository // optional
	archive    storage.Archive             // optional
	cfg        Config
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewImportService creates a new import service
func NewImportService(classifier *categorization.Service, cfg Config, logger *slog.Logger) *ImportService {
	if classifier == nil {
		classifier = categorization.NewService(nil, nil, logger)
	}
	if cfg.ReviewThreshold <= 0 {
		cfg.ReviewThreshold = transaction.ReviewThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportService{
		classifier: classifier,
		cfg:        cfg,
		tracer:     otel.Tracer("import"),
		logger:     logger,
	}
}

// WithRepository enables reference lookups and persistence.
func (s *ImportService) WithRepository(repo repository.ImportRepository) *ImportService {
	s.repo = repo
	return s
}

// WithArchive stores every upload before it is processed.
func (s *ImportService) WithArchive(archive storage.Archive) *ImportService {
	s.archive = archive
	return s
}

// Run executes the pipeline on one file. The report is returned in every case;
// a *PipelineError accompanies it when the run ends in Failed. Row and batch
// failures never fail the run, they are listed in Report.Errors.
func (s *ImportService) Run(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	report := newReport(req.FileName)

	ctx, span := s.tracer.Start(ctx, "import.Run", trace.WithAttributes(
		attribute.String("import.run_id", report.RunID.String()),
		attribute.String("import.file_name", req.FileName),
		attribute.Int("import.size_bytes", len(req.Data)),
	))
	defer span.End()

	log := s.logger.With("run_id", report.RunID.String(), "file", req.FileName)

	err := s.run(ctx, req, report, log)
	if err != nil {
		report.State = StateFailed
		report.Message = err.Error()
		var perr *PipelineError
		if errors.As(err, &perr) {
			report.Message = perr.Message
			if perr.FoundHeaders != nil {
				report.FoundHeaders = perr.FoundHeaders
			}
		}
	}

	metrics.ImportDuration.Observe(time.Since(start).Seconds())
	metrics.ImportRuns.WithLabelValues(string(report.State)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, report.Message)
		log.Warn("import failed",
			"stage", stageOf(err),
			"error", err,
			"duration", time.Since(start))
		return report, err
	}

	span.SetAttributes(
		attribute.Int("import.valid", report.Stats.Valid),
		attribute.Int("import.invalid", report.Stats.Invalid),
		attribute.Int("import.duplicates", report.Stats.Duplicates),
	)
	log.Info("import finished",
		"total", report.Stats.Total,
		"valid", report.Stats.Valid,
		"invalid", report.Stats.Invalid,
		"duplicates", report.Stats.Duplicates,
		"needs_review", report.Stats.NeedsReview,
		"interrupted", report.Interrupted,
		"duration", time.Since(start))
	return report, nil
}

func (s *ImportService) run(ctx context.Context, req Request, report *Report, log *slog.Logger) error {
	// Detecting
	s.enter(ctx, report, StateDetecting)

	if (req.Options.RequireAI || s.cfg.RequireAI) && !req.Options.DisableAI && !s.classifier.HasFallback() {
		return &PipelineError{
			Stage:   StateDetecting,
			Status:  http.StatusInternalServerError,
			Message: "AI categorization is required but no classifier credentials are configured",
			Err:     categorization.ErrMissingCredentials,
		}
	}
	if len(bytes.TrimSpace(req.Data)) == 0 {
		return badInput(StateDetecting, "file is empty", sniffer.ErrEmptyFile)
	}

	s.archiveUpload(ctx, req, report, log)

	opts := parser.DefaultOptions()
	if req.Options.HeaderRow > 0 {
		opts.HeaderRowIndex = req.Options.HeaderRow - 1
	}
	opts.Sheet = req.Options.Sheet

	table, err := parser.Read(req.Data, req.FileName, opts)
	if err != nil {
		return badInput(StateDetecting, readFailure(err), err)
	}
	report.Format = string(table.Format)
	report.Sheet = table.Sheet
	if table.Delimiter != 0 {
		report.Delimiter = string(table.Delimiter)
	}
	report.Fingerprint = table.Fingerprint

	mapping, err := sniffer.DetectColumns(table.Headers)
	if err != nil {
		perr := badInput(StateDetecting, "could not detect the date, description and amount columns", err)
		var derr *sniffer.DetectionError
		if errors.As(err, &derr) {
			perr.FoundHeaders = derr.FoundHeaders
			report.Hints = derr.Hints
		}
		return perr
	}
	report.Columns = &Columns{
		Date:        mapping.DateCol,
		Description: mapping.DescCol,
		Amount:      mapping.AmountCol,
		AmountKind:  mapping.AmountKind.String(),
	}
	if len(table.Rows) == 0 {
		return badInput(StateDetecting, "file has a header but no data rows", sniffer.ErrNoDataRows)
	}

	// Normalizing
	s.enter(ctx, report, StateNormalizing)

	normOpts := normalizer.Options{
		SerialDates:  table.Format == parser.FormatWorkbook,
		DecimalComma: normalizer.ProbeTable(table, *mapping, probeRows),
	}
	normalized := normalizer.New(*mapping, normOpts).NormalizeAll(table.Rows)

	report.Stats.Total = len(table.Rows)
	report.Stats.Invalid = len(normalized.Errors)
	report.Stats.Valid = len(normalized.Transactions)
	for _, rowErr := range normalized.Errors {
		report.Errors = append(report.Errors, rowErr.Error())
	}
	metrics.ImportRows.WithLabelValues("invalid").Add(float64(report.Stats.Invalid))

	if len(normalized.Transactions) == 0 {
		return badInput(StateNormalizing, "no row could be normalized", sniffer.ErrNoDataRows)
	}

	// Deduplicating
	s.enter(ctx, report, StateDeduplicating)

	refs := req.Known
	if refs == nil {
		refs = s.loadReferences(ctx, req.UserID, normalized.Transactions, report, log)
	}
	deduped := dedup.Deduplicate(normalized.Transactions, refs)
	report.Stats.Duplicates = len(deduped.Duplicates)
	metrics.ImportRows.WithLabelValues("duplicate").Add(float64(len(deduped.Duplicates)))
	metrics.ImportRows.WithLabelValues("valid").Add(float64(len(deduped.New)))

	// Classifying
	s.enter(ctx, report, StateClassifying)

	s.classifier.ClassifyRules(deduped.Duplicates)
	summary, err := s.classifier.ClassifyAll(ctx, deduped.New, categorization.ClassifyOptions{
		DisableFallback: req.Options.DisableAI,
		RequireFallback: (req.Options.RequireAI || s.cfg.RequireAI) && !req.Options.DisableAI,
		Threshold:       s.cfg.ReviewThreshold,
	})
	if err != nil {
		return &PipelineError{
			Stage:   StateClassifying,
			Status:  http.StatusInternalServerError,
			Message: "classification could not run",
			Err:     err,
		}
	}
	s.recordClassification(report, summary)

	if err := validateOutput(deduped.New, deduped.Duplicates); err != nil {
		return &PipelineError{
			Stage:   StateClassifying,
			Status:  http.StatusInternalServerError,
			Message: "produced an invalid transaction",
			Err:     err,
		}
	}

	report.Transactions = deduped.New
	report.Duplicates = deduped.Duplicates
	computeReviewStats(report)

	if req.Options.Persist {
		s.persist(ctx, req.UserID, report, log)
	}

	s.enter(ctx, report, StateDone)
	return nil
}

func (s *ImportService) enter(ctx context.Context, report *Report, state State) {
	report.State = state
	trace.SpanFromContext(ctx).AddEvent("import.state", trace.WithAttributes(attribute.String("state", string(state))))
	s.logger.Debug("import state", "run_id", report.RunID.String(), "state", state)
}

func (s *ImportService) recordClassification(report *Report, summary categorization.Summary) {
	report.Stats.ClassifiedByRule = summary.ByRule + len(report.Duplicates)
	report.Stats.ClassifiedByModel = summary.ByModel
	report.Stats.FallbackBatches = summary.Batches
	report.Stats.FallbackBatchesFailed = summary.BatchesFailed
	report.Interrupted = summary.Interrupted

	if summary.BatchesFailed > 0 {
		report.Errors = append(report.Errors,
			fmt.Sprintf("%d of %d classification batches failed; affected rows were set to %s",
				summary.BatchesFailed, summary.Batches, transaction.CategoryOther))
	}
	if summary.Interrupted {
		report.Errors = append(report.Errors, "classification was interrupted; remaining rows keep their keyword result")
	}

	metrics.ClassifierBatches.WithLabelValues("ok").Add(float64(summary.Batches - summary.BatchesFailed))
	metrics.ClassifierBatches.WithLabelValues("failed").Add(float64(summary.BatchesFailed))
	metrics.ClassifierTransactions.WithLabelValues("rule").Add(float64(report.Stats.ClassifiedByRule))
	metrics.ClassifierTransactions.WithLabelValues("fallback").Add(float64(summary.ByModel))
}

// validateOutput checks every emitted record against the canonical invariants.
func validateOutput(batches ...[]transaction.Transaction) error {
	for _, txs := range batches {
		for i := range txs {
			if err := txs[i].Validate(); err != nil {
				return fmt.Errorf("row %d: %w", txs[i].Row, err)
			}
		}
	}
	return nil
}

func computeReviewStats(report *Report) {
	sum, n := 0, 0
	count := func(txs []transaction.Transaction) {
		for i := range txs {
			sum += txs[i].Confidence
			n++
			if txs[i].NeedsReview() {
				report.Stats.NeedsReview++
			}
		}
	}
	count(report.Transactions)
	count(report.Duplicates)

	if n > 0 {
		report.Stats.AvgConfidence = math.Round(float64(sum)/float64(n)*100) / 100
	}
}

// loadReferences fetches stored transactions within the file's date span.
// A storage failure leaves deduplication without references and is reported.
func (s *ImportService) loadReferences(ctx context.Context, userID uuid.UUID, txs []transaction.Transaction, report *Report, log *slog.Logger) []transaction.Reference {
	if s.repo == nil || userID == uuid.Nil {
		return nil
	}

	from, to, ok := dateSpan(txs)
	if !ok {
		return nil
	}

	refs, err := s.repo.ListReferences(ctx, userID, from, to)
	if err != nil {
		log.Warn("failed to load reference transactions", "error", err)
		report.Errors = append(report.Errors, "reference transactions unavailable; duplicates were not checked against stored data")
		return nil
	}
	return refs
}

func dateSpan(txs []transaction.Transaction) (time.Time, time.Time, bool) {
	var from, to time.Time
	for i := range txs {
		d, err := txs[i].Time()
		if err != nil {
			continue
		}
		if from.IsZero() || d.Before(from) {
			from = d
		}
		if to.IsZero() || d.After(to) {
			to = d
		}
	}
	return from, to, !from.IsZero()
}

func (s *ImportService) persist(ctx context.Context, userID uuid.UUID, report *Report, log *slog.Logger) {
	switch {
	case s.repo == nil:
		report.Errors = append(report.Errors, "persistence requested but no database is configured")
		return
	case userID == uuid.Nil:
		report.Errors = append(report.Errors, "persistence requested without a user")
		return
	case ctx.Err() != nil:
		report.Errors = append(report.Errors, "persistence skipped because the request was cancelled")
		return
	}

	run := &repository.RunRecord{
		ID:          report.RunID,
		UserID:      userID,
		FileName:    report.FileName,
		Fingerprint: report.Fingerprint,
		State:       string(StateDone),
		Total:       report.Stats.Total,
		Valid:       report.Stats.Valid,
		Invalid:     report.Stats.Invalid,
		Duplicates:  report.Stats.Duplicates,
		NeedsReview: report.Stats.NeedsReview,
	}
	n, err := s.repo.SaveImport(ctx, run, report.Transactions, newRowHashes(report))
	if err != nil {
		log.Error("failed to persist import", "error", err)
		report.Errors = append(report.Errors, "transactions were not saved: "+err.Error())
		return
	}
	report.Persisted = n
}

// newRowHashes hashes every row of the file in file order and returns the hashes
// of the new rows, aligned with report.Transactions.
func newRowHashes(report *Report) []string {
	all := make([]transaction.Transaction, 0, len(report.Transactions)+len(report.Duplicates))
	all = append(all, report.Transactions...)
	all = append(all, report.Duplicates...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Row < all[j].Row })

	byRow := make(map[int]string, len(all))
	for i, h := range repository.ContentHashes(all) {
		byRow[all[i].Row] = h
	}

	hashes := make([]string, len(report.Transactions))
	for i, tx := range report.Transactions {
		hashes[i] = byRow[tx.Row]
	}
	return hashes
}

func (s *ImportService) archiveUpload(ctx context.Context, req Request, report *Report, log *slog.Logger) {
	if s.archive == nil {
		return
	}
	contentType := "text/csv"
	if parser.IsWorkbook(req.FileName, req.Data) {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if _, err := s.archive.Save(ctx, req.UserID, report.RunID, req.FileName, contentType, bytes.NewReader(req.Data)); err != nil {
		log.Warn("failed to archive upload", "error", err)
	}
}

func readFailure(err error) string {
	switch {
	case errors.Is(err, parser.ErrUnsupportedFormat):
		return "unsupported file format; upload CSV or XLSX"
	case errors.Is(err, sniffer.ErrEmptyFile):
		return "file is empty"
	case errors.Is(err, sniffer.ErrNoHeadersFound):
		return "could not find a header row"
	default:
		return "could not read the file"
	}
}

func stageOf(err error) State {
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr.Stage
	}
	return StateFailed
}
