package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-finance-import/internal/domain/import/parser"
	"github.com/FACorreiaa/smart-finance-import/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/smart-finance-import/internal/domain/import/service"
	"github.com/FACorreiaa/smart-finance-import/internal/domain/import/sniffer"
	"github.com/FACorreiaa/smart-finance-import/internal/domain/transaction"
)

// UserIDHeader carries the caller's identity, set by an upstream gateway.
const UserIDHeader = "X-User-ID"

// DefaultMaxUploadBytes bounds the request body when no limit is configured.
const DefaultMaxUploadBytes = 10 << 20

// Runner executes one import.
type Runner interface {
	Run(ctx context.Context, req importservice.Request) (*importservice.Report, error)
}

// RunLookup returns a recorded run.
type RunLookup interface {
	GetRun(ctx context.Context, id uuid.UUID) (*repository.RunRecord, error)
}

// ImportHandler serves the upload endpoint
type ImportHandler struct {
	importSvc Runner
	runs      RunLookup // optional
	maxBytes  int64
	logger    *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(importSvc Runner, maxBytes int64, logger *slog.Logger) *ImportHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &ImportHandler{
		importSvc: importSvc,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// WithRuns enables GET /v1/imports/{id}.
func (h *ImportHandler) WithRuns(runs RunLookup) *ImportHandler {
	h.runs = runs
	return h
}

// Register mounts the handler routes on mux.
func (h *ImportHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/imports", h.ServeImport)
	mux.HandleFunc("GET /v1/imports/{id}", h.GetRun)
	mux.HandleFunc("GET /healthz", h.Health)
}

type failureResponse struct {
	Status       string                   `json:"status"`
	RunID        string                   `json:"runId,omitempty"`
	Message      string                   `json:"message"`
	FoundHeaders []string                 `json:"foundHeaders,omitempty"`
	Hints        map[sniffer.Field]string `json:"hints,omitempty"`
	Stats        *importservice.Stats     `json:"stats,omitempty"`
	Errors       []string                 `json:"errors,omitempty"`
}

// ServeImport runs the pipeline on a multipart upload.
//
// Form fields: file (required), known (optional JSON array or CSV of reference
// transactions), persist, disableAI, requireAI, headerRow (1-based), sheet.
func (h *ImportHandler) ServeImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			h.fail(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", h.maxBytes))
			return
		}
		h.fail(w, http.StatusBadRequest, "expected a multipart form with a file field")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	req, err := h.buildRequest(r)
	if err != nil {
		h.fail(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.importSvc.Run(r.Context(), req)
	if err != nil {
		var perr *importservice.PipelineError
		if errors.As(err, &perr) {
			writeJSON(w, perr.Status, failureFromReport(report, perr))
			return
		}
		h.logger.Error("import failed unexpectedly", slog.Any("error", err))
		h.fail(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func failureFromReport(report *importservice.Report, perr *importservice.PipelineError) failureResponse {
	resp := failureResponse{Status: "failed", Message: perr.Message, FoundHeaders: perr.FoundHeaders}
	if report != nil {
		resp.RunID = report.RunID.String()
		resp.Hints = report.Hints
		resp.Stats = &report.Stats
		resp.Errors = report.Errors
		if resp.FoundHeaders == nil {
			resp.FoundHeaders = report.FoundHeaders
		}
	}
	return resp
}

func (h *ImportHandler) buildRequest(r *http.Request) (importservice.Request, error) {
	var req importservice.Request

	if raw := strings.TrimSpace(r.Header.Get(UserIDHeader)); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return req, fmt.Errorf("invalid %s header", UserIDHeader)
		}
		req.UserID = userID
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return req, errors.New("missing file field")
	}
	defer file.Close()

	req.Data, err = io.ReadAll(file)
	if err != nil {
		return req, fmt.Errorf("failed to read upload: %w", err)
	}
	req.FileName = header.Filename

	if known, kh, err := r.FormFile("known"); err == nil {
		defer known.Close()
		req.Known, err = readKnown(known, kh.Filename)
		if err != nil {
			return req, err
		}
	} else if raw := r.FormValue("known"); raw != "" {
		req.Known, err = readKnown(strings.NewReader(raw), "")
		if err != nil {
			return req, err
		}
	}

	req.Options.Persist = formBool(r, "persist")
	req.Options.DisableAI = formBool(r, "disableAI")
	req.Options.RequireAI = formBool(r, "requireAI")
	req.Options.Sheet = r.FormValue("sheet")
	if raw := r.FormValue("headerRow"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return req, errors.New("headerRow must be a positive line number")
		}
		req.Options.HeaderRow = n
	}
	return req, nil
}

// readKnown accepts a JSON array of references or a CSV with date, description, amount headers.
func readKnown(r io.Reader, name string) ([]transaction.Reference, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read known transactions: %w", err)
	}
	trimmed := bytes.TrimSpace(data)

	if strings.HasSuffix(strings.ToLower(name), ".json") || bytes.HasPrefix(trimmed, []byte("[")) {
		refs := []transaction.Reference{}
		if err := json.Unmarshal(trimmed, &refs); err != nil {
			return nil, fmt.Errorf("known transactions are not a valid JSON array: %w", err)
		}
		for i := range refs {
			refs[i].Amount = refs[i].Amount.Abs()
		}
		return refs, nil
	}

	refs, err := parser.ReadReferenceCSV(bytes.NewReader(trimmed))
	if err != nil {
		return nil, err
	}
	if refs == nil {
		refs = []transaction.Reference{}
	}
	return refs, nil
}

func formBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.FormValue(key))
	return err == nil && v
}

// GetRun returns the stored summary of one run.
func (h *ImportHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		h.fail(w, http.StatusNotFound, "run history is not enabled")
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.fail(w, http.StatusBadRequest, "invalid run id")
		return
	}

	run, err := h.runs.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.fail(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error("failed to load run", slog.String("run_id", id.String()), slog.Any("error", err))
		h.fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// Health reports liveness.
func (h *ImportHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ImportHandler) fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, failureResponse{Status: "failed", Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
