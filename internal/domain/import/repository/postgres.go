package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-finance-import/internal/domain/transaction"
)

// Pool is the subset of pgxpool.Pool the repository needs.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresImportRepository implements ImportRepository using PostgreSQL
type PostgresImportRepository struct {
	pool Pool
}

// NewPostgresImportRepository creates a new PostgreSQL import repository
func NewPostgresImportRepository(pool Pool) *PostgresImportRepository {
	return &PostgresImportRepository{pool: pool}
}

// ListReferences loads the reference set for deduplication.
func (r *PostgresImportRepository) ListReferences(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]transaction.Reference, error) {
	query := `
		SELECT booked_on, description, amount
		FROM imported_transactions
		WHERE user_id = $1 AND booked_on BETWEEN $2 AND $3
		ORDER BY booked_on, created_at`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}
	defer rows.Close()

	var refs []transaction.Reference
	for rows.Next() {
		var (
			bookedOn time.Time
			ref      transaction.Reference
			amount   decimal.Decimal
		)
		if err := rows.Scan(&bookedOn, &ref.Description, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		ref.Date = bookedOn.Format(transaction.DateLayout)
		ref.Amount = amount
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate references: %w", err)
	}
	return refs, nil
}

// SaveImport stores the run summary and its transactions in one database
// transaction. Rows whose content hash is already stored for the user are skipped.
func (r *PostgresImportRepository) SaveImport(ctx context.Context, run *RunRecord, txs []transaction.Transaction, hashes []string) (int64, error) {
	if len(hashes) != len(txs) {
		return 0, fmt.Errorf("got %d hashes for %d transactions", len(hashes), len(txs))
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := recordRun(ctx, tx, run); err != nil {
		_ = tx.Rollback(ctx)
		return 0, err
	}

	inserted, err := insertTransactions(ctx, tx, run.UserID, run.ID, txs, hashes)
	if err != nil {
		_ = tx.Rollback(ctx)
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return inserted, nil
}

func recordRun(ctx context.Context, tx pgx.Tx, run *RunRecord) error {
	query := `
		INSERT INTO import_runs (id, user_id, file_name, fingerprint, state, total_rows, valid_rows, invalid_rows, duplicates, needs_review)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`

	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	err := tx.QueryRow(ctx, query,
		run.ID,
		run.UserID,
		run.FileName,
		run.Fingerprint,
		run.State,
		run.Total,
		run.Valid,
		run.Invalid,
		run.Duplicates,
		run.NeedsReview,
	).Scan(&run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record import run: %w", err)
	}
	return nil
}

func insertTransactions(ctx context.Context, tx pgx.Tx, userID, runID uuid.UUID, txs []transaction.Transaction, hashes []string) (int64, error) {
	query := `
		INSERT INTO imported_transactions (id, user_id, run_id, booked_on, description, amount, tx_type, category, confidence, content_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, content_hash) DO NOTHING`

	var inserted int64
	for i := range txs {
		t := &txs[i]
		bookedOn, err := t.Time()
		if err != nil {
			return 0, fmt.Errorf("failed to parse date of row %d: %w", t.Row, err)
		}
		id := t.ID
		if id == uuid.Nil {
			id = uuid.New()
		}

		tag, err := tx.Exec(ctx, query,
			id,
			userID,
			runID,
			bookedOn,
			t.Description,
			t.Amount,
			string(t.Type),
			string(t.Category),
			t.Confidence,
			hashes[i],
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert transaction of row %d: %w", t.Row, err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// GetRun retrieves a run summary by ID
func (r *PostgresImportRepository) GetRun(ctx context.Context, id uuid.UUID) (*RunRecord, error) {
	query := `
		SELECT id, user_id, file_name, fingerprint, state, total_rows, valid_rows, invalid_rows, duplicates, needs_review, created_at
		FROM import_runs
		WHERE id = $1`

	run := &RunRecord{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&run.ID,
		&run.UserID,
		&run.FileName,
		&run.Fingerprint,
		&run.State,
		&run.Total,
		&run.Valid,
		&run.Invalid,
		&run.Duplicates,
		&run.NeedsReview,
		&run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import run: %w", err)
	}
	return run, nil
}
