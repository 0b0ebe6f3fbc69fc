// Package repository stores imported transactions and serves the reference set used for deduplication.
package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-finance-import/internal/domain/transaction"
)

var ErrNotFound = errors.New("not found")

// RunRecord is the persisted summary of one pipeline run.
type RunRecord struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	FileName    string    `json:"fileName"`
	Fingerprint string    `json:"fingerprint"`
	State       string    `json:"state"`
	Total       int       `json:"total"`
	Valid       int       `json:"valid"`
	Invalid     int       `json:"invalid"`
	Duplicates  int       `json:"duplicates"`
	NeedsReview int       `json:"needsReview"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ImportRepository is the storage collaborator of the import pipeline.
type ImportRepository interface {
	// ListReferences returns the user's stored transactions booked between from and to, inclusive.
	ListReferences(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]transaction.Reference, error)
	// SaveImport records run and stores txs atomically: either both land or neither does.
	// hashes[i] is the content hash of txs[i]. It returns how many transactions were new.
	SaveImport(ctx context.Context, run *RunRecord, txs []transaction.Transaction, hashes []string) (int64, error)
	GetRun(ctx context.Context, id uuid.UUID) (*RunRecord, error)
}

// ContentHashes returns one stable hash per transaction. Identical transactions
// in the same list get an occurrence suffix so two real purchases stay distinct
// while re-importing the same list is a no-op. Pass every row of a file in file
// order, duplicates included, so the suffix of a row does not depend on which
// of its twins were already stored.
func ContentHashes(txs []transaction.Transaction) []string {
	seen := make(map[string]int, len(txs))
	hashes := make([]string, len(txs))
	for i, tx := range txs {
		base := strings.Join([]string{
			tx.Date,
			strings.ToLower(strings.Join(strings.Fields(tx.Description), " ")),
			tx.Amount.StringFixed(2),
			string(tx.Type),
		}, "|")
		n := seen[base]
		seen[base] = n + 1

		sum := sha256.Sum256([]byte(base + "#" + strconv.Itoa(n)))
		hashes[i] = hex.EncodeToString(sum[:])
	}
	return hashes
}
