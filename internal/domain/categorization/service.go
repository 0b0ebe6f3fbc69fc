package categorization

import (
	"context"
	"errors"
	"log/slog"

	"github.com/FACorreiaa/smart-finance-import/internal/domain/transaction"
)

// ErrMissingCredentials is returned when the model tier is required but no completer is configured.
var ErrMissingCredentials = errors.New("missing credentials for the fallback classifier")

// ClassifyOptions controls one ClassifyAll call.
type ClassifyOptions struct {
	// DisableFallback keeps every transaction at its rule result.
	DisableFallback bool
	// RequireFallback fails with ErrMissingCredentials when no model is configured.
	RequireFallback bool
	// Threshold sends rule results below it to the model. Zero means transaction.ReviewThreshold.
	Threshold int
}

// Summary counts what each tier decided.
type Summary struct {
	ByRule        int
	ByModel       int
	Batches       int
	BatchesFailed int
	Interrupted   bool
}

// Service composes the rule tier and the optional model tier.
type Service struct {
	rules    *RuleClassifier
	fallback *FallbackClassifier
	logger   *slog.Logger
}

// NewService creates a classification service. fallback may be nil.
func NewService(rules *RuleClassifier, fallback *FallbackClassifier, logger *slog.Logger) *Service {
	if rules == nil {
		rules = NewRuleClassifier(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{rules: rules, fallback: fallback, logger: logger}
}

// HasFallback reports whether a model tier is configured.
func (s *Service) HasFallback() bool {
	return s.fallback != nil
}

// Rules exposes the rule tier.
func (s *Service) Rules() *RuleClassifier {
	return s.rules
}

// ClassifyRules applies only the rule tier, in place.
func (s *Service) ClassifyRules(txs []transaction.Transaction) {
	descriptions := make([]string, len(txs))
	for i := range txs {
		descriptions[i] = txs[i].Description
	}
	for i, r := range s.rules.ClassifyBatch(descriptions) {
		txs[i].SetClassification(r.Category, r.Confidence)
	}
}

// ClassifyAll classifies txs in place. Every transaction first gets its rule
// result; those below the threshold are then sent to the model tier. Batch
// failures never surface as an error, only a missing required model does.
func (s *Service) ClassifyAll(ctx context.Context, txs []transaction.Transaction, opts ClassifyOptions) (Summary, error) {
	var summary Summary

	if opts.RequireFallback && s.fallback == nil {
		return summary, ErrMissingCredentials
	}

	s.ClassifyRules(txs)

	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = transaction.ReviewThreshold
	}

	var items []Item
	for i := range txs {
		if txs[i].Confidence < threshold {
			items = append(items, Item{Index: i, Description: txs[i].Description, Amount: txs[i].Amount})
		}
	}
	summary.ByRule = len(txs) - len(items)

	if len(items) == 0 || opts.DisableFallback || s.fallback == nil {
		summary.ByRule = len(txs)
		if len(items) > 0 && s.fallback == nil && !opts.DisableFallback {
			s.logger.Info("no fallback classifier configured, keeping rule results",
				"unresolved", len(items))
		}
		return summary, nil
	}

	out := s.fallback.Classify(ctx, items)
	summary.Batches = out.Batches
	summary.BatchesFailed = out.BatchesFailed
	summary.Interrupted = out.Interrupted

	for _, r := range out.Results {
		if !r.Resolved {
			summary.ByRule++
			continue
		}
		txs[r.Index].SetClassification(r.Category, r.Confidence)
		summary.ByModel++
	}

	s.logger.Debug("classification finished",
		"by_rule", summary.ByRule,
		"by_model", summary.ByModel,
		"batches", summary.Batches,
		"batches_failed", summary.BatchesFailed,
		"interrupted", summary.Interrupted)

	return summary, nil
}
