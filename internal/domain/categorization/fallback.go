package categorization

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/smart-finance-import/internal/domain/transaction"
)

const (
	// FailedBatchConfidence is given to every item of a batch whose call or response failed.
	FailedBatchConfidence = 30
	// CoercedConfidence is given when the model answered with a category outside the vocabulary.
	CoercedConfidence = 30
	// DefaultModelConfidence is used when the model omits a confidence.
	DefaultModelConfidence = 75

	DefaultBatchSize    = 20
	DefaultBatchTimeout = 30 * time.Second
)

// Completer is a chat-style completion endpoint.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Item is one transaction submitted to the fallback tier. Index is the
// caller's position for the item and is carried back unchanged.
type Item struct {
	Index       int
	Description string
	Amount      decimal.Decimal
}

// Classification is the fallback answer for one item. Resolved is false for
// items that were never submitted because the run was cancelled.
type Classification struct {
	Index      int
	Category   transaction.Category
	Confidence int
	Resolved   bool
	Degraded   bool // batch failed, defaults applied
}

// Outcome aggregates a fallback run. Results is aligned with the submitted items.
type Outcome struct {
	Results       []Classification
	Batches       int
	BatchesFailed int
	Interrupted   bool
}

// FallbackOptions tunes batching and pacing.
type FallbackOptions struct {
	BatchSize int
	Timeout   time.Duration
	// Delay is the minimum spacing between batch calls. Zero disables pacing.
	Delay time.Duration
}

// DefaultFallbackOptions returns batches of 20 with a 30s timeout and no delay.
func DefaultFallbackOptions() FallbackOptions {
	return FallbackOptions{BatchSize: DefaultBatchSize, Timeout: DefaultBatchTimeout}
}

// FallbackClassifier sends low-confidence transactions to a language model in
// sequential batches and merges the answers back by index.
type FallbackClassifier struct {
	completer Completer
	opts      FallbackOptions
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewFallbackClassifier creates a classifier around a completion endpoint.
func NewFallbackClassifier(completer Completer, opts FallbackOptions, logger *slog.Logger) *FallbackClassifier {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultBatchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &FallbackClassifier{completer: completer, opts: opts, logger: logger}
	if opts.Delay > 0 {
		c.limiter = rate.NewLimiter(rate.Every(opts.Delay), 1)
	}
	return c
}

// Options returns the effective options.
func (c *FallbackClassifier) Options() FallbackOptions {
	return c.opts
}

// Classify processes items in batches, one call at a time. A failed batch
// degrades to Other/30 and the run moves on. When ctx is cancelled the run
// stops at the next batch boundary and keeps what was already classified.
func (c *FallbackClassifier) Classify(ctx context.Context, items []Item) Outcome {
	out := Outcome{Results: make([]Classification, len(items))}
	for i, it := range items {
		out.Results[i] = Classification{Index: it.Index, Category: transaction.CategoryOther}
	}

	for start := 0; start < len(items); start += c.opts.BatchSize {
		if ctx.Err() != nil {
			out.Interrupted = true
			break
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				out.Interrupted = true
				break
			}
		}

		end := min(start+c.opts.BatchSize, len(items))
		batch := items[start:end]

		results, err := c.classifyBatch(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				out.Interrupted = true
				break
			}
			c.logger.Warn("fallback batch failed, using defaults",
				"batch", out.Batches+1,
				"items", len(batch),
				"error", err)
			out.BatchesFailed++
			results = degraded(batch)
		}

		copy(out.Results[start:end], results)
		out.Batches++
	}

	if out.Interrupted {
		c.logger.Info("fallback classification interrupted",
			"batches_done", out.Batches,
			"items", len(items))
	}
	return out
}

func (c *FallbackClassifier) classifyBatch(ctx context.Context, batch []Item) ([]Classification, error) {
	bctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	text, err := c.completer.Complete(bctx, SystemPrompt(), BatchPrompt(batch))
	if err != nil {
		return nil, fmt.Errorf("failed to complete batch: %w", err)
	}

	payload, err := ExtractStructured(text)
	if err != nil {
		return nil, err
	}
	return mergeBatch(batch, payload)
}

func degraded(batch []Item) []Classification {
	results := make([]Classification, len(batch))
	for i, it := range batch {
		results[i] = Classification{
			Index:      it.Index,
			Category:   transaction.CategoryOther,
			Confidence: FailedBatchConfidence,
			Resolved:   true,
			Degraded:   true,
		}
	}
	return results
}

// modelAnswer is one element of the model's array. Bare strings are accepted as a category.
type modelAnswer struct {
	Index      *int     `json:"index"`
	Category   string   `json:"category"`
	Confidence *float64 `json:"confidence"`
}

func (a *modelAnswer) UnmarshalJSON(data []byte) error {
	var category string
	if err := json.Unmarshal(data, &category); err == nil {
		a.Category = category
		return nil
	}
	type plain modelAnswer
	return json.Unmarshal(data, (*plain)(a))
}

var errNoUsableAnswers = errors.New("no usable answers")

// mergeBatch maps answers onto the batch. Indexed answers use 1-based positions;
// unindexed answers must match the batch length and are taken in order.
func mergeBatch(batch []Item, payload []byte) ([]Classification, error) {
	var answers []modelAnswer
	if err := json.Unmarshal(payload, &answers); err != nil {
		return nil, newExtractError("array elements are not answers", string(payload))
	}

	indexed := false
	for _, a := range answers {
		if a.Index != nil {
			indexed = true
			break
		}
	}

	byPos := make([]*modelAnswer, len(batch))
	if indexed {
		matched := 0
		for i := range answers {
			a := &answers[i]
			if a.Index == nil {
				continue
			}
			pos := *a.Index - 1
			if pos < 0 || pos >= len(batch) || byPos[pos] != nil {
				continue
			}
			byPos[pos] = a
			matched++
		}
		if matched == 0 {
			return nil, errNoUsableAnswers
		}
	} else {
		if len(answers) != len(batch) {
			return nil, newExtractError(fmt.Sprintf("expected %d answers, got %d", len(batch), len(answers)), string(payload))
		}
		for i := range answers {
			byPos[i] = &answers[i]
		}
	}

	results := make([]Classification, len(batch))
	for i, it := range batch {
		a := byPos[i]
		if a == nil {
			results[i] = Classification{
				Index:      it.Index,
				Category:   transaction.CategoryOther,
				Confidence: FailedBatchConfidence,
				Resolved:   true,
				Degraded:   true,
			}
			continue
		}
		results[i] = toClassification(it.Index, a)
	}
	return results, nil
}

func toClassification(index int, a *modelAnswer) Classification {
	category, ok := transaction.LookupCategory(a.Category)
	if !ok {
		return Classification{Index: index, Category: transaction.CategoryOther, Confidence: CoercedConfidence, Resolved: true}
	}

	confidence := DefaultModelConfidence
	if a.Confidence != nil && !math.IsNaN(*a.Confidence) {
		confidence = int(math.Round(math.Max(-1, math.Min(*a.Confidence, 1000))))
	}
	return Classification{
		Index:      index,
		Category:   category,
		Confidence: transaction.ClampConfidence(confidence),
		Resolved:   true,
	}
}
