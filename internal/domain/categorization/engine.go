package categorization

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"

	"github.com/FACorreiaa/smart-finance-import/internal/domain/transaction"
)

const (
	// RuleConfidence is assigned when a keyword matches.
	RuleConfidence = 85
	// UnmatchedConfidence is assigned when no keyword matches.
	UnmatchedConfidence = 50
)

// Result is the outcome of classifying one description.
type Result struct {
	Category   transaction.Category
	Confidence int
	Keyword    string // matched keyword, empty when unmatched
}

// RuleClassifier assigns categories by keyword substring matching using the Aho-Corasick algorithm.
// All keywords are matched in a single pass over the description, so the cost
// does not grow with the size of the keyword table.
type RuleClassifier struct {
	matcher  *ahocorasick.Matcher
	patterns []string
	owners   [][]int // category order of every set that declared the pattern
	sets     []KeywordSet
	mu       sync.RWMutex
}

// NewRuleClassifier builds a classifier from a keyword table. A nil table uses DefaultKeywords.
func NewRuleClassifier(table []KeywordSet) *RuleClassifier {
	if table == nil {
		table = DefaultKeywords
	}
	c := &RuleClassifier{}
	c.Build(table)
	return c
}

// Build (re)compiles the matcher. Keywords are lower-cased; a keyword listed
// under several categories keeps every owner so the earliest one can win.
func (c *RuleClassifier) Build(table []KeywordSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	patternToIndex := make(map[string]int)
	patterns := make([]string, 0)
	owners := make([][]int, 0)
	sets := make([]KeywordSet, 0, len(table))

	for _, set := range table {
		if !set.Category.Valid() || set.Category == transaction.CategoryOther {
			continue
		}
		order := len(sets)
		sets = append(sets, set)

		for _, kw := range set.Keywords {
			kw = strings.ToLower(kw)
			if strings.TrimSpace(kw) == "" {
				continue
			}
			if idx, ok := patternToIndex[kw]; ok {
				owners[idx] = append(owners[idx], order)
				continue
			}
			patternToIndex[kw] = len(patterns)
			patterns = append(patterns, kw)
			owners = append(owners, []int{order})
		}
	}

	c.patterns = patterns
	c.owners = owners
	c.sets = sets

	if len(patterns) == 0 {
		c.matcher = nil
		return
	}
	c.matcher = ahocorasick.NewStringMatcher(patterns)
}

// Classify returns the first category, in table order, with a keyword contained
// in the description, at confidence 85. Unmatched descriptions get Other at 50.
// The same description always yields the same result.
func (c *RuleClassifier) Classify(description string) Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.classify(description)
}

// ClassifyBatch classifies several descriptions under one read lock.
func (c *RuleClassifier) ClassifyBatch(descriptions []string) []Result {
	c.mu.RLock()
	defer c.mu.RUnlock()

	results := make([]Result, len(descriptions))
	for i, desc := range descriptions {
		results[i] = c.classify(desc)
	}
	return results
}

func (c *RuleClassifier) classify(description string) Result {
	unmatched := Result{Category: transaction.CategoryOther, Confidence: UnmatchedConfidence}
	if c.matcher == nil {
		return unmatched
	}

	// Padding lets keywords with a trailing space match a word at the end.
	hits := c.matcher.MatchThreadSafe([]byte(" " + strings.ToLower(description) + " "))
	if len(hits) == 0 {
		return unmatched
	}

	best, keyword := -1, ""
	for _, idx := range hits {
		if idx < 0 || idx >= len(c.owners) {
			continue
		}
		for _, order := range c.owners[idx] {
			// Longer keyword breaks ties inside one category so the reported keyword is stable.
			if best == -1 || order < best || (order == best && len(c.patterns[idx]) > len(keyword)) {
				best, keyword = order, c.patterns[idx]
			}
		}
	}
	if best == -1 {
		return unmatched
	}

	return Result{Category: c.sets[best].Category, Confidence: RuleConfidence, Keyword: keyword}
}

// PatternCount returns the number of distinct keywords loaded.
func (c *RuleClassifier) PatternCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.patterns)
}
