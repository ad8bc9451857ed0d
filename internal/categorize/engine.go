// Package categorize assigns a category label to a transaction description
// using learned merchant overrides first and an ordered keyword table second.
package categorize

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/txray/internal/model"
)

// MappingSource supplies learned category mappings.
type MappingSource interface {
	CategoryMappings(ctx context.Context) ([]model.CategoryMapping, error)
}

// Phase identifies which step of categorization produced a result.
type Phase string

const (
	PhaseLearned  Phase = "learned"
	PhaseKeyword  Phase = "keyword"
	PhaseFallback Phase = "fallback"
)

// Match explains a categorization decision.
type Match struct {
	Category string
	Phase    Phase
	Pattern  string
}

type learned struct {
	pattern  string // upper-cased
	category string
}

type rule struct {
	category string
	keywords []string // lower-cased
}

// Engine categorizes descriptions. Learned mappings are cached at
// construction and refreshed only by Reload.
type Engine struct {
	source MappingSource
	rules  []rule
	log    zerolog.Logger

	mu      sync.RWMutex
	learned []learned
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New builds an engine over an ordered rule table and loads learned
// mappings from source. A nil source means no learned mappings.
func New(ctx context.Context, rules []Rule, source MappingSource, opts ...Option) (*Engine, error) {
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}
	e := &Engine{
		source: source,
		rules:  compileRules(rules),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.Reload(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

func compileRules(rules []Rule) []rule {
	out := make([]rule, len(rules))
	for i, r := range rules {
		kws := make([]string, len(r.Keywords))
		for j, kw := range r.Keywords {
			kws[j] = strings.ToLower(kw)
		}
		out[i] = rule{category: r.Category, keywords: kws}
	}
	return out
}

// Reload replaces the learned-mapping cache with the source's current contents.
func (e *Engine) Reload(ctx context.Context) error {
	if e.source == nil {
		return nil
	}
	mappings, err := e.source.CategoryMappings(ctx)
	if err != nil {
		return fmt.Errorf("loading category mappings: %w", err)
	}

	cache := make([]learned, 0, len(mappings))
	for _, m := range mappings {
		p := strings.ToUpper(strings.TrimSpace(m.MerchantPattern))
		if p == "" {
			continue
		}
		cache = append(cache, learned{pattern: p, category: m.Category})
	}

	e.mu.Lock()
	e.learned = cache
	e.mu.Unlock()

	e.log.Debug().Int("mappings", len(cache)).Msg("learned mappings loaded")
	return nil
}

// LearnedCount returns the number of cached learned mappings.
func (e *Engine) LearnedCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.learned)
}

// Categorize returns the category for a description.
func (e *Engine) Categorize(description string) string {
	return e.Explain(description).Category
}

// Explain categorizes a description and reports which rule decided it.
func (e *Engine) Explain(description string) Match {
	upper := strings.ToUpper(description)

	e.mu.RLock()
	for _, l := range e.learned {
		if strings.Contains(upper, l.pattern) {
			e.mu.RUnlock()
			return Match{Category: l.category, Phase: PhaseLearned, Pattern: l.pattern}
		}
	}
	e.mu.RUnlock()

	lower := strings.ToLower(description)
	for _, r := range e.rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return Match{Category: r.category, Phase: PhaseKeyword, Pattern: kw}
			}
		}
	}

	return Match{Category: model.CategoryOther, Phase: PhaseFallback}
}
