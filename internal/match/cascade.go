package match

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/drugmerge/drugmerge/internal/cache"
	"github.com/drugmerge/drugmerge/internal/model"
	"github.com/drugmerge/drugmerge/internal/normalize"
	"github.com/drugmerge/drugmerge/internal/worker"
)

// CascadeStats aggregates resolution outcomes for one batch
type CascadeStats struct {
	Exact      int `json:"exact"`
	Normalized int `json:"normalized"`
	Uppercase  int `json:"uppercase"`
	Fuzzy      int `json:"fuzzy"`

	// Unmatched counts names resolved by no tier; they fall back to their
	// own normalized form at grouping time
	Unmatched int `json:"unmatched"`
	// FuzzySkipped counts names whose fuzzy search was skipped by the
	// budget policy
	FuzzySkipped int `json:"fuzzy_skipped"`

	CacheHits int `json:"cache_hits"`
}

// Cascade builds source-name → canonical-name lookups using tiered
// resolution: exact, normalized, and uppercase index hits in O(1), then a
// budget-bounded pairwise fuzzy fallback for whatever remains.
type Cascade struct {
	scorer *Scorer
	norm   *normalize.Normalizer
	cfg    model.MatchConfig
	cache  *cache.ResolutionCache
	log    zerolog.Logger
}

// NewCascade creates a cascade. The resolution cache is optional; pass nil
// to disable cross-run memoization.
func NewCascade(cfg model.MatchConfig, logger zerolog.Logger, rc *cache.ResolutionCache) *Cascade {
	n := normalize.New()
	return &Cascade{
		scorer: NewScorer(n),
		norm:   n,
		cfg:    cfg,
		cache:  rc,
		log:    logger,
	}
}

// canonicalIndex holds the three O(n)-built lookup maps over the canonical
// name set. On key collision the first canonical name in input order wins,
// keeping resolution deterministic.
type canonicalIndex struct {
	exact      map[string]string
	normalized map[string]string
	uppercase  map[string]string
}

func (c *Cascade) buildIndex(canonicalNames []string) canonicalIndex {
	idx := canonicalIndex{
		exact:      make(map[string]string, len(canonicalNames)),
		normalized: make(map[string]string, len(canonicalNames)),
		uppercase:  make(map[string]string, len(canonicalNames)),
	}
	for _, name := range canonicalNames {
		if _, ok := idx.exact[name]; !ok {
			idx.exact[name] = name
		}
		if key := c.norm.Normalize(name); key != "" {
			if _, ok := idx.normalized[key]; !ok {
				idx.normalized[key] = name
			}
		}
		if key := strings.ToUpper(name); key != "" {
			if _, ok := idx.uppercase[key]; !ok {
				idx.uppercase[key] = name
			}
		}
	}
	return idx
}

// BuildLookup resolves source names against canonical names. Names absent
// from the returned map have no canonical match; callers treat absence as
// "unmatched", never as an error. The error is non-nil only when the run
// was cancelled, in which case the partial map and stats are still valid.
func (c *Cascade) BuildLookup(ctx context.Context, sourceNames, canonicalNames []string) (map[string]model.MatchResult, CascadeStats, error) {
	lookup := make(map[string]model.MatchResult, len(sourceNames))
	var stats CascadeStats

	idx := c.buildIndex(canonicalNames)

	// Tiered resolution; duplicates collapse on first sight
	var unmatched []string
	seen := make(map[string]bool, len(sourceNames))
	for _, name := range sourceNames {
		if seen[name] {
			continue
		}
		seen[name] = true

		if c.cache != nil {
			if hit, ok := c.cache.Get(name); ok {
				// A cached placement is only valid if the canonical name
				// still exists in this batch's seed set
				if _, live := idx.exact[hit.CanonicalName]; live {
					lookup[name] = hit
					stats.CacheHits++
					stats.count(hit.Strategy)
					continue
				}
			}
		}

		if result, ok := c.resolveTiered(name, idx); ok {
			lookup[name] = result
			stats.count(result.Strategy)
			c.remember(result)
			continue
		}
		unmatched = append(unmatched, name)
	}

	err := c.resolveFuzzy(ctx, unmatched, canonicalNames, lookup, &stats)

	stats.Unmatched = len(unmatched) - countFuzzyResolved(unmatched, lookup)

	c.log.Debug().
		Int("canonical", len(canonicalNames)).
		Int("exact", stats.Exact).
		Int("normalized", stats.Normalized).
		Int("uppercase", stats.Uppercase).
		Int("fuzzy", stats.Fuzzy).
		Int("fuzzy_skipped", stats.FuzzySkipped).
		Int("unmatched", stats.Unmatched).
		Msg("lookup built")

	return lookup, stats, err
}

func (c *Cascade) resolveTiered(name string, idx canonicalIndex) (model.MatchResult, bool) {
	if canonical, ok := idx.exact[name]; ok {
		return model.MatchResult{SourceName: name, CanonicalName: canonical, Score: 1.0, Strategy: model.StrategyExact}, true
	}
	if key := c.norm.Normalize(name); key != "" {
		if canonical, ok := idx.normalized[key]; ok {
			return model.MatchResult{SourceName: name, CanonicalName: canonical, Score: 1.0, Strategy: model.StrategyNormalized}, true
		}
	}
	if canonical, ok := idx.uppercase[strings.ToUpper(name)]; ok {
		return model.MatchResult{SourceName: name, CanonicalName: canonical, Score: 1.0, Strategy: model.StrategyUppercase}, true
	}
	return model.MatchResult{}, false
}

// resolveFuzzy applies the configured budget policy to the unmatched names.
// Cancellation is honored between chunks, never mid-name.
func (c *Cascade) resolveFuzzy(ctx context.Context, unmatched, canonicalNames []string, lookup map[string]model.MatchResult, stats *CascadeStats) error {
	if len(unmatched) == 0 || len(canonicalNames) == 0 {
		return nil
	}

	budget := c.cfg.FuzzyBudget
	if budget <= 0 {
		stats.FuzzySkipped += len(unmatched)
		return nil
	}

	todo := unmatched
	switch c.cfg.FuzzyPolicy {
	case model.FuzzyChunk:
		// Everything gets processed, chunk by chunk, below
	case model.FuzzyBestEffort:
		if len(todo) > budget {
			stats.FuzzySkipped += len(todo) - budget
			todo = todo[:budget]
		}
	default: // model.FuzzySkip
		if len(todo) > budget {
			c.log.Warn().
				Int("unmatched", len(todo)).
				Int("budget", budget).
				Msg("fuzzy budget exceeded, skipping fuzzy resolution for batch")
			stats.FuzzySkipped += len(todo)
			return nil
		}
	}

	for start := 0; start < len(todo); start += budget {
		if err := ctx.Err(); err != nil {
			stats.FuzzySkipped += len(todo) - start
			return err
		}

		end := start + budget
		if end > len(todo) {
			end = len(todo)
		}
		c.fuzzyChunk(ctx, todo[start:end], canonicalNames, lookup, stats)
	}
	return nil
}

func (c *Cascade) fuzzyChunk(ctx context.Context, names, canonicalNames []string, lookup map[string]model.MatchResult, stats *CascadeStats) {
	pool := worker.NewPool(c.cfg.Workers)
	pool.Start()

	for _, name := range names {
		pool.Submit(&fuzzyJob{
			name:      name,
			canonical: canonicalNames,
			scorer:    c.scorer,
			threshold: c.cfg.Threshold,
		})
	}

	for _, result := range pool.Wait() {
		fr := result.(*fuzzyResult)
		if fr.match == nil {
			continue
		}
		lookup[fr.match.SourceName] = *fr.match
		stats.Fuzzy++
		c.remember(*fr.match)
	}
}

func (c *Cascade) remember(result model.MatchResult) {
	if c.cache != nil {
		c.cache.Set(result.SourceName, result)
	}
}

func (s *CascadeStats) count(strategy model.MatchStrategy) {
	switch strategy {
	case model.StrategyExact:
		s.Exact++
	case model.StrategyNormalized:
		s.Normalized++
	case model.StrategyUppercase:
		s.Uppercase++
	case model.StrategyFuzzy:
		s.Fuzzy++
	}
}

func countFuzzyResolved(unmatched []string, lookup map[string]model.MatchResult) int {
	resolved := 0
	for _, name := range unmatched {
		if _, ok := lookup[name]; ok {
			resolved++
		}
	}
	return resolved
}

// fuzzyJob scores one unmatched source name against every canonical name.
// The canonical slice is shared read-only across jobs.
type fuzzyJob struct {
	name      string
	canonical []string
	scorer    *Scorer
	threshold float64
}

// fuzzyResult carries the best match, or nil when no canonical name scored
// at or above the threshold
type fuzzyResult struct {
	match *model.MatchResult
}

func (r *fuzzyResult) GetError() error { return nil }

func (j *fuzzyJob) Execute(ctx context.Context) worker.Result {
	best := -1.0
	bestName := ""
	for _, canonical := range j.canonical {
		// Strictly-greater keeps the earliest canonical name on ties,
		// which keeps reruns deterministic
		if score := j.scorer.Score(j.name, canonical); score > best {
			best = score
			bestName = canonical
		}
	}

	if bestName == "" || best < j.threshold {
		return &fuzzyResult{}
	}
	return &fuzzyResult{match: &model.MatchResult{
		SourceName:    j.name,
		CanonicalName: bestName,
		Score:         best,
		Strategy:      model.StrategyFuzzy,
	}}
}
