// Package pipeline orchestrates a full consolidation run: name resolution,
// group merging, persistence, and search indexing, with a report of
// per-record outcomes.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/drugmerge/drugmerge/internal/cache"
	"github.com/drugmerge/drugmerge/internal/consolidate"
	"github.com/drugmerge/drugmerge/internal/match"
	"github.com/drugmerge/drugmerge/internal/metrics"
	"github.com/drugmerge/drugmerge/internal/model"
	"github.com/drugmerge/drugmerge/internal/store"
)

// Pipeline wires the cascade and merge engine to optional persistence
// collaborators. Store and Indexer may be nil; the run then produces local
// output only.
type Pipeline struct {
	cascade *match.Cascade
	engine  *consolidate.Engine
	store   store.Store
	indexer *store.MeiliIndexer
	config  *model.Config
	log     zerolog.Logger
}

// NewPipeline creates a pipeline from config. The resolution cache is
// enabled per config; nil store/indexer disable those phases.
func NewPipeline(cfg *model.Config, st store.Store, idx *store.MeiliIndexer, logger zerolog.Logger) *Pipeline {
	var rc *cache.ResolutionCache
	if cfg.Cache.Enabled {
		rc = cache.NewResolutionCache(cfg.Cache.TTL, cfg.Cache.TTL/2)
	}
	return &Pipeline{
		cascade: match.NewCascade(cfg.Match, logger, rc),
		engine:  consolidate.NewEngine(cfg.Merge, cfg.Match.Workers, logger),
		store:   st,
		indexer: idx,
		config:  cfg,
		log:     logger.With().Str("component", "pipeline").Logger(),
	}
}

// RunResult carries the consolidated records plus the run report.
type RunResult struct {
	Records []model.ConsolidatedDrugRecord
	Report  model.RunReport
}

// Run consolidates a batch of source records against the given canonical
// name set. Individual bad records are counted, never fatal; an error means
// the run itself could not proceed (cancellation, storage failure).
func (p *Pipeline) Run(ctx context.Context, records []model.SourceDrugRecord, canonicalNames []string) (*RunResult, error) {
	started := time.Now().UTC()

	// 1. Resolve source names to canonical names
	sourceNames := make([]string, 0, len(records))
	for i := range records {
		if records[i].RawName != "" {
			sourceNames = append(sourceNames, records[i].RawName)
		}
	}
	lookup, cascadeStats, err := p.cascade.BuildLookup(ctx, sourceNames, canonicalNames)
	if err != nil {
		return nil, fmt.Errorf("build lookup: %w", err)
	}

	// 2. Group and merge
	consolidated, mergeStats, err := p.engine.Consolidate(ctx, records, lookup)
	if err != nil {
		return nil, fmt.Errorf("consolidate: %w", err)
	}

	// 3. Persist
	if p.store != nil {
		if err := p.store.Upsert(ctx, consolidated); err != nil {
			return nil, fmt.Errorf("persist: %w", err)
		}
	}

	// 4. Index for search
	if p.indexer != nil {
		if err := p.indexer.IndexRecords(ctx, consolidated); err != nil {
			return nil, fmt.Errorf("index: %w", err)
		}
	}

	report := buildReport(started, len(records), cascadeStats, mergeStats)
	observe(report, cascadeStats)

	p.log.Info().
		Int("input", report.InputRecords).
		Int("groups", report.Groups).
		Int("skipped_invalid", report.SkippedInvalid).
		Int("fuzzy_skipped", report.FuzzySkipped).
		Dur("duration", report.Duration).
		Msg("consolidation run complete")

	return &RunResult{Records: consolidated, Report: report}, nil
}

func buildReport(started time.Time, inputs int, cs match.CascadeStats, ms consolidate.MergeStats) model.RunReport {
	return model.RunReport{
		StartedAt:          started,
		Duration:           time.Since(started),
		InputRecords:       inputs,
		SkippedInvalid:     ms.SkippedInvalid,
		ResolvedExact:      cs.Exact,
		ResolvedNormalized: cs.Normalized,
		ResolvedUppercase:  cs.Uppercase,
		ResolvedFuzzy:      cs.Fuzzy,
		UnmatchedFallback:  ms.UnmatchedFallback,
		FuzzySkipped:       cs.FuzzySkipped,
		Groups:             ms.Groups,
	}
}

func observe(r model.RunReport, cs match.CascadeStats) {
	metrics.RecordsTotal.WithLabelValues("merged").Add(float64(r.InputRecords - r.SkippedInvalid))
	metrics.RecordsTotal.WithLabelValues("skipped_invalid").Add(float64(r.SkippedInvalid))
	metrics.ResolutionsTotal.WithLabelValues("exact").Add(float64(cs.Exact))
	metrics.ResolutionsTotal.WithLabelValues("normalized").Add(float64(cs.Normalized))
	metrics.ResolutionsTotal.WithLabelValues("uppercase").Add(float64(cs.Uppercase))
	metrics.ResolutionsTotal.WithLabelValues("fuzzy").Add(float64(cs.Fuzzy))
	metrics.ResolutionsTotal.WithLabelValues("unmatched").Add(float64(cs.Unmatched))
	metrics.FuzzySkippedTotal.Add(float64(r.FuzzySkipped))
	metrics.GroupsTotal.Add(float64(r.Groups))
	metrics.RunDuration.Observe(r.Duration.Seconds())
}
