package consolidate

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/drugmerge/drugmerge/internal/model"
	"github.com/drugmerge/drugmerge/internal/normalize"
	"github.com/drugmerge/drugmerge/internal/worker"
)

// MergeStats aggregates per-record outcomes for one consolidation pass
type MergeStats struct {
	SkippedInvalid    int `json:"skipped_invalid"`
	UnmatchedFallback int `json:"unmatched_fallback"`
	Groups            int `json:"groups"`
}

// Engine merges resolved source records into consolidated drug records.
// Groups are independent; merges run concurrently on a worker pool with no
// cross-group state.
type Engine struct {
	merge   model.MergeConfig
	workers int
	norm    *normalize.Normalizer
	log     zerolog.Logger
}

// NewEngine creates an engine with the given merge configuration
func NewEngine(merge model.MergeConfig, workers int, logger zerolog.Logger) *Engine {
	return &Engine{
		merge:   merge,
		workers: workers,
		norm:    normalize.New(),
		log:     logger,
	}
}

// group is one canonical key with its contributing records in input order
type group struct {
	key     string
	records []model.SourceDrugRecord
}

// Consolidate groups records by resolved canonical key and merges each
// group. Records with an empty raw name are rejected before grouping
// (counted, never merged). A record absent from the lookup falls back to its
// own normalized name as the group key — unmatched drugs still consolidate,
// they just merge with nothing. Output is sorted by generic name so repeated
// runs over the same input are byte-identical.
func (e *Engine) Consolidate(ctx context.Context, records []model.SourceDrugRecord, lookup map[string]model.MatchResult) ([]model.ConsolidatedDrugRecord, MergeStats, error) {
	var stats MergeStats

	groups := make(map[string]*group)
	var order []string

	for _, rec := range records {
		if rec.RawName == "" {
			stats.SkippedInvalid++
			e.log.Debug().Str("source", string(rec.Source)).Msg("record skipped: empty raw name")
			continue
		}

		key := ""
		if match, ok := lookup[rec.RawName]; ok {
			key = match.CanonicalName
		} else {
			key = e.norm.Normalize(rec.RawName)
			stats.UnmatchedFallback++
		}
		if key == "" {
			// Raw name normalized to nothing (punctuation-only input);
			// no usable identity, treated like an invalid record
			stats.SkippedInvalid++
			stats.UnmatchedFallback--
			continue
		}

		g, ok := groups[key]
		if !ok {
			g = &group{key: key}
			groups[key] = g
			order = append(order, key)
		}
		g.records = append(g.records, rec)
	}

	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	pool := worker.NewPool(e.workers)
	pool.Start()
	for _, key := range order {
		pool.Submit(&mergeJob{engine: e, group: groups[key]})
	}

	consolidated := make([]model.ConsolidatedDrugRecord, 0, len(order))
	for _, result := range pool.Wait() {
		mr := result.(*mergeResult)
		consolidated = append(consolidated, mr.record)
	}

	sort.Slice(consolidated, func(i, j int) bool {
		return consolidated[i].GenericName < consolidated[j].GenericName
	})

	stats.Groups = len(consolidated)
	return consolidated, stats, nil
}

// mergeJob merges one group; groups share no mutable state
type mergeJob struct {
	engine *Engine
	group  *group
}

type mergeResult struct {
	record model.ConsolidatedDrugRecord
}

func (r *mergeResult) GetError() error { return nil }

func (j *mergeJob) Execute(ctx context.Context) worker.Result {
	return &mergeResult{record: j.engine.mergeGroup(j.group)}
}

// mergeGroup applies the field-level merge policy to one group's records
func (e *Engine) mergeGroup(g *group) model.ConsolidatedDrugRecord {
	rec := model.ConsolidatedDrugRecord{GenericName: g.key}

	for _, src := range g.records {
		rec.BrandNames = appendUnique(rec.BrandNames, src.BrandName)
		rec.Manufacturers = appendUnique(rec.Manufacturers, src.Manufacturer)
		rec.ApprovalDates = appendUnique(rec.ApprovalDates, src.ApprovalDate)
		rec.OrangeBookCodes = appendUnique(rec.OrangeBookCodes, src.OrangeBookCode)
		rec.ApplicationNumbers = appendUnique(rec.ApplicationNumbers, src.ApplicationNumber)
		rec.DataSources = appendUniqueSources(rec.DataSources, src.Source)

		if src.HasFormulationData() {
			rec.Formulations = append(rec.Formulations, model.Formulation{
				Strength:     src.Strength,
				DosageForm:   src.DosageForm,
				Route:        src.Route,
				NDC:          src.NDC,
				BrandName:    src.BrandName,
				Manufacturer: src.Manufacturer,
			})
		}

		e.mergeClinical(&rec, &src)
	}

	rec.TotalFormulations = len(rec.Formulations)
	rec.HasClinicalData = hasClinicalData(&rec)
	rec.ConfidenceScore = ConfidenceScore(&rec)
	return rec
}

// mergeClinical folds one source record's clinical fields into the
// consolidated record by dispatching each field through the merge policy
// table. A field without a policy row does not merge at all.
func (e *Engine) mergeClinical(rec *model.ConsolidatedDrugRecord, src *model.SourceDrugRecord) {
	for _, field := range clinicalFieldOrder {
		strategy, ok := StrategyFor(field)
		if !ok {
			continue
		}
		switch strategy {
		case LongestString:
			target := rec.Scalar(field)
			if target == nil {
				continue
			}
			candidate := src.ClinicalString(field)
			if candidate == "" {
				continue
			}
			// Longest wins; strictly-greater keeps the first-seen value on ties
			if len(candidate) > len(*target) {
				*target = candidate
			}
		case DedupList, UnionSet:
			target := rec.List(field)
			if target == nil {
				continue
			}
			*target = appendUnique(*target, src.ClinicalList(field)...)
		case PriorityJSONMerge:
			e.mergeInteractions(rec, src, field)
		}
	}
}

// mergeInteractions shallow-merges one record's interaction object by
// top-level key
func (e *Engine) mergeInteractions(rec *model.ConsolidatedDrugRecord, src *model.SourceDrugRecord, field string) {
	interactions := src.ClinicalObject(field)
	if len(interactions) == 0 {
		return
	}
	if rec.DrugInteractions == nil {
		rec.DrugInteractions = make(map[string]model.InteractionEntry, len(interactions))
	}
	for key, value := range interactions {
		existing, ok := rec.DrugInteractions[key]
		// On collision the higher-precedence source wins; ties keep the
		// first-seen value (records are folded in input order)
		if ok && e.merge.Precedence(src.Source) >= e.merge.Precedence(existing.Source) {
			continue
		}
		rec.DrugInteractions[key] = model.InteractionEntry{Value: value, Source: src.Source}
	}
}

func hasClinicalData(rec *model.ConsolidatedDrugRecord) bool {
	for _, field := range model.ScalarClinicalFields {
		if *rec.Scalar(field) != "" {
			return true
		}
	}
	for _, field := range model.ListClinicalFields {
		if len(*rec.List(field)) > 0 {
			return true
		}
	}
	return false
}

// appendUnique appends each non-empty value not already present,
// preserving first-seen order
func appendUnique(dst []string, vals ...string) []string {
	for _, v := range vals {
		if v == "" {
			continue
		}
		found := false
		for _, existing := range dst {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}

func appendUniqueSources(dst []model.SourceID, s model.SourceID) []model.SourceID {
	for _, existing := range dst {
		if existing == s {
			return dst
		}
	}
	return append(dst, s)
}
