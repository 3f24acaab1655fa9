package model

import "time"

// RunReport aggregates per-record outcomes for one consolidation run.
// Individual bad records never abort a run; they end up here as counts.
type RunReport struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	InputRecords   int `json:"input_records"`
	SkippedInvalid int `json:"skipped_invalid"` // Empty raw_name, rejected before grouping

	ResolvedExact      int `json:"resolved_exact"`
	ResolvedNormalized int `json:"resolved_normalized"`
	ResolvedUppercase  int `json:"resolved_uppercase"`
	ResolvedFuzzy      int `json:"resolved_fuzzy"`

	// UnmatchedFallback counts records grouped under their own normalized
	// name because no canonical match existed. Expected, not an error.
	UnmatchedFallback int `json:"unmatched_fallback"`
	// FuzzySkipped counts names whose fuzzy resolution was skipped by
	// the budget policy
	FuzzySkipped int `json:"fuzzy_skipped"`

	Groups int `json:"groups"`
}
