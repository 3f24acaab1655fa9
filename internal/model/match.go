package model

// MatchStrategy records which tier of the cascade resolved a source name
type MatchStrategy string

const (
	StrategyExact      MatchStrategy = "exact"      // Byte-identical lookup hit
	StrategyNormalized MatchStrategy = "normalized" // Hit after name normalization
	StrategyUppercase  MatchStrategy = "uppercase"  // Hit after uppercasing
	StrategyFuzzy      MatchStrategy = "fuzzy"      // Best-scoring pairwise match
)

// MatchResult maps one source name to the canonical database name it
// resolved to. Exact, normalized, and uppercase hits always carry score 1.0;
// fuzzy hits carry a score at or above the configured threshold.
type MatchResult struct {
	SourceName    string        `json:"source_name"`
	CanonicalName string        `json:"canonical_name"`
	Score         float64       `json:"score"`
	Strategy      MatchStrategy `json:"strategy"`
}
