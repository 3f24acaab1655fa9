package model

import "time"

// FuzzyPolicy controls what happens when the number of unmatched source
// names in a batch exceeds the fuzzy budget
type FuzzyPolicy string

const (
	// FuzzySkip skips fuzzy resolution entirely for the batch once the
	// budget is exceeded. Mirrors the original engine's behavior.
	FuzzySkip FuzzyPolicy = "skip"
	// FuzzyChunk processes unmatched names in budget-sized chunks until
	// exhausted or the run is cancelled
	FuzzyChunk FuzzyPolicy = "chunk"
	// FuzzyBestEffort fuzzy-matches the first budget-many unmatched names
	// and skips the excess
	FuzzyBestEffort FuzzyPolicy = "best-effort"
)

// Config carries all engine settings. It is constructed once by the host
// (CLI flags, DRUGMERGE_* environment, config file) and passed into each
// component constructor; there is no process-wide config state.
type Config struct {
	Match    MatchConfig    `yaml:"match"`
	Merge    MergeConfig    `yaml:"merge"`
	Cache    CacheConfig    `yaml:"cache"`
	Store    StoreConfig    `yaml:"store"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Output   OutputConfig   `yaml:"output"`
}

// MatchConfig tunes the fuzzy-match cascade
type MatchConfig struct {
	// Threshold is the minimum score for a fuzzy match to resolve (inclusive)
	Threshold float64 `yaml:"threshold"`
	// FuzzyBudget bounds how many unmatched names get pairwise fuzzy
	// matching per batch
	FuzzyBudget int `yaml:"fuzzy_budget"`
	// FuzzyPolicy decides how budget overruns are handled
	FuzzyPolicy FuzzyPolicy `yaml:"fuzzy_policy"`
	// Workers is the fuzzy-search and group-merge worker pool size
	Workers int `yaml:"workers"`
}

// MergeConfig tunes field-level conflict resolution
type MergeConfig struct {
	// SourcePrecedence ranks feeds highest-first for structured-field
	// collisions (drug_interactions key conflicts)
	SourcePrecedence []SourceID `yaml:"source_precedence"`
}

// Precedence returns the rank of a source (lower is higher precedence).
// Unknown sources rank below every configured one.
func (m MergeConfig) Precedence(s SourceID) int {
	for i, id := range m.SourcePrecedence {
		if id == s {
			return i
		}
	}
	return len(m.SourcePrecedence)
}

// CacheConfig controls the cross-run resolution cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// StoreConfig points at the persistence and search collaborators.
// Empty endpoints disable the corresponding sink.
type StoreConfig struct {
	PostgresDSN     string  `yaml:"postgres_dsn"`
	MeiliURL        string  `yaml:"meili_url"`
	MeiliAPIKey     string  `yaml:"meili_api_key"`
	MeiliIndex      string  `yaml:"meili_index"`
	IndexBatchSize  int     `yaml:"index_batch_size"`
	IndexRatePerSec float64 `yaml:"index_rate_per_sec"`
}

// ScheduleConfig drives the serve-mode consolidation schedule
type ScheduleConfig struct {
	// Times are daily run times in "HH:MM" form, gocron syntax
	Times []string `yaml:"times"`
	// Listen is the metrics endpoint address
	Listen string `yaml:"listen"`
}

// OutputConfig controls local run artifacts
type OutputConfig struct {
	JSONPath string `yaml:"json_path"`
	Verbose  bool   `yaml:"verbose"`
}

// DefaultConfig returns the engine defaults
func DefaultConfig() *Config {
	return &Config{
		Match: MatchConfig{
			Threshold:   0.7,
			FuzzyBudget: 100,
			FuzzyPolicy: FuzzySkip,
			Workers:     4,
		},
		Merge: MergeConfig{
			SourcePrecedence: append([]SourceID(nil), AllSources...),
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     12 * time.Hour,
		},
		Store: StoreConfig{
			MeiliIndex:      "drugs",
			IndexBatchSize:  500,
			IndexRatePerSec: 4,
		},
		Schedule: ScheduleConfig{
			Times:  []string{"06:00", "18:00"},
			Listen: ":9108",
		},
	}
}
