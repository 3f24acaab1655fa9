package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/drugmerge/drugmerge/internal/model"
	"github.com/drugmerge/drugmerge/internal/pipeline"
	"github.com/drugmerge/drugmerge/internal/store"
	"github.com/drugmerge/drugmerge/internal/worker"
)

var (
	inputPath      string
	canonicalPath  string
	outJSON        string
	matchThreshold float64
	fuzzyBudget    int
	fuzzyPolicy    string
	workers        int
	noCache        bool
	runTimeout     time.Duration
	usePostgres    bool
	useMeili       bool
)

// consolidateCmd represents the consolidate command
var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Consolidate source drug records into one record per generic drug",
	Long: `Consolidate reads source drug records (NDJSON, one record per line),
resolves each raw name to a canonical generic name through the match
cascade, and merges every group into a single consolidated record:
- Exact, normalized, and uppercase lookups run in constant time
- Remaining names get budget-bounded pairwise fuzzy matching
- Field conflicts resolve per-field: set union, longest-wins, or
  source-precedence, with source attribution kept throughout

Canonical names come from --canonical (one name per line) or, with
--postgres, from previously stored records.

Example:
  drugmerge consolidate --input feeds.ndjson --canonical names.txt
  drugmerge consolidate --input feeds.ndjson --postgres --meili
  drugmerge consolidate --input feeds.ndjson --fuzzy-policy chunk --fuzzy-budget 500`,
	RunE: runConsolidate,
}

func init() {
	rootCmd.AddCommand(consolidateCmd)

	consolidateCmd.Flags().StringVar(&inputPath, "input", "", "source records file, NDJSON (required)")
	consolidateCmd.Flags().StringVar(&canonicalPath, "canonical", "", "canonical names file, one per line")
	consolidateCmd.Flags().StringVar(&outJSON, "json", "consolidated.json", "output JSON path (empty to disable)")

	consolidateCmd.Flags().Float64Var(&matchThreshold, "threshold", 0.7, "minimum fuzzy match score (inclusive)")
	consolidateCmd.Flags().IntVar(&fuzzyBudget, "fuzzy-budget", 100, "max unmatched names fuzzy-matched per batch")
	consolidateCmd.Flags().StringVar(&fuzzyPolicy, "fuzzy-policy", "skip", "budget overrun policy (skip, chunk, best-effort)")
	consolidateCmd.Flags().IntVar(&workers, "workers", 4, "fuzzy-match and merge worker count")
	consolidateCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the resolution cache")
	consolidateCmd.Flags().DurationVar(&runTimeout, "timeout", 10*time.Minute, "overall run timeout")

	consolidateCmd.Flags().BoolVar(&usePostgres, "postgres", false, "persist to Postgres (DSN from config or DRUGMERGE_POSTGRES_DSN)")
	consolidateCmd.Flags().BoolVar(&useMeili, "meili", false, "index into Meilisearch (endpoint from config or DRUGMERGE_MEILI_URL)")

	_ = consolidateCmd.MarkFlagRequired("input")
}

func runConsolidate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyMatchFlags(cmd, cfg)

	records, malformed, err := worker.ReadRecordsFromFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if malformed > 0 {
		logger.Warn().Int("lines", malformed).Msg("skipped malformed input lines")
	}

	var st store.Store
	if usePostgres {
		if cfg.Store.PostgresDSN == "" {
			return fmt.Errorf("--postgres requires a DSN (config store.postgres_dsn or DRUGMERGE_POSTGRES_DSN)")
		}
		pg, err := store.OpenPostgres(ctx, cfg.Store.PostgresDSN, logger)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		st = pg
	}

	canonicalNames, err := loadCanonicalNames(ctx, st)
	if err != nil {
		return err
	}

	var idx *store.MeiliIndexer
	if useMeili {
		if cfg.Store.MeiliURL == "" {
			return fmt.Errorf("--meili requires an endpoint (config store.meili_url or DRUGMERGE_MEILI_URL)")
		}
		idx = store.NewMeiliIndexer(cfg.Store, logger)
		if err := idx.Configure(ctx); err != nil {
			return err
		}
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Input: %s (%d records)\n", inputPath, len(records))
		fmt.Fprintf(os.Stderr, "Canonical names: %d\n", len(canonicalNames))
		fmt.Fprintf(os.Stderr, "Fuzzy: threshold=%.2f budget=%d policy=%s\n\n",
			cfg.Match.Threshold, cfg.Match.FuzzyBudget, cfg.Match.FuzzyPolicy)
	}

	p := pipeline.NewPipeline(cfg, st, idx, logger)
	result, err := p.Run(ctx, records, canonicalNames)
	if err != nil {
		return err
	}

	renderer := pipeline.NewRenderer(verbose)
	if outJSON != "" {
		if err := renderer.RenderJSON(result.Records, outJSON); err != nil {
			return err
		}
	}
	renderer.RenderSummary(result.Report)

	return nil
}

// applyMatchFlags overrides config with explicitly set flags. Unset flags
// keep the config file / default values.
func applyMatchFlags(cmd *cobra.Command, cfg *model.Config) {
	if cmd.Flags().Changed("threshold") {
		cfg.Match.Threshold = matchThreshold
	}
	if cmd.Flags().Changed("fuzzy-budget") {
		cfg.Match.FuzzyBudget = fuzzyBudget
	}
	if cmd.Flags().Changed("fuzzy-policy") {
		cfg.Match.FuzzyPolicy = model.FuzzyPolicy(fuzzyPolicy)
	}
	if cmd.Flags().Changed("workers") {
		cfg.Match.Workers = workers
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
}

// loadCanonicalNames prefers the file when given, otherwise falls back to
// stored generic names. No source at all is valid: every record then
// groups under its own normalized name.
func loadCanonicalNames(ctx context.Context, st store.Store) ([]string, error) {
	if canonicalPath != "" {
		names, err := worker.ReadNamesFromFile(canonicalPath)
		if err != nil {
			return nil, fmt.Errorf("read canonical names: %w", err)
		}
		return names, nil
	}
	if st != nil {
		names, err := st.CanonicalNames(ctx)
		if err != nil {
			return nil, err
		}
		return names, nil
	}
	return nil, nil
}
