package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/drugmerge/drugmerge/internal/model"
)

// Renderer writes run output to local files and stdout
type Renderer struct {
	verbose bool
}

func NewRenderer(verbose bool) *Renderer {
	return &Renderer{verbose: verbose}
}

// RenderJSON writes the consolidated records as a sorted JSON array. The
// record order is already deterministic, so reruns on identical input
// produce byte-identical files.
func (r *Renderer) RenderJSON(records []model.ConsolidatedDrugRecord, path string) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if r.verbose {
		fmt.Printf("✓ Wrote JSON: %s\n", path)
	}
	return nil
}

// RenderSummary prints the run report to stdout.
func (r *Renderer) RenderSummary(report model.RunReport) {
	fmt.Printf("\nConsolidation run (%s)\n", report.Duration.Round(time.Millisecond))
	fmt.Printf("  Input records:      %d\n", report.InputRecords)
	fmt.Printf("  Skipped invalid:    %d\n", report.SkippedInvalid)
	fmt.Printf("  Resolved exact:     %d\n", report.ResolvedExact)
	fmt.Printf("  Resolved normalized:%d\n", report.ResolvedNormalized)
	fmt.Printf("  Resolved uppercase: %d\n", report.ResolvedUppercase)
	fmt.Printf("  Resolved fuzzy:     %d\n", report.ResolvedFuzzy)
	fmt.Printf("  Unmatched fallback: %d\n", report.UnmatchedFallback)
	fmt.Printf("  Fuzzy skipped:      %d\n", report.FuzzySkipped)
	fmt.Printf("  Consolidated groups:%d\n", report.Groups)
}
