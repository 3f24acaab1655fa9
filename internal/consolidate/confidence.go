package consolidate

import "github.com/drugmerge/drugmerge/internal/model"

// Treats three or more contributing feeds as full provenance confidence
const fullProvenanceSources = 3.0

// ConfidenceScore computes the completeness metric for a consolidated
// record: the arithmetic mean of the clinical-field presence fraction
// (unit weight per scalar and list field) and a source-count factor capped
// at three feeds, clamped to [0,1]. Pure function of the record's own
// fields — recomputable at any time with no external state.
func ConfidenceScore(rec *model.ConsolidatedDrugRecord) float64 {
	present := 0
	total := len(model.ScalarClinicalFields) + len(model.ListClinicalFields)

	for _, field := range model.ScalarClinicalFields {
		if *rec.Scalar(field) != "" {
			present++
		}
	}
	for _, field := range model.ListClinicalFields {
		if len(*rec.List(field)) > 0 {
			present++
		}
	}

	completeness := float64(present) / float64(total)

	provenance := float64(len(rec.DataSources)) / fullProvenanceSources
	if provenance > 1.0 {
		provenance = 1.0
	}

	score := (completeness + provenance) / 2.0
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
