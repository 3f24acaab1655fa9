// Package consolidate groups source drug records by resolved canonical key
// and merges each group into one confidence-scored consolidated record.
package consolidate

import "github.com/drugmerge/drugmerge/internal/model"

// MergeStrategy names how a field's candidate values are combined across
// the records of a group
type MergeStrategy string

const (
	// UnionSet deduplicates values into a set, first-seen order
	UnionSet MergeStrategy = "union_set"
	// LongestString keeps the longest non-empty candidate, ties broken
	// by first-seen order. Longer prescriber-labeling text is assumed more
	// complete; a heuristic, not a clinical judgment.
	LongestString MergeStrategy = "longest_string"
	// DedupList unions list values, deduplicated by exact string equality,
	// first-seen order preserved
	DedupList MergeStrategy = "dedup_list"
	// PriorityJSONMerge shallow-merges JSON objects by top-level key,
	// resolving collisions by source precedence
	PriorityJSONMerge MergeStrategy = "priority_json_merge"
)

// mergePolicy is the per-field merge table. The policy is data, not
// scattered conditionals: changing how a field merges means changing a row
// here, not hunting through the engine.
var mergePolicy = map[string]MergeStrategy{
	model.FieldTherapeuticClass:        LongestString,
	model.FieldIndicationsAndUsage:     LongestString,
	model.FieldMechanismOfAction:       LongestString,
	model.FieldDosageAndAdministration: LongestString,
	model.FieldPharmacokinetics:        LongestString,
	model.FieldPharmacodynamics:        LongestString,
	model.FieldBoxedWarning:            LongestString,
	model.FieldClinicalStudies:         LongestString,
	model.FieldPediatricUse:            LongestString,
	model.FieldGeriatricUse:            LongestString,
	model.FieldPregnancy:               LongestString,
	model.FieldNursingMothers:          LongestString,
	model.FieldOverdosage:              LongestString,
	model.FieldNonclinicalToxicology:   LongestString,

	model.FieldContraindications: DedupList,
	model.FieldWarnings:          DedupList,
	model.FieldPrecautions:       DedupList,
	model.FieldAdverseReactions:  DedupList,

	model.FieldDrugInteractions: PriorityJSONMerge,
}

// clinicalFieldOrder fixes the iteration order for policy-driven merging.
// Map iteration is randomized; field folding must not be.
var clinicalFieldOrder = func() []string {
	order := make([]string, 0, len(mergePolicy))
	order = append(order, model.ScalarClinicalFields...)
	order = append(order, model.ListClinicalFields...)
	order = append(order, model.FieldDrugInteractions)
	return order
}()

// StrategyFor returns the merge strategy for a clinical field
func StrategyFor(field string) (MergeStrategy, bool) {
	s, ok := mergePolicy[field]
	return s, ok
}
