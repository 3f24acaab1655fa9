package consolidate

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/drugmerge/drugmerge/internal/model"
)

func newTestEngine() *Engine {
	return NewEngine(model.MergeConfig{SourcePrecedence: model.AllSources}, 2, zerolog.Nop())
}

// lookupFor builds a lookup placing every given raw name under one canonical key
func lookupFor(canonical string, rawNames ...string) map[string]model.MatchResult {
	lookup := make(map[string]model.MatchResult, len(rawNames))
	for _, name := range rawNames {
		lookup[name] = model.MatchResult{
			SourceName:    name,
			CanonicalName: canonical,
			Score:         1.0,
			Strategy:      model.StrategyExact,
		}
	}
	return lookup
}

func TestEngine_Consolidate_DedupBrandNames(t *testing.T) {
	e := newTestEngine()

	records := []model.SourceDrugRecord{
		{RawName: "aspirin", Source: model.SourceNDC, BrandName: "X"},
		{RawName: "aspirin", Source: model.SourceNDC, BrandName: "Y"},
		{RawName: "aspirin", Source: model.SourceOrangeBook, BrandName: "Y"},
		{RawName: "aspirin", Source: model.SourceOrangeBook, BrandName: "Z"},
	}

	out, stats, err := e.Consolidate(context.Background(), records, lookupFor("aspirin", "aspirin"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Groups != 1 || len(out) != 1 {
		t.Fatalf("expected one group, got %d", len(out))
	}

	got := out[0].BrandNames
	want := []string{"X", "Y", "Z"}
	if len(got) != len(want) {
		t.Fatalf("expected brand names %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("brand name %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestEngine_Consolidate_LongestStringWins(t *testing.T) {
	e := newTestEngine()

	records := []model.SourceDrugRecord{
		{
			RawName: "aspirin", Source: model.SourceNDC,
			ClinicalFields: map[string]interface{}{
				model.FieldIndicationsAndUsage: "Pain relief",
			},
		},
		{
			RawName: "aspirin", Source: model.SourceLabels,
			ClinicalFields: map[string]interface{}{
				model.FieldIndicationsAndUsage: "Pain relief and anti-inflammatory treatment",
			},
		},
	}

	out, _, err := e.Consolidate(context.Background(), records, lookupFor("aspirin", "aspirin"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out[0].IndicationsAndUsage; got != "Pain relief and anti-inflammatory treatment" {
		t.Errorf("expected longest candidate, got %q", got)
	}
}

func TestEngine_Consolidate_LongestStringTieKeepsFirst(t *testing.T) {
	e := newTestEngine()

	records := []model.SourceDrugRecord{
		{
			RawName: "aspirin", Source: model.SourceNDC,
			ClinicalFields: map[string]interface{}{model.FieldTherapeuticClass: "abc"},
		},
		{
			RawName: "aspirin", Source: model.SourceLabels,
			ClinicalFields: map[string]interface{}{model.FieldTherapeuticClass: "xyz"},
		},
	}

	out, _, err := e.Consolidate(context.Background(), records, lookupFor("aspirin", "aspirin"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out[0].TherapeuticClass; got != "abc" {
		t.Errorf("equal-length tie must keep first-seen value, got %q", got)
	}
}

func TestEngine_Consolidate_DedupListPreservesOrder(t *testing.T) {
	e := newTestEngine()

	records := []model.SourceDrugRecord{
		{
			RawName: "aspirin", Source: model.SourceLabels,
			ClinicalFields: map[string]interface{}{
				model.FieldContraindications: []interface{}{"bleeding disorder", "asthma"},
			},
		},
		{
			RawName: "aspirin", Source: model.SourceDrugCentral,
			ClinicalFields: map[string]interface{}{
				model.FieldContraindications: []interface{}{"asthma", "renal impairment"},
			},
		},
	}

	out, _, err := e.Consolidate(context.Background(), records, lookupFor("aspirin", "aspirin"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"bleeding disorder", "asthma", "renal impairment"}
	got := out[0].Contraindications
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("contraindication %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestEngine_Consolidate_InteractionPrecedence(t *testing.T) {
	e := newTestEngine()

	// NDC is folded first but LABELS outranks it, so the LABELS value must
	// win the key collision regardless of record order
	records := []model.SourceDrugRecord{
		{
			RawName: "aspirin", Source: model.SourceNDC,
			ClinicalFields: map[string]interface{}{
				model.FieldDrugInteractions: map[string]interface{}{
					"warfarin": "interaction noted",
				},
			},
		},
		{
			RawName: "aspirin", Source: model.SourceLabels,
			ClinicalFields: map[string]interface{}{
				model.FieldDrugInteractions: map[string]interface{}{
					"warfarin":  "increased bleeding risk",
					"ibuprofen": "reduced antiplatelet effect",
				},
			},
		},
	}

	out, _, err := e.Consolidate(context.Background(), records, lookupFor("aspirin", "aspirin"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	interactions := out[0].DrugInteractions
	if len(interactions) != 2 {
		t.Fatalf("expected 2 interaction keys, got %d", len(interactions))
	}
	entry := interactions["warfarin"]
	if entry.Source != model.SourceLabels {
		t.Errorf("expected LABELS to win the collision, got %s", entry.Source)
	}
	if entry.Value != "increased bleeding risk" {
		t.Errorf("expected LABELS value, got %v", entry.Value)
	}
	if interactions["ibuprofen"].Source != model.SourceLabels {
		t.Errorf("non-colliding key must keep its source, got %s", interactions["ibuprofen"].Source)
	}
}

func TestEngine_Consolidate_InteractionSamePrecedenceKeepsFirst(t *testing.T) {
	e := newTestEngine()

	records := []model.SourceDrugRecord{
		{
			RawName: "aspirin", Source: model.SourceDrugCentral,
			ClinicalFields: map[string]interface{}{
				model.FieldDrugInteractions: map[string]interface{}{"heparin": "first"},
			},
		},
		{
			RawName: "aspirin", Source: model.SourceDrugCentral,
			ClinicalFields: map[string]interface{}{
				model.FieldDrugInteractions: map[string]interface{}{"heparin": "second"},
			},
		},
	}

	out, _, err := e.Consolidate(context.Background(), records, lookupFor("aspirin", "aspirin"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out[0].DrugInteractions["heparin"].Value; got != "first" {
		t.Errorf("equal precedence must keep first-seen value, got %v", got)
	}
}

func TestEngine_Consolidate_FormulationsPerContributingRecord(t *testing.T) {
	e := newTestEngine()

	records := []model.SourceDrugRecord{
		{RawName: "aspirin", Source: model.SourceNDC, Strength: "81 mg", DosageForm: "tablet", NDC: "0001-0001"},
		{RawName: "aspirin", Source: model.SourceNDC, Strength: "325 mg", DosageForm: "tablet", NDC: "0001-0002"},
		// No formulation attributes at all: contributes no entry
		{RawName: "aspirin", Source: model.SourceRxClass,
			ClinicalFields: map[string]interface{}{model.FieldTherapeuticClass: "NSAID"}},
	}

	out, _, err := e.Consolidate(context.Background(), records, lookupFor("aspirin", "aspirin"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := out[0]
	if rec.TotalFormulations != 2 {
		t.Errorf("expected 2 formulations, got %d", rec.TotalFormulations)
	}
	if len(rec.Formulations) != 2 {
		t.Fatalf("expected 2 formulation entries, got %d", len(rec.Formulations))
	}
	// Entries keep record order
	if rec.Formulations[0].Strength != "81 mg" || rec.Formulations[1].Strength != "325 mg" {
		t.Errorf("formulations out of order: %+v", rec.Formulations)
	}
}

func TestEngine_Consolidate_SkipsInvalidRecords(t *testing.T) {
	e := newTestEngine()

	records := []model.SourceDrugRecord{
		{RawName: "", Source: model.SourceNDC, BrandName: "X"},
		{RawName: "...", Source: model.SourceNDC, BrandName: "Y"}, // normalizes to nothing
		{RawName: "aspirin", Source: model.SourceNDC, BrandName: "Z"},
	}

	out, stats, err := e.Consolidate(context.Background(), records, lookupFor("aspirin", "aspirin"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.SkippedInvalid != 2 {
		t.Errorf("expected 2 skipped records, got %+v", stats)
	}
	if len(out) != 1 || out[0].GenericName != "aspirin" {
		t.Fatalf("expected only the valid record to consolidate, got %+v", out)
	}
}

func TestEngine_Consolidate_UnmatchedFallsBackToNormalizedName(t *testing.T) {
	e := newTestEngine()

	// No lookup entry: the record groups under its own normalized name
	records := []model.SourceDrugRecord{
		{RawName: "Obscuramycin Sulfate", Source: model.SourceNDC, BrandName: "Obscure"},
	}

	out, stats, err := e.Consolidate(context.Background(), records, map[string]model.MatchResult{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.UnmatchedFallback != 1 {
		t.Errorf("expected 1 unmatched fallback, got %+v", stats)
	}
	if len(out) != 1 || out[0].GenericName != "obscuramycin" {
		t.Fatalf("expected fallback group under normalized name, got %+v", out)
	}
}

func TestEngine_Consolidate_OutputSortedByGenericName(t *testing.T) {
	e := newTestEngine()

	records := []model.SourceDrugRecord{
		{RawName: "warfarin", Source: model.SourceNDC},
		{RawName: "aspirin", Source: model.SourceNDC},
		{RawName: "metformin", Source: model.SourceNDC},
	}
	lookup := map[string]model.MatchResult{}
	for _, name := range []string{"warfarin", "aspirin", "metformin"} {
		lookup[name] = model.MatchResult{SourceName: name, CanonicalName: name, Score: 1.0, Strategy: model.StrategyExact}
	}

	out, _, err := e.Consolidate(context.Background(), records, lookup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i-1].GenericName >= out[i].GenericName {
			t.Errorf("output not sorted: %q before %q", out[i-1].GenericName, out[i].GenericName)
		}
	}
}

func TestEngine_Consolidate_IdempotentRegrouping(t *testing.T) {
	e := newTestEngine()

	records := []model.SourceDrugRecord{
		{RawName: "aspirin", Source: model.SourceNDC, BrandName: "X", Strength: "81 mg"},
		{RawName: "aspirin", Source: model.SourceLabels,
			ClinicalFields: map[string]interface{}{
				model.FieldIndicationsAndUsage: "Pain relief",
				model.FieldContraindications:   []interface{}{"bleeding disorder"},
			}},
		{RawName: "warfarin", Source: model.SourceOrangeBook, OrangeBookCode: "AB"},
	}
	lookup := lookupFor("aspirin", "aspirin")
	lookup["warfarin"] = model.MatchResult{SourceName: "warfarin", CanonicalName: "warfarin", Score: 1.0, Strategy: model.StrategyExact}

	first, _, err := e.Consolidate(context.Background(), records, lookup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _, err := e.Consolidate(context.Background(), records, lookup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	firstJSON, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal first run: %v", err)
	}
	secondJSON, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal second run: %v", err)
	}
	if string(firstJSON) != string(secondJSON) {
		t.Error("repeated runs over the same input must be byte-identical")
	}
}

func TestEngine_Consolidate_Cancellation(t *testing.T) {
	e := newTestEngine()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := e.Consolidate(ctx, []model.SourceDrugRecord{
		{RawName: "aspirin", Source: model.SourceNDC},
	}, lookupFor("aspirin", "aspirin"))
	if err == nil {
		t.Fatal("expected a cancellation error")
	}
}

func TestConfidenceScore_Monotonicity(t *testing.T) {
	rec := model.ConsolidatedDrugRecord{
		GenericName: "aspirin",
		DataSources: []model.SourceID{model.SourceNDC},
	}
	before := ConfidenceScore(&rec)

	rec.IndicationsAndUsage = "Pain relief"
	after := ConfidenceScore(&rec)

	if after < before {
		t.Errorf("adding a clinical field must never decrease confidence: %v -> %v", before, after)
	}
	if after <= before {
		t.Errorf("expected strictly higher confidence with more data: %v -> %v", before, after)
	}
}

func TestConfidenceScore_Bounds(t *testing.T) {
	empty := model.ConsolidatedDrugRecord{GenericName: "x"}
	if got := ConfidenceScore(&empty); got != 0 {
		t.Errorf("empty record: expected 0, got %v", got)
	}

	full := model.ConsolidatedDrugRecord{
		GenericName: "x",
		DataSources: []model.SourceID{
			model.SourceNDC, model.SourceLabels, model.SourceOrangeBook,
			model.SourceDrugsAtFDA, model.SourceRxClass,
		},
	}
	for _, field := range model.ScalarClinicalFields {
		*full.Scalar(field) = "present"
	}
	for _, field := range model.ListClinicalFields {
		*full.List(field) = []string{"present"}
	}
	if got := ConfidenceScore(&full); got != 1.0 {
		t.Errorf("fully populated record: expected 1.0, got %v", got)
	}
	// More than the provenance cap never pushes past 1.0
	if got := ConfidenceScore(&full); got > 1.0 {
		t.Errorf("confidence must stay in [0,1], got %v", got)
	}
}

func TestEngine_Consolidate_MergePolicyTableDrivesBehavior(t *testing.T) {
	// The policy table is behavior, not documentation: removing a field's
	// row must stop that field from merging.
	saved := mergePolicy[model.FieldBoxedWarning]
	delete(mergePolicy, model.FieldBoxedWarning)
	defer func() { mergePolicy[model.FieldBoxedWarning] = saved }()

	e := newTestEngine()
	records := []model.SourceDrugRecord{
		{RawName: "aspirin", Source: model.SourceLabels,
			ClinicalFields: map[string]interface{}{model.FieldBoxedWarning: "Reye's syndrome risk"}},
	}

	out, _, err := e.Consolidate(context.Background(), records, lookupFor("aspirin", "aspirin"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out[0].BoxedWarning; got != "" {
		t.Errorf("field without a policy row must not merge, got %q", got)
	}

	mergePolicy[model.FieldBoxedWarning] = saved
	out, _, err = e.Consolidate(context.Background(), records, lookupFor("aspirin", "aspirin"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out[0].BoxedWarning; got != "Reye's syndrome risk" {
		t.Errorf("restored policy row must merge again, got %q", got)
	}
}

func TestStrategyFor_CoversEveryClinicalField(t *testing.T) {
	for _, field := range model.ScalarClinicalFields {
		s, ok := StrategyFor(field)
		if !ok || s != LongestString {
			t.Errorf("field %s: expected %s policy, got %s (known=%v)", field, LongestString, s, ok)
		}
	}
	for _, field := range model.ListClinicalFields {
		s, ok := StrategyFor(field)
		if !ok || s != DedupList {
			t.Errorf("field %s: expected %s policy, got %s (known=%v)", field, DedupList, s, ok)
		}
	}
	if s, ok := StrategyFor(model.FieldDrugInteractions); !ok || s != PriorityJSONMerge {
		t.Errorf("drug_interactions: expected %s policy, got %s", PriorityJSONMerge, s)
	}
	if _, ok := StrategyFor("no_such_field"); ok {
		t.Error("unknown field must not have a policy")
	}
}
