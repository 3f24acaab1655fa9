package model

// Scalar clinical fields carried on a consolidated record. Each holds the
// single "best" candidate string picked by the merge policy (longest wins,
// ties broken by first-seen order).
const (
	FieldTherapeuticClass        = "therapeutic_class"
	FieldIndicationsAndUsage     = "indications_and_usage"
	FieldMechanismOfAction       = "mechanism_of_action"
	FieldDosageAndAdministration = "dosage_and_administration"
	FieldPharmacokinetics        = "pharmacokinetics"
	FieldPharmacodynamics        = "pharmacodynamics"
	FieldBoxedWarning            = "boxed_warning"
	FieldClinicalStudies         = "clinical_studies"
	FieldPediatricUse            = "pediatric_use"
	FieldGeriatricUse            = "geriatric_use"
	FieldPregnancy               = "pregnancy"
	FieldNursingMothers          = "nursing_mothers"
	FieldOverdosage              = "overdosage"
	FieldNonclinicalToxicology   = "nonclinical_toxicology"
)

// List clinical fields: deduplicated string sets, first-seen order preserved
const (
	FieldContraindications = "contraindications"
	FieldWarnings          = "warnings"
	FieldPrecautions       = "precautions"
	FieldAdverseReactions  = "adverse_reactions"
)

// FieldDrugInteractions is merged by top-level key with source tagging
const FieldDrugInteractions = "drug_interactions"

// ScalarClinicalFields lists the scalar fields in their canonical order
var ScalarClinicalFields = []string{
	FieldTherapeuticClass,
	FieldIndicationsAndUsage,
	FieldMechanismOfAction,
	FieldDosageAndAdministration,
	FieldPharmacokinetics,
	FieldPharmacodynamics,
	FieldBoxedWarning,
	FieldClinicalStudies,
	FieldPediatricUse,
	FieldGeriatricUse,
	FieldPregnancy,
	FieldNursingMothers,
	FieldOverdosage,
	FieldNonclinicalToxicology,
}

// ListClinicalFields lists the list-valued fields in their canonical order
var ListClinicalFields = []string{
	FieldContraindications,
	FieldWarnings,
	FieldPrecautions,
	FieldAdverseReactions,
}

// Formulation is one marketed presentation of a generic drug, contributed by
// a single source record that carried at least one formulation attribute
type Formulation struct {
	Strength     string `json:"strength,omitempty"`
	DosageForm   string `json:"dosage_form,omitempty"`
	Route        string `json:"route,omitempty"`
	NDC          string `json:"ndc,omitempty"`
	BrandName    string `json:"brand_name,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
}

// InteractionEntry is one merged drug-interaction value with the feed it
// was taken from after precedence-based conflict resolution
type InteractionEntry struct {
	Value  interface{} `json:"value"`
	Source SourceID    `json:"source"`
}

// ConsolidatedDrugRecord is one authoritative row per generic drug, merged
// from every source record that resolved to the same canonical key.
// It is recomputed in full on every consolidation run; ConfidenceScore is a
// pure function of the record's own fields.
type ConsolidatedDrugRecord struct {
	GenericName string `json:"generic_name"`

	BrandNames    []string      `json:"brand_names,omitempty"`
	Manufacturers []string      `json:"manufacturers,omitempty"`
	Formulations  []Formulation `json:"formulations,omitempty"`

	TherapeuticClass        string `json:"therapeutic_class,omitempty"`
	IndicationsAndUsage     string `json:"indications_and_usage,omitempty"`
	MechanismOfAction       string `json:"mechanism_of_action,omitempty"`
	DosageAndAdministration string `json:"dosage_and_administration,omitempty"`
	Pharmacokinetics        string `json:"pharmacokinetics,omitempty"`
	Pharmacodynamics        string `json:"pharmacodynamics,omitempty"`
	BoxedWarning            string `json:"boxed_warning,omitempty"`
	ClinicalStudies         string `json:"clinical_studies,omitempty"`
	PediatricUse            string `json:"pediatric_use,omitempty"`
	GeriatricUse            string `json:"geriatric_use,omitempty"`
	Pregnancy               string `json:"pregnancy,omitempty"`
	NursingMothers          string `json:"nursing_mothers,omitempty"`
	Overdosage              string `json:"overdosage,omitempty"`
	NonclinicalToxicology   string `json:"nonclinical_toxicology,omitempty"`

	Contraindications []string `json:"contraindications,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
	Precautions       []string `json:"precautions,omitempty"`
	AdverseReactions  []string `json:"adverse_reactions,omitempty"`

	DrugInteractions map[string]InteractionEntry `json:"drug_interactions,omitempty"`

	ApprovalDates      []string   `json:"approval_dates,omitempty"`
	OrangeBookCodes    []string   `json:"orange_book_codes,omitempty"`
	ApplicationNumbers []string   `json:"application_numbers,omitempty"`
	DataSources        []SourceID `json:"data_sources"`

	TotalFormulations int     `json:"total_formulations"`
	ConfidenceScore   float64 `json:"confidence_score"`
	HasClinicalData   bool    `json:"has_clinical_data"`
}

// Scalar returns a pointer to the scalar clinical field with the given name,
// or nil for unknown names. Keeping field access in one table lets the merge
// policy stay data-driven instead of a switch per field.
func (r *ConsolidatedDrugRecord) Scalar(field string) *string {
	switch field {
	case FieldTherapeuticClass:
		return &r.TherapeuticClass
	case FieldIndicationsAndUsage:
		return &r.IndicationsAndUsage
	case FieldMechanismOfAction:
		return &r.MechanismOfAction
	case FieldDosageAndAdministration:
		return &r.DosageAndAdministration
	case FieldPharmacokinetics:
		return &r.Pharmacokinetics
	case FieldPharmacodynamics:
		return &r.Pharmacodynamics
	case FieldBoxedWarning:
		return &r.BoxedWarning
	case FieldClinicalStudies:
		return &r.ClinicalStudies
	case FieldPediatricUse:
		return &r.PediatricUse
	case FieldGeriatricUse:
		return &r.GeriatricUse
	case FieldPregnancy:
		return &r.Pregnancy
	case FieldNursingMothers:
		return &r.NursingMothers
	case FieldOverdosage:
		return &r.Overdosage
	case FieldNonclinicalToxicology:
		return &r.NonclinicalToxicology
	default:
		return nil
	}
}

// List returns a pointer to the list clinical field with the given name,
// or nil for unknown names
func (r *ConsolidatedDrugRecord) List(field string) *[]string {
	switch field {
	case FieldContraindications:
		return &r.Contraindications
	case FieldWarnings:
		return &r.Warnings
	case FieldPrecautions:
		return &r.Precautions
	case FieldAdverseReactions:
		return &r.AdverseReactions
	default:
		return nil
	}
}
