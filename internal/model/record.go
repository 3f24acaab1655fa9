package model

// SourceID identifies the regulatory/clinical feed a record was extracted from
type SourceID string

const (
	SourceNDC         SourceID = "NDC"          // Retail packaging codes
	SourceOrangeBook  SourceID = "ORANGE_BOOK"  // Therapeutic-equivalence ratings
	SourceDrugsAtFDA  SourceID = "DRUGS_AT_FDA" // Application filings
	SourceLabels      SourceID = "LABELS"       // Prescriber labeling text
	SourceDrugCentral SourceID = "DRUGCENTRAL"  // Drug-interaction tables
	SourceRxClass     SourceID = "RXCLASS"      // Therapeutic-class taxonomies
	SourceDDInter     SourceID = "DDINTER"      // Drug-drug interaction pairs
)

// AllSources lists every known feed in default precedence order (highest first).
// Precedence is used only to break collisions when merging structured fields;
// it is configuration data, not embedded logic (see Config.Merge).
var AllSources = []SourceID{
	SourceLabels,
	SourceDrugsAtFDA,
	SourceOrangeBook,
	SourceNDC,
	SourceDrugCentral,
	SourceRxClass,
	SourceDDInter,
}

// Valid reports whether the source ID names a known feed
func (s SourceID) Valid() bool {
	for _, known := range AllSources {
		if s == known {
			return true
		}
	}
	return false
}

// SourceDrugRecord is one formulation-level observation from one feed.
// Records are produced by per-feed adapters, are immutable, and are consumed
// once by the consolidation engine.
type SourceDrugRecord struct {
	RawName string   `json:"raw_name"` // As supplied by the source; must be non-empty
	Source  SourceID `json:"source_id"`

	BrandName    string `json:"brand_name,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Strength     string `json:"strength,omitempty"`
	DosageForm   string `json:"dosage_form,omitempty"`
	Route        string `json:"route,omitempty"`

	NDC               string `json:"ndc,omitempty"`
	ApplicationNumber string `json:"application_number,omitempty"`
	ProductNumber     string `json:"product_number,omitempty"`
	ApprovalDate      string `json:"approval_date,omitempty"`
	OrangeBookCode    string `json:"orange_book_code,omitempty"`

	// ClinicalFields maps field names (e.g. "contraindications",
	// "indications_and_usage", "drug_interactions") to a string, a list of
	// strings, or a JSON object, depending on what the feed supplies.
	ClinicalFields map[string]interface{} `json:"clinical_fields,omitempty"`
}

// HasFormulationData reports whether the record carries at least one
// formulation attribute and therefore contributes a formulation entry
func (r *SourceDrugRecord) HasFormulationData() bool {
	return r.Strength != "" || r.DosageForm != "" || r.Route != "" ||
		r.NDC != "" || r.BrandName != "" || r.Manufacturer != ""
}

// ClinicalString returns the named clinical field as a single string.
// List values are joined with newlines; missing or non-string values
// yield the empty string.
func (r *SourceDrugRecord) ClinicalString(field string) string {
	v, ok := r.ClinicalFields[field]
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return joinNonEmpty(val)
	case []interface{}:
		return joinNonEmpty(stringSlice(val))
	default:
		return ""
	}
}

// ClinicalList returns the named clinical field as a list of strings.
// A bare string becomes a single-element list; empty elements are dropped.
func (r *SourceDrugRecord) ClinicalList(field string) []string {
	v, ok := r.ClinicalFields[field]
	if !ok {
		return nil
	}
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []string:
		return dropEmpty(val)
	case []interface{}:
		return dropEmpty(stringSlice(val))
	default:
		return nil
	}
}

// ClinicalObject returns the named clinical field as a JSON object,
// or nil when absent or not an object
func (r *SourceDrugRecord) ClinicalObject(field string) map[string]interface{} {
	v, ok := r.ClinicalFields[field]
	if !ok {
		return nil
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	return obj
}

func stringSlice(vals []interface{}) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func dropEmpty(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func joinNonEmpty(vals []string) string {
	joined := ""
	for _, v := range vals {
		if v == "" {
			continue
		}
		if joined != "" {
			joined += "\n"
		}
		joined += v
	}
	return joined
}
