package query

// Entities holds medical entities extracted by the upstream NLU front end.
type Entities struct {
	Medications []string `json:"medications,omitempty"`
	Conditions  []string `json:"conditions,omitempty"`
}

// Query is a single user question plus the NLU annotations that arrived
// with it. Immutable once created; the pipeline never writes back into it.
type Query struct {
	// Text is the raw question text.
	Text string `json:"text"`
	// Intent is the intent name from the NLU front end, if any.
	Intent string `json:"intent,omitempty"`
	// Entities are the extracted medical entities.
	Entities Entities `json:"entities,omitempty"`
}

// Category is the routing category a query is classified into.
type Category string

const (
	CategoryDrugInteraction Category = "drug_interaction"
	CategorySymptom         Category = "symptom"
	CategoryChronicCare     Category = "chronic_care"
	CategoryMentalHealth    Category = "mental_health"
	CategoryEmergency       Category = "emergency"
	CategoryGeneral         Category = "general"
)

// Classification is the outcome of the rule classifier.
type Classification struct {
	// Category is the assigned category.
	Category Category
	// RuleID identifies the rule that matched, or "fallback" when none did.
	RuleID string
	// Confidence of the classification step itself. Rule hits are binary
	// (1.0); the general fallback is weaker.
	Confidence float64
}
