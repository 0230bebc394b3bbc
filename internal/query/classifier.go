package query

import (
	"regexp"
	"strings"
)

// rule is a single classification rule. Rules are evaluated in fixed
// priority order and the first match wins, so ties are impossible by
// construction.
type rule struct {
	id       string
	category Category
	pattern  *regexp.Regexp
}

// Classification rules in priority order:
// drug_interaction > symptom > chronic_care > mental_health.
// Anything unmatched falls back to general.
var classificationRules = []rule{
	{"interaction_combine", CategoryDrugInteraction,
		regexp.MustCompile(`\b(interaction|combine|mix|together)\b.*\b(medication|drug|pill|medicine)\b`)},
	{"interaction_take_with", CategoryDrugInteraction,
		regexp.MustCompile(`\bcan i take\b.*\bwith\b`)},
	{"interaction_safety", CategoryDrugInteraction,
		regexp.MustCompile(`\b(safe to|danger|risk)\b.*\b(combine|mix|take)\b`)},
	{"symptom_general", CategorySymptom,
		regexp.MustCompile(`\b(symptom|pain|ache|hurt|experiencing)\b`)},
	{"symptom_common", CategorySymptom,
		regexp.MustCompile(`\b(headache|fever|nausea|dizzy|rash|cough)\b`)},
	{"symptom_cause", CategorySymptom,
		regexp.MustCompile(`\bwhat could cause\b`)},
	{"chronic_condition", CategoryChronicCare,
		regexp.MustCompile(`\b(diabetes|hypertension|asthma|arthritis|kidney disease|copd)\b`)},
	{"chronic_management", CategoryChronicCare,
		regexp.MustCompile(`\b(manage|management|control)\b.*\b(condition|chronic|blood (pressure|sugar|glucose))\b`)},
	{"chronic_vitals", CategoryChronicCare,
		regexp.MustCompile(`\bblood (pressure|sugar|glucose)\b`)},
	{"mental_health_state", CategoryMentalHealth,
		regexp.MustCompile(`\b(anxiety|anxious|depression|depressed|stress|stressed)\b`)},
	{"mental_health_support", CategoryMentalHealth,
		regexp.MustCompile(`\b(therapy|counseling|mental health)\b`)},
	{"mental_health_sleep", CategoryMentalHealth,
		regexp.MustCompile(`\b(insomnia|can'?t sleep)\b`)},
}

// Intent hints from the NLU front end, consulted before pattern matching.
var intentCategories = map[string]Category{
	"ask_interaction": CategoryDrugInteraction,
	"symptom_check":   CategorySymptom,
	"chronic_care":    CategoryChronicCare,
	"mental_health":   CategoryMentalHealth,
}

const fallbackConfidence = 0.6

// Classify assigns a query to a routing category. It is a pure function:
// ordered rules over lowercased text, first match wins, no match means the
// general category. The NLU intent, when recognized, takes precedence over
// pattern matching.
func Classify(q Query) Classification {
	if category, ok := intentCategories[q.Intent]; ok {
		return Classification{Category: category, RuleID: "intent:" + q.Intent, Confidence: 1.0}
	}

	text := strings.ToLower(q.Text)
	for _, r := range classificationRules {
		if r.pattern.MatchString(text) {
			return Classification{Category: r.category, RuleID: r.id, Confidence: 1.0}
		}
	}

	// Two medication entities strongly suggest an interaction question even
	// when the phrasing matched no pattern.
	if len(q.Entities.Medications) >= 2 {
		return Classification{Category: CategoryDrugInteraction, RuleID: "entities:medication_pair", Confidence: 1.0}
	}

	return Classification{Category: CategoryGeneral, RuleID: "fallback", Confidence: fallbackConfidence}
}
