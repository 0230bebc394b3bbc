package safety

import (
	"strings"

	"medbot-ai/internal/query"
)

// disclaimers holds the per-category disclaimer texts appended to answers
// that lack one.
var disclaimers = map[query.Category]string{
	query.CategoryDrugInteraction: "Medication information is general. Follow your doctor's instructions and consult a pharmacist or physician before making any changes.",
	query.CategorySymptom:         "Symptom information is for awareness only. Consult a qualified healthcare professional for diagnosis and treatment.",
	query.CategoryChronicCare:     "Chronic condition management requires medical supervision. Consult your healthcare team before changing your care plan.",
	query.CategoryMentalHealth:    "Mental health support here is general guidance. Consult a licensed therapist, counselor, or other healthcare professional. In crisis, contact emergency services or a helpline.",
	query.CategoryEmergency:       "If you are experiencing a medical emergency, call emergency services immediately (911/999/112) or go to the nearest emergency room.",
}

const generalDisclaimer = "This information is for educational purposes only and should not replace professional medical advice. Please consult a healthcare provider for personalized guidance."

// DisclaimerFor returns the disclaimer text for a query category.
func DisclaimerFor(category query.Category) string {
	if text, ok := disclaimers[category]; ok {
		return text
	}
	return generalDisclaimer
}

// disclaimerKeywords are the signals that an answer already carries a
// professional-consultation disclaimer. Two or more count as present.
var disclaimerKeywords = []string{"consult", "healthcare", "professional", "doctor", "physician"}

func hasDisclaimer(text string) bool {
	lower := strings.ToLower(text)
	var hits int
	for _, keyword := range disclaimerKeywords {
		if strings.Contains(lower, keyword) {
			hits++
		}
	}
	return hits >= 2
}
