package query

import (
	"regexp"
	"strings"
)

// Emergency trigger patterns. Policy favors false positives over false
// negatives: near-perfect recall is the target, precision may be lower.
var emergencyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(chest pain|heart attack|stroke|seizure|overdose)\b`),
	regexp.MustCompile(`\b(suicide|suicidal|kill myself)\b`),
	regexp.MustCompile(`\b(emergency|911|call an ambulance)\b`),
	regexp.MustCompile(`\b(unconscious|bleeding heavily|choking)\b`),
	regexp.MustCompile(`\b(severe allergic reaction|anaphylaxis)\b`),
	regexp.MustCompile(`\b(can'?t breathe|difficulty breathing|shortness of breath)\b`),
}

// Emergency condition entities that trip the detector regardless of what the
// surrounding text says.
var emergencyEntities = map[string]struct{}{
	"heart attack": {},
	"stroke":       {},
	"anaphylaxis":  {},
	"overdose":     {},
	"seizure":      {},
}

// EmergencyDetection is the detector's verdict for a query.
type EmergencyDetection struct {
	Detected bool
	// Trigger is the phrase or entity that tripped the detector, recorded
	// for audit.
	Trigger string
}

// DetectEmergency scans a query's text and entities for emergency triggers.
// It is a pure function: the same query always yields the same result.
// It must run before any other pipeline stage.
func DetectEmergency(q Query) EmergencyDetection {
	text := strings.ToLower(q.Text)
	for _, pattern := range emergencyPatterns {
		if match := pattern.FindString(text); match != "" {
			return EmergencyDetection{Detected: true, Trigger: match}
		}
	}
	for _, condition := range q.Entities.Conditions {
		if _, ok := emergencyEntities[strings.ToLower(condition)]; ok {
			return EmergencyDetection{Detected: true, Trigger: strings.ToLower(condition)}
		}
	}
	return EmergencyDetection{}
}
