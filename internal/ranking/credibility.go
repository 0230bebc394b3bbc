package ranking

import "strings"

// defaultCredibility applies to passages from sources not in the table.
const defaultCredibility = 0.5

// sourceCredibility is the per-source trust table used when a passage does
// not carry its own credibility weight.
var sourceCredibility = map[string]float64{
	"internal_kb": 0.95,
	"cdc":         0.95,
	"who":         0.9,
	"drugbank":    0.9,
	"medlineplus": 0.85,
}

// CredibilityFor returns the trust weight for a source name.
func CredibilityFor(source string) float64 {
	if weight, ok := sourceCredibility[strings.ToLower(strings.TrimSpace(source))]; ok {
		return weight
	}
	return defaultCredibility
}

// IsCredibleSource reports whether a source is on the trusted list.
func IsCredibleSource(source string) bool {
	_, ok := sourceCredibility[strings.ToLower(strings.TrimSpace(source))]
	return ok
}
