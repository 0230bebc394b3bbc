package safety

import (
	"regexp"
	"strings"

	"medbot-ai/internal/prompt"
	"medbot-ai/internal/query"
)

// Verdict is the overall outcome of validating a generated answer.
type Verdict string

const (
	// VerdictPass means the answer is safe to return as generated.
	VerdictPass Verdict = "PASS"

	// VerdictSoftFail means the answer needed repair (disclaimer, safety
	// qualifiers) but the repaired text may be returned.
	VerdictSoftFail Verdict = "SOFT_FAIL"

	// VerdictHardFail means the answer must not be returned; the caller
	// re-routes the query.
	VerdictHardFail Verdict = "HARD_FAIL"
)

// Layer names reported in validation results.
const (
	LayerContentSafety = "content_safety"
	LayerSourceCheck   = "source_verification"
	LayerDisclaimer    = "disclaimer"
)

// LayerResult records one validation layer's outcome.
type LayerResult struct {
	Name   string
	Passed bool
	Detail string
}

// Result is the full validation outcome, carrying the possibly repaired
// answer text.
type Result struct {
	Verdict         Verdict
	Layers          []LayerResult
	Text            string
	DisclaimerAdded bool
}

// PassFraction is the fraction of layers that passed without repair, used by
// confidence scoring.
func (r Result) PassFraction() float64 {
	if len(r.Layers) == 0 {
		return 0
	}
	var passed int
	for _, layer := range r.Layers {
		if layer.Passed {
			passed++
		}
	}
	return float64(passed) / float64(len(r.Layers))
}

// criticalPatterns match advice that must never reach a user. Any match is a
// hard failure regardless of citations.
var criticalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(stop taking|discontinue|quit)\s+(your\s+)?(medication|medicine|pills?)\b`),
	regexp.MustCompile(`(?i)\b(take more|increase (your )?dose|double (your )?dose)\b`),
	regexp.MustCompile(`(?i)\b(cure|will fix|guaranteed to work)\b`),
	regexp.MustCompile(`(?i)\b(never see a doctor|don'?t need medical care)\b`),
	regexp.MustCompile(`(?i)\b(instead of seeing (a )?doctor|replace medical treatment)\b`),
}

// dosagePattern and diagnosisPattern flag claims that must be traceable to a
// cited source.
var (
	dosagePattern    = regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s?(mg|mcg|ml|g|iu|units?|tablets?)\b`)
	diagnosisPattern = regexp.MustCompile(`(?i)\b(you have|diagnosed with|you definitely have)\b`)
	markerPattern    = regexp.MustCompile(`\[S(\d+)\]`)
)

// qualifierRewrites soften risky phrasing instead of blocking it.
var qualifierRewrites = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)\byou should take\b`), "you might discuss taking"},
	{regexp.MustCompile(`(?i)\bwe recommend taking\b`), "you might discuss taking"},
	{regexp.MustCompile(`(?i)\btry taking\b`), "ask your doctor about"},
	{regexp.MustCompile(`(?i)\byou might have\b`), "your symptoms could be discussed with a doctor regarding"},
}

// disclaimerCategories lists the categories whose answers must carry a
// disclaimer.
var disclaimerCategories = map[query.Category]bool{
	query.CategorySymptom:      true,
	query.CategoryMentalHealth: true,
	query.CategoryChronicCare:  true,
}

// Validator applies the layered safety checks to generated answers.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs the safety layers in order. Layer one screens for unsafe
// advice and unsourced dosage or diagnosis claims. Layer two checks that
// every citation in the text resolves against the prompt's legend. Layer
// three appends the category disclaimer when one is required and missing.
// A hard failure short-circuits; the returned text is only meaningful for
// pass and soft-fail verdicts.
func (v *Validator) Validate(text string, p prompt.Prompt, cls query.Classification) Result {
	result := Result{Text: text}

	// Layer 1: content safety.
	if detail, unsafe := v.screenContent(text); unsafe {
		result.Layers = append(result.Layers, LayerResult{Name: LayerContentSafety, Passed: false, Detail: detail})
		result.Verdict = VerdictHardFail
		return result
	}
	repaired, rewrote := applyQualifiers(text)
	result.Text = repaired
	layer := LayerResult{Name: LayerContentSafety, Passed: !rewrote}
	if rewrote {
		layer.Detail = "safety qualifiers applied"
	}
	result.Layers = append(result.Layers, layer)

	// Layer 2: every citation must resolve.
	if unresolved := unresolvedCitations(result.Text, p); len(unresolved) > 0 {
		result.Layers = append(result.Layers, LayerResult{
			Name:   LayerSourceCheck,
			Passed: false,
			Detail: "unresolvable citations: " + strings.Join(unresolved, ", "),
		})
		result.Verdict = VerdictHardFail
		return result
	}
	result.Layers = append(result.Layers, LayerResult{Name: LayerSourceCheck, Passed: true})

	// Layer 3: disclaimer injection.
	needsDisclaimer := disclaimerCategories[cls.Category]
	if needsDisclaimer && !hasDisclaimer(result.Text) {
		result.Text = result.Text + "\n\nMedical disclaimer: " + DisclaimerFor(cls.Category)
		result.DisclaimerAdded = true
		result.Layers = append(result.Layers, LayerResult{Name: LayerDisclaimer, Passed: false, Detail: "disclaimer appended"})
	} else {
		result.Layers = append(result.Layers, LayerResult{Name: LayerDisclaimer, Passed: true})
	}

	if rewrote || result.DisclaimerAdded {
		result.Verdict = VerdictSoftFail
	} else {
		result.Verdict = VerdictPass
	}
	return result
}

// screenContent reports a hard failure when the text contains critically
// unsafe advice or a dosage/diagnosis claim with no citation in the same
// sentence.
func (v *Validator) screenContent(text string) (string, bool) {
	for _, pattern := range criticalPatterns {
		if pattern.MatchString(text) {
			return "unsafe advice: " + pattern.String(), true
		}
	}

	for _, sentence := range splitSentences(text) {
		if !dosagePattern.MatchString(sentence) && !diagnosisPattern.MatchString(sentence) {
			continue
		}
		if !markerPattern.MatchString(sentence) {
			return "unsourced dosage or diagnosis claim: " + strings.TrimSpace(sentence), true
		}
	}
	return "", false
}

func applyQualifiers(text string) (string, bool) {
	rewrote := false
	for _, rule := range qualifierRewrites {
		if rule.pattern.MatchString(text) {
			text = rule.pattern.ReplaceAllString(text, rule.replacement)
			rewrote = true
		}
	}
	return text, rewrote
}

// unresolvedCitations returns the markers in text that the prompt's legend
// does not know.
func unresolvedCitations(text string, p prompt.Prompt) []string {
	var unresolved []string
	seen := make(map[string]bool)
	for _, match := range markerPattern.FindAllStringSubmatch(text, -1) {
		marker := "S" + match[1]
		if seen[marker] {
			continue
		}
		seen[marker] = true
		if _, ok := p.Citation(marker); !ok {
			unresolved = append(unresolved, marker)
		}
	}
	return unresolved
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
}
