package safety

import "medbot-ai/internal/ranking"

// Confidence score weights. Deterministic policy defaults; the weighting is
// configurable in spirit but the breakdown structure is the contract.
const (
	retrievalWeight   = 0.5
	credibilityWeight = 0.3
	validationWeight  = 0.2
)

// Score is a confidence scalar in [0,1] with its component breakdown.
type Score struct {
	Value       float64
	Retrieval   float64
	Credibility float64
	Validation  float64
}

// ScoreConfidence combines retrieval quality, source credibility, and the
// validation pass fraction. An empty context forces the retrieval and
// credibility components to zero. The result is clamped to [0,1].
func ScoreConfidence(rc ranking.RankedContext, validation Result) Score {
	score := Score{
		Retrieval:   rc.MeanSimilarity(),
		Credibility: rc.MeanCredibility(),
		Validation:  validation.PassFraction(),
	}
	if rc.Empty() {
		score.Retrieval = 0
		score.Credibility = 0
	}

	score.Value = retrievalWeight*score.Retrieval +
		credibilityWeight*score.Credibility +
		validationWeight*score.Validation
	if score.Value < 0 {
		score.Value = 0
	}
	if score.Value > 1 {
		score.Value = 1
	}
	return score
}

// consultQualifier is forced into low-confidence answers by the gate.
const consultQualifier = "Please consult a healthcare professional to confirm this information."

// ApplyConfidenceGate marks the result as a soft failure and forces a
// consultation qualifier when confidence falls below the threshold.
func ApplyConfidenceGate(result Result, score Score, threshold float64) Result {
	if score.Value >= threshold {
		result.Layers = append(result.Layers, LayerResult{Name: "confidence_gate", Passed: true})
		return result
	}

	result.Layers = append(result.Layers, LayerResult{
		Name:   "confidence_gate",
		Passed: false,
		Detail: "confidence below threshold",
	})
	if result.Verdict == VerdictPass {
		result.Verdict = VerdictSoftFail
	}
	result.Text = result.Text + "\n\n" + consultQualifier
	return result
}
