// Package classifier talks to the external tumor classification service and
// normalizes its two response shapes into a single confidence percentage.
package classifier

import (
	"math"

	"github.com/tphakala/mediscan/internal/knowledge"
)

// Output is a classifier result. It is implemented by BrainOutput and
// BreastOutput only.
type Output interface {
	Organ() knowledge.OrganType
	PredictedLabel() string
	isOutput()
}

// BrainOutput is the brain service shape: one label with its probability.
type BrainOutput struct {
	Label       string  `json:"prediction_label"`
	Probability float64 `json:"confidence"`
}

func (BrainOutput) Organ() knowledge.OrganType { return knowledge.OrganBrain }
func (o BrainOutput) PredictedLabel() string   { return o.Label }
func (BrainOutput) isOutput()                  {}

// BreastOutput is the breast service shape: a label plus a score per class.
type BreastOutput struct {
	Label  string             `json:"prediction"`
	Scores map[string]float64 `json:"confidence_scores"`
}

func (BreastOutput) Organ() knowledge.OrganType { return knowledge.OrganBreast }
func (o BreastOutput) PredictedLabel() string   { return o.Label }
func (BreastOutput) isOutput()                  {}

// IsNil reports whether out carries no result: a nil interface or a nil
// *BrainOutput or *BreastOutput.
func IsNil(out Output) bool {
	switch o := out.(type) {
	case nil:
		return true
	case *BrainOutput:
		return o == nil
	case *BreastOutput:
		return o == nil
	}
	return false
}

// NormalizeConfidence converts a classifier output to an integer percentage
// in [0,100]. Breast labels missing from the score map count as 0.
func NormalizeConfidence(out Output) int {
	if IsNil(out) {
		return 0
	}
	var p float64
	switch o := out.(type) {
	case BrainOutput:
		p = o.Probability
	case *BrainOutput:
		p = o.Probability
	case BreastOutput:
		p = o.Scores[o.Label]
	case *BreastOutput:
		p = o.Scores[o.Label]
	default:
		return 0
	}

	if math.IsNaN(p) {
		return 0
	}
	pct := math.Round(p * 100)
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return int(pct)
}
