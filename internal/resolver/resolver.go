// Package resolver maps free-text classifier labels onto knowledge base
// guidance records using ordered substring rules.
package resolver

import (
	"strings"

	"github.com/tphakala/mediscan/internal/knowledge"
)

// FallbackPolicy decides what an unmatched label resolves to.
type FallbackPolicy int

const (
	// FallbackVerbatim returns the organ's first record renamed to the raw label.
	FallbackVerbatim FallbackPolicy = iota
	// FallbackStrict returns the raw label with empty guidance.
	FallbackStrict
)

func (p FallbackPolicy) String() string {
	if p == FallbackStrict {
		return "strict"
	}
	return "verbatim"
}

// Rule matches a label fragment to a knowledge record.
type Rule struct {
	Name     string
	Keywords []string // any keyword contained in the label matches
	record   func() (knowledge.GuidanceRecord, bool)
}

func (r Rule) matches(lowerLabel string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(lowerLabel, kw) {
			return true
		}
	}
	return false
}

func findRule(organ knowledge.OrganType, name, fragment string, keywords ...string) Rule {
	return Rule{
		Name:     name,
		Keywords: keywords,
		record: func() (knowledge.GuidanceRecord, bool) {
			return knowledge.Find(organ, fragment)
		},
	}
}

// rules are evaluated in order, first match wins
var rules = map[knowledge.OrganType][]Rule{
	knowledge.OrganBrain: {
		findRule(knowledge.OrganBrain, "glioma", "Glioma", "glioma"),
		findRule(knowledge.OrganBrain, "meningioma", "Meningioma", "meningioma"),
		findRule(knowledge.OrganBrain, "pituitary", "Pituitary", "pituitary"),
		{
			Name:     "no_tumor",
			Keywords: []string{"no tumor"},
			record: func() (knowledge.GuidanceRecord, bool) {
				return knowledge.NoTumor(), true
			},
		},
	},
	knowledge.OrganBreast: {
		findRule(knowledge.OrganBreast, "benign", "Benign", "benign"),
		findRule(knowledge.OrganBreast, "malignant", "Invasive", "malignant", "cancer"),
		findRule(knowledge.OrganBreast, "in_situ", "In Situ", "in situ", "in_situ", "dcis"),
	},
}

// Resolution is the outcome of resolving one label.
type Resolution struct {
	Record  knowledge.GuidanceRecord
	Rule    string // name of the matching rule, empty when unmatched
	Matched bool
}

// Resolver applies the rule table with a fallback policy. The zero value
// uses FallbackVerbatim.
type Resolver struct {
	Fallback FallbackPolicy
}

// New returns a resolver with the given fallback policy.
func New(fallback FallbackPolicy) *Resolver {
	return &Resolver{Fallback: fallback}
}

// Rules returns the rule names for organ in evaluation order.
func Rules(organ knowledge.OrganType) []string {
	names := make([]string, 0, len(rules[organ]))
	for _, r := range rules[organ] {
		names = append(names, r.Name)
	}
	return names
}

// Resolve maps label to a guidance record. It never fails for a supported
// organ; unmatched labels go through the fallback policy and keep the raw
// label verbatim as the disease name.
func (r *Resolver) Resolve(organ knowledge.OrganType, label string) (Resolution, error) {
	first, err := knowledge.First(organ)
	if err != nil {
		return Resolution{}, err
	}

	lower := strings.ToLower(label)
	for _, rule := range rules[organ] {
		if !rule.matches(lower) {
			continue
		}
		if rec, ok := rule.record(); ok {
			return Resolution{Record: rec, Rule: rule.Name, Matched: true}, nil
		}
	}

	if r != nil && r.Fallback == FallbackStrict {
		return Resolution{Record: knowledge.WithoutGuidance(label)}, nil
	}

	first.DiseaseName = label
	return Resolution{Record: first}, nil
}
