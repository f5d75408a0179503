// Package knowledge holds the static medical guidance records used to enrich
// classifier labels. The records are build-time fixtures and are only ever
// handed out as copies.
package knowledge

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tphakala/mediscan/internal/errors"
)

// OrganType selects the classification domain and knowledge base partition.
type OrganType string

const (
	OrganBrain  OrganType = "brain"
	OrganBreast OrganType = "breast"
)

// ErrUnknownOrgan is returned for organ types outside the enumeration.
var ErrUnknownOrgan = errors.NewStd("unknown organ type")

// Organs lists the supported organ types in display order.
func Organs() []OrganType {
	return []OrganType{OrganBrain, OrganBreast}
}

// ParseOrganType parses s case-insensitively.
func ParseOrganType(s string) (OrganType, error) {
	switch OrganType(strings.ToLower(strings.TrimSpace(s))) {
	case OrganBrain:
		return OrganBrain, nil
	case OrganBreast:
		return OrganBreast, nil
	default:
		return "", errors.New(fmt.Errorf("%w: %q", ErrUnknownOrgan, s)).
			Component("knowledge").
			Category(errors.CategoryValidation).
			Context("organ", s).
			Build()
	}
}

// Valid reports whether o is a supported organ type.
func (o OrganType) Valid() bool {
	return o == OrganBrain || o == OrganBreast
}

func (o OrganType) String() string {
	return string(o)
}

// GuidanceRecord is the guidance bundle for one disease.
type GuidanceRecord struct {
	DiseaseName string   `json:"diseaseName" yaml:"disease_name"`
	Confidence  float64  `json:"confidence" yaml:"confidence"` // fixture placeholder, percent
	Causes      []string `json:"causes" yaml:"causes"`
	Precautions []string `json:"precautions" yaml:"precautions"`
	Remedies    []string `json:"remedies" yaml:"remedies"`
	FoodHabits  []string `json:"foodHabits" yaml:"food_habits"`
	Medicines   []string `json:"medicines" yaml:"medicines"`
}

// Clone returns a deep copy of r.
func (r GuidanceRecord) Clone() GuidanceRecord {
	r.Causes = slices.Clone(r.Causes)
	r.Precautions = slices.Clone(r.Precautions)
	r.Remedies = slices.Clone(r.Remedies)
	r.FoodHabits = slices.Clone(r.FoodHabits)
	r.Medicines = slices.Clone(r.Medicines)
	return r
}

// WithoutGuidance returns a record carrying only the disease name.
func WithoutGuidance(diseaseName string) GuidanceRecord {
	return GuidanceRecord{
		DiseaseName: diseaseName,
		Causes:      []string{},
		Precautions: []string{},
		Remedies:    []string{},
		FoodHabits:  []string{},
		Medicines:   []string{},
	}
}

// Records returns copies of the organ's records in fixture order.
func Records(organ OrganType) ([]GuidanceRecord, error) {
	fixtures, err := fixturesFor(organ)
	if err != nil {
		return nil, err
	}

	out := make([]GuidanceRecord, len(fixtures))
	for i := range fixtures {
		out[i] = fixtures[i].Clone()
	}
	return out, nil
}

// First returns the organ's first record, used as the fallback template.
func First(organ OrganType) (GuidanceRecord, error) {
	fixtures, err := fixturesFor(organ)
	if err != nil {
		return GuidanceRecord{}, err
	}
	return fixtures[0].Clone(), nil
}

// Find returns the first record of organ whose disease name contains
// fragment, compared case-insensitively.
func Find(organ OrganType, fragment string) (GuidanceRecord, bool) {
	fixtures, err := fixturesFor(organ)
	if err != nil {
		return GuidanceRecord{}, false
	}

	needle := strings.ToLower(fragment)
	for i := range fixtures {
		if strings.Contains(strings.ToLower(fixtures[i].DiseaseName), needle) {
			return fixtures[i].Clone(), true
		}
	}
	return GuidanceRecord{}, false
}

// NoTumor returns the synthetic healthy-scan record.
func NoTumor() GuidanceRecord {
	return noTumorRecord.Clone()
}

func fixturesFor(organ OrganType) ([]GuidanceRecord, error) {
	switch organ {
	case OrganBrain:
		return brainRecords, nil
	case OrganBreast:
		return breastRecords, nil
	default:
		return nil, errors.New(fmt.Errorf("%w: %q", ErrUnknownOrgan, string(organ))).
			Component("knowledge").
			Category(errors.CategoryValidation).
			Context("organ", string(organ)).
			Build()
	}
}
