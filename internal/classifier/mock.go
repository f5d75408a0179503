package classifier

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tphakala/mediscan/internal/knowledge"
)

// mockLabels are the labels the real service emits, each paired with the
// disease name fragment of the knowledge record whose fixture confidence the
// mock reports.
var mockLabels = map[knowledge.OrganType][]struct{ label, fragment string }{
	knowledge.OrganBrain: {
		{"glioma_tumor", "Glioma"},
		{"meningioma_tumor", "Meningioma"},
		{"pituitary_tumor", "Pituitary"},
	},
	knowledge.OrganBreast: {
		{"malignant", "Invasive"},
		{"benign", "Fibroadenoma"},
		{"ductal_carcinoma_in_situ", "In Situ"},
	},
}

// MockClassifier answers with a random service label for the organ, carrying
// the matching knowledge record's fixture confidence. Used for demos and when
// no service is configured.
type MockClassifier struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockClassifier returns a mock seeded with seed; 0 seeds from the clock.
func NewMockClassifier(seed int64) *MockClassifier {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MockClassifier{rng: rand.New(rand.NewPCG(uint64(seed), 0))} //nolint:gosec // not security sensitive
}

// Classify ignores the image content.
func (m *MockClassifier) Classify(ctx context.Context, organ knowledge.OrganType, _ Image) (Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, classificationError(err, organ, "mock_classify")
	}
	if _, err := knowledge.Records(organ); err != nil {
		return nil, classificationError(err, organ, "mock_classify")
	}

	labels := mockLabels[organ]
	m.mu.Lock()
	pick := labels[m.rng.IntN(len(labels))]
	m.mu.Unlock()

	rec, ok := knowledge.Find(organ, pick.fragment)
	if !ok {
		return nil, classificationError(fmt.Errorf("no record for mock label %q", pick.label), organ, "mock_classify")
	}
	p := rec.Confidence / 100
	if organ == knowledge.OrganBrain {
		return BrainOutput{Label: pick.label, Probability: p}, nil
	}

	// spread the remainder over the other classes
	scores := make(map[string]float64, len(labels))
	rest := (1 - p) / float64(len(labels)-1)
	for _, l := range labels {
		scores[l.label] = rest
	}
	scores[pick.label] = p
	return BreastOutput{Label: pick.label, Scores: scores}, nil
}

var _ Classifier = (*MockClassifier)(nil)
