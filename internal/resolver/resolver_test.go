package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/mediscan/internal/errors"
	"github.com/tphakala/mediscan/internal/knowledge"
)

func TestResolveRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		organ       knowledge.OrganType
		label       string
		wantDisease string
		wantRule    string
	}{
		{"glioma detected", knowledge.OrganBrain, "Glioma Tumor Detected", "Glioma Tumor", "glioma"},
		{"glioma lowercase", knowledge.OrganBrain, "glioma", "Glioma Tumor", "glioma"},
		{"meningioma", knowledge.OrganBrain, "MENINGIOMA", "Meningioma", "meningioma"},
		{"pituitary", knowledge.OrganBrain, "pituitary_tumor", "Pituitary Adenoma", "pituitary"},
		{"no tumor", knowledge.OrganBrain, "No Tumor", "No Tumor Detected", "no_tumor"},
		{"benign", knowledge.OrganBreast, "Benign", "Fibroadenoma (Benign)", "benign"},
		{"malignant", knowledge.OrganBreast, "Malignant", "Invasive Ductal Carcinoma (IDC)", "malignant"},
		{"cancer", knowledge.OrganBreast, "breast cancer", "Invasive Ductal Carcinoma (IDC)", "malignant"},
		{"in situ", knowledge.OrganBreast, "ductal_carcinoma_in_situ", "Ductal Carcinoma In Situ (DCIS)", "in_situ"},
		{"dcis", knowledge.OrganBreast, "DCIS", "Ductal Carcinoma In Situ (DCIS)", "in_situ"},
	}

	r := New(FallbackVerbatim)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := r.Resolve(tt.organ, tt.label)
			require.NoError(t, err)
			assert.True(t, res.Matched)
			assert.Equal(t, tt.wantRule, res.Rule)
			assert.Equal(t, tt.wantDisease, res.Record.DiseaseName)
			assert.NotEmpty(t, res.Record.Causes)
		})
	}
}

func TestResolveFirstMatchWins(t *testing.T) {
	t.Parallel()

	// both glioma and meningioma appear, glioma comes first in the table
	res, err := New(FallbackVerbatim).Resolve(knowledge.OrganBrain, "meningioma or glioma")
	require.NoError(t, err)
	assert.Equal(t, "glioma", res.Rule)

	// malignant is checked before in situ
	res, err = New(FallbackVerbatim).Resolve(knowledge.OrganBreast, "malignant carcinoma in situ")
	require.NoError(t, err)
	assert.Equal(t, "malignant", res.Rule)

	// "no tumor" alone does not match a breast rule
	res, err = New(FallbackVerbatim).Resolve(knowledge.OrganBreast, "no tumor")
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestResolveNoTumorRecord(t *testing.T) {
	t.Parallel()

	res, err := New(FallbackVerbatim).Resolve(knowledge.OrganBrain, "no tumor")
	require.NoError(t, err)
	assert.Equal(t, knowledge.NoTumor(), res.Record)
	assert.Zero(t, res.Record.Confidence)
}

func TestResolveVerbatimFallback(t *testing.T) {
	t.Parallel()

	for _, organ := range knowledge.Organs() {
		first, err := knowledge.First(organ)
		require.NoError(t, err)

		res, err := New(FallbackVerbatim).Resolve(organ, "xyz-unknown")
		require.NoError(t, err)
		assert.False(t, res.Matched)
		assert.Empty(t, res.Rule)
		assert.Equal(t, "xyz-unknown", res.Record.DiseaseName)
		assert.Equal(t, first.Causes, res.Record.Causes)
		assert.Equal(t, first.Medicines, res.Record.Medicines)
	}
}

func TestResolveZeroValueUsesVerbatim(t *testing.T) {
	t.Parallel()

	var r Resolver
	res, err := r.Resolve(knowledge.OrganBreast, "Atypical")
	require.NoError(t, err)
	assert.Equal(t, "Atypical", res.Record.DiseaseName)
	assert.NotEmpty(t, res.Record.Causes)
}

func TestResolveStrictFallback(t *testing.T) {
	t.Parallel()

	res, err := New(FallbackStrict).Resolve(knowledge.OrganBrain, "Odd Label")
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Equal(t, "Odd Label", res.Record.DiseaseName)
	assert.Empty(t, res.Record.Causes)
	assert.NotNil(t, res.Record.Causes)

	// matched labels are unaffected by the policy
	res, err = New(FallbackStrict).Resolve(knowledge.OrganBrain, "glioma")
	require.NoError(t, err)
	assert.True(t, res.Matched)
}

func TestResolveUnknownOrgan(t *testing.T) {
	t.Parallel()

	_, err := New(FallbackVerbatim).Resolve("lung", "glioma")
	require.Error(t, err)
	assert.True(t, errors.Is(err, knowledge.ErrUnknownOrgan))
}

func TestResolveDeterministic(t *testing.T) {
	t.Parallel()

	r := New(FallbackVerbatim)
	a, err := r.Resolve(knowledge.OrganBreast, "Malignant")
	require.NoError(t, err)
	b, err := r.Resolve(knowledge.OrganBreast, "Malignant")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRules(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"glioma", "meningioma", "pituitary", "no_tumor"}, Rules(knowledge.OrganBrain))
	assert.Equal(t, []string{"benign", "malignant", "in_situ"}, Rules(knowledge.OrganBreast))
	assert.Empty(t, Rules("lung"))
}
