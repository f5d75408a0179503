package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/mediscan/internal/errors"
)

func TestParseOrganType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    OrganType
		wantErr bool
	}{
		{"brain", OrganBrain, false},
		{"Brain", OrganBrain, false},
		{" BREAST ", OrganBreast, false},
		{"lung", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseOrganType(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnknownOrgan))
				assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecordsFixtureOrder(t *testing.T) {
	t.Parallel()

	brain, err := Records(OrganBrain)
	require.NoError(t, err)
	require.Len(t, brain, 3)
	assert.Equal(t, "Glioma Tumor", brain[0].DiseaseName)
	assert.Equal(t, "Meningioma", brain[1].DiseaseName)
	assert.Equal(t, "Pituitary Adenoma", brain[2].DiseaseName)

	breast, err := Records(OrganBreast)
	require.NoError(t, err)
	require.Len(t, breast, 3)
	assert.Equal(t, "Invasive Ductal Carcinoma (IDC)", breast[0].DiseaseName)
	assert.Equal(t, "Fibroadenoma (Benign)", breast[1].DiseaseName)
	assert.Equal(t, "Ductal Carcinoma In Situ (DCIS)", breast[2].DiseaseName)

	for _, rec := range append(brain, breast...) {
		assert.Len(t, rec.Causes, 4, rec.DiseaseName)
		assert.Len(t, rec.Precautions, 4, rec.DiseaseName)
		assert.Len(t, rec.Remedies, 4, rec.DiseaseName)
		assert.Len(t, rec.FoodHabits, 4, rec.DiseaseName)
		assert.Len(t, rec.Medicines, 4, rec.DiseaseName)
	}
}

func TestRecordsAreCopies(t *testing.T) {
	t.Parallel()

	records, err := Records(OrganBrain)
	require.NoError(t, err)
	records[0].DiseaseName = "changed"
	records[0].Causes[0] = "changed"

	first, err := First(OrganBrain)
	require.NoError(t, err)
	assert.Equal(t, "Glioma Tumor", first.DiseaseName)
	assert.Equal(t, "Genetic mutations in glial cells", first.Causes[0])

	noTumor := NoTumor()
	noTumor.Precautions[0] = "changed"
	assert.Equal(t, "Maintain healthy lifestyle", NoTumor().Precautions[0])
}

func TestFind(t *testing.T) {
	t.Parallel()

	rec, ok := Find(OrganBreast, "benign")
	require.True(t, ok)
	assert.Equal(t, "Fibroadenoma (Benign)", rec.DiseaseName)

	_, ok = Find(OrganBrain, "carcinoma")
	assert.False(t, ok)

	_, ok = Find("lung", "x")
	assert.False(t, ok)
}

func TestNoTumor(t *testing.T) {
	t.Parallel()

	rec := NoTumor()
	assert.Equal(t, "No Tumor Detected", rec.DiseaseName)
	assert.Zero(t, rec.Confidence)
	assert.Equal(t, []string{"N/A"}, rec.Causes)
	assert.Equal(t, []string{"Maintain healthy lifestyle", "Regular checkups"}, rec.Precautions)
	assert.Equal(t, []string{"Balanced diet"}, rec.FoodHabits)
}

func TestUnknownOrganRecords(t *testing.T) {
	t.Parallel()

	_, err := Records("lung")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownOrgan))
}
