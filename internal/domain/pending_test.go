package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPendingPhotoMeal(t *testing.T) {
	p, err := NewPendingPhotoMeal(42, []byte{0xFF, 0xD8}, "image/jpeg", "extra cheese")
	require.NoError(t, err)

	assert.Equal(t, int64(42), p.OwnerID)
	assert.Equal(t, MealSourcePhoto, p.Source)
	assert.Equal(t, JobStatusQueued, p.Status)
	assert.Zero(t, p.Attempts)
	assert.Equal(t, p.CreatedAt, p.DesiredAt)
}

func TestNewPendingPhotoMealRequiresImage(t *testing.T) {
	_, err := NewPendingPhotoMeal(42, nil, "", "")
	assert.ErrorIs(t, err, ErrEmptyPendingPayload)
}

func TestNewPendingTextMealRequiresDescription(t *testing.T) {
	_, err := NewPendingTextMeal(42, "")
	assert.ErrorIs(t, err, ErrEmptyPendingPayload)

	p, err := NewPendingTextMeal(42, "two eggs and toast")
	require.NoError(t, err)
	assert.Equal(t, MealSourceText, p.Source)
}

func TestPendingMealValidateOwner(t *testing.T) {
	_, err := NewPendingTextMeal(0, "soup")
	assert.ErrorIs(t, err, ErrEmptyPendingOwner)
}

func TestNewClarification(t *testing.T) {
	newTime := time.Date(2025, 8, 29, 13, 0, 0, 0, time.UTC)
	c, err := NewClarification(42, 7, "it was a double portion", &newTime)
	require.NoError(t, err)

	assert.Equal(t, int64(7), c.MealID)
	require.NotNil(t, c.NewTime)
	assert.Equal(t, newTime, *c.NewTime)

	_, err = NewClarification(42, 0, "note", nil)
	assert.ErrorIs(t, err, ErrEmptyClarifyMeal)

	_, err = NewClarification(42, 7, "", nil)
	assert.ErrorIs(t, err, ErrEmptyClarifyNote)
}

func TestMealApplyAnalysis(t *testing.T) {
	m := &Meal{OwnerID: 42, Source: MealSourcePhoto}
	m.ApplyAnalysis(&MealAnalysis{
		Dish:            "borscht",
		IngredientsJSON: `["beet","cabbage"]`,
		CaloriesKcal:    320,
		Confidence:      0.9,
		SnapshotJSON:    `{"step":1}`,
	})

	assert.Equal(t, "borscht", m.DishName)
	assert.Equal(t, 320.0, m.CaloriesKcal)
	assert.Equal(t, `{"step":1}`, m.SnapshotJSON)
	assert.NoError(t, m.Validate())
}

func TestExportJobValidation(t *testing.T) {
	_, err := NewReportExportJob(0, 1, ExportFormatPDF)
	assert.ErrorIs(t, err, ErrEmptyExportOwner)

	_, err = NewReportExportJob(42, 1, ExportFormat("xlsx"))
	assert.ErrorIs(t, err, ErrInvalidExportFormat)

	j, err := NewRangeExportJob(42,
		time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 8, 29, 0, 0, 0, 0, time.UTC),
		ExportFormatDOCX)
	require.NoError(t, err)
	assert.Equal(t, ExportStatusQueued, j.Status)
	assert.Nil(t, j.ReportID)

	bad := &ExportJob{OwnerID: 42, Format: ExportFormatPDF}
	assert.ErrorIs(t, bad.Validate(), ErrEmptyExportSource)
}
