// Package analysis provides interfaces for interacting with external AI/LLM
// services that turn meal photos and descriptions into nutrition values and
// produce diet report content. It abstracts the details of LLM API
// integration (Gemini) so workers never couple to a specific provider.
package analysis

import (
	"context"
	"errors"

	"github.com/nutrilog/nutrilog-api/internal/domain"
)

// Common errors returned by analysis implementations
var (
	// ErrAnalysisFailed is returned when a meal analysis request fails
	// for any general reason.
	ErrAnalysisFailed = errors.New("failed to analyze meal")

	// ErrInvalidResponse is returned when the LLM response cannot be
	// parsed or is malformed.
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrInvalidConfig is returned when the analyzer configuration is invalid.
	ErrInvalidConfig = errors.New("invalid analyzer configuration")
)

// MealAnalyzer is the external collaborator that extracts nutrition values.
// All methods return (nil, nil) when the model produced no usable result;
// that is distinct from an error and is retried the same way.
// Implementations must be safe to call repeatedly with the same input.
type MealAnalyzer interface {
	// AnalyzePhoto analyzes a meal photo. The optional note carries a
	// user hint attached to the photo.
	AnalyzePhoto(ctx context.Context, image []byte, mime, note string) (*domain.MealAnalysis, error)

	// AnalyzeText analyzes a free-text meal description.
	AnalyzeText(ctx context.Context, description string) (*domain.MealAnalysis, error)

	// ClarifyFromSnapshot re-runs analysis from a previously stored
	// intermediate snapshot, which is cheaper than re-analyzing the raw
	// payload.
	ClarifyFromSnapshot(ctx context.Context, snapshotJSON, note string) (*domain.MealAnalysis, error)
}

// ReportPayload is the aggregated period data handed to the report content
// generator.
type ReportPayload struct {
	Period     domain.Period  `json:"period"`
	Meals      []*domain.Meal `json:"meals"`
	TotalsKcal float64        `json:"totals_kcal"`
}

// ReportContentGenerator produces markdown report content from aggregated
// period data. Empty output is treated as "use fallback content" by the
// caller, not as failure.
type ReportContentGenerator interface {
	// GenerateReport returns the markdown content and the raw request
	// payload that produced it.
	GenerateReport(ctx context.Context, payload ReportPayload) (markdown string, requestJSON string, err error)
}
