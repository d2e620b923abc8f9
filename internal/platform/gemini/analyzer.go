// Package gemini implements the analysis interfaces on top of Google's
// Gemini API via the google.golang.org/genai client.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nutrilog/nutrilog-api/internal/analysis"
	"github.com/nutrilog/nutrilog-api/internal/config"
	"github.com/nutrilog/nutrilog-api/internal/domain"
	"google.golang.org/genai"
)

const (
	analyzeSystemPrompt = `You are a nutritionist. Given a meal photo or
description, respond with a single JSON object:
{"dish": string, "ingredients": [string], "products": [{"name": string, "weight_g": number}],
"weight_g": number, "proteins_g": number, "fats_g": number, "carbs_g": number,
"calories_kcal": number, "confidence": number between 0 and 1}.
Respond with JSON only, no prose.`

	reportSystemPrompt = `You are a helpful dietologist. Give recommendations
for the given period based on the meal history. Use markdown with tables.`
)

// Analyzer implements analysis.MealAnalyzer and
// analysis.ReportContentGenerator using the Gemini API.
type Analyzer struct {
	logger *slog.Logger
	client *genai.Client
	model  string
}

// NewAnalyzer creates a new Analyzer with the provided configuration.
func NewAnalyzer(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Analyzer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", analysis.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", analysis.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", analysis.ErrInvalidConfig, err)
	}

	return &Analyzer{
		logger: logger,
		client: client,
		model:  cfg.ModelName,
	}, nil
}

// Ensure Analyzer implements both analysis interfaces
var (
	_ analysis.MealAnalyzer           = (*Analyzer)(nil)
	_ analysis.ReportContentGenerator = (*Analyzer)(nil)
)

// analysisResponse is the JSON schema the model is instructed to follow.
type analysisResponse struct {
	Dish         string   `json:"dish"`
	Ingredients  []string `json:"ingredients"`
	Products     []struct {
		Name    string  `json:"name"`
		WeightG float64 `json:"weight_g"`
	} `json:"products"`
	WeightG      float64 `json:"weight_g"`
	ProteinsG    float64 `json:"proteins_g"`
	FatsG        float64 `json:"fats_g"`
	CarbsG       float64 `json:"carbs_g"`
	CaloriesKcal float64 `json:"calories_kcal"`
	Confidence   float64 `json:"confidence"`
}

// AnalyzePhoto implements analysis.MealAnalyzer.AnalyzePhoto
func (a *Analyzer) AnalyzePhoto(ctx context.Context, image []byte, mime, note string) (*domain.MealAnalysis, error) {
	if mime == "" {
		mime = "image/jpeg"
	}

	parts := []*genai.Part{
		genai.NewPartFromText("Analyze this meal photo."),
		genai.NewPartFromBytes(image, mime),
	}
	if note != "" {
		parts = append(parts, genai.NewPartFromText("User note: "+note))
	}

	return a.generateAnalysis(ctx, parts)
}

// AnalyzeText implements analysis.MealAnalyzer.AnalyzeText
func (a *Analyzer) AnalyzeText(ctx context.Context, description string) (*domain.MealAnalysis, error) {
	parts := []*genai.Part{
		genai.NewPartFromText("Analyze this meal description: " + description),
	}
	return a.generateAnalysis(ctx, parts)
}

// ClarifyFromSnapshot implements analysis.MealAnalyzer.ClarifyFromSnapshot
func (a *Analyzer) ClarifyFromSnapshot(ctx context.Context, snapshotJSON, note string) (*domain.MealAnalysis, error) {
	parts := []*genai.Part{
		genai.NewPartFromText("Previous analysis of this meal: " + snapshotJSON),
		genai.NewPartFromText("Revise it according to this correction: " + note),
	}
	return a.generateAnalysis(ctx, parts)
}

func (a *Analyzer) generateAnalysis(ctx context.Context, parts []*genai.Part) (*domain.MealAnalysis, error) {
	resp, err := a.client.Models.GenerateContent(ctx, a.model,
		[]*genai.Content{{Role: genai.RoleUser, Parts: parts}},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(analyzeSystemPrompt, genai.RoleUser),
			ResponseMIMEType:  "application/json",
		})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrAnalysisFailed, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		// Model answered with nothing usable. Not an error: the caller
		// applies its normal retry policy.
		a.logger.Warn("empty analysis response from model")
		return nil, nil
	}

	var parsed analysisResponse
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		a.logger.Warn("unparseable analysis response from model",
			slog.String("error", err.Error()))
		return nil, nil
	}
	if parsed.Dish == "" {
		return nil, nil
	}

	ingredients, err := json.Marshal(parsed.Ingredients)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrInvalidResponse, err)
	}
	products, err := json.Marshal(parsed.Products)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrInvalidResponse, err)
	}

	return &domain.MealAnalysis{
		Dish:            parsed.Dish,
		IngredientsJSON: string(ingredients),
		ProductsJSON:    string(products),
		WeightG:         parsed.WeightG,
		ProteinsG:       parsed.ProteinsG,
		FatsG:           parsed.FatsG,
		CarbsG:          parsed.CarbsG,
		CaloriesKcal:    parsed.CaloriesKcal,
		Confidence:      parsed.Confidence,
		SnapshotJSON:    text,
	}, nil
}

// reportMeal is the per-meal line serialized into the report request.
type reportMeal struct {
	Time     string  `json:"time"`
	Dish     string  `json:"dish"`
	Calories float64 `json:"calories"`
	Proteins float64 `json:"proteins"`
	Fats     float64 `json:"fats"`
	Carbs    float64 `json:"carbs"`
}

// GenerateReport implements analysis.ReportContentGenerator.GenerateReport
func (a *Analyzer) GenerateReport(ctx context.Context, payload analysis.ReportPayload) (string, string, error) {
	history := make([]reportMeal, 0, len(payload.Meals))
	for _, m := range payload.Meals {
		history = append(history, reportMeal{
			Time:     m.CreatedAt.Format("2006-01-02 15:04"),
			Dish:     m.DishName,
			Calories: m.CaloriesKcal,
			Proteins: m.ProteinsG,
			Fats:     m.FatsG,
			Carbs:    m.CarbsG,
		})
	}

	request := map[string]any{
		"period":      payload.Period,
		"totals_kcal": payload.TotalsKcal,
		"mealHistory": history,
	}
	requestJSON, err := json.Marshal(request)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal report request: %w", err)
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model,
		[]*genai.Content{{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				genai.NewPartFromText(fmt.Sprintf(
					"Give dietologist recommendations for the %s based on this meal history.",
					periodPhrase(payload.Period))),
				genai.NewPartFromText(string(requestJSON)),
			},
		}},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(reportSystemPrompt, genai.RoleUser),
		})
	if err != nil {
		return "", string(requestJSON), fmt.Errorf("%w: %v", analysis.ErrAnalysisFailed, err)
	}

	return resp.Text(), string(requestJSON), nil
}

func periodPhrase(p domain.Period) string {
	switch p {
	case domain.PeriodDay, domain.PeriodDayRemainder:
		return "rest of the day"
	case domain.PeriodWeek:
		return "upcoming week"
	case domain.PeriodMonth:
		return "upcoming month"
	case domain.PeriodQuarter:
		return "upcoming quarter"
	default:
		return "period"
	}
}
