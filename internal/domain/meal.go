package domain

import (
	"errors"
	"time"
)

// MealSource distinguishes how a meal entered the system.
type MealSource string

// Possible meal source values
const (
	MealSourcePhoto MealSource = "photo"
	MealSourceText  MealSource = "text"
)

// Common validation errors for Meal
var (
	ErrEmptyMealOwner    = errors.New("meal owner ID cannot be empty")
	ErrInvalidMealSource = errors.New("invalid meal source")
)

// Meal is a permanent, analyzed meal entry. Pending rows are converted into
// a Meal once the analysis collaborator produces a usable result.
type Meal struct {
	ID      int64      `json:"id"`
	OwnerID int64      `json:"owner_id"`
	Source  MealSource `json:"source"`

	// CreatedAt is the logical time the meal is attributed to, which a
	// clarification may move.
	CreatedAt time.Time `json:"created_at"`

	DishName        string  `json:"dish_name"`
	IngredientsJSON string  `json:"ingredients_json"`
	ProductsJSON    string  `json:"products_json"`
	WeightG         float64 `json:"weight_g"`
	ProteinsG       float64 `json:"proteins_g"`
	FatsG           float64 `json:"fats_g"`
	CarbsG          float64 `json:"carbs_g"`
	CaloriesKcal    float64 `json:"calories_kcal"`
	Confidence      float64 `json:"confidence"`

	// SnapshotJSON is the intermediate analysis snapshot kept so a later
	// clarification can re-run cheaply without the raw payload.
	SnapshotJSON string `json:"-"`
	ClarifyNote  string `json:"clarify_note,omitempty"`

	ImageBytes []byte `json:"-"`
	ImageMime  string `json:"image_mime,omitempty"`
}

// Validate checks if the Meal has valid data.
func (m *Meal) Validate() error {
	if m.OwnerID == 0 {
		return ErrEmptyMealOwner
	}
	if m.Source != MealSourcePhoto && m.Source != MealSourceText {
		return ErrInvalidMealSource
	}
	return nil
}

// ApplyAnalysis copies the analysis output into the meal. It is used both
// when a pending row materializes and when a clarification corrects an
// existing meal in place.
func (m *Meal) ApplyAnalysis(a *MealAnalysis) {
	m.DishName = a.Dish
	m.IngredientsJSON = a.IngredientsJSON
	m.ProductsJSON = a.ProductsJSON
	m.WeightG = a.WeightG
	m.ProteinsG = a.ProteinsG
	m.FatsG = a.FatsG
	m.CarbsG = a.CarbsG
	m.CaloriesKcal = a.CaloriesKcal
	m.Confidence = a.Confidence
	m.SnapshotJSON = a.SnapshotJSON
}

// MealAnalysis is the output of the external analysis collaborator for a
// single meal. A nil *MealAnalysis signals "no usable result", which is
// distinct from an error.
type MealAnalysis struct {
	Dish            string
	IngredientsJSON string
	ProductsJSON    string
	WeightG         float64
	ProteinsG       float64
	FatsG           float64
	CarbsG          float64
	CaloriesKcal    float64
	Confidence      float64

	// SnapshotJSON captures the model's intermediate state for cheap
	// clarification re-runs.
	SnapshotJSON string
}
