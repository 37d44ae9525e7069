package models

import "time"

// Observation is one measured value of a category.
// Position is the arrival index or a timestamp-derived offset, depending on the anchor chosen
// for the category it belongs to.
type Observation struct {
	Position  float64
	Value     float64
	Timestamp *time.Time
}

// CategoryGroup maps category name to its observations in chronological arrival order.
type CategoryGroup map[string][]Observation

// FittedModel is a straight line y = Slope*x + Intercept plus its weighted R².
type FittedModel struct {
	Slope     float64
	Intercept float64
	FitScore  float64
}

// Predict evaluates the fitted line at x.
func (m FittedModel) Predict(x float64) float64 {
	return m.Slope*x + m.Intercept
}

// Anchor tells how future X values of a category were derived.
type Anchor string

const (
	// AnchorTimestamp extrapolates from the last observed timestamp.
	AnchorTimestamp Anchor = "timestamp"
	// AnchorIndex extrapolates arrival indices and stamps them from the wall clock at call time.
	AnchorIndex Anchor = "index"
	// AnchorNone is reported for categories that had too few observations to fit.
	AnchorNone Anchor = "none"
)

// ForecastPoint is one predicted future value. X is expressed in the configured output unit.
type ForecastPoint struct {
	X int64   `json:"x"`
	Y float64 `json:"y"`
}

// CategoryForecast is the forecast of a single category.
type CategoryForecast struct {
	Anchor Anchor
	Points []ForecastPoint
	Model  *FittedModel
}

// GoalRecommendation is the next target derived from a single record series.
type GoalRecommendation struct {
	RecommendedGoal float64 `json:"recommendedGoal"`
	Confidence      float64 `json:"confidence"`
}
