package service

import (
	"TrendCast/internal/domain/models"
)

// Forecaster extrapolates every category of a group independently.
type Forecaster interface {
	Forecast(groups models.CategoryGroup, opts models.ForecastOptions) map[string]models.CategoryForecast
	Unit() models.TimeUnit
}

// GoalRecommender derives the next goal from a single record series.
type GoalRecommender interface {
	RecommendGoal(records []models.Observation) (models.GoalRecommendation, error)
}

// TrendEngine serves both engine operations.
type TrendEngine interface {
	Forecaster
	GoalRecommender
}
