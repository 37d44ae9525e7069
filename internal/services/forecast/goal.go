package forecast

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"TrendCast/internal/domain/models"
	"TrendCast/internal/services/trend"
)

// RecommendGoal fits the records by arrival index, predicts the next one and never recommends less
// than the configured improvement over the best observed value.
func (e *Engine) RecommendGoal(records []models.Observation) (models.GoalRecommendation, error) {
	if len(records) < models.MinObservations {
		return models.GoalRecommendation{}, &models.InsufficientDataError{Got: len(records), Need: models.MinObservations}
	}

	values := make([]float64, len(records))
	best := math.Inf(-1)
	for i, r := range records {
		values[i] = r.Value
		best = math.Max(best, r.Value)
	}

	m, err := trend.Fit(trend.IndexPoints(values), nil)
	if errors.Is(err, models.ErrNumericDegeneracy) {
		return models.GoalRecommendation{}, outOfRange(values, err)
	}
	if err != nil {
		return models.GoalRecommendation{}, err
	}

	next := m.Predict(float64(len(values)))
	goal := math.Max(next, best*e.cfg.Improvement)
	if !trend.Finite(goal) {
		return models.GoalRecommendation{}, outOfRange(values, fmt.Errorf("%w: goal is %v", models.ErrNumericDegeneracy, goal))
	}
	return models.GoalRecommendation{
		RecommendedGoal: round(goal, goalPlaces),
		Confidence:      round(clamp01(m.FitScore), confidencePlaces),
	}, nil
}

// outOfRange blames the value of largest magnitude for a fit that overflowed, so the caller gets a
// malformed_observation instead of an internal error.
func outOfRange(values []float64, cause error) *models.MalformedObservationError {
	worst := 0
	for i, v := range values {
		if math.Abs(v) > math.Abs(values[worst]) {
			worst = i
		}
	}
	return &models.MalformedObservationError{
		Index: worst,
		Field: "value",
		Raw:   strconv.FormatFloat(values[worst], 'g', -1, 64),
		Err:   cause,
	}
}
