package trend

import (
	"fmt"
	"math"

	"TrendCast/internal/domain/models"
)

// Point is one (x, y) sample of a series.
type Point struct {
	X float64
	Y float64
}

// Fit computes the weighted least-squares line through points.
// A nil weights slice weighs every point 1. It returns *models.InsufficientDataError when fewer
// than two points are given, when weights are not aligned with points, or when the weights do not
// add up to a positive finite total. A line whose slope or intercept overflows returns an error
// wrapping models.ErrNumericDegeneracy.
func Fit(points []Point, weights []float64) (models.FittedModel, error) {
	n := len(points)
	if n < models.MinObservations {
		return models.FittedModel{}, &models.InsufficientDataError{Got: n, Need: models.MinObservations}
	}
	if weights != nil && len(weights) != n {
		return models.FittedModel{}, &models.InsufficientDataError{
			Got:    n,
			Need:   models.MinObservations,
			Reason: fmt.Sprintf("%d weights for %d points", len(weights), n),
		}
	}

	var sw, swx, swy float64
	for i, p := range points {
		w := weightAt(weights, i)
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return models.FittedModel{}, &models.InsufficientDataError{
				Got:    n,
				Need:   models.MinObservations,
				Reason: fmt.Sprintf("invalid weight %v at %d", w, i),
			}
		}
		sw += w
		swx += w * p.X
		swy += w * p.Y
	}
	if sw <= 0 || math.IsInf(sw, 0) {
		return models.FittedModel{}, &models.InsufficientDataError{Got: n, Need: models.MinObservations, Reason: "weights sum to zero"}
	}
	meanX := swx / sw
	meanY := swy / sw
	if !Finite(meanX) || !Finite(meanY) {
		return models.FittedModel{}, fmt.Errorf("%w: weighted means overflow", models.ErrNumericDegeneracy)
	}

	// All x identical: the normal equations are singular, so the line is flat through the mean.
	if allEqualX(points) {
		m := models.FittedModel{Slope: 0, Intercept: meanY}
		m.FitScore = fitScore(points, weights, m, meanY)
		return m, nil
	}

	var sxx, sxy float64
	for i, p := range points {
		w := weightAt(weights, i)
		dx := p.X - meanX
		sxx += w * dx * dx
		sxy += w * dx * (p.Y - meanY)
	}
	if sxx == 0 {
		m := models.FittedModel{Slope: 0, Intercept: meanY}
		m.FitScore = fitScore(points, weights, m, meanY)
		return m, nil
	}

	slope := sxy / sxx
	m := models.FittedModel{Slope: slope, Intercept: meanY - slope*meanX}
	if !Finite(m.Slope) || !Finite(m.Intercept) {
		return models.FittedModel{}, fmt.Errorf("%w: slope %v intercept %v", models.ErrNumericDegeneracy, m.Slope, m.Intercept)
	}
	m.FitScore = fitScore(points, weights, m, meanY)
	return m, nil
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// IndexPoints pairs values with their 0-based arrival index.
func IndexPoints(values []float64) []Point {
	out := make([]Point, len(values))
	for i, v := range values {
		out[i] = Point{X: float64(i), Y: v}
	}
	return out
}

// fitScore is the weighted coefficient of determination. A series with no variance is a perfect
// trivial fit.
func fitScore(points []Point, weights []float64, m models.FittedModel, meanY float64) float64 {
	if allEqualY(points) {
		return 1
	}
	var ssRes, ssTot float64
	for i, p := range points {
		w := weightAt(weights, i)
		r := p.Y - m.Predict(p.X)
		d := p.Y - meanY
		ssRes += w * r * r
		ssTot += w * d * d
	}
	if ssTot == 0 {
		return 1
	}
	return 1 - ssRes/ssTot
}

func weightAt(weights []float64, i int) float64 {
	if weights == nil {
		return 1
	}
	return weights[i]
}

func allEqualX(points []Point) bool {
	for _, p := range points[1:] {
		if p.X != points[0].X {
			return false
		}
	}
	return true
}

func allEqualY(points []Point) bool {
	for _, p := range points[1:] {
		if p.Y != points[0].Y {
			return false
		}
	}
	return true
}
