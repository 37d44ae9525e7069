package forecast

import (
	"fmt"
	"sync"
	"time"

	"TrendCast/internal/domain/models"
	domsvc "TrendCast/internal/domain/service"
	"TrendCast/internal/services/trend"
	applogger "TrendCast/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Engine fits per-category trends and extrapolates them. It holds configuration only; every call
// works on caller-owned data and keeps no state between calls.
type Engine struct {
	cfg *Config
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Engine{cfg: cfg}
}

// Unit returns the unit of forecast X values.
func (e *Engine) Unit() models.TimeUnit { return e.cfg.Unit }

// Forecast extrapolates every category of groups. Categories with fewer than two observations,
// or whose fit fails, come back with an empty point list.
func (e *Engine) Forecast(groups models.CategoryGroup, opts models.ForecastOptions) map[string]models.CategoryForecast {
	horizon := e.cfg.HorizonSteps
	if opts.Horizon > 0 {
		horizon = opts.Horizon
	}
	step := e.cfg.StepDuration
	if opts.Step > 0 {
		step = opts.Step
	}
	now := e.cfg.Clock()

	out := make(map[string]models.CategoryForecast, len(groups))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)
	for name, obs := range groups {
		g.Go(func() error {
			cf := e.safeForecastCategory(name, obs, horizon, step, now)
			mu.Lock()
			out[name] = cf
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (e *Engine) safeForecastCategory(name string, obs []models.Observation, horizon int, step time.Duration, now time.Time) (cf models.CategoryForecast) {
	defer func() {
		if r := recover(); r != nil {
			if e.cfg.Logger != nil {
				e.cfg.Logger.Error("forecast category panic",
					applogger.String("category", name),
					applogger.Error(fmt.Errorf("%v", r)),
				)
			}
			cf = emptyForecast()
		}
	}()
	return e.forecastCategory(name, obs, horizon, step, now)
}

func (e *Engine) forecastCategory(name string, obs []models.Observation, horizon int, step time.Duration, now time.Time) models.CategoryForecast {
	if len(obs) < models.MinObservations {
		return emptyForecast()
	}

	positioned, anchor := resolvePositions(obs)
	points := make([]trend.Point, len(positioned))
	for i, o := range positioned {
		points[i] = trend.Point{X: o.Position, Y: o.Value}
	}

	var weights []float64
	if e.cfg.Weighted {
		weights = trend.SlumpWeights(trend.Values(points), e.cfg.SlumpMargin)
	}
	m, err := trend.Fit(points, weights)
	if err != nil {
		e.skipped(name, err)
		return emptyForecast()
	}

	last := positioned[len(positioned)-1]
	out := make([]models.ForecastPoint, 0, horizon)
	for k := 1; k <= horizon; k++ {
		var pos float64
		var at time.Time
		switch anchor {
		case models.AnchorTimestamp:
			pos = last.Position + float64(k)*step.Seconds()
			at = last.Timestamp.Add(time.Duration(k) * step)
		default:
			pos = last.Position + float64(k)
			at = now.Add(time.Duration(k) * step)
		}
		y := m.Predict(pos)
		if !trend.Finite(y) {
			e.skipped(name, fmt.Errorf("%w: prediction at step %d is %v", models.ErrNumericDegeneracy, k, y))
			return emptyForecast()
		}
		out = append(out, models.ForecastPoint{
			X: e.cfg.Unit.Stamp(at),
			Y: round(nonNegative(y), valuePlaces),
		})
	}
	return models.CategoryForecast{Anchor: anchor, Points: out, Model: &m}
}

func (e *Engine) skipped(name string, err error) {
	if e.cfg.Logger == nil {
		return
	}
	e.cfg.Logger.Debug("forecast category skipped",
		applogger.String("category", name),
		applogger.Error(err),
	)
}

// resolvePositions returns copies of obs with Position set. Timestamps are used when every
// observation carries one and they never go backwards; position is then seconds since the first
// timestamp. Otherwise position is the 0-based arrival index.
func resolvePositions(obs []models.Observation) ([]models.Observation, models.Anchor) {
	out := make([]models.Observation, len(obs))
	copy(out, obs)

	if timestamped(obs) {
		base := *obs[0].Timestamp
		for i := range out {
			out[i].Position = out[i].Timestamp.Sub(base).Seconds()
		}
		return out, models.AnchorTimestamp
	}
	for i := range out {
		out[i].Position = float64(i)
	}
	return out, models.AnchorIndex
}

func timestamped(obs []models.Observation) bool {
	for i, o := range obs {
		if o.Timestamp == nil {
			return false
		}
		if i > 0 && o.Timestamp.Before(*obs[i-1].Timestamp) {
			return false
		}
	}
	return true
}

func emptyForecast() models.CategoryForecast {
	return models.CategoryForecast{Anchor: models.AnchorNone, Points: []models.ForecastPoint{}}
}

var _ domsvc.TrendEngine = (*Engine)(nil)
