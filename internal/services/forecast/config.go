package forecast

import (
	"runtime"
	"time"

	"TrendCast/internal/domain/models"
	"TrendCast/internal/services/trend"
	applogger "TrendCast/pkg/logger"
)

// Option configures Engine.
type Option func(*Config)

// Config holds engine configuration.
type Config struct {
	HorizonSteps int
	StepDuration time.Duration
	Unit         models.TimeUnit
	Weighted     bool
	SlumpMargin  float64
	Improvement  float64
	Workers      int
	Clock        func() time.Time
	Logger       *applogger.Logger
}

func defaultConfig() *Config {
	return &Config{
		HorizonSteps: 3,
		StepDuration: 24 * time.Hour,
		Unit:         models.UnitSeconds,
		Weighted:     false,
		SlumpMargin:  trend.DefaultSlumpMargin,
		Improvement:  1.01,
		Workers:      runtime.GOMAXPROCS(0),
		Clock:        time.Now,
	}
}

// WithHorizon sets how many future points are produced per category.
func WithHorizon(steps int) Option {
	return func(c *Config) {
		if steps > 0 {
			c.HorizonSteps = steps
		}
	}
}

// WithStep sets the spacing between future points.
func WithStep(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.StepDuration = d
		}
	}
}

// WithUnit sets the unit of forecast X values.
func WithUnit(u models.TimeUnit) Option {
	return func(c *Config) {
		c.Unit = models.NormalizeTimeUnit(string(u))
	}
}

// WithSlumpWeighting toggles slump-aware weighting for forecasts.
func WithSlumpWeighting(enabled bool, margin float64) Option {
	return func(c *Config) {
		c.Weighted = enabled
		c.SlumpMargin = margin
	}
}

// WithImprovement sets the minimum goal as a multiple of the best observed value.
func WithImprovement(factor float64) Option {
	return func(c *Config) {
		if factor > 0 {
			c.Improvement = factor
		}
	}
}

// WithWorkers bounds how many categories are fitted concurrently.
func WithWorkers(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Workers = n
		}
	}
}

// WithClock replaces the wall clock used to anchor index-based categories.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		if now != nil {
			c.Clock = now
		}
	}
}

// WithLogger sets a structured logger for isolated category failures.
func WithLogger(l *applogger.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}
