package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	domrepo "TrendCast/internal/domain/repository"
	pkgch "TrendCast/pkg/clickhouse"
	applogger "TrendCast/pkg/logger"
)

const (
	forecastTable = "forecast_results"
	goalTable     = "goal_results"
	insertChunk   = 2000
)

// ArchiveSchema creates the archive tables.
var ArchiveSchema = []string{
	`CREATE TABLE IF NOT EXISTS forecast_results (
        at          DateTime64(3, 'UTC'),
        request_id  String,
        category    LowCardinality(String),
        anchor      LowCardinality(String),
        step        UInt16,
        x           Int64,
        y           Float64,
        slope       Float64,
        intercept   Float64,
        fit_score   Float64
    ) ENGINE = MergeTree
    PARTITION BY toYYYYMM(at)
    ORDER BY (category, at, request_id, step)
    TTL toDateTime(at) + INTERVAL 90 DAY`,
	`CREATE TABLE IF NOT EXISTS goal_results (
        at               DateTime64(3, 'UTC'),
        request_id       String,
        observations     UInt32,
        best_observed    Float64,
        recommended_goal Float64,
        confidence       Float64
    ) ENGINE = MergeTree
    PARTITION BY toYYYYMM(at)
    ORDER BY (at, request_id)
    TTL toDateTime(at) + INTERVAL 90 DAY`,
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	PingContext(ctx context.Context) error
}

// CHResultArchive implements ResultArchive backed by ClickHouse.
type CHResultArchive struct {
	db    execer
	close func() error
	l     *applogger.Logger
}

func NewCHResultArchive(ch *pkgch.Client) *CHResultArchive {
	return &CHResultArchive{db: ch.DB(), close: ch.Close}
}

// SetLogger injects a structured logger.
func (s *CHResultArchive) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHResultArchive) SaveForecast(ctx context.Context, at time.Time, records []domrepo.ForecastRecord) error {
	if len(records) == 0 {
		return nil
	}
	start := time.Now()
	for from := 0; from < len(records); from += insertChunk {
		to := from + insertChunk
		if to > len(records) {
			to = len(records)
		}
		chunk := records[from:to]

		values := make([]string, 0, len(chunk))
		args := make([]interface{}, 0, len(chunk)*10)
		for _, r := range chunk {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				at,
				r.RequestID,
				r.Category,
				string(r.Anchor),
				uint16(r.Step),
				r.X,
				r.Y,
				r.Slope,
				r.Intercept,
				r.FitScore,
			)
		}
		q := fmt.Sprintf("INSERT INTO %s (at, request_id, category, anchor, step, x, y, slope, intercept, fit_score) VALUES %s",
			forecastTable, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse save_forecast error",
					applogger.String("request_id", chunk[0].RequestID),
					applogger.Int("rows", len(chunk)),
					applogger.Error(err),
				)
			}
			return fmt.Errorf("save forecast: %w", err)
		}
	}
	if s.l != nil {
		s.l.Debug("clickhouse save_forecast ok",
			applogger.String("request_id", records[0].RequestID),
			applogger.Int("rows", len(records)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *CHResultArchive) SaveGoal(ctx context.Context, at time.Time, r domrepo.GoalRecord) error {
	q := fmt.Sprintf("INSERT INTO %s (at, request_id, observations, best_observed, recommended_goal, confidence) VALUES (?, ?, ?, ?, ?, ?)", goalTable)
	_, err := s.db.ExecContext(ctx, q,
		at,
		r.RequestID,
		uint32(r.Observations),
		r.BestObserved,
		r.RecommendedGoal,
		r.Confidence,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse save_goal error",
				applogger.String("request_id", r.RequestID),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("save goal: %w", err)
	}
	return nil
}

func (s *CHResultArchive) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHResultArchive) Close() error {
	if s.close != nil {
		return s.close()
	}
	return nil
}

var _ domrepo.ResultArchive = (*CHResultArchive)(nil)
