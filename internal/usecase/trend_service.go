package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"TrendCast/internal/domain/models"
	domrepo "TrendCast/internal/domain/repository"
	domsvc "TrendCast/internal/domain/service"
	"TrendCast/pkg/cache"
	applogger "TrendCast/pkg/logger"
	"TrendCast/pkg/metrics"
	"TrendCast/pkg/util"

	"github.com/google/uuid"
)

const minStep = time.Second

// CallMeta identifies one request across transports.
type CallMeta struct {
	RequestID string
	Source    string
}

// ForecastResult is a served forecast.
type ForecastResult struct {
	RequestID string
	Cached    bool
	Response  models.ForecastResponse
}

// GoalResult is a served goal recommendation.
type GoalResult struct {
	RequestID      string
	Cached         bool
	Recommendation models.GoalRecommendation
}

// TrendService runs engine calls for every transport and fans results out to the cache, the
// result topic and the archive. Those collaborators are optional.
type TrendService struct {
	engine          domsvc.TrendEngine
	cache           cache.Service
	cacheTTL        time.Duration
	cacheVersion    string
	publisher       domrepo.ResultPublisher
	publishHTTP     bool
	archive         domrepo.ResultArchive
	metrics         domrepo.Metrics
	log             *applogger.Logger
	rejectSoleShort bool
	newID           func() string
	now             func() time.Time
}

// Option configures TrendService.
type Option func(*TrendService)

// WithCache enables result caching. version is mixed into every key so that a change of engine
// settings never serves stale results.
func WithCache(c cache.Service, ttl time.Duration, version string) Option {
	return func(s *TrendService) {
		s.cache = c
		s.cacheTTL = ttl
		s.cacheVersion = version
	}
}

// WithPublisher publishes result events. Kafka requests are always answered on it; HTTP and
// WebSocket results only when publishHTTP is set.
func WithPublisher(p domrepo.ResultPublisher, publishHTTP bool) Option {
	return func(s *TrendService) {
		s.publisher = p
		s.publishHTTP = publishHTTP
	}
}

// WithArchive stores every served result.
func WithArchive(a domrepo.ResultArchive) Option {
	return func(s *TrendService) { s.archive = a }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m domrepo.Metrics) Option {
	return func(s *TrendService) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *applogger.Logger) Option {
	return func(s *TrendService) { s.log = l }
}

// WithRejectSoleShortGroup makes a forecast request with one category and fewer than two
// observations fail with insufficient data instead of returning an empty list.
func WithRejectSoleShortGroup(reject bool) Option {
	return func(s *TrendService) { s.rejectSoleShort = reject }
}

// WithIDGenerator overrides request id generation.
func WithIDGenerator(f func() string) Option {
	return func(s *TrendService) { s.newID = f }
}

// WithClock overrides the clock used for event and archive timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *TrendService) { s.now = now }
}

// NewTrendService creates a TrendService around engine.
func NewTrendService(engine domsvc.TrendEngine, opts ...Option) *TrendService {
	s := &TrendService{
		engine:   engine,
		cacheTTL: 5 * time.Minute,
		metrics:  metrics.Nop{},
		log:      applogger.Nop(),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Forecast validates and converts req, then forecasts every category.
func (s *TrendService) Forecast(ctx context.Context, meta CallMeta, req *models.ForecastRequest) (*ForecastResult, error) {
	start := time.Now()
	meta = s.withID(meta)

	res, err := s.forecast(ctx, meta, req)
	s.metrics.RecordLatency("forecast", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordForecast("error", len(req.Grouped))
		if perr := s.fail(ctx, meta, models.KindForecast, err); perr != nil {
			return nil, perr
		}
		return nil, err
	}
	s.metrics.RecordForecast("ok", len(res.Response.Forecasts))
	if perr := s.publish(ctx, meta, models.KindForecast, res.Response); perr != nil {
		return nil, perr
	}
	return res, nil
}

func (s *TrendService) forecast(ctx context.Context, meta CallMeta, req *models.ForecastRequest) (*ForecastResult, error) {
	opts, err := forecastOptions(req)
	if err != nil {
		return nil, err
	}
	groups, err := ToCategoryGroup(req.Grouped)
	if err != nil {
		return nil, err
	}
	if s.rejectSoleShort && len(groups) == 1 {
		for name, obs := range groups {
			if len(obs) < models.MinObservations {
				return nil, &models.InsufficientDataError{Category: name, Got: len(obs), Need: models.MinObservations}
			}
		}
	}

	key := s.cacheKey(models.KindForecast, struct {
		Groups  models.CategoryGroup
		Horizon int
		Step    time.Duration
		Unit    models.TimeUnit
	}{groups, opts.Horizon, opts.Step, s.engine.Unit()})

	var cached models.ForecastResponse
	if s.cacheGet(ctx, models.KindForecast, key, &cached) {
		return &ForecastResult{RequestID: meta.RequestID, Cached: true, Response: cached}, nil
	}

	forecasts := s.engine.Forecast(groups, opts)
	resp := models.ForecastResponse{
		Unit:      string(s.engine.Unit()),
		Forecasts: make(map[string][]models.ForecastPoint, len(forecasts)),
		Anchors:   make(map[string]models.Anchor, len(forecasts)),
	}
	cacheable := true
	for name, cf := range forecasts {
		resp.Forecasts[name] = cf.Points
		resp.Anchors[name] = cf.Anchor
		switch cf.Anchor {
		case models.AnchorNone:
			s.metrics.RecordCategorySkipped(models.CodeInsufficientData)
		case models.AnchorIndex:
			cacheable = false
		}
	}

	// Index-anchored X values follow the wall clock, so only timestamp-anchored results are cached.
	if cacheable {
		s.cacheSet(ctx, key, resp)
	}
	s.archiveForecast(ctx, meta, opts, forecasts)

	return &ForecastResult{RequestID: meta.RequestID, Response: resp}, nil
}

// RecommendGoal converts req and recommends the next goal for its record series.
func (s *TrendService) RecommendGoal(ctx context.Context, meta CallMeta, req *models.GoalRequest) (*GoalResult, error) {
	start := time.Now()
	meta = s.withID(meta)

	res, err := s.recommendGoal(ctx, meta, req)
	s.metrics.RecordLatency("goal", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordGoal("error")
		if perr := s.fail(ctx, meta, models.KindGoal, err); perr != nil {
			return nil, perr
		}
		return nil, err
	}
	s.metrics.RecordGoal("ok")
	if perr := s.publish(ctx, meta, models.KindGoal, res.Recommendation); perr != nil {
		return nil, perr
	}
	return res, nil
}

func (s *TrendService) recommendGoal(ctx context.Context, meta CallMeta, req *models.GoalRequest) (*GoalResult, error) {
	records, err := ToObservations("", req.Records)
	if err != nil {
		return nil, err
	}

	key := s.cacheKey(models.KindGoal, recordValues(records))
	var cached models.GoalRecommendation
	if s.cacheGet(ctx, models.KindGoal, key, &cached) {
		return &GoalResult{RequestID: meta.RequestID, Cached: true, Recommendation: cached}, nil
	}

	rec, err := s.engine.RecommendGoal(records)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, rec)
	s.archiveGoal(ctx, meta, records, rec)

	return &GoalResult{RequestID: meta.RequestID, Recommendation: rec}, nil
}

// ReportFailure publishes a failure for a request that never reached the engine.
func (s *TrendService) ReportFailure(ctx context.Context, meta CallMeta, kind string, err error) error {
	meta = s.withID(meta)
	s.metrics.RecordError(models.ErrorCode(err))
	return s.emit(ctx, meta, models.ResultEvent{
		ID:      meta.RequestID,
		Kind:    kind,
		Source:  meta.Source,
		Status:  models.StatusError,
		Error:   models.ErrorCode(err),
		Message: err.Error(),
		At:      s.now().UTC(),
	})
}

func forecastOptions(req *models.ForecastRequest) (models.ForecastOptions, error) {
	opts := models.ForecastOptions{Horizon: req.Horizon}
	if req.Step != "" {
		d, err := util.ParseStep(req.Step)
		if err != nil {
			return opts, &models.InvalidRequestError{Field: "step", Reason: err.Error()}
		}
		if d < minStep {
			return opts, &models.InvalidRequestError{Field: "step", Reason: fmt.Sprintf("must be at least %s", minStep)}
		}
		opts.Step = d
	}
	return opts, nil
}

func recordValues(records []models.Observation) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.Value
	}
	return out
}

func (s *TrendService) withID(meta CallMeta) CallMeta {
	if meta.RequestID == "" {
		meta.RequestID = s.newID()
	}
	if meta.Source == "" {
		meta.Source = models.SourceHTTP
	}
	return meta
}

// fail logs and counts err and publishes the error event. Like publish, it returns the delivery
// error only for Kafka requests, whose reply is the only answer the caller gets.
func (s *TrendService) fail(ctx context.Context, meta CallMeta, kind string, err error) error {
	code := models.ErrorCode(err)
	s.metrics.RecordError(code)
	if code == models.CodeInternal {
		s.log.Error("trend request failed",
			applogger.String("request_id", meta.RequestID),
			applogger.String("kind", kind),
			applogger.Error(err),
		)
	} else {
		s.log.Debug("trend request rejected",
			applogger.String("request_id", meta.RequestID),
			applogger.String("kind", kind),
			applogger.String("code", code),
			applogger.Error(err),
		)
	}
	if !s.shouldPublish(meta) {
		return nil
	}
	perr := s.emit(ctx, meta, models.ResultEvent{
		ID:      meta.RequestID,
		Kind:    kind,
		Source:  meta.Source,
		Status:  models.StatusError,
		Error:   code,
		Message: err.Error(),
		At:      s.now().UTC(),
	})
	return kafkaOnly(meta, perr)
}

// publish sends a success event. A publish failure is only returned for Kafka requests, where the
// event is the reply.
func (s *TrendService) publish(ctx context.Context, meta CallMeta, kind string, result interface{}) error {
	if !s.shouldPublish(meta) {
		return nil
	}
	err := s.emit(ctx, meta, models.ResultEvent{
		ID:     meta.RequestID,
		Kind:   kind,
		Source: meta.Source,
		Status: models.StatusOK,
		Result: result,
		At:     s.now().UTC(),
	})
	return kafkaOnly(meta, err)
}

func kafkaOnly(meta CallMeta, err error) error {
	if err != nil && meta.Source == models.SourceKafka {
		return err
	}
	return nil
}

func (s *TrendService) shouldPublish(meta CallMeta) bool {
	return s.publisher != nil && (meta.Source == models.SourceKafka || s.publishHTTP)
}

func (s *TrendService) emit(ctx context.Context, meta CallMeta, ev models.ResultEvent) error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.metrics.RecordError("publish")
		s.log.Warn("result publish failed",
			applogger.String("request_id", meta.RequestID),
			applogger.Error(err),
		)
		return fmt.Errorf("publish result: %w", err)
	}
	return nil
}

func (s *TrendService) cacheKey(kind string, input interface{}) string {
	if s.cache == nil {
		return ""
	}
	b, err := json.Marshal(input)
	if err != nil {
		return ""
	}
	return cache.GenerateKey(kind, s.cacheVersion, cache.HashKey(b))
}

func (s *TrendService) cacheGet(ctx context.Context, kind, key string, dest interface{}) bool {
	if s.cache == nil || key == "" {
		return false
	}
	err := s.cache.Get(ctx, key, dest)
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		s.metrics.RecordError("cache")
		s.log.Warn("cache get failed", applogger.String("key", key), applogger.Error(err))
	}
	s.metrics.RecordCache(kind, err == nil)
	return err == nil
}

func (s *TrendService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil || key == "" {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.metrics.RecordError("cache")
		s.log.Warn("cache set failed", applogger.String("key", key), applogger.Error(err))
	}
}

func (s *TrendService) archiveForecast(ctx context.Context, meta CallMeta, opts models.ForecastOptions, forecasts map[string]models.CategoryForecast) {
	if s.archive == nil {
		return
	}
	var records []domrepo.ForecastRecord
	for _, name := range util.SortedKeys(forecasts) {
		cf := forecasts[name]
		if cf.Model == nil {
			continue
		}
		for i, p := range cf.Points {
			records = append(records, domrepo.ForecastRecord{
				RequestID: meta.RequestID,
				Category:  name,
				Anchor:    cf.Anchor,
				Step:      i + 1,
				X:         p.X,
				Y:         p.Y,
				Slope:     cf.Model.Slope,
				Intercept: cf.Model.Intercept,
				FitScore:  cf.Model.FitScore,
			})
		}
	}
	if len(records) == 0 {
		return
	}
	if err := s.archive.SaveForecast(ctx, s.now().UTC(), records); err != nil {
		s.metrics.RecordError("archive")
		s.log.Warn("archive forecast failed", applogger.String("request_id", meta.RequestID), applogger.Error(err))
	}
}

func (s *TrendService) archiveGoal(ctx context.Context, meta CallMeta, records []models.Observation, rec models.GoalRecommendation) {
	if s.archive == nil {
		return
	}
	best := records[0].Value
	for _, r := range records[1:] {
		if r.Value > best {
			best = r.Value
		}
	}
	err := s.archive.SaveGoal(ctx, s.now().UTC(), domrepo.GoalRecord{
		RequestID:       meta.RequestID,
		Observations:    len(records),
		BestObserved:    best,
		RecommendedGoal: rec.RecommendedGoal,
		Confidence:      rec.Confidence,
	})
	if err != nil {
		s.metrics.RecordError("archive")
		s.log.Warn("archive goal failed", applogger.String("request_id", meta.RequestID), applogger.Error(err))
	}
}
