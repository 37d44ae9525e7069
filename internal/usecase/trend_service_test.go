package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"TrendCast/internal/domain/models"
	"TrendCast/internal/services/forecast"
	"TrendCast/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newEngine() *forecast.Engine {
	return forecast.New(forecast.WithClock(func() time.Time { return fixedNow }))
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("req-%d", n)
	}
}

func forecastRequest(t *testing.T, body string) *models.ForecastRequest {
	t.Helper()
	var req models.ForecastRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return &req
}

func goalRequest(t *testing.T, body string) *models.GoalRequest {
	t.Helper()
	var req models.GoalRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return &req
}

const timestampedBody = `{"grouped": {
	"steps": [
		{"value": 10, "timestamp": "2025-03-01"},
		{"value": 20, "timestamp": "2025-03-02"}
	],
	"short": [{"value": 3}]
}}`

func TestForecastTimestampAnchored(t *testing.T) {
	archive := &fakeArchive{}
	svc := NewTrendService(newEngine(), WithArchive(archive), WithIDGenerator(sequentialIDs()))

	res, err := svc.Forecast(context.Background(), CallMeta{}, forecastRequest(t, timestampedBody))
	require.NoError(t, err)
	assert.Equal(t, "req-1", res.RequestID)
	assert.False(t, res.Cached)

	resp := res.Response
	assert.Equal(t, "s", resp.Unit)
	assert.Equal(t, models.AnchorTimestamp, resp.Anchors["steps"])
	assert.Equal(t, models.AnchorNone, resp.Anchors["short"])
	assert.Empty(t, resp.Forecasts["short"])

	day := int64(86400)
	mar2 := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, []models.ForecastPoint{
		{X: mar2 + day, Y: 30},
		{X: mar2 + 2*day, Y: 40},
		{X: mar2 + 3*day, Y: 50},
	}, resp.Forecasts["steps"])

	require.Len(t, archive.forecasts, 3)
	assert.Equal(t, "req-1", archive.forecasts[0].RequestID)
	assert.Equal(t, "steps", archive.forecasts[0].Category)
	assert.Equal(t, 1, archive.forecasts[0].Step)
	assert.InDelta(t, 1.0, archive.forecasts[0].FitScore, 1e-9)
}

func TestForecastHorizonAndStepOverride(t *testing.T) {
	svc := NewTrendService(newEngine())
	req := forecastRequest(t, `{"grouped": {"a": [{"value": 1}, {"value": 2}]}, "horizon": 5, "step": "1w"}`)

	res, err := svc.Forecast(context.Background(), CallMeta{}, req)
	require.NoError(t, err)
	points := res.Response.Forecasts["a"]
	require.Len(t, points, 5)
	assert.Equal(t, models.AnchorIndex, res.Response.Anchors["a"])
	assert.Equal(t, fixedNow.Add(7*24*time.Hour).Unix(), points[0].X)
	assert.Equal(t, 3.0, points[0].Y)
}

func TestForecastRejectsBadStep(t *testing.T) {
	svc := NewTrendService(newEngine())
	for _, step := range []string{"soon", "500ms"} {
		req := forecastRequest(t, fmt.Sprintf(`{"grouped": {"a": [{"value": 1}, {"value": 2}]}, "step": %q}`, step))
		_, err := svc.Forecast(context.Background(), CallMeta{}, req)
		assert.ErrorIs(t, err, models.ErrInvalidRequest, step)
		assert.Equal(t, models.CodeValidationFailed, models.ErrorCode(err))
	}
}

func TestForecastMalformedObservation(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewTrendService(newEngine(), WithPublisher(pub, true), WithIDGenerator(sequentialIDs()))
	req := forecastRequest(t, `{"grouped": {"a": [{"value": 1}, {"value": "ten"}]}}`)

	_, err := svc.Forecast(context.Background(), CallMeta{}, req)
	assert.ErrorIs(t, err, models.ErrMalformedObservation)

	events := pub.published()
	require.Len(t, events, 1)
	assert.Equal(t, models.StatusError, events[0].Status)
	assert.Equal(t, models.CodeMalformedObservation, events[0].Error)
	assert.Equal(t, "req-1", events[0].ID)
}

func TestForecastSoleShortGroup(t *testing.T) {
	req := `{"grouped": {"only": [{"value": 1}]}}`

	lenient := NewTrendService(newEngine())
	res, err := lenient.Forecast(context.Background(), CallMeta{}, forecastRequest(t, req))
	require.NoError(t, err)
	assert.Empty(t, res.Response.Forecasts["only"])

	strict := NewTrendService(newEngine(), WithRejectSoleShortGroup(true))
	_, err = strict.Forecast(context.Background(), CallMeta{}, forecastRequest(t, req))
	var ide *models.InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, "only", ide.Category)

	// Several groups keep the lenient behavior even when strict.
	res, err = strict.Forecast(context.Background(), CallMeta{}, forecastRequest(t, timestampedBody))
	require.NoError(t, err)
	assert.Empty(t, res.Response.Forecasts["short"])
}

func TestForecastCachesOnlyTimestampAnchored(t *testing.T) {
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	defer mc.Close()
	archive := &fakeArchive{}
	svc := NewTrendService(newEngine(), WithCache(mc, time.Minute, "v1"), WithArchive(archive))

	first, err := svc.Forecast(context.Background(), CallMeta{}, forecastRequest(t, timestampedBody))
	require.NoError(t, err)
	second, err := svc.Forecast(context.Background(), CallMeta{}, forecastRequest(t, timestampedBody))
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Response, second.Response)
	assert.NotEqual(t, first.RequestID, second.RequestID)
	assert.Len(t, archive.forecasts, 3)

	indexed := `{"grouped": {"a": [{"value": 1}, {"value": 2}]}}`
	_, err = svc.Forecast(context.Background(), CallMeta{}, forecastRequest(t, indexed))
	require.NoError(t, err)
	again, err := svc.Forecast(context.Background(), CallMeta{}, forecastRequest(t, indexed))
	require.NoError(t, err)
	assert.False(t, again.Cached)
}

func TestForecastPublishesHTTPResultsWhenEnabled(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewTrendService(newEngine(), WithPublisher(pub, false))
	_, err := svc.Forecast(context.Background(), CallMeta{Source: models.SourceHTTP}, forecastRequest(t, timestampedBody))
	require.NoError(t, err)
	assert.Empty(t, pub.published())

	svc = NewTrendService(newEngine(), WithPublisher(pub, true))
	res, err := svc.Forecast(context.Background(), CallMeta{RequestID: "abc", Source: models.SourceHTTP}, forecastRequest(t, timestampedBody))
	require.NoError(t, err)
	events := pub.published()
	require.Len(t, events, 1)
	assert.Equal(t, "abc", events[0].ID)
	assert.Equal(t, models.KindForecast, events[0].Kind)
	assert.Equal(t, models.StatusOK, events[0].Status)
	assert.Equal(t, res.Response, events[0].Result)
}

func TestPublishFailureOnlyFailsKafkaRequests(t *testing.T) {
	pub := &fakePublisher{err: errBrokerDown}
	svc := NewTrendService(newEngine(), WithPublisher(pub, true))
	req := goalRequest(t, `{"records": [{"value": 10}, {"value": 20}]}`)

	_, err := svc.RecommendGoal(context.Background(), CallMeta{Source: models.SourceHTTP}, req)
	assert.NoError(t, err)

	_, err = svc.RecommendGoal(context.Background(), CallMeta{Source: models.SourceKafka}, req)
	assert.ErrorIs(t, err, errBrokerDown)
}

func TestErrorEventFailureOnlyFailsKafkaRequests(t *testing.T) {
	pub := &fakePublisher{err: errBrokerDown}
	svc := NewTrendService(newEngine(), WithPublisher(pub, true))
	req := goalRequest(t, `{"records": [{"value": 10}]}`)

	_, err := svc.RecommendGoal(context.Background(), CallMeta{Source: models.SourceHTTP}, req)
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	_, err = svc.RecommendGoal(context.Background(), CallMeta{Source: models.SourceKafka}, req)
	assert.ErrorIs(t, err, errBrokerDown)
	assert.False(t, models.IsReportable(err))
}

func TestRecommendGoalOverflowIsMalformed(t *testing.T) {
	svc := NewTrendService(newEngine())
	req := goalRequest(t, `{"records": [{"value": 0}, {"value": 1e308}]}`)

	_, err := svc.RecommendGoal(context.Background(), CallMeta{Source: models.SourceHTTP}, req)
	require.Error(t, err)
	assert.Equal(t, models.CodeMalformedObservation, models.ErrorCode(err))
}

func TestRecommendGoal(t *testing.T) {
	archive := &fakeArchive{}
	svc := NewTrendService(newEngine(), WithArchive(archive), WithIDGenerator(sequentialIDs()))

	res, err := svc.RecommendGoal(context.Background(), CallMeta{}, goalRequest(t, `{"records": [{"record": 10}, {"record": "20"}]}`))
	require.NoError(t, err)
	assert.Equal(t, models.GoalRecommendation{RecommendedGoal: 30, Confidence: 1}, res.Recommendation)

	require.Len(t, archive.goals, 1)
	assert.Equal(t, 2, archive.goals[0].Observations)
	assert.Equal(t, 20.0, archive.goals[0].BestObserved)
	assert.Equal(t, "req-1", archive.goals[0].RequestID)
}

func TestRecommendGoalInsufficientData(t *testing.T) {
	svc := NewTrendService(newEngine())
	for _, body := range []string{`{"records": []}`, `{}`, `{"records": [{"value": 5}]}`} {
		_, err := svc.RecommendGoal(context.Background(), CallMeta{}, goalRequest(t, body))
		assert.ErrorIs(t, err, models.ErrInsufficientData, body)
		assert.Equal(t, models.CodeInsufficientData, models.ErrorCode(err))
	}
}

func TestRecommendGoalCached(t *testing.T) {
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	defer mc.Close()
	svc := NewTrendService(newEngine(), WithCache(mc, time.Minute, "v1"))
	req := `{"records": [{"value": 1}, {"value": 3}, {"value": 2}, {"value": 5}, {"value": 4}]}`

	first, err := svc.RecommendGoal(context.Background(), CallMeta{}, goalRequest(t, req))
	require.NoError(t, err)
	second, err := svc.RecommendGoal(context.Background(), CallMeta{}, goalRequest(t, req))
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, models.GoalRecommendation{RecommendedGoal: 5.4, Confidence: 0.64}, second.Recommendation)
}

func TestArchiveFailureDoesNotFailRequest(t *testing.T) {
	svc := NewTrendService(newEngine(), WithArchive(&fakeArchive{err: errBrokerDown}))
	_, err := svc.RecommendGoal(context.Background(), CallMeta{}, goalRequest(t, `{"records": [{"value": 1}, {"value": 2}]}`))
	assert.NoError(t, err)
}
