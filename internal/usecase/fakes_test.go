package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"TrendCast/internal/domain/models"
	domrepo "TrendCast/internal/domain/repository"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []models.ResultEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, ev models.ResultEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) published() []models.ResultEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.ResultEvent(nil), p.events...)
}

type fakeArchive struct {
	mu        sync.Mutex
	forecasts []domrepo.ForecastRecord
	goals     []domrepo.GoalRecord
	err       error
}

func (a *fakeArchive) SaveForecast(_ context.Context, _ time.Time, records []domrepo.ForecastRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.forecasts = append(a.forecasts, records...)
	return nil
}

func (a *fakeArchive) SaveGoal(_ context.Context, _ time.Time, r domrepo.GoalRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.goals = append(a.goals, r)
	return nil
}

func (a *fakeArchive) Health(context.Context) error { return nil }
func (a *fakeArchive) Close() error                 { return nil }

var errBrokerDown = errors.New("broker down")
