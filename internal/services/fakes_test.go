package services

import (
	"context"
	"sync"
	"time"

	"github.com/fathima-sithara/konga-enrollment/internal/events"
	"github.com/fathima-sithara/konga-enrollment/internal/models"
	"github.com/fathima-sithara/konga-enrollment/internal/report"
)

type memTokens struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func (m *memTokens) Revoke(_ context.Context, jti string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revoked == nil {
		m.revoked = map[string]time.Time{}
	}
	m.revoked[jti] = until
	return nil
}

func (m *memTokens) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

type recordingPublisher struct {
	mu  sync.Mutex
	evs []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evs = append(p.evs, ev)
	return nil
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.evs))
	for i, ev := range p.evs {
		out[i] = ev.Type
	}
	return out
}

type recordingPusher struct {
	pushed []string
}

func (p *recordingPusher) Push(recipient string, _ *models.Notification) {
	p.pushed = append(p.pushed, recipient)
}

type fakeStats struct {
	period    models.TimelinePeriod
	dashboard *models.Dashboard
}

func (f *fakeStats) Summary(context.Context, time.Time) (*models.EnrolleeSummary, error) {
	return &models.EnrolleeSummary{}, nil
}

func (f *fakeStats) Dashboard(context.Context) (*models.Dashboard, error) {
	if f.dashboard == nil {
		return &models.Dashboard{}, nil
	}
	return f.dashboard, nil
}

func (f *fakeStats) Timeline(_ context.Context, p models.TimelinePeriod, _ time.Time) ([]models.DateCount, error) {
	f.period = p
	return []models.DateCount{}, nil
}

func (f *fakeStats) Teams(context.Context, time.Time) (*models.TeamBreakdown, error) {
	return &models.TeamBreakdown{}, nil
}

func (f *fakeStats) Packages(context.Context, time.Time) (*models.PackageReport, error) {
	return &models.PackageReport{}, nil
}

func (f *fakeStats) Leaderboard(context.Context) (*models.Leaderboard, error) {
	return &models.Leaderboard{}, nil
}

type renderCall struct {
	tmpl report.Template
	id   string
	data any
}

type fakeRenderer struct {
	calls []renderCall
}

func (r *fakeRenderer) Render(_ context.Context, t report.Template, id string, data any) (*report.Document, error) {
	r.calls = append(r.calls, renderCall{t, id, data})
	name := report.Filename(t, id)
	return &report.Document{Filename: name, URL: "/pdfs/" + name}, nil
}
