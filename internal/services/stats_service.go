package services

import (
	"context"
	"time"

	"github.com/fathima-sithara/konga-enrollment/internal/models"
	"github.com/fathima-sithara/konga-enrollment/internal/repository"
)

type StatsService interface {
	Summary(ctx context.Context) (*models.EnrolleeSummary, error)
	Dashboard(ctx context.Context) (*models.Dashboard, error)
	Timeline(ctx context.Context, period string) ([]models.DateCount, error)
	Teams(ctx context.Context) (*models.TeamBreakdown, error)
	Packages(ctx context.Context) (*models.PackageReport, error)
	Leaderboard(ctx context.Context) (*models.Leaderboard, error)
}

type statsService struct {
	repo repository.StatsRepository
	now  func() time.Time
}

func NewStatsService(repo repository.StatsRepository) StatsService {
	return &statsService{repo: repo, now: time.Now}
}

func (s *statsService) Summary(ctx context.Context) (*models.EnrolleeSummary, error) {
	return s.repo.Summary(ctx, s.now())
}

func (s *statsService) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	return s.repo.Dashboard(ctx)
}

// Timeline accepts any period; unknown values fall back to the 30-day window.
func (s *statsService) Timeline(ctx context.Context, period string) ([]models.DateCount, error) {
	return s.repo.Timeline(ctx, models.TimelinePeriod(period), s.now())
}

func (s *statsService) Teams(ctx context.Context) (*models.TeamBreakdown, error) {
	return s.repo.Teams(ctx, s.now())
}

func (s *statsService) Packages(ctx context.Context) (*models.PackageReport, error) {
	return s.repo.Packages(ctx, s.now())
}

func (s *statsService) Leaderboard(ctx context.Context) (*models.Leaderboard, error) {
	return s.repo.Leaderboard(ctx)
}
