package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caresignal/caresignal-backend/internal/apierr"
	"github.com/caresignal/caresignal-backend/internal/config"
	"github.com/caresignal/caresignal-backend/internal/types"
)

func TestTrendDirectionDeadband(t *testing.T) {
	const minSamples = 5

	cases := []struct {
		name        string
		current     float64
		prior       float64
		priorCount  int
		deadbandPct float64
		want        types.TrendDirection
	}{
		{"within deadband", 73, 72, 7, 5, types.TrendStable},
		{"exactly at deadband edge", 75.6, 72, 7, 5, types.TrendStable},
		{"rising past deadband", 80, 72, 7, 5, types.TrendIncreasing},
		{"falling past deadband", 60, 72, 7, 5, types.TrendDecreasing},
		{"insufficient prior window", 200, 72, 2, 5, types.TrendStable},
		{"zero prior mean rising", 10, 0, 7, 5, types.TrendIncreasing},
		{"zero prior and current", 0, 0, 7, 5, types.TrendStable},
	}
	for _, tc := range cases {
		got := trendDirection(tc.current, tc.prior, tc.priorCount, minSamples, tc.deadbandPct)
		if got != tc.want {
			t.Fatalf("%s: want=%q got=%q", tc.name, tc.want, got)
		}
	}
}

func TestBaselineSufficient(t *testing.T) {
	b := &types.Baseline{SampleCount: 4}
	if b.Sufficient(5) {
		t.Fatalf("four samples against a floor of five should be insufficient")
	}
	b.SampleCount = 5
	if !b.Sufficient(5) {
		t.Fatalf("five samples against a floor of five should be sufficient")
	}
	var nilBaseline *types.Baseline
	if nilBaseline.Sufficient(5) {
		t.Fatalf("missing baseline should be insufficient")
	}
}

type stubBaselineRepo struct {
	current *types.Baseline
}

func (s *stubBaselineRepo) InsertVersion(ctx context.Context, tx *gorm.DB, row *types.Baseline) (bool, error) {
	return true, nil
}

func (s *stubBaselineRepo) GetCurrent(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, metricType string, periodDays int) (*types.Baseline, error) {
	return s.current, nil
}

func (s *stubBaselineRepo) GetCurrentAsOf(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, metricType string, periodDays int, asOf time.Time) (*types.Baseline, error) {
	return s.current, nil
}

func (s *stubBaselineRepo) History(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, metricType string, periodDays int, limit int) ([]types.Baseline, error) {
	return nil, nil
}

func TestCurrentBaselineInsufficientData(t *testing.T) {
	cfg := config.Default()
	repo := &stubBaselineRepo{}
	svc := NewBaselineService(newTestLogger(t), nil, repo)
	ctx := context.Background()
	tenantID, subjectID := uuid.New(), uuid.New()

	if _, err := svc.Current(ctx, tenantID, subjectID, types.MetricHeartRate, cfg); !errors.Is(err, apierr.ErrInsufficientData) {
		t.Fatalf("no baseline recorded: want ErrInsufficientData got %v", err)
	}

	repo.current = &types.Baseline{ID: uuid.New(), SampleCount: cfg.MinSampleCount - 1, Trend: types.TrendStable}
	if _, err := svc.Current(ctx, tenantID, subjectID, types.MetricHeartRate, cfg); !errors.Is(err, apierr.ErrInsufficientData) {
		t.Fatalf("under-sampled baseline: want ErrInsufficientData got %v", err)
	}

	if _, err := svc.Current(ctx, tenantID, subjectID, "pulse_rate", cfg); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("unknown metric: want ErrNotFound got %v", err)
	}

	repo.current = &types.Baseline{ID: uuid.New(), SampleCount: 7, Mean: 72, StdDev: 4, Trend: types.TrendStable}
	got, err := svc.Current(ctx, tenantID, subjectID, types.MetricHeartRate, cfg)
	if err != nil {
		t.Fatalf("sufficient baseline: %v", err)
	}
	if got.Mean != 72 || got.SampleCount != 7 {
		t.Fatalf("baseline row: want mean=72 samples=7 got mean=%f samples=%d", got.Mean, got.SampleCount)
	}
}
