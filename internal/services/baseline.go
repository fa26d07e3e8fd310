package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caresignal/caresignal-backend/internal/apierr"
	"github.com/caresignal/caresignal-backend/internal/config"
	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/repos"
	"github.com/caresignal/caresignal-backend/internal/types"
)

// BaselineService maintains rolling per (subject, metric) statistical
// baselines. Each recompute writes versioned rows; two per metric and pass:
// a reference baseline ending at the newest bucket (excluding it, so fresh
// readings are judged against history) and a current baseline ending at the
// pass snapshot.
type BaselineService interface {
	RecomputeSubject(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, subject repos.SubjectKey, asOf time.Time, cfg config.Pipeline) (int, error)
	Current(ctx context.Context, tenantID, subjectID uuid.UUID, metricType string, cfg config.Pipeline) (*types.Baseline, error)
}

type baselineService struct {
	log      *logger.Logger
	obsRepo  repos.ObservationRepo
	baseRepo repos.BaselineRepo
}

func NewBaselineService(baseLog *logger.Logger, obsRepo repos.ObservationRepo, baseRepo repos.BaselineRepo) BaselineService {
	return &baselineService{
		log:      baseLog.With("service", "BaselineService"),
		obsRepo:  obsRepo,
		baseRepo: baseRepo,
	}
}

// Current returns the newest baseline usable as an anomaly reference. A
// missing or under-sampled baseline is the insufficient-data state, reported
// as such rather than as an empty result.
func (s *baselineService) Current(ctx context.Context, tenantID, subjectID uuid.UUID, metricType string, cfg config.Pipeline) (*types.Baseline, error) {
	if _, ok := types.LookupMetric(metricType); !ok {
		return nil, fmt.Errorf("%w: unknown metric type %q", apierr.ErrNotFound, metricType)
	}
	row, err := s.baseRepo.GetCurrent(ctx, nil, tenantID, subjectID, metricType, cfg.BaselineWindowDays)
	if err != nil {
		return nil, fmt.Errorf("load baseline: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("%w: no %s baseline recorded yet", apierr.ErrInsufficientData, metricType)
	}
	if !row.Sufficient(cfg.MinSampleCount) {
		return nil, fmt.Errorf("%w: %d of %d required %s samples", apierr.ErrInsufficientData, row.SampleCount, cfg.MinSampleCount, metricType)
	}
	return row, nil
}

func (s *baselineService) RecomputeSubject(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, subject repos.SubjectKey, asOf time.Time, cfg config.Pipeline) (int, error) {
	window := time.Duration(cfg.BaselineWindowDays) * 24 * time.Hour
	metrics, err := s.obsRepo.ListSubjectMetrics(ctx, tx, tenantID, subject.SubjectID, asOf.Add(-window), asOf)
	if err != nil {
		return 0, fmt.Errorf("list subject metrics: %w", err)
	}

	updated := 0
	for _, metric := range metrics {
		n, err := s.recomputeMetric(ctx, tx, tenantID, subject, metric, asOf, cfg)
		if err != nil {
			return updated, fmt.Errorf("recompute %s: %w", metric, err)
		}
		updated += n
	}
	return updated, nil
}

func (s *baselineService) recomputeMetric(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, subject repos.SubjectKey, metric string, asOf time.Time, cfg config.Pipeline) (int, error) {
	window := time.Duration(cfg.BaselineWindowDays) * 24 * time.Hour

	obs, err := s.obsRepo.ListWindow(ctx, tx, tenantID, subject.SubjectID, metric, asOf.Add(-window), asOf)
	if err != nil {
		return 0, err
	}
	if len(obs) == 0 {
		return 0, nil
	}

	updated := 0
	buckets := bucketLatest(obs)

	// Reference baseline: ends at the newest observed bucket so that bucket's
	// reading is compared against pure history.
	newestBucket := buckets[len(buckets)-1].BucketStart
	if newestBucket.After(asOf.Add(-window)) {
		n, err := s.writeWindow(ctx, tx, tenantID, subject, metric, newestBucket, asOf, cfg)
		if err != nil {
			return updated, err
		}
		updated += n
	}

	// Current baseline at the pass snapshot, covering everything seen so far.
	if !newestBucket.Equal(asOf) {
		n, err := s.writeWindow(ctx, tx, tenantID, subject, metric, asOf, asOf, cfg)
		if err != nil {
			return updated, err
		}
		updated += n
	}
	return updated, nil
}

// writeWindow computes the baseline over [windowEnd - period, windowEnd) and
// inserts it as a new version (no-op if that window version already exists).
func (s *baselineService) writeWindow(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, subject repos.SubjectKey, metric string, windowEnd, computedAt time.Time, cfg config.Pipeline) (int, error) {
	window := time.Duration(cfg.BaselineWindowDays) * 24 * time.Hour
	windowStart := windowEnd.Add(-window)

	obs, err := s.obsRepo.ListWindow(ctx, tx, tenantID, subject.SubjectID, metric, windowStart, windowEnd)
	if err != nil {
		return 0, err
	}
	buckets := bucketLatest(obs)
	if len(buckets) == 0 {
		return 0, nil
	}

	var acc welford
	for _, b := range buckets {
		acc.Add(b.Value)
	}

	trend := types.TrendInsufficientData
	if acc.Count() >= cfg.MinSampleCount {
		priorMean, priorCount, err := s.windowMean(ctx, tx, tenantID, subject.SubjectID, metric, windowStart.Add(-window), windowStart)
		if err != nil {
			return 0, err
		}
		trend = trendDirection(acc.Mean(), priorMean, priorCount, cfg.MinSampleCount, cfg.TrendDeadbandPct)
	}

	row := &types.Baseline{
		ID:          baselineID(tenantID, subject.SubjectID, metric, cfg.BaselineWindowDays, windowEnd),
		TenantID:    tenantID,
		SubjectID:   subject.SubjectID,
		SubjectType: subject.SubjectType,
		MetricType:  metric,
		PeriodDays:  cfg.BaselineWindowDays,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Mean:        round6(acc.Mean()),
		StdDev:      round6(acc.StdDev()),
		MinValue:    acc.Min(),
		MaxValue:    acc.Max(),
		SampleCount: acc.Count(),
		Trend:       trend,
		ComputedAt:  computedAt,
	}
	created, err := s.baseRepo.InsertVersion(ctx, tx, row)
	if err != nil {
		return 0, err
	}
	if created {
		return 1, nil
	}
	return 0, nil
}

func (s *baselineService) windowMean(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, metric string, from, to time.Time) (float64, int, error) {
	obs, err := s.obsRepo.ListWindow(ctx, tx, tenantID, subjectID, metric, from, to)
	if err != nil {
		return 0, 0, err
	}
	buckets := bucketLatest(obs)
	if len(buckets) == 0 {
		return 0, 0, nil
	}
	var acc welford
	for _, b := range buckets {
		acc.Add(b.Value)
	}
	return acc.Mean(), acc.Count(), nil
}

// trendDirection compares the current window mean to the prior window's,
// with a deadband so noise does not flap the direction. Without a usable
// prior window the direction stays STABLE rather than guessing.
func trendDirection(currentMean, priorMean float64, priorCount, minSamples int, deadbandPct float64) types.TrendDirection {
	if priorCount < minSamples {
		return types.TrendStable
	}
	if priorMean == 0 {
		if currentMean == 0 {
			return types.TrendStable
		}
		if currentMean > 0 {
			return types.TrendIncreasing
		}
		return types.TrendDecreasing
	}
	changePct := (currentMean - priorMean) / math.Abs(priorMean) * 100
	if math.Abs(changePct) <= deadbandPct {
		return types.TrendStable
	}
	if changePct > 0 {
		return types.TrendIncreasing
	}
	return types.TrendDecreasing
}
