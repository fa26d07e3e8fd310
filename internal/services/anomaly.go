package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caresignal/caresignal-backend/internal/config"
	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/repos"
	"github.com/caresignal/caresignal-backend/internal/types"
)

// AnomalyService compares bucketed observations against the newest baseline
// that predates each observation's bucket. Subjects without a sufficient
// baseline are silently skipped; that is the insufficient-data state, not an
// error.
type AnomalyService interface {
	DetectSubject(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, subject repos.SubjectKey, asOf time.Time, cfg config.Pipeline) (int, error)
}

type anomalyService struct {
	log      *logger.Logger
	obsRepo  repos.ObservationRepo
	baseRepo repos.BaselineRepo
	anomRepo repos.AnomalyRepo
}

func NewAnomalyService(baseLog *logger.Logger, obsRepo repos.ObservationRepo, baseRepo repos.BaselineRepo, anomRepo repos.AnomalyRepo) AnomalyService {
	return &anomalyService{
		log:      baseLog.With("service", "AnomalyService"),
		obsRepo:  obsRepo,
		baseRepo: baseRepo,
		anomRepo: anomRepo,
	}
}

func (s *anomalyService) DetectSubject(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, subject repos.SubjectKey, asOf time.Time, cfg config.Pipeline) (int, error) {
	window := time.Duration(cfg.BaselineWindowDays) * 24 * time.Hour
	metrics, err := s.obsRepo.ListSubjectMetrics(ctx, tx, tenantID, subject.SubjectID, asOf.Add(-window), asOf)
	if err != nil {
		return 0, fmt.Errorf("list subject metrics: %w", err)
	}

	detected := 0
	for _, metric := range metrics {
		n, err := s.detectMetric(ctx, tx, tenantID, subject, metric, asOf, cfg)
		if err != nil {
			return detected, fmt.Errorf("detect %s: %w", metric, err)
		}
		detected += n
	}
	return detected, nil
}

func (s *anomalyService) detectMetric(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, subject repos.SubjectKey, metric string, asOf time.Time, cfg config.Pipeline) (int, error) {
	spec, ok := types.LookupMetric(metric)
	if !ok {
		return 0, nil
	}
	window := time.Duration(cfg.BaselineWindowDays) * 24 * time.Hour
	obs, err := s.obsRepo.ListWindow(ctx, tx, tenantID, subject.SubjectID, metric, asOf.Add(-window), asOf)
	if err != nil {
		return 0, err
	}

	detected := 0
	for _, o := range bucketLatest(obs) {
		baseline, err := s.baseRepo.GetCurrentAsOf(ctx, tx, tenantID, subject.SubjectID, metric, cfg.BaselineWindowDays, o.BucketStart)
		if err != nil {
			return detected, err
		}
		if !baseline.Sufficient(cfg.MinSampleCount) {
			continue
		}

		z, absPct, severity := deviationSeverity(o.Value, baseline.Mean, baseline.StdDev, cfg)
		if severity == "" {
			continue
		}

		direction := types.DirectionAbove
		if o.Value < baseline.Mean {
			direction = types.DirectionBelow
		}

		row := &types.Anomaly{
			ID:               anomalyID(o.ID),
			TenantID:         tenantID,
			SubjectID:        subject.SubjectID,
			SubjectType:      subject.SubjectType,
			MetricType:       metric,
			ObservationID:    o.ID,
			BaselineID:       baseline.ID,
			ObservedValue:    o.Value,
			BaselineMean:     baseline.Mean,
			ZScore:           round6(z),
			AbsDeviationPct:  round6(absPct),
			Direction:        direction,
			Polarity:         spec.PolarityFor(direction),
			Severity:         severity,
			SourceConfidence: o.SourceConfidence,
			DetectedAt:       o.RecordedAt,
		}
		created, err := s.anomRepo.InsertIdempotent(ctx, tx, row)
		if err != nil {
			return detected, err
		}
		if created {
			detected++
			s.log.Info("Anomaly detected",
				"subject_id", subject.SubjectID,
				"metric_type", metric,
				"z_score", row.ZScore,
				"severity", row.Severity,
				"direction", row.Direction,
			)
		}
	}
	return detected, nil
}

// deviationSeverity maps a reading's deviation to a severity tier. With a
// usable stddev the z-score tiers apply; a zero-stddev baseline falls back
// to absolute deviation as a percentage of the mean.
func deviationSeverity(value, mean, stddev float64, cfg config.Pipeline) (z float64, absPct float64, severity types.AnomalySeverity) {
	if stddev > 0 {
		z = (value - mean) / stddev
		abs := math.Abs(z)
		switch {
		case abs > cfg.ZTierCritical:
			return z, 0, types.SeverityCritical
		case abs >= cfg.ZTierHigh:
			return z, 0, types.SeverityHigh
		case abs >= cfg.ZTierMedium:
			return z, 0, types.SeverityMedium
		default:
			return z, 0, ""
		}
	}

	if mean != 0 {
		absPct = math.Abs(value-mean) / math.Abs(mean) * 100
	} else if value != 0 {
		absPct = cfg.AbsTierCriticalPct
	}
	switch {
	case absPct >= cfg.AbsTierCriticalPct:
		return 0, absPct, types.SeverityCritical
	case absPct >= cfg.AbsTierHighPct:
		return 0, absPct, types.SeverityHigh
	case absPct >= cfg.AbsTierMediumPct:
		return 0, absPct, types.SeverityMedium
	default:
		return 0, absPct, ""
	}
}
