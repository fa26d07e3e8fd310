package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/caresignal/caresignal-backend/internal/apierr"
	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/repos"
	"github.com/caresignal/caresignal-backend/internal/types"
)

type SubmitObservationInput struct {
	TenantID         uuid.UUID              `json:"tenant_id"`
	SubjectID        uuid.UUID              `json:"subject_id"`
	SubjectType      types.SubjectType      `json:"subject_type"`
	MetricType       string                 `json:"metric_type"`
	Value            float64                `json:"value"`
	Unit             string                 `json:"unit"`
	RecordedAt       time.Time              `json:"recorded_at"`
	Source           string                 `json:"source"`
	SourceConfidence types.SourceConfidence `json:"source_confidence"`
}

// AggregatorService normalizes raw caregiving events into validated,
// time-bucketed observations. Out-of-range values are rejected outright;
// nothing is ever clamped into plausibility.
type AggregatorService interface {
	SubmitObservation(ctx context.Context, input SubmitObservationInput) (*types.ObservationEvent, error)
}

type aggregatorService struct {
	log     *logger.Logger
	obsRepo repos.ObservationRepo
	cfg     TenantConfigResolver
}

func NewAggregatorService(baseLog *logger.Logger, obsRepo repos.ObservationRepo, cfg TenantConfigResolver) AggregatorService {
	return &aggregatorService{
		log:     baseLog.With("service", "AggregatorService"),
		obsRepo: obsRepo,
		cfg:     cfg,
	}
}

func (s *aggregatorService) SubmitObservation(ctx context.Context, input SubmitObservationInput) (*types.ObservationEvent, error) {
	if err := validateObservation(input); err != nil {
		s.log.Warn("Rejected observation",
			"tenant_id", input.TenantID,
			"subject_id", input.SubjectID,
			"metric_type", input.MetricType,
			"error", err,
		)
		return nil, err
	}

	cfg, err := s.cfg(ctx, input.TenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve tenant config: %w", err)
	}

	spec, _ := types.LookupMetric(input.MetricType)
	unit := input.Unit
	if unit == "" {
		unit = spec.Unit
	}

	recordedAt := input.RecordedAt.UTC()
	row := &types.ObservationEvent{
		ID:               uuid.New(),
		TenantID:         input.TenantID,
		SubjectID:        input.SubjectID,
		SubjectType:      input.SubjectType,
		MetricType:       input.MetricType,
		Value:            input.Value,
		Unit:             unit,
		RecordedAt:       recordedAt,
		Source:           input.Source,
		SourceConfidence: input.SourceConfidence,
		BucketStart:      BucketStart(recordedAt, cfg.BucketMinutes),
		IngestedAt:       time.Now().UTC(),
	}

	created, err := s.obsRepo.InsertIdempotent(ctx, nil, row)
	if err != nil {
		return nil, fmt.Errorf("append observation: %w", err)
	}
	if !created {
		s.log.Debug("Duplicate observation delivery collapsed",
			"subject_id", input.SubjectID,
			"metric_type", input.MetricType,
			"recorded_at", recordedAt,
		)
	}
	return row, nil
}

func validateObservation(input SubmitObservationInput) error {
	if input.TenantID == uuid.Nil {
		return fmt.Errorf("%w: tenant id is required", apierr.ErrInvalidObservation)
	}
	if input.SubjectID == uuid.Nil {
		return fmt.Errorf("%w: subject id is required", apierr.ErrInvalidObservation)
	}
	if input.SubjectType != types.SubjectResident && input.SubjectType != types.SubjectCaregiver {
		return fmt.Errorf("%w: unknown subject type %q", apierr.ErrInvalidObservation, input.SubjectType)
	}
	spec, ok := types.LookupMetric(input.MetricType)
	if !ok {
		return fmt.Errorf("%w: unknown metric type %q", apierr.ErrInvalidObservation, input.MetricType)
	}
	if input.Value < spec.PlausibleMin || input.Value > spec.PlausibleMax {
		return fmt.Errorf("%w: %s value %.2f outside plausible range [%.1f, %.1f]",
			apierr.ErrInvalidObservation, input.MetricType, input.Value, spec.PlausibleMin, spec.PlausibleMax)
	}
	if input.RecordedAt.IsZero() {
		return fmt.Errorf("%w: recorded_at is required", apierr.ErrInvalidObservation)
	}
	if input.Source == "" {
		return fmt.Errorf("%w: source is required", apierr.ErrInvalidObservation)
	}
	switch input.SourceConfidence {
	case types.SourceConfidenceHigh, types.SourceConfidenceMedium, types.SourceConfidenceLow:
	default:
		return fmt.Errorf("%w: unknown source confidence %q", apierr.ErrInvalidObservation, input.SourceConfidence)
	}
	return nil
}

// BucketStart aligns a timestamp to its fixed aggregation window.
func BucketStart(t time.Time, bucketMinutes int) time.Time {
	if bucketMinutes <= 0 {
		bucketMinutes = 60
	}
	return t.UTC().Truncate(time.Duration(bucketMinutes) * time.Minute)
}

// bucketLatest collapses a window of observations to one value per bucket,
// latest recorded_at winning within the bucket. Order of the returned slice
// follows bucket start ascending.
func bucketLatest(obs []types.ObservationEvent) []types.ObservationEvent {
	if len(obs) == 0 {
		return nil
	}
	byBucket := make(map[time.Time]types.ObservationEvent, len(obs))
	for _, o := range obs {
		cur, ok := byBucket[o.BucketStart]
		if !ok || o.RecordedAt.After(cur.RecordedAt) ||
			(o.RecordedAt.Equal(cur.RecordedAt) && o.ID.String() > cur.ID.String()) {
			byBucket[o.BucketStart] = o
		}
	}
	out := make([]types.ObservationEvent, 0, len(byBucket))
	for _, o := range byBucket {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BucketStart.Before(out[j].BucketStart) })
	return out
}
