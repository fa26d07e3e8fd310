package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/caresignal/caresignal-backend/internal/apierr"
	"github.com/caresignal/caresignal-backend/internal/types"
)

func validInput() SubmitObservationInput {
	return SubmitObservationInput{
		TenantID:         uuid.New(),
		SubjectID:        uuid.New(),
		SubjectType:      types.SubjectResident,
		MetricType:       types.MetricHeartRate,
		Value:            72,
		RecordedAt:       time.Date(2026, 8, 30, 10, 15, 0, 0, time.UTC),
		Source:           "wearable",
		SourceConfidence: types.SourceConfidenceHigh,
	}
}

func TestValidateObservationAccepts(t *testing.T) {
	if err := validateObservation(validInput()); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
}

func TestValidateObservationRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*SubmitObservationInput)
	}{
		{"missing tenant", func(in *SubmitObservationInput) { in.TenantID = uuid.Nil }},
		{"missing subject", func(in *SubmitObservationInput) { in.SubjectID = uuid.Nil }},
		{"unknown subject type", func(in *SubmitObservationInput) { in.SubjectType = "ROBOT" }},
		{"unknown metric", func(in *SubmitObservationInput) { in.MetricType = "blood_sugar_cubed" }},
		{"value above plausible max", func(in *SubmitObservationInput) { in.Value = 400 }},
		{"value below plausible min", func(in *SubmitObservationInput) { in.Value = 5 }},
		{"zero recorded_at", func(in *SubmitObservationInput) { in.RecordedAt = time.Time{} }},
		{"missing source", func(in *SubmitObservationInput) { in.Source = "" }},
		{"unknown source confidence", func(in *SubmitObservationInput) { in.SourceConfidence = "MAYBE" }},
	}
	for _, tc := range cases {
		in := validInput()
		tc.mutate(&in)
		err := validateObservation(in)
		if err == nil {
			t.Fatalf("%s: expected rejection", tc.name)
		}
		if !errors.Is(err, apierr.ErrInvalidObservation) {
			t.Fatalf("%s: want ErrInvalidObservation got %v", tc.name, err)
		}
	}
}

func TestBucketStartTruncates(t *testing.T) {
	at := time.Date(2026, 8, 30, 10, 47, 12, 0, time.UTC)
	got := BucketStart(at, 60)
	want := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("bucket start: want=%v got=%v", want, got)
	}

	got = BucketStart(at, 15)
	want = time.Date(2026, 8, 30, 10, 45, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("15m bucket start: want=%v got=%v", want, got)
	}
}

func TestBucketLatestCollapsesToLatestPerBucket(t *testing.T) {
	bucket := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	earlier := types.ObservationEvent{
		ID: uuid.New(), Value: 70,
		RecordedAt: bucket.Add(5 * time.Minute), BucketStart: bucket,
	}
	later := types.ObservationEvent{
		ID: uuid.New(), Value: 75,
		RecordedAt: bucket.Add(40 * time.Minute), BucketStart: bucket,
	}
	next := types.ObservationEvent{
		ID: uuid.New(), Value: 80,
		RecordedAt: bucket.Add(70 * time.Minute), BucketStart: bucket.Add(time.Hour),
	}

	out := bucketLatest([]types.ObservationEvent{next, earlier, later})
	if len(out) != 2 {
		t.Fatalf("bucket count: want=2 got=%d", len(out))
	}
	if out[0].Value != 75 {
		t.Fatalf("first bucket latest-wins: want=75 got=%f", out[0].Value)
	}
	if out[1].Value != 80 {
		t.Fatalf("second bucket: want=80 got=%f", out[1].Value)
	}
	if !out[0].BucketStart.Before(out[1].BucketStart) {
		t.Fatalf("buckets not ordered ascending")
	}
}

func TestBucketLatestEmpty(t *testing.T) {
	if out := bucketLatest(nil); out != nil {
		t.Fatalf("empty input: want=nil got=%v", out)
	}
}
