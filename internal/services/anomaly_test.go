package services

import (
	"math"
	"testing"

	"github.com/caresignal/caresignal-backend/internal/config"
	"github.com/caresignal/caresignal-backend/internal/types"
)

func TestDeviationSeverityZScoreTiers(t *testing.T) {
	cfg := config.Default()

	cases := []struct {
		name  string
		value float64
		mean  float64
		sd    float64
		want  types.AnomalySeverity
	}{
		{"within two sigma", 78, 72, 4, ""},
		{"medium at two sigma", 80, 72, 4, types.SeverityMedium},
		{"high at three sigma", 84, 72, 4, types.SeverityHigh},
		{"critical above four sigma", 90, 72, 4, types.SeverityCritical},
		{"below baseline medium", 64, 72, 4, types.SeverityMedium},
	}
	for _, tc := range cases {
		_, _, got := deviationSeverity(tc.value, tc.mean, tc.sd, cfg)
		if got != tc.want {
			t.Fatalf("%s: want=%q got=%q", tc.name, tc.want, got)
		}
	}
}

func TestDeviationSeverityStableHistoryThenSpike(t *testing.T) {
	// A week at 72 bpm with ~4 bpm spread, then a 130 bpm reading.
	cfg := config.Default()
	z, _, severity := deviationSeverity(130, 72, 4, cfg)
	if severity != types.SeverityCritical {
		t.Fatalf("severity: want=CRITICAL got=%q", severity)
	}
	if math.Abs(z-14.5) > 1e-9 {
		t.Fatalf("z-score: want=14.5 got=%f", z)
	}
}

func TestDeviationSeverityZeroStdDevFallback(t *testing.T) {
	cfg := config.Default()

	// Identical history, new reading deviates in absolute percent terms.
	_, absPct, severity := deviationSeverity(90, 72, 0, cfg)
	if severity != types.SeverityMedium {
		t.Fatalf("25%% deviation: want=MEDIUM got=%q", severity)
	}
	if math.Abs(absPct-25) > 1e-9 {
		t.Fatalf("abs pct: want=25 got=%f", absPct)
	}

	_, _, severity = deviationSeverity(144, 72, 0, cfg)
	if severity != types.SeverityCritical {
		t.Fatalf("100%% deviation: want=CRITICAL got=%q", severity)
	}

	_, _, severity = deviationSeverity(73, 72, 0, cfg)
	if severity != "" {
		t.Fatalf("small deviation: want=no anomaly got=%q", severity)
	}
}

func TestDeviationSeverityZeroMeanZeroStdDev(t *testing.T) {
	cfg := config.Default()
	_, _, severity := deviationSeverity(3, 0, 0, cfg)
	if severity != types.SeverityCritical {
		t.Fatalf("nonzero reading against all-zero baseline: want=CRITICAL got=%q", severity)
	}
	_, _, severity = deviationSeverity(0, 0, 0, cfg)
	if severity != "" {
		t.Fatalf("zero reading against zero baseline: want=no anomaly got=%q", severity)
	}
}

func TestPolarityForDirection(t *testing.T) {
	spo2, _ := types.LookupMetric(types.MetricSpO2)
	if got := spo2.PolarityFor(types.DirectionBelow); got != types.PolarityAdverse {
		t.Fatalf("spo2 below: want=ADVERSE got=%q", got)
	}
	if got := spo2.PolarityFor(types.DirectionAbove); got != types.PolarityFavorable {
		t.Fatalf("spo2 above: want=FAVORABLE got=%q", got)
	}

	hr, _ := types.LookupMetric(types.MetricHeartRate)
	if got := hr.PolarityFor(types.DirectionAbove); got != types.PolarityAdverse {
		t.Fatalf("heart rate above: want=ADVERSE got=%q", got)
	}
	if got := hr.PolarityFor(types.DirectionBelow); got != types.PolarityAdverse {
		t.Fatalf("heart rate below: want=ADVERSE got=%q", got)
	}
}
