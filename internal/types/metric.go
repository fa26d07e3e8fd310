package types

// Metric catalog: the closed registry of metric types the aggregator accepts.
// PlausibleMin/Max bound physically possible readings (ingestion rejects
// outside them, it never clamps). AdverseAbove/Below is the per-metric
// direction-to-polarity mapping the anomaly detector consults; it is
// configuration, not something inferred from data.

const (
	MetricHeartRate           = "heart_rate"
	MetricSystolicBP          = "systolic_bp"
	MetricDiastolicBP         = "diastolic_bp"
	MetricSpO2                = "spo2"
	MetricBodyTemperature     = "body_temperature"
	MetricRespirationRate     = "respiration_rate"
	MetricWeight              = "weight"
	MetricMobilityScore       = "mobility_score"
	MetricSleepHours          = "sleep_hours"
	MetricMedicationAdherence = "medication_adherence"
	MetricMissedDoses         = "missed_doses"
	MetricTaskCompletionRate  = "task_completion_rate"
	MetricShiftHours          = "shift_hours"
	MetricShiftCount          = "shift_count"
	MetricAttendanceRate      = "attendance_rate"
	MetricReportedPainLevel   = "reported_pain_level"
)

type MetricSpec struct {
	Unit            string
	PlausibleMin    float64
	PlausibleMax    float64
	AdverseAbove    bool
	AdverseBelow    bool
	// SamplesPerDay is the expected charting cadence, the denominator for
	// evidence completeness. Routine vitals are charted once per daily round.
	SamplesPerDay   float64
	DefaultCategory RiskCategory
	SubjectType     SubjectType
	// RiskWeight is the static contextual multiplier applied when an anomaly
	// on this metric contributes to a risk score.
	RiskWeight float64
}

// Polarity resolves a deviation direction to its clinical reading.
func (m MetricSpec) PolarityFor(dir DeviationDirection) Polarity {
	if dir == DirectionAbove && m.AdverseAbove {
		return PolarityAdverse
	}
	if dir == DirectionBelow && m.AdverseBelow {
		return PolarityAdverse
	}
	return PolarityFavorable
}

var metricCatalog = map[string]MetricSpec{
	MetricHeartRate:           {Unit: "bpm", PlausibleMin: 20, PlausibleMax: 250, AdverseAbove: true, AdverseBelow: true, SamplesPerDay: 1, DefaultCategory: CategoryResidentHealth, SubjectType: SubjectResident, RiskWeight: 1.0},
	MetricSystolicBP:          {Unit: "mmHg", PlausibleMin: 50, PlausibleMax: 260, AdverseAbove: true, AdverseBelow: true, SamplesPerDay: 1, DefaultCategory: CategoryResidentHealth, SubjectType: SubjectResident, RiskWeight: 1.0},
	MetricDiastolicBP:         {Unit: "mmHg", PlausibleMin: 30, PlausibleMax: 160, AdverseAbove: true, AdverseBelow: true, SamplesPerDay: 1, DefaultCategory: CategoryResidentHealth, SubjectType: SubjectResident, RiskWeight: 0.9},
	MetricSpO2:                {Unit: "%", PlausibleMin: 50, PlausibleMax: 100, AdverseBelow: true, SamplesPerDay: 1, DefaultCategory: CategoryResidentHealth, SubjectType: SubjectResident, RiskWeight: 1.1},
	MetricBodyTemperature:     {Unit: "C", PlausibleMin: 30, PlausibleMax: 44, AdverseAbove: true, AdverseBelow: true, SamplesPerDay: 1, DefaultCategory: CategoryResidentHealth, SubjectType: SubjectResident, RiskWeight: 1.0},
	MetricRespirationRate:     {Unit: "breaths/min", PlausibleMin: 4, PlausibleMax: 60, AdverseAbove: true, AdverseBelow: true, SamplesPerDay: 1, DefaultCategory: CategoryResidentHealth, SubjectType: SubjectResident, RiskWeight: 1.1},
	MetricWeight:              {Unit: "kg", PlausibleMin: 25, PlausibleMax: 350, AdverseAbove: true, AdverseBelow: true, SamplesPerDay: 0.15, DefaultCategory: CategoryResidentHealth, SubjectType: SubjectResident, RiskWeight: 0.8},
	MetricMobilityScore:       {Unit: "score", PlausibleMin: 0, PlausibleMax: 100, AdverseBelow: true, SamplesPerDay: 1, DefaultCategory: CategoryResidentHealth, SubjectType: SubjectResident, RiskWeight: 0.9},
	MetricSleepHours:          {Unit: "h", PlausibleMin: 0, PlausibleMax: 24, AdverseAbove: true, AdverseBelow: true, SamplesPerDay: 1, DefaultCategory: CategoryResidentHealth, SubjectType: SubjectResident, RiskWeight: 0.8},
	MetricReportedPainLevel:   {Unit: "score", PlausibleMin: 0, PlausibleMax: 10, AdverseAbove: true, SamplesPerDay: 1, DefaultCategory: CategoryResidentHealth, SubjectType: SubjectResident, RiskWeight: 0.9},
	MetricMedicationAdherence: {Unit: "%", PlausibleMin: 0, PlausibleMax: 100, AdverseBelow: true, SamplesPerDay: 1, DefaultCategory: CategoryMedicationSafety, SubjectType: SubjectResident, RiskWeight: 1.0},
	MetricMissedDoses:         {Unit: "count", PlausibleMin: 0, PlausibleMax: 50, AdverseAbove: true, SamplesPerDay: 1, DefaultCategory: CategoryMedicationSafety, SubjectType: SubjectResident, RiskWeight: 1.1},
	MetricTaskCompletionRate:  {Unit: "%", PlausibleMin: 0, PlausibleMax: 100, AdverseBelow: true, SamplesPerDay: 1, DefaultCategory: CategoryCareOperations, SubjectType: SubjectCaregiver, RiskWeight: 0.9},
	MetricShiftHours:          {Unit: "h", PlausibleMin: 0, PlausibleMax: 24, AdverseAbove: true, SamplesPerDay: 1, DefaultCategory: CategoryCaregiverWorkload, SubjectType: SubjectCaregiver, RiskWeight: 1.0},
	MetricShiftCount:          {Unit: "count", PlausibleMin: 0, PlausibleMax: 5, AdverseAbove: true, SamplesPerDay: 1, DefaultCategory: CategoryCaregiverWorkload, SubjectType: SubjectCaregiver, RiskWeight: 0.9},
	MetricAttendanceRate:      {Unit: "%", PlausibleMin: 0, PlausibleMax: 100, AdverseBelow: true, SamplesPerDay: 1, DefaultCategory: CategoryCareOperations, SubjectType: SubjectCaregiver, RiskWeight: 0.9},
}

func LookupMetric(metricType string) (MetricSpec, bool) {
	spec, ok := metricCatalog[metricType]
	return spec, ok
}

func KnownMetrics() []string {
	out := make([]string, 0, len(metricCatalog))
	for k := range metricCatalog {
		out = append(out, k)
	}
	return out
}
