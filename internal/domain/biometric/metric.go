package biometric

import (
	"errors"
	"strings"
)

// MetricType identifies one kind of health observation.
type MetricType string

// Metric types. The set is closed; storage and forms reject anything else.
const (
	HeartRate        MetricType = "heart_rate"
	Steps            MetricType = "steps"
	Calories         MetricType = "calories"
	Distance         MetricType = "distance"
	ActiveEnergy     MetricType = "active_energy"
	RestingHeartRate MetricType = "resting_heart_rate"
	HRV              MetricType = "hrv"
	BloodOxygen      MetricType = "blood_oxygen"
	SleepHours       MetricType = "sleep_hours"
	WorkoutMinutes   MetricType = "workout_minutes"
	StandHours       MetricType = "stand_hours"
	ExerciseMinutes  MetricType = "exercise_minutes"
)

// ErrUnknownMetric is returned when a string does not name a MetricType.
var ErrUnknownMetric = errors.New("unknown metric type")

// Range is an inclusive normal range for a metric.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Config is the static display descriptor for a MetricType.
type Config struct {
	Type        MetricType `json:"type"`
	Label       string     `json:"label"`
	Unit        string     `json:"unit"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	NormalRange *Range     `json:"normal_range,omitempty"`
}

// Group is a named set of metrics shown together on the consent form.
type Group struct {
	Name    string
	Metrics []MetricType
}

var allMetricTypes = []MetricType{
	HeartRate,
	Steps,
	Calories,
	Distance,
	ActiveEnergy,
	RestingHeartRate,
	HRV,
	BloodOxygen,
	SleepHours,
	WorkoutMinutes,
	StandHours,
	ExerciseMinutes,
}

var catalog = map[MetricType]Config{
	HeartRate:        {Label: "Heart Rate", Unit: "bpm", Description: "Real-time heart rate monitoring", Icon: "heart", NormalRange: &Range{Min: 60, Max: 100}},
	Steps:            {Label: "Steps", Unit: "steps", Description: "Daily step count", Icon: "footprints"},
	Calories:         {Label: "Calories", Unit: "kcal", Description: "Calories burned", Icon: "flame"},
	Distance:         {Label: "Distance", Unit: "km", Description: "Distance traveled", Icon: "map-pin"},
	ActiveEnergy:     {Label: "Active Energy", Unit: "kcal", Description: "Energy from activity", Icon: "zap"},
	RestingHeartRate: {Label: "Resting Heart Rate", Unit: "bpm", Description: "Heart rate at rest", Icon: "heart", NormalRange: &Range{Min: 50, Max: 90}},
	HRV:              {Label: "Heart Rate Variability", Unit: "ms", Description: "HRV measurement", Icon: "activity"},
	BloodOxygen:      {Label: "Blood Oxygen", Unit: "%", Description: "Blood oxygen saturation", Icon: "wind", NormalRange: &Range{Min: 95, Max: 100}},
	SleepHours:       {Label: "Sleep", Unit: "hours", Description: "Sleep duration", Icon: "moon"},
	WorkoutMinutes:   {Label: "Workout", Unit: "min", Description: "Workout duration", Icon: "dumbbell"},
	StandHours:       {Label: "Stand Hours", Unit: "hours", Description: "Hours standing", Icon: "user"},
	ExerciseMinutes:  {Label: "Exercise", Unit: "min", Description: "Exercise minutes", Icon: "activity"},
}

var groups = []Group{
	{Name: "Heart & Vitals", Metrics: []MetricType{HeartRate, RestingHeartRate, HRV, BloodOxygen}},
	{Name: "Activity", Metrics: []MetricType{Steps, Distance, WorkoutMinutes, ExerciseMinutes, StandHours}},
	{Name: "Energy", Metrics: []MetricType{Calories, ActiveEnergy}},
	{Name: "Recovery", Metrics: []MetricType{SleepHours}},
}

// AllMetricTypes returns every MetricType in declaration order.
// POST: Returns a fresh slice; callers may modify it
func AllMetricTypes() []MetricType {
	out := make([]MetricType, len(allMetricTypes))
	copy(out, allMetricTypes)
	return out
}

// IsValid reports whether m is a member of the closed set.
func (m MetricType) IsValid() bool {
	_, ok := catalog[m]
	return ok
}

// ParseMetricType converts untrusted input to a MetricType.
// PRE: none
// POST: Returns the metric or ErrUnknownMetric
func ParseMetricType(s string) (MetricType, error) {
	m := MetricType(strings.TrimSpace(strings.ToLower(s)))
	if !m.IsValid() {
		return "", ErrUnknownMetric
	}
	return m, nil
}

// ConfigFor returns the display descriptor for m.
// PRE: m is one of the declared constants
// POST: Returns a copy; the catalog itself is never exposed for mutation
// INVARIANT: Every declared MetricType has an entry
func ConfigFor(m MetricType) Config {
	c := catalog[m]
	c.Type = m
	if c.NormalRange != nil {
		r := *c.NormalRange
		c.NormalRange = &r
	}
	return c
}

// Catalog returns the descriptors of all metrics in declaration order.
func Catalog() []Config {
	out := make([]Config, 0, len(allMetricTypes))
	for _, m := range allMetricTypes {
		out = append(out, ConfigFor(m))
	}
	return out
}

// Groups returns the consent-form grouping of metrics.
func Groups() []Group {
	out := make([]Group, len(groups))
	for i, g := range groups {
		metrics := make([]MetricType, len(g.Metrics))
		copy(metrics, g.Metrics)
		out[i] = Group{Name: g.Name, Metrics: metrics}
	}
	return out
}

// GroupedMetricTypes flattens Groups() in display order.
func GroupedMetricTypes() []MetricType {
	var out []MetricType
	for _, g := range groups {
		out = append(out, g.Metrics...)
	}
	return out
}
