package biometric

import (
	"errors"
	"math"
	"strconv"
	"time"
)

// DefaultRecentLimit caps how many observations a dashboard read returns.
const DefaultRecentLimit = 100

// Placeholder is shown in place of a missing value.
const Placeholder = "--"

// Domain errors
var (
	ErrEmptyUserID     = errors.New("user ID is required")
	ErrMissingRecorded = errors.New("recorded_at must be set")
)

// Observation is one recorded sample for a user.
type Observation struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	MetricType  MetricType `json:"metric_type"`
	Value       float64    `json:"value"`
	Unit        string     `json:"unit"`
	RecordedAt  time.Time  `json:"recorded_at"`
	DeviceType  string     `json:"device_type,omitempty"`
	DeviceModel string     `json:"device_model,omitempty"`
	Metadata    string     `json:"metadata,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Validate checks if the Observation has valid data.
// PRE: Observation struct is populated
// POST: Returns nil if valid, error otherwise
func (o *Observation) Validate() error {
	if o.UserID == "" {
		return ErrEmptyUserID
	}
	if !o.MetricType.IsValid() {
		return ErrUnknownMetric
	}
	if o.RecordedAt.IsZero() {
		return ErrMissingRecorded
	}
	if math.IsNaN(o.Value) || math.IsInf(o.Value, 0) {
		return errors.New("value must be a finite number")
	}
	return nil
}

// LatestValue returns the value of the first observation of metric m.
// PRE: observations are ordered newest first by RecordedAt
// POST: Returns (value, true) for the most recent match, or (0, false)
func LatestValue(observations []Observation, m MetricType) (float64, bool) {
	for _, o := range observations {
		if o.MetricType == m {
			return o.Value, true
		}
	}
	return 0, false
}

// FormatValue renders v with no decimals, rounding half away from zero.
func FormatValue(v float64) string {
	return strconv.FormatFloat(math.Round(v), 'f', 0, 64)
}
