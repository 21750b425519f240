package consent

import (
	"fmt"

	"sportsmed/internal/domain/biometric"
)

// Form is the state of the consent capture form between requests.
// Selections are kept in form order; nothing is persisted until submit.
type Form struct {
	ConsentGiven       bool
	DataSharingAllowed bool
	selected           []biometric.MetricType
}

// NewForm builds a form from submitted values. Unknown metrics are dropped.
// PRE: none
// POST: Selected holds each known metric at most once, in submission order
func NewForm(consentGiven, sharing bool, metrics []string) Form {
	f := Form{ConsentGiven: consentGiven, DataSharingAllowed: sharing}
	for _, s := range metrics {
		m, err := biometric.ParseMetricType(s)
		if err != nil {
			continue
		}
		if !f.IsSelected(m) {
			f.selected = append(f.selected, m)
		}
	}
	return f
}

// FormFromConsent pre-fills a form from a stored record.
// Inactive records yield an empty form.
func FormFromConsent(c HealthConsent) Form {
	if !c.IsActive() {
		return Form{}
	}
	f := Form{ConsentGiven: true, DataSharingAllowed: c.DataSharingAllowed}
	for _, m := range c.MetricsAllowed {
		if m.IsValid() && !f.IsSelected(m) {
			f.selected = append(f.selected, m)
		}
	}
	return f
}

// SelectAll selects every grouped metric in display order.
// PRE: ConsentGiven is true; the operation is a no-op otherwise
func (f *Form) SelectAll() {
	if !f.ConsentGiven {
		return
	}
	f.selected = biometric.GroupedMetricTypes()
}

// ClearAll deselects every metric.
// PRE: ConsentGiven is true; the operation is a no-op otherwise
func (f *Form) ClearAll() {
	if !f.ConsentGiven {
		return
	}
	f.selected = nil
}

// IsSelected reports whether m is selected.
func (f Form) IsSelected(m biometric.MetricType) bool {
	for _, s := range f.selected {
		if s == m {
			return true
		}
	}
	return false
}

// SelectedMetrics returns a copy of the selection.
func (f Form) SelectedMetrics() []biometric.MetricType {
	out := make([]biometric.MetricType, len(f.selected))
	copy(out, f.selected)
	return out
}

// Count returns how many metrics are selected.
func (f Form) Count() int {
	return len(f.selected)
}

// CountLabel renders the selection counter, e.g. "1 metric selected".
func (f Form) CountLabel() string {
	if len(f.selected) == 1 {
		return "1 metric selected"
	}
	return fmt.Sprintf("%d metrics selected", len(f.selected))
}

// Check applies the submit guards.
// POST: Returns ErrConsentRequired, ErrNoMetricsSelected, or nil
func (f Form) Check() error {
	if !f.ConsentGiven {
		return ErrConsentRequired
	}
	if len(f.selected) == 0 {
		return ErrNoMetricsSelected
	}
	return nil
}
