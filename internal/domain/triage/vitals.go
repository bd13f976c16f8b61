package triage

import (
	"github.com/clinicops/clinic/internal/domain/queue"
	"github.com/clinicops/clinic/internal/platform/apperr"
)

type intRange struct {
	name     string
	min, max int
}

type floatRange struct {
	name     string
	min, max float64
}

var (
	heartRateRange   = intRange{"heart_rate", 20, 250}
	systolicRange    = intRange{"systolic", 50, 260}
	diastolicRange   = intRange{"diastolic", 30, 160}
	respiratoryRange = intRange{"respiratory_rate", 4, 60}
	saturationRange  = intRange{"oxygen_saturation", 50, 100}
	temperatureRange = floatRange{"temperature", 30, 45}
	weightRange      = floatRange{"weight", 0.5, 400}
	heightRange      = floatRange{"height", 30, 250}
)

func (r intRange) check(v *int) error {
	if v != nil && (*v < r.min || *v > r.max) {
		return apperr.Validation("%s must be between %d and %d", r.name, r.min, r.max)
	}
	return nil
}

func (r floatRange) check(v *float64) error {
	if v != nil && (*v < r.min || *v > r.max) {
		return apperr.Validation("%s must be between %g and %g", r.name, r.min, r.max)
	}
	return nil
}

// Validate checks every present measurement against its plausible range.
func (v *Vitals) Validate() error {
	checks := []error{
		heartRateRange.check(v.HeartRate),
		systolicRange.check(v.Systolic),
		diastolicRange.check(v.Diastolic),
		respiratoryRange.check(v.RespiratoryRate),
		saturationRange.check(v.OxygenSaturation),
		temperatureRange.check(v.Temperature),
		weightRange.check(v.Weight),
		heightRange.check(v.Height),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	if v.Systolic != nil && v.Diastolic != nil && *v.Diastolic >= *v.Systolic {
		return apperr.Validation("diastolic must be below systolic")
	}
	return nil
}

// SuggestPriority maps vital signs and pain score to a triage priority.
// v may be nil.
func SuggestPriority(v *Vitals, painScale int) queue.Priority {
	if v == nil {
		v = &Vitals{}
	}
	switch {
	case below(v.OxygenSaturation, 90),
		outside(v.HeartRate, 40, 130),
		below(v.Systolic, 90), above(v.Systolic, 220),
		outside(v.RespiratoryRate, 8, 30),
		atLeastF(v.Temperature, 40), belowF(v.Temperature, 35):
		return queue.PriorityCritical
	case below(v.OxygenSaturation, 94),
		outside(v.HeartRate, 50, 110),
		above(v.Systolic, 180),
		above(v.RespiratoryRate, 24),
		atLeastF(v.Temperature, 39),
		painScale >= 8:
		return queue.PriorityUrgent
	case above(v.HeartRate, 100),
		atLeastF(v.Temperature, 38),
		painScale >= 5:
		return queue.PrioritySemiUrgent
	default:
		return queue.PriorityNonUrgent
	}
}

func below(v *int, limit int) bool            { return v != nil && *v < limit }
func above(v *int, limit int) bool            { return v != nil && *v > limit }
func outside(v *int, lo, hi int) bool         { return below(v, lo) || above(v, hi) }
func belowF(v *float64, limit float64) bool   { return v != nil && *v < limit }
func atLeastF(v *float64, limit float64) bool { return v != nil && *v >= limit }
