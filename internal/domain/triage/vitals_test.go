package triage

import (
	"testing"

	"github.com/clinicops/clinic/internal/domain/queue"
	"github.com/clinicops/clinic/internal/platform/apperr"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func TestVitals_Validate(t *testing.T) {
	tests := []struct {
		name    string
		v       Vitals
		wantErr bool
	}{
		{"empty", Vitals{}, false},
		{"normal", Vitals{HeartRate: intp(72), Systolic: intp(120), Diastolic: intp(80), Temperature: floatp(36.8), OxygenSaturation: intp(98)}, false},
		{"heart rate too high", Vitals{HeartRate: intp(300)}, true},
		{"saturation over 100", Vitals{OxygenSaturation: intp(101)}, true},
		{"temperature in fahrenheit", Vitals{Temperature: floatp(98.6)}, true},
		{"diastolic above systolic", Vitals{Systolic: intp(80), Diastolic: intp(90)}, true},
		{"zero weight", Vitals{Weight: floatp(0)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v.Validate()
			if tt.wantErr && !apperr.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSuggestPriority(t *testing.T) {
	tests := []struct {
		name string
		v    *Vitals
		pain int
		want queue.Priority
	}{
		{"nothing recorded", nil, 0, queue.PriorityNonUrgent},
		{"hypoxic", &Vitals{OxygenSaturation: intp(85)}, 0, queue.PriorityCritical},
		{"bradycardic", &Vitals{HeartRate: intp(35)}, 0, queue.PriorityCritical},
		{"hypotensive", &Vitals{Systolic: intp(80), Diastolic: intp(50)}, 0, queue.PriorityCritical},
		{"high fever", &Vitals{Temperature: floatp(40.2)}, 0, queue.PriorityCritical},
		{"low saturation", &Vitals{OxygenSaturation: intp(92)}, 0, queue.PriorityUrgent},
		{"severe pain", &Vitals{}, 9, queue.PriorityUrgent},
		{"fever", &Vitals{Temperature: floatp(38.4)}, 0, queue.PrioritySemiUrgent},
		{"moderate pain", nil, 5, queue.PrioritySemiUrgent},
		{"healthy", &Vitals{HeartRate: intp(70), Temperature: floatp(36.6), OxygenSaturation: intp(99)}, 2, queue.PriorityNonUrgent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SuggestPriority(tt.v, tt.pain); got != tt.want {
				t.Errorf("SuggestPriority() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestVitals_BMI(t *testing.T) {
	v := Vitals{Weight: floatp(81), Height: floatp(180)}
	bmi := v.BMI()
	if bmi == nil || *bmi < 24.99 || *bmi > 25.01 {
		t.Errorf("expected BMI 25, got %v", bmi)
	}
	if (&Vitals{Weight: floatp(80)}).BMI() != nil {
		t.Error("expected nil BMI without height")
	}
}
