package validation

import (
	stdErrors "errors"
	"math"
	"testing"

	"github.com/vnykmshr/fanflow/pkg/common/errors"
)

func TestValidatePositive(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		wantError bool
	}{
		{"positive value", 10, false},
		{"one", 1, false},
		{"zero value", 0, true},
		{"negative value", -1, true},
		{"large negative", -1000000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePositive("partition", "workerCount", tt.value)

			if tt.wantError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.IsValidationError(err) {
					t.Errorf("expected ValidationError, got %T", err)
				}
				if !stdErrors.Is(err, errors.ErrInvalidArgument) {
					t.Error("expected ErrInvalidArgument in chain")
				}
			} else if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateNonNegative(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		wantError bool
	}{
		{"positive value", 25000, false},
		{"zero value", 0.0, false},
		{"negative value", -1.5, true},
		{"small negative", -0.001, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNonNegative("payroll", "base", tt.value)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateNonNegative(%v) error = %v, wantError %v", tt.value, err, tt.wantError)
			}
		})
	}
}

func TestValidateFinite(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		wantError bool
	}{
		{"finite", 85.5, false},
		{"nan", math.NaN(), true},
		{"positive infinity", math.Inf(1), true},
		{"negative infinity", math.Inf(-1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFinite("aggregate", "value", tt.value)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateFinite(%v) error = %v, wantError %v", tt.value, err, tt.wantError)
			}
		})
	}
}

func TestValidateNotNil(t *testing.T) {
	if err := ValidateNotNil("output", "writer", nil); err == nil {
		t.Error("expected error for nil value")
	}
	if err := ValidateNotNil("output", "writer", 1); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	// typed nil is not a nil interface
	if err := ValidateNotNil("output", "writer", (*int)(nil)); err != nil {
		t.Errorf("unexpected error for typed nil: %v", err)
	}
}

func TestValidateNotEmpty(t *testing.T) {
	if err := ValidateNotEmpty("agent", "branch", ""); err == nil {
		t.Error("expected error for empty string")
	}
	if err := ValidateNotEmpty("agent", "branch", "fix/login"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
