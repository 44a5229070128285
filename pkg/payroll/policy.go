package payroll

import (
	"math"
	"sort"

	ffErrors "github.com/vnykmshr/fanflow/pkg/common/errors"
)

// Field names of a derived record.
const (
	FieldSSS        = "sss"
	FieldPhilHealth = "philhealth"
	FieldPagIBIG    = "pagibig"
	FieldTax        = "tax"
)

// Bracket is one band of the annual income tax table. Income above Floor
// and up to UpTo pays Offset plus Rate on the excess over Floor.
type Bracket struct {
	UpTo   float64
	Floor  float64
	Offset float64
	Rate   float64
}

// Brackets is the annual withholding table under the TRAIN law.
// The last band is open-ended.
var Brackets = []Bracket{
	{UpTo: 250_000, Floor: 0, Offset: 0, Rate: 0},
	{UpTo: 400_000, Floor: 250_000, Offset: 0, Rate: 0.15},
	{UpTo: 800_000, Floor: 400_000, Offset: 22_500, Rate: 0.20},
	{UpTo: 2_000_000, Floor: 800_000, Offset: 102_500, Rate: 0.25},
	{UpTo: 8_000_000, Floor: 2_000_000, Offset: 402_500, Rate: 0.30},
	{UpTo: math.Inf(1), Floor: 8_000_000, Offset: 2_202_500, Rate: 0.35},
}

// Policy holds the contribution rates and the tax table.
type Policy struct {
	SSSRate         float64
	PhilHealthRate  float64
	PagIBIGLowRate  float64
	PagIBIGHighRate float64
	// PagIBIGCutoff is the highest base that still pays the low rate.
	PagIBIGCutoff float64
	MonthsPerYear float64
	Brackets      []Bracket
}

// DefaultPolicy returns the standard Philippine contribution policy.
func DefaultPolicy() Policy {
	return Policy{
		SSSRate:         0.045,
		PhilHealthRate:  0.025,
		PagIBIGLowRate:  0.10,
		PagIBIGHighRate: 0.20,
		PagIBIGCutoff:   1500,
		MonthsPerYear:   12,
		Brackets:        append([]Bracket(nil), Brackets...),
	}
}

// Validate checks that rates are non-negative and the brackets are ordered
// and end with an open band.
func (p Policy) Validate() error {
	rates := map[string]float64{
		"SSSRate":         p.SSSRate,
		"PhilHealthRate":  p.PhilHealthRate,
		"PagIBIGLowRate":  p.PagIBIGLowRate,
		"PagIBIGHighRate": p.PagIBIGHighRate,
	}
	for name, r := range rates {
		if r < 0 || math.IsNaN(r) {
			return ffErrors.NewValidationError("payroll", name, r, "rate must be non-negative")
		}
	}
	if p.MonthsPerYear <= 0 {
		return ffErrors.NewValidationError("payroll", "MonthsPerYear", p.MonthsPerYear, "must be positive")
	}
	if len(p.Brackets) == 0 {
		return ffErrors.NewValidationError("payroll", "Brackets", 0, "at least one bracket is required")
	}
	if !sort.SliceIsSorted(p.Brackets, func(i, j int) bool { return p.Brackets[i].UpTo < p.Brackets[j].UpTo }) {
		return ffErrors.NewValidationError("payroll", "Brackets", len(p.Brackets), "brackets must be ordered by UpTo")
	}
	if last := p.Brackets[len(p.Brackets)-1]; !math.IsInf(last.UpTo, 1) {
		return ffErrors.NewValidationError("payroll", "Brackets", last.UpTo, "last bracket must be open-ended").
			WithHint("use math.Inf(1) as UpTo of the top bracket")
	}
	return nil
}

// CeilUnit rounds x up to a whole unit. x is first rounded to micro-units
// so that binary noise such as 1125.0000000000002 stays at 1125.
func CeilUnit(x float64) float64 {
	return math.Ceil(math.Round(x*1e6) / 1e6)
}

// SSS is the social security contribution.
func (p Policy) SSS(base float64) float64 {
	return CeilUnit(base * p.SSSRate)
}

// PhilHealth is the health insurance contribution.
func (p Policy) PhilHealth(base float64) float64 {
	return CeilUnit(base * p.PhilHealthRate)
}

// PagIBIG is the housing fund contribution. Bases up to the cutoff pay the
// low rate.
func (p Policy) PagIBIG(base float64) float64 {
	if base <= p.PagIBIGCutoff {
		return CeilUnit(base * p.PagIBIGLowRate)
	}
	return CeilUnit(base * p.PagIBIGHighRate)
}

// AnnualTax applies the bracket table to an annual amount. It is not rounded.
func (p Policy) AnnualTax(annual float64) float64 {
	for _, b := range p.Brackets {
		if annual <= b.UpTo {
			return b.Offset + (annual-b.Floor)*b.Rate
		}
	}
	return 0
}

// Tax is the monthly withholding: the annual tax on base scaled to a year,
// divided back to a month and rounded up.
func (p Policy) Tax(base float64) float64 {
	return CeilUnit(p.AnnualTax(base*p.MonthsPerYear) / p.MonthsPerYear)
}
