package payroll

import (
	"fmt"

	ffErrors "github.com/vnykmshr/fanflow/pkg/common/errors"
	"github.com/vnykmshr/fanflow/pkg/common/validation"
)

// Record is one employee's monthly base pay.
type Record struct {
	ID   string
	Base float64
}

// DerivedRecord is a Record with its deductions joined in.
type DerivedRecord struct {
	ID             string
	Base           float64
	SSS            float64
	PhilHealth     float64
	PagIBIG        float64
	Tax            float64
	TotalDeduction float64
	Net            float64
}

// Deductions returns the deduction fields in display order.
func (d DerivedRecord) Deductions() []Deduction {
	return []Deduction{
		{Name: "SSS", Amount: d.SSS},
		{Name: "PhilHealth", Amount: d.PhilHealth},
		{Name: "Pag-IBIG", Amount: d.PagIBIG},
		{Name: "Income Tax", Amount: d.Tax},
	}
}

// Deduction is a labelled amount for rendering.
type Deduction struct {
	Name   string
	Amount float64
}

// Verify checks that TotalDeduction is the sum of the fields and that Net
// is Base less TotalDeduction.
func (d DerivedRecord) Verify() error {
	total := d.SSS + d.PhilHealth + d.PagIBIG + d.Tax
	if total != d.TotalDeduction {
		return ffErrors.NewOperationError("payroll", "Verify",
			fmt.Errorf("total deduction %.2f does not match fields sum %.2f", d.TotalDeduction, total)).
			WithContext("record " + d.ID)
	}
	if net := d.Base - d.TotalDeduction; net != d.Net {
		return ffErrors.NewOperationError("payroll", "Verify",
			fmt.Errorf("net %.2f does not match base less deductions %.2f", d.Net, net)).
			WithContext("record " + d.ID)
	}
	return nil
}

// ValidateRecords rejects records with an empty ID, a negative or
// non-finite base, or an ID used twice. Derivation assumes validated input.
func ValidateRecords(records []Record) error {
	seen := make(map[string]int, len(records))
	for i, r := range records {
		field := fmt.Sprintf("records[%d]", i)
		if err := validation.ValidateNotEmpty("payroll", field+".ID", r.ID); err != nil {
			return err
		}
		if err := validation.ValidateFinite("payroll", field+".Base", r.Base); err != nil {
			return err
		}
		if err := validation.ValidateNonNegative("payroll", field+".Base", r.Base); err != nil {
			return err
		}
		if j, dup := seen[r.ID]; dup {
			return ffErrors.NewValidationError("payroll", field+".ID", r.ID,
				fmt.Sprintf("duplicate of records[%d]", j))
		}
		seen[r.ID] = i
	}
	return nil
}

// SampleRecords returns the demo employee roster.
func SampleRecords() []Record {
	return []Record{
		{ID: "Alice", Base: 25000},
		{ID: "Bob", Base: 32000},
		{ID: "Charlie", Base: 28000},
		{ID: "Diana", Base: 40000},
		{ID: "Edward", Base: 35000},
	}
}
