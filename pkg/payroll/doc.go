/*
Package payroll derives monthly payroll deductions.

Each record's four deductions (SSS, PhilHealth, Pag-IBIG and withholding
tax) are independent functions of the base pay and are computed
concurrently by a fanout.Computer. Batch nests that per-field fan-out inside
a per-record fan-out whose width is bounded by a concurrency.Limiter.

Every deduction is rounded up to a whole unit. Pag-IBIG uses 10% for a base
up to 1,500 and 20% above it. Withholding tax scales the base to a year,
applies the bracket table, divides back by twelve and rounds up.

	out, err := payroll.Batch(ctx, payroll.SampleRecords(), payroll.BatchOptions{MaxConcurrent: 2})

Input validation is the caller's job; see ValidateRecords.
*/
package payroll
