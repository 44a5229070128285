package report

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/vnykmshr/fanflow/pkg/aggregate"
	"github.com/vnykmshr/fanflow/pkg/payroll"
)

// Width is the column width of a payslip.
const Width = 40

var printer = message.NewPrinter(language.English)

// Amount formats v with two decimals and thousands separators,
// e.g. 25,000.00.
func Amount(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// errWriter remembers the first write error so rendering code can print
// unconditionally and check once at the end.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) line(s string) {
	ew.printf("%s\n", s)
}

func (ew *errWriter) row(label, value string) {
	ew.printf("%-20s %15s\n", label, value)
}

func center(s string, width int) string {
	pad := (width - len([]rune(s))) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}

// Payslip renders a 40-column receipt for one derived record.
func Payslip(w io.Writer, d payroll.DerivedRecord) error {
	ew := &errWriter{w: w}
	double := strings.Repeat("=", Width)
	single := strings.Repeat("-", Width)

	ew.line(double)
	ew.line(center("PAYSLIP - DEDUCTION SUMMARY", Width))
	ew.line(double)
	ew.row("Employee", d.ID)
	ew.row("Description", "Amount")
	ew.line(single)
	ew.row("Gross Salary", Amount(d.Base))
	for _, ded := range d.Deductions() {
		ew.row(ded.Name, Amount(ded.Amount))
	}
	ew.line(single)
	ew.row("Total Deductions", Amount(d.TotalDeduction))
	ew.row("NET PAY", Amount(d.Net))
	ew.line(double)
	return ew.err
}

// PayrollTable renders one row per record followed by a totals row.
func PayrollTable(w io.Writer, records []payroll.DerivedRecord) error {
	ew := &errWriter{w: w}
	const rowFormat = "%-12s %12s %10s %10s %10s %10s %11s %12s\n"

	ew.printf(rowFormat, "Employee", "Base", "SSS", "PhilHealth", "Pag-IBIG", "Tax", "Deductions", "Net")
	rule := strings.Repeat("-", 12+12+10*4+11+12+7)
	ew.line(rule)

	var total payroll.DerivedRecord
	for _, r := range records {
		ew.printf(rowFormat, r.ID,
			Amount(r.Base), Amount(r.SSS), Amount(r.PhilHealth), Amount(r.PagIBIG),
			Amount(r.Tax), Amount(r.TotalDeduction), Amount(r.Net))
		total.Base += r.Base
		total.SSS += r.SSS
		total.PhilHealth += r.PhilHealth
		total.PagIBIG += r.PagIBIG
		total.Tax += r.Tax
		total.TotalDeduction += r.TotalDeduction
		total.Net += r.Net
	}

	ew.line(rule)
	ew.printf(rowFormat, printer.Sprintf("Total (%d)", len(records)),
		Amount(total.Base), Amount(total.SSS), Amount(total.PhilHealth), Amount(total.PagIBIG),
		Amount(total.Tax), Amount(total.TotalDeduction), Amount(total.Net))
	return ew.err
}

// GWASummary renders the per-chunk partials, any failed chunks and the
// final weighted average of an aggregation run.
func GWASummary(w io.Writer, res aggregate.Result) error {
	ew := &errWriter{w: w}

	if res.RunID != "" {
		ew.printf("Run %s\n", res.RunID)
	}
	for _, p := range res.Partials {
		mean := "-"
		if m, err := p.Mean(); err == nil {
			mean = Amount(m)
		}
		ew.printf("  %-14s count %-4d sum %12s  mean %s\n", p.Chunk, p.Count, Amount(p.Sum), mean)
	}
	for _, f := range res.Failures {
		ew.printf("  %-14s failed: %v\n", f.Chunk, f.Err)
	}

	ew.printf("Total count: %d\n", res.Count)
	ew.printf("Total sum:   %s\n", Amount(res.Sum))
	if avg, err := res.Average(); err == nil {
		ew.printf("Final GWA:   %s\n", Amount(avg))
	} else {
		ew.line("Final GWA:   undefined (no values)")
	}
	if res.Duration > 0 {
		ew.printf("Elapsed:     %v\n", res.Duration)
	}
	return ew.err
}
