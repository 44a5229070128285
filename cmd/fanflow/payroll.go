package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/vnykmshr/fanflow/pkg/payroll"
	"github.com/vnykmshr/fanflow/pkg/report"
)

var payrollCommand = command{
	name:    "payroll",
	summary: "derive deductions for employees given as name=amount",
	flags: func(fs *pflag.FlagSet) map[string]string {
		fs.IntP("max-concurrent", "m", defaults().Payroll.MaxConcurrent, "records derived at once, 0 for all")
		fs.Bool("payslips", false, "print a payslip per employee")
		return map[string]string{"max-concurrent": "payroll.max_concurrent"}
	},
	run: runPayroll,
}

func runPayroll(ctx context.Context, a *app, args []string) error {
	records, err := parseEmployees(args)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		records = a.cfg.Payroll.Employees
	}
	if len(records) == 0 {
		records = payroll.SampleRecords()
	}

	d, err := payroll.NewDeriver(payroll.DefaultPolicy(),
		payroll.WithLogger(a.logger),
		payroll.WithMetrics(a.metrics),
	)
	if err != nil {
		return err
	}

	derived, err := d.Batch(ctx, records, a.cfg.Payroll.MaxConcurrent)
	if err != nil {
		return err
	}
	a.logger.Debug("payroll derived", zap.Int("records", len(derived)))

	w := a.console.Writer()
	if payslips, _ := a.flags.GetBool("payslips"); payslips {
		for _, r := range derived {
			if err := report.Payslip(w, r); err != nil {
				return err
			}
			fmt.Fprintln(w)
		}
	}
	return report.PayrollTable(w, derived)
}

// parseEmployees parses name=amount arguments. Amounts may use thousands
// separators.
func parseEmployees(args []string) ([]payroll.Record, error) {
	records := make([]payroll.Record, 0, len(args))
	for _, arg := range args {
		name, amount, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("employee %q: want name=amount", arg)
		}
		base, err := strconv.ParseFloat(strings.ReplaceAll(amount, ",", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("employee %q: amount %q is not a number", name, amount)
		}
		records = append(records, payroll.Record{ID: name, Base: base})
	}
	return records, payroll.ValidateRecords(records)
}
