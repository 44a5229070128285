package payroll

import (
	"context"

	"go.uber.org/zap"

	"github.com/vnykmshr/fanflow/pkg/fanout"
	"github.com/vnykmshr/fanflow/pkg/metrics"
)

// Deriver computes the deductions of a record by fanning out over the
// policy's fields.
type Deriver struct {
	policy   Policy
	computer *fanout.Computer
	logger   *zap.Logger
	metrics  *metrics.Registry
}

// Option configures a Deriver.
type Option func(*Deriver)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Deriver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics enables record and field counters.
func WithMetrics(m *metrics.Registry) Option {
	return func(d *Deriver) { d.metrics = m }
}

// NewDeriver builds a Deriver for policy.
func NewDeriver(policy Policy, opts ...Option) (*Deriver, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	d := &Deriver{policy: policy, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}

	computer, err := fanout.New([]fanout.Field{
		{Name: FieldSSS, Fn: policy.SSS},
		{Name: FieldPhilHealth, Fn: policy.PhilHealth},
		{Name: FieldPagIBIG, Fn: policy.PagIBIG},
		{Name: FieldTax, Fn: policy.Tax},
	}, fanout.WithLogger(d.logger), fanout.WithMetrics(d.metrics))
	if err != nil {
		return nil, err
	}
	d.computer = computer
	return d, nil
}

// Policy returns the policy the Deriver was built with.
func (d *Deriver) Policy() Policy {
	return d.policy
}

// Derive computes every deduction of r concurrently, joins them and
// verifies the result. r is assumed to be validated.
func (d *Deriver) Derive(ctx context.Context, r Record) (DerivedRecord, error) {
	fields, err := d.computer.Derive(ctx, r.Base)
	if err != nil {
		d.fail(r, err)
		return DerivedRecord{}, err
	}

	out := DerivedRecord{
		ID:         r.ID,
		Base:       r.Base,
		SSS:        fields.Values[FieldSSS],
		PhilHealth: fields.Values[FieldPhilHealth],
		PagIBIG:    fields.Values[FieldPagIBIG],
		Tax:        fields.Values[FieldTax],
	}
	out.TotalDeduction = out.SSS + out.PhilHealth + out.PagIBIG + out.Tax
	out.Net = out.Base - out.TotalDeduction

	if err := out.Verify(); err != nil {
		d.fail(r, err)
		return DerivedRecord{}, err
	}

	if d.metrics != nil {
		d.metrics.RecordsDerived.WithLabelValues("payroll").Inc()
	}
	d.logger.Debug("record derived",
		zap.String("id", r.ID),
		zap.Float64("base", r.Base),
		zap.Float64("total_deduction", out.TotalDeduction),
		zap.Float64("net", out.Net),
	)
	return out, nil
}

func (d *Deriver) fail(r Record, err error) {
	if d.metrics != nil {
		d.metrics.RecordsFailed.WithLabelValues("payroll").Inc()
	}
	d.logger.Warn("record derivation failed", zap.String("id", r.ID), zap.Error(err))
}
