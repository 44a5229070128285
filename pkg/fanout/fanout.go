package fanout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	ffErrors "github.com/vnykmshr/fanflow/pkg/common/errors"
	"github.com/vnykmshr/fanflow/pkg/metrics"
)

// FieldFunc derives one value from a base amount. It must be pure.
type FieldFunc func(base float64) float64

// Field names a FieldFunc.
type Field struct {
	Name string
	Fn   FieldFunc
}

// Fields is the joined output of one derivation. Names preserves the order
// in which the fields were declared.
type Fields struct {
	Names  []string
	Values map[string]float64
}

// Get returns the value of the named field.
func (f Fields) Get(name string) (float64, bool) {
	v, ok := f.Values[name]
	return v, ok
}

// Total sums every field.
func (f Fields) Total() float64 {
	var total float64
	for _, name := range f.Names {
		total += f.Values[name]
	}
	return total
}

// Computer runs a fixed set of fields concurrently over a base amount.
// A Computer holds no per-call state and may be shared across goroutines.
type Computer struct {
	fields  []Field
	logger  *zap.Logger
	metrics *metrics.Registry
}

// Option configures a Computer.
type Option func(*Computer)

// WithLogger sets the logger for field failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Computer) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables per-field counters.
func WithMetrics(m *metrics.Registry) Option {
	return func(c *Computer) { c.metrics = m }
}

// New creates a Computer over fields. Field names must be non-empty and
// unique, and every field needs a function.
func New(fields []Field, opts ...Option) (*Computer, error) {
	if len(fields) == 0 {
		return nil, ffErrors.NewValidationError("fanout", "fields", 0, "at least one field is required")
	}

	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, ffErrors.NewValidationError("fanout", fmt.Sprintf("fields[%d].Name", i), f.Name, "cannot be empty")
		}
		if f.Fn == nil {
			return nil, ffErrors.NewValidationError("fanout", fmt.Sprintf("fields[%d].Fn", i), f.Name, "cannot be nil")
		}
		if _, dup := seen[f.Name]; dup {
			return nil, ffErrors.NewValidationError("fanout", "fields", f.Name, "duplicate field name")
		}
		seen[f.Name] = struct{}{}
	}

	c := &Computer{
		fields: append([]Field(nil), fields...),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Names returns the field names in declaration order.
func (c *Computer) Names() []string {
	names := make([]string, len(c.fields))
	for i, f := range c.fields {
		names[i] = f.Name
	}
	return names
}

// Derive computes every field of base in its own goroutine and joins once
// all of them have finished. A panicking field fails the whole derivation
// with an error naming the field. If ctx is done before the join, Derive
// returns ctx.Err() and no fields.
func (c *Computer) Derive(ctx context.Context, base float64) (Fields, error) {
	if err := ctx.Err(); err != nil {
		return Fields{}, err
	}

	values := make([]float64, len(c.fields))
	errs := make([]error, len(c.fields))

	var wg sync.WaitGroup
	for i, f := range c.fields {
		wg.Add(1)
		go func(i int, f Field) {
			defer wg.Done()
			values[i], errs[i] = computeField(f, base)
		}(i, f)
	}

	joined := make(chan struct{})
	go func() {
		wg.Wait()
		close(joined)
	}()

	select {
	case <-joined:
	case <-ctx.Done():
		return Fields{}, ctx.Err()
	}

	if err := c.observe(errs); err != nil {
		return Fields{}, ffErrors.NewOperationError("fanout", "Derive", err)
	}
	return c.join(values), nil
}

// DeriveSequential computes the same fields as Derive on the calling
// goroutine.
func (c *Computer) DeriveSequential(base float64) (Fields, error) {
	values := make([]float64, len(c.fields))
	errs := make([]error, len(c.fields))
	for i, f := range c.fields {
		values[i], errs[i] = computeField(f, base)
	}

	if err := c.observe(errs); err != nil {
		return Fields{}, ffErrors.NewOperationError("fanout", "DeriveSequential", err)
	}
	return c.join(values), nil
}

func (c *Computer) join(values []float64) Fields {
	out := Fields{
		Names:  make([]string, len(c.fields)),
		Values: make(map[string]float64, len(c.fields)),
	}
	for i, f := range c.fields {
		out.Names[i] = f.Name
		out.Values[f.Name] = values[i]
	}
	return out
}

// observe records per-field outcomes and returns the joined field errors.
func (c *Computer) observe(errs []error) error {
	var failed []error
	for i, err := range errs {
		name := c.fields[i].Name
		if err != nil {
			failed = append(failed, err)
			c.logger.Warn("field failed", zap.String("field", name), zap.Error(err))
			if c.metrics != nil {
				c.metrics.FieldFailures.WithLabelValues(name).Inc()
			}
			continue
		}
		if c.metrics != nil {
			c.metrics.FieldsComputed.WithLabelValues(name).Inc()
		}
	}
	return errors.Join(failed...)
}

func computeField(f Field, base float64) (v float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("field %q panicked: %v", f.Name, r)
		}
	}()
	return f.Fn(base), nil
}
