package payroll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	ffErrors "github.com/vnykmshr/fanflow/pkg/common/errors"
	"github.com/vnykmshr/fanflow/pkg/ratelimit/concurrency"
)

// BatchOptions controls batch derivation.
type BatchOptions struct {
	// MaxConcurrent bounds how many records are derived at once.
	// Zero allows one slot per record.
	MaxConcurrent int

	// Deriver overrides the default-policy deriver.
	Deriver *Deriver
}

// Batch derives every record with the default policy unless opts.Deriver
// is set. See Deriver.Batch.
func Batch(ctx context.Context, records []Record, opts BatchOptions) ([]DerivedRecord, error) {
	d := opts.Deriver
	if d == nil {
		var err error
		if d, err = NewDeriver(DefaultPolicy()); err != nil {
			return nil, err
		}
	}
	return d.Batch(ctx, records, opts.MaxConcurrent)
}

// Batch derives records concurrently with at most maxConcurrent records in
// flight. Each record runs its own independent field fan-out. The output
// has the same order as records. A record that fails leaves a zero value
// at its index and its error is reported in the joined result error.
func (d *Deriver) Batch(ctx context.Context, records []Record, maxConcurrent int) ([]DerivedRecord, error) {
	if maxConcurrent < 0 {
		return nil, ffErrors.NewValidationError("payroll", "MaxConcurrent", maxConcurrent, "cannot be negative").
			WithHint("use 0 for one slot per record")
	}
	if len(records) == 0 {
		return []DerivedRecord{}, nil
	}
	if maxConcurrent == 0 || maxConcurrent > len(records) {
		maxConcurrent = len(records)
	}

	limiter, err := concurrency.NewWithConfig(concurrency.Config{
		Name:             "payroll",
		Capacity:         maxConcurrent,
		InitialAvailable: -1,
		Metrics:          d.metrics,
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out := make([]DerivedRecord, len(records))
	errs := make([]error, len(records))

	var wg sync.WaitGroup
	for i, r := range records {
		wg.Add(1)
		go func(i int, r Record) {
			defer wg.Done()
			errs[i] = limiter.Do(ctx, func(ctx context.Context) error {
				derived, err := d.Derive(ctx, r)
				if err != nil {
					return err
				}
				out[i] = derived
				return nil
			})
			if errs[i] != nil {
				errs[i] = fmt.Errorf("record %q: %w", r.ID, errs[i])
			}
		}(i, r)
	}
	wg.Wait()

	d.logger.Info("batch derived",
		zap.Int("records", len(records)),
		zap.Int("max_concurrent", maxConcurrent),
		zap.Duration("duration", time.Since(start)),
	)

	if err := errors.Join(errs...); err != nil {
		return out, ffErrors.NewOperationError("payroll", "Batch", err)
	}
	return out, nil
}
