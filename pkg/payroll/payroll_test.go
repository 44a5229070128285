package payroll

import (
	"context"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ffErrors "github.com/vnykmshr/fanflow/pkg/common/errors"
	"github.com/vnykmshr/fanflow/pkg/metrics"
)

func TestDerive(t *testing.T) {
	d, err := NewDeriver(DefaultPolicy())
	require.NoError(t, err)

	got, err := d.Derive(context.Background(), Record{ID: "Alice", Base: 25000})
	require.NoError(t, err)

	assert.Equal(t, DerivedRecord{
		ID:             "Alice",
		Base:           25000,
		SSS:            1125,
		PhilHealth:     625,
		PagIBIG:        5000,
		Tax:            625,
		TotalDeduction: 7375,
		Net:            17625,
	}, got)
	assert.NoError(t, got.Verify())
}

func TestDeriveCanceled(t *testing.T) {
	d, err := NewDeriver(DefaultPolicy())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = d.Derive(ctx, Record{ID: "x", Base: 100})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewDeriverRejectsInvalidPolicy(t *testing.T) {
	p := DefaultPolicy()
	p.Brackets = nil

	d, err := NewDeriver(p)
	assert.Nil(t, d)
	assert.True(t, ffErrors.IsValidationError(err))
}

func TestVerify(t *testing.T) {
	good := DerivedRecord{ID: "a", Base: 100, SSS: 5, PhilHealth: 3, PagIBIG: 10, Tax: 0, TotalDeduction: 18, Net: 82}
	assert.NoError(t, good.Verify())

	badTotal := good
	badTotal.TotalDeduction = 17
	assert.Error(t, badTotal.Verify())

	badNet := good
	badNet.Net = 80
	assert.Error(t, badNet.Verify())
}

func TestBatchPreservesOrder(t *testing.T) {
	records := SampleRecords()

	for _, maxConcurrent := range []int{0, 1, 2, 5, 10} {
		out, err := Batch(context.Background(), records, BatchOptions{MaxConcurrent: maxConcurrent})
		require.NoError(t, err)
		require.Len(t, out, len(records))

		for i, r := range records {
			assert.Equal(t, r.ID, out[i].ID, "max=%d index=%d", maxConcurrent, i)
			assert.Equal(t, r.Base, out[i].Base)
			assert.NoError(t, out[i].Verify())
		}
	}
}

func TestBatchMatchesSequentialDerivation(t *testing.T) {
	d, err := NewDeriver(DefaultPolicy())
	require.NoError(t, err)

	records := make([]Record, 50)
	for i := range records {
		records[i] = Record{ID: string(rune('A'+i%26)) + string(rune('a'+i/26)), Base: float64(1000 + i*997)}
	}

	out, err := d.Batch(context.Background(), records, 4)
	require.NoError(t, err)

	for i, r := range records {
		want, err := d.Derive(context.Background(), r)
		require.NoError(t, err)
		assert.Equal(t, want, out[i])
	}
}

func TestBatchSampleValues(t *testing.T) {
	out, err := Batch(context.Background(), SampleRecords()[:2], BatchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 17625.0, out[0].Net)
	assert.Equal(t, DerivedRecord{
		ID: "Bob", Base: 32000, SSS: 1440, PhilHealth: 800, PagIBIG: 6400, Tax: 1675,
		TotalDeduction: 10315, Net: 21685,
	}, out[1])
}

func TestBatchEmptyAndInvalid(t *testing.T) {
	out, err := Batch(context.Background(), nil, BatchOptions{})
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = Batch(context.Background(), SampleRecords(), BatchOptions{MaxConcurrent: -1})
	assert.True(t, ffErrors.IsValidationError(err))
}

func TestBatchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := Batch(ctx, SampleRecords(), BatchOptions{MaxConcurrent: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, out, 5)
	assert.Equal(t, DerivedRecord{}, out[0])
}

func TestBatchMetrics(t *testing.T) {
	m, _ := metrics.NewIsolated()
	d, err := NewDeriver(DefaultPolicy(), WithMetrics(m))
	require.NoError(t, err)

	_, err = d.Batch(context.Background(), SampleRecords(), 2)
	require.NoError(t, err)

	assert.Equal(t, 5.0, promtest.ToFloat64(m.RecordsDerived.WithLabelValues("payroll")))
	assert.Equal(t, 5.0, promtest.ToFloat64(m.FieldsComputed.WithLabelValues(FieldTax)))
	assert.Equal(t, 0.0, promtest.ToFloat64(m.ConcurrencyActive.WithLabelValues("payroll")))
}

func TestValidateRecords(t *testing.T) {
	require.NoError(t, ValidateRecords(SampleRecords()))
	require.NoError(t, ValidateRecords(nil))

	tests := []struct {
		name    string
		records []Record
	}{
		{"empty id", []Record{{ID: "", Base: 1}}},
		{"negative base", []Record{{ID: "a", Base: -1}}},
		{"duplicate id", []Record{{ID: "a", Base: 1}, {ID: "a", Base: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecords(tt.records)
			assert.True(t, ffErrors.IsValidationError(err), "got %v", err)
		})
	}
}
