package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/fanflow/internal/testutil"
	"github.com/vnykmshr/fanflow/pkg/aggregate"
	"github.com/vnykmshr/fanflow/pkg/partition"
	"github.com/vnykmshr/fanflow/pkg/payroll"
)

var alice = payroll.DerivedRecord{
	ID:             "Alice",
	Base:           25000,
	SSS:            1125,
	PhilHealth:     625,
	PagIBIG:        5000,
	Tax:            625,
	TotalDeduction: 7375,
	Net:            17625,
}

func TestAmount(t *testing.T) {
	assert.Equal(t, "25,000.00", Amount(25000))
	assert.Equal(t, "0.00", Amount(0))
	assert.Equal(t, "1,234,567.89", Amount(1234567.891))
	assert.Equal(t, "86.25", Amount(86.25))
}

func TestPayslip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Payslip(&buf, alice))

	want := strings.Join([]string{
		"========================================",
		"      PAYSLIP - DEDUCTION SUMMARY",
		"========================================",
		"Employee                       Alice",
		"Description                   Amount",
		"----------------------------------------",
		"Gross Salary               25,000.00",
		"SSS                         1,125.00",
		"PhilHealth                    625.00",
		"Pag-IBIG                    5,000.00",
		"Income Tax                    625.00",
		"----------------------------------------",
		"Total Deductions            7,375.00",
		"NET PAY                    17,625.00",
		"========================================",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), Width)
	}
}

func TestPayslipWriteError(t *testing.T) {
	boom := errors.New("broken pipe")
	w := testutil.NewMockWriter()
	w.SetAlwaysError(boom)

	err := Payslip(w, alice)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, w.WriteCount(), "rendering should stop after the first failed write")
}

func TestPayrollTable(t *testing.T) {
	bob := payroll.DerivedRecord{
		ID: "Bob", Base: 32000, SSS: 1440, PhilHealth: 800, PagIBIG: 6400, Tax: 1675,
		TotalDeduction: 10315, Net: 21685,
	}

	var buf bytes.Buffer
	require.NoError(t, PayrollTable(&buf, []payroll.DerivedRecord{alice, bob}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "Employee"))
	assert.True(t, strings.HasPrefix(lines[2], "Alice"))
	assert.True(t, strings.HasPrefix(lines[3], "Bob"))
	assert.Contains(t, lines[2], "17,625.00")
	assert.Contains(t, lines[3], "21,685.00")
	assert.True(t, strings.HasPrefix(lines[5], "Total (2)"))
	assert.Contains(t, lines[5], "57,000.00")
	assert.Contains(t, lines[5], "17,690.00")
	assert.Contains(t, lines[5], "39,310.00")
}

func TestPayrollTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PayrollTable(&buf, nil))
	assert.Contains(t, buf.String(), "Total (0)")
}

func TestGWASummary(t *testing.T) {
	res := aggregate.Result{
		RunID: "run-1",
		Sum:   345,
		Count: 4,
		Partials: []aggregate.Partial{
			{Chunk: partition.Chunk{Index: 0, Start: 0, End: 2}, Sum: 175, Count: 2},
			{Chunk: partition.Chunk{Index: 1, Start: 2, End: 4}, Sum: 170, Count: 2},
		},
		Failures: []aggregate.ChunkError{
			{Chunk: partition.Chunk{Index: 2, Start: 4, End: 6}, Err: errors.New("worker crashed")},
		},
		Duration: 3 * time.Millisecond,
	}

	var buf bytes.Buffer
	require.NoError(t, GWASummary(&buf, res))
	out := buf.String()

	assert.Contains(t, out, "Run run-1\n")
	assert.Contains(t, out, "chunk#0[0:2)")
	assert.Contains(t, out, "mean 87.50")
	assert.Contains(t, out, "mean 85.00")
	assert.Contains(t, out, "chunk#2[4:6)   failed: worker crashed")
	assert.Contains(t, out, "Total count: 4\n")
	assert.Contains(t, out, "Final GWA:   86.25\n")
	assert.Contains(t, out, "Elapsed:     3ms\n")
}

func TestGWASummaryUndefined(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, GWASummary(&buf, aggregate.Result{}))
	assert.Equal(t, "Total count: 0\nTotal sum:   0.00\nFinal GWA:   undefined (no values)\n", buf.String())
}
