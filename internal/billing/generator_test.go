package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hydrobill.org/internal/store"
)

func newTestGenerator(t *testing.T, tariff float64) (*Generator, *store.Store) {
	t.Helper()
	st := store.Open(t.TempDir(), zap.NewNop())
	g := NewGenerator(st, zap.NewNop(), tariff)
	g.StepDelay = 0
	return g, st
}

func TestGenerateBillFromConsumptionDelta(t *testing.T) {
	g, st := newTestGenerator(t, 2.0)

	// Seeded connection C001 starts at 100; a new reading of 150
	// leaves a 50-unit delta.
	_, ok := st.SetCurrentReading("C001", 150)
	require.True(t, ok)

	billID := g.Start("C001", "admin")
	require.NotEmpty(t, billID)

	require.Eventually(t, func() bool {
		p, ok := st.GetBillProgress(billID)
		return ok && p.Status == store.ProgressCompleted
	}, 3*time.Second, 10*time.Millisecond)

	p, _ := st.GetBillProgress(billID)
	require.Equal(t, 100, p.Progress)

	bill, ok := st.GetBill(billID)
	require.True(t, ok)
	require.Equal(t, 50.0, bill.UnitsConsumed)
	require.Equal(t, 100.0, bill.Amount)
	require.Equal(t, "user1", bill.UserID)
	require.Equal(t, "admin", bill.GeneratedBy)
	require.Equal(t, store.BillPending, bill.Status)
	require.True(t, bill.DueDate.Equal(bill.BillDate.Add(store.DueAfter)))
}

func TestGenerateBillUnknownConnectionFails(t *testing.T) {
	g, st := newTestGenerator(t, 2.0)

	billID := g.Start("nope", "admin")

	require.Eventually(t, func() bool {
		p, ok := st.GetBillProgress(billID)
		return ok && p.Status == store.ProgressFailed
	}, 3*time.Second, 10*time.Millisecond)

	_, ok := st.GetBill(billID)
	require.False(t, ok)
}

func TestSweepMarksOverdueBills(t *testing.T) {
	st := store.Open(t.TempDir(), zap.NewNop())
	sweeper := NewSweeper(st, zap.NewNop())

	now := time.Now()
	overdue := store.NewBill("B1", "C001", "user1", 10, 25)
	overdue.BillDate = store.LocalTime{Time: now.Add(-40 * 24 * time.Hour)}
	overdue.DueDate = store.LocalTime{Time: now.Add(-10 * 24 * time.Hour)}
	st.AddBill(overdue)

	current := store.NewBill("B2", "C001", "user1", 10, 25)
	st.AddBill(current)

	paid := store.NewBill("B3", "C001", "user1", 10, 25)
	paid.BillDate = overdue.BillDate
	paid.DueDate = overdue.DueDate
	st.AddBill(paid)
	st.MarkBillPaid("B3")

	require.Equal(t, 1, sweeper.Sweep(now))

	b1, _ := st.GetBill("B1")
	require.Equal(t, store.BillOverdue, b1.Status)
	b2, _ := st.GetBill("B2")
	require.Equal(t, store.BillPending, b2.Status)
	b3, _ := st.GetBill("B3")
	require.Equal(t, store.BillPaid, b3.Status)

	// A second sweep has nothing left to flip.
	require.Equal(t, 0, sweeper.Sweep(now))
}

func TestSweepRefreshesConnectionStatuses(t *testing.T) {
	st := store.Open(t.TempDir(), zap.NewNop())
	sweeper := NewSweeper(st, zap.NewNop())

	probeTime := time.Now().Add(time.Hour)
	sweeper.Sweep(probeTime)

	status := st.GetConnectionStatus("C001")
	require.True(t, status.LastChecked.Equal(probeTime))
	require.True(t, status.Online)
}
