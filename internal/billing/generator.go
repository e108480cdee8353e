package billing

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"hydrobill.org/internal/ids"
	"hydrobill.org/internal/store"
)

// Generator produces bills from a connection's consumption delta. Each
// run is asynchronous and reports through the store's progress tracker,
// which the admin UI polls while generation is underway.
type Generator struct {
	store  *store.Store
	log    *zap.Logger
	tariff float64

	// StepDelay paces the progress updates so polling clients see
	// intermediate values. Zero disables pacing.
	StepDelay time.Duration
}

// NewGenerator builds a generator charging tariff per unit consumed.
func NewGenerator(st *store.Store, log *zap.Logger, tariff float64) *Generator {
	return &Generator{
		store:     st,
		log:       log,
		tariff:    tariff,
		StepDelay: 200 * time.Millisecond,
	}
}

// Start allocates a bill id, registers an in-progress tracker entry and
// kicks off generation in the background. The returned id is what
// callers poll the tracker with.
func (g *Generator) Start(connectionID, generatedBy string) string {
	billID := ids.New()
	g.store.SetBillProgress(billID, store.NewBillProgress(billID))
	go g.run(billID, connectionID, generatedBy)
	return billID
}

func (g *Generator) run(billID, connectionID, generatedBy string) {
	conn, ok := g.store.GetConnection(connectionID)
	if !ok {
		g.fail(billID, fmt.Sprintf("connection %s not found", connectionID))
		return
	}

	g.step(billID, 25, "Reading meter data...")
	units := conn.CurrentReading - conn.PreviousReading

	g.step(billID, 50, "Calculating consumption...")
	amount := units * g.tariff

	g.step(billID, 75, "Preparing bill...")
	bill := store.NewBill(billID, connectionID, conn.UserID, units, amount)
	bill.GeneratedBy = generatedBy
	g.store.AddBill(bill)

	p, _ := g.store.GetBillProgress(billID)
	p.Progress = 100
	p.Status = store.ProgressCompleted
	p.Message = "Bill generated"
	g.store.SetBillProgress(billID, p)

	g.log.Info("bill generated",
		zap.String("bill_id", billID),
		zap.String("connection_id", connectionID),
		zap.Float64("units", units),
		zap.Float64("amount", amount),
	)
}

func (g *Generator) step(billID string, progress int, message string) {
	p, _ := g.store.GetBillProgress(billID)
	p.BillID = billID
	p.Progress = progress
	p.Message = message
	g.store.SetBillProgress(billID, p)
	if g.StepDelay > 0 {
		time.Sleep(g.StepDelay)
	}
}

func (g *Generator) fail(billID, message string) {
	p, _ := g.store.GetBillProgress(billID)
	p.BillID = billID
	p.Status = store.ProgressFailed
	p.Message = message
	g.store.SetBillProgress(billID, p)
	g.log.Warn("bill generation failed", zap.String("bill_id", billID), zap.String("reason", message))
}
