package billing

import (
	"time"

	"go.uber.org/zap"

	"hydrobill.org/internal/store"
)

// Sweeper is the periodic maintenance job: it flips pending bills past
// their due date to overdue and refreshes the health entry of every
// known connection. It implements cron.Job.
type Sweeper struct {
	store *store.Store
	log   *zap.Logger
}

// NewSweeper builds a sweeper over st.
func NewSweeper(st *store.Store, log *zap.Logger) *Sweeper {
	return &Sweeper{store: st, log: log}
}

// Run executes one sweep at the current time.
func (s *Sweeper) Run() {
	s.Sweep(time.Now())
}

// Sweep marks overdue bills as of now and probes connections. It
// returns how many bills were flipped; a snapshot is written only when
// something changed.
func (s *Sweeper) Sweep(now time.Time) int {
	flipped := 0
	for _, b := range s.store.Bills() {
		if b.Status == store.BillPending && now.After(b.DueDate.Time) {
			if s.store.SetBillState(b.BillID, store.BillOverdue) {
				flipped++
			}
		}
	}
	if flipped > 0 {
		s.store.Save()
		s.log.Info("marked overdue bills", zap.Int("count", flipped))
	}

	for _, c := range s.store.Connections() {
		st := s.store.GetConnectionStatus(c.ConnectionID)
		st.LastChecked = now
		s.store.SetConnectionStatus(st)
	}
	return flipped
}
