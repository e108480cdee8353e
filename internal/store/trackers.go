package store

// GetBillProgress returns the generation tracker for a bill, if any.
func (s *Store) GetBillProgress(billID string) (BillProgress, bool) {
	s.progressMu.RLock()
	defer s.progressMu.RUnlock()
	p, ok := s.progress[billID]
	return p, ok
}

// SetBillProgress stores a tracker entry. The progress value is clamped
// to [0,100] on every write, whatever the caller passed in.
func (s *Store) SetBillProgress(billID string, p BillProgress) {
	p.Progress = clampProgress(p.Progress)

	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	s.progress[billID] = p
}

// GetConnectionStatus returns the last observed health of a connection.
// A connection never probed reads as online with no error, so callers
// have no "not yet seen" case to handle.
func (s *Store) GetConnectionStatus(connectionID string) ConnectionStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	if st, ok := s.status[connectionID]; ok {
		return st
	}
	return NewConnectionStatus(connectionID)
}

// SetConnectionStatus records a health observation for a connection.
func (s *Store) SetConnectionStatus(st ConnectionStatus) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status[st.ConnectionID] = st
}
