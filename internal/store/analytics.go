package store

// Analytics is a point-in-time summary of the store. Field names match
// the administrative API payload.
type Analytics struct {
	TotalUsers        int     `json:"totalUsers"`
	OnlineUsers       int     `json:"onlineUsers"`
	TotalConnections  int     `json:"totalConnections"`
	ActiveConnections int     `json:"activeConnections"`
	TotalBills        int     `json:"totalBills"`
	PendingBills      int     `json:"pendingBills"`
	TotalRevenue      float64 `json:"totalRevenue"`
}

// Analytics scans the store fresh on every call; nothing is cached.
// Revenue counts only bills already paid.
func (s *Store) Analytics() Analytics {
	var a Analytics

	s.usersMu.RLock()
	a.TotalUsers = len(s.users)
	for _, u := range s.users {
		if u.Online {
			a.OnlineUsers++
		}
	}
	s.usersMu.RUnlock()

	s.connsMu.RLock()
	a.TotalConnections = len(s.conns)
	for _, c := range s.conns {
		if c.Status == ConnectionActive {
			a.ActiveConnections++
		}
	}
	s.connsMu.RUnlock()

	s.billsMu.RLock()
	a.TotalBills = len(s.bills)
	for _, b := range s.bills {
		switch b.Status {
		case BillPending:
			a.PendingBills++
		case BillPaid:
			a.TotalRevenue += b.Amount
		}
	}
	s.billsMu.RUnlock()

	return a
}
