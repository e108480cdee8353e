package store

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Store owns every domain record in memory and snapshots the persisted
// maps (users, connections, bills) to disk on mutation. Sessions and the
// two trackers live in the same instance but are volatile. Each map has
// its own lock; no operation spans more than one map under lock.
type Store struct {
	dataDir string
	log     *zap.Logger

	usersMu sync.RWMutex
	users   map[string]User

	connsMu sync.RWMutex
	conns   map[string]WaterConnection

	billsMu sync.RWMutex
	bills   map[string]Bill

	sessionsMu sync.RWMutex
	sessions   map[string]string // token -> userId

	progressMu sync.RWMutex
	progress   map[string]BillProgress

	statusMu sync.RWMutex
	status   map[string]ConnectionStatus
}

// Open loads snapshots from dataDir and seeds default records when no
// usable snapshot exists. It never fails: a missing or corrupt snapshot
// degrades to an empty store plus seeding.
func Open(dataDir string, log *zap.Logger) *Store {
	s := &Store{
		dataDir:  dataDir,
		log:      log,
		users:    make(map[string]User),
		conns:    make(map[string]WaterConnection),
		bills:    make(map[string]Bill),
		sessions: make(map[string]string),
		progress: make(map[string]BillProgress),
		status:   make(map[string]ConnectionStatus),
	}
	s.load()
	if len(s.users) == 0 {
		s.seed()
		s.Save()
	}
	return s
}

// seed installs the default admin and sample records on first run.
func (s *Store) seed() {
	admin := NewUser("admin", "admin", "admin123", "admin@water.com", "1234567890", "Admin Office", RoleAdmin)
	s.users[admin.UserID] = admin

	sample := NewUser("user1", "john", "john123", "john@example.com", "9876543210", "123 Main St", RoleUser)
	s.users[sample.UserID] = sample

	conn := NewConnection("C001", "user1", "domestic", "MTR001")
	conn.PreviousReading = conn.CurrentReading
	conn.CurrentReading = 100
	s.conns[conn.ConnectionID] = conn
	s.status[conn.ConnectionID] = NewConnectionStatus(conn.ConnectionID)

	s.log.Info("seeded default records", zap.Int("users", len(s.users)), zap.Int("connections", len(s.conns)))
}

// Authenticate scans for an exact username/password match. Both fields
// are case-sensitive; comparison is plain equality.
func (s *Store) Authenticate(username, password string) (User, bool) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	for _, u := range s.users {
		if u.Username == username && u.Password == password {
			return u, true
		}
	}
	return User{}, false
}

// Register inserts a new user. It fails when the user id is taken or any
// existing user already holds the username.
func (s *Store) Register(u User) bool {
	s.usersMu.Lock()
	if _, exists := s.users[u.UserID]; exists {
		s.usersMu.Unlock()
		return false
	}
	for _, existing := range s.users {
		if existing.Username == u.Username {
			s.usersMu.Unlock()
			return false
		}
	}
	s.users[u.UserID] = u
	s.usersMu.Unlock()

	s.Save()
	return true
}

// GetUser returns the user with the given id.
func (s *Store) GetUser(userID string) (User, bool) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	u, ok := s.users[userID]
	return u, ok
}

// Users returns a copy of all users in unspecified order.
func (s *Store) Users() []User {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out
}

func (s *Store) setUserOnline(userID string, online bool) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.Online = online
		s.users[userID] = u
	}
}

// AddConnection upserts a connection by id and resets its health status
// to the online default.
func (s *Store) AddConnection(conn WaterConnection) bool {
	s.connsMu.Lock()
	s.conns[conn.ConnectionID] = conn
	s.connsMu.Unlock()

	s.statusMu.Lock()
	s.status[conn.ConnectionID] = NewConnectionStatus(conn.ConnectionID)
	s.statusMu.Unlock()

	s.Save()
	return true
}

// ConnectionsForUser returns the connections owned by userID.
func (s *Store) ConnectionsForUser(userID string) []WaterConnection {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	var out []WaterConnection
	for _, c := range s.conns {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out
}

// Connections returns a copy of all connections in unspecified order.
func (s *Store) Connections() []WaterConnection {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	out := make([]WaterConnection, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c)
	}
	return out
}

// GetConnection returns the connection with the given id.
func (s *Store) GetConnection(connectionID string) (WaterConnection, bool) {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	c, ok := s.conns[connectionID]
	return c, ok
}

// SetCurrentReading records a new meter reading. The prior current value
// always shifts into previousReading before being overwritten, so the
// delta needed for billing is never lost. Does not snapshot.
func (s *Store) SetCurrentReading(connectionID string, reading float64) (WaterConnection, bool) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	c, ok := s.conns[connectionID]
	if !ok {
		return WaterConnection{}, false
	}
	c.PreviousReading = c.CurrentReading
	c.CurrentReading = reading
	c.LastUpdated = Now()
	s.conns[connectionID] = c
	return c, true
}

// SetConnectionState changes a connection's lifecycle status and bumps
// lastUpdated. Does not snapshot.
func (s *Store) SetConnectionState(connectionID, status string) bool {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	c, ok := s.conns[connectionID]
	if !ok {
		return false
	}
	c.Status = status
	c.LastUpdated = Now()
	s.conns[connectionID] = c
	return true
}

// AddBill upserts a bill by id.
func (s *Store) AddBill(b Bill) bool {
	s.billsMu.Lock()
	s.bills[b.BillID] = b
	s.billsMu.Unlock()

	s.Save()
	return true
}

// BillsForUser returns the user's bills, most recent bill date first.
func (s *Store) BillsForUser(userID string) []Bill {
	s.billsMu.RLock()
	var out []Bill
	for _, b := range s.bills {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	s.billsMu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].BillDate.After(out[j].BillDate.Time)
	})
	return out
}

// Bills returns a copy of all bills in unspecified order.
func (s *Store) Bills() []Bill {
	s.billsMu.RLock()
	defer s.billsMu.RUnlock()
	out := make([]Bill, 0, len(s.bills))
	for _, b := range s.bills {
		out = append(out, b)
	}
	return out
}

// GetBill returns the bill with the given id.
func (s *Store) GetBill(billID string) (Bill, bool) {
	s.billsMu.RLock()
	defer s.billsMu.RUnlock()
	b, ok := s.bills[billID]
	return b, ok
}

// MarkBillPaid settles a bill, stamping the payment date. Does not
// snapshot.
func (s *Store) MarkBillPaid(billID string) (Bill, bool) {
	s.billsMu.Lock()
	defer s.billsMu.Unlock()
	b, ok := s.bills[billID]
	if !ok {
		return Bill{}, false
	}
	paid := Now()
	b.Status = BillPaid
	b.PaymentDate = &paid
	s.bills[billID] = b
	return b, true
}

// SetBillState changes a bill's status only. Does not snapshot.
func (s *Store) SetBillState(billID, status string) bool {
	s.billsMu.Lock()
	defer s.billsMu.Unlock()
	b, ok := s.bills[billID]
	if !ok {
		return false
	}
	b.Status = status
	s.bills[billID] = b
	return true
}
