package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Snapshot file names, one per persisted entity type. Each holds a
// pretty-printed JSON object mapping id to record and is rewritten
// wholesale on every save. The format is shared with the legacy system.
const (
	usersFile       = "users.json"
	connectionsFile = "connections.json"
	billsFile       = "bills.json"
)

// Save serializes the three persisted maps to disk. A write failure is
// logged and swallowed: the in-memory mutation that triggered the save
// has already succeeded and must not be rolled back.
func (s *Store) Save() {
	s.usersMu.RLock()
	users := make(map[string]User, len(s.users))
	for k, v := range s.users {
		users[k] = v
	}
	s.usersMu.RUnlock()

	s.connsMu.RLock()
	conns := make(map[string]WaterConnection, len(s.conns))
	for k, v := range s.conns {
		conns[k] = v
	}
	s.connsMu.RUnlock()

	s.billsMu.RLock()
	bills := make(map[string]Bill, len(s.bills))
	for k, v := range s.bills {
		bills[k] = v
	}
	s.billsMu.RUnlock()

	if err := writeSnapshot(filepath.Join(s.dataDir, usersFile), users); err != nil {
		s.log.Error("write users snapshot", zap.Error(err))
	}
	if err := writeSnapshot(filepath.Join(s.dataDir, connectionsFile), conns); err != nil {
		s.log.Error("write connections snapshot", zap.Error(err))
	}
	if err := writeSnapshot(filepath.Join(s.dataDir, billsFile), bills); err != nil {
		s.log.Error("write bills snapshot", zap.Error(err))
	}
}

// load restores the persisted maps. A missing file is a normal first
// run; an unreadable one degrades to an empty map. Neither aborts.
func (s *Store) load() {
	s.users = loadSnapshot[User](filepath.Join(s.dataDir, usersFile), s.log)
	s.conns = loadSnapshot[WaterConnection](filepath.Join(s.dataDir, connectionsFile), s.log)
	s.bills = loadSnapshot[Bill](filepath.Join(s.dataDir, billsFile), s.log)
}

func writeSnapshot[T any](path string, records map[string]T) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func loadSnapshot[T any](path string, log *zap.Logger) map[string]T {
	out := make(map[string]T)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn("read snapshot", zap.String("path", path), zap.Error(err))
		}
		return out
	}
	if err := json.Unmarshal(data, &out); err != nil {
		log.Warn("decode snapshot, starting empty", zap.String("path", path), zap.Error(err))
		return make(map[string]T)
	}
	return out
}
