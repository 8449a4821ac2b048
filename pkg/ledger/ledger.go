// Package ledger records the pattern keys accepted during a generation run.
//
// A [Ledger] is the only mutable state shared by all generation workers.
// Reserve performs membership check and insertion as one indivisible step,
// so two workers racing on the same key can never both succeed. Keys are
// never removed for the lifetime of a run.
package ledger

import (
	"context"
	"sync"
)

// Ledger is a set of reserved pattern keys.
type Ledger interface {
	// Reserve inserts key if it is not present and reports whether this call
	// inserted it. A false result means another attempt already owns the key.
	Reserve(ctx context.Context, key string) (bool, error)

	// Len returns the number of reserved keys.
	Len(ctx context.Context) (int64, error)

	// Close releases backend resources.
	Close() error
}

// Memory is an in-process ledger guarded by a single mutex.
// The lock is held only for the check-and-insert itself.
type Memory struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{keys: make(map[string]struct{})}
}

// TryReserve is the context-free form of Reserve.
func (m *Memory) TryReserve(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false
	}
	m.keys[key] = struct{}{}
	return true
}

// Reserve implements Ledger. It never fails.
func (m *Memory) Reserve(_ context.Context, key string) (bool, error) {
	return m.TryReserve(key), nil
}

// Len implements Ledger.
func (m *Memory) Len(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.keys)), nil
}

// Contains reports whether key has been reserved.
func (m *Memory) Contains(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keys[key]
	return ok
}

// Close does nothing for the in-memory ledger.
func (m *Memory) Close() error {
	return nil
}

// Ensure Memory implements Ledger.
var _ Ledger = (*Memory)(nil)
