package backend

import (
	"sync"

	"github.com/tabql/tabql/domain/model"
)

// MemoryTables is the in-process registration table behind memory:<id>
// source identifiers.
type MemoryTables struct {
	mu           sync.Mutex
	next         int64
	m            map[int64]*model.Table
	onUnregister []func()
}

// NewMemoryTables returns an empty registration table.
func NewMemoryTables() *MemoryTables {
	return &MemoryTables{m: make(map[int64]*model.Table)}
}

// Register stores tbl and returns its numeric id.
func (m *MemoryTables) Register(tbl *model.Table) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.m[m.next] = tbl
	return m.next
}

// Get returns the table registered under id.
func (m *MemoryTables) Get(id int64) (*model.Table, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tbl, ok := m.m[id]
	return tbl, ok
}

// OnUnregister registers fn to run after every Unregister. Backends use it
// to drop cached results that may reference the removed table.
func (m *MemoryTables) OnUnregister(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUnregister = append(m.onUnregister, fn)
}

// Unregister removes id. Safe on unknown ids.
func (m *MemoryTables) Unregister(id int64) {
	m.mu.Lock()
	delete(m.m, id)
	fns := append([]func(){}, m.onUnregister...)
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
