package backend

import (
	"sync"

	"github.com/tabql/tabql/domain/model"
)

// handleArena maps opaque handles onto cache-owned tables. Freeing a handle
// only drops the index entry; the table stays alive in its cache, so a
// double free or a free of an unknown handle is harmless.
type handleArena struct {
	mu   sync.Mutex
	next int64
	m    map[Handle]*model.Table
}

func newHandleArena() *handleArena {
	return &handleArena{m: make(map[Handle]*model.Table)}
}

// put indexes tbl and returns its handle. Handle values start at 1 so
// NullHandle never collides.
func (a *handleArena) put(tbl *model.Table) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	h := Handle(a.next)
	a.m[h] = tbl
	return h
}

// get returns the table behind h, or nil when unknown.
func (a *handleArena) get(h Handle) *model.Table {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.m[h]
}

// free drops the index entry. Idempotent.
func (a *handleArena) free(h Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.m, h)
}
