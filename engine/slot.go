package engine

import (
	"sync"

	"github.com/tabql/tabql/domain/model"
)

// tableSlot holds the table currently bridged on one connection. The slot is
// the one sanctioned piece of shared mutable state between the engine and the
// bridge callbacks, which cannot take caller arguments. It is not reentrant:
// exactly one bridged query may hold it at a time.
type tableSlot struct {
	mu  sync.Mutex
	tbl *model.Table
}

// acquire installs tbl for the duration of one query and returns the release
// function. Release runs on every exit path, error paths included.
func (s *tableSlot) acquire(tbl *model.Table) (release func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tbl != nil {
		return nil, ErrBridgeBusy
	}
	s.tbl = tbl
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.tbl = nil
	}, nil
}

// current returns the bridged table, or ErrNoBridgedTable when the slot is
// empty. Callbacks consult the slot on every access rather than caching.
func (s *tableSlot) current() (*model.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tbl == nil {
		return nil, ErrNoBridgedTable
	}
	return s.tbl, nil
}
