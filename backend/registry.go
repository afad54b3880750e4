package backend

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/tabql/tabql/domain/model"
)

// Registry is the process directory of backends. Each backend registers
// under its name and claims the identifier schemes it serves; queries route
// by parsing the source identifier's scheme.
type Registry struct {
	mu      sync.Mutex
	byName  map[string]*Vtable
	schemes map[Scheme]*Vtable
	log     *zap.Logger
}

// NewRegistry returns an empty registry. Pass nil to disable logging.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		byName:  make(map[string]*Vtable),
		schemes: make(map[Scheme]*Vtable),
		log:     log,
	}
}

// Register validates v and binds it to the given schemes. A later
// registration for the same scheme replaces the earlier one; a duplicate
// name is refused.
func (r *Registry) Register(v *Vtable, schemes ...Scheme) error {
	if err := Validate(v); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[v.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateBackend, v.Name)
	}
	r.byName[v.Name] = v
	for _, s := range schemes {
		r.schemes[s] = v
	}
	r.log.Debug("backend registered", zap.String("name", v.Name))
	return nil
}

// Backend returns the backend registered under name.
func (r *Registry) Backend(name string) (*Vtable, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.byName[name]
	return v, ok
}

// Route picks the backend serving sourceID's scheme.
func (r *Registry) Route(sourceID string) (*Vtable, error) {
	id, err := ParseSourceID(sourceID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.schemes[id.Scheme]
	if !ok {
		return nil, fmt.Errorf("%w: no backend for %q", ErrUnknownScheme, sourceID)
	}
	return v, nil
}

// Query routes sourceID, runs the query through the protocol and drains the
// result into a table. The handle is released before returning.
func (r *Registry) Query(sourceID, query string) (*model.Table, error) {
	v, err := r.Route(sourceID)
	if err != nil {
		return nil, err
	}

	h := v.Query(query, sourceID)
	if h == NullHandle {
		return nil, fmt.Errorf("%w: backend %q on %q (see debug log)", ErrQueryFailed, v.Name, sourceID)
	}
	defer v.ResultFree(h)

	tbl := ResultTable(v, h)
	if tbl == nil {
		return nil, fmt.Errorf("%w: backend %q returned an unreadable handle", ErrQueryFailed, v.Name)
	}
	return tbl, nil
}

// Save routes sourceID and writes the query result to destPath.
func (r *Registry) Save(sourceID, query, destPath string) error {
	v, err := r.Route(sourceID)
	if err != nil {
		return err
	}
	return v.Save(query, sourceID, destPath)
}

// Validate checks a backend's protocol version and operation table.
func Validate(v *Vtable) error {
	if !v.complete() {
		return ErrIncompleteVtable
	}
	if v.Version != ProtocolVersion {
		return fmt.Errorf("%w: backend %q speaks version %d, want %d",
			ErrVersionMismatch, v.Name, v.Version, ProtocolVersion)
	}
	return nil
}
