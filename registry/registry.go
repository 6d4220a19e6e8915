package registry

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jfabienke/3com-packet-driver-sub011/errors"
)

// Registry is the immutable module catalog. It preserves descriptor order
// for deterministic iteration.
type Registry struct {
	order []ID
	byID  map[ID]*Descriptor
	byRef map[uint8]*Descriptor
}

// New builds a registry from descriptors, binding each to its module blob
// and computing hot sizes. It fails if any descriptor or module header
// violates an invariant.
func New(descs []*Descriptor) (*Registry, error) {
	r := &Registry{
		byID:  make(map[ID]*Descriptor, len(descs)),
		byRef: make(map[uint8]*Descriptor, len(descs)),
	}
	for _, d := range descs {
		if err := d.validate(); err != nil {
			return nil, errors.New(errors.StageRegistry, errors.KindBadModule).
				Module(string(d.ID)).Cause(err).Detail("descriptor rejected").Build()
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, errors.New(errors.StageRegistry, errors.KindBadModule).
				Module(string(d.ID)).Detail("duplicate module id").Build()
		}
		if _, dup := r.byRef[d.Ref]; dup {
			return nil, errors.New(errors.StageRegistry, errors.KindBadModule).
				Module(string(d.ID)).Detail("duplicate module ref %d", d.Ref).Build()
		}
		d.HotSize = d.Module.Header.HotSize()
		r.order = append(r.order, d.ID)
		r.byID[d.ID] = d
		r.byRef[d.Ref] = d

		Logger().Debug("registered module",
			zap.String("id", string(d.ID)),
			zap.Uint8("ref", d.Ref),
			zap.Stringer("category", d.Category),
			zap.Uint16("hot_size", d.HotSize))
	}
	return r, nil
}

// Lookup returns the descriptor for id. Unknown ids are a programmer error.
func (r *Registry) Lookup(id ID) *Descriptor {
	d, ok := r.byID[id]
	if !ok {
		panic(fmt.Sprintf("registry: unknown module id %q", id))
	}
	return d
}

// Contains reports whether id is registered.
func (r *Registry) Contains(id ID) bool {
	_, ok := r.byID[id]
	return ok
}

// LookupRef resolves a wire reference (as used by relocation targets).
func (r *Registry) LookupRef(ref uint8) (*Descriptor, bool) {
	d, ok := r.byRef[ref]
	return d, ok
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	return len(r.order)
}

// All iterates descriptors in registration order.
func (r *Registry) All(fn func(*Descriptor) bool) {
	for _, id := range r.order {
		if !fn(r.byID[id]) {
			return
		}
	}
}
