package selection

import (
	"go.uber.org/zap"

	"github.com/jfabienke/3com-packet-driver-sub011/errors"
	"github.com/jfabienke/3com-packet-driver-sub011/hardware"
	"github.com/jfabienke/3com-packet-driver-sub011/registry"
)

// MaxModules bounds a selection. The legacy loader reserved a 48-entry
// selection table.
const MaxModules = 48

// Selection is the ordered, deduplicated list of chosen modules. It is
// built once per install run and treated as immutable after Validate.
type Selection struct {
	reg      *registry.Registry
	ids      []registry.ID
	selected map[registry.ID]struct{}

	// TotalHotSize is the running total of hot-section bytes.
	TotalHotSize uint32
	// CapsMet is the union of capability flags the chosen modules satisfy.
	CapsMet hardware.CapFlags
}

func newSelection(reg *registry.Registry) *Selection {
	return &Selection{
		reg:      reg,
		selected: make(map[registry.ID]struct{}),
	}
}

// FromIDs builds a selection from an explicit module list, applying the
// same capacity and deduplication rules as the engine. Validation against a
// hardware description is the caller's responsibility.
func FromIDs(reg *registry.Registry, ids ...registry.ID) (*Selection, error) {
	s := newSelection(reg)
	for _, id := range ids {
		if err := s.add(id); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Modules returns the selected ids in selection order.
func (s *Selection) Modules() []registry.ID {
	return s.ids
}

// Contains reports whether id is selected.
func (s *Selection) Contains(id registry.ID) bool {
	_, ok := s.selected[id]
	return ok
}

// Len returns the number of selected modules.
func (s *Selection) Len() int {
	return len(s.ids)
}

// Registry returns the registry the selection was made against.
func (s *Selection) Registry() *registry.Registry {
	return s.reg
}

// add selects a module. Re-selecting is a no-op; exceeding MaxModules is
// fatal.
func (s *Selection) add(id registry.ID) error {
	if _, ok := s.selected[id]; ok {
		return nil
	}
	if len(s.ids) >= MaxModules {
		return errors.New(errors.StageSelect, errors.KindCapacityExceeded).
			Module(string(id)).
			Detail("selection exceeds %d modules", MaxModules).Build()
	}
	d := s.reg.Lookup(id)
	s.ids = append(s.ids, id)
	s.selected[id] = struct{}{}
	s.TotalHotSize += uint32(d.HotSize)
	s.CapsMet |= d.Caps

	Logger().Debug("selected module",
		zap.String("id", string(id)),
		zap.Uint16("hot_size", d.HotSize),
		zap.Uint32("total_hot", s.TotalHotSize))
	return nil
}
