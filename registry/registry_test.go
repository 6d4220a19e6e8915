package registry

import (
	"testing"

	"github.com/jfabienke/3com-packet-driver-sub011/hardware"
	"github.com/jfabienke/3com-packet-driver-sub011/modbin"
)

func TestSyntheticCatalogComplete(t *testing.T) {
	r, err := NewSynthetic()
	if err != nil {
		t.Fatalf("NewSynthetic: %v", err)
	}

	for _, id := range CoreModules {
		if !r.Contains(id) {
			t.Errorf("core module %s missing", id)
		}
	}
	for _, id := range []ID{
		Mod3C509B, Mod3C515, ModVortex, ModBoomerang, ModCyclone, ModTornado,
		ModPIO, ModDMAISA, ModDMABusMaster, ModDMADescRing, ModDMABounce,
		ModCacheNone, ModCacheWBINVD, ModCacheCLFLUSH, ModCacheSnoop,
		ModCopy8086, ModCopy286, ModCopy386, ModCopyPent,
	} {
		if !r.Contains(id) {
			t.Errorf("module %s missing", id)
		}
	}
}

func TestHotSizeComputedFromHeader(t *testing.T) {
	r, err := NewSynthetic()
	if err != nil {
		t.Fatalf("NewSynthetic: %v", err)
	}
	r.All(func(d *Descriptor) bool {
		if d.HotSize != d.Module.Header.HotSize() {
			t.Errorf("%s: hot size %d disagrees with header %d",
				d.ID, d.HotSize, d.Module.Header.HotSize())
		}
		if d.HotSize == 0 {
			t.Errorf("%s: zero hot size", d.ID)
		}
		return true
	})
}

func TestLookupUnknownPanics(t *testing.T) {
	r, err := NewSynthetic()
	if err != nil {
		t.Fatalf("NewSynthetic: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Error("Lookup of unknown id should panic")
		}
	}()
	r.Lookup("mod_does_not_exist")
}

func TestLookupRef(t *testing.T) {
	r, err := NewSynthetic()
	if err != nil {
		t.Fatalf("NewSynthetic: %v", err)
	}
	d, ok := r.LookupRef(3)
	if !ok || d.ID != ModData {
		t.Errorf("LookupRef(3): got %v, %v", d, ok)
	}
	if _, ok := r.LookupRef(200); ok {
		t.Error("LookupRef of unused ref should miss")
	}
}

func TestNewRejectsDuplicateID(t *testing.T) {
	descs, err := SyntheticCatalog()
	if err != nil {
		t.Fatalf("SyntheticCatalog: %v", err)
	}
	dup := *descs[0]
	dup.Ref = 250
	if _, err := New(append(descs, &dup)); err == nil {
		t.Error("expected duplicate id to be rejected")
	}
}

func TestNewRejectsDuplicateRef(t *testing.T) {
	descs, err := SyntheticCatalog()
	if err != nil {
		t.Fatalf("SyntheticCatalog: %v", err)
	}
	dup := *descs[0]
	dup.ID = "mod_other"
	if _, err := New(append(descs, &dup)); err == nil {
		t.Error("expected duplicate ref to be rejected")
	}
}

func TestNewRejectsExportOutsideHot(t *testing.T) {
	blob, err := modbin.NewBuilder().Hot(make([]byte, 32)).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	mod, err := modbin.ParseModule(blob)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	d := &Descriptor{
		ID: "mod_bad", Ref: 0, Category: CategoryCore, Alignment: 1,
		NIC:     hardware.NICAny,
		Exports: map[Entry]Export{EntryAPI: {Offset: 40}},
		Module:  mod,
	}
	if _, err := New([]*Descriptor{d}); err == nil {
		t.Error("expected export outside hot section to be rejected")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	descs, err := SyntheticCatalog()
	if err != nil {
		t.Fatalf("SyntheticCatalog: %v", err)
	}
	if err := Save(dir, descs); err != nil {
		t.Fatalf("Save: %v", err)
	}
	r, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Len() != len(descs) {
		t.Fatalf("module count: got %d, want %d", r.Len(), len(descs))
	}
	for _, want := range descs {
		got := r.Lookup(want.ID)
		if got.Ref != want.Ref || got.Category != want.Category ||
			got.MinCPU != want.MinCPU || got.NIC != want.NIC ||
			got.HotSize != want.Module.Header.HotSize() {
			t.Errorf("%s: descriptor mismatch after round trip", want.ID)
		}
	}
}
