package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jfabienke/3com-packet-driver-sub011/errors"
	"github.com/jfabienke/3com-packet-driver-sub011/hardware"
	"github.com/jfabienke/3com-packet-driver-sub011/modbin"
)

// CatalogFile is the manifest name looked up inside a catalog directory.
const CatalogFile = "catalog.yaml"

type catalogDoc struct {
	Version int            `yaml:"version"`
	Modules []catalogEntry `yaml:"modules"`
}

type catalogEntry struct {
	ID       string                   `yaml:"id"`
	Ref      uint8                    `yaml:"ref"`
	File     string                   `yaml:"file"`
	Category string                   `yaml:"category"`
	NIC      string                   `yaml:"nic,omitempty"`
	Align    uint16                   `yaml:"align,omitempty"`
	Exports  map[string]catalogExport `yaml:"exports,omitempty"`
}

type catalogExport struct {
	Offset uint16 `yaml:"offset"`
	Size   uint16 `yaml:"size,omitempty"`
}

// Load reads the catalog manifest in dir, parses every referenced module
// blob and returns the populated registry. Hardware requirements (minimum
// CPU tier, capability bitset) come from the module headers, not from the
// manifest, so the two can never drift apart.
func Load(dir string) (*Registry, error) {
	raw, err := os.ReadFile(filepath.Join(dir, CatalogFile))
	if err != nil {
		return nil, fmt.Errorf("registry: read catalog: %w", err)
	}
	var doc catalogDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("registry: parse catalog: %w", err)
	}
	if doc.Version != 1 {
		return nil, fmt.Errorf("registry: unsupported catalog version %d", doc.Version)
	}

	descs := make([]*Descriptor, 0, len(doc.Modules))
	for _, e := range doc.Modules {
		d, err := descriptorFromEntry(dir, e)
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}
	return New(descs)
}

// Save writes descs as a catalog directory: one .mod blob per module plus
// the manifest. Load(dir) of the result reproduces the same registry.
func Save(dir string, descs []*Descriptor) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	doc := catalogDoc{Version: 1}
	for _, d := range descs {
		file := string(d.ID) + ".mod"
		if err := os.WriteFile(filepath.Join(dir, file), d.Module.Data, 0o644); err != nil {
			return fmt.Errorf("registry: write %s: %w", file, err)
		}
		e := catalogEntry{
			ID:       string(d.ID),
			Ref:      d.Ref,
			File:     file,
			Category: d.Category.String(),
		}
		if d.NIC != hardware.NICAny {
			e.NIC = d.NIC.String()
		}
		if d.Alignment != 1 {
			e.Align = d.Alignment
		}
		if len(d.Exports) > 0 {
			e.Exports = make(map[string]catalogExport, len(d.Exports))
			for name, exp := range d.Exports {
				e.Exports[string(name)] = catalogExport{Offset: exp.Offset, Size: exp.Size}
			}
		}
		doc.Modules = append(doc.Modules, e)
	}
	raw, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("registry: marshal catalog: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, CatalogFile), raw, 0o644); err != nil {
		return fmt.Errorf("registry: write catalog: %w", err)
	}
	return nil
}

func descriptorFromEntry(dir string, e catalogEntry) (*Descriptor, error) {
	blob, err := os.ReadFile(filepath.Join(dir, e.File))
	if err != nil {
		return nil, fmt.Errorf("registry: module %s: %w", e.ID, err)
	}
	mod, err := modbin.ParseModule(blob)
	if err != nil {
		return nil, errors.New(errors.StageRegistry, errors.KindBadModule).
			Module(e.ID).Cause(err).Detail("blob rejected").Build()
	}

	cat, err := ParseCategory(e.Category)
	if err != nil {
		return nil, fmt.Errorf("registry: module %s: %w", e.ID, err)
	}
	nic := hardware.NICAny
	if e.NIC != "" {
		if nic, err = hardware.ParseNICGeneration(e.NIC); err != nil {
			return nil, fmt.Errorf("registry: module %s: %w", e.ID, err)
		}
	}
	align := e.Align
	if align == 0 {
		align = 1
	}

	d := &Descriptor{
		ID:        ID(e.ID),
		Ref:       e.Ref,
		Category:  cat,
		Caps:      mod.Header.CapFlags,
		MinCPU:    mod.Header.CPURequired,
		NIC:       nic,
		Alignment: align,
		Module:    mod,
	}
	if len(e.Exports) > 0 {
		d.Exports = make(map[Entry]Export, len(e.Exports))
		for name, exp := range e.Exports {
			d.Exports[Entry(name)] = Export{Offset: exp.Offset, Size: exp.Size}
		}
	}
	if nic != mod.Header.NICType {
		return nil, errors.New(errors.StageRegistry, errors.KindBadModule).
			Module(e.ID).
			Detail("catalog nic tag %s disagrees with header %s", nic, mod.Header.NICType).
			Build()
	}
	return d, nil
}
