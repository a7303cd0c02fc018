package runtime

import "github.com/pkg/errors"

// VirtualTableRepository is the append-only, indexed store of installed
// vtables. Lookups are by bounds-checked index (the ABI of
// ObjectDescriptor.VTableIndex) or by name.
type VirtualTableRepository struct {
	tables  []*VirtualTable
	byName  map[string]int
}

// NewVirtualTableRepository returns an empty vtable store.
func NewVirtualTableRepository() *VirtualTableRepository {
	return &VirtualTableRepository{byName: make(map[string]int)}
}

// Add installs vt and returns its new index, or an error if a vtable with
// the same name is already installed.
func (r *VirtualTableRepository) Add(vt *VirtualTable) (int, error) {
	if _, exists := r.byName[vt.Name()]; exists {
		return 0, errors.Errorf("duplicate vtable name %q", vt.Name())
	}
	idx := len(r.tables)
	r.tables = append(r.tables, vt)
	r.byName[vt.Name()] = idx
	return idx, nil
}

// ByIndex returns the vtable at idx, bounds-checked.
func (r *VirtualTableRepository) ByIndex(idx int) (*VirtualTable, error) {
	if idx < 0 || idx >= len(r.tables) {
		return nil, errors.Errorf("vtable index %d out of range (have %d)", idx, len(r.tables))
	}
	return r.tables[idx], nil
}

// IndexOf returns the index of the vtable named name.
func (r *VirtualTableRepository) IndexOf(name string) (int, error) {
	idx, ok := r.byName[name]
	if !ok {
		return 0, errors.Errorf("no vtable named %q", name)
	}
	return idx, nil
}

// ByName returns the vtable named name.
func (r *VirtualTableRepository) ByName(name string) (*VirtualTable, error) {
	idx, err := r.IndexOf(name)
	if err != nil {
		return nil, err
	}
	return r.tables[idx], nil
}

// Len returns the number of installed vtables.
func (r *VirtualTableRepository) Len() int { return len(r.tables) }
