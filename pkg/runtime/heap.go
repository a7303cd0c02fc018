package runtime

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ObjectRepository is the set of live object pointers. Object identity is
// the Go pointer itself; the heap never relocates objects, so a pointer
// stays valid for the object's lifetime. Add is called by the allocator;
// Remove is called by the collector or by explicit destruction.
type ObjectRepository struct {
	live map[*Object]struct{}
}

// NewObjectRepository returns an empty object repository.
func NewObjectRepository() *ObjectRepository {
	return &ObjectRepository{live: make(map[*Object]struct{})}
}

// Add registers obj as live.
func (r *ObjectRepository) Add(obj *Object) {
	r.live[obj] = struct{}{}
}

// Remove unregisters obj.
func (r *ObjectRepository) Remove(obj *Object) {
	delete(r.live, obj)
}

// Contains reports whether obj is currently registered as live.
func (r *ObjectRepository) Contains(obj *Object) bool {
	_, ok := r.live[obj]
	return ok
}

// Len returns the number of live objects.
func (r *ObjectRepository) Len() int { return len(r.live) }

// All returns every live object. The returned slice is a fresh snapshot
// and safe to mutate the repository while iterating it.
func (r *ObjectRepository) All() []*Object {
	out := make([]*Object, 0, len(r.live))
	for obj := range r.live {
		out = append(out, obj)
	}
	return out
}

// Heap is the managed object heap: allocation plus the live-object
// repository plus the GC trigger threshold. Allocation and collection
// observe a fully quiescent program state (spec §5): the caller is
// expected to drive MaybeCollect only between opcodes, never mid-opcode.
type Heap struct {
	vtables   *VirtualTableRepository
	repo      *ObjectRepository
	Threshold int
	Log       zerolog.Logger
}

// NewHeap creates a heap backed by vtables, with the given live-object
// count threshold for triggering collection. A non-positive threshold
// disables automatic triggering (MaybeCollect becomes a no-op); callers
// may still invoke Collect directly.
func NewHeap(vtables *VirtualTableRepository, threshold int, log zerolog.Logger) *Heap {
	return &Heap{
		vtables:   vtables,
		repo:      NewObjectRepository(),
		Threshold: threshold,
		Log:       log,
	}
}

// Repository exposes the underlying object repository, e.g. for tests
// asserting on live-object counts after a collection.
func (h *Heap) Repository() *ObjectRepository { return h.repo }

// Allocate creates a new object of the vtable at vtableIndex and registers
// it as live. The object exists in the repository from this call until a
// successful Destroy or collection removes it, per spec §3's ordering
// invariant.
func (h *Heap) Allocate(vtableIndex uint32) (*Object, error) {
	vt, err := h.vtables.ByIndex(int(vtableIndex))
	if err != nil {
		return nil, errors.Wrap(err, "allocate")
	}
	obj := NewObject(vtableIndex, vt)
	h.repo.Add(obj)
	return obj, nil
}

// Destroy explicitly removes obj from the repository, bypassing the
// collector. Used by built-ins that manage object lifetime directly. It
// does not invoke the object's destructor; callers that need destructor
// semantics should go through Collect.
func (h *Heap) Destroy(obj *Object) {
	h.repo.Remove(obj)
}

// ShouldCollect reports whether the live-object count exceeds the
// configured threshold.
func (h *Heap) ShouldCollect() bool {
	return h.Threshold > 0 && h.repo.Len() > h.Threshold
}

// VTableOf resolves obj's vtable via its descriptor.
func (h *Heap) VTableOf(obj *Object) (*VirtualTable, error) {
	return h.vtables.ByIndex(int(obj.Descriptor.VTableIndex))
}
