package runtime

import "github.com/kristofer/ovum/pkg/value"

// DestructorFunc is invoked by Collect for every unreachable object during
// sweep, before it is removed from the repository. The driver/exec layer
// supplies this so that runtime need not depend on the execution tree to
// run a destructor's real function. A non-nil error is logged but does
// not halt the sweep.
type DestructorFunc func(obj *Object, vt *VirtualTable) error

// Collect runs one mark-and-sweep cycle to completion.
//
// Mark: roots is the full root set gathered by the caller -- every
// object-reference Value live in globals, on the operand stack, and in
// every frame's locals (spec §5, §8 "Root set"). Each reachable object's
// mark bit is set idempotently, and its vtable's reference scanner
// determines what it points to next.
//
// Sweep: every live object without the mark bit is unreachable. Its
// vtable's destructor is invoked (via destroy) with the error, if any,
// logged but not propagated; it is then removed from the repository. All
// surviving objects have their mark bit cleared so the next cycle starts
// clean.
//
// Collect returns the number of objects destroyed.
func (h *Heap) Collect(roots []*Object, destroy DestructorFunc) (int, error) {
	h.mark(roots)
	return h.sweep(destroy), nil
}

func (h *Heap) mark(roots []*Object) {
	queue := make([]*Object, 0, len(roots))
	queue = append(queue, roots...)

	for len(queue) > 0 {
		obj := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		if obj == nil {
			continue
		}
		if obj.Descriptor.Marked() {
			continue
		}
		obj.Descriptor.SetMarked(true)

		vt, err := h.VTableOf(obj)
		if err != nil {
			// An object whose vtable vanished can't be scanned further;
			// it stays marked (and therefore survives) since we cannot
			// safely prove it's unreachable.
			continue
		}

		queue = append(queue, scanReferents(obj, vt)...)
	}
}

// scanReferents applies vt's reference-scanner strategy to obj and
// returns every non-null object reference it finds.
func scanReferents(obj *Object, vt *VirtualTable) []*Object {
	var out []*Object
	switch vt.Scanner() {
	case ScannerDefault:
		for i, f := range vt.Fields() {
			if f.Type != FieldObject {
				continue
			}
			if i >= len(obj.Fields) {
				continue
			}
			if ref := objectRef(obj.Fields[i]); ref != nil {
				out = append(out, ref)
			}
		}
	case ScannerArray:
		for _, v := range obj.Elements {
			if ref := objectRef(v); ref != nil {
				out = append(out, ref)
			}
		}
	case ScannerEmpty:
		// No outgoing references.
	}
	return out
}

func objectRef(v value.Value) *Object {
	if !v.IsObject() || v.Obj() == nil {
		return nil
	}
	obj, ok := v.Obj().(*Object)
	if !ok {
		return nil
	}
	return obj
}

func (h *Heap) sweep(destroy DestructorFunc) int {
	destroyed := 0
	for _, obj := range h.repo.All() {
		if obj.Descriptor.Marked() {
			obj.Descriptor.SetMarked(false)
			continue
		}

		if destroy != nil {
			vt, err := h.VTableOf(obj)
			if err == nil {
				if derr := destroy(obj, vt); derr != nil {
					h.Log.Warn().Err(derr).Str("class", vt.Name()).Msg("destructor failed during sweep")
				}
			}
		}

		h.repo.Remove(obj)
		destroyed++
	}
	return destroyed
}
