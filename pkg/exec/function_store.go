package exec

import "github.com/pkg/errors"

// Callable is anything the function store can hold and the VM can invoke:
// a plain Function, or one of its PureFunction/JitFunction wrappers. All
// three expose the wrapped function's identity alongside Execute.
type Callable interface {
	Executable
	ID() string
	Arity() int
	ExecutionCount() int64
	TotalActionCount() int64
}

// FunctionStore is the append-only, name-indexed container of every
// installed function: user-defined and built-in alike. add fails if the
// id already exists (spec §4.2); lookups are by bounds-checked index or
// by id.
type FunctionStore struct {
	entries []Callable
	byID    map[string]int
}

// NewFunctionStore returns an empty function store.
func NewFunctionStore() *FunctionStore {
	return &FunctionStore{byID: make(map[string]int)}
}

// Add installs fn under its own ID and returns its new index.
func (s *FunctionStore) Add(fn Callable) (int, error) {
	id := fn.ID()
	if _, exists := s.byID[id]; exists {
		return 0, errors.Errorf("duplicate function id %q", id)
	}
	idx := len(s.entries)
	s.entries = append(s.entries, fn)
	s.byID[id] = idx
	return idx, nil
}

// ByIndex returns the function at idx, bounds-checked.
func (s *FunctionStore) ByIndex(idx int) (Callable, error) {
	if idx < 0 || idx >= len(s.entries) {
		return nil, errors.Errorf("function index %d out of range (have %d)", idx, len(s.entries))
	}
	return s.entries[idx], nil
}

// ByID returns the function installed under id.
func (s *FunctionStore) ByID(id string) (Callable, error) {
	idx, ok := s.byID[id]
	if !ok {
		return nil, errors.Errorf("no function with id %q", id)
	}
	return s.entries[idx], nil
}

// Has reports whether id is installed, without erroring.
func (s *FunctionStore) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// Len returns the number of installed functions.
func (s *FunctionStore) Len() int { return len(s.entries) }
