package interp

import "fmt"

// Scope is a lexical frame: a name→Value mapping, an export set, and an
// optional parent link. Scope is always handled through a
// *Scope pointer so that a user Function capturing "the scope object"
// observes later declarations in that frame — closure-by-reference, not a
// snapshot.
type Scope struct {
	vars    map[string]Value
	exports map[string]bool
	parent  *Scope
}

// NewRootScope creates the interpreter's single root frame.
func NewRootScope() *Scope {
	return &Scope{vars: map[string]Value{}, exports: map[string]bool{}}
}

// Derived creates a child scope; cheap, sharing nothing but the parent link.
func (s *Scope) Derived() *Scope {
	return &Scope{vars: map[string]Value{}, exports: map[string]bool{}, parent: s}
}

// Declare inserts or overwrites name in the current frame.
func (s *Scope) Declare(name string, v Value) {
	s.vars[name] = v
}

// Assign walks parents and writes in the nearest frame that already defines
// name; it is an error if no ancestor frame defines it.
func (s *Scope) Assign(name string, v Value) error {
	for f := s; f != nil; f = f.parent {
		if _, ok := f.vars[name]; ok {
			f.vars[name] = v
			return nil
		}
	}
	return fmt.Errorf("variable %q is not defined", name)
}

// Has reports whether name is defined anywhere along the ancestor chain.
func (s *Scope) Has(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// Lookup walks parents looking for name.
func (s *Scope) Lookup(name string) (Value, bool) {
	for f := s; f != nil; f = f.parent {
		if v, ok := f.vars[name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// AddExport records name in the current frame's export list. name need not
// be defined in this frame yet; it must resolve via the ancestor chain by
// the time Exports is called.
func (s *Scope) AddExport(name string) {
	s.exports[name] = true
}

// Exports flattens every exported name reachable from this scope (this
// frame and all ancestors) into a string→string snapshot, stringifying each
// value with ToString (JSON for composites). Duplicates across frames
// resolve to the innermost frame's entry, since the walk starts at s and a
// name is only added to the result the first time it's seen.
func (s *Scope) Exports() (map[string]string, error) {
	out := map[string]string{}
	for f := s; f != nil; f = f.parent {
		for name := range f.exports {
			if _, done := out[name]; done {
				continue
			}
			v, ok := s.Lookup(name)
			if !ok {
				return nil, fmt.Errorf("exported variable %q is not defined", name)
			}
			out[name] = ToString(v)
		}
	}
	return out, nil
}
