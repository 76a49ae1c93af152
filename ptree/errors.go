package ptree

import "fmt"

// KindMismatchError is returned by Merge when two layers declare a node
// with the same id but different kinds — ids are only stable merge keys
// within a single kind.
type KindMismatchError struct {
	ID       NodeId
	Existing Kind
	Incoming Kind
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("ptree: node %q declared as %s in one layer and %s in another", e.ID, e.Existing, e.Incoming)
}

// UnsupportedKindError is returned when Merge encounters a Node whose
// concrete type isn't one of the five the builder knows how to merge. It
// should never occur for nodes constructed via this package's own
// constructors; it exists to fail loudly rather than silently drop a
// custom Node implementation.
type UnsupportedKindError struct {
	ID   NodeId
	Kind Kind
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("ptree: node %q has unsupported kind %s for merging", e.ID, e.Kind)
}

// DuplicateChildError is returned during construction when a composite is
// given two children sharing an id.
type DuplicateChildError struct {
	Parent NodeId
	Child  NodeId
}

func (e *DuplicateChildError) Error() string {
	return fmt.Sprintf("ptree: composite %q has duplicate child id %q", e.Parent, e.Child)
}

// EmptyLayersError is returned by Build when no layers were added.
type EmptyLayersError struct{}

func (e *EmptyLayersError) Error() string { return "ptree: builder has no layers to merge" }
