// Package ptree implements the process tree node model described in the
// engine's specification: a closed set of composable control-flow nodes
// (Handler, Sequence, Selector, Parallel, Inverter) driven by a Session, plus
// the fluent builder that assembles and merges them.
//
// ptree intentionally knows nothing about package process or package
// session's concrete types — it depends only on the small Session interface
// defined here, which package session's driver implements. This keeps the
// dependency graph acyclic: ptree sits at the bottom, manager and session
// build on it, and process builds on manager and session.
package ptree

import "github.com/tailored-agentic-units/proctree/status"

// Kind identifies which of the five node variants a Node is. Node is a
// closed sum type over {Handler, Sequence, Selector, Parallel, Inverter};
// Kind is what lets merge and diagnostics dispatch exhaustively on it
// without relying on runtime type assertions everywhere.
type Kind int

const (
	KindHandler Kind = iota
	KindSequence
	KindSelector
	KindParallel
	KindInverter
)

// String renders the kind for error messages and log events.
func (k Kind) String() string {
	switch k {
	case KindHandler:
		return "handler"
	case KindSequence:
		return "sequence"
	case KindSelector:
		return "selector"
	case KindParallel:
		return "parallel"
	case KindInverter:
		return "inverter"
	default:
		return "invalid"
	}
}

// NodeId uniquely identifies a node among its siblings within the same
// composite. A dotted path such as "a.b.c" addresses a's child b's child c
// in control operations (resume/fail addressing).
type NodeId string

// SplitHead splits a dotted control-operation path into its first segment
// and the remaining tail, parsed once up front so hot dispatch paths never
// repeat string splits (spec.md §9 "Dotted-path addressing").
//
// SplitHead("a.b.c") returns ("a", "b.c"). SplitHead("a") returns ("a", "").
// SplitHead("") returns ("", "").
func SplitHead(path string) (head, rest string) {
	if path == "" {
		return "", ""
	}
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i], path[i+1:]
		}
	}
	return path, ""
}

// Session is the execution context passed to every node method. It is
// implemented by package session's driver; ptree never constructs one,
// which is what keeps ptree decoupled from session and process.
type Session interface {
	// PushFrame records that a node with the given id is entering the
	// walk-stack, for diagnostics and re-entry addressing.
	PushFrame(id NodeId)
	// PopFrame removes the most recently pushed frame.
	PopFrame()
	// SetData stores a value in the owning process's data bag.
	SetData(key string, value any)
	// GetData retrieves a value from the owning process's data bag.
	GetData(key string) (any, bool)
	// RecordFailure records a handler panic against the owning process's
	// failure channel (spec.md §7 "Handler exceptions"). Condition panics are
	// not recorded; they only count as "condition not met".
	RecordFailure(err error)
	// Emit reports a node-level state transition for observability. ptree
	// itself stays decoupled from any particular backend: it only describes
	// what happened (which node, what kind, what operation, what it
	// resolved to) and leaves recording it up to the Session implementation.
	Emit(id NodeId, k Kind, op string, r status.ResultStatus)
}

// Condition is a pure predicate over session (and, through it, process)
// state. A node may hold a conjunction of conditions; an empty conjunction
// is true. Conditions are evaluated once, when the parent composite
// initialises its working set — never re-evaluated mid-run.
type Condition func(s Session) bool

// And combines conditions with logical AND (all must hold; true if empty).
func And(conditions ...Condition) Condition {
	return func(s Session) bool {
		for _, c := range conditions {
			if !evalCondition(c, s) {
				return false
			}
		}
		return true
	}
}

// Or combines conditions with logical OR (at least one must hold; false if empty).
func Or(conditions ...Condition) Condition {
	return func(s Session) bool {
		for _, c := range conditions {
			if evalCondition(c, s) {
				return true
			}
		}
		return false
	}
}

// Not inverts a condition.
func Not(condition Condition) Condition {
	return func(s Session) bool { return !evalCondition(condition, s) }
}

// Always is a condition that is always satisfied; the zero value of a
// node's condition conjunction behaves the same way.
func Always() Condition {
	return func(Session) bool { return true }
}

// evalCondition runs a condition, treating a panic as "condition not met"
// per spec.md §7 ("Condition exceptions: treated as condition not met,
// never as a crash") rather than propagating it.
func evalCondition(c Condition, s Session) (ok bool) {
	if c == nil {
		return true
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return c(s)
}

// conjunction evaluates a slice of conditions as an AND, empty == true.
func conjunction(conditions []Condition, s Session) bool {
	for _, c := range conditions {
		if !evalCondition(c, s) {
			return false
		}
	}
	return true
}

// filterAvailable computes a composite's available_children set (spec.md
// §3/§4.2): each child's own guard conjunction is evaluated exactly once,
// here, at the moment the parent initialises its working set. Children
// whose conjunction fails are excluded entirely — they are never pushed
// onto the walk-stack, never Execute'd, and never factor into the
// composite's aggregate status, as opposed to being driven and producing a
// FAILURE outcome.
func filterAvailable(children []Node, s Session) []Node {
	out := make([]Node, 0, len(children))
	for _, c := range children {
		if conjunction(c.Conditions(), s) {
			out = append(out, c)
		}
	}
	return out
}

// Node is the common contract every tree element satisfies: leaves
// (Handler) and composites (Sequence, Selector, Parallel, Inverter) alike.
type Node interface {
	// ID returns the node's identifier, unique among its siblings.
	ID() NodeId
	// Kind identifies which of the five variants this node is.
	Kind() Kind
	// Priority returns the node's execution priority rank.
	Priority() status.Priority
	// Order returns the builder-assigned insertion index, used to break
	// priority ties deterministically.
	Order() int
	// ReadOnly reports whether later merges may not override this node.
	ReadOnly() bool
	// Status returns the node's current cached status.
	Status() status.ResultStatus
	// Conditions returns the node's own guard conjunction, evaluated by its
	// parent composite once when the parent builds its available_children
	// set (spec.md §3: "Conditions are evaluated once... never re-evaluated
	// mid-run"). A node with no guards returns a nil/empty slice.
	Conditions() []Condition

	// Execute runs (or re-runs against cached terminal state) the node.
	Execute(s Session) status.ResultStatus
	// Resume re-enters a WAITING node with a forced SUCCESS outcome.
	// addressed is the (possibly empty) remainder of a dotted control path.
	Resume(s Session, addressed []string) status.ResultStatus
	// Fail mirrors Resume with a forced FAILURE outcome.
	Fail(s Session, addressed []string) status.ResultStatus
	// Cancel transitions the node (and any live descendants) to CANCELLED.
	Cancel(s Session) status.ResultStatus

	// CloneDeep produces an independent copy with status reset to UNKNOWN
	// and transient walk state cleared, preserving configuration (ids,
	// priorities, conditions, tree shape).
	CloneDeep() Node
}
