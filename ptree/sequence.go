package ptree

import "github.com/tailored-agentic-units/proctree/status"

// SequenceNode runs its children in priority/order and stops at the first
// child that does not SUCCEED. It resolves SUCCESS only if every eligible
// child succeeds.
type SequenceNode struct {
	id         NodeId
	priority   status.Priority
	order      int
	readOnly   bool
	conditions []Condition
	children   []Node

	cached      status.ResultStatus
	initialized bool   // whether available has been computed for this run
	available   []Node // frozen available_children (spec.md §4.2)
	cursor      int    // index into available of the child currently WAITING, -1 if none
}

// NewSequence constructs a sequence composite over children, which are
// reordered by (Priority, Order) at construction time.
func NewSequence(id NodeId, children ...Node) *SequenceNode {
	s := &SequenceNode{id: id, priority: status.Normal, cached: status.Unknown, cursor: -1}
	s.children = sortedChildren(children)
	return s
}

func (s *SequenceNode) ID() NodeId                  { return s.id }
func (s *SequenceNode) Kind() Kind                  { return KindSequence }
func (s *SequenceNode) Priority() status.Priority   { return s.priority }
func (s *SequenceNode) Order() int                  { return s.order }
func (s *SequenceNode) ReadOnly() bool              { return s.readOnly }
func (s *SequenceNode) Status() status.ResultStatus { return s.cached }
func (s *SequenceNode) Conditions() []Condition     { return s.conditions }

// Children returns the node's children in their configured (unfiltered)
// order — the tree shape as built, not the frozen available_children
// working set a run computes internally.
func (s *SequenceNode) Children() []Node { return s.children }

func (s *SequenceNode) WithPriority(p status.Priority) *SequenceNode { s.priority = p; return s }
func (s *SequenceNode) WithOrder(order int) *SequenceNode            { s.order = order; return s }
func (s *SequenceNode) WithReadOnly(readOnly bool) *SequenceNode     { s.readOnly = readOnly; return s }
func (s *SequenceNode) WithConditions(conditions ...Condition) *SequenceNode {
	s.conditions = conditions
	return s
}

func (s *SequenceNode) Execute(session Session) status.ResultStatus {
	if s.cached.IsTerminal() {
		return s.cached
	}

	session.PushFrame(s.id)
	defer session.PopFrame()

	if !conjunction(s.conditions, session) {
		s.cached = status.Failure
		return s.cached
	}

	if !s.initialized {
		s.available = filterAvailable(s.children, session)
		s.initialized = true
	}

	for i, child := range s.available {
		result := child.Execute(session)
		if result == status.Waiting {
			s.cursor = i
			s.cached = status.Waiting
			session.Emit(s.id, KindSequence, "execute", s.cached)
			return s.cached
		}
		if result != status.Success {
			s.cached = result
			session.Emit(s.id, KindSequence, "execute", s.cached)
			return s.cached
		}
	}
	s.cached = status.Success
	session.Emit(s.id, KindSequence, "execute", s.cached)
	return s.cached
}

func (s *SequenceNode) Resume(session Session, addressed []string) status.ResultStatus {
	result := s.advance(session, addressed, (Node).Resume)
	session.Emit(s.id, KindSequence, "resume", result)
	return result
}

func (s *SequenceNode) Fail(session Session, addressed []string) status.ResultStatus {
	result := s.advance(session, addressed, (Node).Fail)
	session.Emit(s.id, KindSequence, "fail", result)
	return result
}

// advance drives the currently-waiting child with the given control op,
// then continues the sequence from there if the child settled SUCCESS.
//
// addressed should have the waiting child's id as its head; the tail is
// forwarded for that child to resolve against its own descendants. A
// mismatched head, an out-of-range cursor, or a call while not WAITING are
// all no-ops returning the current status unchanged — registered contexts
// may reference paths that no longer exist after a merge, and that is
// routine, not an error (spec.md §6, §4.8).
func (s *SequenceNode) advance(session Session, addressed []string, op func(Node, Session, []string) status.ResultStatus) status.ResultStatus {
	if s.cached != status.Waiting || s.cursor < 0 || s.cursor >= len(s.available) || len(addressed) == 0 {
		return s.cached
	}

	child := s.available[s.cursor]
	if string(child.ID()) != addressed[0] {
		return s.cached
	}
	result := op(child, session, addressed[1:])
	if result == status.Waiting {
		return s.cached
	}
	if result != status.Success {
		s.cached = result
		s.cursor = -1
		return s.cached
	}

	for i := s.cursor + 1; i < len(s.available); i++ {
		next := s.available[i]
		result := next.Execute(session)
		if result == status.Waiting {
			s.cursor = i
			s.cached = status.Waiting
			return s.cached
		}
		if result != status.Success {
			s.cached = result
			s.cursor = -1
			return s.cached
		}
	}
	s.cached = status.Success
	s.cursor = -1
	return s.cached
}

func (s *SequenceNode) Cancel(session Session) status.ResultStatus {
	if s.cached.IsTerminal() {
		return s.cached
	}
	for _, child := range s.children {
		if !child.Status().IsTerminal() {
			child.Cancel(session)
		}
	}
	s.cached = status.Cancelled
	s.cursor = -1
	session.Emit(s.id, KindSequence, "cancel", s.cached)
	return s.cached
}

func (s *SequenceNode) CloneDeep() Node {
	clone := &SequenceNode{
		id: s.id, priority: s.priority, order: s.order, readOnly: s.readOnly,
		conditions: append([]Condition(nil), s.conditions...),
		children:   make([]Node, len(s.children)),
		cached:     status.Unknown,
		cursor:     -1,
	}
	for i, child := range s.children {
		clone.children[i] = child.CloneDeep()
	}
	return clone
}

// sortedChildren returns children ordered by (Priority descending, Order
// ascending), the deterministic tie-break the builder relies on.
func sortedChildren(children []Node) []Node {
	out := append([]Node(nil), children...)
	// insertion sort: composites rarely have enough children to warrant
	// sort.Slice's overhead, and this keeps the ordering stable for equal keys.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func less(a, b Node) bool {
	if a.Priority() != b.Priority() {
		return a.Priority() > b.Priority()
	}
	return a.Order() < b.Order()
}
