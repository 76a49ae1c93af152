package ptree

import "github.com/tailored-agentic-units/proctree/status"

// SelectorNode runs its children in priority/order and stops at the first
// child that does not FAIL. It resolves FAILURE only if every eligible
// child fails — the fallback/"first success wins" composite.
type SelectorNode struct {
	id         NodeId
	priority   status.Priority
	order      int
	readOnly   bool
	conditions []Condition
	children   []Node

	cached      status.ResultStatus
	initialized bool
	available   []Node
	cursor      int
}

// NewSelector constructs a selector composite over children, reordered by
// (Priority, Order) at construction time.
func NewSelector(id NodeId, children ...Node) *SelectorNode {
	s := &SelectorNode{id: id, priority: status.Normal, cached: status.Unknown, cursor: -1}
	s.children = sortedChildren(children)
	return s
}

func (s *SelectorNode) ID() NodeId                  { return s.id }
func (s *SelectorNode) Kind() Kind                  { return KindSelector }
func (s *SelectorNode) Priority() status.Priority   { return s.priority }
func (s *SelectorNode) Order() int                  { return s.order }
func (s *SelectorNode) ReadOnly() bool              { return s.readOnly }
func (s *SelectorNode) Status() status.ResultStatus { return s.cached }
func (s *SelectorNode) Conditions() []Condition     { return s.conditions }
func (s *SelectorNode) Children() []Node            { return s.children }

func (s *SelectorNode) WithPriority(p status.Priority) *SelectorNode { s.priority = p; return s }
func (s *SelectorNode) WithOrder(order int) *SelectorNode            { s.order = order; return s }
func (s *SelectorNode) WithReadOnly(readOnly bool) *SelectorNode     { s.readOnly = readOnly; return s }
func (s *SelectorNode) WithConditions(conditions ...Condition) *SelectorNode {
	s.conditions = conditions
	return s
}

func (s *SelectorNode) Execute(session Session) status.ResultStatus {
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
			session.Emit(s.id, KindSelector, "execute", s.cached)
			return s.cached
		}
		if result != status.Failure {
			s.cached = result
			session.Emit(s.id, KindSelector, "execute", s.cached)
			return s.cached
		}
	}
	s.cached = status.Failure
	session.Emit(s.id, KindSelector, "execute", s.cached)
	return s.cached
}

func (s *SelectorNode) Resume(session Session, addressed []string) status.ResultStatus {
	result := s.advance(session, addressed, (Node).Resume)
	session.Emit(s.id, KindSelector, "resume", result)
	return result
}

func (s *SelectorNode) Fail(session Session, addressed []string) status.ResultStatus {
	result := s.advance(session, addressed, (Node).Fail)
	session.Emit(s.id, KindSelector, "fail", result)
	return result
}

// advance drives the currently-waiting child with the given control op. A
// mismatched head, an out-of-range cursor, or a call while not WAITING are
// all no-ops returning the current status unchanged (spec.md §6, §4.8).
func (s *SelectorNode) advance(session Session, addressed []string, op func(Node, Session, []string) status.ResultStatus) status.ResultStatus {
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
	if result != status.Failure {
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
		if result != status.Failure {
			s.cached = result
			s.cursor = -1
			return s.cached
		}
	}
	s.cached = status.Failure
	s.cursor = -1
	return s.cached
}

func (s *SelectorNode) Cancel(session Session) status.ResultStatus {
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
	session.Emit(s.id, KindSelector, "cancel", s.cached)
	return s.cached
}

func (s *SelectorNode) CloneDeep() Node {
	clone := &SelectorNode{
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
