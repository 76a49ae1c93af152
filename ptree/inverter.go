package ptree

import "github.com/tailored-agentic-units/proctree/status"

// InverterNode decorates a single child, swapping SUCCESS and FAILURE.
// WAITING and CANCELLED pass through unchanged — inversion only applies to
// the two "opinionated" terminal outcomes, and only to Execute's return
// value and to Status(): Resume/Fail/Cancel delegate to the child and
// return whatever the child itself returns, unmapped (spec.md §4.5).
type InverterNode struct {
	id         NodeId
	priority   status.Priority
	order      int
	readOnly   bool
	conditions []Condition
	child      Node

	// gateFailed is set when this node's own conditions fail to hold; it is
	// independent of the child, which in that case never runs at all.
	gateFailed bool
}

// NewInverter constructs an inverter wrapping a single child. There is no
// method to attach a second child — attempting to add one is a
// construction error per spec.md §4.5, and this constructor shape makes
// that error unrepresentable rather than merely checked.
func NewInverter(id NodeId, child Node) *InverterNode {
	return &InverterNode{id: id, child: child, priority: status.Normal}
}

func (n *InverterNode) ID() NodeId                { return n.id }
func (n *InverterNode) Kind() Kind                { return KindInverter }
func (n *InverterNode) Priority() status.Priority { return n.priority }
func (n *InverterNode) Order() int                { return n.order }
func (n *InverterNode) ReadOnly() bool            { return n.readOnly }
func (n *InverterNode) Conditions() []Condition   { return n.conditions }
func (n *InverterNode) Child() Node               { return n.child }

// Status reports the inverted view of the child's status — the mapping
// applies to get_status just as it does to Execute's return value, even
// though Resume/Fail/Cancel themselves return the child's raw outcome.
func (n *InverterNode) Status() status.ResultStatus {
	if n.gateFailed {
		return status.Failure
	}
	return invert(n.child.Status())
}

func (n *InverterNode) WithPriority(p status.Priority) *InverterNode { n.priority = p; return n }
func (n *InverterNode) WithOrder(order int) *InverterNode            { n.order = order; return n }
func (n *InverterNode) WithReadOnly(readOnly bool) *InverterNode     { n.readOnly = readOnly; return n }
func (n *InverterNode) WithConditions(conditions ...Condition) *InverterNode {
	n.conditions = conditions
	return n
}

// invert swaps SUCCESS/FAILURE and passes everything else through.
func invert(s status.ResultStatus) status.ResultStatus {
	switch s {
	case status.Success:
		return status.Failure
	case status.Failure:
		return status.Success
	default:
		return s
	}
}

func (n *InverterNode) Execute(session Session) status.ResultStatus {
	if n.gateFailed {
		return status.Failure
	}
	if n.child.Status().IsTerminal() {
		return invert(n.child.Status())
	}

	session.PushFrame(n.id)
	defer session.PopFrame()

	if !conjunction(n.conditions, session) {
		n.gateFailed = true
		session.Emit(n.id, KindInverter, "execute", status.Failure)
		return status.Failure
	}

	result := invert(n.child.Execute(session))
	session.Emit(n.id, KindInverter, "execute", result)
	return result
}

// Resume delegates to the child and returns its raw (unmapped) outcome.
func (n *InverterNode) Resume(session Session, addressed []string) status.ResultStatus {
	if n.gateFailed {
		return status.Failure
	}
	return n.child.Resume(session, addressed)
}

// Fail delegates to the child and returns its raw (unmapped) outcome.
func (n *InverterNode) Fail(session Session, addressed []string) status.ResultStatus {
	if n.gateFailed {
		return status.Failure
	}
	return n.child.Fail(session, addressed)
}

// Cancel delegates to the child; CANCELLED passes through invert()
// unchanged either way, so mapped/unmapped is not observable here.
func (n *InverterNode) Cancel(session Session) status.ResultStatus {
	if n.gateFailed {
		return status.Failure
	}
	if !n.child.Status().IsTerminal() {
		return n.child.Cancel(session)
	}
	return n.child.Status()
}

func (n *InverterNode) CloneDeep() Node {
	return &InverterNode{
		id: n.id, priority: n.priority, order: n.order, readOnly: n.readOnly,
		conditions: append([]Condition(nil), n.conditions...),
		child:      n.child.CloneDeep(),
	}
}
