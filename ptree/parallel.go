package ptree

import (
	"github.com/tailored-agentic-units/proctree/config"
	"github.com/tailored-agentic-units/proctree/status"
)

// ParallelNode runs every eligible, not-yet-settled child in one Execute
// pass; a later resume/fail drives only the addressed waiting child. There
// is no goroutine fan-out; "parallel" describes the aggregation
// semantics (every child is considered together against a threshold), not
// concurrent execution. A single cooperative walk still drives everything.
type ParallelNode struct {
	id         NodeId
	priority   status.Priority
	order      int
	readOnly   bool
	conditions []Condition
	children   []Node
	cfg        config.ParallelConfig

	cached      status.ResultStatus
	initialized bool
	available   []Node
}

// NewParallel constructs a parallel composite with the default threshold
// configuration (all children must succeed, any single failure fails it).
func NewParallel(id NodeId, children ...Node) *ParallelNode {
	return &ParallelNode{
		id:       id,
		priority: status.Normal,
		children: sortedChildren(children),
		cfg:      config.DefaultParallelConfig(),
		cached:   status.Unknown,
	}
}

func (p *ParallelNode) ID() NodeId                    { return p.id }
func (p *ParallelNode) Kind() Kind                     { return KindParallel }
func (p *ParallelNode) Priority() status.Priority      { return p.priority }
func (p *ParallelNode) Order() int                     { return p.order }
func (p *ParallelNode) ReadOnly() bool                 { return p.readOnly }
func (p *ParallelNode) Status() status.ResultStatus    { return p.cached }
func (p *ParallelNode) Conditions() []Condition        { return p.conditions }
func (p *ParallelNode) Children() []Node               { return p.children }
func (p *ParallelNode) Config() config.ParallelConfig  { return p.cfg }

func (p *ParallelNode) WithPriority(pr status.Priority) *ParallelNode { p.priority = pr; return p }
func (p *ParallelNode) WithOrder(order int) *ParallelNode             { p.order = order; return p }
func (p *ParallelNode) WithReadOnly(readOnly bool) *ParallelNode      { p.readOnly = readOnly; return p }
func (p *ParallelNode) WithConditions(conditions ...Condition) *ParallelNode {
	p.conditions = conditions
	return p
}

// WithConfig replaces the threshold configuration.
func (p *ParallelNode) WithConfig(cfg config.ParallelConfig) *ParallelNode {
	p.cfg = cfg
	return p
}

func (p *ParallelNode) Execute(session Session) status.ResultStatus {
	if p.cached.IsTerminal() {
		return p.cached
	}

	session.PushFrame(p.id)
	defer session.PopFrame()

	if !conjunction(p.conditions, session) {
		p.cached = status.Failure
		return p.cached
	}

	if !p.initialized {
		p.available = filterAvailable(p.children, session)
		p.initialized = true
	}

	for _, child := range p.available {
		if !child.Status().IsTerminal() && child.Status() != status.Waiting {
			child.Execute(session)
		}
	}
	p.cached = p.settle(session)
	session.Emit(p.id, KindParallel, "execute", p.cached)
	return p.cached
}

func (p *ParallelNode) Resume(session Session, addressed []string) status.ResultStatus {
	result := p.advance(session, addressed, (Node).Resume)
	session.Emit(p.id, KindParallel, "resume", result)
	return result
}

func (p *ParallelNode) Fail(session Session, addressed []string) status.ResultStatus {
	result := p.advance(session, addressed, (Node).Fail)
	session.Emit(p.id, KindParallel, "fail", result)
	return result
}

// advance resumes/fails whichever waiting child addressed names, then
// re-settles the aggregate threshold. Unlike Sequence/Selector, several
// children may be WAITING at once, so the child is found by id rather than
// a single cursor. A call while not WAITING, an empty address, or an
// address naming no currently-waiting child are all no-ops returning the
// current status unchanged (spec.md §6, §4.8).
func (p *ParallelNode) advance(session Session, addressed []string, op func(Node, Session, []string) status.ResultStatus) status.ResultStatus {
	if p.cached != status.Waiting || len(addressed) == 0 {
		return p.cached
	}

	head, rest := addressed[0], addressed[1:]
	var target Node
	for _, child := range p.available {
		if string(child.ID()) == head && child.Status() == status.Waiting {
			target = child
			break
		}
	}
	if target == nil {
		return p.cached
	}

	op(target, session, rest)
	p.cached = p.settle(session)
	return p.cached
}

// settle recomputes the aggregate status from the children's current
// terminal/waiting counts against the configured thresholds. Children that
// are still WAITING keep the node WAITING unless a threshold has already
// been conclusively reached, in which case remaining waiting children are
// cancelled (spec.md §9's "early exit once the outcome is decided").
func (p *ParallelNode) settle(session Session) status.ResultStatus {
	succeeded, failed, waiting, cancelled := 0, 0, 0, 0
	for _, child := range p.available {
		switch child.Status() {
		case status.Success:
			succeeded++
		case status.Failure:
			failed++
		case status.Waiting:
			waiting++
		case status.Cancelled:
			cancelled++
		}
	}

	// spec.md §4.4 resolution priority step 1: any child resolving CANCELLED
	// on its own (not via this node's own cancelWaiting sweep) forces the
	// whole node CANCELLED ahead of every threshold check.
	if cancelled > 0 {
		p.cancelWaiting(session)
		return status.Cancelled
	}

	requiredSucceed := p.cfg.NumRequiredToSucceed
	if requiredSucceed <= 0 {
		requiredSucceed = len(p.available)
	}
	requiredFail := p.cfg.NumRequiredToFail
	if requiredFail <= 0 {
		requiredFail = 1
	}

	succeedMet := succeeded >= requiredSucceed
	failMet := failed >= requiredFail

	switch {
	case succeedMet && failMet:
		return p.resolveTie(session)
	case succeedMet:
		p.cancelWaiting(session)
		return status.Success
	case failMet:
		p.cancelWaiting(session)
		return status.Failure
	case waiting > 0:
		return status.Waiting
	default:
		// All children terminal, neither threshold reached exactly: spec.md
		// §4.4 case 6 resolves this the same way as the simultaneous-met
		// case, by threshold_mode.
		return p.resolveTie(session)
	}
}

func (p *ParallelNode) resolveTie(session Session) status.ResultStatus {
	p.cancelWaiting(session)
	if p.cfg.ThresholdMode == config.FailurePriority {
		return status.Failure
	}
	return status.Success
}

func (p *ParallelNode) cancelWaiting(session Session) {
	for _, child := range p.available {
		if child.Status() == status.Waiting {
			child.Cancel(session)
		}
	}
}

func (p *ParallelNode) Cancel(session Session) status.ResultStatus {
	if p.cached.IsTerminal() {
		return p.cached
	}
	for _, child := range p.children {
		if !child.Status().IsTerminal() {
			child.Cancel(session)
		}
	}
	p.cached = status.Cancelled
	session.Emit(p.id, KindParallel, "cancel", p.cached)
	return p.cached
}

func (p *ParallelNode) CloneDeep() Node {
	clone := &ParallelNode{
		id: p.id, priority: p.priority, order: p.order, readOnly: p.readOnly,
		conditions: append([]Condition(nil), p.conditions...),
		children:   make([]Node, len(p.children)),
		cfg:        p.cfg,
		cached:     status.Unknown,
	}
	for i, child := range p.children {
		clone.children[i] = child.CloneDeep()
	}
	return clone
}
