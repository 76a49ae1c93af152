package ptree

import (
	"fmt"
	"sync/atomic"

	"github.com/tailored-agentic-units/proctree/status"
)

// HandlerFunc is the user-supplied leaf logic. A HandlerFunc that returns
// status.Waiting suspends the session; a later resume/fail control
// operation addressed at this node's id replaces the cached status without
// necessarily re-invoking the function (see Resume/Fail).
type HandlerFunc func(s Session) status.ResultStatus

// HandlerNode is the only leaf kind: it wraps a single HandlerFunc and
// never has children.
type HandlerNode struct {
	id         NodeId
	priority   status.Priority
	order      int
	readOnly   bool
	conditions []Condition
	fn         HandlerFunc

	// execCount is shared by every clone descended from the same template
	// (spec.md §9 "shared counter across clones"): CloneDeep copies this
	// pointer rather than allocating a fresh one, so execution_count keeps
	// counting across a template's whole clone lineage.
	execCount *atomic.Int64

	cached  status.ResultStatus
	pending status.ResultStatus // set by Resume/Fail when called before the handler has ever run
}

// NewHandler constructs a handler leaf. Node constructors stay cheap and
// infallible: a nil fn is not rejected here or by the builder; such a
// handler resolves FAILURE when executed.
func NewHandler(id NodeId, fn HandlerFunc) *HandlerNode {
	return &HandlerNode{
		id: id, fn: fn, priority: status.Normal,
		execCount: new(atomic.Int64),
		cached:    status.Unknown,
		pending:   status.Unknown,
	}
}

func (h *HandlerNode) ID() NodeId                  { return h.id }
func (h *HandlerNode) Kind() Kind                  { return KindHandler }
func (h *HandlerNode) Priority() status.Priority   { return h.priority }
func (h *HandlerNode) Order() int                  { return h.order }
func (h *HandlerNode) ReadOnly() bool              { return h.readOnly }
func (h *HandlerNode) Status() status.ResultStatus { return h.cached }
func (h *HandlerNode) Conditions() []Condition     { return h.conditions }

// ExecutionCount returns how many times fn has actually been invoked across
// this node's whole clone lineage (spec.md §3 invariant: incremented
// exactly once per real invocation, shared via the template).
func (h *HandlerNode) ExecutionCount() int64 { return h.execCount.Load() }

// WithPriority sets the node's priority and returns it for chaining.
func (h *HandlerNode) WithPriority(p status.Priority) *HandlerNode { h.priority = p; return h }

// WithOrder sets the builder-assigned tie-break order.
func (h *HandlerNode) WithOrder(order int) *HandlerNode { h.order = order; return h }

// WithReadOnly marks the node as not mergeable-over.
func (h *HandlerNode) WithReadOnly(readOnly bool) *HandlerNode { h.readOnly = readOnly; return h }

// WithConditions sets the node's guard conditions (conjunction).
func (h *HandlerNode) WithConditions(conditions ...Condition) *HandlerNode {
	h.conditions = conditions
	return h
}

// Execute invokes fn once per non-terminal entry. If the node already holds
// a terminal status (SUCCESS, FAILURE, CANCELLED) it is returned unchanged
// without re-invoking fn — handlers are single-shot, like the process they
// belong to.
//
// A handler's own Conditions() are not re-checked here: the parent composite
// already evaluated them exactly once, when it computed available_children
// (spec.md §3 "not re-evaluated mid-run"). Re-checking here would let a
// condition that flipped false between the parent's one-time gate and this
// call force a FAILURE the frozen working set was built specifically to
// rule out.
//
// If a resume/fail arrived before the handler ever ran, pending holds the
// forced outcome; fn still runs (and execution_count still increments) so
// it gets a chance to observe state or override to CANCELLED, but pending
// otherwise wins over whatever fn returns (spec.md §4.1).
func (h *HandlerNode) Execute(s Session) status.ResultStatus {
	if h.cached.IsTerminal() {
		return h.cached
	}

	s.PushFrame(h.id)
	defer s.PopFrame()

	result := h.invoke(s)
	if h.pending != status.Unknown && result != status.Cancelled {
		result = h.pending
	}
	h.pending = status.Unknown
	h.cached = result
	s.Emit(h.id, KindHandler, "execute", h.cached)
	return h.cached
}

// invoke calls fn, converting a panic into a recorded failure per the
// handler-exception rule (spec.md §7): the session's failure channel gets
// the error, and the node resolves FAILURE rather than crashing the walk.
// It increments execCount exactly once, on every real call.
func (h *HandlerNode) invoke(s Session) (result status.ResultStatus) {
	defer func() {
		if r := recover(); r != nil {
			s.RecordFailure(fmt.Errorf("ptree: handler %q panicked: %v", h.id, r))
			result = status.Failure
		}
	}()
	h.execCount.Add(1)
	if h.fn == nil {
		return status.Failure
	}
	return h.fn(s)
}

// Resume forces a SUCCESS outcome. addressed is ignored: a handler has no
// children to forward a remaining path to, and a path that overshoots a
// leaf is simply irrelevant here, not an error (spec.md §6 addressing
// notes).
//
// If the handler never ran (UNKNOWN), Resume pre-sets the pending outcome
// and runs Execute so fn still gets invoked once — it may still resolve
// CANCELLED itself. If the handler is WAITING (it already ran once and
// suspended), Resume transitions directly to SUCCESS without invoking fn
// again. Any other (terminal) status is returned unchanged.
func (h *HandlerNode) Resume(s Session, addressed []string) status.ResultStatus {
	switch h.cached {
	case status.Waiting:
		h.cached = status.Success
		s.Emit(h.id, KindHandler, "resume", h.cached)
		return h.cached
	case status.Unknown:
		h.pending = status.Success
		return h.Execute(s)
	default:
		return h.cached
	}
}

// Fail mirrors Resume with a forced FAILURE outcome.
func (h *HandlerNode) Fail(s Session, addressed []string) status.ResultStatus {
	switch h.cached {
	case status.Waiting:
		h.cached = status.Failure
		s.Emit(h.id, KindHandler, "fail", h.cached)
		return h.cached
	case status.Unknown:
		h.pending = status.Failure
		return h.Execute(s)
	default:
		return h.cached
	}
}

// Cancel transitions a non-terminal handler to CANCELLED.
func (h *HandlerNode) Cancel(s Session) status.ResultStatus {
	if !h.cached.IsTerminal() {
		h.cached = status.Cancelled
		s.Emit(h.id, KindHandler, "cancel", h.cached)
	}
	return h.cached
}

// CloneDeep copies configuration and resets runtime state to UNKNOWN, but
// shares execCount with the template: execution_count must keep counting
// across every clone of the same handler (spec.md §3, §9).
func (h *HandlerNode) CloneDeep() Node {
	clone := *h
	clone.cached = status.Unknown
	clone.pending = status.Unknown
	clone.conditions = append([]Condition(nil), h.conditions...)
	return &clone
}
