// Package process implements Process, the data-bag-and-lifecycle wrapper
// that owns a single run of a process tree: construct, optionally attach
// processing hooks, execute once, then drive resume/fail/cancel against the
// resulting session until the tree reaches a terminal status.
package process

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/proctree/manager"
	"github.com/tailored-agentic-units/proctree/observability"
	"github.com/tailored-agentic-units/proctree/ptree"
	"github.com/tailored-agentic-units/proctree/session"
	"github.com/tailored-agentic-units/proctree/status"
)

// ProcessingFunc is a tree-extension hook: given the process, it returns a
// Node layer to merge into the local tree, or nil to contribute nothing. It
// backs both the single subclass override hook and the composable runtime
// with_processing chain (spec.md §6) — a hook returning an error aborts
// Execute before a Session is ever built.
type ProcessingFunc func(p *Process) (ptree.Node, error)

// Process is a single-shot data bag plus the driver around one Session. The
// data bag follows the teacher's cache shape: an RWMutex-guarded map,
// defensive copies on read, no implicit persistence.
type Process struct {
	id        string
	createdAt time.Time

	mu       sync.RWMutex
	data     map[string]any
	failures []error

	processingHook ProcessingFunc
	processingFns  []ProcessingFunc
	localRoot      ptree.Node
	observer       observability.Observer

	executed bool
	sess     *session.Session
}

// New constructs a Process with a fresh UUIDv7 identifier.
func New() *Process {
	return &Process{
		id:        uuid.Must(uuid.NewV7()).String(),
		createdAt: time.Now(),
		data:      make(map[string]any),
		observer:  observability.NoOpObserver{},
	}
}

// ID returns the process's unique identifier.
func (p *Process) ID() string { return p.id }

// CreatedAt returns when the process was constructed.
func (p *Process) CreatedAt() time.Time { return p.createdAt }

// SetData stores a value in the process's data bag. It implements
// session.Process so a Session can delegate handler data access here.
func (p *Process) SetData(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[key] = value
}

// GetData retrieves a value from the data bag. It implements
// session.Process; see the package-level GetData/TryGetData for the typed
// convenience wrappers application code should generally prefer.
func (p *Process) GetData(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.data[key]
	return v, ok
}

// RecordFailure appends err to the process's failure channel. It implements
// session.Process; handler panics and processing-hook errors land here.
func (p *Process) RecordFailure(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = append(p.failures, err)
}

// Failures returns a defensive copy of every error recorded during
// execution (handler panics, processing-hook errors).
func (p *Process) Failures() []error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.failures)
}

// WithProcessing registers a runtime tree-extension hook and returns the
// process for chaining, e.g.
// process.New().WithProcessing(loadAccountTree).WithProcessing(loadCartTree).
// It is the idempotent-composable `with_processing` of spec.md §6: each
// registered hook contributes another layer, later hooks overlaying earlier
// ones, all of them applied after the subclass override hook (see
// WithProcessingHook) and after whatever the Manager/local root resolved.
func (p *Process) WithProcessing(fn ProcessingFunc) *Process {
	p.processingFns = append(p.processingFns, fn)
	return p
}

// WithProcessingHook installs the single subclass override hook — spec.md
// §6's `processing(builder) -> builder`, run once, after the resolved root
// but before any WithProcessing contributions (§4.6's build-order: "...
// subclass processing() hook → runtime with_processing").
func (p *Process) WithProcessingHook(fn ProcessingFunc) *Process {
	p.processingHook = fn
	return p
}

// WithLocalRoot attaches a root Node for the process. When Execute is given
// a Manager, root is passed to GetRoot as the lowest-precedence seed layer;
// without a Manager, root is executed on its own. Useful for ad hoc or test
// trees; root is cloned at Execute time like any manager-resolved root.
func (p *Process) WithLocalRoot(root ptree.Node) *Process {
	p.localRoot = root
	return p
}

// WithObserver attaches an Observer that receives an event for every state
// transition this process's Session drives. The default is a NoOpObserver.
func (p *Process) WithObserver(obs observability.Observer) *Process {
	if obs != nil {
		p.observer = obs
	}
	return p
}

// Execute resolves a root (from localRoot and/or mgr), layers the subclass
// processing hook and every registered with_processing contribution on top
// of it, builds a Session over the result, and drives that session's first
// Execute call. Execute is single-shot: a second call returns
// ErrAlreadyExecuted without touching the tree.
func (p *Process) Execute(mgr *manager.Manager, processType manager.ProcessType, targets ...manager.TargetInstance) (status.ResultStatus, error) {
	p.mu.Lock()
	if p.executed {
		p.mu.Unlock()
		return status.Unknown, ErrAlreadyExecuted
	}
	p.executed = true
	p.mu.Unlock()

	root, err := p.resolveRoot(mgr, processType, targets)
	if err != nil {
		return status.Unknown, err
	}

	root, err = p.applyProcessing(root)
	if err != nil {
		wrapped := &ProcessingError{Err: err}
		p.RecordFailure(wrapped)
		return status.Failure, wrapped
	}

	sess := session.New(root, p).WithObserver(p.observer)
	p.mu.Lock()
	p.sess = sess
	p.mu.Unlock()

	return sess.Execute(), nil
}

// applyProcessing layers the subclass override hook, then every registered
// with_processing contribution, on top of root — the highest two rungs of
// spec.md §4.6's build-order ladder. A hook returning a nil Node contributes
// nothing; any hook error aborts before a layer is merged.
func (p *Process) applyProcessing(root ptree.Node) (ptree.Node, error) {
	b := ptree.NewBuilder().AddLayer(root)

	if p.processingHook != nil {
		layer, err := p.processingHook(p)
		if err != nil {
			return nil, err
		}
		if layer != nil {
			b.AddLayer(layer)
		}
	}

	for _, fn := range p.processingFns {
		layer, err := fn(p)
		if err != nil {
			return nil, err
		}
		if layer != nil {
			b.AddLayer(layer)
		}
	}

	return b.Build()
}

// resolveRoot hands localRoot to the manager as the lowest-precedence seed
// layer rather than bypassing it: a registered global or per-target tree
// still overrides same-id/kind nodes from localRoot (spec.md §4.7). Only
// when there is no manager at all does localRoot stand alone.
func (p *Process) resolveRoot(mgr *manager.Manager, processType manager.ProcessType, targets []manager.TargetInstance) (ptree.Node, error) {
	if mgr == nil {
		if p.localRoot != nil {
			return p.localRoot.CloneDeep(), nil
		}
		return nil, ErrNoRoot
	}
	return mgr.GetRoot(processType, p.localRoot, targets, mgr.DefaultBehaviour())
}

// Resume forwards a dotted-path resume to the process's session. It
// returns ErrNotExecuted if Execute has not yet run.
func (p *Process) Resume(path string) (status.ResultStatus, error) {
	sess, err := p.activeSession()
	if err != nil {
		return status.Unknown, err
	}
	return sess.Resume(path), nil
}

// Fail mirrors Resume with a forced FAILURE outcome.
func (p *Process) Fail(path string) (status.ResultStatus, error) {
	sess, err := p.activeSession()
	if err != nil {
		return status.Unknown, err
	}
	return sess.Fail(path), nil
}

// Cancel transitions the whole tree to CANCELLED.
func (p *Process) Cancel() (status.ResultStatus, error) {
	sess, err := p.activeSession()
	if err != nil {
		return status.Unknown, err
	}
	return sess.Cancel(), nil
}

// Status returns the current root status without driving it, or UNKNOWN
// before Execute has run.
func (p *Process) Status() status.ResultStatus {
	p.mu.RLock()
	sess := p.sess
	p.mu.RUnlock()
	if sess == nil {
		return status.Unknown
	}
	return sess.Status()
}

func (p *Process) activeSession() (*session.Session, error) {
	p.mu.RLock()
	sess := p.sess
	p.mu.RUnlock()
	if sess == nil {
		return nil, ErrNotExecuted
	}
	return sess, nil
}

// GetData retrieves a typed value from p's data bag, panicking if the key
// is missing or holds a different type — mirroring the handler-exception
// rule: callers inside a handler that hit this panic are converted to a
// recorded FAILURE by the enclosing HandlerNode, not a crashed process.
func GetData[T any](p *Process, key string) T {
	v, ok := p.GetData(key)
	if !ok {
		panic(&DataMissingError{Key: key})
	}
	t, ok := v.(T)
	if !ok {
		panic(&DataTypeError{Key: key})
	}
	return t
}

// TryGetData is the non-panicking counterpart to GetData.
func TryGetData[T any](p *Process, key string) (T, bool) {
	var zero T
	v, ok := p.GetData(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// SetData stores a typed value in p's data bag. It is equivalent to
// p.SetData(key, value) but reads better at call sites that already use
// the generic GetData/TryGetData helpers.
func SetData[T any](p *Process, key string, value T) {
	p.SetData(key, value)
}
