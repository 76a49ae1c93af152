// Package session implements the single-shot driver that walks a merged
// process tree to completion: it owns the root Node exclusively for its
// lifetime, tracks the walk-stack as nodes push and pop frames, and
// provides the dotted-path-addressed resume/fail/cancel control surface.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/proctree/observability"
	"github.com/tailored-agentic-units/proctree/ptree"
	"github.com/tailored-agentic-units/proctree/status"
)

// EventNodeTransition is emitted for every node-level Execute/Resume/Fail/
// Cancel step a node reports through Emit. Composite Resume/Fail report even
// when the address was a no-op and the status did not change.
const EventNodeTransition observability.EventType = "ptree.node.transition"

// EventCancelIncomplete is emitted by Cancel when the root fails to settle
// at CANCELLED — some descendant was already terminal and so could not be
// overridden (spec.md §4.8: "a warning is emitted if it does not, but the
// outcome is still returned").
const EventCancelIncomplete observability.EventType = "session.cancel.incomplete"

// Process is the minimal surface a Session needs from its owning process:
// a data bag and a failure channel. It is satisfied by *process.Process;
// session never imports package process, which is what lets process import
// session instead without a cycle.
type Process interface {
	ID() string
	SetData(key string, value any)
	GetData(key string) (any, bool)
	RecordFailure(err error)
}

// Session drives one merged root Node to completion on behalf of one
// Process. A Session is single-shot: once its root reaches a terminal
// status it should be discarded, matching the process it belongs to.
type Session struct {
	id       string
	root     ptree.Node
	process  Process
	observer observability.Observer

	mu    sync.Mutex
	stack []ptree.NodeId
}

// New constructs a Session over root on behalf of process. root should
// already be the fully merged, cloned tree a Manager.GetRoot call returned
// — Session does not itself merge or clone.
func New(root ptree.Node, process Process) *Session {
	return &Session{
		id:       uuid.Must(uuid.NewV7()).String(),
		root:     root,
		process:  process,
		observer: observability.NoOpObserver{},
	}
}

// WithObserver attaches an Observer that receives an event for every node
// transition this session drives. The default is a NoOpObserver.
func (s *Session) WithObserver(obs observability.Observer) *Session {
	if obs != nil {
		s.observer = obs
	}
	return s
}

// ID returns the session's own identifier (distinct from the process's).
func (s *Session) ID() string { return s.id }

// Root returns the session's root node, mostly for diagnostics and tests.
func (s *Session) Root() ptree.Node { return s.root }

// Execute walks the tree from its current state. Calling Execute again
// after a terminal result simply returns the cached terminal status; after
// WAITING it re-enters composites' in-progress bookkeeping exactly as a
// fresh Execute would, since the tree's own nodes — not the session —
// carry that state.
func (s *Session) Execute() status.ResultStatus {
	return s.root.Execute(s)
}

// Resume drives a forced SUCCESS into the node addressed by the dotted
// path (e.g. "a.b.c"), then lets the tree continue from there. An empty or
// absent path delegates to whichever leaf is currently parked WAITING,
// since registered contexts may hold addresses for trees that have since
// been rebuilt out from under them (spec.md §4.8).
func (s *Session) Resume(path string) status.ResultStatus {
	return s.root.Resume(s, s.resolveAddress(path))
}

// Fail mirrors Resume with a forced FAILURE outcome.
func (s *Session) Fail(path string) status.ResultStatus {
	return s.root.Fail(s, s.resolveAddress(path))
}

// resolveAddress turns an explicit dotted path into its segments, or, when
// none was given, walks down the tree's own WAITING-child pointers to find
// the address of whichever leaf is currently parked.
func (s *Session) resolveAddress(path string) []string {
	if addressed := splitPath(path); len(addressed) > 0 {
		return addressed
	}
	if s.root.Status() != status.Waiting {
		return nil
	}
	return waitingPath(s.root)
}

// waitingPath descends from n, which must itself be WAITING, following
// whichever child is also WAITING until it reaches the parked leaf. Handler
// nodes have no children, so the recursion bottoms out there naturally.
func waitingPath(n ptree.Node) []string {
	var next ptree.Node
	switch v := n.(type) {
	case *ptree.SequenceNode:
		next = firstWaiting(v.Children())
	case *ptree.SelectorNode:
		next = firstWaiting(v.Children())
	case *ptree.ParallelNode:
		next = firstWaiting(v.Children())
	case *ptree.InverterNode:
		if child := v.Child(); child != nil && child.Status() == status.Waiting {
			next = child
		}
	}
	if next == nil {
		return nil
	}
	return append([]string{string(next.ID())}, waitingPath(next)...)
}

func firstWaiting(children []ptree.Node) ptree.Node {
	for _, c := range children {
		if c.Status() == status.Waiting {
			return c
		}
	}
	return nil
}

// Cancel transitions the whole tree to CANCELLED. Per spec.md §4.8, the
// outcome should resolve to CANCELLED; if it doesn't — a descendant was
// already terminal and so could not be overridden — the divergent outcome
// is still returned, but a warning event is emitted first.
func (s *Session) Cancel() status.ResultStatus {
	result := s.root.Cancel(s)
	if result != status.Cancelled {
		s.observer.OnEvent(context.Background(), observability.Event{
			Type:      EventCancelIncomplete,
			Level:     observability.LevelWarning,
			Timestamp: time.Now(),
			Source:    "session.Cancel",
			Data: map[string]any{
				"session_id": s.id,
				"result":     result.String(),
			},
		})
	}
	return result
}

// Status returns the root's current cached status without driving it.
func (s *Session) Status() status.ResultStatus {
	return s.root.Status()
}

// WalkStack returns a snapshot of the currently active node path, deepest
// frame last. It reflects whichever nodes are mid-Execute/Resume/Fail right
// now; outside of those calls it is empty.
func (s *Session) WalkStack() []ptree.NodeId {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ptree.NodeId(nil), s.stack...)
}

// PushFrame implements ptree.Session.
func (s *Session) PushFrame(id ptree.NodeId) {
	s.mu.Lock()
	s.stack = append(s.stack, id)
	s.mu.Unlock()
}

// PopFrame implements ptree.Session.
func (s *Session) PopFrame() {
	s.mu.Lock()
	if len(s.stack) > 0 {
		s.stack = s.stack[:len(s.stack)-1]
	}
	s.mu.Unlock()
}

// SetData implements ptree.Session by delegating to the owning process.
func (s *Session) SetData(key string, value any) { s.process.SetData(key, value) }

// GetData implements ptree.Session by delegating to the owning process.
func (s *Session) GetData(key string) (any, bool) { return s.process.GetData(key) }

// RecordFailure implements ptree.Session by delegating to the owning process.
func (s *Session) RecordFailure(err error) { s.process.RecordFailure(err) }

// Emit implements ptree.Session by forwarding the transition to the
// session's Observer as an Event.
func (s *Session) Emit(id ptree.NodeId, k ptree.Kind, op string, r status.ResultStatus) {
	s.observer.OnEvent(context.Background(), observability.Event{
		Type:      EventNodeTransition,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "session." + op,
		Data: map[string]any{
			"session_id": s.id,
			"node_id":    string(id),
			"kind":       k.String(),
			"op":         op,
			"result":     r.String(),
		},
	})
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}
