package manager_test

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tailored-agentic-units/proctree/config"
	"github.com/tailored-agentic-units/proctree/manager"
	"github.com/tailored-agentic-units/proctree/observability"
	"github.com/tailored-agentic-units/proctree/ptree"
	"github.com/tailored-agentic-units/proctree/status"
)

// recordingObserver collects every event it receives.
type recordingObserver struct {
	mu     sync.Mutex
	events []observability.Event
}

func (o *recordingObserver) OnEvent(_ context.Context, event observability.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) recorded() []observability.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]observability.Event(nil), o.events...)
}

func alwaysSuccess(ptree.Session) status.ResultStatus { return status.Success }
func alwaysFailure(ptree.Session) status.ResultStatus { return status.Failure }

func newTestManager(t *testing.T) *manager.Manager {
	t.Helper()
	metrics := manager.NewMetrics(prometheus.NewRegistry())
	return manager.New(config.DefaultManagerConfig(), metrics)
}

func TestManager_RegisterGlobal_GetRoot(t *testing.T) {
	m := newTestManager(t)
	root := ptree.NewHandler("a", alwaysSuccess)
	if err := m.RegisterGlobal("order", root); err != nil {
		t.Fatalf("RegisterGlobal() error = %v", err)
	}

	got, err := m.GetRoot("order", nil, nil, config.All)
	if err != nil {
		t.Fatalf("GetRoot() error = %v", err)
	}
	if got.ID() != "a" {
		t.Fatalf("got root id %q, want %q", got.ID(), "a")
	}
}

func TestManager_GetRoot_NotFound(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.GetRoot("missing", nil, nil, config.All); err != manager.ErrNotFound {
		t.Fatalf("GetRoot() error = %v, want ErrNotFound", err)
	}
}

func TestManager_GetRoot_ClonesNotSharesRuntimeState(t *testing.T) {
	m := newTestManager(t)
	root := ptree.NewHandler("a", alwaysSuccess)
	m.RegisterGlobal("order", root)

	first, _ := m.GetRoot("order", nil, nil, config.All)
	fakeSession := newNoopSession()
	first.Execute(fakeSession)
	if first.Status() != status.Success {
		t.Fatalf("first clone did not execute as expected")
	}

	second, _ := m.GetRoot("order", nil, nil, config.All)
	if second.Status() != status.Unknown {
		t.Fatalf("second clone status = %v, want Unknown (clone-on-read isolation)", second.Status())
	}
}

func TestManager_RegisterTarget_MergesOverGlobal(t *testing.T) {
	m := newTestManager(t)
	m.RegisterGlobal("order", ptree.NewSequence("root", ptree.NewHandler("a", alwaysSuccess)))
	m.RegisterTarget("order", "vip-customer", ptree.NewSequence("root", ptree.NewHandler("b", alwaysSuccess)))

	root, err := m.GetRoot("order", nil, []manager.TargetInstance{"vip-customer"}, config.All)
	if err != nil {
		t.Fatalf("GetRoot() error = %v", err)
	}
	seq := root.(*ptree.SequenceNode)
	if len(seq.Children()) != 2 {
		t.Fatalf("merged root has %d children, want 2", len(seq.Children()))
	}
}

func TestManager_GetRoot_TargetBehaviourFirst(t *testing.T) {
	m := newTestManager(t)
	m.RegisterGlobal("order", ptree.NewSequence("root"))
	m.RegisterTarget("order", "t1", ptree.NewSequence("root", ptree.NewHandler("a", alwaysSuccess)))
	m.RegisterTarget("order", "t2", ptree.NewSequence("root", ptree.NewHandler("b", alwaysSuccess)))

	root, err := m.GetRoot("order", nil, []manager.TargetInstance{"t1", "t2"}, config.First)
	if err != nil {
		t.Fatalf("GetRoot() error = %v", err)
	}
	seq := root.(*ptree.SequenceNode)
	if len(seq.Children()) != 1 || seq.Children()[0].ID() != "a" {
		t.Fatalf("First behaviour merged %v children, want only t1's", seq.Children())
	}
}

func TestManager_GetRoot_LocalRootIsLowestPrecedence(t *testing.T) {
	m := newTestManager(t)
	m.RegisterGlobal("order", ptree.NewSequence("root", ptree.NewHandler("a", alwaysSuccess)))
	localRoot := ptree.NewSequence("root", ptree.NewHandler("a", alwaysFailure), ptree.NewHandler("b", alwaysFailure))

	root, err := m.GetRoot("order", localRoot, nil, config.All)
	if err != nil {
		t.Fatalf("GetRoot() error = %v", err)
	}
	seq := root.(*ptree.SequenceNode)
	if len(seq.Children()) != 2 {
		t.Fatalf("merged root has %d children, want 2 (local's b plus global's a)", len(seq.Children()))
	}
	fakeSession := newNoopSession()
	if got := seq.Children()[0].Execute(fakeSession); got != status.Success {
		t.Fatalf("handler a = %v, want Success (global's handler overrides local_root's)", got)
	}
}

func TestManager_GetRoot_LocalRootAloneWhenNoGlobalRegistered(t *testing.T) {
	m := newTestManager(t)
	localRoot := ptree.NewHandler("a", alwaysSuccess)

	root, err := m.GetRoot("order", localRoot, nil, config.All)
	if err != nil {
		t.Fatalf("GetRoot() error = %v", err)
	}
	if root.ID() != "a" {
		t.Fatalf("got root id %q, want %q", root.ID(), "a")
	}
}

func TestManager_RegisterGlobal_SecondCallMergesNotReplaces(t *testing.T) {
	m := newTestManager(t)
	m.RegisterGlobal("order", ptree.NewSequence("root", ptree.NewHandler("a", alwaysSuccess)))
	m.RegisterGlobal("order", ptree.NewSequence("root", ptree.NewHandler("b", alwaysSuccess)))

	root, err := m.GetRoot("order", nil, nil, config.All)
	if err != nil {
		t.Fatalf("GetRoot() error = %v", err)
	}
	seq := root.(*ptree.SequenceNode)
	if len(seq.Children()) != 2 {
		t.Fatalf("merged root has %d children, want 2 (both registrations kept)", len(seq.Children()))
	}
}

func TestManager_ResetForTest(t *testing.T) {
	m := newTestManager(t)
	m.RegisterGlobal("order", ptree.NewHandler("a", alwaysSuccess))
	m.ResetForTest()
	if _, err := m.GetRoot("order", nil, nil, config.All); err != manager.ErrNotFound {
		t.Fatalf("expected ErrNotFound after ResetForTest, got %v", err)
	}
}

func TestManager_WithObserver_EmitsRegistrationAndGetRootEvents(t *testing.T) {
	obs := &recordingObserver{}
	m := newTestManager(t).WithObserver(obs)

	if err := m.RegisterGlobal("order", ptree.NewHandler("a", alwaysSuccess)); err != nil {
		t.Fatalf("RegisterGlobal() error = %v", err)
	}
	if _, err := m.GetRoot("order", nil, nil, config.All); err != nil {
		t.Fatalf("GetRoot() error = %v", err)
	}

	var sawRegistration, sawGetRoot bool
	for _, e := range obs.recorded() {
		switch e.Type {
		case manager.EventRegistration:
			sawRegistration = true
		case manager.EventGetRoot:
			sawGetRoot = true
		}
	}
	if !sawRegistration {
		t.Error("expected a manager.EventRegistration event from RegisterGlobal")
	}
	if !sawGetRoot {
		t.Error("expected a manager.EventGetRoot event from GetRoot")
	}
}

// noopSession is a bare-bones ptree.Session for tests that only need to
// drive Execute without inspecting walk-stack or data-bag behaviour.
type noopSession struct{ failures []error }

func newNoopSession() *noopSession                      { return &noopSession{} }
func (s *noopSession) PushFrame(ptree.NodeId)            {}
func (s *noopSession) PopFrame()                         {}
func (s *noopSession) SetData(string, any)               {}
func (s *noopSession) GetData(string) (any, bool)        { return nil, false }
func (s *noopSession) RecordFailure(err error)            { s.failures = append(s.failures, err) }
func (s *noopSession) Emit(ptree.NodeId, ptree.Kind, string, status.ResultStatus) {}
