package ptree

import "github.com/tailored-agentic-units/proctree/status"

// fakeSession is a minimal Session implementation used across this
// package's white-box tests; it has no relation to the real session
// package's driver beyond satisfying the interface the two packages share.
type fakeSession struct {
	stack    []NodeId
	data     map[string]any
	failures []error
	emitted  []emittedEvent
}

type emittedEvent struct {
	id     NodeId
	kind   Kind
	op     string
	result status.ResultStatus
}

func newFakeSession() *fakeSession {
	return &fakeSession{data: make(map[string]any)}
}

func (f *fakeSession) PushFrame(id NodeId) { f.stack = append(f.stack, id) }

func (f *fakeSession) PopFrame() {
	if len(f.stack) > 0 {
		f.stack = f.stack[:len(f.stack)-1]
	}
}

func (f *fakeSession) SetData(key string, value any) { f.data[key] = value }

func (f *fakeSession) GetData(key string) (any, bool) {
	v, ok := f.data[key]
	return v, ok
}

func (f *fakeSession) RecordFailure(err error) { f.failures = append(f.failures, err) }

func (f *fakeSession) Emit(id NodeId, k Kind, op string, r status.ResultStatus) {
	f.emitted = append(f.emitted, emittedEvent{id: id, kind: k, op: op, result: r})
}
