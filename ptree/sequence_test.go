package ptree

import (
	"testing"

	"github.com/tailored-agentic-units/proctree/status"
)

func always(result status.ResultStatus) HandlerFunc {
	return func(Session) status.ResultStatus { return result }
}

func TestSequenceNode_AllSucceed(t *testing.T) {
	seq := NewSequence("seq",
		NewHandler("a", always(status.Success)),
		NewHandler("b", always(status.Success)),
		NewHandler("c", always(status.Success)),
	)
	s := newFakeSession()
	if got := seq.Execute(s); got != status.Success {
		t.Fatalf("Execute() = %v, want Success", got)
	}
}

func TestSequenceNode_ShortCircuitsOnFailure(t *testing.T) {
	ran := []string{}
	track := func(id string, result status.ResultStatus) HandlerFunc {
		return func(Session) status.ResultStatus {
			ran = append(ran, id)
			return result
		}
	}
	seq := NewSequence("seq",
		NewHandler("a", track("a", status.Success)),
		NewHandler("b", track("b", status.Failure)),
		NewHandler("c", track("c", status.Success)),
	)
	s := newFakeSession()
	if got := seq.Execute(s); got != status.Failure {
		t.Fatalf("Execute() = %v, want Failure", got)
	}
	if len(ran) != 2 || ran[1] != "b" {
		t.Fatalf("expected short-circuit after b, ran = %v", ran)
	}
}

func TestSequenceNode_WaitThenResume(t *testing.T) {
	seq := NewSequence("seq",
		NewHandler("a", always(status.Success)),
		NewHandler("b", always(status.Waiting)),
		NewHandler("c", always(status.Success)),
	)
	s := newFakeSession()
	if got := seq.Execute(s); got != status.Waiting {
		t.Fatalf("Execute() = %v, want Waiting", got)
	}

	if got := seq.Resume(s, []string{"b"}); got != status.Success {
		t.Fatalf("Resume() = %v, want Success (continues through c)", got)
	}
}

func TestSequenceNode_WaitThenFail(t *testing.T) {
	seq := NewSequence("seq",
		NewHandler("a", always(status.Waiting)),
		NewHandler("b", always(status.Success)),
	)
	s := newFakeSession()
	seq.Execute(s)
	if got := seq.Fail(s, []string{"a"}); got != status.Failure {
		t.Fatalf("Fail() = %v, want Failure", got)
	}
}

func TestSequenceNode_ResumeMismatchedAddressIsNoOp(t *testing.T) {
	// A stale or mismatched dotted path is routine after a merge reshapes
	// the tree — spec.md §6 calls this a no-op, not an error.
	seq := NewSequence("seq", NewHandler("a", always(status.Waiting)))
	s := newFakeSession()
	seq.Execute(s)
	if got := seq.Resume(s, []string{"wrong-id"}); got != status.Waiting {
		t.Fatalf("Resume() with mismatched address = %v, want unchanged Waiting", got)
	}
	if len(s.failures) != 0 {
		t.Errorf("mismatched address should not record a failure, got %v", s.failures)
	}
}

func TestSequenceNode_ConditionExcludedChildIsSkippedNotFailed(t *testing.T) {
	// An excluded child must not short-circuit the sequence to FAILURE —
	// it is simply absent from available_children (spec.md §4.2).
	ran := []string{}
	track := func(id string) HandlerFunc {
		return func(Session) status.ResultStatus {
			ran = append(ran, id)
			return status.Success
		}
	}
	seq := NewSequence("seq",
		NewHandler("a", track("a")),
		NewHandler("b", track("b")).WithConditions(func(Session) bool { return false }),
		NewHandler("c", track("c")),
	)
	s := newFakeSession()
	if got := seq.Execute(s); got != status.Success {
		t.Fatalf("Execute() = %v, want Success (excluded child should not fail the sequence)", got)
	}
	if len(ran) != 2 || ran[0] != "a" || ran[1] != "c" {
		t.Fatalf("expected only a and c to run, ran = %v", ran)
	}
}

func TestSequenceNode_PriorityOrdering(t *testing.T) {
	ran := []string{}
	mk := func(id NodeId, p status.Priority, order int) Node {
		return NewHandler(id, func(Session) status.ResultStatus {
			ran = append(ran, string(id))
			return status.Success
		}).WithPriority(p).WithOrder(order)
	}
	seq := NewSequence("seq",
		mk("low", status.Low, 0),
		mk("critical", status.Critical, 1),
		mk("normal", status.Normal, 2),
	)
	seq.Execute(newFakeSession())
	want := []string{"critical", "normal", "low"}
	for i, id := range want {
		if ran[i] != id {
			t.Fatalf("execution order = %v, want %v", ran, want)
		}
	}
}

func TestSequenceNode_CloneDeep(t *testing.T) {
	seq := NewSequence("seq", NewHandler("a", always(status.Success)))
	s := newFakeSession()
	seq.Execute(s)

	clone := seq.CloneDeep().(*SequenceNode)
	if clone.Status() != status.Unknown {
		t.Errorf("clone status = %v, want Unknown", clone.Status())
	}
	if clone.Execute(newFakeSession()) != status.Success {
		t.Error("clone did not independently execute")
	}
	if seq.Status() != status.Success {
		t.Error("cloning should not affect the original's cached status")
	}
}

func TestSequenceNode_Cancel(t *testing.T) {
	seq := NewSequence("seq",
		NewHandler("a", always(status.Success)),
		NewHandler("b", always(status.Waiting)),
	)
	s := newFakeSession()
	seq.Execute(s)
	if got := seq.Cancel(s); got != status.Cancelled {
		t.Fatalf("Cancel() = %v, want Cancelled", got)
	}
}
