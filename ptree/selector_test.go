package ptree

import (
	"testing"

	"github.com/tailored-agentic-units/proctree/status"
)

func TestSelectorNode_FirstSuccessWins(t *testing.T) {
	ran := []string{}
	track := func(id string, result status.ResultStatus) HandlerFunc {
		return func(Session) status.ResultStatus {
			ran = append(ran, id)
			return result
		}
	}
	sel := NewSelector("sel",
		NewHandler("a", track("a", status.Failure)),
		NewHandler("b", track("b", status.Success)),
		NewHandler("c", track("c", status.Success)),
	)
	s := newFakeSession()
	if got := sel.Execute(s); got != status.Success {
		t.Fatalf("Execute() = %v, want Success", got)
	}
	if len(ran) != 2 || ran[1] != "b" {
		t.Fatalf("expected to stop at b, ran = %v", ran)
	}
}

func TestSelectorNode_AllFail(t *testing.T) {
	sel := NewSelector("sel",
		NewHandler("a", always(status.Failure)),
		NewHandler("b", always(status.Failure)),
	)
	s := newFakeSession()
	if got := sel.Execute(s); got != status.Failure {
		t.Fatalf("Execute() = %v, want Failure", got)
	}
}

func TestSelectorNode_WaitThenResumeFallsThrough(t *testing.T) {
	sel := NewSelector("sel",
		NewHandler("a", always(status.Failure)),
		NewHandler("b", always(status.Waiting)),
	)
	s := newFakeSession()
	if got := sel.Execute(s); got != status.Waiting {
		t.Fatalf("Execute() = %v, want Waiting", got)
	}
	if got := sel.Resume(s, []string{"b"}); got != status.Success {
		t.Fatalf("Resume() = %v, want Success", got)
	}
}

func TestSelectorNode_AllChildrenExcludedResolvesFailure(t *testing.T) {
	// An empty available_children set resolves to FAILURE: no fallback
	// succeeded because none were even eligible (spec.md §4.3).
	sel := NewSelector("sel",
		NewHandler("a", always(status.Success)).WithConditions(func(Session) bool { return false }),
		NewHandler("b", always(status.Success)).WithConditions(func(Session) bool { return false }),
	)
	s := newFakeSession()
	if got := sel.Execute(s); got != status.Failure {
		t.Fatalf("Execute() = %v, want Failure when every child is condition-excluded", got)
	}
}

func TestSelectorNode_WaitThenFailContinuesToNextSibling(t *testing.T) {
	sel := NewSelector("sel",
		NewHandler("a", always(status.Waiting)),
		NewHandler("b", always(status.Success)),
	)
	s := newFakeSession()
	sel.Execute(s)
	if got := sel.Fail(s, []string{"a"}); got != status.Success {
		t.Fatalf("Fail() on a should fall through to b = %v, want Success", got)
	}
}
