package ptree

import (
	"testing"

	"github.com/tailored-agentic-units/proctree/status"
)

func TestInverterNode_SwapsSuccessAndFailure(t *testing.T) {
	tests := []struct {
		child status.ResultStatus
		want  status.ResultStatus
	}{
		{status.Success, status.Failure},
		{status.Failure, status.Success},
		{status.Waiting, status.Waiting},
	}
	for _, tt := range tests {
		inv := NewInverter("inv", NewHandler("child", always(tt.child)))
		if got := inv.Execute(newFakeSession()); got != tt.want {
			t.Errorf("child=%v: Execute() = %v, want %v", tt.child, got, tt.want)
		}
	}
}

func TestInverterNode_ResumeDelegatesWithoutMapping(t *testing.T) {
	// spec.md §4.5: resume/fail/cancel delegate without mapping — only
	// Execute's return value and Status() apply the SUCCESS<->FAILURE swap.
	inv := NewInverter("inv", NewHandler("child", always(status.Waiting)))
	s := newFakeSession()
	inv.Execute(s)
	if got := inv.Resume(s, nil); got != status.Success {
		t.Fatalf("Resume() = %v, want Success (child's raw resume outcome, unmapped)", got)
	}
	if got := inv.Status(); got != status.Failure {
		t.Fatalf("Status() after resume = %v, want Failure (get_status still maps)", got)
	}
}

func TestInverterNode_CancelPropagatesToChild(t *testing.T) {
	child := NewHandler("child", always(status.Waiting))
	inv := NewInverter("inv", child)
	s := newFakeSession()
	inv.Execute(s)
	inv.Cancel(s)
	if child.Status() != status.Cancelled {
		t.Errorf("child status = %v, want Cancelled", child.Status())
	}
}
