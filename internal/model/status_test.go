package model

import "testing"

func TestNodeStatusSatisfies(t *testing.T) {
	tests := []struct {
		status    NodeStatus
		satisfies bool
	}{
		{NodePending, false},
		{NodeExecuted, false},
		{NodePassed, true},
		{NodeFailed, false},
		{NodeClaimed, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Satisfies(); got != tt.satisfies {
				t.Errorf("Satisfies(%q) = %v, want %v", tt.status, got, tt.satisfies)
			}
		})
	}
}

func TestValidateNodeTransition(t *testing.T) {
	valid := []struct {
		from, to NodeStatus
	}{
		{NodePending, NodeExecuted},
		{NodePending, NodePassed},
		{NodePending, NodeFailed},
		{NodeExecuted, NodePassed},
		{NodeExecuted, NodeFailed},
		{NodeFailed, NodePending},
		{NodeFailed, NodeExecuted},
		{NodeFailed, NodePassed},
		{NodeClaimed, NodePassed},
		{NodeClaimed, NodePending},
	}
	for _, tt := range valid {
		if err := ValidateNodeTransition(tt.from, tt.to); err != nil {
			t.Errorf("ValidateNodeTransition(%q, %q) = %v, want nil", tt.from, tt.to, err)
		}
	}

	invalid := []struct {
		from, to NodeStatus
	}{
		{NodePassed, NodePending},
		{NodePassed, NodeExecuted},
		{NodePassed, NodeFailed},
		{NodeExecuted, NodePending},
	}
	for _, tt := range invalid {
		if err := ValidateNodeTransition(tt.from, tt.to); err == nil {
			t.Errorf("ValidateNodeTransition(%q, %q) = nil, want error", tt.from, tt.to)
		}
	}
}

func TestValidateNodeTransition_SelfIsIdempotent(t *testing.T) {
	for status := range validNodeStatuses {
		if err := ValidateNodeTransition(status, status); err != nil {
			t.Errorf("ValidateNodeTransition(%q, %q) = %v, want nil", status, status, err)
		}
	}
}

func TestValidateNodeTransition_UnknownStatus(t *testing.T) {
	if err := ValidateNodeTransition("bogus", NodePassed); err == nil {
		t.Error("expected error for unknown from status")
	}
	if err := ValidateNodeTransition(NodePending, "bogus"); err == nil {
		t.Error("expected error for unknown to status")
	}
}

func TestVerifierValid(t *testing.T) {
	for _, v := range []Verifier{VerifierHook, VerifierScript, VerifierManual} {
		if !v.Valid() {
			t.Errorf("Verifier(%q).Valid() = false, want true", v)
		}
	}
	if Verifier("robot").Valid() {
		t.Error(`Verifier("robot").Valid() = true, want false`)
	}
}
