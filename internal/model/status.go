package model

import "fmt"

// NodeStatus is the status of a single validation node.
type NodeStatus string

const (
	NodePending  NodeStatus = "pending"
	NodeExecuted NodeStatus = "executed"
	NodePassed   NodeStatus = "passed"
	NodeFailed   NodeStatus = "failed"
	// NodeClaimed records a "passed" mark that arrived from an unauthorized
	// path on a node requiring external verification. It never satisfies
	// dependencies or protocol completion.
	NodeClaimed NodeStatus = "claimed"
)

var validNodeStatuses = map[NodeStatus]bool{
	NodePending:  true,
	NodeExecuted: true,
	NodePassed:   true,
	NodeFailed:   true,
	NodeClaimed:  true,
}

func (s NodeStatus) Valid() bool {
	return validNodeStatuses[s]
}

// Satisfies reports whether this status satisfies a dependency edge.
// Only passed counts; claimed deliberately does not.
func (s NodeStatus) Satisfies() bool {
	return s == NodePassed
}

// Node status lattice: pending → executed → {passed|failed}, with claimed as
// a sequestered near-miss. failed and claimed can be re-driven; passed is
// terminal except for an idempotent re-mark.
var validNodeTransitions = map[NodeStatus]map[NodeStatus]bool{
	NodePending: {
		NodeExecuted: true,
		NodePassed:   true,
		NodeFailed:   true,
		NodeClaimed:  true,
	},
	NodeExecuted: {
		NodePassed:  true,
		NodeFailed:  true,
		NodeClaimed: true,
	},
	NodeFailed: {
		NodePending:  true,
		NodeExecuted: true,
		NodePassed:   true,
		NodeClaimed:  true,
	},
	NodeClaimed: {
		NodePending:  true,
		NodeExecuted: true,
		NodePassed:   true,
		NodeFailed:   true,
	},
	NodePassed: {},
}

func ValidateNodeTransition(from, to NodeStatus) error {
	if !validNodeStatuses[from] {
		return fmt.Errorf("unknown node status %q", from)
	}
	if !validNodeStatuses[to] {
		return fmt.Errorf("unknown node status %q", to)
	}
	if from == to {
		return nil
	}
	if !validNodeTransitions[from][to] {
		return fmt.Errorf("invalid validation transition: %q → %q", from, to)
	}
	return nil
}

// Verifier identifies the path that marked a validation node.
type Verifier string

const (
	VerifierHook   Verifier = "hook"
	VerifierScript Verifier = "script"
	VerifierManual Verifier = "manual"
)

var validVerifiers = map[Verifier]bool{
	VerifierHook:   true,
	VerifierScript: true,
	VerifierManual: true,
}

func (v Verifier) Valid() bool {
	return validVerifiers[v]
}
