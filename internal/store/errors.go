package store

import (
	"errors"
	"fmt"
)

// Precondition violations are expected, frequent outcomes. They are typed so
// the CLI and daemon can map them to structured payloads and blocking exit
// codes without string matching.
var (
	ErrNotActive              = errors.New("workflow not active")
	ErrConfirmationRequired   = errors.New("execute phase requires user confirmation first")
	ErrReconfirmationRequired = errors.New("design was modified - reconfirmation required")
	ErrEmptyStack             = errors.New("workflow stack empty")
	ErrNoActiveWorkflow       = errors.New("no active workflow")
	ErrUnknownProtocol        = errors.New("unknown workflow protocol")
	ErrUnknownNode            = errors.New("unknown validation node")
)

// UnknownStatusError reports a status value outside the closed enum.
type UnknownStatusError struct {
	Status string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown validation status %q", e.Status)
}

// AgentMismatchError reports a checkpoint attempt by the wrong agent. The
// expected agent is included for caller guidance.
type AgentMismatchError struct {
	Agent    string
	Expected string
	Phase    int
}

func (e *AgentMismatchError) Error() string {
	return fmt.Sprintf("agent %s does not match expected %s for phase %d", e.Agent, e.Expected, e.Phase)
}

// WrongPhaseError reports an operation attempted outside its valid phase.
type WrongPhaseError struct {
	Op    string
	Phase int
	Want  int
}

func (e *WrongPhaseError) Error() string {
	return fmt.Sprintf("%s only valid for phase %d, current phase is %d", e.Op, e.Want, e.Phase)
}

// PhaseBoundsError reports a manual phase override outside the table.
type PhaseBoundsError struct {
	Phase int
	Max   int
}

func (e *PhaseBoundsError) Error() string {
	return fmt.Sprintf("phase must be 0-%d, got %d", e.Max, e.Phase)
}

// UnmetDependency pairs a dependency name with its current status for
// diagnostic display.
type UnmetDependency struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// DependencyError reports a mark or check refused because prerequisite
// nodes have not passed.
type DependencyError struct {
	Node  string
	Unmet []UnmetDependency
}

func (e *DependencyError) Error() string {
	names := make([]string, len(e.Unmet))
	for i, d := range e.Unmet {
		names[i] = d.Name
	}
	return fmt.Sprintf("dependencies not satisfied for %s: %v", e.Node, names)
}

// VerificationError reports a passed mark downgraded to claimed because the
// node requires the hook verification path.
type VerificationError struct {
	Node       string
	VerifiedBy string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("node %s requires hook verification; mark from %q recorded as claimed", e.Node, e.VerifiedBy)
}
