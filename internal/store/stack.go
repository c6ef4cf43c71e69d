package store

import (
	"github.com/forgelabs/forged/internal/model"

	"github.com/google/uuid"
)

// initialPhaseLabel is the phase annotation a freshly pushed workflow
// carries until the client sets one.
const initialPhaseLabel = "init"

// PushResult describes the stack after a push.
type PushResult struct {
	WorkflowID   string `json:"workflow_id"`
	WorkflowType string `json:"workflow_type"`
	Depth        int    `json:"depth"`
}

// PushWorkflow suspends the current top entry, capturing its phase label for
// resume, and makes the new workflow the interactive target.
func (s *Store) PushWorkflow(session, workflowType string) (PushResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss := s.doc.Session(session)
	if n := len(ss.Stack); n > 0 {
		top := &ss.Stack[n-1]
		top.Suspended = true
		top.ResumePhase = top.CurrentPhase
	}

	entry := model.StackEntry{
		WorkflowID:   workflowType + "-" + uuid.NewString(),
		WorkflowType: workflowType,
		CurrentPhase: initialPhaseLabel,
		StartedAt:    s.timestamp(),
	}
	ss.Stack = append(ss.Stack, entry)

	if err := s.save(); err != nil {
		return PushResult{}, err
	}
	return PushResult{
		WorkflowID:   entry.WorkflowID,
		WorkflowType: workflowType,
		Depth:        len(ss.Stack),
	}, nil
}

// PopResult describes a completed pop: what came off and what resumed.
type PopResult struct {
	Popped      string `json:"popped"`
	Resumed     string `json:"resumed_workflow,omitempty"`
	ResumePhase string `json:"resume_phase,omitempty"`
	Depth       int    `json:"depth"`
}

// PopWorkflow removes the top entry and un-suspends the parent, handing its
// recorded resume phase back to the caller so context can be restored.
func (s *Store) PopWorkflow(session string) (PopResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss := s.doc.Session(session)
	n := len(ss.Stack)
	if n == 0 {
		return PopResult{}, ErrEmptyStack
	}

	popped := ss.Stack[n-1]
	ss.Stack = ss.Stack[:n-1]

	result := PopResult{Popped: popped.WorkflowType, Depth: len(ss.Stack)}
	if m := len(ss.Stack); m > 0 {
		top := &ss.Stack[m-1]
		top.Suspended = false
		result.Resumed = top.WorkflowType
		result.ResumePhase = top.ResumePhase
	}

	if err := s.save(); err != nil {
		return PopResult{}, err
	}
	return result, nil
}

// ActiveWorkflow returns a copy of the top-of-stack entry.
func (s *Store) ActiveWorkflow(session string) (model.StackEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stack := s.doc.Session(session).Stack
	if len(stack) == 0 {
		return model.StackEntry{}, false
	}
	return stack[len(stack)-1], true
}

// Stack returns a copy of the session's full workflow stack, bottom first.
func (s *Store) Stack(session string) []model.StackEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.StackEntry(nil), s.doc.Session(session).Stack...)
}

// ClearStack drops all stack entries for a session.
func (s *Store) ClearStack(session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Session(session).Stack = nil
	return s.save()
}

// SetWorkflowPhase annotates the active (top) entry with a phase label.
func (s *Store) SetWorkflowPhase(session, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss := s.doc.Session(session)
	n := len(ss.Stack)
	if n == 0 {
		return ErrNoActiveWorkflow
	}
	ss.Stack[n-1].CurrentPhase = label
	return s.save()
}

// StepResult reports the linear step counter of the active workflow.
type StepResult struct {
	Step         int    `json:"step"`
	WorkflowType string `json:"workflow_type"`
}

// CommandStep returns the current step for the active workflow. Steps start
// at 1; a session without an active workflow has no step.
func (s *Store) CommandStep(session string) (StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss := s.doc.Session(session)
	n := len(ss.Stack)
	if n == 0 {
		return StepResult{}, ErrNoActiveWorkflow
	}
	wfType := ss.Stack[n-1].WorkflowType
	step, ok := ss.Steps[wfType]
	if !ok {
		step = 1
	}
	return StepResult{Step: step, WorkflowType: wfType}, nil
}

// SetCommandStep sets the step counter for the active workflow.
func (s *Store) SetCommandStep(session string, step int) (StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss := s.doc.Session(session)
	n := len(ss.Stack)
	if n == 0 {
		return StepResult{}, ErrNoActiveWorkflow
	}
	wfType := ss.Stack[n-1].WorkflowType
	if ss.Steps == nil {
		ss.Steps = map[string]int{}
	}
	ss.Steps[wfType] = step

	if err := s.save(); err != nil {
		return StepResult{}, err
	}
	return StepResult{Step: step, WorkflowType: wfType}, nil
}

// AdvanceResult reports a step increment.
type AdvanceResult struct {
	PreviousStep int    `json:"previous_step"`
	CurrentStep  int    `json:"current_step"`
	WorkflowType string `json:"workflow_type"`
}

// AdvanceCommandStep increments the active workflow's step counter by one.
func (s *Store) AdvanceCommandStep(session string) (AdvanceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss := s.doc.Session(session)
	n := len(ss.Stack)
	if n == 0 {
		return AdvanceResult{}, ErrNoActiveWorkflow
	}
	wfType := ss.Stack[n-1].WorkflowType
	if ss.Steps == nil {
		ss.Steps = map[string]int{}
	}
	prev, ok := ss.Steps[wfType]
	if !ok {
		prev = 1
	}
	ss.Steps[wfType] = prev + 1

	if err := s.save(); err != nil {
		return AdvanceResult{}, err
	}
	return AdvanceResult{PreviousStep: prev, CurrentStep: prev + 1, WorkflowType: wfType}, nil
}
