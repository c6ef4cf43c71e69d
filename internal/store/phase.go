package store

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/forgelabs/forged/internal/model"
)

// ActivateResult describes the state after activation.
type ActivateResult struct {
	Phase    int    `json:"phase"`
	Guidance string `json:"guidance"`
}

// Activate resets the phase machine to phase 0 and marks the workflow
// active. Activation is idempotent: a second activate starts over.
func (s *Store) Activate() (ActivateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Workflow = model.WorkflowState{
		Active:         true,
		Checkpoints:    []model.Checkpoint{},
		RollbackPoints: []model.RollbackPoint{},
	}
	if err := s.save(); err != nil {
		return ActivateResult{}, err
	}

	def, _ := s.phases.Get(0)
	return ActivateResult{Phase: 0, Guidance: def.Guidance}, nil
}

// Deactivate marks the workflow inactive. Phase and history are kept for
// inspection until the next activate or reset.
func (s *Store) Deactivate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Workflow.Active = false
	return s.save()
}

// IsActive reports whether the workflow is active.
func (s *Store) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Workflow.Active
}

// Phase returns the current phase index.
func (s *Store) Phase() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Workflow.Phase
}

// Workflow returns a copy of the phase machine state.
func (s *Store) Workflow() model.WorkflowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyWorkflow(s.doc.Workflow)
}

// CheckpointResult describes a successful checkpoint: either an advance to
// the next phase or completion of the whole workflow.
type CheckpointResult struct {
	Advanced  bool   `json:"advanced"`
	Completed bool   `json:"completed,omitempty"`
	FromPhase int    `json:"from_phase"`
	ToPhase   int    `json:"to_phase,omitempty"`
	Guidance  string `json:"guidance,omitempty"`
	Next      string `json:"next,omitempty"`
}

// Checkpoint records a phase-completion event by agent and advances the
// phase machine. The agent must be the one authorized for the current
// phase; the confirm-gated phase additionally requires a standing
// confirmation. Completing the terminal phase deactivates the workflow.
func (s *Store) Checkpoint(agent string) (CheckpointResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := &s.doc.Workflow
	if !w.Active {
		return CheckpointResult{}, ErrNotActive
	}

	def, ok := s.phases.Get(w.Phase)
	if !ok {
		return CheckpointResult{}, &PhaseBoundsError{Phase: w.Phase, Max: s.phases.Max()}
	}
	if agent != def.Agent {
		return CheckpointResult{}, &AgentMismatchError{Agent: agent, Expected: def.Agent, Phase: w.Phase}
	}

	if def.Confirm {
		if w.RequiresReconfirmation {
			return CheckpointResult{}, ErrReconfirmationRequired
		}
		if !w.Confirmed {
			return CheckpointResult{}, ErrConfirmationRequired
		}
	}

	w.Checkpoints = append(w.Checkpoints, model.Checkpoint{
		Phase: w.Phase,
		Agent: agent,
		At:    s.timestamp(),
	})

	from := w.Phase
	if from < s.phases.Max() {
		w.Phase = from + 1
		next, _ := s.phases.Get(w.Phase)
		if err := s.save(); err != nil {
			return CheckpointResult{}, err
		}
		return CheckpointResult{
			Advanced:  true,
			FromPhase: from,
			ToPhase:   w.Phase,
			Guidance:  next.Guidance,
			Next:      next.Next,
		}, nil
	}

	// Terminal phase completed: the workflow is done.
	w.Active = false
	if err := s.save(); err != nil {
		return CheckpointResult{}, err
	}
	return CheckpointResult{Completed: true, FromPhase: from}, nil
}

// Confirm authorizes execution. Valid only at the confirm-gated phase;
// clears any pending reconfirmation requirement.
func (s *Store) Confirm() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := &s.doc.Workflow
	want := s.phases.ConfirmIndex()
	if w.Phase != want {
		return &WrongPhaseError{Op: "confirmation", Phase: w.Phase, Want: want}
	}

	w.RequiresReconfirmation = false
	w.Confirmed = true
	w.ConfirmedAt = s.timestamp()
	return s.save()
}

// DesignHashResult reports the outcome of a design fingerprint update.
type DesignHashResult struct {
	Hash                   string `json:"hash"`
	Changed                bool   `json:"changed"`
	RequiresReconfirmation bool   `json:"requires_reconfirmation"`
}

// SetDesignHash fingerprints the design content. A changed fingerprint
// after confirmation revokes the confirmation and demands re-approval:
// a stale approval must never authorize execution of a changed design.
func (s *Store) SetDesignHash(content string) (DesignHashResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := &s.doc.Workflow
	newHash := DesignHash(content)
	oldHash := w.DesignHash

	changed := oldHash != "" && oldHash != newHash
	if changed && w.Confirmed {
		w.RequiresReconfirmation = true
		w.Confirmed = false
	}
	w.DesignHash = newHash

	if err := s.save(); err != nil {
		return DesignHashResult{}, err
	}
	return DesignHashResult{
		Hash:                   newHash,
		Changed:                changed,
		RequiresReconfirmation: w.RequiresReconfirmation,
	}, nil
}

// SetPhase is the manual override for debugging and recovery. It always
// clears confirmation.
func (s *Store) SetPhase(phase int) (model.PhaseDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.phases.Get(phase)
	if !ok {
		return model.PhaseDefinition{}, &PhaseBoundsError{Phase: phase, Max: s.phases.Max()}
	}

	s.doc.Workflow.Phase = phase
	s.doc.Workflow.Confirmed = false
	if err := s.save(); err != nil {
		return model.PhaseDefinition{}, err
	}
	return def, nil
}

// AddRollback records a recoverable position at the current phase.
func (s *Store) AddRollback(description, revisionID string) (model.RollbackPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	point := model.RollbackPoint{
		Phase:       s.doc.Workflow.Phase,
		Description: description,
		At:          s.timestamp(),
		RevisionID:  revisionID,
	}
	s.doc.Workflow.RollbackPoints = append(s.doc.Workflow.RollbackPoints, point)
	if err := s.save(); err != nil {
		return model.RollbackPoint{}, err
	}
	return point, nil
}

// RollbackPoints returns all recorded rollback points.
func (s *Store) RollbackPoints() []model.RollbackPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.RollbackPoint(nil), s.doc.Workflow.RollbackPoints...)
}

// Phases returns the immutable phase table.
func (s *Store) Phases() *model.PhaseTable {
	return s.phases
}

// DesignHash is the content fingerprint: first 16 hex chars of SHA-256.
func DesignHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}
