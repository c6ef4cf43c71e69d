// Package model defines the configuration tables and persisted state types
// for the forged coordination daemon.
package model

// CurrentSchemaVersion is written to every state document.
const CurrentSchemaVersion = 1

// Checkpoint is one agent-attributed phase-completion event.
type Checkpoint struct {
	Phase int    `json:"phase"`
	Agent string `json:"agent"`
	At    string `json:"at"`
}

// RollbackPoint marks a recoverable position in the workflow, optionally
// tied to an external revision (e.g. a git SHA).
type RollbackPoint struct {
	Phase       int    `json:"phase"`
	Description string `json:"description"`
	At          string `json:"at"`
	RevisionID  string `json:"revision_id,omitempty"`
}

// WorkflowState is the phase machine state, one per workspace.
type WorkflowState struct {
	Active                 bool            `json:"active"`
	Phase                  int             `json:"phase"`
	Confirmed              bool            `json:"confirmed"`
	ConfirmedAt            string          `json:"confirmed_at,omitempty"`
	Checkpoints            []Checkpoint    `json:"checkpoints"`
	DesignHash             string          `json:"design_hash,omitempty"`
	RequiresReconfirmation bool            `json:"requires_reconfirmation"`
	RollbackPoints         []RollbackPoint `json:"rollback_points"`
}

// ValidationRecord is the live state of one validation node within a
// workflow instance.
type ValidationRecord struct {
	Status     NodeStatus `json:"status"`
	Required   bool       `json:"required"`
	DependsOn  []string   `json:"depends_on,omitempty"`
	Verify     Verifier   `json:"verify,omitempty"`
	VerifiedBy Verifier   `json:"verified_by,omitempty"`
	ExecutedAt string     `json:"executed_at,omitempty"`
	PassedAt   string     `json:"passed_at,omitempty"`
	UpdatedAt  string     `json:"updated_at,omitempty"`
}

// GateRecord is a named per-session boolean gate.
type GateRecord struct {
	Passed    bool   `json:"passed"`
	UpdatedAt string `json:"updated_at"`
}

// StackEntry is one nested workflow instance on a session's stack.
// Only the top entry is active; pushing suspends the previous top.
type StackEntry struct {
	WorkflowID   string `json:"workflow_id"`
	WorkflowType string `json:"workflow_type"`
	CurrentPhase string `json:"current_phase"`
	Suspended    bool   `json:"suspended"`
	ResumePhase  string `json:"resume_phase,omitempty"`
	StartedAt    string `json:"started_at"`
}

// SessionState groups everything scoped to one session key.
type SessionState struct {
	Stack []StackEntry `json:"stack,omitempty"`
	// Steps is the linear step counter per workflow type, used by
	// non-phase workflows.
	Steps map[string]int        `json:"steps,omitempty"`
	Gates map[string]GateRecord `json:"gates,omitempty"`
	// Validations is keyed by workflow type, then node name.
	Validations map[string]map[string]*ValidationRecord `json:"validations,omitempty"`
}

// Document is the full persisted state for one workspace. It is loaded and
// rewritten as a single unit; there is no incremental patching.
type Document struct {
	SchemaVersion int                      `json:"schema_version"`
	WorkspaceRoot string                   `json:"workspace_root"`
	Workflow      WorkflowState            `json:"workflow"`
	Sessions      map[string]*SessionState `json:"sessions,omitempty"`
	KV            map[string]any           `json:"kv,omitempty"`
	SavedAt       string                   `json:"saved_at,omitempty"`
}

// NewDocument returns a fresh state document owned by workspaceRoot.
func NewDocument(workspaceRoot string) *Document {
	return &Document{
		SchemaVersion: CurrentSchemaVersion,
		WorkspaceRoot: workspaceRoot,
		Workflow: WorkflowState{
			Checkpoints:    []Checkpoint{},
			RollbackPoints: []RollbackPoint{},
		},
		Sessions: map[string]*SessionState{},
		KV:       map[string]any{},
	}
}

// Session returns the state for a session key, creating it if needed.
func (d *Document) Session(session string) *SessionState {
	if d.Sessions == nil {
		d.Sessions = map[string]*SessionState{}
	}
	s, ok := d.Sessions[session]
	if !ok {
		s = &SessionState{}
		d.Sessions[session] = s
	}
	return s
}
