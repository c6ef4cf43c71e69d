package model

import "fmt"

// PhaseDefinition describes one ordered stage of the authoring workflow.
// Exactly one agent is authorized to checkpoint each phase.
type PhaseDefinition struct {
	Index    int    `yaml:"index" json:"index"`
	Name     string `yaml:"name" json:"name"`
	Agent    string `yaml:"agent" json:"agent"`
	Guidance string `yaml:"guidance" json:"guidance"`
	Next     string `yaml:"next" json:"next"`
	// Confirm marks the phase that requires explicit user confirmation
	// before its checkpoint can advance.
	Confirm bool `yaml:"confirm,omitempty" json:"confirm,omitempty"`
}

// PhaseTable is the immutable ordered phase configuration. It is built once
// at process start and passed into the store constructor.
type PhaseTable struct {
	phases  []PhaseDefinition
	confirm int
}

// NewPhaseTable validates and freezes a phase list. Indexes must be
// contiguous from 0 and exactly one phase may carry the confirm flag.
func NewPhaseTable(phases []PhaseDefinition) (*PhaseTable, error) {
	if len(phases) == 0 {
		return nil, fmt.Errorf("phase table is empty")
	}
	confirm := -1
	seen := make(map[string]int, len(phases))
	for i, p := range phases {
		if p.Index != i {
			return nil, fmt.Errorf("phase %q: index %d out of order (want %d)", p.Name, p.Index, i)
		}
		if p.Agent == "" {
			return nil, fmt.Errorf("phase %q: no authorized agent", p.Name)
		}
		if prev, ok := seen[p.Agent]; ok {
			return nil, fmt.Errorf("agent %q authorized for both phase %d and %d", p.Agent, prev, i)
		}
		seen[p.Agent] = i
		if p.Confirm {
			if confirm >= 0 {
				return nil, fmt.Errorf("phases %d and %d both require confirmation", confirm, i)
			}
			confirm = i
		}
	}
	cp := make([]PhaseDefinition, len(phases))
	copy(cp, phases)
	return &PhaseTable{phases: cp, confirm: confirm}, nil
}

// DefaultPhases is the six-phase authoring workflow: requirements in,
// validated artifact out.
func DefaultPhases() []PhaseDefinition {
	return []PhaseDefinition{
		{
			Index:    0,
			Name:     "Input",
			Agent:    "forge:input-agent",
			Guidance: "Normalize user intent into clear problem statement",
			Next:     "Run phase 1 (Analysis)",
		},
		{
			Index:    1,
			Name:     "Analysis",
			Agent:    "forge:analysis-agent",
			Guidance: "Analyze codebase and describe reality",
			Next:     "Run phase 2 (Design)",
		},
		{
			Index:    2,
			Name:     "Design",
			Agent:    "forge:design-agent",
			Guidance: "Propose design options with trade-offs",
			Next:     "Run phase 3 (Preview) - review changes before execution",
		},
		{
			Index:    3,
			Name:     "Preview",
			Agent:    "forge:preview-agent",
			Guidance: "Preview changes that will be made (dry-run)",
			Next:     "Run phase 4 (Execute) - requires user confirmation",
		},
		{
			Index:    4,
			Name:     "Execute",
			Agent:    "forge:execute-agent",
			Guidance: "Implement the confirmed design",
			Next:     "Run phase 5 (Validate)",
			Confirm:  true,
		},
		{
			Index:    5,
			Name:     "Validate",
			Agent:    "forge:validate-agent",
			Guidance: "Validate plugin structure and schema",
			Next:     "Complete - workflow finished",
		},
	}
}

// MustDefaultPhaseTable returns the built-in phase table. Panics only if the
// compiled-in defaults are inconsistent.
func MustDefaultPhaseTable() *PhaseTable {
	t, err := NewPhaseTable(DefaultPhases())
	if err != nil {
		panic(err)
	}
	return t
}

// Max returns the terminal phase index. Completing it deactivates the workflow.
func (t *PhaseTable) Max() int {
	return len(t.phases) - 1
}

// ConfirmIndex returns the index of the phase requiring confirmation,
// or -1 if none does.
func (t *PhaseTable) ConfirmIndex() int {
	return t.confirm
}

func (t *PhaseTable) Contains(index int) bool {
	return index >= 0 && index < len(t.phases)
}

// Get returns the definition for index. ok is false when out of range.
func (t *PhaseTable) Get(index int) (PhaseDefinition, bool) {
	if !t.Contains(index) {
		return PhaseDefinition{}, false
	}
	return t.phases[index], true
}

// All returns a copy of the full phase list.
func (t *PhaseTable) All() []PhaseDefinition {
	cp := make([]PhaseDefinition, len(t.phases))
	copy(cp, t.phases)
	return cp
}
