package model

import "testing"

func TestDefaultPhaseTable(t *testing.T) {
	table := MustDefaultPhaseTable()

	if got := table.Max(); got != 5 {
		t.Errorf("Max() = %d, want 5", got)
	}
	if got := table.ConfirmIndex(); got != 4 {
		t.Errorf("ConfirmIndex() = %d, want 4", got)
	}

	def, ok := table.Get(4)
	if !ok {
		t.Fatal("Get(4) not found")
	}
	if def.Name != "Execute" || !def.Confirm {
		t.Errorf("phase 4 = %+v, want Execute with confirm", def)
	}
	if def.Agent != "forge:execute-agent" {
		t.Errorf("phase 4 agent = %q, want forge:execute-agent", def.Agent)
	}
}

func TestPhaseTableBounds(t *testing.T) {
	table := MustDefaultPhaseTable()

	for _, idx := range []int{-1, 6, 100} {
		if table.Contains(idx) {
			t.Errorf("Contains(%d) = true, want false", idx)
		}
		if _, ok := table.Get(idx); ok {
			t.Errorf("Get(%d) ok = true, want false", idx)
		}
	}
}

func TestNewPhaseTable_Invalid(t *testing.T) {
	base := func() []PhaseDefinition {
		return []PhaseDefinition{
			{Index: 0, Name: "A", Agent: "agent-a"},
			{Index: 1, Name: "B", Agent: "agent-b", Confirm: true},
		}
	}

	tests := []struct {
		name   string
		mutate func([]PhaseDefinition) []PhaseDefinition
	}{
		{"empty", func([]PhaseDefinition) []PhaseDefinition { return nil }},
		{"index gap", func(p []PhaseDefinition) []PhaseDefinition {
			p[1].Index = 3
			return p
		}},
		{"missing agent", func(p []PhaseDefinition) []PhaseDefinition {
			p[0].Agent = ""
			return p
		}},
		{"duplicate agent", func(p []PhaseDefinition) []PhaseDefinition {
			p[1].Agent = p[0].Agent
			return p
		}},
		{"two confirm phases", func(p []PhaseDefinition) []PhaseDefinition {
			p[0].Confirm = true
			return p
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPhaseTable(tt.mutate(base())); err == nil {
				t.Error("NewPhaseTable() = nil error, want error")
			}
		})
	}
}

func TestPhaseTableAllIsACopy(t *testing.T) {
	table := MustDefaultPhaseTable()

	all := table.All()
	all[0].Agent = "mutated"

	def, _ := table.Get(0)
	if def.Agent == "mutated" {
		t.Error("All() shares backing array with the table")
	}
}
