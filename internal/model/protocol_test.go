package model

import "testing"

func TestDefaultProtocols(t *testing.T) {
	set := MustDefaultProtocols()

	wantTypes := []string{"command_creation", "plugin_publish", "skill_creation"}
	gotTypes := set.Types()
	if len(gotTypes) != len(wantTypes) {
		t.Fatalf("Types() = %v, want %v", gotTypes, wantTypes)
	}
	for i, typ := range wantTypes {
		if gotTypes[i] != typ {
			t.Errorf("Types()[%d] = %q, want %q", i, gotTypes[i], typ)
		}
	}

	proto, ok := set.Get("skill_creation")
	if !ok {
		t.Fatal("skill_creation protocol missing")
	}
	node, ok := proto.Node("schema_valid")
	if !ok {
		t.Fatal("schema_valid node missing")
	}
	if node.Verify != VerifierHook {
		t.Errorf("schema_valid verify = %q, want hook", node.Verify)
	}
	if len(node.DependsOn) != 1 || node.DependsOn[0] != "frontmatter_valid" {
		t.Errorf("schema_valid depends_on = %v, want [frontmatter_valid]", node.DependsOn)
	}
}

func TestParseProtocols_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty type", `
protocols:
  - type: ""
    nodes:
      - name: a
        required: true
`},
		{"duplicate type", `
protocols:
  - type: x
    nodes:
      - name: a
        required: true
  - type: x
    nodes:
      - name: b
        required: true
`},
		{"duplicate node", `
protocols:
  - type: x
    nodes:
      - name: a
        required: true
      - name: a
        required: false
`},
		{"unknown dependency", `
protocols:
  - type: x
    nodes:
      - name: a
        required: true
        depends_on: [ghost]
`},
		{"self dependency", `
protocols:
  - type: x
    nodes:
      - name: a
        required: true
        depends_on: [a]
`},
		{"unknown verifier", `
protocols:
  - type: x
    nodes:
      - name: a
        required: true
        verify: oracle
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseProtocols([]byte(tt.yaml)); err == nil {
				t.Error("ParseProtocols() = nil error, want error")
			}
		})
	}
}

func TestParseProtocols_Valid(t *testing.T) {
	set, err := ParseProtocols([]byte(`
protocols:
  - type: custom
    nodes:
      - name: lint
        required: true
      - name: test
        required: true
        depends_on: [lint]
        verify: script
`))
	if err != nil {
		t.Fatalf("ParseProtocols failed: %v", err)
	}
	proto, ok := set.Get("custom")
	if !ok {
		t.Fatal("custom protocol missing")
	}
	if len(proto.Nodes) != 2 {
		t.Errorf("nodes = %d, want 2", len(proto.Nodes))
	}
}
