package model

import (
	"fmt"
	"sort"

	yamlv3 "gopkg.in/yaml.v3"
)

// ProtocolNode declares one validation node of a workflow protocol.
type ProtocolNode struct {
	Name      string   `yaml:"name"`
	Required  bool     `yaml:"required"`
	DependsOn []string `yaml:"depends_on,omitempty"`
	// Verify names the only path allowed to mark this node passed.
	// Empty means any path may.
	Verify Verifier `yaml:"verify,omitempty"`
}

// Protocol is the static validation node set for one workflow type.
// Protocols are hand-authored and immutable once loaded.
type Protocol struct {
	Type  string         `yaml:"type"`
	Nodes []ProtocolNode `yaml:"nodes"`
}

// Node returns the declaration for name, if present.
func (p Protocol) Node(name string) (ProtocolNode, bool) {
	for _, n := range p.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return ProtocolNode{}, false
}

// ProtocolSet maps workflow type to its protocol.
type ProtocolSet map[string]Protocol

// Get returns the protocol for a workflow type.
func (ps ProtocolSet) Get(workflowType string) (Protocol, bool) {
	p, ok := ps[workflowType]
	return p, ok
}

// Types returns the declared workflow types, sorted.
func (ps ProtocolSet) Types() []string {
	types := make([]string, 0, len(ps))
	for t := range ps {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

type protocolFile struct {
	Protocols []Protocol `yaml:"protocols"`
}

// ParseProtocols loads a protocol set from YAML and validates it: node names
// unique per protocol, every dependency declared, verifiers known.
func ParseProtocols(data []byte) (ProtocolSet, error) {
	var file protocolFile
	if err := yamlv3.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse protocols: %w", err)
	}

	set := make(ProtocolSet, len(file.Protocols))
	for _, p := range file.Protocols {
		if p.Type == "" {
			return nil, fmt.Errorf("protocol with empty type")
		}
		if _, dup := set[p.Type]; dup {
			return nil, fmt.Errorf("duplicate protocol type %q", p.Type)
		}

		names := make(map[string]bool, len(p.Nodes))
		for _, n := range p.Nodes {
			if n.Name == "" {
				return nil, fmt.Errorf("protocol %q: node with empty name", p.Type)
			}
			if names[n.Name] {
				return nil, fmt.Errorf("protocol %q: duplicate node %q", p.Type, n.Name)
			}
			names[n.Name] = true
			if n.Verify != "" && !n.Verify.Valid() {
				return nil, fmt.Errorf("protocol %q node %q: unknown verifier %q", p.Type, n.Name, n.Verify)
			}
		}
		for _, n := range p.Nodes {
			for _, dep := range n.DependsOn {
				if !names[dep] {
					return nil, fmt.Errorf("protocol %q node %q: unknown dependency %q", p.Type, n.Name, dep)
				}
				if dep == n.Name {
					return nil, fmt.Errorf("protocol %q node %q: depends on itself", p.Type, n.Name)
				}
			}
		}
		set[p.Type] = p
	}
	return set, nil
}

// MustDefaultProtocols parses the embedded protocol definitions.
func MustDefaultProtocols() ProtocolSet {
	set, err := ParseProtocols(defaultProtocolsYAML)
	if err != nil {
		panic(err)
	}
	return set
}
