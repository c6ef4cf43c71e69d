package store

import (
	"sort"

	"github.com/forgelabs/forged/internal/model"
)

// InitProtocol instantiates fresh validation nodes for a workflow type from
// its protocol, replacing any previous instance for the session.
func (s *Store) InitProtocol(session, workflowType string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proto, ok := s.protocols.Get(workflowType)
	if !ok {
		return 0, ErrUnknownProtocol
	}

	ss := s.doc.Session(session)
	if ss.Validations == nil {
		ss.Validations = map[string]map[string]*model.ValidationRecord{}
	}
	nodes := make(map[string]*model.ValidationRecord, len(proto.Nodes))
	for _, n := range proto.Nodes {
		nodes[n.Name] = &model.ValidationRecord{
			Status:    model.NodePending,
			Required:  n.Required,
			DependsOn: append([]string(nil), n.DependsOn...),
			Verify:    n.Verify,
		}
	}
	ss.Validations[workflowType] = nodes

	if err := s.save(); err != nil {
		return 0, err
	}
	return len(nodes), nil
}

// node returns the record for a validation node, instantiating the protocol
// node set on first touch. Nodes outside the protocol are created ad hoc as
// optional with no dependencies, matching the open command surface.
// Callers hold s.mu.
func (s *Store) node(session, workflowType, name string) *model.ValidationRecord {
	ss := s.doc.Session(session)
	if ss.Validations == nil {
		ss.Validations = map[string]map[string]*model.ValidationRecord{}
	}
	nodes, ok := ss.Validations[workflowType]
	if !ok {
		nodes = map[string]*model.ValidationRecord{}
		if proto, known := s.protocols.Get(workflowType); known {
			for _, n := range proto.Nodes {
				nodes[n.Name] = &model.ValidationRecord{
					Status:    model.NodePending,
					Required:  n.Required,
					DependsOn: append([]string(nil), n.DependsOn...),
					Verify:    n.Verify,
				}
			}
		}
		ss.Validations[workflowType] = nodes
	}

	rec, ok := nodes[name]
	if !ok {
		rec = &model.ValidationRecord{Status: model.NodePending}
		nodes[name] = rec
	}
	return rec
}

// MarkResult reports the recorded status of a mark operation, which may
// differ from the requested one when an unverified pass is downgraded.
type MarkResult struct {
	Status     model.NodeStatus `json:"validation_status"`
	Downgraded bool             `json:"downgraded,omitempty"`
}

// MarkValidation transitions a node's status.
//
// Two controls guard the passed status: dependencies must all have passed,
// and nodes declared verify:hook only accept a pass from the hook path.
// An unverified pass is recorded as claimed and reported as a failure, so
// the attempt is visible but satisfies nothing downstream.
func (s *Store) MarkValidation(session, workflowType, name string, status model.NodeStatus, verifiedBy model.Verifier) (MarkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !status.Valid() {
		return MarkResult{}, &UnknownStatusError{Status: string(status)}
	}

	rec := s.node(session, workflowType, name)

	if status == model.NodePassed {
		if unmet := s.unmetDependencies(session, workflowType, rec.DependsOn); len(unmet) > 0 {
			return MarkResult{Status: rec.Status}, &DependencyError{Node: name, Unmet: unmet}
		}
		if rec.Verify == model.VerifierHook && verifiedBy != model.VerifierHook {
			if err := model.ValidateNodeTransition(rec.Status, model.NodeClaimed); err != nil {
				return MarkResult{Status: rec.Status}, err
			}
			rec.Status = model.NodeClaimed
			rec.VerifiedBy = verifiedBy
			rec.UpdatedAt = s.timestamp()
			if err := s.save(); err != nil {
				return MarkResult{}, err
			}
			return MarkResult{Status: model.NodeClaimed, Downgraded: true},
				&VerificationError{Node: name, VerifiedBy: string(verifiedBy)}
		}
	}

	if err := model.ValidateNodeTransition(rec.Status, status); err != nil {
		return MarkResult{Status: rec.Status}, err
	}

	rec.Status = status
	rec.VerifiedBy = verifiedBy
	rec.UpdatedAt = s.timestamp()
	switch status {
	case model.NodeExecuted:
		rec.ExecutedAt = rec.UpdatedAt
	case model.NodePassed:
		rec.PassedAt = rec.UpdatedAt
	}

	if err := s.save(); err != nil {
		return MarkResult{}, err
	}
	return MarkResult{Status: status}, nil
}

// Validation returns a copy of a node's record.
func (s *Store) Validation(session, workflowType, name string) (model.ValidationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss := s.doc.Session(session)
	nodes, ok := ss.Validations[workflowType]
	if !ok {
		return model.ValidationRecord{}, false
	}
	rec, ok := nodes[name]
	if !ok {
		return model.ValidationRecord{}, false
	}
	cp := *rec
	cp.DependsOn = append([]string(nil), rec.DependsOn...)
	return cp, true
}

// DepsResult answers a dependency check with diagnostics for display.
type DepsResult struct {
	Satisfied bool              `json:"satisfied"`
	Unmet     []UnmetDependency `json:"unmet,omitempty"`
}

// CheckDependencies reports whether every dependency of a node has passed.
// extraDeps, if non-empty, is checked in addition to the node's declared
// dependencies (the wire protocol lets callers pass an explicit list).
func (s *Store) CheckDependencies(session, workflowType, name string, extraDeps []string) DepsResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.node(session, workflowType, name)
	deps := append(append([]string(nil), rec.DependsOn...), extraDeps...)
	unmet := s.unmetDependencies(session, workflowType, deps)
	return DepsResult{Satisfied: len(unmet) == 0, Unmet: unmet}
}

// unmetDependencies returns deps whose status is not passed. Callers hold s.mu.
func (s *Store) unmetDependencies(session, workflowType string, deps []string) []UnmetDependency {
	var unmet []UnmetDependency
	seen := map[string]bool{}
	nodes := s.doc.Session(session).Validations[workflowType]
	for _, dep := range deps {
		if seen[dep] {
			continue
		}
		seen[dep] = true

		status := model.NodePending
		if rec, ok := nodes[dep]; ok {
			status = rec.Status
		}
		if !status.Satisfies() {
			unmet = append(unmet, UnmetDependency{Name: dep, Status: string(status)})
		}
	}
	return unmet
}

// ProtocolResult answers whether a workflow's required nodes have all
// passed, with the misses split by kind for reporting.
type ProtocolResult struct {
	Satisfied bool     `json:"satisfied"`
	Missing   []string `json:"missing,omitempty"`
	Failed    []string `json:"failed,omitempty"`
}

// VerifyProtocol checks protocol completion: every required node must be
// passed. claimed counts as missing, never as passed.
func (s *Store) VerifyProtocol(session, workflowType string) (ProtocolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proto, ok := s.protocols.Get(workflowType)
	if !ok {
		return ProtocolResult{}, ErrUnknownProtocol
	}

	nodes := s.doc.Session(session).Validations[workflowType]
	result := ProtocolResult{Satisfied: true}
	for _, n := range proto.Nodes {
		if !n.Required {
			continue
		}
		status := model.NodePending
		if rec, ok := nodes[n.Name]; ok {
			status = rec.Status
		}
		switch {
		case status.Satisfies():
		case status == model.NodeFailed:
			result.Failed = append(result.Failed, n.Name)
			result.Satisfied = false
		default:
			result.Missing = append(result.Missing, n.Name)
			result.Satisfied = false
		}
	}
	return result, nil
}

// SuggestParallel returns the pending nodes whose full dependency set has
// passed. They share no unmet prerequisite, so external validators may run
// them concurrently.
func (s *Store) SuggestParallel(session, workflowType string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proto, ok := s.protocols.Get(workflowType)
	if !ok {
		return nil, ErrUnknownProtocol
	}

	nodes := s.doc.Session(session).Validations[workflowType]
	var ready []string
	for _, n := range proto.Nodes {
		status := model.NodePending
		var deps []string = n.DependsOn
		if rec, ok := nodes[n.Name]; ok {
			status = rec.Status
			deps = rec.DependsOn
		}
		if status != model.NodePending {
			continue
		}
		if len(s.unmetDependencies(session, workflowType, deps)) == 0 {
			ready = append(ready, n.Name)
		}
	}
	sort.Strings(ready)
	return ready, nil
}
