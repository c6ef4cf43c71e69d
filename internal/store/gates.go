package store

import "github.com/forgelabs/forged/internal/model"

// SetGate records a named per-session boolean gate.
func (s *Store) SetGate(session, name string, passed bool) (model.GateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss := s.doc.Session(session)
	if ss.Gates == nil {
		ss.Gates = map[string]model.GateRecord{}
	}
	rec := model.GateRecord{Passed: passed, UpdatedAt: s.timestamp()}
	ss.Gates[name] = rec

	if err := s.save(); err != nil {
		return model.GateRecord{}, err
	}
	return rec, nil
}

// Gate returns a gate's record. A gate that was never set reads as not
// passed, with ok=false so callers can tell "unset" from "explicitly false".
func (s *Store) Gate(session, name string) (model.GateRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.doc.Session(session).Gates[name]
	return rec, ok
}
