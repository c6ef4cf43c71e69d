package store

import (
	"sort"
	"strings"
)

// KVGet returns the value for a key from the general state map.
func (s *Store) KVGet(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.doc.KV[key]
	return v, ok
}

// KVSet stores a JSON-serializable value under key.
func (s *Store) KVSet(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.KV[key] = value
	return s.save()
}

// KVInc atomically increments an integer counter, treating non-integer
// values as zero.
func (s *Store) KVInc(key string) (int, error) {
	return s.kvAdd(key, 1)
}

// KVDec atomically decrements an integer counter.
func (s *Store) KVDec(key string) (int, error) {
	return s.kvAdd(key, -1)
}

func (s *Store) kvAdd(key string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := asInt(s.doc.KV[key])
	next := current + delta
	s.doc.KV[key] = next
	if err := s.save(); err != nil {
		return 0, err
	}
	return next, nil
}

// asInt coerces a stored counter value. JSON round-trips integers as
// float64.
func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

// KVList returns a copy of the whole key/value map.
func (s *Store) KVList() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make(map[string]any, len(s.doc.KV))
	for k, v := range s.doc.KV {
		cp[k] = v
	}
	return cp
}

// KVKeys returns the stored keys, sorted.
func (s *Store) KVKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.doc.KV))
	for k := range s.doc.KV {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// KVClear drops the entire key/value map.
func (s *Store) KVClear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.KV = map[string]any{}
	return s.save()
}

// ClearSession removes all state scoped to a session: its stack, steps,
// gates, validations and any KV keys mentioning the session ID. Returns
// how many KV keys were dropped.
func (s *Store) ClearSession(session string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.doc.Sessions, session)

	cleared := 0
	for k := range s.doc.KV {
		if strings.Contains(k, session) {
			delete(s.doc.KV, k)
			cleared++
		}
	}

	if err := s.save(); err != nil {
		return 0, err
	}
	return cleared, nil
}

// SequenceResult answers a step-skip check.
type SequenceResult struct {
	Allowed     bool `json:"allowed"`
	CurrentStep int  `json:"current_step"`
	Required    int  `json:"required_step"`
}

// CheckSequence enforces linear progression on a keyed step counter: a
// caller may stay at the current step or advance by exactly one. Advancing
// updates the counter; skipping ahead is refused.
func (s *Store) CheckSequence(key string, required int) (SequenceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stepKey := "step:" + key
	current := asInt(s.doc.KV[stepKey])

	if required > current+1 {
		return SequenceResult{Allowed: false, CurrentStep: current, Required: required}, nil
	}

	if required > current {
		s.doc.KV[stepKey] = required
		current = required
		if err := s.save(); err != nil {
			return SequenceResult{}, err
		}
	}
	return SequenceResult{Allowed: true, CurrentStep: current, Required: required}, nil
}
