package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVSetGet(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.KVSet("mode", "strict"))
	v, ok := s.KVGet("mode")
	require.True(t, ok)
	assert.Equal(t, "strict", v)

	_, ok = s.KVGet("absent")
	assert.False(t, ok)
}

func TestKVIncDec(t *testing.T) {
	s := newTestStore(t)

	n, err := s.KVInc("counter")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.KVInc("counter")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.KVDec("counter")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestKVInc_SurvivesPersistence(t *testing.T) {
	workspace := t.TempDir()
	s1 := newTestStoreAt(t, workspace)
	_, err := s1.KVInc("counter")
	require.NoError(t, err)

	// A counter written as JSON comes back as float64 and must still add up.
	s2 := newTestStoreAt(t, workspace)
	n, err := s2.KVInc("counter")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestKVListAndClear(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.KVSet("a", 1))
	require.NoError(t, s.KVSet("b", 2))

	assert.Len(t, s.KVList(), 2)
	assert.Equal(t, []string{"a", "b"}, s.KVKeys())

	require.NoError(t, s.KVClear())
	assert.Empty(t, s.KVList())
}

func TestClearSession(t *testing.T) {
	s := newTestStore(t)
	_, err := s.PushWorkflow("sess-x", "skill_creation")
	require.NoError(t, err)
	require.NoError(t, s.KVSet("sess-x:note", 1))
	require.NoError(t, s.KVSet("unrelated", 2))

	cleared, err := s.ClearSession("sess-x")
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	assert.Empty(t, s.Stack("sess-x"))
	_, ok := s.KVGet("sess-x:note")
	assert.False(t, ok)
	_, ok = s.KVGet("unrelated")
	assert.True(t, ok)
}

func TestCheckSequence(t *testing.T) {
	s := newTestStore(t)

	// First step is allowed and recorded.
	result, err := s.CheckSequence("create-skill", 1)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 1, result.CurrentStep)

	// Skipping ahead is refused and does not advance.
	result, err = s.CheckSequence("create-skill", 3)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 1, result.CurrentStep)

	// Re-running the current step is allowed.
	result, err = s.CheckSequence("create-skill", 1)
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	// The next step in order is allowed.
	result, err = s.CheckSequence("create-skill", 2)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 2, result.CurrentStep)
}

func TestGates(t *testing.T) {
	s := newTestStore(t)

	// Unset reads as not passed, distinguishable from explicitly false.
	rec, ok := s.Gate("sess", "analysis-complete")
	assert.False(t, ok)
	assert.False(t, rec.Passed)

	_, err := s.SetGate("sess", "analysis-complete", true)
	require.NoError(t, err)
	rec, ok = s.Gate("sess", "analysis-complete")
	assert.True(t, ok)
	assert.True(t, rec.Passed)

	_, err = s.SetGate("sess", "analysis-complete", false)
	require.NoError(t, err)
	rec, ok = s.Gate("sess", "analysis-complete")
	assert.True(t, ok)
	assert.False(t, rec.Passed)
}

func TestGates_SessionScoped(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SetGate("sess-a", "g", true)
	require.NoError(t, err)

	_, ok := s.Gate("sess-b", "g")
	assert.False(t, ok)
}
