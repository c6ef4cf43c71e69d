// Package store implements the forged state engine: the phase state machine,
// the validation dependency graph, the workflow stack and the auxiliary
// key/value state, all backed by one JSON document per workspace.
//
// The same engine runs inside the daemon (behind the socket) and inside the
// client fallback path (direct file access), so there is a single source of
// truth for every transition rule. All access is serialized behind one
// mutex; each operation's critical section is microseconds, so correctness
// wins over parallel throughput.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/forgelabs/forged/internal/jsonfile"
	"github.com/forgelabs/forged/internal/model"
)

type Store struct {
	mu        sync.Mutex
	workspace string
	stateDir  string
	path      string
	phases    *model.PhaseTable
	protocols model.ProtocolSet
	doc       *model.Document
	now       func() time.Time
}

// Open loads the workspace state document, or initializes a fresh one when
// the file is missing, owned by another workspace, or unparseable. Corrupt
// files are quarantined, never silently discarded.
func Open(workspaceRoot string, phases *model.PhaseTable, protocols model.ProtocolSet) (*Store, error) {
	stateDir := filepath.Join(workspaceRoot, ".forged")
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	s := &Store{
		workspace: workspaceRoot,
		stateDir:  stateDir,
		path:      filepath.Join(stateDir, "state.json"),
		phases:    phases,
		protocols: protocols,
		now:       time.Now,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenAt is Open with an explicit state file path, for tests.
func OpenAt(workspaceRoot, path string, phases *model.PhaseTable, protocols model.ProtocolSet) (*Store, error) {
	s := &Store{
		workspace: workspaceRoot,
		stateDir:  filepath.Dir(path),
		path:      path,
		phases:    phases,
		protocols: protocols,
		now:       time.Now,
	}
	if err := os.MkdirAll(s.stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// SetClock overrides the timestamp source, for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() error {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		s.doc = model.NewDocument(s.workspace)
		return nil
	}

	var doc model.Document
	if err := jsonfile.Load(s.path, &doc); err != nil {
		// Unparseable state must not take the coordinator down.
		if _, qerr := jsonfile.Quarantine(s.stateDir, s.path); qerr != nil {
			return fmt.Errorf("quarantine corrupt state: %w", qerr)
		}
		s.doc = model.NewDocument(s.workspace)
		return nil
	}

	// Ownership guard: a document written for another workspace is treated
	// as absent.
	if doc.WorkspaceRoot != s.workspace {
		s.doc = model.NewDocument(s.workspace)
		return nil
	}

	if doc.Sessions == nil {
		doc.Sessions = map[string]*model.SessionState{}
	}
	if doc.KV == nil {
		doc.KV = map[string]any{}
	}
	s.doc = &doc
	return nil
}

// Reload re-reads the document from disk, discarding in-memory state. Used
// by the daemon when the file is replaced behind its back by a fallback
// client.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// save persists the full document with an atomic replace. Callers hold s.mu.
// Persistence failures are returned, not retried: state durability cannot be
// silently skipped.
func (s *Store) save() error {
	s.doc.SavedAt = s.timestamp()
	if err := jsonfile.AtomicWrite(s.path, s.doc); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// Snapshot returns a deep copy of the current document.
func (s *Store) Snapshot() model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyDocument(s.doc)
}

// Reset discards all state and persists a fresh document.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = model.NewDocument(s.workspace)
	return s.save()
}

func copyDocument(doc *model.Document) model.Document {
	cp := *doc
	cp.Workflow = copyWorkflow(doc.Workflow)
	cp.Sessions = make(map[string]*model.SessionState, len(doc.Sessions))
	for k, v := range doc.Sessions {
		sc := copySession(v)
		cp.Sessions[k] = &sc
	}
	cp.KV = make(map[string]any, len(doc.KV))
	for k, v := range doc.KV {
		cp.KV[k] = v
	}
	return cp
}

func copyWorkflow(w model.WorkflowState) model.WorkflowState {
	cp := w
	cp.Checkpoints = append([]model.Checkpoint(nil), w.Checkpoints...)
	cp.RollbackPoints = append([]model.RollbackPoint(nil), w.RollbackPoints...)
	return cp
}

func copySession(ss *model.SessionState) model.SessionState {
	cp := model.SessionState{
		Stack: append([]model.StackEntry(nil), ss.Stack...),
	}
	if ss.Steps != nil {
		cp.Steps = make(map[string]int, len(ss.Steps))
		for k, v := range ss.Steps {
			cp.Steps[k] = v
		}
	}
	if ss.Gates != nil {
		cp.Gates = make(map[string]model.GateRecord, len(ss.Gates))
		for k, v := range ss.Gates {
			cp.Gates[k] = v
		}
	}
	if ss.Validations != nil {
		cp.Validations = make(map[string]map[string]*model.ValidationRecord, len(ss.Validations))
		for wf, nodes := range ss.Validations {
			m := make(map[string]*model.ValidationRecord, len(nodes))
			for name, rec := range nodes {
				rc := *rec
				rc.DependsOn = append([]string(nil), rec.DependsOn...)
				m[name] = &rc
			}
			cp.Validations[wf] = m
		}
	}
	return cp
}
