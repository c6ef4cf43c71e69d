package store

import (
	"encoding/json"
	"errors"

	"github.com/forgelabs/forged/internal/ipc"
	"github.com/forgelabs/forged/internal/model"
)

// Dispatch maps one wire command onto the engine. The daemon registers it
// behind the socket and the client fallback calls it in-process, so both
// paths run the identical transition rules.
//
// Precondition violations (wrong agent, unmet dependency, empty stack, ...)
// come back as ok responses carrying success:false and a diagnostic
// payload. Only unknown commands, bad params and persistence failures are
// protocol-level errors.
func Dispatch(s *Store, cmd string, params json.RawMessage) *ipc.Response {
	switch cmd {

	// Phase machine.
	case "get":
		return ipc.OK(fieldsOf(s.Snapshot()))

	case "get-phase":
		return ipc.OK(map[string]any{"phase": s.Phase()})

	case "is-active":
		return ipc.OK(map[string]any{"active": s.IsActive()})

	case "phases":
		return ipc.OK(map[string]any{"phases": s.Phases().All()})

	case "activate":
		result, err := s.Activate()
		if err != nil {
			return ipc.Errorf("%v", err)
		}
		return success(fieldsOf(result))

	case "deactivate":
		if err := s.Deactivate(); err != nil {
			return ipc.Errorf("%v", err)
		}
		return success(nil)

	case "confirm":
		if err := s.Confirm(); err != nil {
			return outcome(nil, err)
		}
		w := s.Workflow()
		def, _ := s.Phases().Get(w.Phase)
		return success(map[string]any{"phase": w.Phase, "guidance": def.Guidance})

	case "checkpoint":
		var p struct {
			Agent string `json:"agent"`
		}
		if err := unmarshal(params, &p); err != nil {
			return ipc.Errorf("%v", err)
		}
		result, err := s.Checkpoint(p.Agent)
		if err != nil {
			return outcome(nil, err)
		}
		return success(fieldsOf(result))

	case "set-phase":
		var p struct {
			Phase int `json:"phase"`
		}
		if err := unmarshal(params, &p); err != nil {
			return ipc.Errorf("%v", err)
		}
		def, err := s.SetPhase(p.Phase)
		if err != nil {
			return outcome(nil, err)
		}
		return success(map[string]any{"phase": p.Phase, "guidance": def.Guidance})

	case "set-design-hash":
		var p struct {
			Content string `json:"content"`
		}
		if err := unmarshal(params, &p); err != nil {
			return ipc.Errorf("%v", err)
		}
		result, err := s.SetDesignHash(p.Content)
		if err != nil {
			return ipc.Errorf("%v", err)
		}
		return success(fieldsOf(result))

	case "add-rollback":
		var p struct {
			Description string `json:"description"`
			RevisionID  string `json:"revision_id"`
		}
		if err := unmarshal(params, &p); err != nil {
			return ipc.Errorf("%v", err)
		}
		point, err := s.AddRollback(p.Description, p.RevisionID)
		if err != nil {
			return ipc.Errorf("%v", err)
		}
		return success(map[string]any{"point": point})

	case "get-rollbacks":
		return ipc.OK(map[string]any{"rollback_points": s.RollbackPoints()})

	case "reset":
		if err := s.Reset(); err != nil {
			return ipc.Errorf("%v", err)
		}
		return success(nil)

	// Validation dependency graph.
	case "init-protocol":
		p, err := sessionWorkflowParams(params)
		if err != nil {
			return ipc.Errorf("%v", err)
		}
		n, err := s.InitProtocol(p.Session, p.Workflow)
		if err != nil {
			return outcome(nil, err)
		}
		return success(map[string]any{"nodes": n, "workflow_type": p.Workflow})

	case "mark-validation":
		var p struct {
			Session    string `json:"session"`
			Workflow   string `json:"workflow"`
			Name       string `json:"name"`
			Status     string `json:"validation_status"`
			VerifiedBy string `json:"verified_by"`
		}
		if err := unmarshal(params, &p); err != nil {
			return ipc.Errorf("%v", err)
		}
		verifier := model.Verifier(p.VerifiedBy)
		if p.VerifiedBy == "" {
			verifier = model.VerifierManual
		}
		result, err := s.MarkValidation(p.Session, p.Workflow, p.Name, model.NodeStatus(p.Status), verifier)
		if err != nil {
			return outcome(fieldsOf(result), err)
		}
		return success(fieldsOf(result))

	case "get-validation":
		var p struct {
			Session  string `json:"session"`
			Workflow string `json:"workflow"`
			Name     string `json:"name"`
		}
		if err := unmarshal(params, &p); err != nil {
			return ipc.Errorf("%v", err)
		}
		rec, ok := s.Validation(p.Session, p.Workflow, p.Name)
		if !ok {
			return ipc.OK(map[string]any{"found": false})
		}
		fields := fieldsOf(rec)
		fields["found"] = true
		fields["validation_status"] = string(rec.Status)
		return ipc.OK(fields)

	case "check-validation-deps":
		var p struct {
			Session  string   `json:"session"`
			Workflow string   `json:"workflow"`
			Name     string   `json:"name"`
			Deps     []string `json:"deps"`
		}
		if err := unmarshal(params, &p); err != nil {
			return ipc.Errorf("%v", err)
		}
		result := s.CheckDependencies(p.Session, p.Workflow, p.Name, p.Deps)
		fields := fieldsOf(result)
		fields["allowed"] = result.Satisfied
		return ipc.OK(fields)

	case "verify-protocol":
		p, err := sessionWorkflowParams(params)
		if err != nil {
			return ipc.Errorf("%v", err)
		}
		result, verr := s.VerifyProtocol(p.Session, p.Workflow)
		if verr != nil {
			return outcome(nil, verr)
		}
		return ipc.OK(fieldsOf(result))

	case "suggest-parallel":
		p, err := sessionWorkflowParams(params)
		if err != nil {
			return ipc.Errorf("%v", err)
		}
		ready, serr := s.SuggestParallel(p.Session, p.Workflow)
		if serr != nil {
			return outcome(nil, serr)
		}
		return ipc.OK(map[string]any{"ready": ready})

	// Gates.
	case "set-gate":
		var p struct {
			Session string `json:"session"`
			Name    string `json:"name"`
			Passed  bool   `json:"passed"`
		}
		if err := unmarshal(params, &p); err != nil {
			return ipc.Errorf("%v", err)
		}
		rec, err := s.SetGate(p.Session, p.Name, p.Passed)
		if err != nil {
			return ipc.Errorf("%v", err)
		}
		return success(map[string]any{"passed": rec.Passed})

	case "get-gate":
		var p struct {
			Session string `json:"session"`
			Name    string `json:"name"`
		}
		if err := unmarshal(params, &p); err != nil {
			return ipc.Errorf("%v", err)
		}
		rec, ok := s.Gate(p.Session, p.Name)
		return ipc.OK(map[string]any{"passed": rec.Passed, "set": ok})

	case "require-gate":
		var p struct {
			Session string `json:"session"`
			Name    string `json:"name"`
		}
		if err := unmarshal(params, &p); err != nil {
			return ipc.Errorf("%v", err)
		}
		rec, _ := s.Gate(p.Session, p.Name)
		return ipc.OK(map[string]any{"allowed": rec.Passed, "passed": rec.Passed, "gate": p.Name})

	// Workflow stack.
	case "push-workflow":
		var p struct {
			Session      string `json:"session"`
			WorkflowType string `json:"workflow_type"`
		}
		if err := unmarshal(params, &p); err != nil {
			return ipc.Errorf("%v", err)
		}
		result, err := s.PushWorkflow(p.Session, p.WorkflowType)
		if err != nil {
			return ipc.Errorf("%v", err)
		}
		return success(fieldsOf(result))

	case "pop-workflow":
		p, err := sessionParams(params)
		if err != nil {
			return ipc.Errorf("%v", err)
		}
		result, perr := s.PopWorkflow(p.Session)
		if perr != nil {
			return outcome(nil, perr)
		}
		return success(fieldsOf(result))

	case "get-active-workflow":
		p, err := sessionParams(params)
		if err != nil {
			return ipc.Errorf("%v", err)
		}
		entry, ok := s.ActiveWorkflow(p.Session)
		if !ok {
			return ipc.OK(map[string]any{"depth": 0})
		}
		fields := fieldsOf(entry)
		fields["depth"] = len(s.Stack(p.Session))
		return ipc.OK(fields)

	case "get-workflow-stack":
		p, err := sessionParams(params)
		if err != nil {
			return ipc.Errorf("%v", err)
		}
		stack := s.Stack(p.Session)
		return ipc.OK(map[string]any{"stack": stack, "depth": len(stack)})

	case "clear-workflow-stack":
		p, err := sessionParams(params)
		if err != nil {
			return ipc.Errorf("%v", err)
		}
		if cerr := s.ClearStack(p.Session); cerr != nil {
			return ipc.Errorf("%v", cerr)
		}
		return success(nil)

	case "set-workflow-phase":
		var p struct {
			Session string `json:"session"`
			Phase   string `json:"phase"`
		}
		if err := unmarshal(params, &p); err != nil {
			return ipc.Errorf("%v", err)
		}
		if serr := s.SetWorkflowPhase(p.Session, p.Phase); serr != nil {
			return outcome(nil, serr)
		}
		return success(map[string]any{"phase": p.Phase})

	// Command step counters.
	case "get-command-step":
		p, err := sessionParams(params)
		if err != nil {
			return ipc.Errorf("%v", err)
		}
		result, serr := s.CommandStep(p.Session)
		if serr != nil {
			return outcome(nil, serr)
		}
		return ipc.OK(fieldsOf(result))

	case "set-command-step":
		var p struct {
			Session string `json:"session"`
			Step    int    `json:"step"`
		}
		if err := unmarshal(params, &p); err != nil {
			return ipc.Errorf("%v", err)
		}
		result, serr := s.SetCommandStep(p.Session, p.Step)
		if serr != nil {
			return outcome(nil, serr)
		}
		return success(fieldsOf(result))

	case "advance-command-step":
		p, err := sessionParams(params)
		if err != nil {
			return ipc.Errorf("%v", err)
		}
		result, serr := s.AdvanceCommandStep(p.Session)
		if serr != nil {
			return outcome(nil, serr)
		}
		return success(fieldsOf(result))

	case "check-sequence":
		var p struct {
			Key      string `json:"key"`
			Required int    `json:"required_step"`
		}
		if err := unmarshal(params, &p); err != nil {
			return ipc.Errorf("%v", err)
		}
		result, serr := s.CheckSequence(p.Key, p.Required)
		if serr != nil {
			return ipc.Errorf("%v", serr)
		}
		return ipc.OK(fieldsOf(result))

	// Key/value state.
	case "kv-get":
		var p struct {
			Key string `json:"key"`
		}
		if err := unmarshal(params, &p); err != nil {
			return ipc.Errorf("%v", err)
		}
		v, ok := s.KVGet(p.Key)
		return ipc.OK(map[string]any{"value": v, "found": ok})

	case "kv-set":
		var p struct {
			Key   string `json:"key"`
			Value any    `json:"value"`
		}
		if err := unmarshal(params, &p); err != nil {
			return ipc.Errorf("%v", err)
		}
		if serr := s.KVSet(p.Key, p.Value); serr != nil {
			return ipc.Errorf("%v", serr)
		}
		return success(nil)

	case "kv-inc", "kv-dec":
		var p struct {
			Key string `json:"key"`
		}
		if err := unmarshal(params, &p); err != nil {
			return ipc.Errorf("%v", err)
		}
		var v int
		var serr error
		if cmd == "kv-inc" {
			v, serr = s.KVInc(p.Key)
		} else {
			v, serr = s.KVDec(p.Key)
		}
		if serr != nil {
			return ipc.Errorf("%v", serr)
		}
		return success(map[string]any{"value": v})

	case "kv-list":
		return ipc.OK(map[string]any{"state": s.KVList(), "keys": len(s.KVList())})

	case "kv-clear":
		if err := s.KVClear(); err != nil {
			return ipc.Errorf("%v", err)
		}
		return success(nil)

	case "clear-session":
		p, err := sessionParams(params)
		if err != nil {
			return ipc.Errorf("%v", err)
		}
		cleared, serr := s.ClearSession(p.Session)
		if serr != nil {
			return ipc.Errorf("%v", serr)
		}
		return success(map[string]any{"cleared": cleared})

	default:
		return ipc.Errorf("unknown command: %q", cmd)
	}
}

// Commands returns every command name Dispatch understands.
func Commands() []string {
	return []string{
		"get", "get-phase", "is-active", "phases",
		"activate", "deactivate", "confirm", "checkpoint",
		"set-phase", "set-design-hash", "add-rollback", "get-rollbacks", "reset",
		"init-protocol", "mark-validation", "get-validation",
		"check-validation-deps", "verify-protocol", "suggest-parallel",
		"set-gate", "get-gate", "require-gate",
		"push-workflow", "pop-workflow", "get-active-workflow",
		"get-workflow-stack", "clear-workflow-stack", "set-workflow-phase",
		"get-command-step", "set-command-step", "advance-command-step",
		"check-sequence",
		"kv-get", "kv-set", "kv-inc", "kv-dec", "kv-list", "kv-clear",
		"clear-session",
	}
}

type sessionOnly struct {
	Session string `json:"session"`
}

func sessionParams(params json.RawMessage) (sessionOnly, error) {
	var p sessionOnly
	err := unmarshal(params, &p)
	return p, err
}

type sessionWorkflow struct {
	Session  string `json:"session"`
	Workflow string `json:"workflow"`
}

func sessionWorkflowParams(params json.RawMessage) (sessionWorkflow, error) {
	var p sessionWorkflow
	err := unmarshal(params, &p)
	return p, err
}

func unmarshal(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return nil
	}
	return json.Unmarshal(params, v)
}

// success is an ok response with an explicit success flag.
func success(fields map[string]any) *ipc.Response {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["success"] = true
	return ipc.OK(fields)
}

// outcome renders an operation error. Precondition violations become
// success:false payloads with diagnostics; anything else is a hard error.
func outcome(fields map[string]any, err error) *ipc.Response {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["success"] = false
	fields["error"] = err.Error()

	var agentErr *AgentMismatchError
	var depErr *DependencyError
	var verifyErr *VerificationError
	var phaseErr *WrongPhaseError
	var boundsErr *PhaseBoundsError
	var statusErr *UnknownStatusError

	switch {
	case errors.As(err, &agentErr):
		fields["expected_agent"] = agentErr.Expected
		fields["phase"] = agentErr.Phase
	case errors.As(err, &depErr):
		fields["failed_deps"] = depErr.Unmet
	case errors.As(err, &verifyErr):
		fields["validation_status"] = string(model.NodeClaimed)
	case errors.As(err, &phaseErr):
		fields["phase"] = phaseErr.Phase
		fields["required_phase"] = phaseErr.Want
	case errors.As(err, &boundsErr):
	case errors.As(err, &statusErr):
	case errors.Is(err, ErrNotActive),
		errors.Is(err, ErrConfirmationRequired),
		errors.Is(err, ErrReconfirmationRequired),
		errors.Is(err, ErrEmptyStack),
		errors.Is(err, ErrNoActiveWorkflow),
		errors.Is(err, ErrUnknownProtocol),
		errors.Is(err, ErrUnknownNode):
	default:
		// Not a precondition outcome: persistence or internal failure.
		return ipc.Errorf("%v", err)
	}
	return ipc.OK(fields)
}

// fieldsOf flattens a struct into response fields via its JSON form.
func fieldsOf(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{}
	}
	return m
}
