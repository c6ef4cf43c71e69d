// Package ipc implements the newline-delimited JSON protocol spoken between
// short-lived clients and the forged daemon over a per-workspace Unix socket.
// Each connection carries exactly one request and one response.
package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// MaxLineBytes bounds a single request or response line.
const MaxLineBytes = 1 << 20

// Request is one command line: {"cmd":"<name>","params":{...}}.
type Request struct {
	Cmd    string          `json:"cmd"`
	Params json.RawMessage `json:"params,omitempty"`
}

// NewRequest builds a request with marshaled params.
func NewRequest(cmd string, params any) (*Request, error) {
	req := &Request{Cmd: cmd}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		req.Params = data
	}
	return req, nil
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Response is one reply line. Status and Message occupy the reserved
// "status"/"message" keys; all command-specific fields sit beside them at
// the top level of the JSON object.
type Response struct {
	Status  string
	Message string
	Fields  map[string]any
}

// OK builds a success response carrying the given fields.
func OK(fields map[string]any) *Response {
	return &Response{Status: StatusOK, Fields: fields}
}

// Errorf builds a protocol-error response. Precondition violations are not
// protocol errors; they travel as OK responses with a success:false payload.
func Errorf(format string, args ...any) *Response {
	return &Response{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

func (r *Response) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		m[k] = v
	}
	m["status"] = r.Status
	if r.Message != "" {
		m["message"] = r.Message
	}
	return json.Marshal(m)
}

func (r *Response) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if s, ok := m["status"].(string); ok {
		r.Status = s
	}
	if s, ok := m["message"].(string); ok {
		r.Message = s
	}
	delete(m, "status")
	delete(m, "message")
	r.Fields = m
	return nil
}

// Bool returns a boolean field, false if absent or mistyped.
func (r *Response) Bool(key string) bool {
	v, _ := r.Fields[key].(bool)
	return v
}

// Int returns a numeric field. JSON numbers decode as float64.
func (r *Response) Int(key string) int {
	switch v := r.Fields[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// String returns a string field, "" if absent.
func (r *Response) String(key string) string {
	v, _ := r.Fields[key].(string)
	return v
}

// Success reports whether the command's own outcome succeeded. Responses
// without an explicit success field count as successful when status is ok.
func (r *Response) Success() bool {
	if r.Status != StatusOK {
		return false
	}
	if v, ok := r.Fields["success"].(bool); ok {
		return v
	}
	return true
}

// WriteLine writes v as one JSON line.
func WriteLine(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal line: %w", err)
	}
	if len(data) > MaxLineBytes {
		return fmt.Errorf("line too large: %d bytes", len(data))
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}

// ReadLine reads one newline-terminated JSON value into v.
func ReadLine(r *bufio.Reader, v any) error {
	line, err := r.ReadBytes('\n')
	if err != nil && (err != io.EOF || len(line) == 0) {
		return fmt.Errorf("read line: %w", err)
	}
	if len(line) > MaxLineBytes {
		return fmt.Errorf("line too large: %d bytes", len(line))
	}
	if err := json.Unmarshal(line, v); err != nil {
		return fmt.Errorf("unmarshal line: %w", err)
	}
	return nil
}
