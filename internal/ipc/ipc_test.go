package ipc

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func setupTestServer(t *testing.T) (*Server, *Client) {
	t.Helper()
	// Use /tmp directly to stay under the Unix socket path length limit.
	dir, err := os.MkdirTemp("/tmp", "forged-ipc-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	sockPath := filepath.Join(dir, "t.sock")
	server := NewServer(sockPath, nil)
	client := NewClient(sockPath)
	client.SetTimeout(5 * time.Second)
	return server, client
}

func TestServer_RoundTrip(t *testing.T) {
	server, client := setupTestServer(t)

	server.Handle("echo", func(params json.RawMessage) *Response {
		var p struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return Errorf("bad params: %v", err)
		}
		return OK(map[string]any{"text": p.Text})
	})

	if err := server.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = server.Stop() }()

	resp, err := client.SendCommand("echo", map[string]string{"text": "hello"})
	if err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	if resp.Status != StatusOK {
		t.Fatalf("status = %q, want ok", resp.Status)
	}
	if got := resp.String("text"); got != "hello" {
		t.Errorf("text = %q, want hello", got)
	}
}

func TestServer_UnknownCommand(t *testing.T) {
	server, client := setupTestServer(t)
	if err := server.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = server.Stop() }()

	resp, err := client.SendCommand("nope", nil)
	if err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	if resp.Status != StatusError {
		t.Errorf("status = %q, want error", resp.Status)
	}
	if !strings.Contains(resp.Message, "unknown command") {
		t.Errorf("message = %q, want unknown command", resp.Message)
	}
}

func TestServer_MalformedRequest(t *testing.T) {
	server, client := setupTestServer(t)
	if err := server.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = server.Stop() }()

	conn, err := net.Dial("unix", client.socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.Write([]byte("this is not json\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	buf := make([]byte, 4096)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var resp Response
	if err := json.Unmarshal(buf[:n], &resp); err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	if resp.Status != StatusError {
		t.Errorf("status = %q, want error", resp.Status)
	}

	// The daemon must survive: a well-formed request still works.
	server.Handle("ping", func(json.RawMessage) *Response { return OK(nil) })
	if resp, err := client.SendCommand("ping", nil); err != nil || resp.Status != StatusOK {
		t.Errorf("daemon did not survive malformed request: resp=%v err=%v", resp, err)
	}
}

func TestServer_ConcurrentClients(t *testing.T) {
	server, client := setupTestServer(t)

	server.Handle("double", func(params json.RawMessage) *Response {
		var p struct {
			N int `json:"n"`
		}
		_ = json.Unmarshal(params, &p)
		return OK(map[string]any{"n": p.N * 2})
	})

	if err := server.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = server.Stop() }()

	var g errgroup.Group
	for i := 0; i < 32; i++ {
		i := i
		g.Go(func() error {
			resp, err := client.SendCommand("double", map[string]int{"n": i})
			if err != nil {
				return err
			}
			if got := resp.Int("n"); got != i*2 {
				t.Errorf("double(%d) = %d, want %d", i, got, i*2)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent clients: %v", err)
	}
}

func TestResponse_MarshalFlattensFields(t *testing.T) {
	resp := OK(map[string]any{"phase": 2, "active": true})
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["status"] != "ok" {
		t.Errorf("status = %v, want ok", m["status"])
	}
	if m["phase"] != float64(2) {
		t.Errorf("phase = %v, want 2 at top level", m["phase"])
	}
	if m["active"] != true {
		t.Errorf("active = %v, want true at top level", m["active"])
	}
	if _, present := m["fields"]; present {
		t.Error("fields wrapper leaked into wire form")
	}
}

func TestResponse_Success(t *testing.T) {
	tests := []struct {
		name string
		resp *Response
		want bool
	}{
		{"ok without flag", OK(map[string]any{"phase": 1}), true},
		{"ok with success true", OK(map[string]any{"success": true}), true},
		{"ok with success false", OK(map[string]any{"success": false}), false},
		{"protocol error", Errorf("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.Success(); got != tt.want {
				t.Errorf("Success() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClient_NoServer(t *testing.T) {
	client := NewClient(filepath.Join(t.TempDir(), "absent.sock"))
	client.SetTimeout(500 * time.Millisecond)
	if _, err := client.SendCommand("ping", nil); err == nil {
		t.Error("SendCommand with no server = nil error, want error")
	}
	if client.Ping() {
		t.Error("Ping with no server = true, want false")
	}
}
