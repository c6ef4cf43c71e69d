package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HandlerFunc processes one command's params and returns the reply.
type HandlerFunc func(params json.RawMessage) *Response

// Server accepts connections on a Unix socket, one worker per connection.
// Each worker reads a single request line, dispatches it, writes the reply
// and closes.
type Server struct {
	socketPath  string
	listener    net.Listener
	handlers    map[string]HandlerFunc
	onRequest   func()
	mu          sync.RWMutex
	connTimeout time.Duration
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	logger      *zap.Logger
}

func NewServer(socketPath string, logger *zap.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		socketPath:  socketPath,
		handlers:    make(map[string]HandlerFunc),
		connTimeout: 5 * time.Second,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

func (s *Server) SetConnTimeout(d time.Duration) {
	s.connTimeout = d
}

// Handle registers a handler for a command name.
func (s *Server) Handle(cmd string, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[cmd] = handler
}

// OnRequest registers a callback invoked for every received request,
// used for idle tracking.
func (s *Server) OnRequest(fn func()) {
	s.onRequest = fn
}

func (s *Server) Start() error {
	// Remove stale socket file
	_ = os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}

	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

func (s *Server) Stop() error {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	_ = os.Remove(s.socketPath)
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				s.logger.Warn("accept error", zap.Error(err))
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() { _ = conn.Close() }()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in connection handler",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()

	_ = conn.SetDeadline(time.Now().Add(s.connTimeout))

	var req Request
	if err := ReadLine(bufio.NewReaderSize(conn, 64*1024), &req); err != nil {
		// Malformed JSON must never crash the daemon; answer and move on.
		_ = WriteLine(conn, Errorf("invalid request: %v", err))
		return
	}

	if s.onRequest != nil {
		s.onRequest()
	}

	resp := s.dispatch(&req)

	if err := WriteLine(conn, resp); err != nil {
		s.logger.Warn("write response", zap.String("cmd", req.Cmd), zap.Error(err))
	}
}

func (s *Server) dispatch(req *Request) *Response {
	s.mu.RLock()
	handler, ok := s.handlers[req.Cmd]
	s.mu.RUnlock()

	if !ok {
		return Errorf("unknown command: %q", req.Cmd)
	}
	return handler(req.Params)
}
