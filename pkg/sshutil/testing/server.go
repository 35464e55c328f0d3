package testing

import (
	"bufio"
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/rileyhilliard/vmprov/pkg/sshutil"
	"golang.org/x/crypto/ssh"
)

// AuthAttempt records one authentication callback on the test server.
type AuthAttempt struct {
	User    string
	Method  string // "publickey" or "password"
	Success bool
}

// CommandResult is what the server answers for a matching exec request.
type CommandResult struct {
	Stdout     string
	Stderr     string
	ExitStatus uint32
}

// Server is an in-process SSH server for tests. It accepts the configured
// public keys and password, records every auth attempt and exec command,
// and implements the sink side of scp uploads.
type Server struct {
	Target sshutil.Target

	listener net.Listener
	config   *ssh.ServerConfig
	wg       sync.WaitGroup

	mu             sync.Mutex
	authorizedKeys [][]byte
	password       string
	dropOnSCP      bool
	dropOn         string
	results        map[string]CommandResult
	attempts       []AuthAttempt
	commands       []string
	files          map[string][]byte
	conns          []*ssh.ServerConn
}

// Option configures a Server.
type Option func(*Server)

// WithAuthorizedKey makes the server accept pub for public-key auth.
func WithAuthorizedKey(pub ssh.PublicKey) Option {
	return func(s *Server) {
		s.authorizedKeys = append(s.authorizedKeys, pub.Marshal())
	}
}

// WithPassword makes the server accept pw for password auth.
func WithPassword(pw string) Option {
	return func(s *Server) {
		s.password = pw
	}
}

// WithDropOnSCP closes the connection as soon as an scp upload starts,
// before any data is acknowledged.
func WithDropOnSCP() Option {
	return func(s *Server) {
		s.dropOnSCP = true
	}
}

// WithDropOnCommand closes the connection when an exec command contains substr.
func WithDropOnCommand(substr string) Option {
	return func(s *Server) {
		s.dropOn = substr
	}
}

// WithCommandResult answers exec commands containing substr with res.
func WithCommandResult(substr string, res CommandResult) Option {
	return func(s *Server) {
		s.results[substr] = res
	}
}

// NewServer starts a server on 127.0.0.1 and stops it when the test ends.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{
		results: make(map[string]CommandResult),
		files:   make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(s)
	}

	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	hostSigner, err := ssh.NewSignerFromKey(hostPriv)
	if err != nil {
		t.Fatalf("host signer: %v", err)
	}

	s.config = &ssh.ServerConfig{
		PublicKeyCallback: s.checkPublicKey,
		PasswordCallback:  s.checkPassword,
	}
	s.config.AddHostKey(hostSigner)

	s.listener, err = net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := s.listener.Addr().(*net.TCPAddr)
	s.Target = sshutil.Target{Host: "127.0.0.1", Port: addr.Port, User: "tester"}

	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

// Close stops accepting connections and tears down open ones.
func (s *Server) Close() {
	s.listener.Close()
	s.mu.Lock()
	for _, c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// AuthAttempts returns every auth callback in order.
func (s *Server) AuthAttempts() []AuthAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AuthAttempt(nil), s.attempts...)
}

// AuthMethods returns the method of every auth attempt in order.
func (s *Server) AuthMethods() []string {
	var methods []string
	for _, a := range s.AuthAttempts() {
		methods = append(methods, a.Method)
	}
	return methods
}

// Commands returns every exec command received, including scp sinks.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// CommandsContaining returns the received commands that contain substr.
func (s *Server) CommandsContaining(substr string) []string {
	var out []string
	for _, c := range s.Commands() {
		if strings.Contains(c, substr) {
			out = append(out, c)
		}
	}
	return out
}

// File returns the bytes uploaded to remotePath over scp.
func (s *Server) File(remotePath string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[remotePath]
	return data, ok
}

func (s *Server) checkPublicKey(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok := false
	for _, k := range s.authorizedKeys {
		if bytes.Equal(k, key.Marshal()) {
			ok = true
			break
		}
	}
	s.attempts = append(s.attempts, AuthAttempt{User: conn.User(), Method: "publickey", Success: ok})
	if !ok {
		return nil, fmt.Errorf("public key not authorized")
	}
	return nil, nil
}

func (s *Server) checkPassword(conn ssh.ConnMetadata, pw []byte) (*ssh.Permissions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok := s.password != "" && string(pw) == s.password
	s.attempts = append(s.attempts, AuthAttempt{User: conn.User(), Method: "password", Success: ok})
	if !ok {
		return nil, fmt.Errorf("password rejected")
	}
	return nil, nil
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(nc)
		}()
	}
}

func (s *Server) handleConn(nc net.Conn) {
	defer nc.Close()

	sconn, chans, reqs, err := ssh.NewServerConn(nc, s.config)
	if err != nil {
		return
	}
	defer sconn.Close()

	s.mu.Lock()
	s.conns = append(s.conns, sconn)
	s.mu.Unlock()

	go ssh.DiscardRequests(reqs)

	var sessions sync.WaitGroup
	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "only sessions are supported")
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			continue
		}
		sessions.Add(1)
		go func() {
			defer sessions.Done()
			s.handleSession(sconn, ch, chReqs)
		}()
	}
	sessions.Wait()
}

func (s *Server) handleSession(sconn *ssh.ServerConn, ch ssh.Channel, reqs <-chan *ssh.Request) {
	defer ch.Close()

	for req := range reqs {
		if req.Type != "exec" {
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
			continue
		}

		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			_ = req.Reply(false, nil)
			return
		}
		_ = req.Reply(true, nil)

		status, ok := s.exec(sconn, ch, payload.Command)
		if !ok {
			return
		}
		_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
		return
	}
}

// exec runs one command. ok is false when the connection was dropped.
func (s *Server) exec(sconn *ssh.ServerConn, ch ssh.Channel, cmd string) (uint32, bool) {
	s.mu.Lock()
	s.commands = append(s.commands, cmd)
	dropOnSCP, dropOn := s.dropOnSCP, s.dropOn
	var res CommandResult
	for substr, r := range s.results {
		if strings.Contains(cmd, substr) {
			res = r
			break
		}
	}
	s.mu.Unlock()

	if dropOn != "" && strings.Contains(cmd, dropOn) {
		sconn.Close()
		return 0, false
	}

	if strings.HasPrefix(cmd, "scp ") {
		if dropOnSCP {
			sconn.Close()
			return 0, false
		}
		return s.scpSink(ch, cmd), true
	}

	_, _ = io.WriteString(ch, res.Stdout)
	_, _ = io.WriteString(ch.Stderr(), res.Stderr)
	return res.ExitStatus, true
}

// scpSink implements the receiving end of "scp -t <path>" for a single file.
func (s *Server) scpSink(ch ssh.Channel, cmd string) uint32 {
	fields := strings.Fields(cmd)
	target := fields[len(fields)-1]
	if unquoted, err := strconv.Unquote(target); err == nil {
		target = unquoted
	} else {
		target = strings.Trim(target, "'")
	}

	r := bufio.NewReader(ch)
	_, _ = ch.Write([]byte{0})

	header, err := r.ReadString('\n')
	if err != nil || !strings.HasPrefix(header, "C") {
		return 1
	}
	parts := strings.Fields(header[1:])
	if len(parts) != 3 {
		return 1
	}
	size, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 1
	}
	_, _ = ch.Write([]byte{0})

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return 1
	}
	if _, err := r.ReadByte(); err != nil {
		return 1
	}

	s.mu.Lock()
	s.files[target] = data
	s.mu.Unlock()

	_, _ = ch.Write([]byte{0})
	return 0
}
