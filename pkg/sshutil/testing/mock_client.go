package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sync"

	"github.com/rileyhilliard/vmprov/pkg/sshutil"
)

// CommandResponse defines a canned response for a specific command pattern.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error
}

// MockClient is a recording SSHClient. Unmatched commands succeed with no
// output; uploads land in an in-memory map unless UploadErr is set.
type MockClient struct {
	mu        sync.Mutex
	host      string
	address   string
	closed    bool
	responses map[string]CommandResponse // pattern -> response
	executed  []string
	uploads   map[string]Upload
	uploadErr error
}

// Upload is one file received by a MockClient.
type Upload struct {
	Data []byte
	Perm string
}

// NewMockClient creates a new mock SSH client for host.
func NewMockClient(host string) *MockClient {
	return &MockClient{
		host:      host,
		address:   host + ":22",
		responses: make(map[string]CommandResponse),
		uploads:   make(map[string]Upload),
	}
}

// Exec records cmd and returns the first matching canned response.
func (m *MockClient) Exec(cmd string) (stdout, stderr []byte, exitCode int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, nil, -1, errors.New("connection closed")
	}
	m.executed = append(m.executed, cmd)

	if resp, ok := m.responses[cmd]; ok {
		return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
	}
	for pattern, resp := range m.responses {
		if matched, _ := regexp.MatchString(pattern, cmd); matched {
			return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
		}
	}
	return nil, nil, 0, nil
}

// Upload reads r fully and stores it under remotePath.
func (m *MockClient) Upload(ctx context.Context, r io.Reader, remotePath, perm string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("connection closed")
	}
	if m.uploadErr != nil {
		return m.uploadErr
	}
	m.uploads[remotePath] = Upload{Data: data, Perm: perm}
	return nil
}

// Close marks the client closed. Later calls fail.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetHost returns the host name.
func (m *MockClient) GetHost() string {
	return m.host
}

// GetAddress returns the host:port address.
func (m *MockClient) GetAddress() string {
	return m.address
}

// SetCommandResponse configures the response for commands matching pattern,
// either exactly or as a regular expression.
func (m *MockClient) SetCommandResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[pattern] = resp
}

// SetUploadError makes every later Upload fail with err.
func (m *MockClient) SetUploadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadErr = err
}

// Commands returns the executed commands in order.
func (m *MockClient) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.executed...)
}

// Uploaded returns the file stored at remotePath.
func (m *MockClient) Uploaded(remotePath string) (Upload, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.uploads[remotePath]
	return u, ok
}

// IsClosed returns whether Close was called.
func (m *MockClient) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// DialCall records one call to a MockDialer.
type DialCall struct {
	Target sshutil.Target
	Creds  sshutil.Credentials
}

// DialResult is the scripted outcome of one dial.
type DialResult struct {
	Client *MockClient
	Err    error
}

// MockDialer hands out scripted results in order and records every call.
// Calls beyond the script fail.
type MockDialer struct {
	mu      sync.Mutex
	results []DialResult
	calls   []DialCall
}

// NewMockDialer creates a dialer that returns results in order.
func NewMockDialer(results ...DialResult) *MockDialer {
	return &MockDialer{results: results}
}

// Dial satisfies sshutil.DialFunc.
func (d *MockDialer) Dial(ctx context.Context, target sshutil.Target, creds sshutil.Credentials) (sshutil.SSHClient, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, DialCall{Target: target, Creds: creds})
	n := len(d.calls)
	if n > len(d.results) {
		return nil, fmt.Errorf("unexpected dial #%d to %s", n, target.Host)
	}
	res := d.results[n-1]
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Client, nil
}

// Calls returns the recorded dial calls in order.
func (d *MockDialer) Calls() []DialCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DialCall(nil), d.calls...)
}

// Compile-time check that MockClient implements SSHClient.
var _ sshutil.SSHClient = (*MockClient)(nil)

// Compile-time check that MockDialer.Dial is a DialFunc.
var _ sshutil.DialFunc = (*MockDialer)(nil).Dial
