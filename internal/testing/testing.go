// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/tapedeck/tapedeck/internal/models"
)

// MockGateway is a test double for [playlists.Gateway]
type MockGateway struct {
	mu sync.Mutex

	Entries   []models.Entry
	Documents map[string][]byte

	Uploaded  map[string][]byte
	Deleted   []string
	UploadErr error
	DeleteErr error
	ListErr   bool
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		Documents: map[string][]byte{},
		Uploaded:  map[string][]byte{},
	}
}

func (m *MockGateway) ListFolder(ctx context.Context, path string, mediaOnly bool, emit func([]models.Entry)) []models.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr {
		return nil
	}
	if emit != nil {
		emit(m.Entries)
	}
	return m.Entries
}

func (m *MockGateway) Upload(ctx context.Context, path string, data []byte, overwrite bool) (models.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UploadErr != nil {
		return models.Entry{}, m.UploadErr
	}
	m.Uploaded[path] = data
	m.Documents[path] = data
	return models.Entry{Name: lastSegment(path), PathDisplay: path, Rev: "rev-1"}, nil
}

func (m *MockGateway) Download(ctx context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Documents[path]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (m *MockGateway) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.Deleted = append(m.Deleted, path)
	delete(m.Documents, path)
	return nil
}

// UploadCount reports how many documents have been uploaded so far.
func (m *MockGateway) UploadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Uploaded)
}

// UploadedDoc returns the last payload uploaded to path.
func (m *MockGateway) UploadedDoc(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Uploaded[path]
	return data, ok
}

// DeletedPaths returns the paths deleted so far, in order.
func (m *MockGateway) DeletedPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Deleted...)
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// ScriptedRoundTripper returns queued responses in order, replaying the last
// one once the script is exhausted. Used for retry and refresh sequences.
type ScriptedRoundTripper struct {
	mu        sync.Mutex
	responses []func(*http.Request) (*http.Response, error)
	Requests  []*http.Request
}

func NewScriptedRoundTripper(responses ...func(*http.Request) (*http.Response, error)) *ScriptedRoundTripper {
	return &ScriptedRoundTripper{responses: responses}
}

func (s *ScriptedRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	s.Requests = append(s.Requests, req)
	idx := len(s.Requests) - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	fn := s.responses[idx]
	s.mu.Unlock()
	return fn(req)
}

// Calls reports how many requests have been dispatched.
func (s *ScriptedRoundTripper) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Requests)
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
