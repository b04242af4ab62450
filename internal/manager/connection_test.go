package manager

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tkc/taskdeck/internal/tracker"
)

// cancellableRepo はCancellableConnectorを実装するテスト用リポジトリ
type cancellableRepo struct {
	fakeRepo
	conn *fakeConn
}

func (r *cancellableRepo) NewCancellableConnection() tracker.CancellableConnection {
	return r.conn
}

// fakeConn はCancelされるまでブロックする接続
type fakeConn struct {
	result    error
	block     chan struct{}
	once      sync.Once
	cancelled atomic.Bool
}

func newFakeConn(result error) *fakeConn {
	return &fakeConn{result: result, block: make(chan struct{})}
}

func (c *fakeConn) release() {
	c.once.Do(func() { close(c.block) })
}

func (c *fakeConn) Run() error {
	<-c.block
	if c.cancelled.Load() {
		return context.Canceled
	}
	return c.result
}

func (c *fakeConn) Cancel() {
	c.cancelled.Store(true)
	c.release()
}

func TestConnectionCancellationInvokesCancel(t *testing.T) {
	repo := &cancellableRepo{
		fakeRepo: fakeRepo{name: "slow", url: "file:///slow", configured: true},
		conn:     newFakeConn(nil),
	}
	m := newTestManager(Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.TestConnection(ctx, repo)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if !repo.conn.cancelled.Load() {
		t.Error("Expected Cancel to be invoked on the connection before returning")
	}
}

func TestConnectionCancellableSuccess(t *testing.T) {
	conn := newFakeConn(nil)
	conn.release()
	repo := &cancellableRepo{
		fakeRepo: fakeRepo{name: "fast", url: "file:///fast", configured: true},
		conn:     conn,
	}
	m := newTestManager(Options{})
	m.markBad(repo)

	if err := m.TestConnection(context.Background(), repo); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if len(m.BadRepositories()) != 0 {
		t.Error("Expected a successful test to clear the bad flag")
	}
}

func TestConnectionSuccessClearsBad(t *testing.T) {
	repo := &fakeRepo{name: "r1", url: "file:///r1", configured: true}
	m := newTestManager(Options{})
	m.markBad(repo)

	if err := m.TestConnection(context.Background(), repo); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if len(m.BadRepositories()) != 0 {
		t.Error("Expected a successful test to clear the bad flag")
	}
}

func TestConnectionFailureReturnsError(t *testing.T) {
	cause := errors.New("connection refused")
	repo := &fakeRepo{name: "r1", url: "file:///r1", configured: true, err: cause}
	m := newTestManager(Options{})

	if err := m.TestConnection(context.Background(), repo); !errors.Is(err, cause) {
		t.Errorf("Expected the underlying error, got %v", err)
	}
}

func TestConnectionUnknownHost(t *testing.T) {
	repo := &fakeRepo{
		name:       "r1",
		url:        "https://tracker.example",
		configured: true,
		err:        &net.DNSError{Err: "no such host", Name: "tracker.example", IsNotFound: true},
	}
	m := newTestManager(Options{})

	err := m.TestConnection(context.Background(), repo)
	if err == nil {
		t.Fatal("Expected an error")
	}
	if got := err.Error(); got != "unknown host: tracker.example" {
		t.Errorf("Expected a friendly unknown-host message, got %q", got)
	}
}
