package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/mandelctl/internal/protocol"
	"github.com/danmuck/mandelctl/internal/protocol/session"
	"github.com/danmuck/mandelctl/internal/testutil/enginetest"
)

func testConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.ConnectTimeout = 500 * time.Millisecond
	cfg.HandshakeTimeout = 500 * time.Millisecond
	cfg.ReadTimeout = 2 * time.Second
	cfg.WriteTimeout = 2 * time.Second
	cfg.PollInterval = 0
	cfg.OutputRetry = session.BackoffConfig{}
	return cfg
}

func dialEngine(t *testing.T, e *enginetest.Engine) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := Dial(ctx, e.Addr(), testConfig())
	if err != nil {
		t.Fatalf("dial engine: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func scenarioRequest() protocol.RenderRequest {
	return protocol.RenderRequest{
		Iterations:    500,
		Width:         800,
		Height:        800,
		Supersampling: 1,
		Radius:        2,
		Color:         protocol.Greyscale(),
	}
}

type recorder struct {
	mu       sync.Mutex
	states   []State
	progress []Progress
	polled   chan struct{}
}

func newRecorder() *recorder {
	return &recorder{polled: make(chan struct{}, 64)}
}

func (r *recorder) OnState(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) OnProgress(p Progress) {
	r.mu.Lock()
	r.progress = append(r.progress, p)
	r.mu.Unlock()
	select {
	case r.polled <- struct{}{}:
	default:
	}
}

func (r *recorder) States() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func (r *recorder) Progress() []Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Progress(nil), r.progress...)
}

// scriptedExchanger answers from replies in order. When block is set the first
// exchange signals entered and waits for block to close.
type scriptedExchanger struct {
	mu      sync.Mutex
	lines   []string
	replies []string
	block   chan struct{}
	entered chan struct{}
}

func (x *scriptedExchanger) SendAndReceive(ctx context.Context, line string) (string, error) {
	x.mu.Lock()
	first := len(x.lines) == 0
	x.lines = append(x.lines, line)
	x.mu.Unlock()
	if first && x.block != nil {
		x.entered <- struct{}{}
		select {
		case <-x.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if len(x.replies) == 0 {
		return "", ErrTransport
	}
	reply := x.replies[0]
	x.replies = x.replies[1:]
	return reply, nil
}

func (x *scriptedExchanger) Lines() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]string(nil), x.lines...)
}
