package engine

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/mandelctl/internal/observability"
	"github.com/danmuck/mandelctl/internal/protocol"
	"github.com/danmuck/mandelctl/internal/protocol/session"
)

// Runner executes sessions on a worker goroutine, one at a time, over a
// shared Exchanger.
type Runner struct {
	ex   Exchanger
	cfg  session.Config
	opts []Option

	mu     sync.Mutex
	active *Task
}

// NewRunner returns a Runner whose sessions are built with opts.
func NewRunner(ex Exchanger, cfg session.Config, opts ...Option) *Runner {
	return &Runner{ex: ex, cfg: cfg, opts: opts}
}

// Start validates req and runs it as a new session. It returns ErrSessionBusy
// without touching the connection while another session is in flight.
func (r *Runner) Start(ctx context.Context, req protocol.RenderRequest, obs Observer) (*Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		observability.RecordBusy()
		log.Debug().Msgf("engine.Runner start rejected state=%s", r.active.State())
		return nil, ErrSessionBusy
	}

	runCtx, cancel := context.WithCancel(ctx)
	task := &Task{
		session: NewSession(r.ex, r.cfg, obs, r.opts...),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	r.active = task
	go r.run(runCtx, task, req)
	return task, nil
}

func (r *Runner) run(ctx context.Context, task *Task, req protocol.RenderRequest) {
	res, err := task.session.Run(ctx, req)
	task.cancel()

	r.mu.Lock()
	if r.active == task {
		r.active = nil
	}
	r.mu.Unlock()

	task.result = res
	task.err = err
	close(task.done)
}

// Busy reports whether a session is in flight.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Task is the handle of one running session.
type Task struct {
	session *Session
	cancel  context.CancelFunc
	done    chan struct{}

	result Result
	err    error
}

// Done is closed once the session reached a terminal state and the Runner
// accepts a new Start.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the session ends.
func (t *Task) Wait() (Result, error) {
	<-t.done
	return t.result, t.err
}

// Cancel asks the session to stop at its next poll boundary or blocked I/O.
func (t *Task) Cancel() {
	t.cancel()
}

func (t *Task) State() State {
	return t.session.State()
}
