package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/danmuck/mandelctl/internal/observability"
	"github.com/danmuck/mandelctl/internal/protocol"
	"github.com/danmuck/mandelctl/internal/protocol/session"
)

const tracerName = "github.com/danmuck/mandelctl/internal/engine"

type State int

const (
	StateIdle State = iota
	StateSubmitting
	StatePolling
	StateFetchingOutput
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StatePolling:
		return "polling"
	case StateFetchingOutput:
		return "fetching_output"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Active reports whether a session in this state owns the connection.
func (s State) Active() bool {
	return s == StateSubmitting || s == StatePolling || s == StateFetchingOutput
}

// Outcome is the result variant of a session that ended without error.
type Outcome int

const (
	// OutcomeRendered carries an output reference.
	OutcomeRendered Outcome = iota
	// OutcomeEmpty means the engine finished but had no output.
	OutcomeEmpty
	// OutcomeNoOperation means the engine had no render in progress.
	OutcomeNoOperation
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRendered:
		return "rendered"
	case OutcomeEmpty:
		return "empty"
	case OutcomeNoOperation:
		return "no_operation"
	default:
		return "unknown"
	}
}

// Progress is one progress notification. None marks the "no operation" reply
// and is never conflated with a zero fraction.
type Progress struct {
	Fraction float64
	None     bool
}

type Result struct {
	Outcome       Outcome
	Output        string
	Polls         int
	OutputRetries int
	Elapsed       time.Duration
}

// Observer receives state transitions and progress from the goroutine running
// the session. Implementations must not block.
type Observer interface {
	OnState(State)
	OnProgress(Progress)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	State    func(State)
	Progress func(Progress)
}

func (o ObserverFuncs) OnState(s State) {
	if o.State != nil {
		o.State(s)
	}
}

func (o ObserverFuncs) OnProgress(p Progress) {
	if o.Progress != nil {
		o.Progress(p)
	}
}

// Exchanger is the half-duplex request/response surface a Session borrows.
type Exchanger interface {
	SendAndReceive(ctx context.Context, line string) (string, error)
}

// Session runs one render to a terminal state. It is single use: construct a
// new Session for the next render.
type Session struct {
	ex     Exchanger
	cfg    session.Config
	obs    Observer
	rng    *rand.Rand
	tracer trace.Tracer

	mu      sync.Mutex
	state   State
	started bool
	err     error
}

func NewSession(ex Exchanger, cfg session.Config, obs Observer, opts ...Option) *Session {
	if obs == nil {
		obs = ObserverFuncs{}
	}
	o := buildOptions(opts)
	return &Session{
		ex:     ex,
		cfg:    cfg,
		obs:    obs,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		tracer: o.tracerProvider.Tracer(tracerName),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the fault that failed the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Run submits req and drives the session until it completes, fails or the
// engine reports no operation. An invalid req is refused before any I/O and
// leaves the session unused.
func (s *Session) Run(ctx context.Context, req protocol.RenderRequest) (Result, error) {
	line, err := protocol.EncodeRender(req)
	if err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	if s.started {
		state := s.state
		s.mu.Unlock()
		if state.Active() {
			observability.RecordBusy()
			return Result{}, ErrSessionBusy
		}
		return Result{}, ErrSessionFinished
	}
	s.started = true
	s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "engine.Session.Run",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int64("render.iterations", int64(req.Iterations)),
			attribute.Int64("render.width", int64(req.Width)),
			attribute.Int64("render.height", int64(req.Height)),
			attribute.Int("render.supersampling", req.Supersampling),
			attribute.Float64("render.radius", req.Radius),
			attribute.String("render.color", protocol.EncodeColor(req.Color)),
		),
	)
	defer span.End()

	start := time.Now()
	res, err := s.run(ctx, line)
	res.Elapsed = time.Since(start)

	span.SetAttributes(
		attribute.Int("session.polls", res.Polls),
		attribute.Int("session.output_retries", res.OutputRetries),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		label := "failed"
		if errors.Is(err, ErrRenderRejected) {
			label = "rejected"
		}
		observability.RecordSession(label, res.Elapsed)
		log.Warn().Msgf("engine.Session failed state=%s polls=%d err=%v", s.State(), res.Polls, err)
		return res, err
	}
	span.SetAttributes(attribute.String("session.outcome", res.Outcome.String()))
	span.SetStatus(codes.Ok, "")
	observability.RecordSession(res.Outcome.String(), res.Elapsed)
	log.Info().Msgf("engine.Session finished outcome=%s output=%q polls=%d output_retries=%d elapsed=%s",
		res.Outcome, res.Output, res.Polls, res.OutputRetries, res.Elapsed)
	return res, nil
}

func (s *Session) run(ctx context.Context, renderLine string) (Result, error) {
	var res Result

	s.transition(StateSubmitting)
	reply, err := s.ex.SendAndReceive(ctx, renderLine)
	if err != nil {
		return res, s.fail(err)
	}
	if ok, msg := protocol.DecodeRenderReply(reply); !ok {
		return res, s.fail(&RejectedError{Message: msg})
	}

	s.transition(StatePolling)
	for {
		if err := ctx.Err(); err != nil {
			return res, s.fail(err)
		}
		reply, err := s.ex.SendAndReceive(ctx, protocol.CommandProgress)
		if err != nil {
			return res, s.fail(err)
		}
		res.Polls++
		progress, err := protocol.DecodeProgress(reply)
		if err != nil {
			return res, s.fail(fmt.Errorf("%w: %w", ErrProtocol, err))
		}
		if progress.Kind == protocol.ProgressNoOperation {
			s.obs.OnProgress(Progress{None: true})
			s.transition(StateIdle)
			res.Outcome = OutcomeNoOperation
			return res, nil
		}
		s.obs.OnProgress(Progress{Fraction: progress.Fraction()})
		if progress.Kind == protocol.ProgressDone {
			break
		}
		if err := session.Sleep(ctx, s.cfg.PollInterval); err != nil {
			return res, s.fail(err)
		}
	}

	s.transition(StateFetchingOutput)
	for {
		if err := ctx.Err(); err != nil {
			return res, s.fail(err)
		}
		reply, err := s.ex.SendAndReceive(ctx, protocol.CommandOutput)
		if err != nil {
			return res, s.fail(err)
		}
		out := protocol.DecodeOutput(reply)
		switch out.Kind {
		case protocol.OutputPending:
			res.OutputRetries++
			observability.RecordOutputRetry()
			delay := s.cfg.OutputRetry.Delay(res.OutputRetries, s.rng)
			if err := session.Sleep(ctx, delay); err != nil {
				return res, s.fail(err)
			}
		case protocol.OutputNone:
			s.transition(StateComplete)
			res.Outcome = OutcomeEmpty
			return res, nil
		default:
			s.transition(StateComplete)
			res.Outcome = OutcomeRendered
			res.Output = out.Ref
			return res, nil
		}
	}
}

func (s *Session) transition(next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()
	log.Debug().Msgf("engine.Session state from=%s to=%s", prev, next)
	s.obs.OnState(next)
}

func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.transition(StateFailed)
	return err
}
