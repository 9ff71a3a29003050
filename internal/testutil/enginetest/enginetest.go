// Package enginetest runs a scripted render engine on a loopback listener.
//
// Each accepted connection receives the greeting, then every request line is
// recorded and answered from the per-command script. A command with an
// exhausted script falls back to its sticky reply; without one the engine
// drops the connection, which clients observe as a transport failure.
package enginetest

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
)

type Engine struct {
	ln       net.Listener
	greeting string

	mu       sync.Mutex
	scripts  map[string][]string
	sticky   map[string]string
	gates    map[string]*gate
	requests []string
	conns    map[net.Conn]struct{}
	closed   bool

	wg sync.WaitGroup
}

type Option func(*Engine)

// WithGreeting replaces the handshake line sent on accept.
func WithGreeting(greeting string) Option {
	return func(e *Engine) {
		e.greeting = greeting
	}
}

// Start listens on 127.0.0.1:0 and closes the engine on test cleanup.
func Start(t testing.TB, opts ...Option) *Engine {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("enginetest listen: %v", err)
	}
	e := &Engine{
		ln:       ln,
		greeting: "ready",
		scripts:  map[string][]string{},
		sticky:   map[string]string{},
		gates:    map[string]*gate{},
		conns:    map[net.Conn]struct{}{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.wg.Add(1)
	go e.acceptLoop()
	t.Cleanup(e.Close)
	return e
}

func (e *Engine) Addr() string {
	return e.ln.Addr().String()
}

// Script queues replies for command, consumed in order.
func (e *Engine) Script(command string, replies ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scripts[command] = append(e.scripts[command], replies...)
}

// Sticky sets the reply used once the script for command is exhausted.
func (e *Engine) Sticky(command, reply string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sticky[command] = reply
}

// Gate holds every reply to command until the returned release is called.
func (e *Engine) Gate(command string) (release func()) {
	g := &gate{ch: make(chan struct{})}
	e.mu.Lock()
	e.gates[command] = g
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		if e.gates[command] == g {
			delete(e.gates, command)
		}
		e.mu.Unlock()
		g.open()
	}
}

type gate struct {
	ch   chan struct{}
	once sync.Once
}

func (g *gate) open() {
	g.once.Do(func() { close(g.ch) })
}

// Requests returns every request line received so far, in arrival order.
func (e *Engine) Requests() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.requests))
	copy(out, e.requests)
	return out
}

// Count returns how many requests started with command.
func (e *Engine) Count(command string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, line := range e.requests {
		if commandOf(line) == command {
			n++
		}
	}
	return n
}

func (e *Engine) Close() {
	_ = e.ln.Close()
	e.mu.Lock()
	e.closed = true
	for conn := range e.conns {
		_ = conn.Close()
	}
	for command, g := range e.gates {
		delete(e.gates, command)
		g.open()
	}
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *Engine) acceptLoop() {
	defer e.wg.Done()
	for {
		conn, err := e.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			_ = conn.Close()
			return
		}
		e.conns[conn] = struct{}{}
		e.wg.Add(1)
		e.mu.Unlock()
		go e.serve(conn)
	}
}

func (e *Engine) serve(conn net.Conn) {
	defer e.wg.Done()
	defer func() {
		e.mu.Lock()
		delete(e.conns, conn)
		e.mu.Unlock()
		_ = conn.Close()
	}()

	if e.greeting != "" {
		if _, err := conn.Write([]byte(e.greeting + "\n")); err != nil {
			return
		}
	}
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		reply, g, ok := e.next(line)
		if g != nil {
			<-g.ch
		}
		if !ok {
			return
		}
		if _, err := conn.Write([]byte(reply + "\n")); err != nil {
			return
		}
	}
}

func (e *Engine) next(line string) (string, *gate, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, line)
	command := commandOf(line)
	g := e.gates[command]
	if queue := e.scripts[command]; len(queue) > 0 {
		e.scripts[command] = queue[1:]
		return queue[0], g, true
	}
	reply, ok := e.sticky[command]
	return reply, g, ok
}

func commandOf(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
