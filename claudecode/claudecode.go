// Package claudecode implements tether.Transport over the Claude Code CLI
// running in bidirectional stream-json mode.
package claudecode

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/fwojciec/tether"
	"github.com/google/uuid"
)

const (
	// maxLineSize bounds one stdout line. Tool results carrying whole files
	// produce long lines.
	maxLineSize = 10 * 1024 * 1024

	stderrTailSize = 8 * 1024

	// shutdownGrace is how long Disconnect waits for the CLI to exit after
	// its input is closed before killing the process group.
	shutdownGrace = 5 * time.Second
)

var _ tether.Transport = (*Transport)(nil)

// Transport runs one CLI process per connection. Outbound turns are written
// to the process's stdin as JSON lines; a reader goroutine parses stdout and
// feeds the streams returned by Receive.
type Transport struct {
	logger *slog.Logger

	mu   sync.Mutex
	conn *connection
}

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the logger for process lifecycle and skipped output.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New creates a Transport.
func New(opts ...Option) *Transport {
	t := &Transport{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// connection is the state of one running CLI process.
type connection struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	cancel context.CancelFunc
	stderr *stderrTail

	writeMu sync.Mutex

	messages chan tether.Message
	stop     chan struct{} // closed by Disconnect
	done     chan struct{} // closed when the process has exited
	exitErr  error         // valid after done is closed
}

// Connect starts the CLI. A non-empty prompt is sent as the first user turn.
func (t *Transport) Connect(ctx context.Context, opts tether.Options, prompt string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return tether.ErrAlreadyConnected
	}

	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, cliPath(opts), BuildArgs(opts)...)
	cmd.Dir = opts.Cwd
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = time.Second

	c := &connection{
		cmd:      cmd,
		cancel:   cancel,
		stderr:   newStderrTail(stderrTailSize),
		messages: make(chan tether.Message),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	cmd.Stderr = c.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start %s: %w", cmd.Path, err)
	}
	c.stdin = stdin
	t.conn = c
	t.logger.Debug("agent started", "pid", cmd.Process.Pid, "resume", opts.Resume)

	go t.read(c, stdout)

	if prompt != "" {
		if err := c.send(ctx, userTurn(prompt, tether.DefaultSessionKey)); err != nil {
			t.conn = nil
			if serr := t.shutdown(c); serr != nil {
				t.logger.Warn("agent shutdown after failed connect", "error", serr)
			}
			return fmt.Errorf("send initial prompt: %w", err)
		}
	}
	return nil
}

// Query writes a user turn for the conversation named by sessionKey.
func (t *Transport) Query(ctx context.Context, prompt, sessionKey string) error {
	c, err := t.connection()
	if err != nil {
		return err
	}
	return c.send(ctx, userTurn(prompt, sessionKey))
}

// Interrupt sends an interrupt control request. The CLI answers with a
// control response, which is not a conversation message and is not
// surfaced through Receive.
func (t *Transport) Interrupt(ctx context.Context) error {
	c, err := t.connection()
	if err != nil {
		return err
	}
	return c.send(ctx, controlRequest{
		Type:      "control_request",
		RequestID: "req_" + uuid.NewString(),
		Request:   controlBody{Subtype: "interrupt"},
	})
}

// Receive returns a stream over the connection's messages. Streams from
// separate calls share one underlying sequence: each message is delivered
// to exactly one of them.
func (t *Transport) Receive(ctx context.Context) (tether.MessageStream, error) {
	c, err := t.connection()
	if err != nil {
		return nil, err
	}
	return &stream{ctx: ctx, conn: c}, nil
}

// Disconnect closes the CLI's input and waits for it to exit, killing its
// process group if it does not exit in time. Disconnect on a transport that
// is not connected is a no-op.
func (t *Transport) Disconnect() error {
	t.mu.Lock()
	c := t.conn
	t.conn = nil
	t.mu.Unlock()
	if c == nil {
		return nil
	}
	return t.shutdown(c)
}

// shutdown stops c's process and waits for its reader to finish. c must
// already be detached from t.
func (t *Transport) shutdown(c *connection) error {
	close(c.stop)
	c.writeMu.Lock()
	closeErr := c.stdin.Close()
	c.writeMu.Unlock()

	select {
	case <-c.done:
	case <-time.After(shutdownGrace):
		t.logger.Warn("agent did not exit, killing", "pid", c.cmd.Process.Pid)
		c.cancel()
		<-c.done
	}
	c.cancel()
	if c.exitErr != nil {
		t.logger.Debug("agent exited", "error", c.exitErr)
	}
	if closeErr != nil && !errors.Is(closeErr, io.ErrClosedPipe) {
		return fmt.Errorf("close agent input: %w", closeErr)
	}
	return nil
}

func (t *Transport) connection() (*connection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil, tether.ErrNotConnected
	}
	return t.conn, nil
}

// read parses stdout until the process closes it, then reaps the process.
func (t *Transport) read(c *connection, stdout io.Reader) {
	defer close(c.done)
	defer close(c.messages)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		msg, ok, err := ParseMessage(data)
		if err != nil {
			t.logger.Warn("unparsable agent output", "error", err)
			continue
		}
		if !ok {
			continue
		}
		select {
		case c.messages <- msg:
		case <-c.stop:
			// Nobody will read any more; drain stdout so the process can exit.
			_, _ = io.Copy(io.Discard, stdout)
			c.exitErr = c.wait()
			return
		}
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		_, _ = io.Copy(io.Discard, stdout)
	}
	waitErr := c.wait()
	switch {
	case scanErr != nil:
		c.exitErr = fmt.Errorf("read agent output: %w", scanErr)
	case waitErr != nil:
		c.exitErr = waitErr
	}
}

func (c *connection) wait() error {
	if err := c.cmd.Wait(); err != nil {
		if tail := c.stderr.String(); tail != "" {
			return fmt.Errorf("agent exited: %w: %s", err, tail)
		}
		return fmt.Errorf("agent exited: %w", err)
	}
	return nil
}

// send writes v as one JSON line on the CLI's stdin.
func (c *connection) send(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	data = append(data, '\n')
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	select {
	case <-c.stop:
		return tether.ErrNotConnected
	default:
	}
	if _, err := c.stdin.Write(data); err != nil {
		return fmt.Errorf("write to agent: %w", err)
	}
	return nil
}

// stream is one consumer of a connection's messages.
type stream struct {
	ctx    context.Context
	conn   *connection
	closed bool
}

func (s *stream) Next() (tether.Message, error) {
	if s.closed {
		return nil, tether.ErrStreamClosed
	}
	select {
	case msg, ok := <-s.conn.messages:
		if !ok {
			<-s.conn.done
			if s.conn.exitErr != nil {
				return nil, s.conn.exitErr
			}
			return nil, io.EOF
		}
		return msg, nil
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	}
}

func (s *stream) Close() error {
	s.closed = true
	return nil
}

type userTurnLine struct {
	Type            string      `json:"type"`
	Message         userPayload `json:"message"`
	ParentToolUseID *string     `json:"parent_tool_use_id"`
	SessionID       string      `json:"session_id"`
}

type userPayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func userTurn(prompt, sessionKey string) userTurnLine {
	return userTurnLine{
		Type:      "user",
		Message:   userPayload{Role: "user", Content: prompt},
		SessionID: sessionKey,
	}
}

type controlRequest struct {
	Type      string      `json:"type"`
	RequestID string      `json:"request_id"`
	Request   controlBody `json:"request"`
}

type controlBody struct {
	Subtype string `json:"subtype"`
}
