package realtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// State is the connection lifecycle state of a Connector.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateError        State = "error"
)

// Conn is one established bidirectional channel. Receive blocks until a
// payload arrives; it returns io.EOF (or net.ErrClosed) when the peer closes.
type Conn interface {
	Send(ctx context.Context, payload []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer establishes connections. The Connector owns reconnection; dialers
// just dial.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// ConnectorOptions tunes the reconnection and heartbeat behaviour.
type ConnectorOptions struct {
	// BaseDelay is the first reconnection delay. Default 500ms.
	BaseDelay time.Duration

	// BackoffFactor multiplies the delay per attempt. Default 2.
	BackoffFactor float64

	// MaxDelay caps the computed delay. Default 30s.
	MaxDelay time.Duration

	// MaxAttempts bounds consecutive reconnection attempts. Default 10.
	MaxAttempts int

	// DisableReconnect turns automatic reconnection off entirely.
	DisableReconnect bool

	// Heartbeat is the ping interval while connected. Zero disables it.
	Heartbeat time.Duration

	// QueueLimit bounds the offline send queue; once full the oldest entries
	// are dropped. Default 100.
	QueueLimit int

	Logger *slog.Logger
}

func (o ConnectorOptions) withDefaults() ConnectorOptions {
	if o.BaseDelay <= 0 {
		o.BaseDelay = 500 * time.Millisecond
	}
	if o.BackoffFactor <= 1 {
		o.BackoffFactor = 2
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 10
	}
	if o.QueueLimit <= 0 {
		o.QueueLimit = 100
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Connector manages a live channel through its whole lifecycle: dialing,
// heartbeats, exponential-backoff reconnection, and an offline send queue.
// All timers are owned resources, cancelled on Disconnect, so no callback can
// outlive the connector's interest in it.
type Connector struct {
	dialer Dialer
	opts   ConnectorOptions
	logger *slog.Logger

	mu             sync.Mutex
	state          State
	conn           Conn
	queue          [][]byte
	attempts       int
	manualStop     bool
	backoff        *backoff.ExponentialBackOff
	reconnectTimer *time.Timer
	heartbeatStop  chan struct{}
	readCancel     context.CancelFunc

	onState   []func(State)
	onMessage []func(Message)
}

// NewConnector builds a connector in the disconnected state.
func NewConnector(dialer Dialer, opts ConnectorOptions) *Connector {
	opts = opts.withDefaults()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = opts.BaseDelay
	bo.Multiplier = opts.BackoffFactor
	bo.MaxInterval = opts.MaxDelay
	bo.MaxElapsedTime = 0
	bo.RandomizationFactor = 0
	bo.Reset()

	return &Connector{
		dialer:  dialer,
		opts:    opts,
		logger:  opts.Logger.With(slog.String("component", "realtime")),
		state:   StateDisconnected,
		backoff: bo,
	}
}

// State returns the current lifecycle state.
func (c *Connector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnStateChange registers a listener invoked on every state transition.
// Register before Connect.
func (c *Connector) OnStateChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = append(c.onState, fn)
}

// OnMessage registers a listener for decoded inbound messages. Register
// before Connect.
func (c *Connector) OnMessage(fn func(Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = append(c.onMessage, fn)
}

// Connect starts the connection sequence. Already connected or connecting
// connectors are left alone. A dial failure puts the connector on the
// automatic reconnection path (unless disabled) and is returned to the
// caller.
func (c *Connector) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.manualStop = false
	c.mu.Unlock()

	c.setState(StateConnecting)
	return c.dial(ctx)
}

// Disconnect tears the connection down, clears every owned timer, and
// suppresses automatic reconnection until the next Connect.
func (c *Connector) Disconnect() {
	c.mu.Lock()
	c.manualStop = true
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.stopHeartbeatLocked()
	if c.readCancel != nil {
		c.readCancel()
		c.readCancel = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	c.setState(StateDisconnected)
}

// Reconnect forces a fresh connection sequence with the attempt counter and
// backoff schedule reset to zero.
func (c *Connector) Reconnect(ctx context.Context) error {
	c.Disconnect()
	c.mu.Lock()
	c.attempts = 0
	c.backoff.Reset()
	c.mu.Unlock()
	return c.Connect(ctx)
}

// Send transmits a message immediately when connected; otherwise it enqueues
// the payload for FIFO replay on reconnection. The queue is bounded: once
// QueueLimit is exceeded the oldest entries are dropped.
func (c *Connector) Send(ctx context.Context, msg Message) error {
	payload, err := msg.Encode()
	if err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected && conn != nil
	if !connected {
		c.queue = append(c.queue, payload)
		if over := len(c.queue) - c.opts.QueueLimit; over > 0 {
			c.queue = c.queue[over:]
		}
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	return conn.Send(ctx, payload)
}

// QueuedMessages reports the number of payloads waiting for reconnection.
func (c *Connector) QueuedMessages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Attempts reports the consecutive reconnection attempts made so far.
func (c *Connector) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

func (c *Connector) dial(ctx context.Context) error {
	conn, err := c.dialer.Dial(ctx)
	if err != nil {
		c.logger.Warn("dial failed", slog.String("error", err.Error()))
		c.setState(StateError)
		c.scheduleReconnect(ctx)
		return err
	}

	readCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	if c.manualStop {
		c.mu.Unlock()
		cancel()
		_ = conn.Close()
		return nil
	}
	c.conn = conn
	c.readCancel = cancel
	c.attempts = 0
	c.backoff.Reset()
	queued := c.queue
	c.queue = nil
	c.mu.Unlock()

	c.setState(StateConnected)

	// Flush the offline queue in original order before anything else goes
	// out on the new connection.
	for _, payload := range queued {
		if err := conn.Send(ctx, payload); err != nil {
			c.logger.Warn("queued send failed", slog.String("error", err.Error()))
			break
		}
	}

	c.startHeartbeat(conn)
	go c.readLoop(readCtx, conn)
	return nil
}

func (c *Connector) readLoop(ctx context.Context, conn Conn) {
	for {
		payload, err := conn.Receive(ctx)
		if err != nil {
			c.handleReadError(err)
			return
		}
		msg, err := DecodeMessage(payload)
		if err != nil {
			c.logger.Warn("dropping undecodable message", slog.String("error", err.Error()))
			continue
		}
		if msg.Type == MessagePing {
			_ = conn.Send(ctx, mustEncode(Message{Type: MessagePong, Timestamp: time.Now().UnixMilli()}))
			continue
		}
		if msg.Type == MessagePong {
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Connector) handleReadError(err error) {
	c.mu.Lock()
	manual := c.manualStop
	c.stopHeartbeatLocked()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	if manual || errors.Is(err, context.Canceled) {
		c.setState(StateDisconnected)
		return
	}

	if !isClose(err) {
		c.logger.Warn("channel error", slog.String("error", err.Error()))
		c.setState(StateError)
	}
	c.setState(StateDisconnected)
	c.scheduleReconnect(context.Background())
}

// scheduleReconnect arms the owned reconnection timer, honouring the attempt
// budget. The attempt counter increments per reconnection attempt only; the
// initial connect does not count.
func (c *Connector) scheduleReconnect(ctx context.Context) {
	c.mu.Lock()
	if c.manualStop || c.opts.DisableReconnect {
		c.mu.Unlock()
		return
	}
	if c.attempts >= c.opts.MaxAttempts {
		c.mu.Unlock()
		c.logger.Warn("reconnection attempts exhausted", slog.Int("attempts", c.opts.MaxAttempts))
		c.setState(StateDisconnected)
		return
	}
	c.attempts++
	delay := c.backoff.NextBackOff()
	c.mu.Unlock()

	c.setState(StateReconnecting)

	c.mu.Lock()
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		stopped := c.manualStop
		c.mu.Unlock()
		if stopped {
			return
		}
		c.setState(StateConnecting)
		_ = c.dial(ctx)
	})
	c.mu.Unlock()
}

func (c *Connector) startHeartbeat(conn Conn) {
	if c.opts.Heartbeat <= 0 {
		return
	}
	stop := make(chan struct{})
	c.mu.Lock()
	c.stopHeartbeatLocked()
	c.heartbeatStop = stop
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(c.opts.Heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := conn.Send(context.Background(), mustEncode(NewPing())); err != nil {
					// The read loop notices the dead connection; the
					// heartbeat just stops pinging.
					return
				}
			}
		}
	}()
}

func (c *Connector) stopHeartbeatLocked() {
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
}

func (c *Connector) setState(next State) {
	c.mu.Lock()
	if c.state == next {
		c.mu.Unlock()
		return
	}
	c.state = next
	listeners := make([]func(State), len(c.onState))
	copy(listeners, c.onState)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
}

func (c *Connector) dispatch(msg Message) {
	c.mu.Lock()
	listeners := make([]func(Message), len(c.onMessage))
	copy(listeners, c.onMessage)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(msg)
	}
}

func isClose(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe)
}

func mustEncode(msg Message) []byte {
	payload, err := msg.Encode()
	if err != nil {
		panic(err)
	}
	return payload
}
