// Package monitor implements the liveness monitor: it answers server pings
// with pongs and closes the connection when no message arrives within the
// configured window.
//
// Every handler runs under one mutex, so a deadline reset is atomic with
// respect to message handling. Timer callbacks carry a generation number and
// are discarded if a reset superseded them.
package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/BetaCatPro/ws-pingpong/internal/clock"
	"github.com/BetaCatPro/ws-pingpong/internal/errors"
	"github.com/BetaCatPro/ws-pingpong/internal/eventlog"
	"github.com/BetaCatPro/ws-pingpong/internal/protocol"
	"github.com/BetaCatPro/ws-pingpong/internal/telemetry"
	"github.com/BetaCatPro/ws-pingpong/pkg/types"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// FixedReadTimeout is the v1 liveness window.
const FixedReadTimeout = 10 * time.Second

// Event log lines.
const (
	LogOpen     = "open"
	LogClose    = "close"
	LogError    = "error"
	LogTimedOut = "timed out waiting for message"
	logPingFmt  = "received ping, sending pong %s"
)

// Transport is the connection the monitor owns.
type Transport interface {
	Send(types.Message) error
	Close() error
}

// Options configures a Monitor. Zero values get defaults.
type Options struct {
	Version types.ProtocolVersion
	// FallbackReadTimeout is used by v2 resets while the server has not sent
	// read_timeout. Zero leaves the deadline disarmed.
	FallbackReadTimeout time.Duration
	Scheduler           clock.Scheduler
	Sink                eventlog.Sink
	Logger              *zap.Logger
}

// Monitor is the liveness monitor for one connection.
type Monitor struct {
	mu        sync.Mutex
	version   types.ProtocolVersion
	protocol  protocol.MessageProtocol
	scheduler clock.Scheduler
	sink      eventlog.Sink
	logger    *zap.Logger
	fallback  time.Duration

	transport      Transport
	started        bool
	state          types.State
	readTimeout    time.Duration
	hasReadTimeout bool
	warnedUnset    bool

	timer    clock.Timer
	gen      uint64
	timedOut bool
	err      error
}

// New creates a monitor in the connecting state.
func New(opts Options) *Monitor {
	if opts.Version == "" {
		opts.Version = types.ProtocolV2
	}
	if opts.Scheduler == nil {
		opts.Scheduler = clock.Real{}
	}
	if opts.Sink == nil {
		opts.Sink = eventlog.NewBuffer()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	m := &Monitor{
		version:   opts.Version,
		protocol:  protocol.GetProtocol(opts.Version),
		scheduler: opts.Scheduler,
		sink:      opts.Sink,
		logger:    opts.Logger.With(zap.String("protocol", string(opts.Version))),
		fallback:  opts.FallbackReadTimeout,
		state:     types.StateConnecting,
	}
	if opts.Version == types.ProtocolV1 {
		m.setReadTimeoutLocked(FixedReadTimeout)
	}
	return m
}

// Start attaches the transport and arms the initial deadline. v1 arms the
// fixed window; v2 arms nothing until the server speaks, unless a fallback
// window is configured.
func (m *Monitor) Start(t Transport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return errors.ErrAlreadyStarted
	}
	m.started = true
	m.transport = t

	if _, ok := m.windowLocked(); ok {
		m.resetLocked()
	}
	return nil
}

// HandleOpen records the open event.
func (m *Monitor) HandleOpen() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == types.StateConnecting && !m.timedOut {
		m.state = types.StateOpen
	}
	m.eventLocked(LogOpen)
}

// HandleError records a transport error. The close event follows separately.
func (m *Monitor) HandleError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger.Warn("transport error", zap.Error(err))
	if m.state != types.StateClosed {
		m.state = types.StateErrored
	}
	if m.err == nil {
		m.err = errors.TransportError(err)
	}
	m.eventLocked(LogError)
}

// HandleClose records the close event and cancels any pending deadline.
func (m *Monitor) HandleClose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = types.StateClosed
	m.stopTimerLocked()
	m.eventLocked(LogClose)
}

// HandleMessage runs the protocol for one received message. A malformed v2
// payload returns a *errors.ParseError and leaves the deadline untouched.
func (m *Monitor) HandleMessage(msg types.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.terminalLocked() {
		return errors.ErrConnectionClosed
	}

	frame, err := m.protocol.Decode(msg.Content)
	if err != nil {
		telemetry.MessagesReceived.WithLabelValues("malformed").Inc()
		return err
	}
	telemetry.MessagesReceived.WithLabelValues(frame.Kind.String()).Inc()

	switch frame.Kind {
	case protocol.FrameReadTimeout:
		m.setReadTimeoutLocked(frame.ReadTimeout)
		m.logger.Info("read timeout configured", zap.Duration("read_timeout", frame.ReadTimeout))
	case protocol.FramePing:
		m.eventLocked(fmt.Sprintf(logPingFmt, frame.Label))
		m.pongLocked(msg, frame)
	default:
		m.logger.Debug("message without ping or read_timeout", zap.String("msg_id", msg.ID))
	}

	m.resetLocked()
	return nil
}

// HandleTimeout declares the connection dead: it logs once and closes the
// transport. Later calls are no-ops.
func (m *Monitor) HandleTimeout() {
	m.expire(0, false)
}

func (m *Monitor) fire(gen uint64) {
	m.expire(gen, true)
}

func (m *Monitor) expire(gen uint64, checkGen bool) {
	m.mu.Lock()
	if (checkGen && gen != m.gen) || m.terminalLocked() {
		m.mu.Unlock()
		return
	}
	m.timedOut = true
	m.stopTimerLocked()
	m.err = errors.ErrDeadlineExceeded
	m.eventLocked(LogTimedOut)
	telemetry.Timeouts.Inc()
	m.logger.Warn("liveness deadline exceeded", zap.Duration("read_timeout", m.readTimeout))
	t := m.transport
	m.mu.Unlock()

	if t != nil {
		if err := t.Close(); err != nil {
			m.logger.Debug("close after timeout", zap.Error(err))
		}
	}
}

// Stop cancels the deadline and closes the transport without recording a
// timeout.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	m.stopTimerLocked()
	t := m.transport
	m.mu.Unlock()

	if t == nil {
		return nil
	}
	return t.Close()
}

// State returns the lifecycle state.
func (m *Monitor) State() types.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ReadTimeout returns the configured window and whether one is set.
func (m *Monitor) ReadTimeout() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readTimeout, m.hasReadTimeout
}

// TimedOut reports whether the deadline fired.
func (m *Monitor) TimedOut() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timedOut
}

// Err returns why the connection ended: errors.ErrDeadlineExceeded, a
// transport error, or nil.
func (m *Monitor) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Monitor) pongLocked(in types.Message, frame protocol.Frame) {
	reply, err := m.protocol.EncodePong(frame.Token)
	if err != nil {
		m.logger.Error("encode pong", zap.Error(err))
		return
	}

	msgType := websocket.TextMessage
	if m.version == types.ProtocolV1 && in.Type != 0 {
		msgType = in.Type
	}

	if m.transport == nil {
		m.logger.Warn("pong dropped, transport not attached")
		return
	}
	if err := m.transport.Send(types.Message{Type: msgType, Content: reply, ID: in.ID}); err != nil {
		telemetry.SendErrors.Inc()
		m.logger.Warn("send pong", zap.Error(err), zap.String("msg_id", in.ID))
		return
	}
	telemetry.PongsSent.Inc()
}

func (m *Monitor) setReadTimeoutLocked(d time.Duration) {
	m.readTimeout = d
	m.hasReadTimeout = true
	telemetry.ReadTimeout.Set(d.Seconds())
}

// resetLocked cancels the pending timer and arms a new one at the current
// window. With no window known the deadline stays disarmed.
func (m *Monitor) resetLocked() {
	m.stopTimerLocked()
	if m.terminalLocked() {
		return
	}

	d, ok := m.windowLocked()
	if !ok {
		if !m.warnedUnset {
			m.warnedUnset = true
			m.logger.Warn("no read_timeout received yet; liveness deadline is disabled")
		}
		return
	}

	gen := m.gen
	m.timer = m.scheduler.AfterFunc(d, func() { m.fire(gen) })
}

func (m *Monitor) windowLocked() (time.Duration, bool) {
	if m.hasReadTimeout {
		return m.readTimeout, true
	}
	if m.fallback > 0 {
		return m.fallback, true
	}
	return 0, false
}

func (m *Monitor) stopTimerLocked() {
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Monitor) terminalLocked() bool {
	return m.timedOut || m.state == types.StateClosed || m.state == types.StateErrored
}

func (m *Monitor) eventLocked(msg string) {
	m.sink.Append(types.LogEntry{Time: m.scheduler.Now(), Message: msg})
	switch msg {
	case LogOpen, LogClose, LogError:
		telemetry.LifecycleEvents.WithLabelValues(msg).Inc()
	}
}
