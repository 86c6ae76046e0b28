package websocket

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/bkfirstperson/extension/pkg/streaming"
)

const (
	poseLaneSize    = 1024
	controlLaneSize = 64
	ackChSize       = 16

	writeWait   = 5 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = pongWait * 9 / 10
	minBackoff  = 500 * time.Millisecond
	maxBackoff  = 30 * time.Second
	ackTimeout  = 5 * time.Second
	loudRetries = 3
)

var errClosed = errors.New("telemetry stream closed")

// connection owns the socket to the dashboard. Poses travel on a lossy lane
// that keeps the newest samples; session and transition messages travel on
// a control lane that is never dropped silently. A single writer serves
// both and writes every pose queued ahead of a control message first.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	stop   chan struct{} // closed when conn is replaced
	closed bool
	done   chan struct{}

	poses   chan []byte
	control chan []byte
	acks    chan streaming.AckMessage

	target *url.URL
	header http.Header

	// replayed first after a reconnect so the dashboard can attribute poses
	startMsg []byte

	dropped atomic.Uint64
	log     *slog.Logger
}

func newConnection(log *slog.Logger) *connection {
	if log == nil {
		log = slog.Default()
	}
	return &connection{
		done:    make(chan struct{}),
		poses:   make(chan []byte, poseLaneSize),
		control: make(chan []byte, controlLaneSize),
		acks:    make(chan streaming.AckMessage, ackChSize),
		log:     log,
	}
}

// open validates the target, dials once and starts the loops. The secret,
// when set, is sent as a bearer token.
func (c *connection) open(rawURL, secret string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid websocket URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid websocket URL: scheme %q", u.Scheme)
	}
	c.target = u
	c.header = http.Header{}
	if secret != "" {
		c.header.Set("Authorization", "Bearer "+secret)
	}

	conn, err := c.dial()
	if err != nil {
		return err
	}
	c.attach(conn)
	return nil
}

func (c *connection) dial() (*ws.Conn, error) {
	dialer := ws.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: writeWait,
	}
	conn, _, err := dialer.Dial(c.target.String(), c.header)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", c.target.Redacted(), err)
	}
	return conn, nil
}

// attach installs conn and starts its reader and writer.
func (c *connection) attach(conn *ws.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	stop := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.stop = stop
	c.mu.Unlock()

	go c.writeLoop(conn, stop)
	go c.readLoop(conn)
}

func (c *connection) writeLoop(conn *ws.Conn, stop <-chan struct{}) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		var err error
		var unsent []byte
		select {
		case <-c.done:
			return
		case <-stop:
			return
		case <-ping.C:
			err = conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait))
		case msg := <-c.control:
			if err = c.flushPoses(conn); err == nil {
				err = write(conn, msg)
			}
			unsent = msg
		case msg := <-c.poses:
			err = write(conn, msg)
		}
		if err != nil {
			c.log.Warn("Telemetry stream write failed", "error", err)
			go c.reconnect(conn, unsent)
			return
		}
	}
}

// flushPoses writes the poses already queued, keeping them ahead of the
// control message that follows.
func (c *connection) flushPoses(conn *ws.Conn) error {
	for n := len(c.poses); n > 0; n-- {
		if err := write(conn, <-c.poses); err != nil {
			return err
		}
	}
	return nil
}

func write(conn *ws.Conn, msg []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, msg)
}

// readLoop forwards acks and keeps the read deadline moving. Any other
// message from the dashboard is ignored.
func (c *connection) readLoop(conn *ws.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.log.Warn("Telemetry stream read failed", "error", err)
				go c.reconnect(conn, nil)
			}
			return
		}

		var ack streaming.AckMessage
		if json.Unmarshal(msg, &ack) != nil || ack.Type != streaming.TypeAck {
			continue
		}
		select {
		case c.acks <- ack:
		default:
		}
	}
}

// reconnect replaces a broken socket. The reader and writer both report
// failures, so only the first call for a given socket does the work. Retries
// run with capped exponential backoff until the connection is closed. unsent
// is a control message the old writer could not deliver.
func (c *connection) reconnect(broken *ws.Conn, unsent []byte) {
	c.mu.Lock()
	if c.closed || c.conn != broken {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	close(c.stop)
	c.mu.Unlock()
	_ = broken.Close()

	backoff := minBackoff
	for attempt := 1; ; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		conn, err := c.dial()
		if err != nil {
			if attempt <= loudRetries {
				c.log.Warn("Telemetry stream reconnect failed", "attempt", attempt, "error", err)
			} else {
				c.log.Debug("Telemetry stream reconnect failed", "attempt", attempt, "error", err)
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		start := c.startMsg
		c.mu.Unlock()
		if bytes.Equal(unsent, start) {
			unsent = nil
		}

		if err := replay(conn, start, unsent); err != nil {
			_ = conn.Close()
			continue
		}
		unsent = nil
		c.log.Info("Telemetry stream reconnected", "attempt", attempt)
		c.attach(conn)
		return
	}
}

func replay(conn *ws.Conn, msgs ...[]byte) error {
	for _, m := range msgs {
		if m == nil {
			continue
		}
		if err := write(conn, m); err != nil {
			return err
		}
	}
	return nil
}

// sendPose queues a pose without blocking. When the lane is full the oldest
// queued pose is discarded.
func (c *connection) sendPose(msg []byte) {
	for {
		select {
		case c.poses <- msg:
			return
		default:
		}
		select {
		case <-c.poses:
			c.dropped.Add(1)
		default:
		}
	}
}

// sendControl queues a message that must not be lost, waiting up to
// writeWait for room.
func (c *connection) sendControl(msg []byte) error {
	timer := time.NewTimer(writeWait)
	defer timer.Stop()
	select {
	case c.control <- msg:
		return nil
	case <-c.done:
		return errClosed
	case <-timer.C:
		c.dropped.Add(1)
		return errors.New("telemetry control lane full")
	}
}

// request sends a control message and waits for the dashboard to ack it.
func (c *connection) request(msg []byte, kind string, timeout time.Duration) error {
	if err := c.sendControl(msg); err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ack := <-c.acks:
			if ack.For == kind {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", kind)
		case <-c.done:
			return errClosed
		}
	}
}

func (c *connection) setStart(msg []byte) {
	c.mu.Lock()
	c.startMsg = msg
	c.mu.Unlock()
}

// close says goodbye to the dashboard and stops both loops.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, "session over"),
		time.Now().Add(time.Second))
	return conn.Close()
}
