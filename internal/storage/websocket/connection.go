package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/twinlayout/sceneedit/pkg/streaming"
)

const (
	outboxSize = 256
	maxRedials = 10
	maxBackoff = 30 * time.Second
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	ackTimeout = 10 * time.Second
)

var (
	ErrInvalidURL   = errors.New("websocket: invalid url")
	ErrOutboxFull   = errors.New("websocket: outbox full")
	ErrDisconnected = errors.New("websocket: disconnected")
	ErrAckTimeout   = errors.New("websocket: ack timeout")
)

type reply struct {
	ack streaming.AckMessage
	err error
}

// link is a self-healing connection to the scene service. One supervisor
// goroutine owns the socket: it writes the outbox, pings, and redials with
// backoff when the socket breaks, replaying the hello message. Requests in
// flight when the socket breaks fail with ErrDisconnected.
type link struct {
	url    string
	header http.Header
	dialer *ws.Dialer
	log    *slog.Logger

	outbox  chan []byte
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	mu      sync.Mutex
	started bool
	pending map[string]chan reply
	hello   []byte
}

func newLink(rawURL, secret string, log *slog.Logger) (*link, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	header := http.Header{}
	if secret != "" {
		header.Set("Authorization", "Bearer "+secret)
	}
	return &link{
		url:     u.String(),
		header:  header,
		dialer:  &ws.Dialer{Proxy: http.ProxyFromEnvironment, HandshakeTimeout: writeWait},
		log:     log,
		outbox:  make(chan []byte, outboxSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		pending: make(map[string]chan reply),
	}, nil
}

// open dials once; failure is returned to the caller instead of retried.
func (l *link) open() error {
	conn, err := l.dial()
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.started = true
	l.mu.Unlock()
	go l.supervise(conn)
	return nil
}

func (l *link) dial() (*ws.Conn, error) {
	conn, resp, err := l.dialer.Dial(l.url, l.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial %s: %s: %w", l.url, resp.Status, err)
		}
		return nil, fmt.Errorf("websocket dial %s: %w", l.url, err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	return conn, nil
}

func (l *link) supervise(conn *ws.Conn) {
	defer close(l.stopped)
	for conn != nil {
		err := l.pump(conn)
		_ = conn.Close()
		l.failPending()
		if err == nil {
			return
		}
		l.log.Warn("WebSocket connection lost", "url", l.url, "error", err)
		conn = l.redial()
	}
}

// pump returns nil once close was requested, otherwise the error that
// broke the socket.
func (l *link) pump(conn *ws.Conn) error {
	readErr := make(chan error, 1)
	go func() { readErr <- l.read(conn) }()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-l.done:
			_ = conn.WriteControl(ws.CloseMessage,
				ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return nil
		case err := <-readErr:
			return err
		case <-ping.C:
			if err := conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		case data := <-l.outbox:
			if err := write(conn, data); err != nil {
				return err
			}
		}
	}
}

func write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

func (l *link) read(conn *ws.Conn) error {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ack streaming.AckMessage
		if err := json.Unmarshal(msg, &ack); err != nil || ack.Type != streaming.TypeAck {
			l.log.Debug("Ignoring non-ack message", "raw", string(msg))
			continue
		}
		l.mu.Lock()
		ch, ok := l.pending[ack.ID]
		delete(l.pending, ack.ID)
		l.mu.Unlock()
		if ok {
			ch <- reply{ack: ack}
		}
	}
}

func (l *link) failPending() {
	l.mu.Lock()
	pending := l.pending
	l.pending = make(map[string]chan reply)
	l.mu.Unlock()
	for _, ch := range pending {
		ch <- reply{err: ErrDisconnected}
	}
}

func (l *link) redial() *ws.Conn {
	backoff := time.Second
	for attempt := 1; attempt <= maxRedials; attempt++ {
		select {
		case <-l.done:
			return nil
		case <-time.After(backoff):
		}

		conn, err := l.dial()
		if err == nil {
			l.mu.Lock()
			hello := l.hello
			l.mu.Unlock()
			if hello == nil {
				return conn
			}
			if err = write(conn, hello); err == nil {
				l.log.Info("WebSocket reconnected", "url", l.url, "attempt", attempt)
				return conn
			}
			_ = conn.Close()
		}
		l.log.Warn("WebSocket redial failed", "attempt", attempt, "backoff", backoff, "error", err)
		backoff = min(backoff*2, maxBackoff)
	}
	l.log.Error("WebSocket gave up reconnecting", "url", l.url, "attempts", maxRedials)
	return nil
}

// setHello stores the message replayed after every reconnect.
func (l *link) setHello(data []byte) {
	l.mu.Lock()
	l.hello = data
	l.mu.Unlock()
}

// send queues data without waiting for the socket.
func (l *link) send(data []byte) error {
	select {
	case <-l.stopped:
		return ErrDisconnected
	default:
	}
	select {
	case l.outbox <- data:
		return nil
	default:
		return ErrOutboxFull
	}
}

// request sends data and waits for the ack carrying id.
func (l *link) request(id string, data []byte, timeout time.Duration) (streaming.AckMessage, error) {
	ch := make(chan reply, 1)
	l.mu.Lock()
	l.pending[id] = ch
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		delete(l.pending, id)
		l.mu.Unlock()
	}()

	if err := l.send(data); err != nil {
		return streaming.AckMessage{}, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		return r.ack, r.err
	case <-timer.C:
		return streaming.AckMessage{}, fmt.Errorf("%w after %s", ErrAckTimeout, timeout)
	case <-l.done:
		return streaming.AckMessage{}, ErrDisconnected
	}
}

// close sends a close frame and waits for the supervisor to stop.
func (l *link) close() {
	l.once.Do(func() { close(l.done) })
	l.mu.Lock()
	started := l.started
	l.mu.Unlock()
	if started {
		<-l.stopped
	}
}
