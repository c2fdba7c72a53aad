package logging

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// LogstashWriter mirrors log lines to a Logstash TCP input without ever
// blocking the caller on network trouble. Lines written while the endpoint is
// unreachable are dropped and counted.
type LogstashWriter struct {
	addr        string
	dialTimeout time.Duration
	sendTimeout time.Duration
	backoff     time.Duration

	mu      sync.Mutex
	conn    net.Conn
	retryAt time.Time
	dropped uint64
	closed  bool
}

func NewLogstashWriter(addr string) (*LogstashWriter, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("logstash: empty address")
	}
	return &LogstashWriter{
		addr:        addr,
		dialTimeout: 2 * time.Second,
		sendTimeout: time.Second,
		backoff:     5 * time.Second,
	}, nil
}

// Write implements io.Writer. It reports success even when the line is
// dropped so the standard logger never sees an error.
func (w *LogstashWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	line := make([]byte, len(p))
	copy(line, p)
	if line[len(line)-1] != '\n' {
		line = append(line, '\n')
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, io.ErrClosedPipe
	}

	if !w.connectLocked() {
		w.dropped++
		return len(p), nil
	}

	if w.sendTimeout > 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(w.sendTimeout))
	}
	if _, err := w.conn.Write(line); err != nil {
		_ = w.conn.Close()
		w.conn = nil
		w.retryAt = time.Now().Add(w.backoff)
		w.dropped++
	}

	return len(p), nil
}

// Dropped reports how many lines were lost to connectivity problems.
func (w *LogstashWriter) Dropped() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

func (w *LogstashWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}

func (w *LogstashWriter) connectLocked() bool {
	if w.conn != nil {
		return true
	}
	if time.Now().Before(w.retryAt) {
		return false
	}
	conn, err := net.DialTimeout("tcp", w.addr, w.dialTimeout)
	if err != nil {
		w.retryAt = time.Now().Add(w.backoff)
		return false
	}
	w.conn = conn
	w.retryAt = time.Time{}
	return true
}
