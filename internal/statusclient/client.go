package statusclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/bdmon/internal/model"
)

// Command is the four-letter status command sent to the coordination service
const Command = "stat"

// DefaultTimeout bounds the dial and each read
const DefaultTimeout = time.Second

// ErrQueryInFlight is returned when a client is already running a query
var ErrQueryInFlight = errors.New("status query already in flight")

// State is the connection state of a Client
type State int32

const (
	StateDisconnected State = iota
	StateConnected
	StateAwaitResponse
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateAwaitResponse:
		return "await_response"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Client sends the status command over TCP and returns the raw reply.
// One query may run at a time per client.
type Client struct {
	logger  *zap.Logger
	timeout time.Duration
	mu      sync.Mutex
	state   atomic.Int32
}

// New creates a status client
func New(timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		logger:  logger.Named("status-client"),
		timeout: timeout,
	}
}

// State returns the current connection state
func (c *Client) State() State {
	return State(c.state.Load())
}

// Query connects to host:port, sends the status command and reads until the
// peer closes the connection.
func (c *Client) Query(ctx context.Context, host string, port int) (string, error) {
	if !c.mu.TryLock() {
		return "", ErrQueryInFlight
	}
	defer c.mu.Unlock()

	endpoint := net.JoinHostPort(host, strconv.Itoa(port))
	c.state.Store(int32(StateDisconnected))

	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", endpoint)
	if err != nil {
		c.state.Store(int32(StateClosed))
		return "", model.NewError(model.ErrConnection, endpoint, err)
	}
	c.state.Store(int32(StateConnected))
	defer c.close(conn)

	if err := conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return "", model.NewError(model.ErrConnection, endpoint, err)
	}
	n, err := conn.Write([]byte(Command))
	if n != len(Command) {
		return "", model.NewError(model.ErrShortWrite, endpoint, fmt.Errorf("sent %d of %d bytes: %w", n, len(Command), err))
	}
	if err != nil {
		return "", model.NewError(model.ErrConnection, endpoint, err)
	}
	c.state.Store(int32(StateAwaitResponse))

	var reply strings.Builder
	buf := make([]byte, 4096)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return "", model.NewError(model.ErrConnection, endpoint, err)
		}
		n, err := conn.Read(buf)
		reply.Write(buf[:n])
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", model.NewError(model.ErrConnection, endpoint, fmt.Errorf("failed to read reply: %w", err))
		}
	}

	if reply.Len() == 0 {
		return "", model.NewError(model.ErrNoResponse, endpoint, nil)
	}

	c.logger.Debug("Received status reply",
		zap.String("endpoint", endpoint),
		zap.Int("bytes", reply.Len()))
	return reply.String(), nil
}

// close shuts down both directions and releases the socket
func (c *Client) close(conn net.Conn) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.CloseRead()
		_ = tcp.CloseWrite()
	}
	if err := conn.Close(); err != nil {
		c.logger.Debug("Failed to close status connection", zap.Error(err))
	}
	c.state.Store(int32(StateClosed))
}

// SplitEndpoint splits host:port; a missing port yields defaultPort
func SplitEndpoint(endpoint string, defaultPort int) (string, int, error) {
	if !strings.Contains(endpoint, ":") {
		return endpoint, defaultPort, nil
	}
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return "", 0, model.NewError(model.ErrConnection, endpoint, fmt.Errorf("invalid endpoint: %w", err))
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, model.NewError(model.ErrConnection, endpoint, fmt.Errorf("invalid port: %w", err))
	}
	return host, port, nil
}
