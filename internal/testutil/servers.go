package testutil

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ServeHTTP starts an HTTP server and returns its host:port endpoint
func ServeHTTP(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

// ServeBeans starts a JMX servlet answering every path with the given
// comma separated bean objects
func ServeBeans(t *testing.T, beans string) string {
	t.Helper()
	return ServeHTTP(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"beans":[` + beans + `]}`))
	})
}

// ClosedEndpoint returns a local endpoint with nothing listening on it
func ClosedEndpoint(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

// StartStatusServer accepts connections, reads the four-letter command and
// answers with reply after delay, then closes the connection. Received
// commands are sent on the returned channel.
func StartStatusServer(t *testing.T, reply string, delay time.Duration) (string, int, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	commands := make(chan string, 8)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				buf := make([]byte, 4)
				if _, err := io.ReadFull(conn, buf); err == nil {
					select {
					case commands <- string(buf):
					default:
					}
				}
				time.Sleep(delay)
				if reply != "" {
					conn.Write([]byte(reply))
				}
			}(conn)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port, commands
}
