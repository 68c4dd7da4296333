package streamwrap

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/buffer"
)

// WSConfig is the request-path/host pair deferred until the WebSocket
// handshake.
type WSConfig struct {
	Path string
	Host string
}

// WS adapts a *websocket.Conn to adapter.Stream, translating RFC 6455
// binary message framing into the arbitrary-length byte stream the rest
// of the pipeline expects, buffering leftover message bytes in a Cache.
type WS struct {
	conn   *websocket.Conn
	cache  buffer.Cache
	mu     sync.Mutex
	closed atomic.Bool
}

func newWS(conn *websocket.Conn) *WS {
	return &WS{conn: conn}
}

func (w *WS) Recv(ctx context.Context, buf []byte) (int, error) {
	if !w.cache.Empty() {
		return w.cache.Drain(buf), nil
	}
	if dl, ok := ctx.Deadline(); ok {
		w.conn.SetReadDeadline(dl)
	} else {
		w.conn.SetReadDeadline(time.Time{})
	}
	_, data, err := w.conn.ReadMessage()
	if err != nil {
		return 0, err
	}
	n := copy(buf, data)
	if n < len(data) {
		w.cache.Fill(data[n:])
	}
	return n, nil
}

func (w *WS) Send(ctx context.Context, buf []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if dl, ok := ctx.Deadline(); ok {
		w.conn.SetWriteDeadline(dl)
	} else {
		w.conn.SetWriteDeadline(time.Time{})
	}
	return w.conn.WriteMessage(websocket.BinaryMessage, buf)
}

func (w *WS) Close() error {
	w.closed.Store(true)
	return w.conn.Close()
}

func (w *WS) Readable() bool { return !w.closed.Load() || !w.cache.Empty() }
func (w *WS) Writable() bool { return !w.closed.Load() }

var upgrader = websocket.Upgrader{
	ReadBufferSize:  buffer.MaxFrameSize,
	WriteBufferSize: buffer.MaxFrameSize,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// hijackedResponseWriter lets gorilla's Upgrader complete a WebSocket
// handshake directly over a net.Conn this process already owns: the
// ingress TCP listener dedicated to WebSocket-framed traffic runs with no
// surrounding http.Server, so Hijack trivially hands back the connection
// it was already given.
type hijackedResponseWriter struct {
	conn   net.Conn
	rw     *bufio.ReadWriter
	header http.Header
}

func (h *hijackedResponseWriter) Header() http.Header { return h.header }
func (h *hijackedResponseWriter) Write(b []byte) (int, error) { return h.rw.Write(b) }
func (h *hijackedResponseWriter) WriteHeader(int)             {}
func (h *hijackedResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return h.conn, h.rw, nil
}

// UpgradeServer reads one HTTP request off conn and completes the
// WebSocket server handshake.
func UpgradeServer(conn *Plain, cfg WSConfig) (*WS, error) {
	br := bufio.NewReader(conn.Conn)
	req, err := http.ReadRequest(br)
	if err != nil {
		return nil, adapter.Wrap(adapter.BadProto, "websocket handshake: bad request", err)
	}
	if cfg.Path != "" && req.URL.Path != cfg.Path {
		return nil, adapter.New(adapter.BadProto, "websocket handshake: unexpected path")
	}

	rw := &hijackedResponseWriter{
		conn:   conn.Conn,
		header: http.Header{},
		rw:     bufio.NewReadWriter(br, bufio.NewWriter(conn.Conn)),
	}
	wsConn, err := upgrader.Upgrade(rw, req, nil)
	if err != nil {
		return nil, adapter.Wrap(adapter.BadProto, "websocket upgrade failed", err)
	}
	return newWS(wsConn), nil
}

// DialClient performs the WebSocket client handshake over conn to the
// configured path/host pair.
func DialClient(ctx context.Context, conn *Plain, cfg WSConfig) (*WS, error) {
	dialer := websocket.Dialer{
		NetDialContext: func(context.Context, string, string) (net.Conn, error) {
			return conn.Conn, nil
		},
		HandshakeTimeout: 10 * time.Second,
	}
	u := url.URL{Scheme: "ws", Host: cfg.Host, Path: cfg.Path}
	wsConn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, adapter.Wrap(adapter.ConnFailure, "websocket dial failed", err)
	}
	return newWS(wsConn), nil
}

var _ adapter.Stream = (*WS)(nil)
var _ adapter.Stream = (*Plain)(nil)
