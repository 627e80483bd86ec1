package inspect

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
)

type ctxKey string

const (
	connKey ctxKey = "inspect.conn"
	headKey ctxKey = "inspect.head"
)

// Conn records request heads read from the underlying connection.
type Conn struct {
	net.Conn
	tls *tls.Conn
	rec *headRecorder
}

func (c *Conn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if n > 0 {
		c.rec.feed(p[:n])
	}
	return n, err
}

// ConnectionState returns the TLS state when this listener terminated TLS.
func (c *Conn) ConnectionState() (tls.ConnectionState, bool) {
	if c.tls == nil {
		return tls.ConnectionState{}, false
	}
	return c.tls.ConnectionState(), true
}

type listener struct {
	net.Listener
	tlsConfig *tls.Config
}

// NewListener wraps inner so that every accepted connection records raw
// request heads. When tlsConfig is non-nil the listener terminates TLS
// itself, which keeps the decrypted head observable; ALPN is limited to
// http/1.1 because HTTP/2 frames cannot be recorded this way.
func NewListener(inner net.Listener, tlsConfig *tls.Config) net.Listener {
	l := &listener{Listener: inner}
	if tlsConfig != nil {
		cfg := tlsConfig.Clone()
		cfg.NextProtos = []string{"http/1.1"}
		l.tlsConfig = cfg
	}
	return l
}

func (l *listener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}

	conn := &Conn{Conn: c, rec: newHeadRecorder()}
	if l.tlsConfig != nil {
		conn.tls = tls.Server(c, l.tlsConfig)
		conn.Conn = conn.tls
	}
	return conn, nil
}

// ConnContext is meant for http.Server.ConnContext. It makes the recording
// connection available to Capture and FromHTTP.
func ConnContext(ctx context.Context, c net.Conn) context.Context {
	if conn, ok := c.(*Conn); ok {
		return context.WithValue(ctx, connKey, conn)
	}
	return ctx
}

func connFromContext(ctx context.Context) *Conn {
	conn, _ := ctx.Value(connKey).(*Conn)
	return conn
}

// Capture attaches the recorded head of the current request to its
// context. It must run for every request on a connection so the per
// connection queue stays aligned.
func Capture(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if conn := connFromContext(r.Context()); conn != nil {
			if head, ok := conn.rec.pop(r.Method, r.RequestURI); ok {
				r = r.WithContext(context.WithValue(r.Context(), headKey, head))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func headFromContext(ctx context.Context) (rawHead, bool) {
	head, ok := ctx.Value(headKey).(rawHead)
	return head, ok
}
