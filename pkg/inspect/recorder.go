package inspect

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"sync"
)

const (
	maxHeadBytes   = 64 << 10
	maxQueuedHeads = 32
)

var (
	crlf       = []byte("\r\n")
	headEnd    = []byte("\r\n\r\n")
	errBadHead = errors.New("malformed request head")
)

// rawHead is one HTTP/1.x request head as it appeared on the wire.
type rawHead struct {
	Method string
	Target string
	Fields []HeaderField

	contentLength int64
	chunked       bool
	upgrade       bool
}

// headRecorder watches the inbound byte stream of one connection and
// queues request heads in arrival order. Once it loses track of message
// framing (chunked bodies, upgrades, oversized or malformed heads) it stops
// recording for the rest of the connection.
type headRecorder struct {
	mu       sync.Mutex
	buf      []byte
	skip     int64
	disabled bool
	heads    []rawHead
}

func newHeadRecorder() *headRecorder {
	return &headRecorder{}
}

func (h *headRecorder) feed(p []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for len(p) > 0 && !h.disabled {
		if h.skip > 0 {
			n := int64(len(p))
			if n > h.skip {
				n = h.skip
			}
			h.skip -= n
			p = p[n:]
			continue
		}

		h.buf = append(h.buf, p...)
		p = nil
		h.drain()
	}
}

// drain parses every complete head currently buffered.
func (h *headRecorder) drain() {
	for !h.disabled {
		// Clients may send stray CRLFs between requests.
		for bytes.HasPrefix(h.buf, crlf) {
			h.buf = h.buf[len(crlf):]
		}

		end := bytes.Index(h.buf, headEnd)
		if end < 0 {
			if len(h.buf) > maxHeadBytes {
				h.disable()
			}
			return
		}

		head, err := parseHead(h.buf[:end])
		if err != nil {
			h.disable()
			return
		}
		if len(h.heads) >= maxQueuedHeads {
			h.disable()
			return
		}
		h.heads = append(h.heads, head)

		if head.chunked || head.upgrade {
			h.disable()
			return
		}

		rest := h.buf[end+len(headEnd):]
		if int64(len(rest)) < head.contentLength {
			h.skip = head.contentLength - int64(len(rest))
			h.buf = h.buf[:0]
			return
		}
		rest = rest[head.contentLength:]
		h.buf = append(h.buf[:0], rest...)
	}
}

func (h *headRecorder) disable() {
	h.disabled = true
	h.buf = nil
}

// pop removes and returns the oldest head matching method and target.
// Heads queued before it are discarded: they belong to requests the server
// never handed to a handler.
func (h *headRecorder) pop(method, target string) (rawHead, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, head := range h.heads {
		if head.Method == method && head.Target == target {
			h.heads = h.heads[i+1:]
			return head, true
		}
	}
	return rawHead{}, false
}

func parseHead(b []byte) (rawHead, error) {
	lines := strings.Split(string(b), "\r\n")
	requestLine := strings.Fields(lines[0])
	if len(requestLine) != 3 || !strings.HasPrefix(requestLine[2], "HTTP/1.") {
		return rawHead{}, errBadHead
	}

	head := rawHead{
		Method: requestLine[0],
		Target: requestLine[1],
		Fields: make([]HeaderField, 0, len(lines)-1),
	}
	if head.Method == "CONNECT" {
		head.upgrade = true
	}

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if len(head.Fields) == 0 {
				return rawHead{}, errBadHead
			}
			last := &head.Fields[len(head.Fields)-1]
			last.Value += " " + strings.TrimSpace(line)
			continue
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok || name == "" || strings.ContainsAny(name, " \t") {
			return rawHead{}, errBadHead
		}
		value = strings.TrimSpace(value)
		head.Fields = append(head.Fields, HeaderField{Name: name, Value: value})

		switch strings.ToLower(name) {
		case "content-length":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil || n < 0 {
				return rawHead{}, errBadHead
			}
			head.contentLength = n
		case "transfer-encoding":
			if strings.Contains(strings.ToLower(value), "chunked") {
				head.chunked = true
			}
		case "upgrade":
			head.upgrade = true
		}
	}
	return head, nil
}
