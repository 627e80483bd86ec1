// Package inspect derives the server-side HTTP header fingerprint from the
// transport of an ingestion request.
package inspect

import (
	"crypto/tls"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/vulntor/fpintake/pkg/component"
)

// HeaderField is one header line as received.
type HeaderField struct {
	Name  string
	Value string
}

// Request is the transport view the inspector needs.
type Request struct {
	Method string
	Proto  string
	// Headers in receipt order with original name casing. Repeated names
	// appear once per occurrence.
	Headers []HeaderField
	// TLS is nil for plaintext connections.
	TLS *tls.ConnectionState
}

// commonHeaders is the fixed allow-list; anything else is unusual.
var commonHeaders = map[string]struct{}{
	"accept":                    {},
	"accept-encoding":           {},
	"accept-language":           {},
	"cache-control":             {},
	"connection":                {},
	"cookie":                    {},
	"host":                      {},
	"pragma":                    {},
	"referer":                   {},
	"user-agent":                {},
	"upgrade-insecure-requests": {},
}

// IsCommon reports whether name is on the common header allow-list.
// Matching ignores case.
func IsCommon(name string) bool {
	_, ok := commonHeaders[strings.ToLower(name)]
	return ok
}

var headerComponent = component.MustLookup(component.HTTPHeaderKey)

// Inspect derives the HTTP header component. It never fails: transport
// properties that are unavailable are left nil.
func Inspect(req Request) component.HTTPHeader {
	names := make([]string, 0, len(req.Headers))
	unusual := make([]string, 0)
	var referer *string

	for _, h := range req.Headers {
		names = append(names, h.Name)
		if !IsCommon(h.Name) {
			unusual = append(unusual, h.Name)
		}
		if referer == nil && strings.EqualFold(h.Name, "Referer") {
			v := clip("referer", h.Value)
			referer = &v
		}
	}

	count := len(names)
	out := component.HTTPHeader{
		HeaderCount:    &count,
		HeadersPresent: names,
		UnusualHeaders: unusual,
		Referer:        referer,
	}

	if req.Proto != "" {
		proto := clip("http_version", req.Proto)
		out.HTTPVersion = &proto
	}

	if req.TLS != nil && req.TLS.HandshakeComplete {
		version := clip("tls_protocol", TLSVersionName(req.TLS.Version))
		suite := clip("tls_cipher_suite", tls.CipherSuiteName(req.TLS.CipherSuite))
		out.TLSProtocol = &version
		out.TLSCipherSuite = &suite
	}

	return out
}

// TLSVersionName renders a protocol version the way TLS terminators
// usually report it, e.g. "TLSv1.3".
func TLSVersionName(v uint16) string {
	switch v {
	case tls.VersionTLS10:
		return "TLSv1"
	case tls.VersionTLS11:
		return "TLSv1.1"
	case tls.VersionTLS12:
		return "TLSv1.2"
	case tls.VersionTLS13:
		return "TLSv1.3"
	default:
		return tls.VersionName(v)
	}
}

// clip trims server-derived strings to the column width so that long
// transport values never fail an ingestion.
func clip(field, s string) string {
	f, ok := headerComponent.Field(field)
	if !ok || f.MaxLen <= 0 || utf8.RuneCountInString(s) <= f.MaxLen {
		return s
	}
	return string([]rune(s)[:f.MaxLen])
}

// FromHTTP builds the inspector view of r. When the connection was accepted
// through Listener and the request passed Capture, headers keep their wire
// order and casing. Otherwise Host comes first followed by the remaining
// headers sorted by canonical name.
func FromHTTP(r *http.Request) Request {
	req := Request{
		Method: r.Method,
		Proto:  r.Proto,
		TLS:    r.TLS,
	}

	if req.TLS == nil {
		if c := connFromContext(r.Context()); c != nil {
			if state, ok := c.ConnectionState(); ok {
				req.TLS = &state
			}
		}
	}

	if head, ok := headFromContext(r.Context()); ok {
		req.Headers = head.Fields
		return req
	}

	req.Headers = canonicalHeaders(r)
	return req
}

func canonicalHeaders(r *http.Request) []HeaderField {
	fields := make([]HeaderField, 0, len(r.Header)+1)
	if r.Host != "" {
		fields = append(fields, HeaderField{Name: "Host", Value: r.Host})
	}

	names := make([]string, 0, len(r.Header))
	for name := range r.Header {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, v := range r.Header[name] {
			fields = append(fields, HeaderField{Name: name, Value: v})
		}
	}
	return fields
}
