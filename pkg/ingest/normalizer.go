// Package ingest turns a submitted fingerprint document into a complete,
// normalized set of component records.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/vulntor/fpintake/pkg/component"
)

// Normalizer extracts the registered components from a raw document.
// It holds no per-request state and is safe for concurrent use.
type Normalizer struct {
	// Strict rejects documents whose values would not satisfy the storage
	// constraints instead of letting persistence fail on them.
	Strict bool
}

// Normalize validates doc, overlays the server-derived header component
// and returns one record per registered component. Fields the client did
// not send take their defaults, explicit nulls are kept and undeclared
// fields are dropped.
func (n Normalizer) Normalize(doc []byte, header component.HTTPHeader) (component.Document, error) {
	if !gjson.ValidBytes(doc) {
		return nil, ErrInvalidJSON
	}
	if !gjson.ParseBytes(doc).IsObject() {
		return nil, ErrInvalidJSON
	}

	merged, err := overlayHeader(doc, header)
	if err != nil {
		return nil, err
	}

	root := gjson.ParseBytes(merged)
	reg := component.Registry()
	out := make(component.Document, len(reg))
	for _, c := range reg {
		out[c.Key] = extract(c, root.Get(c.DocumentKey))
	}

	if n.Strict {
		if err := check(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// overlayHeader replaces whatever the client sent under the header
// component's document key with the server-derived values.
func overlayHeader(doc []byte, header component.HTTPHeader) ([]byte, error) {
	c, values, err := component.ValuesOf(header)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encode header component: %w", err)
	}
	merged, err := sjson.SetRawBytes(doc, c.DocumentKey, raw)
	if err != nil {
		return nil, fmt.Errorf("merge header component: %w", err)
	}
	return merged, nil
}

func extract(c *component.Component, section gjson.Result) component.Values {
	rec := make(component.Values, len(c.Fields))
	for _, f := range c.Fields {
		if !section.IsObject() {
			rec[f.Name] = f.Default()
			continue
		}
		v := section.Get(f.Name)
		if !v.Exists() {
			rec[f.Name] = f.Default()
			continue
		}
		rec[f.Name] = value(v)
	}
	return rec
}

// value decodes a field value. Top-level numbers keep their literal so
// integers beyond 2^53 reach storage unchanged.
func value(v gjson.Result) any {
	if v.Type == gjson.Number {
		return json.Number(v.Raw)
	}
	return v.Value()
}

func check(doc component.Document) error {
	var verr ValidationError
	for _, c := range component.Registry() {
		rec := doc[c.Key]
		for _, f := range c.Fields {
			if _, err := f.Coerce(rec[f.Name]); err != nil {
				var fe *component.FieldError
				if errors.As(err, &fe) {
					verr.Fields = append(verr.Fields, fe)
				}
			}
		}
	}
	if len(verr.Fields) > 0 {
		return &verr
	}
	return nil
}
