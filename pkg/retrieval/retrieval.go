// Package retrieval loads stored fingerprints and renders them as nested or
// flat maps.
package retrieval

import (
	"context"
	"time"

	"github.com/knadh/koanf/maps"
	"github.com/patrickmn/go-cache"

	"github.com/vulntor/fpintake/pkg/component"
	"github.com/vulntor/fpintake/pkg/storage"
)

// Separator joins component and field names in flat output.
const Separator = "."

// Getter loads a fingerprint by id.
type Getter interface {
	GetFingerprint(ctx context.Context, id string) (*storage.Fingerprint, error)
}

// Service renders stored fingerprints.
type Service struct {
	store Getter
	cache *cache.Cache
}

// Option configures a Service.
type Option func(*Service)

// WithCache keeps rendered fingerprints for ttl. Stored fingerprints never
// change, so entries only expire to bound memory. A ttl <= 0 disables it.
func WithCache(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cache = cache.New(ttl, 2*ttl)
		}
	}
}

// NewService returns a Service reading from store.
func NewService(store Getter, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Nested returns the fingerprint with one map per component key. Unknown
// ids return an error satisfying storage.IsNotFound. Callers own the
// returned map.
func (s *Service) Nested(ctx context.Context, id string) (map[string]any, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(id); ok {
			return maps.Copy(v.(map[string]any)), nil
		}
	}

	fp, err := s.store.GetFingerprint(ctx, id)
	if err != nil {
		return nil, err
	}
	out := Render(fp)

	if s.cache != nil {
		s.cache.SetDefault(id, maps.Copy(out))
	}
	return out, nil
}

// Flat returns the fingerprint with "component.field" keys. Object-valued
// fields stay intact.
func (s *Service) Flat(ctx context.Context, id string) (map[string]any, error) {
	nested, err := s.Nested(ctx, id)
	if err != nil {
		return nil, err
	}
	return Flatten(nested, Separator, 1), nil
}

// Render converts a stored fingerprint to its nested map form.
func Render(fp *storage.Fingerprint) map[string]any {
	out := map[string]any{
		"id":         fp.ID,
		"created_at": fp.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	for _, c := range component.Registry() {
		values, ok := fp.Components[c.Key]
		if !ok {
			values = c.Empty()
		}
		section := make(map[string]any, len(c.Fields))
		for _, f := range c.Fields {
			v, ok := values[f.Name]
			if !ok {
				v = f.Default()
			}
			section[f.Name] = v
		}
		out[c.Key] = section
	}
	return out
}

// Flatten joins nested map keys with sep, descending at most depth levels.
// A depth of zero or less flattens completely. Empty maps are kept as values.
// The input is not modified.
func Flatten(m map[string]any, sep string, depth int) map[string]any {
	if depth <= 0 {
		out, _ := maps.Flatten(maps.Copy(m), nil, sep)
		return out
	}

	out := make(map[string]any, len(m))
	flatten(out, "", m, sep, depth)
	return out
}

func flatten(out map[string]any, prefix string, m map[string]any, sep string, depth int) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + sep + k
		}

		child, ok := v.(map[string]any)
		if !ok || len(child) == 0 || depth == 0 {
			out[key] = v
			continue
		}
		flatten(out, key, child, sep, depth-1)
	}
}
