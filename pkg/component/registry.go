// Package component declares the 20 fingerprint component types and the
// registry that drives normalization, persistence and retrieval.
package component

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Kind is the storage kind of a component field.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString // bounded by MaxLen
	KindText   // unbounded string
	KindBool
	KindIP
	KindList
	KindObject
)

var kindNames = map[Kind]string{
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindText:   "text",
	KindBool:   "bool",
	KindIP:     "ip",
	KindList:   "list",
	KindObject: "object",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// IsJSON reports whether values of this kind are stored as JSON documents.
func (k Kind) IsJSON() bool {
	return k == KindList || k == KindObject
}

// Field describes one nullable column of a component.
type Field struct {
	Component string // owning component key
	Name      string
	Kind      Kind
	MaxLen    int    // KindString only
	Rule      string // validator rule applied after conversion

	index int // struct field index in the shape type
}

// Component describes one fingerprint component.
type Component struct {
	// Key names the link on a fingerprint and the section in stored output.
	Key string
	// DocumentKey is the section name clients use in submitted documents.
	DocumentKey string
	// Table is the backing table name.
	Table  string
	Fields []Field

	shape reflect.Type
}

// Field returns the named field.
func (c *Component) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldNames returns field names in declaration order.
func (c *Component) FieldNames() []string {
	names := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		names[i] = f.Name
	}
	return names
}

// Empty returns a record with every field at its default value.
func (c *Component) Empty() Values {
	v := make(Values, len(c.Fields))
	for _, f := range c.Fields {
		v[f.Name] = f.Default()
	}
	return v
}

type definition struct {
	key   string
	doc   string
	shape any
}

// Canonical order. Persistence inserts components in this order.
var definitions = []definition{
	{"http_header", "http_header_fingerprint", HTTPHeader{}},
	{"behavioral", "behavioral", Behavioral{}},
	{"display", "display", Display{}},
	{"storage", "storage", Storage{}},
	{"css_media_feature", "css_features", CSSMediaFeature{}},
	{"permissions_status", "permissions", PermissionsStatus{}},
	{"graphics", "graphics", Graphics{}},
	{"hardware", "hardware", Hardware{}},
	{"browser", "browser", Browser{}},
	{"network_connection", "network", NetworkConnection{}},
	{"time_zone", "time_zone", TimeZone{}},
	{"media", "media", Media{}},
	{"touch_pointer", "touch_pointer", TouchPointer{}},
	{"performance_timings", "performance", PerformanceTimings{}},
	{"ip", "ip", IP{}},
	{"canvas", "canvas", Canvas{}},
	{"plugins", "plugins", Plugins{}},
	{"encrypted_media_capabilities", "encrypted_media_capabilities", EncryptedMediaCapabilities{}},
	{"audio", "audio", Audio{}},
	{"fonts", "fonts", Fonts{}},
}

var (
	registry []*Component
	byKey    map[string]*Component
	byShape  map[reflect.Type]*Component
)

func init() {
	registry = make([]*Component, 0, len(definitions))
	byKey = make(map[string]*Component, len(definitions))
	byShape = make(map[reflect.Type]*Component, len(definitions))

	for _, def := range definitions {
		c, err := build(def)
		if err != nil {
			panic(err)
		}
		registry = append(registry, c)
		byKey[c.Key] = c
		byShape[c.shape] = c
	}
}

// HTTPHeaderKey is the key of the server-derived component.
const HTTPHeaderKey = "http_header"

// Registry returns every component in canonical order. Callers must not
// modify the returned components.
func Registry() []*Component {
	out := make([]*Component, len(registry))
	copy(out, registry)
	return out
}

// Lookup returns the component registered under key.
func Lookup(key string) (*Component, bool) {
	c, ok := byKey[key]
	return c, ok
}

// MustLookup is Lookup for keys known at compile time.
func MustLookup(key string) *Component {
	c, ok := byKey[key]
	if !ok {
		panic(fmt.Sprintf("component: unknown component %q", key))
	}
	return c
}

// Keys returns every component key in canonical order.
func Keys() []string {
	keys := make([]string, len(registry))
	for i, c := range registry {
		keys[i] = c.Key
	}
	return keys
}

func build(def definition) (*Component, error) {
	t := reflect.TypeOf(def.shape)
	c := &Component{
		Key:         def.key,
		DocumentKey: def.doc,
		Table:       "fp_" + def.key,
		shape:       t,
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, ok := sf.Tag.Lookup("fp")
		if !ok {
			continue
		}
		name, override, _ := strings.Cut(tag, ",")
		f := Field{
			Component: def.key,
			Name:      name,
			Rule:      sf.Tag.Get("validate"),
			index:     i,
		}

		kind, err := kindOf(sf.Type, f.Rule)
		if err != nil {
			return nil, fmt.Errorf("component %s field %s: %w", def.key, name, err)
		}
		if override == "ip" {
			kind = KindIP
		}
		f.Kind = kind
		if kind == KindString {
			f.MaxLen = maxLen(f.Rule)
		}
		c.Fields = append(c.Fields, f)
	}

	if len(c.Fields) == 0 {
		return nil, fmt.Errorf("component %s declares no fields", def.key)
	}
	return c, nil
}

func kindOf(t reflect.Type, rule string) (Kind, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int64:
		return KindInt, nil
	case reflect.Float64:
		return KindFloat, nil
	case reflect.Bool:
		return KindBool, nil
	case reflect.String:
		if maxLen(rule) > 0 {
			return KindString, nil
		}
		return KindText, nil
	case reflect.Slice:
		return KindList, nil
	case reflect.Map:
		return KindObject, nil
	default:
		return 0, fmt.Errorf("unsupported go type %s", t)
	}
}

func maxLen(rule string) int {
	for _, part := range strings.Split(rule, ",") {
		if v, ok := strings.CutPrefix(part, "max="); ok {
			n, err := strconv.Atoi(v)
			if err == nil {
				return n
			}
		}
	}
	return 0
}
