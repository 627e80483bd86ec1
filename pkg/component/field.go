package component

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
)

var validate = validator.New()

// Values maps field names to values for one component record.
type Values map[string]any

// FieldError reports a value rejected by a field's storage constraints.
type FieldError struct {
	Component string
	Field     string
	Reason    string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Component, e.Field, e.Reason)
}

// Default returns a fresh default value: an empty list for list fields, an
// empty object for object fields and nil otherwise.
func (f Field) Default() any {
	switch f.Kind {
	case KindList:
		return []any{}
	case KindObject:
		return map[string]any{}
	default:
		return nil
	}
}

// Coerce converts a JSON-decoded value into the field's column value and
// checks the field's constraints. Nil is always accepted.
func (f Field) Coerce(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	out, err := f.convert(v)
	if err != nil {
		return nil, f.fail(err.Error())
	}
	if out == nil {
		return nil, nil
	}

	if f.Rule != "" {
		if err := validate.Var(out, f.Rule); err != nil {
			return nil, f.fail(ruleReason(f, err))
		}
	}
	return out, nil
}

func (f Field) fail(reason string) *FieldError {
	return &FieldError{Component: f.Component, Field: f.Name, Reason: reason}
}

func (f Field) convert(v any) (any, error) {
	switch f.Kind {
	case KindInt:
		switch n := v.(type) {
		case bool, []any, map[string]any:
			return nil, mismatch("integer", v)
		case float64:
			return wholeInt(n)
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return i, nil
			}
			fl, err := n.Float64()
			if errors.Is(err, strconv.ErrRange) {
				return nil, errIntRange
			}
			if err != nil {
				return nil, mismatch("integer", v)
			}
			return wholeInt(fl)
		case string:
			// Decimal only; "0x10" and "1e3" are not integers here.
			i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
			if errors.Is(err, strconv.ErrRange) {
				return nil, errIntRange
			}
			if err != nil {
				return nil, mismatch("integer", v)
			}
			return i, nil
		}
		n, err := cast.ToInt64E(v)
		if err != nil {
			return nil, mismatch("integer", v)
		}
		return n, nil

	case KindFloat:
		switch n := v.(type) {
		case bool, []any, map[string]any:
			return nil, mismatch("number", v)
		case json.Number:
			fl, err := n.Float64()
			if errors.Is(err, strconv.ErrRange) {
				return nil, errors.New("number out of range")
			}
			if err != nil {
				return nil, mismatch("number", v)
			}
			return fl, nil
		}
		n, err := cast.ToFloat64E(v)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, mismatch("number", v)
		}
		return n, nil

	case KindString, KindText:
		switch s := v.(type) {
		case []any, map[string]any:
			return nil, mismatch("string", v)
		case json.Number:
			return s.String(), nil
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, mismatch("string", v)
		}
		return s, nil

	case KindIP:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch("ip address", v)
		}
		// Blank addresses are stored as NULL.
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		return s, nil

	case KindBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			out, err := cast.ToBoolE(b)
			if err != nil {
				return nil, mismatch("boolean", v)
			}
			return out, nil
		case float64:
			if b == 0 || b == 1 {
				return b == 1, nil
			}
		case json.Number:
			switch b.String() {
			case "0", "1":
				return b.String() == "1", nil
			}
		}
		return nil, mismatch("boolean", v)

	case KindList:
		switch l := v.(type) {
		case []any:
			return l, nil
		case []string:
			out := make([]any, len(l))
			for i, s := range l {
				out[i] = s
			}
			return out, nil
		}
		return nil, mismatch("array", v)

	case KindObject:
		if m, ok := v.(map[string]any); ok {
			return m, nil
		}
		return nil, mismatch("object", v)
	}
	return nil, fmt.Errorf("unsupported field kind %s", f.Kind)
}

var errIntRange = errors.New("integer out of range")

// wholeInt accepts floats with no fractional part that fit in an int64.
func wholeInt(n float64) (int64, error) {
	if n != math.Trunc(n) {
		return 0, fmt.Errorf("expected integer, got %v", n)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
	if n < math.MinInt64 || n >= math.MaxInt64 {
		return 0, errIntRange
	}
	return int64(n), nil
}

func mismatch(want string, got any) error {
	return fmt.Errorf("expected %s, got %s", want, jsonType(got))
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, json.Number, int, int64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func ruleReason(f Field, err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Tag() {
		case "max":
			return fmt.Sprintf("value exceeds maximum length %d", f.MaxLen)
		case "ip":
			return "invalid ip address"
		}
		return "failed " + verrs[0].Tag() + " constraint"
	}
	return err.Error()
}

// ValuesOf converts a typed component value (for example HTTPHeader) into
// its registered component and record. Unset pointers become nil, unset
// slices and maps take the field default.
func ValuesOf(shape any) (*Component, Values, error) {
	rv := reflect.ValueOf(shape)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil, fmt.Errorf("component: nil %T", shape)
		}
		rv = rv.Elem()
	}
	c, ok := byShape[rv.Type()]
	if !ok {
		return nil, nil, fmt.Errorf("component: %s is not a registered component type", rv.Type())
	}

	out := make(Values, len(c.Fields))
	for _, f := range c.Fields {
		fv := rv.Field(f.index)
		switch fv.Kind() {
		case reflect.Pointer:
			if fv.IsNil() {
				out[f.Name] = nil
			} else {
				out[f.Name] = fv.Elem().Interface()
			}
		case reflect.Slice:
			if fv.IsNil() {
				out[f.Name] = f.Default()
				continue
			}
			list := make([]any, fv.Len())
			for i := range list {
				list[i] = fv.Index(i).Interface()
			}
			out[f.Name] = list
		case reflect.Map:
			if fv.IsNil() {
				out[f.Name] = f.Default()
			} else {
				out[f.Name] = fv.Interface()
			}
		default:
			out[f.Name] = fv.Interface()
		}
	}
	return c, out, nil
}
