package internal

import (
	"fmt"
	"reflect"
	"strconv"
	"sync"
)

// Property is one named, readable member of an introspectable value
type Property struct {
	Name string
	Get  func() any
}

// Introspectable is implemented by values that expose named properties to
// member access and property iteration.
type Introspectable interface {
	Properties() []Property
}

// Callable is implemented by values that expose named functions to member
// calls such as util.list(1, 2).
type Callable interface {
	Call(name string, args []any) (any, error)
}

var introspectors sync.Map // reflect.Type -> func(any) []Property

// RegisterIntrospector installs a property adapter for values of type t
func RegisterIntrospector(t reflect.Type, fn func(any) []Property) {
	introspectors.Store(t, fn)
}

// Introspect returns the properties of v if it is Introspectable or has a
// registered adapter.
func Introspect(v any) ([]Property, bool) {
	if v == nil {
		return nil, false
	}
	if in, ok := v.(Introspectable); ok {
		return in.Properties(), true
	}
	if fn, ok := introspectors.Load(reflect.TypeOf(v)); ok {
		return fn.(func(any) []Property)(v), true
	}
	return nil, false
}

// SelectMember reads one named member from v.
// Maps are indexed by key, introspectable values by property name and
// lists by decimal index.
func SelectMember(v any, name string) (any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		m, ok := val[name]
		return m, ok
	case map[string]string:
		m, ok := val[name]
		return m, ok
	}

	if props, ok := Introspect(v); ok {
		for _, p := range props {
			if p.Name == name {
				return p.Get(), true
			}
		}
		return nil, false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			for _, k := range rv.MapKeys() {
				if Stringify(k.Interface()) == name {
					return rv.MapIndex(k).Interface(), true
				}
			}
			return nil, false
		}
		mv := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(name)
		if err != nil || idx < 0 || idx >= rv.Len() {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	case reflect.Ptr:
		if rv.IsNil() {
			return nil, false
		}
		return SelectMember(rv.Elem().Interface(), name)
	}
	return nil, false
}

// SelectPath walks path from v. A missing segment ends the walk with (nil, false).
func SelectPath(v any, path []string) (any, bool) {
	cur := v
	for _, seg := range path {
		next, ok := SelectMember(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// SelectAll walks path from v, expanding the wildcard segment over every
// element of a list or every value of a map. Map values are visited in
// SortedKeys order.
func SelectAll(v any, path []string) []any {
	if len(path) == 0 {
		return []any{v}
	}

	seg, rest := path[0], path[1:]
	if seg != PathWildcard {
		next, ok := SelectMember(v, seg)
		if !ok {
			return nil
		}
		return SelectAll(next, rest)
	}

	var out []any
	for _, child := range Children(v) {
		out = append(out, SelectAll(child, rest)...)
	}
	return out
}

// Children returns the elements of a list or the values of a map in key order
func Children(v any) []any {
	if items, ok := ToList(v); ok {
		return items
	}
	keys, ok := SortedKeys(v)
	if !ok {
		return nil
	}
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		child, _ := SelectMember(v, k)
		out = append(out, child)
	}
	return out
}

// ToList converts slices and arrays to []any
func ToList(v any) ([]any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case []any:
		return val, true
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, true
	case string:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// Stringify renders a value as text. nil renders as the empty string and
// integral floats render without a fraction.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case fmt.Stringer:
		return val.String()
	case error:
		return val.Error()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// ToNumber converts numeric values, and strings that parse as numbers, to float64
func ToNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case string:
		n, err := strconv.ParseFloat(val, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// isNumeric reports whether v is a Go numeric type (strings excluded)
func isNumeric(v any) bool {
	if _, ok := v.(string); ok {
		return false
	}
	_, ok := ToNumber(v)
	return ok
}
