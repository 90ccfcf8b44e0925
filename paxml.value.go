package paxml

import (
	"reflect"
	"strconv"

	"github.com/itsatony/go-paxml/internal"
)

type (
	// Property is one named, readable member of an introspectable value
	Property = internal.Property
	// Introspectable values expose an ordered list of properties to member
	// access and to bean iteration.
	Introspectable = internal.Introspectable
	// Callable values expose named functions to member calls in expressions
	Callable = internal.Callable
)

// Iterator is a pull-style sequence accepted as an iterate list source.
// Next returns false once the sequence is exhausted.
type Iterator interface {
	Next() (any, bool)
}

// RegisterIntrospector installs a property adapter for values of type T.
// Registered values behave like Introspectable ones in expressions and iteration.
func RegisterIntrospector[T any](fn func(T) []Property) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	internal.RegisterIntrospector(t, func(v any) []Property {
		return fn(v.(T))
	})
}

// Kind classifies a runtime value
type Kind int

// Value kinds
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
	KindObject
	KindHandle
)

var kindNames = [...]string{"null", "bool", "number", "string", "list", "map", "object", "handle"}

// String returns the kind name
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a classified view of a dynamically typed runtime value.
// Contexts store plain values; Value is used where the shape matters.
type Value struct {
	kind Kind
	raw  any
}

// ValueOf classifies v
func ValueOf(v any) Value {
	return Value{kind: kindOf(v), raw: v}
}

func kindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case string:
		return KindString
	case ResultList, Iterator:
		return KindList
	}
	if _, ok := internal.ToNumber(v); ok {
		return KindNumber
	}
	if _, ok := internal.Introspect(v); ok {
		return KindObject
	}
	if _, ok := internal.ToList(v); ok {
		return KindList
	}
	if reflect.ValueOf(v).Kind() == reflect.Map {
		return KindMap
	}
	return KindHandle
}

// Kind returns the value's kind
func (v Value) Kind() Kind { return v.kind }

// Raw returns the underlying value
func (v Value) Raw() any { return v.raw }

// IsNull reports an absent value
func (v Value) IsNull() bool { return v.kind == KindNull }

// String renders the value as text; null renders as the empty string
func (v Value) String() string {
	return internal.Stringify(v.raw)
}

// Truth reports Paxml truthiness, see IsTrue
func (v Value) Truth() bool {
	return v.kind != KindNull && v.String() != "false"
}

// Items returns the elements of a list value. Iterators are drained.
func (v Value) Items() []any {
	switch it := v.raw.(type) {
	case ResultList:
		return it
	case Iterator:
		var out []any
		for {
			item, ok := it.Next()
			if !ok {
				return out
			}
			out = append(out, item)
		}
	}
	items, _ := internal.ToList(v.raw)
	return items
}

// Keys returns the member names of a map or object value in iteration order
func (v Value) Keys() []string {
	keys, _ := internal.SortedKeys(v.raw)
	return keys
}

// Member reads one member of a map or object value
func (v Value) Member(name string) (any, bool) {
	return internal.SelectMember(v.raw, name)
}

// IsTrue is the condition truthiness used by tags: a value is true when it
// is present and its string form is not "false".
func IsTrue(v any) bool {
	return ValueOf(v).Truth()
}

// Stringify renders a value as text; nil renders as the empty string
func Stringify(v any) string {
	return internal.Stringify(v)
}
