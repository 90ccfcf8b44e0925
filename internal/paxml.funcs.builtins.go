package internal

import (
	"reflect"
	"strconv"
	"strings"
)

// Built-in function names
const (
	FuncNameLen       = "len"
	FuncNameUpper     = "upper"
	FuncNameLower     = "lower"
	FuncNameTrim      = "trim"
	FuncNameContains  = "contains"
	FuncNameHasPrefix = "hasPrefix"
	FuncNameHasSuffix = "hasSuffix"
	FuncNameReplace   = "replace"
	FuncNameSplit     = "split"
	FuncNameJoin      = "join"
	FuncNameFirst     = "first"
	FuncNameLast      = "last"
	FuncNameKeys      = "keys"
	FuncNameValues    = "values"
	FuncNameHas       = "has"
	FuncNameToString  = "toString"
	FuncNameToInt     = "toInt"
	FuncNameToFloat   = "toFloat"
	FuncNameToBool    = "toBool"
	FuncNameTypeOf    = "typeOf"
	FuncNameIsNil     = "isNil"
	FuncNameIsEmpty   = "isEmpty"
	FuncNameDefault   = "default"
	FuncNameCoalesce  = "coalesce"
)

// Type names reported by typeOf
const (
	TypeNameNil    = "nil"
	TypeNameString = "string"
	TypeNameNumber = "number"
	TypeNameBool   = "bool"
	TypeNameList   = "list"
	TypeNameMap    = "map"
	TypeNameObject = "object"
)

// RegisterBuiltinFuncs registers all built-in functions with the registry
func RegisterBuiltinFuncs(r *FuncRegistry) {
	for _, f := range builtinFuncs() {
		r.MustRegister(f)
	}
}

// NewBuiltinFuncRegistry creates a registry holding the built-in functions
func NewBuiltinFuncRegistry() *FuncRegistry {
	r := NewFuncRegistry()
	RegisterBuiltinFuncs(r)
	return r
}

// stringFunc adapts a string-to-any function of one argument
func stringFunc(name string, fn func(string) any) *Func {
	return &Func{Name: name, MinArgs: 1, MaxArgs: 1, Fn: func(args []any) (any, error) {
		s, err := stringArg(name, args, 0)
		if err != nil {
			return nil, err
		}
		return fn(s), nil
	}}
}

// stringPairFunc adapts a function of two string arguments
func stringPairFunc(name string, fn func(a, b string) any) *Func {
	return &Func{Name: name, MinArgs: 2, MaxArgs: 2, Fn: func(args []any) (any, error) {
		a, err := stringArg(name, args, 0)
		if err != nil {
			return nil, err
		}
		b, err := stringArg(name, args, 1)
		if err != nil {
			return nil, err
		}
		return fn(a, b), nil
	}}
}

func builtinFuncs() []*Func {
	return []*Func{
		stringFunc(FuncNameUpper, func(s string) any { return strings.ToUpper(s) }),
		stringFunc(FuncNameLower, func(s string) any { return strings.ToLower(s) }),
		stringFunc(FuncNameTrim, func(s string) any { return strings.TrimSpace(s) }),
		stringPairFunc(FuncNameHasPrefix, func(s, p string) any { return strings.HasPrefix(s, p) }),
		stringPairFunc(FuncNameHasSuffix, func(s, p string) any { return strings.HasSuffix(s, p) }),
		stringPairFunc(FuncNameSplit, func(s, sep string) any {
			parts := strings.Split(s, sep)
			out := make([]any, len(parts))
			for i, p := range parts {
				out[i] = p
			}
			return out
		}),
		{Name: FuncNameReplace, MinArgs: 3, MaxArgs: 3, Fn: func(args []any) (any, error) {
			var s [3]string
			for i := range s {
				v, err := stringArg(FuncNameReplace, args, i)
				if err != nil {
					return nil, err
				}
				s[i] = v
			}
			return strings.ReplaceAll(s[0], s[1], s[2]), nil
		}},
		{Name: FuncNameContains, MinArgs: 2, MaxArgs: 2, Fn: func(args []any) (any, error) {
			if items, ok := ToList(args[0]); ok {
				for _, item := range items {
					if compareEqual(item, args[1]) {
						return true, nil
					}
				}
				return false, nil
			}
			s, err := stringArg(FuncNameContains, args, 0)
			if err != nil {
				return nil, err
			}
			return strings.Contains(s, Stringify(args[1])), nil
		}},
		{Name: FuncNameJoin, MinArgs: 2, MaxArgs: 2, Fn: func(args []any) (any, error) {
			items, ok := ToList(args[0])
			if !ok {
				return nil, NewFuncTypeError(ErrMsgFuncExpectedList, FuncNameJoin, 0)
			}
			sep, err := stringArg(FuncNameJoin, args, 1)
			if err != nil {
				return nil, err
			}
			parts := make([]string, len(items))
			for i, item := range items {
				parts[i] = Stringify(item)
			}
			return strings.Join(parts, sep), nil
		}},
		{Name: FuncNameLen, MinArgs: 1, MaxArgs: 1, Fn: func(args []any) (any, error) {
			return lengthOf(args[0])
		}},
		{Name: FuncNameFirst, MinArgs: 1, MaxArgs: 1, Fn: func(args []any) (any, error) {
			return listEnd(FuncNameFirst, args[0], true)
		}},
		{Name: FuncNameLast, MinArgs: 1, MaxArgs: 1, Fn: func(args []any) (any, error) {
			return listEnd(FuncNameLast, args[0], false)
		}},
		{Name: FuncNameKeys, MinArgs: 1, MaxArgs: 1, Fn: func(args []any) (any, error) {
			keys, ok := SortedKeys(args[0])
			if !ok {
				return nil, NewFuncTypeError(ErrMsgFuncExpectedMap, FuncNameKeys, 0)
			}
			out := make([]any, len(keys))
			for i, k := range keys {
				out[i] = k
			}
			return out, nil
		}},
		{Name: FuncNameValues, MinArgs: 1, MaxArgs: 1, Fn: func(args []any) (any, error) {
			if _, ok := SortedKeys(args[0]); !ok {
				return nil, NewFuncTypeError(ErrMsgFuncExpectedMap, FuncNameValues, 0)
			}
			return Children(args[0]), nil
		}},
		{Name: FuncNameHas, MinArgs: 2, MaxArgs: 2, Fn: func(args []any) (any, error) {
			_, ok := SelectMember(args[0], Stringify(args[1]))
			return ok, nil
		}},
		{Name: FuncNameToString, MinArgs: 1, MaxArgs: 1, Fn: func(args []any) (any, error) {
			return Stringify(args[0]), nil
		}},
		{Name: FuncNameToInt, MinArgs: 1, MaxArgs: 1, Fn: func(args []any) (any, error) {
			n, ok := ToNumber(args[0])
			if !ok {
				return nil, NewFuncTypeError(ErrMsgFuncConversionFailed, FuncNameToInt, 0)
			}
			return int(n), nil
		}},
		{Name: FuncNameToFloat, MinArgs: 1, MaxArgs: 1, Fn: func(args []any) (any, error) {
			n, ok := ToNumber(args[0])
			if !ok {
				return nil, NewFuncTypeError(ErrMsgFuncConversionFailed, FuncNameToFloat, 0)
			}
			return n, nil
		}},
		{Name: FuncNameToBool, MinArgs: 1, MaxArgs: 1, Fn: func(args []any) (any, error) {
			if s, ok := args[0].(string); ok {
				b, err := strconv.ParseBool(s)
				if err != nil {
					return nil, NewFuncTypeError(ErrMsgFuncConversionFailed, FuncNameToBool, 0)
				}
				return b, nil
			}
			return isTruthy(args[0]), nil
		}},
		{Name: FuncNameTypeOf, MinArgs: 1, MaxArgs: 1, Fn: func(args []any) (any, error) {
			return typeOf(args[0]), nil
		}},
		{Name: FuncNameIsNil, MinArgs: 1, MaxArgs: 1, Fn: func(args []any) (any, error) {
			return args[0] == nil, nil
		}},
		{Name: FuncNameIsEmpty, MinArgs: 1, MaxArgs: 1, Fn: func(args []any) (any, error) {
			return isEmpty(args[0]), nil
		}},
		{Name: FuncNameDefault, MinArgs: 2, MaxArgs: 2, Fn: func(args []any) (any, error) {
			if isEmpty(args[0]) {
				return args[1], nil
			}
			return args[0], nil
		}},
		{Name: FuncNameCoalesce, MinArgs: 1, MaxArgs: -1, Fn: func(args []any) (any, error) {
			for _, arg := range args {
				if !isEmpty(arg) {
					return arg, nil
				}
			}
			return nil, nil
		}},
	}
}

func stringArg(funcName string, args []any, idx int) (string, error) {
	switch v := args[idx].(type) {
	case string:
		return v, nil
	case nil:
		return "", NewFuncTypeError(ErrMsgFuncExpectedString, funcName, idx)
	default:
		return Stringify(v), nil
	}
}

func lengthOf(v any) (int, error) {
	if s, ok := v.(string); ok {
		return len(s), nil
	}
	if items, ok := ToList(v); ok {
		return len(items), nil
	}
	if keys, ok := SortedKeys(v); ok {
		return len(keys), nil
	}
	return 0, NewFuncTypeError(ErrMsgFuncExpectedList, FuncNameLen, 0)
}

func listEnd(funcName string, v any, first bool) (any, error) {
	items, ok := ToList(v)
	if !ok {
		return nil, NewFuncTypeError(ErrMsgFuncExpectedList, funcName, 0)
	}
	if len(items) == 0 {
		return nil, nil
	}
	if first {
		return items[0], nil
	}
	return items[len(items)-1], nil
}

func typeOf(v any) string {
	switch v.(type) {
	case nil:
		return TypeNameNil
	case string:
		return TypeNameString
	case bool:
		return TypeNameBool
	}
	if isNumeric(v) {
		return TypeNameNumber
	}
	if _, ok := ToList(v); ok {
		return TypeNameList
	}
	if _, ok := SortedKeys(v); ok {
		return TypeNameMap
	}
	return TypeNameObject
}

// isTruthy is the truthiness used by the expression operators:
// nil, false, zero, and empty strings or collections are false.
func isTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	}
	if n, ok := ToNumber(v); ok && isNumeric(v) {
		return n != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// isEmpty reports nil, empty strings and empty collections
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	}
	return false
}
