package internal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuncRegistry_Register(t *testing.T) {
	r := NewFuncRegistry()

	require.NoError(t, r.Register(&Func{Name: "one", Fn: func([]any) (any, error) { return 1, nil }}))
	assert.True(t, r.Has("one"))
	assert.Equal(t, 1, r.Count())

	err := r.Register(&Func{Name: "one", Fn: func([]any) (any, error) { return 2, nil }})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgFuncAlreadyExists)

	// first registration wins
	out, err := r.Call("one", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, out)

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(&Func{}))
}

func TestFuncRegistry_Call_ArgCount(t *testing.T) {
	r := NewNamedFuncRegistry("ns")
	r.MustRegister(&Func{Name: "pair", MinArgs: 2, MaxArgs: 2, Fn: func(args []any) (any, error) { return args, nil }})

	_, err := r.Call("pair", []any{1})
	var argErr *FuncArgError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, "ns.pair", argErr.FuncName)
	assert.Equal(t, 2, argErr.Expected)
	assert.Equal(t, 1, argErr.Actual)

	_, err = r.Call("pair", []any{1, 2, 3})
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, ErrMsgFuncTooManyArgs, argErr.Message)

	_, err = r.Call("missing", nil)
	var fnErr *FuncError
	require.True(t, errors.As(err, &fnErr))
	assert.Equal(t, "ns.missing", fnErr.FuncName)
}

func TestFuncRegistry_Call_WrapsFailure(t *testing.T) {
	cause := errors.New("boom")
	r := NewFuncRegistry()
	r.MustRegister(&Func{Name: "fail", MaxArgs: -1, Fn: func([]any) (any, error) { return nil, cause }})

	_, err := r.Call("fail", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}

func TestBuiltinFuncs(t *testing.T) {
	r := NewBuiltinFuncRegistry()

	tests := []struct {
		name     string
		fn       string
		args     []any
		expected any
	}{
		{"upper", FuncNameUpper, []any{"abc"}, "ABC"},
		{"lower", FuncNameLower, []any{"ABC"}, "abc"},
		{"trim", FuncNameTrim, []any{"  x "}, "x"},
		{"hasPrefix", FuncNameHasPrefix, []any{"paxml", "pax"}, true},
		{"hasSuffix", FuncNameHasSuffix, []any{"paxml", "ml"}, true},
		{"replace", FuncNameReplace, []any{"a-b-c", "-", "+"}, "a+b+c"},
		{"split", FuncNameSplit, []any{"a,b", ","}, []any{"a", "b"}},
		{"join", FuncNameJoin, []any{[]any{"a", 1.0, true}, "|"}, "a|1|true"},
		{"contains string", FuncNameContains, []any{"hello", "ell"}, true},
		{"contains list", FuncNameContains, []any{[]any{1, 2}, 2.0}, true},
		{"len string", FuncNameLen, []any{"four"}, 4},
		{"len map", FuncNameLen, []any{map[string]any{"a": 1}}, 1},
		{"first", FuncNameFirst, []any{[]any{"x", "y"}}, "x"},
		{"last", FuncNameLast, []any{[]any{"x", "y"}}, "y"},
		{"first empty", FuncNameFirst, []any{[]any{}}, nil},
		{"keys natural order", FuncNameKeys, []any{map[string]any{"k10": 1, "k2": 2, "k1": 3}}, []any{"k1", "k2", "k10"}},
		{"values", FuncNameValues, []any{map[string]any{"b": 2, "a": 1}}, []any{1, 2}},
		{"has", FuncNameHas, []any{map[string]any{"a": nil}, "a"}, true},
		{"has missing", FuncNameHas, []any{map[string]any{}, "a"}, false},
		{"toString", FuncNameToString, []any{2.0}, "2"},
		{"toInt", FuncNameToInt, []any{"12"}, 12},
		{"toFloat", FuncNameToFloat, []any{3}, 3.0},
		{"toBool string", FuncNameToBool, []any{"true"}, true},
		{"toBool value", FuncNameToBool, []any{0}, false},
		{"typeOf list", FuncNameTypeOf, []any{[]string{"a"}}, TypeNameList},
		{"typeOf number", FuncNameTypeOf, []any{1}, TypeNameNumber},
		{"isNil", FuncNameIsNil, []any{nil}, true},
		{"isEmpty", FuncNameIsEmpty, []any{""}, true},
		{"default", FuncNameDefault, []any{"", "fallback"}, "fallback"},
		{"coalesce", FuncNameCoalesce, []any{nil, "", "x", "y"}, "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Call(tt.fn, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestBuiltinFuncs_TypeErrors(t *testing.T) {
	r := NewBuiltinFuncRegistry()

	_, err := r.Call(FuncNameUpper, []any{nil})
	var typeErr *FuncTypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, FuncNameUpper, typeErr.FuncName)

	_, err = r.Call(FuncNameJoin, []any{"notalist", ","})
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, ErrMsgFuncExpectedList, typeErr.Message)

	_, err = r.Call(FuncNameToInt, []any{"abc"})
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, ErrMsgFuncConversionFailed, typeErr.Message)
}
