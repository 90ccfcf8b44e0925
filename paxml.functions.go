package paxml

import (
	"math/rand/v2"
	"time"

	"github.com/itsatony/go-paxml/internal"
)

// util function names
const (
	UtilFuncList              = "list"
	UtilFuncMap               = "map"
	UtilFuncHasConst          = "hasConst"
	UtilFuncGetConst          = "getConst"
	UtilFuncSetConst          = "setConst"
	UtilFuncSetConstForCaller = "setConstForCaller"
	UtilFuncConstNames        = "constNames"
	UtilFuncIn                = "in"
	UtilFuncCount             = "count"
	UtilFuncRandom            = "random"
	UtilFuncSystemTime        = "systemTime"
	UtilFuncToday             = "today"
	UtilFuncProcessID         = "processId"
)

const todayLayout = "2006-01-02"

// newUtilNamespace builds the util extension object of one chain. Every
// function reads the thread's current context at call time.
func newUtilNamespace(thread *Thread) *internal.FuncRegistry {
	u := &utilFuncs{thread: thread}
	r := internal.NewNamedFuncRegistry(UtilNamespace)
	r.MustRegister(&internal.Func{Name: UtilFuncList, MinArgs: 0, MaxArgs: -1, Fn: utilList})
	r.MustRegister(&internal.Func{Name: UtilFuncMap, MinArgs: 0, MaxArgs: -1, Fn: utilMap})
	r.MustRegister(&internal.Func{Name: UtilFuncHasConst, MinArgs: 1, MaxArgs: 1, Fn: u.hasConst})
	r.MustRegister(&internal.Func{Name: UtilFuncGetConst, MinArgs: 1, MaxArgs: 1, Fn: u.getConst})
	r.MustRegister(&internal.Func{Name: UtilFuncSetConst, MinArgs: 2, MaxArgs: 2, Fn: u.setConst})
	r.MustRegister(&internal.Func{Name: UtilFuncSetConstForCaller, MinArgs: 2, MaxArgs: 2, Fn: u.setConstForCaller})
	r.MustRegister(&internal.Func{Name: UtilFuncConstNames, MinArgs: 0, MaxArgs: 0, Fn: u.constNames})
	r.MustRegister(&internal.Func{Name: UtilFuncIn, MinArgs: 1, MaxArgs: -1, Fn: utilIn})
	r.MustRegister(&internal.Func{Name: UtilFuncCount, MinArgs: 1, MaxArgs: 1, Fn: utilCount})
	r.MustRegister(&internal.Func{Name: UtilFuncRandom, MinArgs: 0, MaxArgs: 1, Fn: utilRandom})
	r.MustRegister(&internal.Func{Name: UtilFuncSystemTime, MinArgs: 0, MaxArgs: 0, Fn: func([]any) (any, error) {
		return time.Now().UnixMilli(), nil
	}})
	r.MustRegister(&internal.Func{Name: UtilFuncToday, MinArgs: 0, MaxArgs: 0, Fn: func([]any) (any, error) {
		return time.Now().Format(todayLayout), nil
	}})
	r.MustRegister(&internal.Func{Name: UtilFuncProcessID, MinArgs: 0, MaxArgs: 0, Fn: u.processID})
	return r
}

type utilFuncs struct {
	thread *Thread
}

func (u *utilFuncs) current(fn string) (*Context, error) {
	c := u.thread.Current()
	if c == nil {
		return nil, NewUtilError(ErrMsgUtilNeedsContext, fn)
	}
	return c, nil
}

func (u *utilFuncs) hasConst(args []any) (any, error) {
	c, err := u.current(UtilFuncHasConst)
	if err != nil {
		return nil, err
	}
	return c.HasConst(Stringify(args[0]), true), nil
}

func (u *utilFuncs) getConst(args []any) (any, error) {
	c, err := u.current(UtilFuncGetConst)
	if err != nil {
		return nil, err
	}
	v, _ := c.Const(Stringify(args[0]), true)
	return v, nil
}

// setConst binds in the current entity's context so the value outlives
// closure scopes such as mutex bodies.
func (u *utilFuncs) setConst(args []any) (any, error) {
	c, err := u.current(UtilFuncSetConst)
	if err != nil {
		return nil, err
	}
	target := c.CurrentEntityContext()
	if target == nil {
		target = c
	}
	target.SetConst(Stringify(args[0]), args[1])
	return args[1], nil
}

func (u *utilFuncs) setConstForCaller(args []any) (any, error) {
	c, err := u.current(UtilFuncSetConstForCaller)
	if err != nil {
		return nil, err
	}
	caller := c.FindCallerContext()
	if caller == nil {
		return nil, NewUtilError(ErrMsgNoCaller, UtilFuncSetConstForCaller)
	}
	caller.SetConst(Stringify(args[0]), args[1])
	return args[1], nil
}

func (u *utilFuncs) constNames(_ []any) (any, error) {
	c, err := u.current(UtilFuncConstNames)
	if err != nil {
		return nil, err
	}
	names := sortedNames(c.ConstMap(true, true))
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out, nil
}

func (u *utilFuncs) processID(_ []any) (any, error) {
	c, err := u.current(UtilFuncProcessID)
	if err != nil {
		return nil, err
	}
	return c.ProcessID(), nil
}

func utilList(args []any) (any, error) {
	return append([]any{}, args...), nil
}

func utilMap(args []any) (any, error) {
	if len(args)%2 != 0 {
		return nil, NewUtilError(ErrMsgUtilBadArgs, UtilFuncMap)
	}
	out := make(map[string]any, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		out[Stringify(args[i])] = args[i+1]
	}
	return out, nil
}

// utilIn reports whether the first argument equals any other argument. A
// single list argument is searched element by element. Values compare by
// their string form.
func utilIn(args []any) (any, error) {
	needle := Stringify(args[0])
	candidates := args[1:]
	if len(candidates) == 1 {
		if v := ValueOf(candidates[0]); v.Kind() == KindList {
			candidates = v.Items()
		}
	}
	for _, c := range candidates {
		if c != nil && Stringify(c) == needle {
			return true, nil
		}
	}
	return false, nil
}

func utilCount(args []any) (any, error) {
	v := ValueOf(args[0])
	switch v.Kind() {
	case KindNull:
		return 0, nil
	case KindList:
		return len(v.Items()), nil
	case KindMap, KindObject:
		return len(v.Keys()), nil
	default:
		return 1, nil
	}
}

// utilRandom returns a float in [0, 1), or an int in [0, n) given n
func utilRandom(args []any) (any, error) {
	if len(args) == 0 {
		return rand.Float64(), nil
	}
	n, ok := internal.ToNumber(args[0])
	if !ok || int(n) <= 0 {
		return nil, NewUtilError(ErrMsgUtilBadArgs, UtilFuncRandom)
	}
	return rand.IntN(int(n)), nil
}
