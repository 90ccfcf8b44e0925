package paxml

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// mutexTag runs its children while holding the named process-wide lock.
// The lock is reentrant for the chain that holds it.
type mutexTag struct{}

func (mutexTag) Execute(ctx *Context, tag *Tag) (any, error) {
	name, err := tag.EvalString(ctx, AttrName, DefaultMutexName)
	if err != nil {
		return nil, err
	}
	timeout, err := mutexTimeout(ctx, tag)
	if err != nil {
		return nil, err
	}

	e := ctx.engine()
	lock := e.mutexes.GetOrCreate(name)
	owner := ctx.Thread()
	logger := ctx.Logger().With(zap.String(LogFieldMutex, name))

	logger.Info(LogMsgMutexWaiting, zap.Duration(LogFieldTimeout, timeout))
	if err := lock.Lock(ctx.GoContext(), owner, timeout); err != nil {
		return nil, err
	}
	logger.Info(LogMsgMutexEntered)
	defer func() {
		if err := lock.Unlock(owner); err != nil {
			logger.Warn(LogMsgMutexExited, zap.Error(err))
			return
		}
		logger.Info(LogMsgMutexExited)
	}()

	child := ctx.NewChild()
	defer child.SetAsCurrent()()

	results, err := tag.ExecuteChildren(child)
	if err != nil {
		return nil, err
	}
	return results.OrNil(), nil
}

func mutexTimeout(ctx *Context, tag *Tag) (time.Duration, error) {
	if !tag.HasAttr(AttrTimeout) {
		return ctx.engine().mutexTimeout, nil
	}
	s, err := tag.EvalString(ctx, AttrTimeout, "")
	if err != nil {
		return 0, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ctx.engine().mutexTimeout, nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, NewInvalidAttributeError(AttrTimeout, s, err.Error())
	}
	return time.Duration(ms) * time.Millisecond, nil
}
