package paxml

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMutexTag_TimeoutWhileHeld(t *testing.T) {
	engine, _ := newTestEngine(t)
	entered := make(chan struct{})
	registerRecordTag(t, engine, "hold", func(_ *Context, _ *Tag) (any, error) {
		close(entered)
		time.Sleep(200 * time.Millisecond)
		return "held", nil
	})
	addEntity(t, engine, "holder", func(b *EntityBuilder) {
		b.Open(TagNameMutex).Attr(AttrName, "shared").
			Leaf("hold").
			Close()
	})
	addEntity(t, engine, "contender", func(b *EntityBuilder) {
		b.Open(TagNameMutex).Attr(AttrName, "shared").Attr(AttrTimeout, "50").
			Leaf(TagNameData, AttrValue, "got it").
			Close()
	})

	var wg sync.WaitGroup
	var holderResult any
	var holderErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		holderResult, holderErr = engine.Run(context.Background(), "holder", nil)
	}()
	<-entered

	start := time.Now()
	_, err := engine.Run(context.Background(), "contender", nil)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 180*time.Millisecond)

	var timeoutErr *MutexTimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.Equal(t, "shared", timeoutErr.Name)
	assert.Equal(t, 50*time.Millisecond, timeoutErr.Timeout)

	wg.Wait()
	require.NoError(t, holderErr)
	assert.Equal(t, ResultList{"held"}, holderResult)

	result, err := engine.Run(context.Background(), "contender", nil)
	require.NoError(t, err)
	assert.Equal(t, ResultList{"got it"}, result)
}

func TestMutexTag_WaitsForRelease(t *testing.T) {
	engine, _ := newTestEngine(t, WithMutexTimeout(2*time.Second))
	entered := make(chan struct{})
	var mu sync.Mutex
	var order []string
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, s)
	}
	registerRecordTag(t, engine, "hold", func(_ *Context, _ *Tag) (any, error) {
		close(entered)
		time.Sleep(50 * time.Millisecond)
		record("holder")
		return nil, nil
	})
	registerRecordTag(t, engine, "mark", func(_ *Context, _ *Tag) (any, error) {
		record("waiter")
		return nil, nil
	})
	addEntity(t, engine, "holder", func(b *EntityBuilder) {
		b.Open(TagNameMutex).Leaf("hold").Close()
	})
	addEntity(t, engine, "waiter", func(b *EntityBuilder) {
		b.Open(TagNameMutex).Leaf("mark").Close()
	})

	done := make(chan error, 1)
	go func() {
		_, err := engine.Run(context.Background(), "holder", nil)
		done <- err
	}()
	<-entered

	_, err := engine.Run(context.Background(), "waiter", nil)
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"holder", "waiter"}, order)
}

func TestMutexTag_Reentrant(t *testing.T) {
	engine, _ := newTestEngine(t)
	addEntity(t, engine, "inner", func(b *EntityBuilder) {
		b.Open(TagNameMutex).Attr(AttrName, "m").Attr(AttrTimeout, "10").
			Leaf(TagNameData, AttrValue, "inner").
			Close()
	})
	addEntity(t, engine, "main", func(b *EntityBuilder) {
		b.Open(TagNameMutex).Attr(AttrName, "m").
			Open(TagNameMutex).Attr(AttrName, "m").Attr(AttrTimeout, "10").
			Leaf(TagNameData, AttrValue, "nested").
			Close().
			Leaf(TagNameCall, AttrTarget, "inner").
			Close()
	})

	result, err := engine.Run(context.Background(), "main", nil)
	require.NoError(t, err)
	assert.Equal(t, ResultList{"nested", "inner"}, result)

	lock, ok := engine.Mutexes().Get("m")
	require.True(t, ok)
	assert.Zero(t, lock.HoldCount())
}

func TestMutexTag_ChildContextIsCurrent(t *testing.T) {
	engine, _ := newTestEngine(t)
	var outer, inner *Context
	registerRecordTag(t, engine, "outer", func(ctx *Context, _ *Tag) (any, error) {
		outer = ctx.Current()
		return nil, nil
	})
	registerRecordTag(t, engine, "inner", func(ctx *Context, _ *Tag) (any, error) {
		inner = ctx.Current()
		require.NoError(t, ctx.AddConst("scoped", true))
		return nil, nil
	})
	addEntity(t, engine, "main", func(b *EntityBuilder) {
		b.Leaf("outer").
			Open(TagNameMutex).Leaf("inner").Close().
			Leaf(TagNameExpression, AttrValue, "?{scoped}")
	})

	result, err := engine.Run(context.Background(), "main", nil)
	require.NoError(t, err)
	require.NotNil(t, inner)
	assert.Equal(t, outer, inner.Parent())
	assert.Nil(t, result, "consts of the mutex body stay in its child context")
}

func TestMutexTag_InvalidTimeout(t *testing.T) {
	engine, _ := newTestEngine(t)
	addEntity(t, engine, "main", func(b *EntityBuilder) {
		b.Open(TagNameMutex).Attr(AttrTimeout, "soon").
			Leaf(TagNameData, AttrValue, "x").
			Close()
	})

	_, err := engine.Run(context.Background(), "main", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgInvalidAttribute)
	assert.Equal(t, 0, engine.Mutexes().Count(), "no lock is created before the timeout is valid")
}

func TestMutexTag_Logs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	engine, _ := newTestEngine(t, WithLogger(zap.New(core)))
	addEntity(t, engine, "main", func(b *EntityBuilder) {
		b.Open(TagNameMutex).Attr(AttrName, "audit").
			Leaf(TagNameData, AttrValue, "x").
			Close()
	})

	_, err := engine.Run(context.Background(), "main", nil)
	require.NoError(t, err)

	mutexLogs := logs.FilterField(zap.String(LogFieldMutex, "audit")).All()
	require.Len(t, mutexLogs, 3)
	assert.Equal(t, LogMsgMutexWaiting, mutexLogs[0].Message)
	assert.Equal(t, LogMsgMutexEntered, mutexLogs[1].Message)
	assert.Equal(t, LogMsgMutexExited, mutexLogs[2].Message)
}
