package paxml

import "context"

// Thread is the ambient handle of one Context chain. It records which
// Context is current so code reached without an explicit Context, such as
// extension functions, can find the active scope. A Thread belongs to the
// goroutine driving its chain.
type Thread struct {
	current *Context
}

// Current returns the current context of the thread
func (t *Thread) Current() *Context {
	if t == nil {
		return nil
	}
	return t.current
}

// Thread returns the ambient handle of the chain
func (c *Context) Thread() *Thread { return c.shared.thread }

// SetAsCurrent makes c the current context of its thread and returns a
// function restoring the previous one. Use it with defer:
//
//	defer sub.SetAsCurrent()()
func (c *Context) SetAsCurrent() (restore func()) {
	t := c.shared.thread
	prev := t.current
	t.current = c
	return func() { t.current = prev }
}

// Current returns the current context of c's thread
func (c *Context) Current() *Context {
	return c.shared.thread.current
}

type threadKey struct{}

// WithContext returns a copy of ctx carrying the thread of c. The Context
// read back through CurrentContext is always the thread's current one.
func WithContext(ctx context.Context, c *Context) context.Context {
	return context.WithValue(ctx, threadKey{}, c.shared.thread)
}

// CurrentContext returns the current Paxml context of the thread carried by
// ctx, or nil.
func CurrentContext(ctx context.Context) *Context {
	t, _ := ctx.Value(threadKey{}).(*Thread)
	return t.Current()
}
