package paxml

import (
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Flusher is implemented by closeables that buffer output
type Flusher interface {
	Flush() error
}

type closeables struct {
	items []io.Closer
}

// RegisterCloseable records resources on the root. They are closed when the
// top-level entity finishes, whatever the outcome.
func (c *Context) RegisterCloseable(cs ...io.Closer) {
	for _, closer := range cs {
		if closer != nil {
			c.shared.closeables.items = append(c.shared.closeables.items, closer)
		}
	}
}

// CloseAll flushes and closes every registered resource in registration
// order. Every resource is attempted; the failures are combined.
func (c *Context) CloseAll() error {
	items := c.shared.closeables.items
	c.shared.closeables.items = nil

	var err error
	for _, closer := range items {
		if f, ok := closer.(Flusher); ok {
			err = multierr.Append(err, f.Flush())
		}
		err = multierr.Append(err, closer.Close())
	}
	if err != nil {
		c.shared.logger.Warn(LogMsgCloseFailed, zap.Error(err))
	}
	return err
}
