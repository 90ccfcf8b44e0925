package paxml

import (
	"github.com/itsatony/go-paxml/internal"
	"go.uber.org/zap"
)

type (
	// MutexRegistry maps names to fair reentrant locks. Every engine shares
	// DefaultMutexRegistry unless configured with WithMutexRegistry.
	MutexRegistry = internal.MutexRegistry
	// ReentrantLock is one named lock of a MutexRegistry
	ReentrantLock = internal.ReentrantLock
)

// NewMutexRegistry creates an isolated registry
func NewMutexRegistry(logger *zap.Logger) *MutexRegistry {
	return internal.NewMutexRegistry(logger)
}

// DefaultMutexRegistry returns the process-wide registry
func DefaultMutexRegistry() *MutexRegistry {
	return internal.DefaultMutexRegistry()
}
