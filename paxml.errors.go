package paxml

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/itsatony/go-cuserr"
	"github.com/itsatony/go-paxml/internal"
)

// Error message constants
const (
	// Context errors
	ErrMsgConstConflict    = "const already bound in this context"
	ErrMsgEmptyConstName   = "const name cannot be empty"
	ErrMsgNoCurrentTag     = "no tag is executing"
	ErrMsgNoCurrentContext = "no current context"

	// Registry errors
	ErrMsgUnknownTag     = "unknown tag"
	ErrMsgTagExists      = "tag already registered"
	ErrMsgLibraryExists  = "tag library already registered"
	ErrMsgInvalidTagDesc = "invalid tag descriptor"

	// Build errors
	ErrMsgCompileFailed    = "attribute expression failed to compile"
	ErrMsgUnbalancedClose  = "close without matching open"
	ErrMsgUnclosedTags     = "unclosed tags at build"
	ErrMsgMissingAttribute = "required attribute missing"
	ErrMsgInvalidAttribute = "invalid attribute value"
	ErrMsgIDNotSupported   = "tag does not support ids"
	ErrMsgEmptyEntityName  = "entity name cannot be empty"

	// Execution errors
	ErrMsgTagFailed          = "tag execution failed"
	ErrMsgIterateSource      = "iterate needs exactly one source"
	ErrMsgEntityNotFound     = "entity not found"
	ErrMsgEntityExists       = "entity already registered"
	ErrMsgParamOutsideCall   = "param used outside call"
	ErrMsgInvalidPathQuery   = "invalid path query"
	ErrMsgNotIntrospectable  = "value is not introspectable"
	ErrMsgCloseablesFailed   = "closing registered resources failed"
	ErrMsgDocumentInvalid    = "invalid entity document"
	ErrMsgDocumentEncode     = "entity document encoding failed"
	ErrMsgUtilNeedsContext   = "util function called without a current context"
	ErrMsgUtilBadArgs        = "invalid arguments"
	ErrMsgNoCaller           = "no caller context"
	ErrMsgConfigLoad         = "config loading failed"
	ErrMsgUnknownStorageType = "unknown storage driver"
)

// Error code constants for categorization
const (
	ErrCodeContext    = "PAXML_CONTEXT"
	ErrCodeRegistry   = "PAXML_REGISTRY"
	ErrCodeBuild      = "PAXML_BUILD"
	ErrCodeExec       = "PAXML_EXEC"
	ErrCodeValidation = "PAXML_VALIDATION"
	ErrCodeDocument   = "PAXML_DOCUMENT"
	ErrCodeStorage    = "PAXML_STORAGE"
	ErrCodeConfig     = "PAXML_CONFIG"
)

// Errors surfaced by the expression engine and the mutex registry
type (
	// UnresolvedError reports a strict reference to an unknown name
	UnresolvedError = internal.UnresolvedError
	// TemplateError reports a malformed ${} or ?{} template
	TemplateError = internal.TemplateError
	// MutexTimeoutError reports a mutex that could not be entered in time
	MutexTimeoutError = internal.MutexTimeoutError
)

// TagError wraps a fault raised while a tag was executing
type TagError struct {
	Tag    string
	Line   int
	Entity string
	Cause  error
}

// Error implements the error interface
func (e *TagError) Error() string {
	return fmt.Sprintf("%s: <%s> at %s:%d: %v", ErrMsgTagFailed, e.Tag, e.Entity, e.Line, e.Cause)
}

// Unwrap returns the underlying error
func (e *TagError) Unwrap() error {
	return e.Cause
}

// wrapTagError wraps err unless it already carries tag context, so the
// innermost tag is the one reported.
func wrapTagError(tag *Tag, err error) error {
	var tagErr *TagError
	if errors.As(err, &tagErr) {
		return err
	}
	return &TagError{Tag: tag.Name(), Line: tag.Line(), Entity: tag.Entity().Name(), Cause: err}
}

// NewConstConflictError creates an error for rebinding a locally bound const
func NewConstConflictError(name string) error {
	return cuserr.NewValidationError(ErrCodeContext, ErrMsgConstConflict).
		WithMetadata(MetaKeyConst, name)
}

// NewEmptyConstNameError creates an error for binding an empty name
func NewEmptyConstNameError() error {
	return cuserr.NewValidationError(ErrCodeContext, ErrMsgEmptyConstName)
}

// NewUnknownTagError creates an unknown tag error
func NewUnknownTagError(tagName string, line int) error {
	return cuserr.NewNotFoundError(MetaKeyTag, ErrMsgUnknownTag).
		WithMetadata(MetaKeyTag, tagName).
		WithMetadata(MetaKeyLine, strconv.Itoa(line))
}

// NewTagExistsError creates a tag registration collision error
func NewTagExistsError(tagName string) error {
	return cuserr.NewValidationError(ErrCodeRegistry, ErrMsgTagExists).
		WithMetadata(MetaKeyTag, tagName)
}

// NewLibraryExistsError creates a tag library collision error
func NewLibraryExistsError(name string) error {
	return cuserr.NewValidationError(ErrCodeRegistry, ErrMsgLibraryExists).
		WithMetadata(MetaKeyLibrary, name)
}

// NewCompileError creates an error for an attribute that failed to compile
func NewCompileError(tagName, attr string, line int, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeBuild, ErrMsgCompileFailed).
		WithMetadata(MetaKeyTag, tagName).
		WithMetadata(MetaKeyAttribute, attr).
		WithMetadata(MetaKeyLine, strconv.Itoa(line))
}

// NewBuildError creates a structural entity build error
func NewBuildError(msg, tagName string, line int) error {
	return cuserr.NewValidationError(ErrCodeBuild, msg).
		WithMetadata(MetaKeyTag, tagName).
		WithMetadata(MetaKeyLine, strconv.Itoa(line))
}

// NewMissingAttributeError creates a missing required attribute error
func NewMissingAttributeError(attrName, tagName string) error {
	return cuserr.NewValidationError(ErrCodeValidation, ErrMsgMissingAttribute).
		WithMetadata(MetaKeyAttribute, attrName).
		WithMetadata(MetaKeyTag, tagName)
}

// NewInvalidAttributeError creates an invalid attribute value error
func NewInvalidAttributeError(attrName, value, reason string) error {
	return cuserr.NewValidationError(ErrCodeValidation, ErrMsgInvalidAttribute).
		WithMetadata(MetaKeyAttribute, attrName).
		WithMetadata(MetaKeyValue, value).
		WithMetadata(MetaKeyReason, reason)
}

// NewIterateSourceError creates an error for an iterate tag without exactly one source
func NewIterateSourceError(count int) error {
	return cuserr.NewValidationError(ErrCodeValidation, ErrMsgIterateSource).
		WithMetadata(MetaKeyValue, strconv.Itoa(count))
}

// NewEntityNotFoundError creates an error for a missing invocation target
func NewEntityNotFoundError(name string) error {
	return cuserr.NewNotFoundError(MetaKeyEntity, ErrMsgEntityNotFound).
		WithMetadata(MetaKeyTarget, name)
}

// NewEntityExistsError creates a duplicate entity registration error
func NewEntityExistsError(name string) error {
	return cuserr.NewValidationError(ErrCodeRegistry, ErrMsgEntityExists).
		WithMetadata(MetaKeyEntity, name)
}

// NewDocumentError creates an entity document error
func NewDocumentError(msg string, cause error) error {
	if cause == nil {
		return cuserr.NewValidationError(ErrCodeDocument, msg)
	}
	return cuserr.WrapStdError(cause, ErrCodeDocument, msg)
}

// NewUtilError creates an error for a util namespace function
func NewUtilError(msg, funcName string) error {
	return cuserr.NewValidationError(ErrCodeExec, msg).
		WithMetadata(MetaKeyTarget, funcName)
}

// NewConfigError creates a configuration loading error
func NewConfigError(path string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeConfig, ErrMsgConfigLoad).
		WithMetadata(MetaKeyPath, path)
}
