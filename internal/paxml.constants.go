package internal

// Template marker constants
const (
	// MarkerStrict opens an evaluable part that fails on unresolved names
	MarkerStrict = "${"
	// MarkerLenient opens an evaluable part that yields nil for unresolved names
	MarkerLenient = "?{"
	// MarkerClose closes either kind of evaluable part
	MarkerClose = '}'
	// MarkerEscape doubles a marker's first character to emit it literally
	MarkerEscape = '$'
)

// Path constants
const (
	// PathSeparator separates member segments in identifiers and selectors
	PathSeparator = "."
	// PathWildcard matches every element of a list or map level in a selector
	PathWildcard = "*"
)

// Template error messages
const (
	ErrMsgTemplateUnclosed  = "unclosed expression marker"
	ErrMsgTemplateEmptyBody = "empty expression body"
	ErrMsgTemplateBadBody   = "invalid expression body"
)

// Mutex registry constants
const (
	// MutexDefaultName is used when a mutex tag has no name attribute
	MutexDefaultName = ""
	// lockWeight is the semaphore weight held by a lock owner
	lockWeight int64 = 1
)

// Mutex error messages
const (
	ErrMsgMutexTimeout      = "Cannot enter mutex after waiting for %d ms, mutex name: %s"
	ErrMsgMutexNotHeld      = "mutex is not held by caller"
	ErrMsgMutexNilOwner     = "mutex owner cannot be nil"
	ErrMsgMutexAcquireAbort = "mutex acquisition aborted"
)

// Log message constants for the internal package
const (
	LogMsgMutexCreated = "mutex created"
	LogMsgFuncRejected = "function registration rejected"
)

// Log field constants for the internal package
const (
	LogFieldMutex    = "mutex"
	LogFieldFunction = "function"
	LogFieldError    = "error"
)
