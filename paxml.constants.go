package paxml

import "time"

// Core tag names
const (
	TagNameGroup      = "group"
	TagNameIf         = "if"
	TagNameElse       = "else"
	TagNameIterate    = "iterate"
	TagNameMutex      = "mutex"
	TagNameConst      = "const"
	TagNameData       = "data"
	TagNameExpression = "expression"
	TagNameCall       = "call"
	TagNameParam      = "param"
	TagNameReturn     = "return"
	TagNameExit       = "exit"
	TagNamePrint      = "print"
)

// Attribute name constants
const (
	AttrIf      = "if"
	AttrUnless  = "unless"
	AttrTest    = "test"
	AttrValue   = "value"
	AttrName    = "name"
	AttrTimeout = "timeout"
	AttrTarget  = "target"

	// iterate sources
	AttrList   = "list"
	AttrMap    = "map"
	AttrBean   = "bean"
	AttrPath   = "path"
	AttrTimes  = "times"
	AttrValues = "values"

	// iterate variable names
	AttrVar   = "var"
	AttrIndex = "index"
)

// Defaults
const (
	DefaultVarName       = "var"
	DefaultIndexName     = "index"
	DefaultKeyName       = "name"
	DefaultParameterName = "value"
	DefaultMutexName     = ""
	DefaultMutexTimeout  = 120000 * time.Millisecond

	CoreLibraryName = "core"
	UtilNamespace   = "util"
)

// Path separator for dotted selectors
const (
	PathSeparator = "."
	PathWildcard  = "*"
)

// Log messages
const (
	LogMsgTagEntry         = "tag entry"
	LogMsgTagExit          = "tag exit"
	LogMsgTagSkipped       = "tag skipped"
	LogMsgEntityStart      = "entity started"
	LogMsgEntityEnd        = "entity finished"
	LogMsgMutexWaiting     = "waiting for mutex"
	LogMsgMutexEntered     = "mutex entered"
	LogMsgMutexExited      = "mutex exited"
	LogMsgProviderCached   = "extension provider cached"
	LogMsgCloseFailed      = "closing resources failed"
	LogMsgLibraryConflict  = "tag already registered by another library"
	LogMsgStorageCacheHit  = "entity cache hit"
	LogMsgStorageCacheMiss = "entity cache miss"
)

// Log field keys
const (
	LogFieldTag       = "tag"
	LogFieldEntity    = "entity"
	LogFieldLine      = "line"
	LogFieldDepth     = "depth"
	LogFieldMutex     = "mutex"
	LogFieldTimeout   = "timeout"
	LogFieldName      = "name"
	LogFieldLibrary   = "library"
	LogFieldProcessID = "process_id"
	LogFieldDuration  = "duration"
	LogFieldError     = "error"
)

// Metadata key constants for error context
const (
	MetaKeyTag       = "tag"
	MetaKeyLine      = "line"
	MetaKeyEntity    = "entity"
	MetaKeyConst     = "const"
	MetaKeyAttribute = "attribute"
	MetaKeyValue     = "value"
	MetaKeyReason    = "reason"
	MetaKeyLibrary   = "library"
	MetaKeyTarget    = "target"
	MetaKeyDriver    = "driver"
	MetaKeyPath      = "path"
)
