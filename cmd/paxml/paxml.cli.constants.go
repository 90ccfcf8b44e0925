package main

// Command names
const (
	CmdNameRun      = "run"
	CmdNameValidate = "validate"
	CmdNameStore    = "store"
	CmdNameVersion  = "version"
	CmdNameHelp     = "help"
)

// Flag names - long form
const (
	FlagDocument = "document"
	FlagEntity   = "entity"
	FlagConfig   = "config"
	FlagProps    = "props"
	FlagPropFile = "props-file"
	FlagOutput   = "output"
	FlagFormat   = "format"
	FlagQuiet    = "quiet"
)

// Flag names - short form
const (
	FlagDocumentShort = "D"
	FlagEntityShort   = "e"
	FlagConfigShort   = "c"
	FlagPropsShort    = "p"
	FlagPropFileShort = "f"
	FlagOutputShort   = "o"
	FlagFormatShort   = "F"
	FlagQuietShort    = "q"
)

// Flag default values
const (
	FlagDefaultOutput = "-"
	FlagDefaultFormat = "text"
)

// Output formats
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
)

// Exit codes
const (
	ExitCodeSuccess         = 0
	ExitCodeError           = 1
	ExitCodeUsageError      = 2
	ExitCodeValidationError = 3
	ExitCodeInputError      = 4
)

// Input source indicators
const (
	InputSourceStdin = "-"
)

// Error messages
const (
	ErrMsgUnknownCommand    = "unknown command"
	ErrMsgMissingDocument   = "entity document required"
	ErrMsgReadFileFailed    = "failed to read file"
	ErrMsgInvalidProps      = "invalid properties"
	ErrMsgConfigFailed      = "failed to load config"
	ErrMsgEngineFailed      = "failed to create engine"
	ErrMsgParseFailed       = "entity document parsing failed"
	ErrMsgExecuteFailed     = "entity execution failed"
	ErrMsgWriteOutputFailed = "failed to write output"
	ErrMsgInvalidFormat     = "invalid output format"
	ErrMsgNoEntities        = "document contains no entities"
	ErrMsgNoStorage         = "config selects no storage driver"
	ErrMsgStoreFailed       = "failed to store entity"
)

// Help text
const (
	HelpMainUsage = `go-paxml - Paxml tag script runtime CLI

Usage:
    paxml <command> [options]

Commands:
    run         Run an entity from YAML entity documents
    validate    Build entity documents without executing them
    store       Save entity documents to the configured storage
    version     Show version information
    help        Show help for a command

Use "paxml help <command>" for more information about a command.`

	HelpRunUsage = `Run an entity from YAML entity documents

Usage:
    paxml run [options]

Options:
    -D, --document <file>    Entity document (repeatable, "-" for stdin)
    -e, --entity <name>      Entity to run (default: first entity of the first document)
    -c, --config <file>      Engine config file
    -p, --props <json>       JSON object of root properties
    -f, --props-file <file>  YAML or JSON file of root properties
    -o, --output <file>      Result output file (default: stdout)
    -F, --format <format>    Result format: text, json (default: text)
    -q, --quiet              Do not write the result

Examples:
    paxml run -D greet.yaml -p '{"people": ["Alice", "Bob"]}'
    paxml run -c paxml.yaml -e main -F json`

	HelpValidateUsage = `Build entity documents without executing them

Usage:
    paxml validate [options]

Options:
    -D, --document <file>   Entity document (repeatable, "-" for stdin)
    -F, --format <format>   Output format: text, json (default: text)

Examples:
    paxml validate -D greet.yaml
    cat greet.yaml | paxml validate -D -`

	HelpStoreUsage = `Save entity documents to the configured storage

Usage:
    paxml store [options]

Options:
    -c, --config <file>     Engine config file selecting the storage
    -D, --document <file>   Entity document (repeatable, "-" for stdin)

Examples:
    paxml store -c paxml.yaml -D lib.yaml`

	HelpVersionUsage = `Show version information

Usage:
    paxml version [options]

Options:
    -F, --format <format>   Output format: text, json (default: text)`

	HelpHelpUsage = `Show help for a command

Usage:
    paxml help [command]

Commands:
    run         Show help for run command
    validate    Show help for validate command
    store       Show help for store command
    version     Show help for version command`
)

// Version output
const (
	VersionTextTemplate = "go-paxml version %s\nCommit: %s\nBranch: %s\nBuilt: %s\nGo: %s"
	VersionUnknown      = "unknown"
)

// Validation output
const (
	ValidationTextSuccess = "%d entities valid"
	ValidationTextFailure = "invalid: %s: %v"
	StoreTextSaved        = "stored %s version %d"
)

// File permission constant
const (
	FilePermissions = 0644
)

// Format string constants
const (
	FmtErrorWithDetail = "%s: %s\n"
	FmtErrorWithCause  = "%s: %v\n"
	FmtNewline         = "\n"
)

// CLI metadata
const (
	CLIName        = "paxml"
	CLIDescription = "Paxml tag script runtime CLI"
)
