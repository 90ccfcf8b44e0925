package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/itsatony/go-paxml"
	"go.uber.org/multierr"
)

// runConfig holds parsed run command configuration
type runConfig struct {
	documents  stringList
	entity     string
	configPath string
	propsJSON  string
	propsFile  string
	outputPath string
	format     string
	quiet      bool
}

func runRun(args []string, stdin io.Reader, stdout, stderr io.Writer) (code int) {
	cfg, err := parseRunFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgMissingDocument, err)
		return ExitCodeUsageError
	}

	fileCfg, err := loadConfig(cfg.configPath)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgConfigFailed, err)
		return ExitCodeInputError
	}
	sources := documentSources(fileCfg, cfg.documents)
	if len(sources) == 0 && cfg.entity == "" {
		fmt.Fprintln(stderr, ErrMsgMissingDocument)
		return ExitCodeUsageError
	}

	props, err := loadProps(fileCfg, cfg.propsJSON, cfg.propsFile)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidProps, err)
		return ExitCodeInputError
	}

	engine, storage, err := newEngine(fileCfg, stdout)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgEngineFailed, err)
		return ExitCodeError
	}
	if storage != nil {
		defer func() {
			if cerr := storage.Close(); cerr != nil && code == ExitCodeSuccess {
				fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgExecuteFailed, cerr)
				code = ExitCodeError
			}
		}()
	}

	first, code := addDocuments(engine, sources, stdin, stderr)
	if code != ExitCodeSuccess {
		return code
	}

	name := cfg.entity
	if name == "" {
		if first == nil {
			fmt.Fprintln(stderr, ErrMsgNoEntities)
			return ExitCodeInputError
		}
		name = first.Name()
	}

	result, err := engine.Run(context.Background(), name, props)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgExecuteFailed, err)
		return ExitCodeError
	}
	if cfg.quiet {
		return ExitCodeSuccess
	}

	out, err := formatResult(result, cfg.format)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWriteOutputFailed, err)
		return ExitCodeError
	}
	if err := writeOutput(cfg.outputPath, out, stdout); err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWriteOutputFailed, err)
		return ExitCodeError
	}
	return ExitCodeSuccess
}

func parseRunFlags(args []string) (*runConfig, error) {
	fs := flag.NewFlagSet(CmdNameRun, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &runConfig{}

	fs.Var(&cfg.documents, FlagDocument, "")
	fs.Var(&cfg.documents, FlagDocumentShort, "")
	fs.StringVar(&cfg.entity, FlagEntity, "", "")
	fs.StringVar(&cfg.entity, FlagEntityShort, "", "")
	fs.StringVar(&cfg.configPath, FlagConfig, "", "")
	fs.StringVar(&cfg.configPath, FlagConfigShort, "", "")
	fs.StringVar(&cfg.propsJSON, FlagProps, "", "")
	fs.StringVar(&cfg.propsJSON, FlagPropsShort, "", "")
	fs.StringVar(&cfg.propsFile, FlagPropFile, "", "")
	fs.StringVar(&cfg.propsFile, FlagPropFileShort, "", "")
	fs.StringVar(&cfg.outputPath, FlagOutput, FlagDefaultOutput, "")
	fs.StringVar(&cfg.outputPath, FlagOutputShort, FlagDefaultOutput, "")
	fs.StringVar(&cfg.format, FlagFormat, FlagDefaultFormat, "")
	fs.StringVar(&cfg.format, FlagFormatShort, FlagDefaultFormat, "")
	fs.BoolVar(&cfg.quiet, FlagQuiet, false, "")
	fs.BoolVar(&cfg.quiet, FlagQuietShort, false, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.format != OutputFormatText && cfg.format != OutputFormatJSON {
		return nil, errors.New(ErrMsgInvalidFormat)
	}
	return cfg, nil
}

// newEngine builds an engine from the config file. Print tags write to
// stdout.
func newEngine(cfg *paxml.EngineConfigFile, stdout io.Writer) (*paxml.Engine, paxml.EntityStorage, error) {
	logger, err := cfg.Logger()
	if err != nil {
		return nil, nil, err
	}
	opts, storage, err := cfg.Options(logger)
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts, paxml.WithOutput(stdout))

	engine, err := paxml.New(opts...)
	if err != nil {
		if storage != nil {
			err = multierr.Append(err, storage.Close())
		}
		return nil, nil, err
	}
	return engine, storage, nil
}

// addDocuments parses every source into the engine and returns the first
// entity seen.
func addDocuments(engine *paxml.Engine, sources []string, stdin io.Reader, stderr io.Writer) (*paxml.Entity, int) {
	var first *paxml.Entity
	for _, src := range sources {
		data, err := readInput(src, stdin)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
			return nil, ExitCodeInputError
		}
		entities, err := engine.AddDocument(data)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgParseFailed, err)
			return nil, ExitCodeValidationError
		}
		if first == nil && len(entities) > 0 {
			first = entities[0]
		}
	}
	return first, ExitCodeSuccess
}

func formatResult(result any, format string) ([]byte, error) {
	if format == OutputFormatJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	}

	if list, ok := result.(paxml.ResultList); ok {
		lines := make([]string, len(list))
		for i, item := range list {
			lines[i] = paxml.Stringify(item)
		}
		return []byte(strings.Join(lines, FmtNewline) + FmtNewline), nil
	}
	if result == nil {
		return nil, nil
	}
	return []byte(paxml.Stringify(result) + FmtNewline), nil
}
