package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/itsatony/go-paxml"
)

// validateConfig holds parsed validate command configuration
type validateConfig struct {
	documents stringList
	format    string
}

// validationOutput is the JSON form of a validation run
type validationOutput struct {
	Valid    bool                    `json:"valid"`
	Entities []string                `json:"entities,omitempty"`
	Issues   []validationIssueOutput `json:"issues,omitempty"`
}

type validationIssueOutput struct {
	Document string `json:"document"`
	Message  string `json:"message"`
}

func runValidate(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseValidateFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgMissingDocument, err)
		return ExitCodeUsageError
	}

	registry := paxml.MustNew().Registry()
	output := validationOutput{Valid: true}

	for _, src := range cfg.documents {
		data, err := readInput(src, stdin)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
			return ExitCodeInputError
		}
		entities, err := paxml.ParseDocuments(data, registry)
		if err != nil {
			output.Valid = false
			output.Issues = append(output.Issues, validationIssueOutput{Document: src, Message: err.Error()})
			continue
		}
		for _, e := range entities {
			output.Entities = append(output.Entities, e.Name())
		}
	}

	if cfg.format == OutputFormatJSON {
		jsonBytes, _ := json.MarshalIndent(output, "", "  ")
		fmt.Fprintln(stdout, string(jsonBytes))
	} else {
		for _, issue := range output.Issues {
			fmt.Fprintf(stdout, ValidationTextFailure+FmtNewline, issue.Document, issue.Message)
		}
		if output.Valid {
			fmt.Fprintf(stdout, ValidationTextSuccess+FmtNewline, len(output.Entities))
		}
	}

	if !output.Valid {
		return ExitCodeValidationError
	}
	return ExitCodeSuccess
}

func parseValidateFlags(args []string) (*validateConfig, error) {
	fs := flag.NewFlagSet(CmdNameValidate, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &validateConfig{}

	fs.Var(&cfg.documents, FlagDocument, "")
	fs.Var(&cfg.documents, FlagDocumentShort, "")
	fs.StringVar(&cfg.format, FlagFormat, FlagDefaultFormat, "")
	fs.StringVar(&cfg.format, FlagFormatShort, FlagDefaultFormat, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if len(cfg.documents) == 0 {
		return nil, errors.New(ErrMsgMissingDocument)
	}
	if cfg.format != OutputFormatText && cfg.format != OutputFormatJSON {
		return nil, errors.New(ErrMsgInvalidFormat)
	}
	return cfg, nil
}
