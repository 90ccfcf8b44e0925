package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
)

// storeConfig holds parsed store command configuration
type storeConfig struct {
	configPath string
	documents  stringList
}

func runStore(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseStoreFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgMissingDocument, err)
		return ExitCodeUsageError
	}

	fileCfg, err := loadConfig(cfg.configPath)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgConfigFailed, err)
		return ExitCodeInputError
	}
	if fileCfg.Storage.Driver == "" {
		fmt.Fprintln(stderr, ErrMsgNoStorage)
		return ExitCodeUsageError
	}

	engine, storage, err := newEngine(fileCfg, io.Discard)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgEngineFailed, err)
		return ExitCodeError
	}
	defer storage.Close()

	ctx := context.Background()
	for _, src := range cfg.documents {
		data, err := readInput(src, stdin)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
			return ExitCodeInputError
		}
		entities, err := engine.AddDocument(data)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgParseFailed, err)
			return ExitCodeValidationError
		}
		for _, e := range entities {
			stored, err := engine.SaveEntity(ctx, e, map[string]string{"source": src})
			if err != nil {
				fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgStoreFailed, err)
				return ExitCodeError
			}
			fmt.Fprintf(stdout, StoreTextSaved+FmtNewline, stored.Name, stored.Version)
		}
	}
	return ExitCodeSuccess
}

func parseStoreFlags(args []string) (*storeConfig, error) {
	fs := flag.NewFlagSet(CmdNameStore, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &storeConfig{}

	fs.StringVar(&cfg.configPath, FlagConfig, "", "")
	fs.StringVar(&cfg.configPath, FlagConfigShort, "", "")
	fs.Var(&cfg.documents, FlagDocument, "")
	fs.Var(&cfg.documents, FlagDocumentShort, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if len(cfg.documents) == 0 {
		return nil, errors.New(ErrMsgMissingDocument)
	}
	return cfg, nil
}
