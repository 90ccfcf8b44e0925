package main

import (
	"encoding/json"
	"io"
	"maps"
	"os"
	"strings"

	"github.com/itsatony/go-paxml"
)

// stringList is a repeatable string flag
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// readInput reads content from a file or stdin
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == InputSourceStdin {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// writeOutput writes content to a file or stdout
func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == FlagDefaultOutput {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, FilePermissions)
}

// loadConfig reads the engine config file, an empty config when path is ""
func loadConfig(path string) (*paxml.EngineConfigFile, error) {
	if path == "" {
		return &paxml.EngineConfigFile{}, nil
	}
	return paxml.LoadConfig(path)
}

// loadProps merges config property files, the props file and inline JSON,
// in that order.
func loadProps(cfg *paxml.EngineConfigFile, propsJSON, propsFile string) (map[string]any, error) {
	props, err := cfg.LoadProperties()
	if err != nil {
		return nil, err
	}
	if propsFile != "" {
		p, err := paxml.LoadPropertyFile(propsFile)
		if err != nil {
			return nil, err
		}
		maps.Copy(props, p)
	}
	if propsJSON != "" {
		var p map[string]any
		if err := json.Unmarshal([]byte(propsJSON), &p); err != nil {
			return nil, err
		}
		maps.Copy(props, p)
	}
	return props, nil
}

// documentSources lists the flag documents after the config documents
func documentSources(cfg *paxml.EngineConfigFile, flagDocs []string) []string {
	return append(append([]string{}, cfg.Documents...), flagDocs...)
}
