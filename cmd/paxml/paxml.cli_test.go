package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testGreetDocument = `name: greet
tags:
  - tag: iterate
    attrs:
      list: ${people}
      var: p
    children:
      - tag: data
        text: Hello ${p}
`
	testInvalidDocument = `name: broken
tags:
  - tag: nosuchtag
`
	testPropsJSON = `{"people": ["Alice", "Bob"]}`
	testPropsYAML = "people:\n  - Carol\n"
)

func setupTestData(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "greet.yaml"), []byte(testGreetDocument), FilePermissions))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "broken.yaml"), []byte(testInvalidDocument), FilePermissions))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "props.yaml"), []byte(testPropsYAML), FilePermissions))
	return tmpDir
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := run(args, strings.NewReader(stdin), stdout, stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_NoArgs_ShowsHelp(t *testing.T) {
	code, stdout, _ := runCLI(t, "")

	assert.Equal(t, ExitCodeSuccess, code)
	assert.Contains(t, stdout, CLIName)
	assert.Contains(t, stdout, CmdNameRun)
}

func TestRun_UnknownCommand(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "unknown")

	assert.Equal(t, ExitCodeUsageError, code)
	assert.Contains(t, stdout, ErrMsgUnknownCommand)
}

func TestHelp_Commands(t *testing.T) {
	tests := []struct {
		cmd  string
		want string
	}{
		{CmdNameRun, HelpRunUsage},
		{CmdNameValidate, HelpValidateUsage},
		{CmdNameStore, HelpStoreUsage},
		{CmdNameVersion, HelpVersionUsage},
		{CmdNameHelp, HelpHelpUsage},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			stdout := &bytes.Buffer{}
			assert.Equal(t, ExitCodeSuccess, runHelp([]string{tt.cmd}, stdout))
			assert.Contains(t, stdout.String(), tt.want)
		})
	}
}

func TestRunCommand_Document(t *testing.T) {
	dir := setupTestData(t)

	code, stdout, stderr := runCLI(t, "", CmdNameRun,
		"-D", filepath.Join(dir, "greet.yaml"), "-p", testPropsJSON)

	require.Equal(t, ExitCodeSuccess, code, stderr)
	assert.Equal(t, "Hello Alice\nHello Bob\n", stdout)
}

func TestRunCommand_Stdin(t *testing.T) {
	code, stdout, stderr := runCLI(t, testGreetDocument, CmdNameRun,
		"-D", InputSourceStdin, "-e", "greet", "-p", testPropsJSON)

	require.Equal(t, ExitCodeSuccess, code, stderr)
	assert.Equal(t, "Hello Alice\nHello Bob\n", stdout)
}

func TestRunCommand_PropsFileAndJSONFormat(t *testing.T) {
	dir := setupTestData(t)

	code, stdout, stderr := runCLI(t, "", CmdNameRun,
		"-D", filepath.Join(dir, "greet.yaml"),
		"-f", filepath.Join(dir, "props.yaml"),
		"-F", OutputFormatJSON)

	require.Equal(t, ExitCodeSuccess, code, stderr)
	var got []string
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, []string{"Hello Carol"}, got)
}

func TestRunCommand_OutputFile(t *testing.T) {
	dir := setupTestData(t)
	out := filepath.Join(dir, "out.txt")

	code, stdout, stderr := runCLI(t, "", CmdNameRun,
		"-D", filepath.Join(dir, "greet.yaml"), "-p", testPropsJSON, "-o", out)

	require.Equal(t, ExitCodeSuccess, code, stderr)
	assert.Empty(t, stdout)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "Hello Alice\nHello Bob\n", string(data))
}

func TestRunCommand_Errors(t *testing.T) {
	dir := setupTestData(t)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no document", []string{}, ExitCodeUsageError},
		{"bad format", []string{"-D", "x.yaml", "-F", "xml"}, ExitCodeUsageError},
		{"missing file", []string{"-D", filepath.Join(dir, "missing.yaml")}, ExitCodeInputError},
		{"bad props", []string{"-D", filepath.Join(dir, "greet.yaml"), "-p", "{"}, ExitCodeInputError},
		{"invalid document", []string{"-D", filepath.Join(dir, "broken.yaml")}, ExitCodeValidationError},
		{"unknown entity", []string{"-D", filepath.Join(dir, "greet.yaml"), "-e", "nope"}, ExitCodeError},
		{"strict name missing", []string{"-D", filepath.Join(dir, "greet.yaml")}, ExitCodeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := runCLI(t, "", append([]string{CmdNameRun}, tt.args...)...)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestValidateCommand(t *testing.T) {
	dir := setupTestData(t)

	code, stdout, _ := runCLI(t, "", CmdNameValidate, "-D", filepath.Join(dir, "greet.yaml"))
	assert.Equal(t, ExitCodeSuccess, code)
	assert.Contains(t, stdout, "1 entities valid")

	code, stdout, _ = runCLI(t, "", CmdNameValidate,
		"-D", filepath.Join(dir, "greet.yaml"),
		"-D", filepath.Join(dir, "broken.yaml"),
		"-F", OutputFormatJSON)
	assert.Equal(t, ExitCodeValidationError, code)

	var out validationOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.False(t, out.Valid)
	assert.Equal(t, []string{"greet"}, out.Entities)
	require.Len(t, out.Issues, 1)
	assert.Equal(t, filepath.Join(dir, "broken.yaml"), out.Issues[0].Document)
}

func TestValidateCommand_MissingDocument(t *testing.T) {
	code, _, _ := runCLI(t, "", CmdNameValidate)
	assert.Equal(t, ExitCodeUsageError, code)
}

func TestStoreCommand_ThenRunFromStorage(t *testing.T) {
	dir := setupTestData(t)
	config := filepath.Join(dir, "paxml.yaml")
	store := filepath.Join(dir, "store")
	require.NoError(t, os.WriteFile(config,
		[]byte("storage:\n  driver: filesystem\n  dsn: "+store+"\n  cache: true\n"), FilePermissions))

	code, stdout, stderr := runCLI(t, "", CmdNameStore, "-c", config, "-D", filepath.Join(dir, "greet.yaml"))
	require.Equal(t, ExitCodeSuccess, code, stderr)
	assert.Contains(t, stdout, "stored greet version 1")

	code, stdout, stderr = runCLI(t, "", CmdNameRun, "-c", config, "-e", "greet", "-p", testPropsJSON)
	require.Equal(t, ExitCodeSuccess, code, stderr)
	assert.Equal(t, "Hello Alice\nHello Bob\n", stdout)
}

func TestStoreCommand_NoStorage(t *testing.T) {
	dir := setupTestData(t)

	code, _, stderr := runCLI(t, "", CmdNameStore, "-D", filepath.Join(dir, "greet.yaml"))
	assert.Equal(t, ExitCodeUsageError, code)
	assert.Contains(t, stderr, ErrMsgNoStorage)
}

func TestVersionCommand(t *testing.T) {
	code, stdout, _ := runCLI(t, "", CmdNameVersion)
	assert.Equal(t, ExitCodeSuccess, code)
	assert.Contains(t, stdout, CLIName)

	code, stdout, _ = runCLI(t, "", CmdNameVersion, "-F", OutputFormatJSON)
	assert.Equal(t, ExitCodeSuccess, code)
	var v versionInfo
	require.NoError(t, json.Unmarshal([]byte(stdout), &v))
	assert.Contains(t, v.Drivers, "memory")
	assert.Contains(t, v.Drivers, "filesystem")

	code, _, _ = runCLI(t, "", CmdNameVersion, "-F", "xml")
	assert.Equal(t, ExitCodeUsageError, code)
}
