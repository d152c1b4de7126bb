package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lkparity/internal/failure"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E_BUILD", "candidate build failed", map[string]string{"command": "zig build-exe"})
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_BUILD", resp.Error.Code)
	assert.Equal(t, "candidate build failed", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	err := formatter.Error("E_CONFIGURATION", "fixture directory not found", "tests/input_files/views")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E_CONFIGURATION]")
	assert.Contains(t, buf.String(), "Details: tests/input_files/views")
}

func TestOutputFormatter_ResultCarriesDataOnError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Result(map[string]int{"failed": 1}, NewExitError(ExitFailure, "1 of 2 fixtures failed"))
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_FAILED", resp.Error.Code)
	assert.Equal(t, "1 of 2 fixtures failed", resp.Error.Message)
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			errBuf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    buf,
				ErrWriter: errBuf,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("checking %s", "users.view.lkml")

			assert.Empty(t, buf.String(), "diagnostics never go to stdout")
			if tt.wantLog {
				assert.Contains(t, errBuf.String(), "checking users.view.lkml")
			} else {
				assert.Empty(t, errBuf.String())
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"exit error", NewExitError(ExitCommandError, "bad flag"), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("outer: %w", NewExitError(ExitBuildFailure, "build")), ExitBuildFailure},
		{"build failure", failure.New(failure.Build, "candidate build failed"), ExitBuildFailure},
		{"configuration failure", failure.New(failure.Configuration, "no fixtures"), ExitCommandError},
		{"fixture failure", failure.New(failure.Mismatch, "differ"), ExitFailure},
		{"plain error", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "E_BUILD", errorCode(failure.New(failure.Build, "x")))
	assert.Equal(t, "E_CANCELED", errorCode(context.Canceled))
	assert.Equal(t, "E_FAILED", errorCode(errors.New("x")))
	assert.Equal(t, "E_COMMAND", errorCode(NewExitError(ExitCommandError, "bad flag")))
}

func TestClassify(t *testing.T) {
	err := classify("run failed", failure.New(failure.Configuration, "no fixtures"))
	assert.Equal(t, ExitCommandError, err.Code)
	assert.Equal(t, "run failed: CONFIGURATION: no fixtures", err.Error())

	original := NewExitError(ExitBuildFailure, "build")
	assert.Same(t, original, classify("ignored", original))
}
