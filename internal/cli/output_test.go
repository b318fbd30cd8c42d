package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowreg/internal/flow"
	"github.com/roach88/flowreg/internal/manifest"
	"github.com/roach88/flowreg/internal/queryir"
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

	err := formatter.Error("E005", "no flow with name \"etl\"", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, "E005", resp.Error.Code)
	assert.Equal(t, "no flow with name \"etl\"", resp.Error.Message)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	details := map[string]string{"file": "flows.cue", "line": "4"}
	err := formatter.Error("E006", "failed to load manifest", details)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("3 flows")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "3 flows")
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error("E003", "failed to create flow", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E003]")
	assert.Contains(t, buf.String(), "failed to create flow")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	details := map[string]string{"file": "flows.yaml"}
	err := formatter.Error("E006", "failed to load manifest", details)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E006]")
	assert.Contains(t, buf.String(), "Details:")
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
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("Loaded %d flow(s) from %s", 3, "flows.yaml")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "Loaded 3 flow(s) from flows.yaml")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestCLIResponse_JSON(t *testing.T) {
	resp := CLIResponse{
		Status: "ok",
		Data:   CountResult{Count: 42},
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded CLIResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "ok", decoded.Status)
}

func TestCLIError_JSON(t *testing.T) {
	cliErr := CLIError{
		Code:    "E002",
		Message: "invalid flow: name: name is required",
		Details: []string{"flows[1].name"},
	}

	data, err := json.Marshal(cliErr)
	require.NoError(t, err)

	var decoded CLIError
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "E002", decoded.Code)
	assert.Equal(t, "invalid flow: name: name is required", decoded.Message)
}

func TestOutputFormatter_FailText(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	cause := errors.New("disk full")
	err := formatter.Fail(ErrCodeWriteFailed, ExitCommandError, "failed to write metrics", cause)
	require.Error(t, err)

	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "E007: failed to write metrics: disk full", err.Error())
	assert.Equal(t, "Error [E007]: failed to write metrics: disk full\n", buf.String())
}

func TestOutputFormatter_FailJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Fail(ErrCodeNotFound, ExitFailure, "no flow with name \"etl\"", nil)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "no flow with name \"etl\"", resp.Error.Message)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     string
		exitCode int
	}{
		{
			name:     "conflict",
			err:      fmt.Errorf("create flow: %w", &flow.ConflictError{Field: flow.FieldName, Value: "etl"}),
			code:     ErrCodeConflict,
			exitCode: ExitFailure,
		},
		{
			name:     "invalid flow",
			err:      &flow.ValidationError{Field: flow.FieldName, Message: "name is required"},
			code:     ErrCodeInvalidInput,
			exitCode: ExitCommandError,
		},
		{
			name:     "invalid query",
			err:      fmt.Errorf("list flows: %w", queryir.ErrInvalidQuery),
			code:     ErrCodeInvalidInput,
			exitCode: ExitCommandError,
		},
		{
			name:     "manifest",
			err:      &manifest.Error{File: "flows.yaml", Message: "bad"},
			code:     ErrCodeManifestFailed,
			exitCode: ExitCommandError,
		},
		{
			name:     "anything else",
			err:      errors.New("connection refused"),
			code:     ErrCodeStoreFailed,
			exitCode: ExitCommandError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, exitCode := classify(tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.exitCode, exitCode)
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
	assert.Equal(t, ExitFailure, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitFailure, "x"))))
}

func TestWriteFlowTable(t *testing.T) {
	buf := &bytes.Buffer{}
	writeFlowTable(buf, []flow.Flow{})
	assert.Equal(t, "No flows found\n", buf.String())

	buf.Reset()
	writeFlowTable(buf, []flow.Flow{
		{ID: uuid.MustParse("00000000-0000-7000-8000-000000000001"), Name: "etl", Tags: flow.TagSet{"db", "nightly"}},
		{ID: uuid.MustParse("00000000-0000-7000-8000-000000000002"), Name: "report", Tags: flow.TagSet{}},
	})
	assert.Equal(t, "ID                                    NAME    TAGS\n"+
		"00000000-0000-7000-8000-000000000001  etl     db,nightly\n"+
		"00000000-0000-7000-8000-000000000002  report  -\n", buf.String())
}

func TestWriteFlow(t *testing.T) {
	buf := &bytes.Buffer{}
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeFlow(buf, flow.Flow{
		ID:      uuid.MustParse("00000000-0000-7000-8000-000000000001"),
		Name:    "etl",
		Tags:    flow.TagSet{"db"},
		Created: created,
		Updated: created,
	})

	out := buf.String()
	assert.Contains(t, out, "ID:       00000000-0000-7000-8000-000000000001\n")
	assert.Contains(t, out, "Name:     etl\n")
	assert.Contains(t, out, "Tags:     db\n")
	assert.Contains(t, out, "Created:  2024-01-01T00:00:00Z\n")
}
