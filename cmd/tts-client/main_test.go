package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestArgumentValidation verifies the required and conflicting arguments.
func TestArgumentValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		expectedError string
		args          []string
	}{
		{name: "success with text flag", args: []string{"--text", "some text"}},
		{name: "success with file flag", args: []string{"--file", "lines.txt"}},
		{
			name:          "error with both flags",
			args:          []string{"--text", "some text", "--file", "lines.txt"},
			expectedError: errCannotSpecifyBoth,
		},
		{name: "error with no flags", args: nil, expectedError: errEitherTextOrFile},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			flags, err := parseFlags(testCase.args)
			require.NoError(t, err)

			err = validateFlags(flags)
			if testCase.expectedError == "" {
				require.NoError(t, err)

				return
			}

			require.EqualError(t, err, testCase.expectedError)
		})
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	t.Parallel()

	flags, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultServer, flags.server)
	assert.Equal(t, defaultTimeout, flags.timeout)
}

func newFakeService(t *testing.T, ttsStatus int, ttsBody any) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/tts", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string

		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Hello\nWorld", payload["text"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(ttsStatus)
		_ = json.NewEncoder(w).Encode(ttsBody)
	})
	mux.HandleFunc("/api/download-all/20240305_140709", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write([]byte("PK-zip-bytes"))
	})
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/api/health/backend", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unhealthy"}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func TestRun_SubmitsAndDownloads(t *testing.T) {
	t.Parallel()

	server := newFakeService(t, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "speech generated successfully",
		"batch_id":    "20240305_140709",
		"total_lines": 2,
		"files": []map[string]any{
			{"line_number": 1, "text": "Hello", "file_path": "speech_20240305_140709_001.mp3"},
			{"line_number": 2, "text": "World", "file_path": "speech_20240305_140709_002.mp3"},
		},
	})

	output := filepath.Join(t.TempDir(), "batch.zip")

	var out bytes.Buffer

	err := run([]string{"--server", server.URL, "--text", "Hello\nWorld", "--output", output}, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "speech_20240305_140709_002.mp3")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, []byte("PK-zip-bytes"), data)
}

func TestRun_ReportsServiceError(t *testing.T) {
	t.Parallel()

	server := newFakeService(t, http.StatusInternalServerError, map[string]any{
		"success": false,
		"error":   "line 2 speech generation failed: quota exceeded",
	})

	err := run([]string{"--server", server.URL, "--text", "Hello\nWorld"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestRun_Health(t *testing.T) {
	t.Parallel()

	server := newFakeService(t, http.StatusOK, nil)

	var out bytes.Buffer

	err := run([]string{"--server", server.URL, "--health"}, &out)
	require.Error(t, err)
	assert.Contains(t, out.String(), "/api/health: ok")
	assert.Contains(t, err.Error(), "503")
}
