package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesFieldsAndCaller(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf}).WithContext(map[string]interface{}{"request_id": "abc"})

	l.Error("moderation failed", errors.New("boom"), map[string]interface{}{"review_id": 7})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "moderation failed", entry["message"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "abc", entry["request_id"])
	assert.EqualValues(t, 7, entry["review_id"])
	assert.Contains(t, entry["caller"], "logger_test.go")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}
