package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"john.doe@example.com", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"not-an-email", "***@***"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactEmail(tt.in))
		})
	}
}

func TestLoggerRedactsFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, DEBUG, true).With("component", "importer")

	l.Info("row skipped", "email", "ann@example.com", "note", "owner bob@example.org asked")

	var entry map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "importer", entry["component"])
	assert.Equal(t, "an***@example.com", entry["email"])
	assert.Equal(t, "owner bo***@example.org asked", entry["note"])
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, WARN, false)
	l.Info("dropped")
	assert.Zero(t, buf.Len())
	l.Error("kept")
	assert.Contains(t, buf.String(), `"kept"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARNING"))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel("bogus"))
}

func TestRedactName(t *testing.T) {
	assert.Equal(t, "A*** L***", RedactName("Ann Lee"))
	assert.Equal(t, "É***", RedactName("Élodie"))
	assert.Equal(t, "", RedactName("  "))
}

func TestLoggerRedactsNamesButNotFileNames(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, INFO, true).Info("imported", "subscriber_name", "Ann Lee", "file_name", "list.csv")

	var entry map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "A*** L***", entry["subscriber_name"])
	assert.Equal(t, "list.csv", entry["file_name"])
}

func TestLoggerWithoutRedaction(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, INFO, false).Info("sent", "email", "ann@example.com")
	assert.Contains(t, buf.String(), "ann@example.com")
}
