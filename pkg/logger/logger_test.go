package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, format string) (*Logger, *bytes.Buffer) {
	t.Helper()
	log, err := NewLogger(&Config{Level: DebugLevel, Format: format, AppName: "TaxiBCN", Version: "test"})
	require.NoError(t, err)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	return log, &buf
}

func TestJSONFormatterCarriesContextFields(t *testing.T) {
	log, buf := newBufferLogger(t, "json")

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	log.WithContext(ctx).WithFormID("form-1").WithError(errors.New("boom")).Warn("Suggest failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "Suggest failed", entry["message"])
	assert.Equal(t, "TaxiBCN", entry["app"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "form-1", entry["form_id"])
	assert.Equal(t, "boom", entry["error"])
}

func TestWithContextReadsFormID(t *testing.T) {
	log, buf := newBufferLogger(t, "json")

	ctx := context.WithValue(context.Background(), FormIDKey, "form-2")
	log.WithContext(ctx).Info("Form updated")
	log.WithContext(context.Background()).Info("No ids")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var withIDs, without map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &withIDs))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &without))
	assert.Equal(t, "form-2", withIDs["form_id"])
	assert.NotContains(t, withIDs, "request_id")
	assert.NotContains(t, without, "form_id")
}

func TestWithFieldDoesNotLeakIntoParent(t *testing.T) {
	log, buf := newBufferLogger(t, "json")

	_ = log.WithField("service", "routes")
	log.Info("plain")

	assert.NotContains(t, buf.String(), "routes")
}

func TestTextFormatterSortsFields(t *testing.T) {
	log, buf := newBufferLogger(t, "text")

	log.LogProviderCall("mapbox", "suggest", 120*time.Millisecond, nil)

	line := buf.String()
	assert.Contains(t, line, "[DEBUG]")
	assert.Contains(t, line, "[TaxiBCN]")
	assert.Less(t, strings.Index(line, "duration_ms=120"), strings.Index(line, "operation=suggest"))
	assert.Less(t, strings.Index(line, "operation=suggest"), strings.Index(line, "provider=mapbox"))
}

func TestLogAPIRequestLevelFollowsStatus(t *testing.T) {
	log, buf := newBufferLogger(t, "json")

	log.LogAPIRequest("GET", "/api/v1/forms/:id", 404, time.Millisecond, "127.0.0.1")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, float64(404), entry["status_code"])
	assert.Equal(t, "/api/v1/forms/:id", entry["endpoint"])
}
