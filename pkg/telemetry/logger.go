package telemetry

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"time"
)

// StructuredLogger emits structured log entries.
type StructuredLogger interface {
	Emit(Entry) error
}

// Severity represents the log severity level.
type Severity string

const (
	// SeverityInfo captures normal operation messages.
	SeverityInfo Severity = "info"
	// SeverityWarn captures recoverable anomalies.
	SeverityWarn Severity = "warn"
	// SeverityError captures unrecoverable or failure states.
	SeverityError Severity = "error"
)

// Category captures the structured log category.
type Category string

const (
	// CategoryAssembly marks assembler lifecycle events.
	CategoryAssembly Category = "assembly"
	// CategoryStage marks individual pipeline stage events.
	CategoryStage Category = "stage"
	// CategoryValidation marks validator findings.
	CategoryValidation Category = "validation"
	// CategoryPlugin marks plugin discovery and fragment merges.
	CategoryPlugin Category = "plugin"
)

// Entry describes a structured log entry prior to serialization.
type Entry struct {
	Category Category
	Message  string
	Severity Severity
	Stage    string
	Plugin   string
	Metadata map[string]string
	Error    error
}

// Logger emits structured JSON logs for one build invocation.
type Logger struct {
	enc          *json.Encoder
	invocationID string
	mu           sync.Mutex
}

// NewLogger constructs a logger tagged with invocationID.
func NewLogger(w io.Writer, invocationID string) (*Logger, error) {
	if w == nil {
		return nil, errors.New("logger writer is required")
	}
	trimmed := strings.TrimSpace(invocationID)
	if trimmed == "" {
		return nil, errors.New("invocation ID is required")
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Logger{enc: enc, invocationID: trimmed}, nil
}

// Emit writes the provided entry to the underlying writer.
func (l *Logger) Emit(entry Entry) error {
	if l == nil {
		return errors.New("logger is nil")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	severity := entry.Severity
	if severity == "" {
		severity = SeverityInfo
	}

	metadata := make(map[string]string, len(entry.Metadata)+1)
	for k, v := range entry.Metadata {
		metadata[k] = v
	}
	if entry.Error != nil {
		severity = SeverityError
		metadata["error"] = entry.Error.Error()
	}

	payload := map[string]any{
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"category":     string(entry.Category),
		"message":      entry.Message,
		"severity":     string(severity),
		"invocationId": l.invocationID,
	}
	if entry.Stage != "" {
		payload["stage"] = entry.Stage
	}
	if entry.Plugin != "" {
		payload["plugin"] = entry.Plugin
	}
	if len(metadata) > 0 {
		payload["metadata"] = metadata
	}

	return l.enc.Encode(payload)
}

// Discard is a StructuredLogger that drops every entry.
var Discard StructuredLogger = discard{}

type discard struct{}

func (discard) Emit(Entry) error { return nil }
