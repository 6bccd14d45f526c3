package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Phase represents a step of configuration assembly.
type Phase string

const (
	PhasePlugins   Phase = "plugins"
	PhaseValidate  Phase = "validate"
	PhaseDefaults  Phase = "defaults"
	PhaseNormalize Phase = "normalize"
	PhaseBuild     Phase = "build"
)

// Event captures structured telemetry emitted during assembly.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Phase     Phase             `json:"phase"`
	Outcome   string            `json:"outcome"`
	Duration  time.Duration     `json:"duration,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Emitter writes JSON phase events to an io.Writer. A nil Emitter runs
// phases without emitting anything.
type Emitter struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

// NewEmitter constructs an emitter writing JSON lines to w.
func NewEmitter(w io.Writer) *Emitter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Emitter{encoder: enc}
}

// Emit writes an event to the underlying writer.
func (e *Emitter) Emit(ev Event) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	return e.encoder.Encode(ev)
}

// EmitPhase publishes start and completion events while executing fn.
func (e *Emitter) EmitPhase(phase Phase, metadata map[string]string, fn func() error) error {
	if e == nil {
		return fn()
	}
	start := time.Now()
	if err := e.Emit(Event{Phase: phase, Outcome: "start", Metadata: metadata}); err != nil {
		return fmt.Errorf("emit start event: %w", err)
	}

	err := fn()
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}

	if emitErr := e.Emit(Event{Phase: phase, Outcome: outcome, Duration: time.Since(start), Metadata: metadata}); emitErr != nil {
		return fmt.Errorf("emit completion event: %w", emitErr)
	}
	return err
}
