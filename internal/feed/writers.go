// Writer implementations observing harness decisions
package feed

import (
	"encoding/json"
	"fmt"
	"os"

	"bioprintctl/internal/control"
	"bioprintctl/internal/twin"
)

// Decision pairs a command with the twin state it produced, for JSONL logs.
type Decision struct {
	Command control.Command `json:"command"`
	Twin    twin.State      `json:"twin"`
}

// StdoutWriter prints decisions to STDOUT.
type StdoutWriter struct{}

// WriteDecision outputs a single decision as one JSON line.
func (w *StdoutWriter) WriteDecision(cmd control.Command, state twin.State) error {
	data, _ := json.Marshal(Decision{Command: cmd, Twin: state})
	fmt.Println(string(data))
	return nil
}

// FileWriter appends decisions to a JSONL file.
type FileWriter struct {
	file *os.File
	enc  *json.Encoder
}

// NewFileWriter creates a FileWriter truncating any existing file.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileWriter{file: f, enc: json.NewEncoder(f)}, nil
}

// WriteDecision logs a single decision.
func (w *FileWriter) WriteDecision(cmd control.Command, state twin.State) error {
	return w.enc.Encode(Decision{Command: cmd, Twin: state})
}

// Close closes the underlying file.
func (w *FileWriter) Close() error {
	return w.file.Close()
}

// MultiWriter fans decisions out to multiple writers.
type MultiWriter struct {
	writers []DecisionWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws ...DecisionWriter) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// WriteDecision sends a decision to all writers.
func (w *MultiWriter) WriteDecision(cmd control.Command, state twin.State) error {
	for _, inner := range w.writers {
		if err := inner.WriteDecision(cmd, state); err != nil {
			return err
		}
	}
	return nil
}
