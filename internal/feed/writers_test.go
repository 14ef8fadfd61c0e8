package feed

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"bioprintctl/internal/control"
	"bioprintctl/internal/twin"
)

func TestFileWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	w, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("new file writer: %v", err)
	}

	for i, action := range []control.Action{control.ActionMaintain, control.ActionEmergencyHalt} {
		err := w.WriteDecision(
			control.Command{CommandID: "c1", PrinterID: "p1", Action: action},
			twin.State{PrinterID: "p1", CollapseRisk: float64(i) * 0.5},
		)
		if err != nil {
			t.Fatalf("write decision: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var decisions []Decision
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var d Decision
		if err := json.Unmarshal(scanner.Bytes(), &d); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		decisions = append(decisions, d)
	}
	if len(decisions) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(decisions))
	}
	if decisions[1].Command.Action != control.ActionEmergencyHalt || decisions[1].Twin.CollapseRisk != 0.5 {
		t.Errorf("unexpected second decision: %+v", decisions[1])
	}
}

func TestMultiWriterFansOut(t *testing.T) {
	a := &captureWriter{}
	b := &captureWriter{}
	mw := NewMultiWriter(a, b)

	if err := mw.WriteDecision(control.Command{CommandID: "c1"}, twin.State{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if a.count() != 1 || b.count() != 1 {
		t.Errorf("both writers should see the decision, got %d and %d", a.count(), b.count())
	}
}
