package stackless

import (
	"testing"

	"github.com/segmentio/encoding/json"
)

// ============================================================================
// 状态输出测试
// ============================================================================

func TestSnapshot(t *testing.T) {
	ts := NewThreadState(Options{WatchdogInterval: 7})
	defer ts.OnThreadExit()

	ts.Spawn(func() {})
	ts.Spawn(func() {})

	d := ts.Snapshot()
	if d.Phase != "active" {
		t.Errorf("Expected phase active, got %q", d.Phase)
	}
	if d.RunCount != 2 {
		t.Errorf("Expected runCount=2, got %d", d.RunCount)
	}
	if len(d.RunQueue) != 2 {
		t.Errorf("Expected 2 queued tasklets, got %v", d.RunQueue)
	}
	if d.Current != ts.Main().ID {
		t.Errorf("Expected current=%d, got %d", ts.Main().ID, d.Current)
	}
	if d.Interval != 7 {
		t.Errorf("Expected interval=7, got %d", d.Interval)
	}
	if d.Interrupted != -1 {
		t.Errorf("Expected interrupted=-1, got %d", d.Interrupted)
	}
	if d.SerialLastJump > d.Serial {
		t.Errorf("Invariant violated in snapshot: %d > %d", d.SerialLastJump, d.Serial)
	}
}

func TestDumpJSON(t *testing.T) {
	ts := NewThreadState(Options{})
	defer ts.OnThreadExit()

	ts.Spawn(func() {})

	data, err := ts.DumpJSON()
	if err != nil {
		t.Fatalf("DumpJSON failed: %v", err)
	}

	var d StateDump
	if err := json.Unmarshal(data, &d); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if d.Phase != "active" {
		t.Errorf("Expected phase active, got %q", d.Phase)
	}
	if d.RunCount != 1 {
		t.Errorf("Expected runCount=1, got %d", d.RunCount)
	}
}

func TestDumpStateUninitialized(t *testing.T) {
	ts := NewThreadState(Options{})
	defer ts.OnThreadExit()

	m := ts.DumpState()
	if m["phase"] != "uninitialized" {
		t.Errorf("Expected uninitialized phase, got %v", m["phase"])
	}
	if m["current"] != int64(-1) {
		t.Errorf("Expected current=-1, got %v", m["current"])
	}
}
