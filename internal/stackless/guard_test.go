package stackless

import (
	"errors"
	"testing"
)

// ============================================================================
// schedlock 重入保护测试
// ============================================================================

func TestSchedlockRejectsReentrantYield(t *testing.T) {
	ts := NewThreadState(Options{})
	defer ts.OnThreadExit()

	ts.Spawn(func() {})

	var innerErr error
	callbackDone := false
	ts.SetWatchdog(1, InterrupterFunc(func(ts *ThreadState) Decision {
		innerErr = ts.YieldCurrent()
		callbackDone = true
		return DecisionContinue
	}))

	if err := ts.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	if !errors.Is(innerErr, ErrReentrantSchedule) {
		t.Errorf("Expected ErrReentrantSchedule inside callback, got %v", innerErr)
	}
	if !callbackDone {
		t.Error("Expected the original callback to complete normally")
	}
	if ts.Current() != ts.Main() {
		t.Error("Expected no inline switch from the rejected request")
	}
}

func TestSchedlockRejectsReentrantTick(t *testing.T) {
	ts := NewThreadState(Options{})
	defer ts.OnThreadExit()

	ts.Spawn(func() {})

	var innerErr error
	ts.SetWatchdog(1, InterrupterFunc(func(ts *ThreadState) Decision {
		// 回调内部的签到立即再次到期，必须被拒绝而不是递归触发
		innerErr = ts.Tick()
		return DecisionContinue
	}))

	if err := ts.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if !errors.Is(innerErr, ErrReentrantSchedule) {
		t.Errorf("Expected ErrReentrantSchedule from nested Tick, got %v", innerErr)
	}
	if ts.SchedLockHeld() {
		t.Error("Expected schedlock released after callback")
	}
}

// ============================================================================
// switch trap 测试
// ============================================================================

func TestSwitchTrapAbsolute(t *testing.T) {
	ts := NewThreadState(Options{})
	defer ts.OnThreadExit()

	ts.Spawn(func() {})

	curBefore := ts.Current()
	jumpBefore := ts.SerialLastJump()

	ts.SwitchTrap(1)
	if !ts.SwitchTrapped() {
		t.Fatal("Expected switch trap to be set")
	}

	if err := ts.YieldCurrent(); !errors.Is(err, ErrSwitchForbidden) {
		t.Errorf("Expected ErrSwitchForbidden, got %v", err)
	}
	if ts.Current() != curBefore {
		t.Error("Expected current unchanged under switch trap")
	}
	if ts.SerialLastJump() != jumpBefore {
		t.Errorf("Expected serialLastJump unchanged, got %d", ts.SerialLastJump())
	}

	ts.SwitchTrap(-1)
	if ts.SwitchTrapped() {
		t.Fatal("Expected switch trap cleared")
	}
	if err := ts.YieldCurrent(); err != nil {
		t.Errorf("Expected yield to work after trap cleared, got %v", err)
	}
}

func TestSwitchTrapBlocksWatchdogSwitch(t *testing.T) {
	ts := NewThreadState(Options{})
	defer ts.OnThreadExit()

	ts.Spawn(func() {})
	ts.SetWatchdog(1, nil)
	ts.SwitchTrap(1)
	defer ts.SwitchTrap(-1)

	if err := ts.Tick(); !errors.Is(err, ErrSwitchForbidden) {
		t.Errorf("Expected ErrSwitchForbidden from trapped watchdog switch, got %v", err)
	}
	if ts.Interrupted() != nil {
		t.Error("Expected no interrupted tasklet after aborted switch")
	}
}

func TestSwitchTrapNesting(t *testing.T) {
	ts := NewThreadState(Options{})
	defer ts.OnThreadExit()

	if v := ts.SwitchTrap(1); v != 1 {
		t.Errorf("Expected trap count 1, got %d", v)
	}
	if v := ts.SwitchTrap(1); v != 2 {
		t.Errorf("Expected trap count 2, got %d", v)
	}
	ts.SwitchTrap(-1)
	if !ts.SwitchTrapped() {
		t.Error("Expected trap still set at count 1")
	}
	ts.SwitchTrap(-1)
	if ts.SwitchTrapped() {
		t.Error("Expected trap cleared at count 0")
	}
}
