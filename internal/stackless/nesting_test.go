package stackless

import (
	"errors"
	"testing"
)

// ============================================================================
// 嵌套跟踪测试
// ============================================================================

func TestNestingBalance(t *testing.T) {
	ts := NewThreadState(Options{})
	defer ts.OnThreadExit()

	const depth = 3
	for i := 0; i < depth; i++ {
		if err := ts.EnterNested(); err != nil {
			t.Fatalf("EnterNested %d failed: %v", i, err)
		}
	}
	if ts.NestingLevel() != depth {
		t.Errorf("Expected nesting level %d, got %d", depth, ts.NestingLevel())
	}

	for i := 0; i < depth; i++ {
		if err := ts.ExitNested(); err != nil {
			t.Fatalf("ExitNested %d failed: %v", i, err)
		}
	}
	if ts.NestingLevel() != 0 {
		t.Errorf("Expected nesting level 0, got %d", ts.NestingLevel())
	}
}

func TestOutermostEnterInitializes(t *testing.T) {
	ts := NewThreadState(Options{})
	defer ts.OnThreadExit()

	if ts.Main() != nil {
		t.Fatal("Expected no main before first entry")
	}

	if err := ts.EnterNested(); err != nil {
		t.Fatalf("EnterNested failed: %v", err)
	}
	main := ts.Main()
	stub := ts.initialStub
	if main == nil || stub == nil {
		t.Fatal("Expected outermost entry to initialize stub and main")
	}

	// 嵌套期间两者不会被重建
	if err := ts.EnterNested(); err != nil {
		t.Fatalf("nested EnterNested failed: %v", err)
	}
	if ts.Main() != main || ts.initialStub != stub {
		t.Error("Expected stub and main preserved across nested entry")
	}

	ts.ExitNested()
	ts.ExitNested()
}

func TestUnbalancedNestingIsFatal(t *testing.T) {
	ts := NewThreadState(Options{})

	err := ts.ExitNested()
	if !errors.Is(err, ErrUnbalancedNesting) {
		t.Fatalf("Expected ErrUnbalancedNesting, got %v", err)
	}

	// 状态不再可信，销毁流程已经执行
	if ts.phase != phaseDestroyed {
		t.Errorf("Expected destroyed phase after unbalanced exit, got %v", ts.phase)
	}
	if _, err := ts.Spawn(func() {}); !errors.Is(err, ErrTornDown) {
		t.Errorf("Expected ErrTornDown after teardown, got %v", err)
	}
}

func TestEnterNestedAfterTeardown(t *testing.T) {
	ts := NewThreadState(Options{})
	if err := ts.OnThreadExit(); err != nil {
		t.Fatalf("OnThreadExit failed: %v", err)
	}

	if err := ts.EnterNested(); !errors.Is(err, ErrTornDown) {
		t.Errorf("Expected ErrTornDown, got %v", err)
	}
}
