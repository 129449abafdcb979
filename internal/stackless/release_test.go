package stackless

import "testing"

// recordingReleaser 把释放动作记录到共享日志
type recordingReleaser struct {
	name string
	log  *[]string
}

func (r *recordingReleaser) Release() {
	*r.log = append(*r.log, r.name)
}

// ============================================================================
// 延迟释放测试
// ============================================================================

func TestDeferReleaseOrdering(t *testing.T) {
	ts := NewThreadState(Options{})
	defer ts.OnThreadExit()

	var log []string
	var pendingAtDefer int
	ts.Spawn(func() {
		ts.DeferRelease(&recordingReleaser{"a", &log})
		ts.DeferRelease(&recordingReleaser{"b", &log})
		pendingAtDefer = len(log)
		ts.YieldCurrent()
	})

	// 切换回 main 完成后，目的栈已成为活栈，释放按入队顺序发生
	if err := ts.YieldCurrent(); err != nil {
		t.Fatalf("yield failed: %v", err)
	}

	if pendingAtDefer != 0 {
		t.Errorf("Expected no release before the switch, got %d", pendingAtDefer)
	}
	if len(log) != 2 || log[0] != "a" || log[1] != "b" {
		t.Errorf("Expected releases [a b] after switch, got %v", log)
	}
	if ts.PendingReleases() != 0 {
		t.Errorf("Expected empty release queue after drain, got %d", ts.PendingReleases())
	}
}

func TestPayloadReleasedAfterDeath(t *testing.T) {
	ts := NewThreadState(Options{})
	defer ts.OnThreadExit()

	var log []string
	tk, err := ts.Spawn(func() {})
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	tk.Bind(&recordingReleaser{"payload", &log})

	if _, err := ts.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 绑定对象在濒死 tasklet 的栈拆除之后、在接任的活栈上释放
	if len(log) != 1 || log[0] != "payload" {
		t.Errorf("Expected payload released once after death, got %v", log)
	}
}

func TestDrainHandlesReentrantDefer(t *testing.T) {
	ts := NewThreadState(Options{})
	defer ts.OnThreadExit()

	var log []string
	ts.DeferRelease(releaserFunc(func() {
		log = append(log, "outer")
		ts.DeferRelease(&recordingReleaser{"inner", &log})
	}))

	ts.Drain()

	if len(log) != 2 || log[0] != "outer" || log[1] != "inner" {
		t.Errorf("Expected [outer inner], got %v", log)
	}
	if ts.PendingReleases() != 0 {
		t.Errorf("Expected empty queue, got %d pending", ts.PendingReleases())
	}
}

func TestDeferReleaseNil(t *testing.T) {
	ts := NewThreadState(Options{})
	defer ts.OnThreadExit()

	ts.DeferRelease(nil)
	if ts.PendingReleases() != 0 {
		t.Errorf("Expected nil defer ignored, got %d pending", ts.PendingReleases())
	}
}

// releaserFunc 函数形式的 Releaser，仅测试使用
type releaserFunc func()

func (f releaserFunc) Release() { f() }
