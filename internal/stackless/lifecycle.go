// Package stackless 实现了解释器的协作式任务调度核心（tasklet 调度器）。
//
// 本文件实现 ThreadState 的生命周期：
//
//	Uninitialized -> Active -> TearingDown -> Destroyed
//
// Uninitialized -> Active 在首次切换尝试时惰性发生（见 ensureActive）。
// 线程退出时所有仍绑定 stacklet 的 tasklet 被强制解除并回收，
// 绝不静默泄漏；随后排空延迟释放队列、清除 interrupted 引用，
// 最后销毁 initial stub。
package stackless

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// OnThreadStart 为当前 OS 线程建立调度状态
//
// 与 NewThreadState 等价，作为线程生命周期挂钩暴露给宿主。
func OnThreadStart(opts Options) *ThreadState {
	return NewThreadState(opts)
}

// OnThreadExit 线程退出挂钩：执行 Active -> TearingDown -> Destroyed
//
// 必须在线程的原始栈上调用：若 serialLastJump 不等于 initial stub
// 的序号，说明发生过尚未回退的切换，此时展开是不安全的。
//
// 资源回收是尽力而为但无条件的：单个 stacklet 回收失败会被记录并
// 聚合返回，不会中止其余部分的销毁。
func (ts *ThreadState) OnThreadExit() error {
	switch ts.phase {
	case phaseUninitialized:
		ts.phase = phaseDestroyed
		return nil
	case phaseDestroyed:
		return nil
	}

	if jr := ts.jump.Load(); jr != nil && jr.serialLastJump != ts.initialStub.id {
		return ErrNotMainStack
	}
	return ts.teardown()
}

// teardown 执行销毁流程
//
// 销毁顺序是契约的一部分：先强制终止绑定 stacklet 的 tasklet
// （使任何 stacklet 都不会比其所有者活得更久），再排空延迟释放
// 队列，然后释放 interrupted 引用，最后销毁 initial stub。
func (ts *ThreadState) teardown() error {
	ts.phase = phaseTearingDown

	var errs error
	for id, t := range ts.allTasklets {
		if err := ts.destroyStacklet(t.stacklet); err != nil {
			ts.logger.Error("failed to reclaim stacklet during teardown",
				zap.Int64("tasklet", id),
				zap.Error(err))
			errs = multierr.Append(errs, err)
		}
		t.SetStatus(TaskletDead)
		if t.payload != nil {
			ts.DeferRelease(t.payload)
			t.payload = nil
		}
		delete(ts.allTasklets, id)
	}
	ts.runQueue = nil
	ts.runcount.Store(0)

	ts.Drain()

	ts.interrupted = nil

	ts.initialStub = nil
	ts.main = nil
	ts.jump.Store(nil)

	ts.phase = phaseDestroyed
	return errs
}
