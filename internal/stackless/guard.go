// Package stackless 实现了解释器的协作式任务调度核心（tasklet 调度器）。
//
// 本文件实现重入保护：schedlock 拦截调度回调的递归触发，
// switch trap 在宿主不允许栈移动的区间内禁止一切切换。
package stackless

// acquireSchedLock 进入调度回调前占用 schedlock
//
// 已被占用时返回 ErrReentrantSchedule：新请求被丢弃而不是内联执行，
// 从而杜绝回调递归触发调度造成的无界栈增长。
func (ts *ThreadState) acquireSchedLock() error {
	if !ts.schedlock.CAS(0, 1) {
		return ErrReentrantSchedule
	}
	return nil
}

// releaseSchedLock 调度回调返回后释放 schedlock
func (ts *ThreadState) releaseSchedLock() {
	ts.schedlock.Store(0)
}

// SchedLockHeld 调度回调是否正在执行
func (ts *ThreadState) SchedLockHeld() bool {
	return ts.schedlock.Load() != 0
}

// SwitchTrap 按增量调整切换禁止计数，返回调整后的值
//
// 计数非零期间任何切换尝试立即返回 ErrSwitchForbidden，
// 不产生任何部分状态变更。用于保护运行队列修复等不允许挂起的区间。
func (ts *ThreadState) SwitchTrap(delta int) int32 {
	return ts.switchTrap.Add(int32(delta))
}

// SwitchTrapped 切换是否被禁止
func (ts *ThreadState) SwitchTrapped() bool {
	return ts.switchTrap.Load() != 0
}
