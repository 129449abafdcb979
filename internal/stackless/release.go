// Package stackless 实现了解释器的协作式任务调度核心（tasklet 调度器）。
//
// 本文件实现延迟释放队列。释放对象可能运行任意析构逻辑，析构又可能
// 触发栈切换或读取只有切换落地后才一致的调度状态，因此切换前后的
// 释放一律入队，等目的 stacklet 完全成为活栈后按入队顺序统一排空。
package stackless

// releaseQueue 待释放对象队列
type releaseQueue struct {
	objs []Releaser
}

// DeferRelease 把对象的释放推迟到当前切换完成之后
//
// 在活栈即将变更的上下文（切换期间或切换前夕）中请求释放时使用，
// 避免析构代码在一个正被拆除的栈上运行。
func (ts *ThreadState) DeferRelease(obj Releaser) {
	if obj == nil {
		return
	}
	if ts.delPostSwitch == nil {
		ts.delPostSwitch = &releaseQueue{}
	}
	ts.delPostSwitch.objs = append(ts.delPostSwitch.objs, obj)
}

// Drain 排空延迟释放队列
//
// 每次完成的切换之后恰好执行一次：目的 stacklet 已完全成为活栈且
// 没有新的切换在途。按入队顺序释放；析构期间再入队的对象在同一轮
// 继续排空。
func (ts *ThreadState) Drain() {
	for ts.delPostSwitch != nil {
		q := ts.delPostSwitch
		ts.delPostSwitch = nil
		for _, obj := range q.objs {
			obj.Release()
		}
	}
}

// drainDeferred 切换机制内部的排空入口
func (ts *ThreadState) drainDeferred() {
	ts.Drain()
}

// PendingReleases 当前排队等待释放的对象数量
func (ts *ThreadState) PendingReleases() int {
	if ts.delPostSwitch == nil {
		return 0
	}
	return len(ts.delPostSwitch.objs)
}
