// Package stackless 实现了解释器的协作式任务调度核心（tasklet 调度器）。
//
// 本文件实现看门狗软中断定时器。ticker 在每个调度可见的签到点递减，
// 归零时重置为 interval 并触发中断回调，请求当前 tasklet 在下一个
// 安全点让出。这是软中断：只在显式签到点生效，从不异步抢占。
package stackless

// ============================================================================
// 中断回调
// ============================================================================

// Decision 中断回调产生的让出决定
type Decision int

const (
	// DecisionContinue 不让出，当前 tasklet 继续执行
	DecisionContinue Decision = iota

	// DecisionYield 请求切换到下一个可运行 tasklet
	DecisionYield
)

// Interrupter 软中断回调：产生一个让出决定
//
// 回调在 schedlock 保护下执行，回调内部再触发调度请求会收到
// ErrReentrantSchedule。决定由引擎在回调返回、schedlock 释放之后
// 才付诸实施。
type Interrupter interface {
	Interrupt(ts *ThreadState) Decision
}

// InterrupterFunc 函数形式的 Interrupter 适配器
type InterrupterFunc func(ts *ThreadState) Decision

// Interrupt 实现 Interrupter
func (f InterrupterFunc) Interrupt(ts *ThreadState) Decision {
	return f(ts)
}

// defaultInterrupter 默认中断回调：总是请求让出
type defaultInterrupter struct{}

// Interrupt 实现 Interrupter
func (defaultInterrupter) Interrupt(*ThreadState) Decision {
	return DecisionYield
}

// ============================================================================
// 看门狗配置与触发
// ============================================================================

// SetWatchdog 配置看门狗
//
// interval <= 0 表示禁用，ticker 不再被消耗；in 为 nil 时使用
// 默认回调（总是让出）。屏蔽软中断的运行标志位与 interval 为 0
// 是同一种"看门狗失效"状态的两种写法，不做区分。
func (ts *ThreadState) SetWatchdog(interval int64, in Interrupter) {
	if in == nil {
		in = defaultInterrupter{}
	}
	ts.interrupt = in
	ts.interval.Store(interval)
	ts.ticker.Store(interval)
}

// Tick 调度可见的签到点
//
// 解释器在指令执行间隙调用。看门狗启用时每次调用消耗一格 ticker，
// 归零触发软中断。间隔为 N 时恰好在第 N 次签到触发一次。
func (ts *ThreadState) Tick() error {
	interval := ts.interval.Load()
	if interval <= 0 {
		return nil
	}
	if ts.ticker.Dec() > 0 {
		return nil
	}
	ts.ticker.Store(interval)

	if ts.runflags.Load()&RunNoSoftIRQ != 0 {
		return nil
	}
	return ts.fireInterrupt()
}

// fireInterrupt 执行软中断
//
// 回调在 schedlock 下运行；产生让出决定后，仅当存在其他可运行
// tasklet 时才把当前 tasklet 记为 interrupted 并切换出去，否则
// 中断请求退化为空操作，interrupted 保持为空。
func (ts *ThreadState) fireInterrupt() error {
	if err := ts.ensureActive(); err != nil {
		return err
	}
	if err := ts.acquireSchedLock(); err != nil {
		return err
	}
	d := ts.interrupt.Interrupt(ts)
	ts.releaseSchedLock()

	if d != DecisionYield {
		return nil
	}

	ts.drainInbox()
	if !ts.hasRunnable() {
		return nil
	}

	ts.interrupted = ts.currentTasklet()
	if err := ts.YieldCurrent(); err != nil {
		ts.interrupted = nil
		return err
	}
	return nil
}

// hasRunnable 运行队列中是否存在未死亡的 tasklet
func (ts *ThreadState) hasRunnable() bool {
	for _, t := range ts.runQueue {
		if !t.IsDead() {
			return true
		}
	}
	return false
}

// Ticker 获取当前 ticker 余量
func (ts *ThreadState) Ticker() int64 {
	return ts.ticker.Load()
}

// Interval 获取看门狗间隔
func (ts *ThreadState) Interval() int64 {
	return ts.interval.Load()
}
