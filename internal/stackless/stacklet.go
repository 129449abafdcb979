// Package stackless 实现了解释器的协作式任务调度核心（tasklet 调度器）。
//
// 本文件实现栈切换引擎。stacklet 是引擎独占管理的不透明执行上下文，
// 与 tasklet 一一绑定。引擎是唯一接触真实执行上下文的组件。
//
// 切换模型：
//   - 除线程原始栈（initial stub）外，每个 stacklet 对应一个停泊在
//     单槽 resume 通道上的专属 goroutine
//   - 切换就是向目标的 resume 通道递出令牌，然后在自己的通道上停泊
//   - 任一时刻每个线程至多一个 stacklet 是"活"的，其余都是冻结快照
package stackless

import "go.uber.org/zap"

// ============================================================================
// 切换令牌
// ============================================================================

// baton 切换令牌
type baton int

const (
	// batonResume 正常恢复执行
	batonResume baton = iota

	// batonTeardown 销毁请求：目标 goroutine 应展开调用链并退出
	batonTeardown
)

// SwitchOutcome 一次完整切换往返的结果
type SwitchOutcome int

const (
	// SwitchResumed 往返正常完成，调用者重新成为活栈
	SwitchResumed SwitchOutcome = iota

	// SwitchTeardown 往返被销毁请求打断，调用者必须立即展开退出
	SwitchTeardown
)

// teardownUnwind 销毁展开哨兵
// 经 panic 穿透用户调用链，由 stacklet 跳板统一 recover
type teardownUnwind struct{}

// ============================================================================
// stacklet 结构
// ============================================================================

// Stacklet 引擎管理的执行上下文
//
// 所有权规则：stacklet 由切换引擎独占持有，任何时候不允许两个逻辑
// 所有者共享一个活的 stacklet。
type Stacklet struct {
	// id 创建序号，即分配时的 serial 值
	id int64

	// resume 切换令牌通道（容量 1，接收方必然已停泊，发送不阻塞）
	resume chan baton

	// done 绑定的 goroutine 退出时关闭
	// initial stub 没有专属 goroutine，done 为 nil
	done chan struct{}

	// stub 是否为 initial stub
	stub bool
}

// ID 返回 stacklet 的创建序号
func (s *Stacklet) ID() int64 {
	return s.id
}

// ============================================================================
// stacklet 创建和销毁
// ============================================================================

// newStacklet 从 initial stub 克隆出一个新的挂起 stacklet
//
// 新 stacklet 的 goroutine 立即启动但停泊在 resume 通道上，
// 直到第一次被切换到才会执行 tasklet 的入口函数。
func (ts *ThreadState) newStacklet(t *Tasklet) *Stacklet {
	s := &Stacklet{
		id:     ts.serial.Inc(),
		resume: make(chan baton, 1),
		done:   make(chan struct{}),
	}
	ts.startStacklet(s, t)
	return s
}

// startStacklet 启动 stacklet 的跳板 goroutine
//
// 跳板职责：
//  1. 停泊等待第一个切换令牌
//  2. 成为活栈后排空延迟释放队列
//  3. 执行入口函数，并兜住用户 panic 和销毁展开
//  4. 正常结束时完成 tasklet 终止流程并移交执行权
func (ts *ThreadState) startStacklet(s *Stacklet, t *Tasklet) {
	go func() {
		defer close(s.done)

		if b := <-s.resume; b == batonTeardown {
			// 从未运行过就被销毁
			t.SetStatus(TaskletDead)
			return
		}

		// 此刻本 stacklet 已是活栈，上一次切换遗留的延迟释放在这里排空
		ts.drainDeferred()

		if ts.runEntry(t) {
			// 销毁展开：销毁方正在等待本 goroutine 退出，不得移交执行权
			t.SetStatus(TaskletDead)
			return
		}

		ts.finishCurrent(t)
	}()
}

// runEntry 执行 tasklet 入口函数
//
// 返回 true 表示执行被销毁请求展开打断。
// 用户代码的 panic 被兜住并记录，tasklet 按异常终止处理。
func (ts *ThreadState) runEntry(t *Tasklet) (tornDown bool) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(teardownUnwind); ok {
				tornDown = true
				return
			}
			ts.logger.Error("tasklet terminated by panic",
				zap.Int64("tasklet", t.ID),
				zap.Any("panic", r))
		}
	}()
	t.entry()
	return false
}

// destroyStacklet 销毁一个非活的 stacklet
//
// 向停泊中的 goroutine 注入销毁令牌并等待它展开退出，从而回收
// 其全部执行资源。对活 stacklet 调用是使用错误。
func (ts *ThreadState) destroyStacklet(s *Stacklet) error {
	if s == nil || s.stub {
		// initial stub 没有专属 goroutine，由 teardown 最后直接丢弃
		return nil
	}
	if jr := ts.jump.Load(); jr != nil && jr.serialLastJump == s.id {
		return ErrStackletLive
	}

	select {
	case <-s.done:
		// goroutine 已自行退出
		return nil
	default:
	}

	s.resume <- batonTeardown
	<-s.done
	return nil
}

// ============================================================================
// 切换核心
// ============================================================================

// handoff 把执行权移交给 next
//
// (current, serialLastJump) 对通过单次指针交换原子更新，任何中断
// 读者都不可能观察到半更新的组合。更新先于令牌递出，因此 next 恢复
// 时看到的必然是一致的新状态。
func (ts *ThreadState) handoff(next *Tasklet) {
	next.SetStatus(TaskletRunning)
	ts.jump.Store(&jumpRecord{
		current:        next,
		serialLastJump: next.stacklet.id,
	})
	next.stacklet.resume <- batonResume
}

// switchTo 把真实执行上下文从当前 stacklet 转移到 next 的 stacklet
//
// 调用者就地挂起，直到之后某次切换再次以它为目标才返回。
// 返回值报告往返是正常完成还是被销毁请求打断。
func (ts *ThreadState) switchTo(next *Tasklet) (SwitchOutcome, error) {
	if ts.switchTrap.Load() != 0 {
		return SwitchResumed, ErrSwitchForbidden
	}

	self := ts.currentTasklet()
	ts.handoff(next)

	if b := <-self.stacklet.resume; b == batonTeardown {
		return SwitchTeardown, nil
	}

	// 重新成为活栈，排空切换期间积累的延迟释放
	ts.drainDeferred()
	return SwitchResumed, nil
}
