// Package stackless 实现了解释器的协作式任务调度核心（tasklet 调度器）。
//
// 本文件实现 tasklet 数据结构。tasklet 是调度核心管理的逻辑执行线程，
// 其对象身份由上层解释器拥有，调度器只管理它在运行队列中的成员关系。
package stackless

import "sync/atomic"

// ============================================================================
// tasklet 状态
// ============================================================================

// TaskletStatus tasklet 状态
type TaskletStatus int32

const (
	// TaskletRunnable 可运行状态
	// tasklet 已准备好执行，在运行队列中等待
	TaskletRunnable TaskletStatus = iota

	// TaskletRunning 运行中状态
	// tasklet 的 stacklet 正持有真实的 CPU 栈
	TaskletRunning

	// TaskletDead 死亡状态
	// tasklet 执行完毕、被移除或在线程销毁时被强制终止
	TaskletDead
)

// String 返回状态的字符串表示
func (s TaskletStatus) String() string {
	switch s {
	case TaskletRunnable:
		return "runnable"
	case TaskletRunning:
		return "running"
	case TaskletDead:
		return "dead"
	default:
		return "unknown"
	}
}

// ============================================================================
// tasklet 结构
// ============================================================================

// Releaser 调度核心能够持有并释放的对象。
//
// 释放可能触发任意析构逻辑，因此在栈切换前后必须经由延迟释放队列
// （ThreadState.DeferRelease）而不能就地释放。
type Releaser interface {
	Release()
}

// Tasklet 表示一个协作式调度的逻辑执行线程
//
// 每个 tasklet 与一个 stacklet（由切换引擎独占管理的执行上下文）一一绑定。
// tasklet 只在显式的切换点让出执行权，不会被异步抢占。
type Tasklet struct {
	// =========================================================================
	// 标识信息
	// =========================================================================

	// ID tasklet 的唯一标识符
	// 由调度器分配，单调递增
	ID int64

	// ParentID 父 tasklet ID
	// 主 tasklet 的 ParentID 为 0
	ParentID int64

	// status 当前状态
	// 使用原子操作保证并发安全
	status TaskletStatus

	// =========================================================================
	// 执行上下文
	// =========================================================================

	// entry tasklet 的入口函数
	// 主 tasklet 没有入口函数（它拥有线程的原始栈）
	entry func()

	// stacklet 绑定的执行上下文
	// 由切换引擎独占管理，主 tasklet 绑定 initial stub
	stacklet *Stacklet

	// =========================================================================
	// 对象模型挂接
	// =========================================================================

	// payload tasklet 携带的上层对象引用
	// tasklet 终止时经延迟释放队列释放，而不是在被拆除的栈上就地释放
	payload Releaser
}

// ============================================================================
// tasklet 方法
// ============================================================================

// newTasklet 创建新 tasklet
func newTasklet(id int64, parentID int64) *Tasklet {
	return &Tasklet{
		ID:       id,
		ParentID: parentID,
		status:   TaskletRunnable,
	}
}

// SetStatus 原子设置状态
func (t *Tasklet) SetStatus(status TaskletStatus) {
	atomic.StoreInt32((*int32)(&t.status), int32(status))
}

// Status 原子获取状态
func (t *Tasklet) Status() TaskletStatus {
	return TaskletStatus(atomic.LoadInt32((*int32)(&t.status)))
}

// IsRunnable 检查 tasklet 是否可运行
func (t *Tasklet) IsRunnable() bool {
	return t.Status() == TaskletRunnable
}

// IsDead 检查 tasklet 是否已终止
func (t *Tasklet) IsDead() bool {
	return t.Status() == TaskletDead
}

// Bind 绑定上层对象引用
//
// 绑定的对象在 tasklet 终止时经延迟释放队列释放。
func (t *Tasklet) Bind(obj Releaser) {
	t.payload = obj
}

// reset 重置 tasklet 状态（用于复用）
func (t *Tasklet) reset() {
	t.status = TaskletRunnable
	t.entry = nil
	t.stacklet = nil
	t.payload = nil
}

// ============================================================================
// tasklet 池（用于减少内存分配）
// ============================================================================

// taskletPool tasklet 对象池
type taskletPool struct {
	pool []*Tasklet
	max  int
}

// newTaskletPool 创建 tasklet 池
func newTaskletPool(max int) *taskletPool {
	if max <= 0 {
		max = DefaultPoolSize
	}
	return &taskletPool{
		pool: make([]*Tasklet, 0, 16),
		max:  max,
	}
}

// Get 从池中获取 tasklet
func (p *taskletPool) Get(id int64, parentID int64) *Tasklet {
	if len(p.pool) > 0 {
		t := p.pool[len(p.pool)-1]
		p.pool = p.pool[:len(p.pool)-1]
		t.reset()
		t.ID = id
		t.ParentID = parentID
		return t
	}
	return newTasklet(id, parentID)
}

// Put 归还 tasklet 到池中
func (p *taskletPool) Put(t *Tasklet) {
	if len(p.pool) < p.max {
		p.pool = append(p.pool, t)
	}
}
