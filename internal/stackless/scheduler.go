// Package stackless 实现了解释器的协作式任务调度核心（tasklet 调度器）。
//
// 本文件实现每线程调度状态（ThreadState），它是调度核心的锚点：
// 拥有 initial stub、运行队列、看门狗、重入保护、延迟释放队列和
// 线程阻塞协调器。
//
// 调度器采用协作式调度模型：
//   - tasklet 只在显式切换点让出执行权
//   - 看门狗在签到点请求软中断，不存在异步抢占
//   - 每个 OS 线程一个独立的 ThreadState，除阻塞协调器外均无锁
//
// 调度策略：
//   - 简单的 FIFO 队列
//   - 让出的 tasklet 加入队列尾部
//   - 主 tasklet 挂起时与普通 tasklet 一样排队
package stackless

import (
	"fmt"
	"sync/atomic"

	uatomic "go.uber.org/atomic"
	"go.uber.org/zap"
)

// ============================================================================
// 调度器配置
// ============================================================================

const (
	// DefaultMaxTasklets 默认最大 tasklet 数量
	// 超出后 Spawn 返回 ErrResourceExhausted
	DefaultMaxTasklets = 10000

	// DefaultPoolSize 默认 tasklet 对象池容量
	DefaultPoolSize = 64

	// DefaultWatchdogInterval 默认看门狗间隔（签到步数）
	DefaultWatchdogInterval = 1000
)

// RunNoSoftIRQ 运行标志位：屏蔽软中断
// 置位期间看门狗到期不触发中断回调
const RunNoSoftIRQ uint32 = 1 << 31

// ============================================================================
// 生命周期阶段
// ============================================================================

// lifecyclePhase ThreadState 生命周期阶段
type lifecyclePhase int32

const (
	phaseUninitialized lifecyclePhase = iota
	phaseActive
	phaseTearingDown
	phaseDestroyed
)

// String 返回阶段的字符串表示
func (p lifecyclePhase) String() string {
	switch p {
	case phaseUninitialized:
		return "uninitialized"
	case phaseActive:
		return "active"
	case phaseTearingDown:
		return "tearing-down"
	case phaseDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// ============================================================================
// 调度状态结构
// ============================================================================

// jumpRecord 记录线程真实调用栈当前归属的 (current, serialLastJump) 对
//
// 两个字段必须作为整体被观察：切换引擎以单次指针交换替换整条记录，
// 任何读者都不可能看到半更新的组合。
type jumpRecord struct {
	// current 正在执行的 tasklet
	current *Tasklet

	// serialLastJump 线程真实调用栈所属 stacklet 的创建序号
	// 不变量：serialLastJump <= serial
	serialLastJump int64
}

// ThreadState 每 OS 线程一份的调度状态锚点
//
// 除线程阻塞协调器外，所有字段只允许拥有者线程访问；跨线程访问
// 他人的 ThreadState 属于未定义行为，必须从构造上杜绝。
type ThreadState struct {
	// =========================================================================
	// 栈切换引擎状态
	// =========================================================================

	// initialStub 新 stacklet 的克隆模板，代表线程的原始栈
	// 首次切换时惰性创建，线程销毁时最后释放
	initialStub *Stacklet

	// serial 已创建 stacklet 的单调序号
	serial uatomic.Int64

	// jump 当前 (current, serialLastJump) 对
	jump atomic.Pointer[jumpRecord]

	// =========================================================================
	// 运行队列锚
	// =========================================================================

	// main 线程的主 tasklet，拥有线程的原始栈
	main *Tasklet

	// runQueue 可运行 tasklet 队列（不含 current）
	runQueue []*Tasklet

	// runcount 已创建且未终止的可运行 tasklet 数量（不含 main）
	// 不变量：runcount >= 0；runcount == 0 时线程允许阻塞
	runcount uatomic.Int32

	// allTasklets 所有存活的普通 tasklet
	// key: tasklet ID
	allTasklets map[int64]*Tasklet

	// nextID 下一个 tasklet ID
	nextID uatomic.Int64

	// =========================================================================
	// 看门狗状态
	// =========================================================================

	// ticker 签到计数器，从 interval 向零递减
	ticker uatomic.Int64

	// interval 看门狗间隔，<= 0 表示看门狗完全失效
	interval uatomic.Int64

	// interrupt 软中断回调，产生让出决定
	interrupt Interrupter

	// runflags 运行模式标志位（见 RunNoSoftIRQ）
	runflags uatomic.Uint32

	// interrupted 被看门狗强制挂起、等待重新调度的 tasklet
	interrupted *Tasklet

	// =========================================================================
	// 重入保护
	// =========================================================================

	// schedlock 调度回调执行期间非零
	// 不变量：观察到 schedlock != 0 的第二个调度请求必须被拒绝
	schedlock uatomic.Int32

	// switchTrap 非零时禁止一切栈切换
	switchTrap uatomic.Int32

	// =========================================================================
	// 线程阻塞协调器（唯一允许跨线程访问的部分）
	// =========================================================================

	// block 阻塞/唤醒握手状态
	block blockState

	// =========================================================================
	// 嵌套与延迟释放
	// =========================================================================

	// nestingLevel 递归进入调度核心的深度
	// 不变量：nestingLevel >= 0
	nestingLevel int

	// delPostSwitch 待释放对象队列
	// 仅在"切换完成"与"延迟释放已排空"之间非空
	delPostSwitch *releaseQueue

	// =========================================================================
	// 生命周期与配套设施
	// =========================================================================

	// phase 生命周期阶段
	phase lifecyclePhase

	// pool tasklet 对象池
	pool *taskletPool

	// maxTasklets tasklet 数量上限
	maxTasklets int

	// logger 诊断日志，不出现在切换热路径上
	logger *zap.Logger
}

// ============================================================================
// 构造
// ============================================================================

// Options ThreadState 构造参数
type Options struct {
	// MaxTasklets tasklet 数量上限，<= 0 使用 DefaultMaxTasklets
	MaxTasklets int

	// PoolSize tasklet 对象池容量，<= 0 使用 DefaultPoolSize
	PoolSize int

	// WatchdogInterval 看门狗间隔，<= 0 表示禁用
	WatchdogInterval int64

	// RunFlags 初始运行标志位
	RunFlags uint32

	// Logger 诊断日志，nil 使用 zap.NewNop()
	Logger *zap.Logger
}

// NewThreadState 创建线程调度状态
//
// 返回的状态处于 Uninitialized 阶段，首次 Spawn 或切换时才会
// 创建 initial stub 和主 tasklet。
func NewThreadState(opts Options) *ThreadState {
	if opts.MaxTasklets <= 0 {
		opts.MaxTasklets = DefaultMaxTasklets
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ts := &ThreadState{
		allTasklets: make(map[int64]*Tasklet),
		pool:        newTaskletPool(opts.PoolSize),
		maxTasklets: opts.MaxTasklets,
		logger:      opts.Logger,
		interrupt:   defaultInterrupter{},
	}
	ts.interval.Store(opts.WatchdogInterval)
	ts.ticker.Store(opts.WatchdogInterval)
	ts.runflags.Store(opts.RunFlags)
	ts.block.init()
	return ts
}

// ensureActive 惰性完成 Uninitialized -> Active 迁移
//
// 只有最外层进入（nestingLevel 为 0 时的首次切换尝试）才会创建
// initial stub 和主 tasklet；嵌套期间两者必然已经存在。
func (ts *ThreadState) ensureActive() error {
	switch ts.phase {
	case phaseActive:
		return nil
	case phaseTearingDown, phaseDestroyed:
		return ErrTornDown
	}

	ts.initialStub = &Stacklet{
		id:     ts.serial.Inc(),
		resume: make(chan baton, 1),
		stub:   true,
	}

	m := newTasklet(ts.nextID.Inc(), 0)
	m.stacklet = ts.initialStub
	m.SetStatus(TaskletRunning)
	ts.main = m

	ts.jump.Store(&jumpRecord{
		current:        m,
		serialLastJump: ts.initialStub.id,
	})
	ts.phase = phaseActive
	return nil
}

// ============================================================================
// tasklet 创建和移除
// ============================================================================

// Spawn 创建新 tasklet 并链入运行队列
//
// 新 tasklet 获得一个从 initial stub 克隆的挂起 stacklet，
// 首次被切换到时开始执行 entry。
func (ts *ThreadState) Spawn(entry func()) (*Tasklet, error) {
	if err := ts.ensureActive(); err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("stackless: spawn requires an entry function")
	}

	ts.drainInbox()

	if len(ts.allTasklets) >= ts.maxTasklets {
		return nil, fmt.Errorf("spawn: %w", ErrResourceExhausted)
	}

	var parentID int64
	if c := ts.currentTasklet(); c != nil {
		parentID = c.ID
	}

	t := ts.enqueueNew(entry, parentID)
	ts.runcount.Inc()
	return t, nil
}

// enqueueNew 创建 tasklet、绑定 stacklet 并加入队列
//
// 调用者负责 runcount 计数（Post 投递的任务在投递时已计入）。
func (ts *ThreadState) enqueueNew(entry func(), parentID int64) *Tasklet {
	t := ts.pool.Get(ts.nextID.Inc(), parentID)
	t.entry = entry
	t.stacklet = ts.newStacklet(t)

	ts.allTasklets[t.ID] = t
	ts.runQueue = append(ts.runQueue, t)
	return t
}

// Remove 显式把一个挂起的 tasklet 从调度中解除并回收其 stacklet
//
// 不允许移除主 tasklet；移除当前正在执行的 tasklet 返回 ErrStackletLive。
func (ts *ThreadState) Remove(t *Tasklet) error {
	if ts.phase != phaseActive {
		return ErrTornDown
	}
	if t == ts.main {
		return ErrMainTasklet
	}
	if t.IsDead() {
		return nil
	}

	if err := ts.destroyStacklet(t.stacklet); err != nil {
		return err
	}

	t.SetStatus(TaskletDead)
	ts.removeFromRunQueue(t)
	delete(ts.allTasklets, t.ID)
	ts.runcount.Dec()
	ts.pool.Put(t)
	return nil
}

// ============================================================================
// 调度核心
// ============================================================================

// YieldCurrent 当前 tasklet 显式让出执行权
//
// 请求先经过重入保护校验；没有其他可运行 tasklet 时为空操作，
// 同一 tasklet 继续执行。
func (ts *ThreadState) YieldCurrent() error {
	if err := ts.ensureActive(); err != nil {
		return err
	}
	if ts.schedlock.Load() != 0 {
		return ErrReentrantSchedule
	}
	if ts.switchTrap.Load() != 0 {
		return ErrSwitchForbidden
	}

	ts.drainInbox()

	next := ts.popRunnable()
	if next == nil {
		return nil
	}

	cur := ts.currentTasklet()
	cur.SetStatus(TaskletRunnable)
	ts.runQueue = append(ts.runQueue, cur)

	outcome, err := ts.switchTo(next)
	if err != nil {
		return err
	}
	if outcome == SwitchTeardown {
		panic(teardownUnwind{})
	}
	return nil
}

// finishCurrent 完成当前 tasklet 的终止流程并移交执行权
//
// 在濒死 tasklet 自己的栈上执行。绑定的上层对象进入延迟释放队列，
// 其析构在下一个 stacklet 完全成为活栈之后才运行。
//
// 终止移交是引擎内部的队列修复动作，不是可挂起点，因而不受
// switch trap 约束。
func (ts *ThreadState) finishCurrent(t *Tasklet) {
	t.SetStatus(TaskletDead)
	delete(ts.allTasklets, t.ID)
	ts.runcount.Dec()

	if t.payload != nil {
		ts.DeferRelease(t.payload)
		t.payload = nil
	}
	ts.pool.Put(t)

	ts.drainInbox()

	// 只要有普通 tasklet 在执行，主 tasklet 必然挂起在运行队列中，
	// 所以这里总能找到移交目标
	next := ts.popRunnable()
	ts.handoff(next)
}

// popRunnable 取出队首的可运行 tasklet
//
// 跳过已被移除的死 tasklet；返回 nil 表示队列为空。
func (ts *ThreadState) popRunnable() *Tasklet {
	for len(ts.runQueue) > 0 {
		t := ts.runQueue[0]
		ts.runQueue = ts.runQueue[1:]
		if t.IsDead() {
			continue
		}
		return t
	}
	return nil
}

// removeFromRunQueue 从运行队列中移除 tasklet
func (ts *ThreadState) removeFromRunQueue(t *Tasklet) {
	for i, item := range ts.runQueue {
		if item == t {
			ts.runQueue = append(ts.runQueue[:i], ts.runQueue[i+1:]...)
			return
		}
	}
}

// Run 运行调度队列直到排空或被看门狗打断
//
// 只能在主 tasklet 的栈上调用。被看门狗强制挂起的 tasklet 交还给
// 调用者，它仍在运行队列中，可由调用者决定后续处置。
func (ts *ThreadState) Run() (*Tasklet, error) {
	if err := ts.ensureActive(); err != nil {
		return nil, err
	}
	if ts.currentTasklet() != ts.main {
		return nil, ErrNotMainStack
	}

	for {
		ts.drainInbox()
		if !ts.hasRunnable() {
			return nil, nil
		}
		if err := ts.YieldCurrent(); err != nil {
			return nil, err
		}
		if t := ts.interrupted; t != nil {
			ts.interrupted = nil
			return t, nil
		}
	}
}

// ============================================================================
// 状态查询
// ============================================================================

// currentTasklet 读取当前 tasklet（激活前为 nil）
func (ts *ThreadState) currentTasklet() *Tasklet {
	jr := ts.jump.Load()
	if jr == nil {
		return nil
	}
	return jr.current
}

// Current 获取当前正在执行的 tasklet
func (ts *ThreadState) Current() *Tasklet {
	return ts.currentTasklet()
}

// Main 获取主 tasklet
func (ts *ThreadState) Main() *Tasklet {
	return ts.main
}

// RunCount 获取可运行的普通 tasklet 数量
func (ts *ThreadState) RunCount() int32 {
	return ts.runcount.Load()
}

// Serial 获取已创建 stacklet 的单调序号
func (ts *ThreadState) Serial() int64 {
	return ts.serial.Load()
}

// SerialLastJump 获取线程真实调用栈所属 stacklet 的序号
func (ts *ThreadState) SerialLastJump() int64 {
	jr := ts.jump.Load()
	if jr == nil {
		return 0
	}
	return jr.serialLastJump
}

// Interrupted 获取被看门狗强制挂起的 tasklet（没有则为 nil）
func (ts *ThreadState) Interrupted() *Tasklet {
	return ts.interrupted
}

// SetRunFlags 设置运行标志位
func (ts *ThreadState) SetRunFlags(flags uint32) {
	ts.runflags.Store(flags)
}

// RunFlags 获取运行标志位
func (ts *ThreadState) RunFlags() uint32 {
	return ts.runflags.Load()
}
