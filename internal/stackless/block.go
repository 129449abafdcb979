// Package stackless 实现了解释器的协作式任务调度核心（tasklet 调度器）。
//
// 本文件实现线程阻塞协调器：没有可运行 tasklet 时停泊拥有者线程，
// 由其他线程递交工作并唤醒。这是 ThreadState 中唯一允许跨线程
// 访问的部分。
//
// 握手约束：生产者的"计入工作 + 检查并清除阻塞标记"与消费者的
// "检查无工作 + 停泊"必须相对彼此是一个原子步骤，否则会丢失唤醒。
// 两侧都在同一把互斥锁的临界区内完成，唤醒不可能丢失。
package stackless

import "sync"

// blockState 阻塞/唤醒握手状态
type blockState struct {
	// mu 握手互斥锁
	mu sync.Mutex

	// cond 停泊条件变量
	cond *sync.Cond

	// isBlocked 仅在拥有者线程停泊等待工作期间为真
	isBlocked bool

	// inbox 其他线程递交的待生成任务入口
	// 由拥有者线程在调度点转化为真正的 tasklet
	inbox []func()
}

// init 初始化握手状态
func (b *blockState) init() {
	b.cond = sync.NewCond(&b.mu)
}

// BlockUntilWork 停泊拥有者线程直到有工作可做
//
// 仅当 runcount == 0 时调用。返回时必然观察到 runcount >= 1。
func (ts *ThreadState) BlockUntilWork() error {
	if err := ts.ensureActive(); err != nil {
		return err
	}

	b := &ts.block
	b.mu.Lock()
	for ts.runcount.Load() == 0 {
		b.isBlocked = true
		b.cond.Wait()
	}
	b.isBlocked = false
	b.mu.Unlock()

	ts.drainInbox()
	return nil
}

// Wake 唤醒停泊中的目标线程
//
// 由生产者线程在计入工作之后调用；目标线程未停泊时为空操作。
func Wake(ts *ThreadState) {
	b := &ts.block
	b.mu.Lock()
	if b.isBlocked {
		b.isBlocked = false
		b.cond.Signal()
	}
	b.mu.Unlock()
}

// Post 从其他线程向目标线程递交一个可运行任务
//
// 计入 runcount、投递入口、清除阻塞标记并唤醒在同一个临界区内
// 完成。入口函数由拥有者线程在下一个调度点实际生成为 tasklet。
func Post(ts *ThreadState, entry func()) {
	b := &ts.block
	b.mu.Lock()
	b.inbox = append(b.inbox, entry)
	ts.runcount.Inc()
	if b.isBlocked {
		b.isBlocked = false
		b.cond.Signal()
	}
	b.mu.Unlock()
}

// drainInbox 把其他线程递交的任务转化为本线程的 tasklet
//
// 只在拥有者线程的调度点调用；这些任务的 runcount 在投递时已计入。
func (ts *ThreadState) drainInbox() {
	b := &ts.block
	b.mu.Lock()
	pending := b.inbox
	b.inbox = nil
	b.mu.Unlock()

	for _, entry := range pending {
		ts.enqueueNew(entry, 0)
	}
}
