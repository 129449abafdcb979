// Package stackless 实现了解释器的协作式任务调度核心（tasklet 调度器）。
//
// 本文件定义调度核心的错误分类。
package stackless

import "errors"

// 调度核心的哨兵错误。
//
// 错误分类：
//   - ErrResourceExhausted：stacklet 资源分配失败，由 Spawn 的调用者处理，不自动重试
//   - ErrReentrantSchedule：可恢复，调度请求被丢弃，任务保持可运行，可稍后重试
//   - ErrSwitchForbidden：宿主程序错误，操作被中止且不产生任何部分状态变更
//   - ErrUnbalancedNesting：线程级致命错误，调度器状态不再可信，立即进入销毁流程
var (
	// ErrResourceExhausted stacklet 数量达到上限，无法分配新的执行上下文
	ErrResourceExhausted = errors.New("stackless: stacklet resource exhausted")

	// ErrReentrantSchedule 调度回调执行期间收到了新的调度请求
	ErrReentrantSchedule = errors.New("stackless: reentrant schedule request rejected")

	// ErrSwitchForbidden switch trap 生效期间尝试切换栈
	ErrSwitchForbidden = errors.New("stackless: stack switching is forbidden")

	// ErrUnbalancedNesting ExitNested 没有与之匹配的 EnterNested
	ErrUnbalancedNesting = errors.New("stackless: unbalanced nesting exit")

	// ErrStackletLive 尝试销毁正在执行的 stacklet
	ErrStackletLive = errors.New("stackless: cannot destroy a live stacklet")

	// ErrMainTasklet 尝试把主 tasklet 从调度中移除
	ErrMainTasklet = errors.New("stackless: the main tasklet cannot be removed")

	// ErrNotMainStack 操作要求在线程的原始栈（main）上执行
	ErrNotMainStack = errors.New("stackless: operation requires the thread's original stack")

	// ErrTornDown 调度器已进入销毁流程，不再接受新的请求
	ErrTornDown = errors.New("stackless: thread state is torn down")
)
