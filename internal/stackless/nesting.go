// Package stackless 实现了解释器的协作式任务调度核心（tasklet 调度器）。
//
// 本文件实现嵌套深度跟踪。宿主可能在某个 tasklet 挂起到一半时
// 递归重入调度核心（例如挂起调用链深处的回调再次调用运行时），
// 计数保证 initial stub 与主 tasklet 的创建和销毁跨递归深度一致。
package stackless

import "go.uber.org/multierr"

// EnterNested 记录一次对调度核心的递归进入
//
// 只有最外层进入（0 -> 1）允许初始化 initial stub 和主 tasklet；
// 嵌套期间两者必然已存在，不会被重建。
func (ts *ThreadState) EnterNested() error {
	if ts.phase == phaseTearingDown || ts.phase == phaseDestroyed {
		return ErrTornDown
	}
	if ts.nestingLevel == 0 {
		if err := ts.ensureActive(); err != nil {
			return err
		}
	}
	ts.nestingLevel++
	return nil
}

// ExitNested 记录与 EnterNested 匹配的退出
//
// 计数降到零以下说明调度器状态已不可信：这是线程级致命错误，
// 立即执行销毁流程并把销毁错误与 ErrUnbalancedNesting 一并返回。
func (ts *ThreadState) ExitNested() error {
	if ts.nestingLevel == 0 {
		return multierr.Append(ErrUnbalancedNesting, ts.teardown())
	}
	ts.nestingLevel--
	return nil
}

// NestingLevel 获取当前嵌套深度
func (ts *ThreadState) NestingLevel() int {
	return ts.nestingLevel
}
