// Package stackless 实现了解释器的协作式任务调度核心（tasklet 调度器）。
//
// 本文件实现配置文件到构造参数的转换。
package stackless

import (
	"go.uber.org/zap"

	"github.com/akruis/cpython/internal/config"
)

// OptionsFromConfig 把运行时配置转换为 ThreadState 构造参数
//
// logger 为 nil 时按配置的日志级别构建；构建失败退回 zap.NewNop()。
func OptionsFromConfig(cfg *config.Config, logger *zap.Logger) Options {
	if cfg == nil {
		cfg = config.Default()
	}

	var flags uint32
	if cfg.Watchdog.NoSoftIRQ {
		flags |= RunNoSoftIRQ
	}

	if logger == nil {
		l, err := cfg.BuildLogger()
		if err != nil {
			l = zap.NewNop()
		}
		logger = l
	}

	return Options{
		MaxTasklets:      cfg.Scheduler.MaxTasklets,
		PoolSize:         cfg.Scheduler.PoolSize,
		WatchdogInterval: cfg.Watchdog.Interval,
		RunFlags:         flags,
		Logger:           logger,
	}
}
