// Package config 实现调度核心的运行时配置
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 常量定义
const (
	ConfigFileName = "stackless.toml" // 配置文件名
)

// Config 调度核心配置
type Config struct {
	Scheduler SchedulerConfig `toml:"scheduler"`
	Watchdog  WatchdogConfig  `toml:"watchdog"`
	Log       LogConfig       `toml:"log"`
}

// SchedulerConfig 调度器配置
type SchedulerConfig struct {
	// MaxTasklets tasklet 数量上限，0 使用内置默认值
	MaxTasklets int `toml:"max_tasklets"`

	// PoolSize tasklet 对象池容量，0 使用内置默认值
	PoolSize int `toml:"pool_size"`
}

// WatchdogConfig 看门狗配置
type WatchdogConfig struct {
	// Interval 软中断间隔（签到步数），0 禁用看门狗
	Interval int64 `toml:"interval"`

	// NoSoftIRQ 屏蔽软中断（等价于禁用看门狗的另一种写法）
	NoSoftIRQ bool `toml:"no_soft_irq"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别：debug / info / warn / error
	Level string `toml:"level"`
}

// Default 生成默认配置
func Default() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			MaxTasklets: 10000,
			PoolSize:    64,
		},
		Watchdog: WatchdogConfig{
			Interval: 1000,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Load 从文件加载配置
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Save 保存配置到文件
func (c *Config) Save(path string) error {
	content := generateConfigWithComments(c)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Scheduler.MaxTasklets < 0 {
		return fmt.Errorf("invalid scheduler.max_tasklets: %d", c.Scheduler.MaxTasklets)
	}
	if c.Scheduler.PoolSize < 0 {
		return fmt.Errorf("invalid scheduler.pool_size: %d", c.Scheduler.PoolSize)
	}
	if c.Watchdog.Interval < 0 {
		return fmt.Errorf("invalid watchdog.interval: %d", c.Watchdog.Interval)
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	return nil
}

// ZapLevel 把配置的日志级别转换为 zap 级别
func (c *Config) ZapLevel() zapcore.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}

// BuildLogger 按配置构建日志器
func (c *Config) BuildLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(c.ZapLevel())
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// generateConfigWithComments 生成带注释的配置文件内容
func generateConfigWithComments(c *Config) string {
	var sb strings.Builder

	sb.WriteString("[scheduler]\n")
	sb.WriteString("# tasklet 数量上限\n")
	sb.WriteString(fmt.Sprintf("max_tasklets = %d\n\n", c.Scheduler.MaxTasklets))
	sb.WriteString("# tasklet 对象池容量\n")
	sb.WriteString(fmt.Sprintf("pool_size = %d\n\n", c.Scheduler.PoolSize))

	sb.WriteString("[watchdog]\n")
	sb.WriteString("# 软中断间隔（签到步数），0 禁用\n")
	sb.WriteString(fmt.Sprintf("interval = %d\n\n", c.Watchdog.Interval))
	sb.WriteString("# 屏蔽软中断\n")
	sb.WriteString(fmt.Sprintf("no_soft_irq = %t\n\n", c.Watchdog.NoSoftIRQ))

	sb.WriteString("[log]\n")
	sb.WriteString("# 日志级别：debug / info / warn / error\n")
	sb.WriteString(fmt.Sprintf("level = %q\n", c.Log.Level))

	return sb.String()
}
