package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/akruis/cpython/internal/config"
	"github.com/akruis/cpython/internal/stackless"
)

// cmdRun 运行协作式调度演示
//
// 生成 n 个 tasklet 轮流执行，每个执行 steps 步，步与步之间
// 主动让出；看门狗按配置的间隔打断霸占调度器的 tasklet。
func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	n := fs.Int("n", 3, "number of tasklets to spawn")
	steps := fs.Int("steps", 2, "yield steps per tasklet")
	dump := fs.Bool("dump", false, "print a scheduler state dump before running")

	fs.Usage = func() {
		fmt.Println("Usage: stackless run [options]")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg := loadConfig()
	logger, err := cfg.BuildLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ts := stackless.OnThreadStart(stackless.OptionsFromConfig(cfg, logger))
	defer ts.OnThreadExit()

	for i := 0; i < *n; i++ {
		label := fmt.Sprintf("tasklet-%d", i+1)
		_, err := ts.Spawn(func() {
			for s := 1; s <= *steps; s++ {
				fmt.Printf("%s: step %d/%d\n", label, s, *steps)
				ts.Tick()
				ts.YieldCurrent()
			}
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Spawn failed: %v\n", err)
			os.Exit(1)
		}
	}

	if *dump {
		data, err := ts.DumpJSON()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Dump failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
	}

	for {
		interrupted, err := ts.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Scheduler error: %v\n", err)
			os.Exit(1)
		}
		if interrupted == nil {
			break
		}
		fmt.Printf("watchdog: preempted tasklet %d\n", interrupted.ID)
	}

	fmt.Println("all tasklets finished")
}

// loadConfig 读取当前目录的配置文件，不存在时使用默认配置
func loadConfig() *config.Config {
	dir, err := os.Getwd()
	if err != nil {
		return config.Default()
	}

	path := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(path); err != nil {
		return config.Default()
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config file %s: %v\n", config.ConfigFileName, err)
		os.Exit(1)
	}
	return cfg
}
