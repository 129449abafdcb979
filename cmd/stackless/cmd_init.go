package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/akruis/cpython/internal/config"
)

// cmdInit 在当前目录生成默认配置文件
func cmdInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Println("Usage: stackless init")
		fmt.Println()
		fmt.Println("Create a default " + config.ConfigFileName + " in the current directory.")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get working directory: %v\n", err)
		os.Exit(1)
	}

	// 检查是否已存在配置文件
	configPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(os.Stderr, "Config file already exists: %s\n", config.ConfigFileName)
		os.Exit(1)
	}

	fmt.Printf("Creating %s\n", config.ConfigFileName)
	if err := config.Default().Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create config file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Done. Next steps:")
	fmt.Println("  stackless run")
}
