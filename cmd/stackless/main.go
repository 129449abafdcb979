package main

import (
	"fmt"
	"os"

	"github.com/akruis/cpython/internal/config"
)

const (
	Version = "0.1.0"
)

func main() {
	args := os.Args[1:]

	if len(args) < 1 {
		printUsage()
		os.Exit(0)
	}

	command := args[0]

	switch command {
	case "run":
		cmdRun(args[1:])
	case "init":
		cmdInit(args[1:])
	case "version", "-v", "--version":
		cmdVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("stackless %s - cooperative tasklet scheduler\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  stackless <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run             run the scheduling demo")
	fmt.Println("  init            create a default " + config.ConfigFileName)
	fmt.Println("  version         show version")
	fmt.Println("  help            show this help")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  stackless init")
	fmt.Println("  stackless run -n 4 -steps 3")
	fmt.Println("  stackless run -dump")
}

// cmdVersion 显示版本信息
func cmdVersion() {
	fmt.Printf("stackless %s\n", Version)
	fmt.Println("A cooperative tasklet scheduling runtime")
}
