package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	var (
		cfgPath   = flag.String("config", "config.yaml", "Path to the agent config file")
		autoStart = flag.Bool("auto-start", false, "Begin a sharing session immediately on launch")
	)
	flag.Parse()

	// context cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *cfgPath, *autoStart); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
