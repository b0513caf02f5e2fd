package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"blkcheck/internal/cli"
)

func main() {
	env := make(map[string]string)

	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	os.Exit(cli.Run(os.Stdin, os.Stdout, os.Stderr, os.Args, env, sigCh))
}
