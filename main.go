// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// ozi is a dataflow interpreter for the Oz kernel language: a minimal
// declarative language with single-assignment variables, structural
// records, first-class procedures, and lightweight threads that
// synchronize by suspending on unbound variables.
package main

import (
	"os"
	"time"

	"github.com/hashicorp/cli"
	metrics "github.com/hashicorp/go-metrics"

	"github.com/hashicorp/ozi/command"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	inm := metrics.NewInmemSink(10*time.Second, time.Minute)
	cfg := metrics.DefaultConfig("ozi")
	cfg.EnableHostname = false
	cfg.EnableRuntimeMetrics = false
	// metrics are best-effort; the run proceeds without them
	_, _ = metrics.NewGlobal(cfg, inm)

	ui := &cli.BasicUi{
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}

	c := cli.NewCLI("ozi", command.Version)
	c.Args = args
	c.Commands = command.Commands(ui)

	exitCode, err := c.Run()
	if err != nil {
		ui.Error(err.Error())
	}
	return exitCode
}
