// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package command

import (
	"errors"
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/cli"
	"github.com/hashicorp/go-hclog"
	uuid "github.com/hashicorp/go-uuid"

	"github.com/hashicorp/ozi/interp"
	"github.com/hashicorp/ozi/scheduler"
	"github.com/hashicorp/ozi/store"
	"github.com/hashicorp/ozi/testutil"
)

// RunCommand executes a named test program to completion or deadlock.
type RunCommand struct {
	Ui cli.Ui
}

func (c *RunCommand) Help() string {
	helpText := `
Usage: ozi run [options] <program>

  Runs the named kernel-language program. Use 'ozi list' for the
  available programs.

  Exits 0 on successful termination, 1 when any thread failed with a
  unification or type error, and 2 on deadlock.

Options:

  -verbose
    Log at info level.

  -debug
    Log every dispatch, suspension, and resumption, and dump the bound
    store after the run.

  -trace-limit <n>
    Abort after n scheduler dispatches. 0, the default, means no limit.
`
	return strings.TrimSpace(helpText)
}

func (c *RunCommand) Synopsis() string {
	return "Run a kernel-language program"
}

func (c *RunCommand) Run(args []string) int {
	var verbose, debug bool
	var traceLimit uint64

	flags := flag.NewFlagSet("run", flag.ContinueOnError)
	flags.Usage = func() { c.Ui.Output(c.Help()) }
	flags.BoolVar(&verbose, "verbose", false, "")
	flags.BoolVar(&debug, "debug", false, "")
	flags.Uint64Var(&traceLimit, "trace-limit", 0, "")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if len(flags.Args()) != 1 {
		c.Ui.Error("expected exactly one program name")
		c.Ui.Error(c.Help())
		return 1
	}

	name := flags.Args()[0]
	program, ok := testutil.Get(name)
	if !ok {
		c.Ui.Error(fmt.Sprintf("unknown program %q, try 'ozi list'", name))
		return 1
	}

	level := hclog.Warn
	if verbose {
		level = hclog.Info
	}
	if debug {
		level = hclog.Trace
	}
	runID, err := uuid.GenerateUUID()
	if err != nil {
		c.Ui.Error(fmt.Sprintf("failed to generate run id: %s", err))
		return 1
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "ozi",
		Level: level,
	}).With("run_id", runID)

	st := store.New(logger)
	machine := interp.NewMachine(st, logger)
	sched := scheduler.New(machine, scheduler.Config{
		Logger:        logger,
		MaxDispatches: traceLimit,
	})

	logger.Info("running program", "program", name)
	res, err := sched.Run(program.Build())

	if debug {
		c.dumpStore(st)
	}

	c.Ui.Output(fmt.Sprintf("program:    %s", name))
	c.Ui.Output(fmt.Sprintf("run id:     %s", runID))
	c.Ui.Output(fmt.Sprintf("dispatches: %d", res.Dispatches))
	c.Ui.Output(fmt.Sprintf("steps:      %d", res.Steps))
	c.Ui.Output(fmt.Sprintf("threads:    %d spawned, %d completed", res.Spawned, res.Completed))

	switch {
	case errors.Is(err, scheduler.ErrDeadlock):
		c.Ui.Error("result:     deadlock")
		return 2
	case err != nil:
		c.Ui.Error(fmt.Sprintf("result:     aborted: %s", err))
		return 1
	case res.ThreadErrors != nil:
		c.Ui.Error(fmt.Sprintf("result:     thread errors:\n%s", res.ThreadErrors))
		return 1
	default:
		c.Ui.Output("result:     ok")
		return 0
	}
}

func (c *RunCommand) dumpStore(st *store.Store) {
	snap := st.Snapshot()
	slots := make([]int, 0, len(snap))
	for slot := range snap {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	c.Ui.Output(fmt.Sprintf("store: %d slots, %d bound", st.Len(), len(snap)))
	for _, slot := range slots {
		c.Ui.Output(fmt.Sprintf("  _V%d = %s", slot, snap[slot]))
	}
}
