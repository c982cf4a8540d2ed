// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package scheduler implements the cooperative thread scheduler: a FIFO
// run queue of threads whose statements reduce one at a time, with
// dataflow suspension on unbound store slots and detection of global
// deadlock when a full round of the queue makes no progress.
package scheduler

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	metrics "github.com/hashicorp/go-metrics"
	multierror "github.com/hashicorp/go-multierror"

	"github.com/hashicorp/ozi/interp"
	"github.com/hashicorp/ozi/structs"
)

// ErrDeadlock is reported when every remaining thread is suspended on a
// slot that no thread will ever bind.
var ErrDeadlock = errors.New("scheduler: deadlock, no thread can make progress")

// ErrDispatchLimit is reported when a configured dispatch cap is hit
// before the program terminates.
var ErrDispatchLimit = errors.New("scheduler: dispatch limit reached")

// Config configures a Scheduler.
type Config struct {
	Logger hclog.Logger

	// MaxDispatches aborts a run after this many dispatches, 0 meaning
	// no limit. A guard for tests driving untrusted programs.
	MaxDispatches uint64
}

// Result describes a finished run.
type Result struct {
	// Dispatches counts scheduler iterations, including suspension
	// re-checks.
	Dispatches uint64

	// Steps counts productively executed statements.
	Steps uint64

	// Spawned counts threads created, the root thread included.
	Spawned int

	// Completed counts threads that ran their stack empty.
	Completed int

	// Deadlocked is set when the run halted on global deadlock.
	Deadlocked bool

	// ThreadErrors collects the per-thread failures of the run. A
	// failure kills only its thread; the run continues.
	ThreadErrors error
}

// Scheduler owns the run queue and the global progress clock. It is
// single-threaded: exactly one statement reduces at a time, which is
// what lets the store go without locks.
type Scheduler struct {
	machine *interp.Machine
	logger  hclog.Logger

	queue      []*Thread
	globalTick uint64
	changeTick uint64
	nextID     int

	maxDispatches uint64
}

// New returns a Scheduler reducing statements with machine.
func New(machine *interp.Machine, cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Scheduler{
		machine:       machine,
		logger:        logger.Named("scheduler"),
		maxDispatches: cfg.MaxDispatches,
	}
}

// Run executes program to completion, deadlock, or the dispatch limit.
// The root thread starts with an empty environment, so a well-formed
// program declares every identifier with local. A unification or type
// error kills the offending thread only and is collected on the result;
// deadlock halts the run.
func (s *Scheduler) Run(program structs.Stmt) (*Result, error) {
	res := &Result{}
	var merr *multierror.Error

	s.spawn(interp.NewStack(interp.Frame{Stmt: program, Env: structs.EmptyEnv()}))
	res.Spawned = 1

	for len(s.queue) > 0 {
		if s.maxDispatches > 0 && res.Dispatches >= s.maxDispatches {
			return res, ErrDispatchLimit
		}

		t := s.queue[0]
		s.queue = s.queue[1:]
		metrics.SetGauge([]string{"ozi", "scheduler", "queue_depth"}, float32(len(s.queue)))

		oldTick := t.lastTick
		s.globalTick++
		t.lastTick = s.globalTick
		res.Dispatches++
		metrics.IncrCounter([]string{"ozi", "scheduler", "dispatch"}, 1)

		if t.suspendedOn >= 0 {
			cls := s.machine.Store().ClassOf(t.suspendedOn)
			if !cls.Bound() {
				if s.changeTick < oldTick {
					// No thread has progressed since this thread last
					// tried: a full round passed and nothing changed,
					// so nothing ever will.
					res.Deadlocked = true
					res.ThreadErrors = merr.ErrorOrNil()
					s.logger.Error("deadlock detected", "thread", t.id,
						"slot", t.suspendedOn, "suspended", s.suspendedSummary())
					return res, ErrDeadlock
				}
				s.logger.Trace("still suspended", "thread", t.id, "slot", t.suspendedOn)
				s.queue = append(s.queue, t)
				continue
			}
			s.logger.Debug("thread resumed", "thread", t.id, "slot", t.suspendedOn)
			metrics.IncrCounter([]string{"ozi", "scheduler", "resume"}, 1)
			t.suspendedOn = -1
		}

		f := t.stack.Pop()

		if th, ok := f.Stmt.(*structs.Thread); ok {
			nt := s.spawn(interp.NewStack(interp.Frame{Stmt: th.Body, Env: f.Env}))
			res.Spawned++
			res.Steps++
			s.changeTick = s.globalTick
			metrics.IncrCounter([]string{"ozi", "scheduler", "spawn"}, 1)
			s.logger.Debug("thread spawned", "thread", t.id, "child", nt.id)
		} else if err := s.machine.Step(f, t.stack); err != nil {
			if slot, ok := interp.Suspended(err); ok {
				// Step commits nothing before detecting the unbound
				// slot, so retrying the identical frame is safe.
				t.suspendedOn = slot
				t.stack.Push(f)
				metrics.IncrCounter([]string{"ozi", "scheduler", "suspend"}, 1)
				s.logger.Debug("thread suspended", "thread", t.id, "slot", slot,
					"stmt", structs.Kind(f.Stmt))
			} else {
				metrics.IncrCounter([]string{"ozi", "scheduler", "thread_error"}, 1)
				s.logger.Error("thread failed", "thread", t.id,
					"stmt", f.Stmt.String(), "error", err)
				merr = multierror.Append(merr, fmt.Errorf("thread %d: %s: %w", t.id, structs.Kind(f.Stmt), err))
				continue
			}
		} else {
			res.Steps++
			s.changeTick = s.globalTick
			s.logger.Trace("step", "thread", t.id, "stmt", structs.Kind(f.Stmt),
				"stack", t.stack.Len())
		}

		if t.stack.Len() > 0 {
			s.queue = append(s.queue, t)
		} else {
			res.Completed++
			s.logger.Debug("thread completed", "thread", t.id)
		}
	}

	res.ThreadErrors = merr.ErrorOrNil()
	return res, nil
}

func (s *Scheduler) spawn(stack *interp.Stack) *Thread {
	t := &Thread{id: s.nextID, stack: stack, suspendedOn: -1}
	s.nextID++
	s.queue = append(s.queue, t)
	return t
}

// suspendedSummary renders thread-to-slot waits for the deadlock report.
func (s *Scheduler) suspendedSummary() string {
	out := ""
	for _, t := range s.queue {
		if t.suspendedOn >= 0 {
			out += fmt.Sprintf(" %d->_V%d", t.id, t.suspendedOn)
		}
	}
	return out
}
