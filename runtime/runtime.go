// Copyright 2024 The DBSP-Go Authors
// This file is part of dbsp-go.
//
// dbsp-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// dbsp-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with dbsp-go. If not, see <http://www.gnu.org/licenses/>.

// Package runtime drives a built circuit.CircuitDefinition step by step,
// per spec.md §4.8: advance clocks, call every operator in dependency
// order, and periodically run maintenance hooks.
package runtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dbspgo/dbsp/circuit"
)

// State is the runtime's lifecycle state machine: Created -> Running <->
// Paused -> Terminated, or a terminal Failed.
type State int

const (
	Created State = iota
	Running
	Paused
	Terminated
	Failed
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	case Terminated:
		return "Terminated"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Config bundles the knobs spec.md §4.8 lists for a runtime instance.
type Config struct {
	WorkerCount       int
	StepInterval      time.Duration
	MaxBufferSize     int
	CheckpointEnabled bool
	StoragePath       string
	MaintenanceEvery  int // steps between maintenance hook invocations; 0 uses DefaultMaintenanceEvery
	StepTimeout       time.Duration
}

// DefaultMaintenanceEvery is the cadence spec.md §4.8 names for running
// maintenance hooks (compaction, persistence flushes) between steps.
const DefaultMaintenanceEvery = 100

// DefaultStepTimeout is the parallel runtime's default step-wide deadline
// (spec.md §4.8 "Cancellation and timeouts").
const DefaultStepTimeout = 30 * time.Second

// MaintenanceHook is invoked every Config.MaintenanceEvery steps.
type MaintenanceHook func() error

// Runtime is the single-threaded cooperative driver: one step processes
// every operator in dependency order with no interleaving, per spec.md §5
// "Scheduling model".
type Runtime struct {
	mu sync.Mutex

	def    *circuit.CircuitDefinition
	cfg    Config
	log    *zap.Logger
	hooks  []MaintenanceHook
	state  State
	step   int64
	failed error

	cancel context.CancelFunc
	ctx    context.Context
}

// New constructs a Runtime in the Created state. If logger is nil, a no-op
// logger is used.
func New(def *circuit.CircuitDefinition, cfg Config, logger *zap.Logger) *Runtime {
	if cfg.MaintenanceEvery == 0 {
		cfg.MaintenanceEvery = DefaultMaintenanceEvery
	}
	if cfg.StepTimeout == 0 {
		cfg.StepTimeout = DefaultStepTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runtime{
		def:    def,
		cfg:    cfg,
		log:    logger,
		state:  Created,
		cancel: cancel,
		ctx:    ctx,
	}
}

// AddMaintenanceHook registers a hook run every cfg.MaintenanceEvery steps.
func (r *Runtime) AddMaintenanceHook(h MaintenanceHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, h)
}

// State reports the current lifecycle state.
func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Step reference, exported for tests/observability.
func (r *Runtime) StepCount() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.step
}

// Start transitions Created -> Running.
func (r *Runtime) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Created && r.state != Paused {
		return errNotStartable(r.state)
	}
	r.state = Running
	return nil
}

// Pause transitions Running -> Paused.
func (r *Runtime) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Running {
		return errNotPausable(r.state)
	}
	r.state = Paused
	return nil
}

// Terminate cancels the runtime's context and transitions to Terminated.
// Idempotent, per spec.md §5 "Cancellation".
func (r *Runtime) Terminate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Terminated {
		return
	}
	r.cancel()
	r.state = Terminated
}

// Fail transitions to the terminal Failed state, recording err.
func (r *Runtime) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = Failed
	r.failed = err
	r.cancel()
}

// Err returns the error that put the runtime in the Failed state, if any.
func (r *Runtime) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

// Step advances the circuit by one logical step: bump every clock, run
// every operator in dependency order, then (every cfg.MaintenanceEvery
// steps) run the registered maintenance hooks.
func (r *Runtime) Step() error {
	r.mu.Lock()
	if r.state != Running {
		st := r.state
		r.mu.Unlock()
		return errNotRunning(st)
	}
	r.mu.Unlock()

	select {
	case <-r.ctx.Done():
		return r.ctx.Err()
	default:
	}

	for i := range r.def.Clocks {
		r.def.Clocks[i]++
	}

	for _, n := range r.def.ExecOrder {
		op := r.def.Operators[n]
		if err := op.Op.Step(); err != nil {
			r.log.Error("operator step failed", zap.Int64("node", int64(n)), zap.String("name", op.Name), zap.Error(err))
			r.Fail(err)
			return err
		}
	}

	r.mu.Lock()
	r.step++
	step := r.step
	r.mu.Unlock()

	if step%int64(r.cfg.MaintenanceEvery) == 0 {
		if err := r.runMaintenance(); err != nil {
			r.log.Error("maintenance hook failed", zap.Error(err))
			r.Fail(err)
			return err
		}
	}
	return nil
}

func (r *Runtime) runMaintenance() error {
	r.mu.Lock()
	hooks := append([]MaintenanceHook(nil), r.hooks...)
	r.mu.Unlock()
	for _, h := range hooks {
		if err := h(); err != nil {
			return err
		}
	}
	return nil
}

// Run steps the runtime until ctx is done or steps is exhausted (steps <=
// 0 runs until cancellation), sleeping cfg.StepInterval between steps.
func (r *Runtime) Run(ctx context.Context, steps int) error {
	if err := r.Start(); err != nil {
		return err
	}
	for i := 0; steps <= 0 || i < steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.ctx.Done():
			return r.ctx.Err()
		default:
		}
		if err := r.Step(); err != nil {
			return err
		}
		if r.cfg.StepInterval > 0 {
			select {
			case <-time.After(r.cfg.StepInterval):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

func errNotStartable(s State) error {
	return &stateError{"start", s}
}

func errNotPausable(s State) error {
	return &stateError{"pause", s}
}

func errNotRunning(s State) error {
	return &stateError{"step", s}
}

type stateError struct {
	op    string
	state State
}

func (e *stateError) Error() string {
	return "runtime: cannot " + e.op + " from state " + e.state.String()
}
