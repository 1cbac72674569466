package runtime

import (
	"context"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/dbspgo/dbsp/circuit"
)

// ParallelRuntime executes a step's ready operators across a fixed pool of
// long-lived workers, per spec.md §4.8 "Parallel variant" / §5's
// concurrency model. Operators without a dependency relationship may run
// concurrently; the scheduler still guarantees every operator's
// dependencies complete before it is dispatched.
type ParallelRuntime struct {
	mu sync.Mutex

	def   *circuit.CircuitDefinition
	cfg   Config
	log   *zap.Logger
	hooks []MaintenanceHook
	state State
	step  int64

	cancel context.CancelFunc
	ctx    context.Context
}

// NewParallel constructs a ParallelRuntime in the Created state.
// cfg.WorkerCount <= 0 defaults to 1.
func NewParallel(def *circuit.CircuitDefinition, cfg Config, logger *zap.Logger) *ParallelRuntime {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
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
	return &ParallelRuntime{def: def, cfg: cfg, log: logger, state: Created, cancel: cancel, ctx: ctx}
}

func (r *ParallelRuntime) AddMaintenanceHook(h MaintenanceHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, h)
}

func (r *ParallelRuntime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *ParallelRuntime) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Created && r.state != Paused {
		return errNotStartable(r.state)
	}
	r.state = Running
	return nil
}

func (r *ParallelRuntime) Terminate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Terminated {
		return
	}
	r.cancel()
	r.state = Terminated
}

// job is one operator dispatched to the worker pool for the current step.
// done is the dispatching wave's barrier: every worker calls done.Done()
// exactly once per job, whether or not the job succeeded.
type job struct {
	node circuit.NodeId
	op   circuit.Operator
	name string
	done *sync.WaitGroup
}

// Step gathers operators whose dependencies have already completed this
// step (initially the in-degree-zero set, same as the scheduler's
// topological order split into waves), distributes each wave across the
// worker pool via a shared ready-queue, and awaits completion with
// cfg.StepTimeout. Waves are dispatched one at a time: Step blocks on a
// wave's barrier before enqueueing the next wave, so a downstream operator
// can never observe an upstream operator's stale or incomplete output
// (spec.md §4.8/§5's concurrency contract). A worker fault is retried with
// exponential backoff (per spec.md §4.8); if retries are exhausted the
// step is marked failed.
func (r *ParallelRuntime) Step() error {
	r.mu.Lock()
	if r.state != Running {
		st := r.state
		r.mu.Unlock()
		return errNotRunning(st)
	}
	r.mu.Unlock()

	stepCtx, cancel := context.WithTimeout(r.ctx, r.cfg.StepTimeout)
	defer cancel()

	for i := range r.def.Clocks {
		r.def.Clocks[i]++
	}

	waves := waveOrder(r.def)
	queue := make(chan job, len(r.def.Operators))
	errs := make(chan error, len(r.def.Operators))

	var workers sync.WaitGroup
	for w := 0; w < r.cfg.WorkerCount; w++ {
		workers.Add(1)
		go r.worker(stepCtx, queue, errs, &workers)
	}

	var stepErr error
	for _, wave := range waves {
		if stepErr != nil {
			break
		}
		var waveDone sync.WaitGroup
		waveDone.Add(len(wave))
		for _, n := range wave {
			op := r.def.Operators[n]
			queue <- job{node: n, op: op.Op, name: op.Name, done: &waveDone}
		}
		waveDone.Wait()
		for range wave {
			if err := <-errs; err != nil && stepErr == nil {
				stepErr = err
			}
		}
	}

	close(queue)
	workers.Wait()
	close(errs)
	for err := range errs {
		if err != nil && stepErr == nil {
			stepErr = err
		}
	}

	if stepErr != nil {
		r.setFailed()
		return stepErr
	}

	select {
	case <-stepCtx.Done():
		if stepCtx.Err() == context.DeadlineExceeded {
			r.setFailed()
			return stepCtx.Err()
		}
	default:
	}

	r.mu.Lock()
	r.step++
	step := r.step
	hooks := append([]MaintenanceHook(nil), r.hooks...)
	r.mu.Unlock()

	if step%int64(r.cfg.MaintenanceEvery) == 0 {
		for _, h := range hooks {
			if err := h(); err != nil {
				r.setFailed()
				return err
			}
		}
	}
	return nil
}

func (r *ParallelRuntime) setFailed() {
	r.mu.Lock()
	r.state = Failed
	r.mu.Unlock()
	r.cancel()
}

func (r *ParallelRuntime) worker(ctx context.Context, queue <-chan job, errs chan<- error, wg *sync.WaitGroup) {
	defer wg.Done()
	for j := range queue {
		select {
		case <-ctx.Done():
			errs <- ctx.Err()
			j.done.Done()
			continue
		default:
		}
		err := backoff.Retry(func() error {
			return j.op.Step()
		}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx))
		if err != nil {
			r.log.Error("worker fault", zap.Int64("node", int64(j.node)), zap.String("name", j.name), zap.Error(err))
		}
		errs <- err
		j.done.Done()
	}
}

// waveOrder splits a circuit's execution order into dependency waves: all
// operators in wave i have every dependency in a strictly earlier wave, so
// everything within one wave can run concurrently.
func waveOrder(def *circuit.CircuitDefinition) [][]circuit.NodeId {
	waveOf := make(map[circuit.NodeId]int, len(def.ExecOrder))
	maxWave := 0
	for _, n := range def.ExecOrder {
		w := 0
		for _, dep := range def.Dependencies[n] {
			if waveOf[dep]+1 > w {
				w = waveOf[dep] + 1
			}
		}
		waveOf[n] = w
		if w > maxWave {
			maxWave = w
		}
	}
	waves := make([][]circuit.NodeId, maxWave+1)
	for _, n := range def.ExecOrder {
		w := waveOf[n]
		waves[w] = append(waves[w], n)
	}
	return waves
}
