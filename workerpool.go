package reactor

import (
	"errors"
	"sync"
	"sync/atomic"

	"go.osspkg.com/logx"
)

// WorkerPool is a fixed set of background goroutines draining a taskQueue
// (§4.3), a direct port of original_source/src/WorkerPool.cpp. It exposes
// only Submit and Close, matching the original's minimal public surface;
// the Reactor is the only caller.
type WorkerPool struct {
	n      int
	queue  *taskQueue
	wg     sync.WaitGroup
	stop   atomic.Bool
	log    logx.Logger
	onDone func(result []byte, err error, continuation func([]byte, error))
}

// newWorkerPool starts n worker goroutines. onDone is invoked by whichever
// worker goroutine finishes a task, with the task's compute result and its
// own continuation; the Reactor supplies a callback that pushes the bound
// continuation into the completion inbox and raises the wake-up channel
// (§4.1 SubmitTask).
func newWorkerPool(n int, log logx.Logger, onDone func(result []byte, err error, continuation func([]byte, error))) *WorkerPool {
	if n <= 0 {
		n = 1
	}
	p := &WorkerPool{
		n:      n,
		queue:  newTaskQueue(0),
		log:    log,
		onDone: onDone,
	}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.loop()
	}
	return p
}

// sentinel tasks carry a nil compute closure; a worker that pops one after
// stop has been observed exits instead of running it.
func (p *WorkerPool) loop() {
	defer p.wg.Done()
	for {
		t := p.queue.pop()
		if t.compute == nil {
			if p.stop.Load() {
				return
			}
			continue
		}
		result, err := t.run()
		if errors.Is(err, ErrTaskPanicked) && p.log != nil {
			p.log.WithFields(logx.Fields{"err": err.Error()}).Errorf("reactor: task compute panicked")
		}
		if p.onDone != nil {
			p.onDone(result, err, t.continuation)
		}
	}
}

// Submit hands t to the pool. Workers never touch Reactor state directly
// (§4.3); the only permitted cross-goroutine interaction is the onDone
// callback pushing into the completion inbox and raising the wake-up
// channel.
func (p *WorkerPool) Submit(t *task) {
	p.queue.push(t)
}

// Close joins every worker goroutine. It sets the stop flag and enqueues
// one sentinel no-op task per worker so each worker's blocking pop()
// unblocks, observes stop, and exits — the same sequence as the original
// WorkerPool destructor. The sentinels queue behind any tasks already
// pending, so Close returns only after those tasks have run and been
// handed to onDone.
func (p *WorkerPool) Close() {
	p.stop.Store(true)
	for i := 0; i < p.n; i++ {
		p.queue.push(&task{})
	}
	p.wg.Wait()
}
