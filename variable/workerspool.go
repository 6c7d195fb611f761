package variable

import (
	"runtime"
	"sync"

	"k8s.io/klog/v2"
)

// workersPool bounds the parallelism of the row-parallel kernels
// (rebin inner dimension, sparse-dense fused arithmetic, nested
// concatenation). Each task owns a disjoint output range, so the
// parallel form is observationally identical to the serial one.
type workersPool struct {
	// maxParallelism is a soft target on the limit of parallel work.
	// 0 disables parallelism, < 0 leaves it unlimited.
	maxParallelism int
	mu             sync.Mutex
	cond           sync.Cond // Signaled whenever numRunning decreases.
	numRunning     int
}

var pool = newWorkersPool()

func newWorkersPool() *workersPool {
	w := &workersPool{maxParallelism: runtime.NumCPU()}
	w.cond = sync.Cond{L: &w.mu}
	return w
}

// SetMaxParallelism configures the bound on parallel row tasks: 0
// disables parallelism (kernels run sequentially), -1 removes the
// bound. Only change it while no operation is running.
func SetMaxParallelism(maxParallelism int) {
	pool.maxParallelism = maxParallelism
}

// MaxParallelism returns the current soft target for parallelism.
func MaxParallelism() int { return pool.maxParallelism }

func (w *workersPool) isEnabled() bool { return w.maxParallelism != 0 }

// lockedIsFull returns whether all available workers are in use.
// It must be called with w.mu acquired.
func (w *workersPool) lockedIsFull() bool {
	if w.maxParallelism < 0 {
		return false
	}
	return w.numRunning >= w.maxParallelism
}

// waitToStart waits until there is a worker available to run the task.
func (w *workersPool) waitToStart(task func()) {
	if w.maxParallelism < 0 {
		go task()
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.lockedIsFull() {
		w.cond.Wait()
	}
	w.numRunning++
	go func() {
		task()
		w.mu.Lock()
		w.numRunning--
		w.cond.Signal()
		w.mu.Unlock()
	}()
}

// parallelFor runs fn(i) for i in [0, n), partitioned into contiguous
// chunks over the workers pool. It falls back to a sequential loop
// when parallelism is disabled or the range is trivial. It returns
// only after every invocation finished.
func parallelFor(n int, fn func(i int)) {
	const minChunk = 16
	if !pool.isEnabled() || n < 2*minChunk {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	numChunks := pool.maxParallelism
	if numChunks < 0 || numChunks > (n+minChunk-1)/minChunk {
		numChunks = (n + minChunk - 1) / minChunk
	}
	chunk := (n + numChunks - 1) / numChunks
	klog.V(2).Infof("parallelFor: %d rows over %d tasks", n, numChunks)
	var wg sync.WaitGroup
	for begin := 0; begin < n; begin += chunk {
		begin := begin
		end := min(begin+chunk, n)
		wg.Add(1)
		pool.waitToStart(func() {
			defer wg.Done()
			for i := begin; i < end; i++ {
				fn(i)
			}
		})
	}
	wg.Wait()
}
