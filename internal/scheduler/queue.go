package scheduler

import "sync"

// Task is a callback run on the scheduler goroutine at a tick boundary.
type Task func(*Scheduler)

// dispatchQueue holds one-shot and persistent tasks.
//
// Enqueue is safe from any goroutine, including from inside a running task.
// The scheduler drains by swapping the one-shot slice out under the lock and
// running it after the lock is released, so critical sections stay O(1) and
// tasks can enqueue more work for the next tick.
type dispatchQueue struct {
	mu         sync.Mutex
	oneShot    []Task
	persistent []Task
	spare      []Task // recycled one-shot storage, scheduler goroutine only
	closed     bool
}

func newDispatchQueue() *dispatchQueue {
	return &dispatchQueue{
		oneShot: make([]Task, 0, 16),
	}
}

// push appends fn. Returns ErrNotRunning once the queue is closed.
func (q *dispatchQueue) push(fn Task, persistent bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrNotRunning
	}
	if persistent {
		q.persistent = append(q.persistent, fn)
	} else {
		q.oneShot = append(q.oneShot, fn)
	}
	return nil
}

// take swaps out pending one-shots and returns them with the persistent set.
//
// The persistent slice is shared: elements are only ever appended, never
// rewritten, so the returned header stays valid while new tasks are added.
func (q *dispatchQueue) take() (persistent, once []Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	once = q.oneShot
	if q.spare != nil {
		q.oneShot = q.spare
		q.spare = nil
	} else {
		q.oneShot = make([]Task, 0, cap(once))
	}
	return q.persistent, once
}

// recycle hands a drained one-shot slice back for reuse.
func (q *dispatchQueue) recycle(once []Task) {
	// Nil out entries so captured closures can be collected.
	clear(once)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.spare = once[:0]
}

// run executes every persistent task, then every one-shot, in enqueue order.
func (q *dispatchQueue) run(s *Scheduler) {
	persistent, once := q.take()
	for _, fn := range persistent {
		fn(s)
	}
	for _, fn := range once {
		fn(s)
	}
	q.recycle(once)
}

// close rejects further tasks and discards everything queued.
// Returns the number of one-shots dropped.
func (q *dispatchQueue) close() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0
	}
	q.closed = true
	dropped := len(q.oneShot)
	q.oneShot = nil
	q.persistent = nil
	q.spare = nil
	return dropped
}

// len returns the number of pending one-shots and persistent tasks.
func (q *dispatchQueue) len() (oneShot, persistent int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.oneShot), len(q.persistent)
}
