// Package timer runs callbacks at wall-clock times. Pending tasks live in a
// min-heap; a dispatch loop hands due tasks to a fixed pool of workers.
package timer

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
)

var ErrManagerStopped = errors.New("timer manager is stopped")

// Task is a callback scheduled for a point in time.
type Task struct {
	ID      string
	RunAt   time.Time
	Execute func(ctx context.Context)
	index   int
}

// taskHeap is ordered by RunAt
type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	return h[i].RunAt.Before(h[j].RunAt)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	task := x.(*Task)
	task.index = len(*h)
	*h = append(*h, task)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	task.index = -1
	*h = old[:n-1]
	return task
}

// Stats is a point-in-time view of the manager.
type Stats struct {
	Scheduled int
	Running   int
	Executed  int
	Workers   int
}

// Manager schedules tasks by id. Scheduling an id again replaces the
// pending task.
type Manager struct {
	mu      sync.Mutex
	heap    taskHeap
	tasks   map[string]*Task
	workers int
	running int
	done    int
	stopped bool

	jobs   chan *Task
	wakeup chan struct{}
	stopCh chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(workers int) *Manager {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		heap:    make(taskHeap, 0),
		tasks:   make(map[string]*Task),
		workers: workers,
		jobs:    make(chan *Task),
		wakeup:  make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	heap.Init(&m.heap)
	return m
}

// Start launches the dispatch loop and the worker pool
func (m *Manager) Start() {
	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	m.wg.Add(1)
	go m.run()
}

// Stop cancels running tasks through their context and waits for them to
// return. Pending tasks are dropped.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	close(m.stopCh)
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}

func (m *Manager) Schedule(id string, runAt time.Time, fn func(ctx context.Context)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrManagerStopped
	}

	if existing, ok := m.tasks[id]; ok {
		heap.Remove(&m.heap, existing.index)
		delete(m.tasks, id)
	}

	task := &Task{ID: id, RunAt: runAt, Execute: fn}
	heap.Push(&m.heap, task)
	m.tasks[id] = task

	if m.heap[0] == task {
		select {
		case m.wakeup <- struct{}{}:
		default:
		}
	}
	return nil
}

// Cancel removes a pending task. It reports false when no task has that id.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return false
	}
	heap.Remove(&m.heap, task.index)
	delete(m.tasks, id)
	return true
}

// Next returns when the task with id is due.
func (m *Manager) Next(id string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return time.Time{}, false
	}
	return task.RunAt, true
}

func (m *Manager) run() {
	defer m.wg.Done()

	for {
		m.mu.Lock()
		wait := 24 * time.Hour
		var due *Task
		if m.heap.Len() > 0 {
			wait = time.Until(m.heap[0].RunAt)
			if wait <= 0 {
				due = heap.Pop(&m.heap).(*Task)
				delete(m.tasks, due.ID)
			}
		}
		m.mu.Unlock()

		if due != nil {
			select {
			case m.jobs <- due:
			case <-m.stopCh:
				return
			}
			continue
		}

		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-m.wakeup:
			t.Stop()
		case <-m.stopCh:
			t.Stop()
			return
		}
	}
}

func (m *Manager) worker() {
	defer m.wg.Done()

	for {
		select {
		case task := <-m.jobs:
			m.mu.Lock()
			m.running++
			m.mu.Unlock()

			task.Execute(m.ctx)

			m.mu.Lock()
			m.running--
			m.done++
			m.mu.Unlock()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		Scheduled: len(m.tasks),
		Running:   m.running,
		Executed:  m.done,
		Workers:   m.workers,
	}
}
