package tabs

import (
	"sort"
	"sync"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Scheduler runs fn once after d has elapsed. Implementations must run fn on
// the same timeline as the event handlers.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// timerScheduler runs tasks on timer goroutines. It is only suitable when
// the caller serializes access to the engine itself.
type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, fn func()) { time.AfterFunc(d, fn) }

// ManualClock is a virtual clock and scheduler. Time only moves when Advance
// is called, and due tasks run synchronously inside Advance in deadline order.
type ManualClock struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks []manualTask
}

type manualTask struct {
	at  time.Time
	seq int
	fn  func()
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) AfterFunc(d time.Duration, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.tasks = append(c.tasks, manualTask{at: c.now.Add(d), seq: c.seq, fn: fn})
}

// Pending returns the number of scheduled tasks that have not run yet.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}

// Advance moves the clock forward by d, running every task that becomes due.
// Tasks scheduled by a running task are honoured if they fall inside d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		sort.Slice(c.tasks, func(i, j int) bool {
			if c.tasks[i].at.Equal(c.tasks[j].at) {
				return c.tasks[i].seq < c.tasks[j].seq
			}
			return c.tasks[i].at.Before(c.tasks[j].at)
		})
		if len(c.tasks) == 0 || c.tasks[0].at.After(target) {
			c.now = target
			c.mu.Unlock()
			return
		}
		next := c.tasks[0]
		c.tasks = c.tasks[1:]
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()
		next.fn()
	}
}
