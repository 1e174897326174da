package tabs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) (*Loop, context.CancelFunc) {
	t.Helper()
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l, cancel
}

func TestLoopRunsTasksInPostOrder(t *testing.T) {
	l, _ := startLoop(t)

	var got []int
	for i := 0; i < 50; i++ {
		i := i
		require.True(t, l.Post(func() { got = append(got, i) }))
	}
	require.NoError(t, l.Do(context.Background(), func() {}))

	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestLoopPostFromManyGoroutines(t *testing.T) {
	l, _ := startLoop(t)

	count := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Post(func() { count++ })
			}
		}()
	}
	wg.Wait()
	require.NoError(t, l.Do(context.Background(), func() {}))
	assert.Equal(t, 800, count)
}

func TestLoopSurvivesPanickingTask(t *testing.T) {
	l, _ := startLoop(t)

	l.Post(func() { panic("boom") })
	ran := false
	require.NoError(t, l.Do(context.Background(), func() { ran = true }))
	assert.True(t, ran)
}

func TestLoopAfterFuncRunsOnLoop(t *testing.T) {
	l, _ := startLoop(t)

	fired := make(chan struct{})
	l.AfterFunc(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("deferred task did not run")
	}
}

func TestLoopStoppedRejectsWork(t *testing.T) {
	l, cancel := startLoop(t)
	cancel()
	<-l.Done()

	assert.False(t, l.Post(func() {}))
	assert.ErrorIs(t, l.Do(context.Background(), func() {}), ErrLoopStopped)
}

func TestLoopDoHonoursContext(t *testing.T) {
	l, _ := startLoop(t)

	release := make(chan struct{})
	l.Post(func() { <-release })
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Do(ctx, func() {}), context.DeadlineExceeded)
}

func TestEngineOnLoopUsesLoopScheduler(t *testing.T) {
	l, _ := startLoop(t)
	active := Tab{ID: 7, WindowID: 1, Index: 2, URL: "https://docs.example", Active: true}
	host := newFakeHost(active)
	decided := make(chan Decision, 1)
	engine := NewEngine(host, Options{Scheduler: l, Observer: ObserverFunc(func(d Decision) { decided <- d })})

	child := Tab{ID: 40, WindowID: 1, Index: 8, URL: "https://docs.example/page", OpenerTabID: opener(7)}
	require.NoError(t, l.Do(context.Background(), func() {
		host.put(child)
		engine.OnActivated(1, 7)
		engine.OnCreated(context.Background(), child)
	}))

	select {
	case d := <-decided:
		assert.Equal(t, OutcomeOpenedFromActive, d.Outcome)
		assert.Equal(t, 3, d.Index)
	case <-time.After(2 * time.Second):
		t.Fatal("no decision after settle delay")
	}
}
