package async

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineRunsBeforeReturning(t *testing.T) {
	d := NewDispatcher(true, time.Second, nil)

	ran := false
	d.Go("inline", func(ctx context.Context) { ran = true })
	assert.True(t, ran)
}

func TestBackgroundOutlivesCaller(t *testing.T) {
	d := NewDispatcher(false, time.Second, nil)

	parent, cancel := context.WithCancel(context.Background())
	var done atomic.Int32
	d.Go("detached", func(ctx context.Context) {
		<-parent.Done()
		assert.NoError(t, ctx.Err(), "task context is not tied to the caller")
		done.Add(1)
	})
	cancel()
	d.Wait()
	assert.Equal(t, int32(1), done.Load())
}

func TestTaskContextHasDeadline(t *testing.T) {
	d := NewDispatcher(true, 50*time.Millisecond, nil)

	d.Go("deadline", func(ctx context.Context) {
		deadline, ok := ctx.Deadline()
		assert.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
	})
}

func TestPanicsAreContained(t *testing.T) {
	for _, inline := range []bool{true, false} {
		d := NewDispatcher(inline, time.Second, nil)
		assert.NotPanics(t, func() {
			d.Go("boom", func(ctx context.Context) { panic("boom") })
			d.Wait()
		})
	}
}

func TestTasksAfterWaitRunInline(t *testing.T) {
	d := NewDispatcher(false, time.Second, nil)

	release := make(chan struct{})
	var slow atomic.Int32
	d.Go("slow", func(ctx context.Context) {
		<-release
		slow.Add(1)
	})

	waited := make(chan struct{})
	go func() {
		d.Wait()
		close(waited)
	}()
	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.closed
	}, time.Second, time.Millisecond)

	ran := false
	d.Go("late", func(ctx context.Context) { ran = true })
	assert.True(t, ran, "late task runs before Go returns")

	close(release)
	<-waited
	assert.Equal(t, int32(1), slow.Load())
}

func TestWaitWithConcurrentGo(t *testing.T) {
	d := NewDispatcher(false, time.Second, nil)

	var count atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Go("click", func(ctx context.Context) { count.Add(1) })
		}()
	}
	d.Wait()
	wg.Wait()
	assert.Equal(t, int32(50), count.Load())
}
