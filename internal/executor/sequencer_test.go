package executor

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitOnlyLatest(t *testing.T) {
	var seq Sequencer
	a := seq.Issue()
	b := seq.Issue()
	assert.Greater(t, b, a)
	assert.Equal(t, b, seq.Latest())

	applied := ""
	err := seq.Commit(a, func() { applied = "a" })
	assert.ErrorIs(t, err, ErrStaleResponseDiscarded)
	assert.Empty(t, applied)

	require.NoError(t, seq.Commit(b, func() { applied = "b" }))
	assert.Equal(t, "b", applied)
}

func TestIssueWithContextCancelsSuperseded(t *testing.T) {
	var seq Sequencer
	_, ctxA, releaseA := seq.IssueWithContext(context.Background())
	defer releaseA()
	_, ctxB, releaseB := seq.IssueWithContext(context.Background())
	defer releaseB()

	assert.ErrorIs(t, ctxA.Err(), context.Canceled)
	assert.NoError(t, ctxB.Err())
}

// A 先发出、后返回，B 后发出、先返回，最终可见结果必须是 B。
func TestSupersededResponseArrivingLateIsDiscarded(t *testing.T) {
	var (
		seq      Sequencer
		mu       sync.Mutex
		visible  string
		aRelease = make(chan struct{})
		wg       sync.WaitGroup
		errA     error
	)
	present := func(v string) func() {
		return func() {
			mu.Lock()
			visible = v
			mu.Unlock()
		}
	}

	tokenA := seq.Issue()
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-aRelease
		errA = seq.Commit(tokenA, present("A"))
	}()

	tokenB := seq.Issue()
	require.NoError(t, seq.Commit(tokenB, present("B")))

	close(aRelease)
	wg.Wait()

	assert.ErrorIs(t, errA, ErrStaleResponseDiscarded)
	assert.Equal(t, "B", visible)
}
