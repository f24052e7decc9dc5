package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepClock_StartsAtEpoch(t *testing.T) {
	clock := NewStepClock(time.Second)
	assert.Equal(t, Epoch, clock.Peek())
	assert.Equal(t, Epoch, clock.Now())
}

func TestStepClock_AdvancesByStep(t *testing.T) {
	clock := NewStepClock(250 * time.Millisecond)

	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch.Add(250*time.Millisecond), clock.Now())
	assert.Equal(t, Epoch.Add(500*time.Millisecond), clock.Now())
	assert.Equal(t, Epoch.Add(750*time.Millisecond), clock.Peek())
}

func TestStepClock_Reset(t *testing.T) {
	clock := NewStepClock(time.Minute)
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, Epoch, clock.Now())
}

func TestStepClock_ThreadSafe(t *testing.T) {
	clock := NewStepClock(time.Nanosecond)
	const goroutines = 50
	const calls = 100

	var mu sync.Mutex
	seen := make(map[time.Time]bool)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for n := 0; n < goroutines; n++ {
		go func() {
			defer wg.Done()
			for n := 0; n < calls; n++ {
				now := clock.Now()
				mu.Lock()
				seen[now] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Every instant handed out exactly once
	require.Len(t, seen, goroutines*calls)
	assert.Equal(t, Epoch.Add(goroutines*calls*time.Nanosecond), clock.Peek())
}

func TestStepClock_Deterministic(t *testing.T) {
	a := NewStepClock(time.Second)
	b := NewStepClock(time.Second)
	for n := 0; n < 20; n++ {
		assert.Equal(t, a.Now(), b.Now())
	}
}
