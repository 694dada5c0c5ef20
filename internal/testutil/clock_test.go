package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var start = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestManualClock_StartsAtGivenTime(t *testing.T) {
	clock := NewManualClock(start)
	assert.Equal(t, start, clock.Now())
	assert.Equal(t, start, clock.Now())
}

func TestManualClock_Advance(t *testing.T) {
	clock := NewManualClock(start)

	got := clock.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), got)
	assert.Equal(t, got, clock.Now())
}

func TestManualClock_Set(t *testing.T) {
	clock := NewManualClock(start)
	clock.Advance(time.Hour)

	clock.Set(start)
	assert.Equal(t, start, clock.Now())
}

func TestManualClock_ThreadSafe(t *testing.T) {
	clock := NewManualClock(start)
	const numGoroutines = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
			_ = clock.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, start.Add(numGoroutines*time.Second), clock.Now())
}
