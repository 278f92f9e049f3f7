package system

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWallClockIsUTC(t *testing.T) {
	t.Parallel()

	got := New().Now()
	assert.Equal(t, time.UTC, got.Location())
	assert.WithinDuration(t, time.Now(), got, time.Second)
}

func TestFixedNormalizesAndAdvances(t *testing.T) {
	t.Parallel()

	paris := time.FixedZone("CET", 3600)
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, paris)
	clk := NewFixed(start)
	require.Equal(t, time.UTC, clk.Now().Location())
	require.True(t, clk.Now().Equal(start))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clk.Advance(time.Second)
		}()
	}
	wg.Wait()
	assert.Equal(t, time.Date(2024, 5, 1, 8, 0, 10, 0, time.UTC), clk.Now())
}
