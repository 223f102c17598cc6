package dispatch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTarget struct{ n atomic.Int64 }

func (c *countingTarget) Rescan() { c.n.Add(1) }

func TestNewSweeper_RejectsInvalidCronExpr(t *testing.T) {
	_, err := NewSweeper(&countingTarget{}, "not a cron expr", 0, testLog())
	assert.Error(t, err)
}

func TestSweeper_FiresOnSchedule(t *testing.T) {
	target := &countingTarget{}
	s, err := NewSweeper(target, "* * * * *", 20*time.Millisecond, testLog())
	require.NoError(t, err)
	s.nextRun = time.Now().Add(-time.Second) // force immediately due

	s.tick()

	assert.Equal(t, int64(1), target.n.Load())
}

func TestSweeper_StartStop_NoFireBeforeDue(t *testing.T) {
	target := &countingTarget{}
	s, err := NewSweeper(target, "0 0 1 1 *", 10*time.Millisecond, testLog())
	require.NoError(t, err)

	s.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	assert.Equal(t, int64(0), target.n.Load())
}
