package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockStampsUTCMicroseconds(t *testing.T) {
	t.Parallel()

	clk := New()
	require.NotNil(t, clk)

	before := time.Now().UTC().Add(-time.Second)
	got := clk.Now()
	after := time.Now().UTC().Add(time.Second)

	assert.Equal(t, time.UTC, got.Location())
	assert.Zero(t, got.Nanosecond()%int(time.Microsecond))
	assert.True(t, got.After(before) && got.Before(after), "stamp %v outside [%v, %v]", got, before, after)
}

func TestClockStampsDoNotGoBackwards(t *testing.T) {
	t.Parallel()

	clk := New()
	first := clk.Now()
	second := clk.Now()
	assert.False(t, second.Before(first), "second stamp %v before first %v", second, first)
}
