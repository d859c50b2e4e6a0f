package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newGuard(t *testing.T, capacity int) (*DedupeGuard, *fakeClock) {
	t.Helper()
	g, err := NewDedupeGuard(capacity, 3*time.Second)
	require.NoError(t, err)
	t.Cleanup(g.Close)

	c := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	g.now = c.now
	return g, c
}

func TestShouldSuppressWithinWindow(t *testing.T) {
	g, c := newGuard(t, 16)

	assert.False(t, g.ShouldSuppress("u1", "addStock", 3*time.Second))

	c.t = c.t.Add(time.Second)
	assert.True(t, g.ShouldSuppress("u1", "addStock", 3*time.Second))

	// подавленный вызов не сдвигает метку: через 3с от первого снова можно
	c.t = c.t.Add(2 * time.Second)
	assert.False(t, g.ShouldSuppress("u1", "addStock", 3*time.Second))
}

func TestShouldSuppressKeysAreIndependent(t *testing.T) {
	g, _ := newGuard(t, 16)

	assert.False(t, g.ShouldSuppress("u1", "addStock", 3*time.Second))
	assert.False(t, g.ShouldSuppress("u2", "addStock", 3*time.Second))
	assert.False(t, g.ShouldSuppress("u1", "send", 3*time.Second))
	assert.True(t, g.ShouldSuppress("u2", "addStock", 3*time.Second))
}

func TestGuardIsBounded(t *testing.T) {
	g, _ := newGuard(t, 2)

	g.ShouldSuppress("u1", "send", 0)
	g.ShouldSuppress("u2", "send", 0)
	g.ShouldSuppress("u3", "send", 0)
	assert.Equal(t, 2, g.Len())

	// u1 вытеснен, поэтому не подавляется
	assert.False(t, g.ShouldSuppress("u1", "send", 0))
}

func TestSweepDropsStaleEntries(t *testing.T) {
	g, c := newGuard(t, 16)

	g.ShouldSuppress("u1", "send", 0)
	c.t = c.t.Add(2 * time.Second)
	g.ShouldSuppress("u2", "send", 0)

	c.t = c.t.Add(2 * time.Second)
	assert.Equal(t, 1, g.sweep())
	assert.Equal(t, 1, g.Len())
}

func TestSweepInterval(t *testing.T) {
	assert.Equal(t, time.Minute, sweepInterval(3*time.Second))
	assert.Equal(t, 10*time.Minute, sweepInterval(time.Minute))
}
