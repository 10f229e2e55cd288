package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenPool_AcquireRelease(t *testing.T) {
	notified := 0
	p := NewTokenPool(func() { notified++ })
	assert.False(t, p.HasOutstanding())

	a := p.Acquire()
	b := p.Acquire()
	assert.NotEqual(t, a, b)
	assert.NotZero(t, a)
	assert.True(t, p.HasOutstanding())
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, 2, notified)

	p.Release(a)
	assert.True(t, p.HasOutstanding())
	assert.Equal(t, 3, notified)

	p.Release(a)
	assert.Equal(t, 3, notified, "double release does not notify")

	p.Release(b)
	assert.False(t, p.HasOutstanding())
	assert.Equal(t, 4, notified)
}

func TestTokenPool_TokensAreNotReused(t *testing.T) {
	p := NewTokenPool(nil)
	a := p.Acquire()
	p.Release(a)
	b := p.Acquire()

	assert.NotEqual(t, a, b)
	p.Release(a)
	assert.True(t, p.HasOutstanding(), "a stale token cannot end a newer suspension")
}
