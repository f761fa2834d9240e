// ABOUTME: Tests for per-sender webhook rate limiting
// ABOUTME: Covers burst exhaustion and sender independence

package webhook

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSenderLimiter_Burst(t *testing.T) {
	l := NewSenderLimiter()

	for i := 0; i < senderBurst; i++ {
		assert.True(t, l.Allow("+15550001111"), "call %d should be within burst", i)
	}
	assert.False(t, l.Allow("+15550001111"), "burst exhausted")
}

func TestSenderLimiter_IndependentSenders(t *testing.T) {
	l := NewSenderLimiter()

	for i := 0; i < senderBurst; i++ {
		l.Allow("+15550001111")
	}
	assert.False(t, l.Allow("+15550001111"))
	assert.True(t, l.Allow("+15550002222"), "a different sender is unaffected")
}

func TestSenderLimiter_BoundedTracking(t *testing.T) {
	l := NewSenderLimiter()

	for i := 0; i < maxTrackedSenders+100; i++ {
		l.Allow(fmt.Sprintf("+1555%07d", i))
	}

	l.mu.Lock()
	tracked := len(l.entries)
	l.mu.Unlock()
	assert.LessOrEqual(t, tracked, maxTrackedSenders)
}
