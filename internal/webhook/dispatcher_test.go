// ABOUTME: Tests for the reply dispatcher
// ABOUTME: Covers the single inline retry and surfaced failures

package webhook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/textline/internal/router"
)

func TestDispatcher_Send(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender)

	err := d.Send(context.Background(), router.Reply{Recipient: "+15550001111", Body: "hello"})
	require.NoError(t, err)

	assert.Equal(t, 1, sender.sentCount())
	assert.Equal(t, "+15550001111", sender.lastSent().To)
	assert.Equal(t, "hello", sender.lastSent().Body)
}

func TestDispatcher_RetriesOnce(t *testing.T) {
	sender := &fakeSender{failNext: 1}
	d := NewDispatcher(sender)

	err := d.Send(context.Background(), router.Reply{Recipient: "+15550001111", Body: "hello"})
	require.NoError(t, err)

	assert.Equal(t, 1, sender.sentCount(), "retry should deliver after one failure")
}

func TestDispatcher_SurfacesRepeatedFailure(t *testing.T) {
	sender := &fakeSender{failAll: true}
	d := NewDispatcher(sender)

	err := d.Send(context.Background(), router.Reply{Recipient: "+15550001111", Body: "hello"})
	require.Error(t, err)
	assert.Equal(t, 0, sender.sentCount())
}
