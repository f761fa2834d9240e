// ABOUTME: Tests for the conversation state machine
// ABOUTME: Covers every (state, input class) transition, determinism, and malformed input

package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/textline/internal/session"
)

func msg(sender, body string) Message {
	return Message{
		ID:         "SM001",
		Sender:     sender,
		Body:       body,
		ReceivedAt: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
	}
}

func TestDecide_GreetingFromNew(t *testing.T) {
	sess := session.NewSession("+15550001111")

	next, reply := Decide(sess, msg("+15550001111", "hi"))

	assert.Equal(t, session.StateAwaitingInput, next.State)
	assert.Equal(t, "name", next.Context["pending"])
	assert.Equal(t, "+15550001111", reply.Recipient)
	assert.Contains(t, reply.Body, "What should I call you")
}

func TestDecide_GreetingVariants(t *testing.T) {
	for _, trigger := range []string{"hi", "hello", "hey", "start", "HI", "  Hello  "} {
		t.Run(trigger, func(t *testing.T) {
			next, _ := Decide(session.NewSession("+1"), msg("+1", trigger))
			assert.Equal(t, session.StateAwaitingInput, next.State)
		})
	}
}

func TestDecide_AnswerStoresName(t *testing.T) {
	sess := session.NewSession("+15550001111")
	sess.State = session.StateAwaitingInput
	sess.Context["pending"] = "name"

	next, reply := Decide(sess, msg("+15550001111", "Ada"))

	assert.Equal(t, session.StateIdle, next.State)
	assert.Equal(t, "Ada", next.Context["name"])
	assert.NotContains(t, next.Context, "pending")
	assert.Contains(t, reply.Body, "Nice to meet you, Ada")
}

func TestDecide_GreetingWithKnownName(t *testing.T) {
	sess := session.NewSession("+15550001111")
	sess.State = session.StateIdle
	sess.Context["name"] = "Ada"

	next, reply := Decide(sess, msg("+15550001111", "hello"))

	assert.Equal(t, session.StateIdle, next.State)
	assert.Contains(t, reply.Body, "Welcome back, Ada")
}

func TestDecide_ResetFromEveryState(t *testing.T) {
	states := []session.State{session.StateNew, session.StateAwaitingInput, session.StateIdle}

	for _, state := range states {
		t.Run(string(state), func(t *testing.T) {
			sess := session.NewSession("+15550001111")
			sess.State = state
			sess.Context["name"] = "Ada"
			sess.Context["pending"] = "name"

			next, reply := Decide(sess, msg("+15550001111", "reset"))

			assert.Equal(t, session.StateNew, next.State)
			assert.Empty(t, next.Context, "reset must clear context")
			assert.Contains(t, reply.Body, "starting over")
		})
	}
}

func TestDecide_HelpKeepsState(t *testing.T) {
	sess := session.NewSession("+15550001111")
	sess.State = session.StateAwaitingInput
	sess.Context["pending"] = "name"

	next, reply := Decide(sess, msg("+15550001111", "help"))

	assert.Equal(t, session.StateAwaitingInput, next.State)
	assert.Equal(t, "name", next.Context["pending"])
	assert.Contains(t, reply.Body, "reset")
}

func TestDecide_Lang(t *testing.T) {
	tests := []struct {
		body      string
		wantState session.State
		wantLang  string
	}{
		{"lang spanish", session.StateIdle, "spanish"},
		{"lang SPANISH", session.StateIdle, "spanish"},
		{"lang\tspanish", session.StateIdle, "spanish"},
		{"lang   spanish", session.StateIdle, "spanish"},
		{"\tlang spanish ", session.StateIdle, "spanish"},
		{"/lang czech", session.StateIdle, "czech"},
		{"lang klingon", session.StateNew, ""},
		{"lang", session.StateNew, ""},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			next, reply := Decide(session.NewSession("+1"), msg("+1", tt.body))

			if tt.wantLang != "" {
				assert.Equal(t, tt.wantLang, next.Context["lang"])
				assert.Equal(t, tt.wantState, next.State)
			} else {
				assert.Contains(t, reply.Body, "Valid languages")
				assert.NotContains(t, next.Context, "lang")
			}
		})
	}
}

func TestDecide_UnrecognizedYieldsHelpAndNew(t *testing.T) {
	for _, state := range []session.State{session.StateNew, session.StateIdle} {
		t.Run(string(state), func(t *testing.T) {
			sess := session.NewSession("+15550001111")
			sess.State = state

			next, reply := Decide(sess, msg("+15550001111", "do the thing"))

			assert.Equal(t, session.StateNew, next.State)
			assert.Contains(t, reply.Body, "didn't catch that")
		})
	}
}

func TestDecide_EmptyBodyNeverFatal(t *testing.T) {
	for _, state := range []session.State{session.StateNew, session.StateAwaitingInput, session.StateIdle} {
		t.Run(string(state), func(t *testing.T) {
			sess := session.NewSession("+15550001111")
			sess.State = state
			if state == session.StateAwaitingInput {
				sess.Context["pending"] = "name"
			}

			next, reply := Decide(sess, msg("+15550001111", "   "))

			require.NotNil(t, next)
			assert.NotEmpty(t, reply.Body, "the conversation must always receive some reply")
			assert.Equal(t, session.StateNew, next.State)
		})
	}
}

func TestDecide_Deterministic(t *testing.T) {
	sess := session.NewSession("+15550001111")
	m := msg("+15550001111", "hi")

	next1, reply1 := Decide(sess, m)
	next2, reply2 := Decide(sess, m)

	assert.Equal(t, next1.State, next2.State)
	assert.Equal(t, next1.Context, next2.Context)
	assert.Equal(t, reply1, reply2)
}

func TestDecide_DoesNotMutateInput(t *testing.T) {
	sess := session.NewSession("+15550001111")
	sess.State = session.StateIdle
	sess.Context["name"] = "Ada"

	Decide(sess, msg("+15550001111", "reset"))

	assert.Equal(t, session.StateIdle, sess.State)
	assert.Equal(t, "Ada", sess.Context["name"])
}

func TestDecide_UpdatesActivity(t *testing.T) {
	sess := session.NewSession("+15550001111")
	m := msg("+15550001111", "hi")

	next, _ := Decide(sess, m)

	assert.Equal(t, m.ReceivedAt, next.LastActivity)
}
