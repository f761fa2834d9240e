// Package router decides how the bot answers each inbound message.
//
// Decide is a finite state machine over the session states and a small
// command vocabulary, plus a catch-all transition for unrecognized input
// from every state. It is pure: the same session and message always produce
// the same next session and reply, which keeps behavior around gateway
// redeliveries analyzable and testable.
package router
