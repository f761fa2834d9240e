// ABOUTME: Command router and conversation state machine
// ABOUTME: Pure decision function mapping (session, message) to (new session, reply)

package router

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/2389/textline/internal/session"
)

// Message is one inbound message as delivered by the webhook. Immutable once
// constructed.
type Message struct {
	ID         string
	Sender     string
	Body       string
	ReceivedAt time.Time
}

// Reply is the bot's answer to one turn, consumed once by the dispatcher.
type Reply struct {
	Recipient string
	Body      string
}

// Context keys used by the state machine.
const (
	ctxPending = "pending"
	ctxName    = "name"
	ctxLang    = "lang"

	pendingName = "name"
)

// languages the bot can be switched to with the lang command.
var languages = []string{"czech", "english", "spanish", "ukrainian"}

const helpText = "I can do a few things:\n" +
	"  hi — start a conversation\n" +
	"  lang <language> — set your preferred language\n" +
	"  reset — forget everything and start over\n" +
	"  help — this message"

// langErrText lists valid languages when a lang command is malformed.
var langErrText = func() string {
	names := make([]string, len(languages))
	for i, l := range languages {
		names[i] = strings.ToUpper(l[:1]) + l[1:]
	}
	sort.Strings(names)
	return "Please provide a valid language. Example:\n\tlang spanish\nValid languages: " +
		strings.Join(names, ", ")
}()

// Decide computes the next session and the reply for one inbound message.
// It is a pure function: deterministic, no I/O, never panics on malformed
// input, and defined for every (state, input) pair. The returned session is
// a new value; the input session is not mutated.
func Decide(sess *session.Session, msg Message) (*session.Session, Reply) {
	next := sess.Clone()
	next.Sender = msg.Sender
	next.LastActivity = msg.ReceivedAt

	body := strings.TrimSpace(msg.Body)
	word, rest := splitCommand(body)

	reply := func(text string) Reply {
		return Reply{Recipient: msg.Sender, Body: text}
	}

	// Reset wins from every state
	if word == "reset" {
		next.State = session.StateNew
		next.Context = make(map[string]string)
		return next, reply("Okay, starting over. Say hi when you're ready.")
	}

	// Help answers without disturbing the conversation
	if word == "help" {
		return next, reply(helpText)
	}

	switch sess.State {
	case session.StateAwaitingInput:
		return decideAnswer(next, body, reply)
	default: // StateNew, StateIdle, or anything unknown restarts at NEW
		return decideCommand(next, word, rest, reply)
	}
}

// decideCommand handles input in the NEW and IDLE states.
func decideCommand(next *session.Session, word, rest string, reply func(string) Reply) (*session.Session, Reply) {
	switch word {
	case "hi", "hello", "hey", "start":
		if name := next.Context[ctxName]; name != "" {
			next.State = session.StateIdle
			return next, reply(fmt.Sprintf("Welcome back, %s! What can I do for you?", name))
		}
		next.State = session.StateAwaitingInput
		next.Context[ctxPending] = pendingName
		return next, reply("Hi there! What should I call you?")

	case "lang", "/lang":
		lang := strings.ToLower(strings.TrimSpace(rest))
		if !validLanguage(lang) {
			return next, reply(langErrText)
		}
		next.Context[ctxLang] = lang
		next.State = session.StateIdle
		return next, reply(fmt.Sprintf("Got it, I'll use %s from now on.", lang))

	default:
		// Unrecognized (including empty) restarts at NEW with a pointer to help
		next.State = session.StateNew
		return next, reply("Sorry, I didn't catch that.\n" + helpText)
	}
}

// decideAnswer handles free-form input while the bot is waiting for one.
func decideAnswer(next *session.Session, body string, reply func(string) Reply) (*session.Session, Reply) {
	pending := next.Context[ctxPending]
	delete(next.Context, ctxPending)

	if pending == pendingName && body != "" {
		next.Context[ctxName] = body
		next.State = session.StateIdle
		return next, reply(fmt.Sprintf("Nice to meet you, %s! Say help to see what I can do.", body))
	}

	// Empty answer or a question we no longer remember asking
	next.State = session.StateNew
	return next, reply("Sorry, I didn't catch that.\n" + helpText)
}

// splitCommand returns the lowercased first word and the remainder.
// Words are separated by any run of whitespace, tabs included.
func splitCommand(body string) (string, string) {
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return "", ""
	}
	return strings.ToLower(fields[0]), strings.Join(fields[1:], " ")
}

func validLanguage(lang string) bool {
	for _, l := range languages {
		if l == lang {
			return true
		}
	}
	return false
}
