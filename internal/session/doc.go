// Package session persists per-sender conversation state.
//
// One session exists per sender identity, created lazily on first contact.
// Commits use optimistic concurrency: every session carries a version, and a
// commit only lands if the stored version hasn't advanced since the session
// was loaded. Two concurrent turns for the same sender therefore never
// clobber each other; the loser reloads and recomputes.
package session
