// Package webhook receives inbound message callbacks from the gateway and
// runs one conversation turn per call: verify signature, drop duplicates,
// load the session, decide, commit, dispatch the reply. The gateway delivers
// at-least-once and expects a prompt acknowledgment, so anything past the
// signature gate answers 200 regardless of internal outcome.
package webhook
