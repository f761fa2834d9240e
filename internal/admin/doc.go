// Package admin exposes the operator API: listing active conversation
// sessions and pushing a broadcast message to a recipient list. Endpoints
// require a bearer token minted with the configured admin secret.
package admin
