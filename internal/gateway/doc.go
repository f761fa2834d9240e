// Package gateway assembles the bot server: the webhook endpoint, the
// session store and dedupe cache behind it, the outbound gateway client,
// and the operator API, all served from one HTTP listener.
package gateway
