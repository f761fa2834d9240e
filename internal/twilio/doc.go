// Package twilio talks to the upstream messaging gateway: verifying the
// signature on inbound webhook calls and sending outbound messages through
// the REST API. The account auth token is the shared secret for both.
package twilio
