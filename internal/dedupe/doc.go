// Package dedupe filters redelivered webhook messages. The upstream gateway
// delivers at-least-once, so the same message id can arrive more than once;
// Observe gives exactly one caller a fresh outcome per id within the
// retention window.
package dedupe
