// Package constants centralizes probe and policy defaults shared across the CLI
// and the API server.
//
// Timeouts, the renewal threshold and request limits live here so cmd/ and
// internal/ reference one value instead of repeating magic numbers.
package constants
