// Package types holds the event payload models published through the
// dispatcher and the JSON shapes served by the diagnostics API.
//
// Payload models are flat value types: fixed-size, no pointers, strings,
// slices or maps. The dispatcher rejects anything else at registration.
package types
