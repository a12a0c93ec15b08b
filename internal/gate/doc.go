// Package gate decides whether a feature may currently be activated.
//
// A Gate evaluates an ordered list of facts against live external state.
// The recognized elevation-mismatch failure is downgraded to "unavailable"
// with at most one user warning per incident; every other failure propagates
// untouched.
package gate
