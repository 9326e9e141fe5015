// Package bridge is the synchronization engine. The Controller owns
// the mirrored entity set and its lookup maps, rebuilds them when the
// upstream topology changes, fans out update and command
// notifications, and drives the periodic refresh loop.
package bridge
