// Package indigo defines the upstream device and variable model the
// bridge mirrors into Home Assistant.
//
// The types here are snapshots: the registry backing the bridge hands
// out copies of its current view, and consumers never mutate upstream
// state directly. All writes go through the command interfaces the
// consuming packages declare (entity.Commander, bridge.Registry).
package indigo
