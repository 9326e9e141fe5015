// Package history records published entity state changes. Every state
// payload the bridge publishes lands in a local SQLite log, pruned by
// a retention window, and optionally in InfluxDB for dashboards.
package history
