// Package zwave generates the Home Assistant entities for Z-Wave
// devices. Z-Wave has no scene broadcast traffic to forward, so the
// entities are the generic device kinds plus a battery level sensor
// for battery powered nodes.
package zwave
