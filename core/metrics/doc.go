// Package metrics records operational figures of the relief service: route
// queries, ledger transfers, stock levels and evacuation transitions. Sinks
// are created by name from configuration; several configured sinks are fanned
// out through a MultiSink.
package metrics
