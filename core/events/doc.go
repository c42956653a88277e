// Package events defines the relief events emitted on the event bus.
//
// Available event types:
//   - RouteQueryEvent: a shortest path or alternatives query finished
//   - ZoneEvent: a zone was created or changed
//   - StockEvent: a ledger cell changed level
//   - TransferEvent: a transfer succeeded or was rejected
//   - EvacuationEvent: an evacuation request changed state
//   - TeamEvent: a team was assigned or released
package events
