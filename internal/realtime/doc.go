// Package realtime implements the live notification layer: a Registry that
// authenticates WebSocket connections and tracks their per-user and per-role
// group membership, and a Dispatcher that fans events out to those groups.
//
// Frames are JSON text messages of the form {"event": "<name>", "data": <payload>}
// in both directions. Delivery is best-effort and at-most-once; the durable
// notification store is the system of record for anything a client misses.
package realtime
