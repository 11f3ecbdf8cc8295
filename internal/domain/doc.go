// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (identity.go, notification.go, appointment.go, realtime.go, ...)
// hold the shared types and the consumer-side contracts. No implementation code, just
// contracts, so adapters and use cases can depend on this package without import cycles.
package domain
