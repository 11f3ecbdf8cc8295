// Package app provides the application service layer.
//
// Orchestrates use cases: pet and appointment management, article publishing,
// the notification inbox and profile changes, plus the appointment reminder
// ticker. Every business mutation that notifies someone persists the durable
// record and pushes the live event as best-effort side effects. Depends on
// domain interfaces, not concrete implementations.
package app
