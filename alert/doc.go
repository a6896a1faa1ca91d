// Package alert tracks per-rule alert states derived from yes/no inference
// results. Each rule binds a key to a query string; state updates run a
// cooldown window so downstream consumers can suppress repeated
// notifications for the same condition. State changes are pushed to an
// Exporter boundary, keeping the metrics transport outside the core.
package alert
