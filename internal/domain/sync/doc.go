// Package sync contains the Delta Sync bounded context.
// This context mirrors product records from the Fulfil catalog into the
// ShipHero fulfillment system on a recurring schedule.
//
// Key concepts:
//   - SourceRecord: raw product data as read from the catalog (SI units)
//   - NormalizedProduct: canonical view used for fingerprinting and payloads
//   - Fingerprint: hash of the outbound payload, used to detect no-op pushes
//   - Run / LogEntry / ItemError: the auditable history of every cycle
//   - Token: OAuth credentials for the fulfillment API
//
// Design Pattern: Ports & Adapters
//   - Ports (gateway and repository interfaces) are defined here
//   - Adapters (Fulfil client, ShipHero client, GORM repositories) are in the
//     infrastructure layer
package sync
