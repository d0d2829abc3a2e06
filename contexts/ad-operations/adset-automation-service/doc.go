// Package adsetautomation implements the ad-set automation engine: the shift
// calendar, the settings store with its audit log, the per-ad-set scheduler
// and the status bridge to the ad platform.
//
// Layering:
// - domain: settings, turns, run states, the calendar predicate and the decision rules
// - application: commands/queries, the scheduler cycle and background workers
// - ports: persistence, platform and event boundaries
// - adapters: HTTP handler, memory, gorm repository, Graph API client and bridge, YAML turn seeds
// - transport: module-private DTOs for HTTP contracts
//
// Boundary notes:
// - Keep this module self-contained under the ad-operations context.
// - Operator sessions talk to it only through the HTTP contract.
package adsetautomation
