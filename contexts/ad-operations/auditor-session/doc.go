// Package auditorsession is the operator-side sync client. Each session
// pulls the settings store on an interval, overlays its own in-flight
// writes, and reports conflicts and rejections as notices.
//
// Layering:
// - domain: snapshot view, typed field values, overlays and notices
// - application: session pull/write/rollback and the poll loop
// - ports: the store API seen by a session
// - adapters: HTTP client for the automation API
//
// Boundary notes:
// - Never import adset-automation-service packages; only its HTTP contract.
package auditorsession
