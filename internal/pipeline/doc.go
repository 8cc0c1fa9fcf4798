// Package pipeline talks to the remote preservation pipeline: the
// Archivematica dashboard API (transfer and ingest status, approval,
// processing configurations) and the Storage Service API (reingest requests,
// package details, pipelines, package inventory).
//
// Client is the narrow interface the reingest engine consumes. HTTPClient is
// the production implementation; tests substitute a scripted fake.
//
// Poll failures are deliberately soft. Transport errors, non-2xx responses
// and undecodable bodies come back as *Error values that match ErrNoData, so
// callers treat them as "no information yet" rather than as a failed job.
package pipeline
