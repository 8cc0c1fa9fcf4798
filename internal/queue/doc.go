// Package queue persists reingest jobs in SQLite and exposes the atomic status
// transitions the reingest engine drives them through.
//
// One row exists per package under reingest, keyed by package identifier.
// Jobs move NEW -> IN_PROGRESS -> COMPLETE, or to ERROR from either of the
// first two states. ERROR is terminal: the engine never retries it and an
// operator resolves it by hand. Every transition is a single conditional
// UPDATE, so a crash between two transitions leaves the row in the last
// committed state and the next invocation resumes from there.
//
// The database runs in WAL mode so reporting commands can read while no run
// is active. Schema changes bump PRAGMA user_version in schema.go; operators clear the
// database to adopt the new schema.
package queue
