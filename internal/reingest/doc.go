// Package reingest drives queued packages through the remote pipeline.
//
// An Engine is invoked once per scheduled run. Reconcile polls every
// IN_PROGRESS job and marks it COMPLETE once ingest has finished and the
// package is stored again. Admit then fills the free throttle slots with NEW
// jobs, running the launch protocol for each: start the reingest, poll the
// transfer until it waits for approval, approve it. A launch that fails marks
// the job ERROR and is not retried.
//
// All blocking work is sequential and honours context cancellation. A run
// interrupted after the pipeline accepted a reingest but before the job was
// recorded IN_PROGRESS leaves the job NEW; the next run would start it again.
package reingest
