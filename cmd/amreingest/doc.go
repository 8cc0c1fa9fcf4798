// Package main hosts the amreingest CLI entrypoint and command graph.
//
// "amreingest run" is meant to be invoked repeatedly by cron or a systemd
// timer. Each invocation takes the run lock, reconciles in-flight reingests,
// launches as many queued packages as the throttle allows, and prints a
// final report once the batch is drained. Every other command is read-only
// with respect to the job store.
//
// Keep this package lean: behaviour lives in the internal packages and the
// commands here only wire configuration, logging, and output together.
package main
