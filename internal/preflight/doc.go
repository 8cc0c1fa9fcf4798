// Package preflight provides readiness checks for the filesystem paths and
// remote services amreingest depends on.
//
// The run command checks directory access before opening the job store. The
// "amreingest check" command runs every check and prints a table so operators
// can verify credentials and pipeline settings before scheduling runs.
package preflight
