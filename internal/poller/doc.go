// Package poller provides the periodic fetch loop for EcoBoard.
//
// This package is internal to EcoBoard and handles the timing and HTTP side
// of a dashboard refresh. Every tick starts all configured jobs concurrently
// and does not wait for them, mirroring a browser timer that fires
// regardless of outstanding requests.
//
// The main components are:
//
//   - [Client]: Fetches one API dataset as JSON, with headers, timeout and size limit
//   - [Scheduler]: Ticks immediately, then at a fixed interval, until stopped
//   - [Job]: A named unit of work started once per tick
//   - [JobResult]: Outcome of one job run
//
// Users of the ecoboard library should not need to interact with this
// package directly. Configuration is done through the main ecoboard package.
package poller
