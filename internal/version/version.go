// Package version provides build and version information.
package version

// Version is the current application version.
const Version = "0.3.0"

// Milestones:
// 0.3.0 - Remote solve service (platesolved), Prometheus metrics, OTel tracing
// 0.2.0 - Iterative centering loop, simulator-backed capture and center modes
// 0.1.0 - Initial release: ASTAP adapter, blind failover, epoch transforms
