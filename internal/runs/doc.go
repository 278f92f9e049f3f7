// Package runs tracks harvest runs submitted through the API: their
// parameters, lifecycle status, counters and produced artifacts.
package runs
