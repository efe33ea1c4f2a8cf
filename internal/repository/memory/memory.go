// Package memory provides map-backed repository implementations. They satisfy
// the same contracts as the postgres package, version guard included, and back
// the service test suites plus single-node dev runs.
package memory
