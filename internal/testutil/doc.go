// Package testutil provides deterministic recording helpers for bridge tests
// and the scenario harness.
//
// A Trace is a shared, sequenced log. RecordingGateway appends every storage
// operation to it and TracingPorts appends every delivery to the core, so a
// test can see reads, writes and deliveries interleaved in the order they
// happened.
package testutil
