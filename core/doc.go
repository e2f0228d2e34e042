// Package core defines the domain model shared by the Conduit console backend.
//
// It holds the objects read from the integration platform (integrations,
// connections, data collections, flows), the objects the console stores
// (actions and workflows), the data-collection method table, the pure
// operations on a workflow's node list and the circuit breaker used when
// talking to the platform.
//
// Nothing in this package performs I/O.
package core
