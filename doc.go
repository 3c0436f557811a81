// Package async provides the shared primitives for cooperative background
// execution: a cancellation signal, a thread-affine callback marshaller, and
// a three-way outcome classification for asynchronous steps.
//
// The worker package builds a cooperative loop controller on top of these
// primitives, and the chain package builds a sequential step composer. Both
// consume only the contracts defined here, so hosts can supply their own
// marshaller (a UI event loop, a test stub) without touching the cores.
package async
