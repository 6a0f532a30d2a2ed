// Package kernel implements the deterministic in-memory state of a valo
// instance: the slotted record/node/edge pools, the property-graph
// adjacency, the HNSW approximate-nearest-neighbor index, and the event
// application and canonical hashing that make the whole aggregate
// reproducible byte-for-byte given the same ordered event sequence.
//
// Nothing in this package touches a clock, a random source, or a float.
// Every operation that contributes to [State.Hash] is pure integer
// arithmetic over [fixedpoint.Scalar] and BLAKE3.
package kernel
