// Package protocol owns the DMAP wire contract shared by the codec packages.
//
// Ownership boundary:
// - tlv: raw record primitives and the backpatching writer
// - codes: content-code dictionary, bootstrap and override tables
// - value: dictionary-independent value tree
// - dmap: decoder, encoder, struct binding and dictionary bootstrap
//
// This package itself only carries the error contract every layer reports through.
package protocol
