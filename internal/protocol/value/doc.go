// Package value is the dictionary-independent representation of a decoded
// DMAP message: an ordered list of items, each a name and a tagged value.
//
// Repeated same-name siblings are kept as separate items in wire order; the
// tree never groups them.
package value
