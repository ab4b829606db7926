// Package dmap decodes and encodes DMAP messages against a content-code
// dictionary.
//
// Decode and Encode work on the generic value tree. DecodeInto and
// EncodeFrom bind tagged Go structs:
//
//	type LoginResponse struct {
//		Status    int32   `dmap:"dmap.status"`
//		SessionID uint32  `dmap:"dmap.sessionid"`
//		Groups    []Group `dmap:"dmap.listingitem"`
//	}
//
// Repeated fields are runs of adjacent sibling records sharing one tag; a
// record with a different tag ends the run and is held back as the next key.
// The Decoder pull interface (NextKey, Value, Nested, Repeated) is what the
// struct binding is built on and can drive any other binding.
//
// A Dictionary is built once with BuildDictionary and may be shared by any
// number of goroutines. Decoders and encoders are per call.
package dmap
