package codes

import "github.com/danmuck/dmapctl/internal/protocol/tlv"

// Names of the content codes the bootstrap table covers.
const (
	NameContentCodesResponse = "dmap.contentcodesresponse"
	NameStatus               = "dmap.status"
	NameDictionary           = "dmap.dictionary"
	NameContentCodesNumber   = "dmap.contentcodesnumber"
	NameContentCodesName     = "dmap.contentcodesname"
	NameContentCodesType     = "dmap.contentcodestype"
)

// StatusOK is the only bootstrap status accepted.
const StatusOK = 200

var bootstrapCodes = []ContentCode{
	{Tag: tlv.Tag{'m', 'c', 'c', 'r'}, Name: NameContentCodesResponse, Kind: KindContainer},
	{Tag: tlv.Tag{'m', 's', 't', 't'}, Name: NameStatus, Kind: KindU32},
	{Tag: tlv.Tag{'m', 'd', 'c', 'l'}, Name: NameDictionary, Kind: KindContainer},
	{Tag: tlv.Tag{'m', 'c', 'n', 'm'}, Name: NameContentCodesNumber, Kind: KindU32},
	{Tag: tlv.Tag{'m', 'c', 'n', 'a'}, Name: NameContentCodesName, Kind: KindString},
	{Tag: tlv.Tag{'m', 'c', 't', 'y'}, Name: NameContentCodesType, Kind: KindU16},
}

// bootstrap never fails: the table above is static and well-formed.
var bootstrap, _ = NewDictionary(bootstrapCodes)

// Bootstrap returns the fixed seed dictionary that decodes a
// content-codes response.
func Bootstrap() *Dictionary {
	return bootstrap
}

// Upstream content-codes responses declare the wrong kind for these entries.
var builtinOverrides = []Override{
	{Name: "dmap.editcommandssupported", Kind: KindI16},
	{Name: "dmap.authenticationschemes", Kind: KindI8},
	{Name: "com.apple.itunes.itms-playlistid", Kind: KindI64},
	{Name: "com.apple.itunes.rental-pb-start", Kind: KindString},
	{Name: "dmap.itemdateplayed", Kind: KindI32},
}

// BuiltinOverrides returns a copy of the authoritative override table.
func BuiltinOverrides() []Override {
	out := make([]Override, len(builtinOverrides))
	copy(out, builtinOverrides)
	return out
}
