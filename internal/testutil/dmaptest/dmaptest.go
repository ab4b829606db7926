// Package dmaptest builds DMAP wire fixtures without going through the
// codec under test.
package dmaptest

import (
	"github.com/danmuck/dmapctl/internal/protocol/tlv"
)

// Code is one entry of a content-codes fixture, with the upstream type
// number as it would appear on the wire.
type Code struct {
	Tag  string
	Name string
	Type uint16
}

// Codes is the dictionary served by ContentCodes. The five override targets
// carry the wrong type numbers real servers send.
var Codes = []Code{
	{"mccr", "dmap.contentcodesresponse", 12},
	{"mstt", "dmap.status", 5},
	{"mdcl", "dmap.dictionary", 12},
	{"mcnm", "dmap.contentcodesnumber", 9},
	{"mcna", "dmap.contentcodesname", 9},
	{"mcty", "dmap.contentcodestype", 3},
	{"mlog", "dmap.loginresponse", 12},
	{"mlid", "dmap.sessionid", 5},
	{"msrv", "dmap.serverinforesponse", 12},
	{"mpro", "dmap.protocolversion", 11},
	{"apro", "daap.protocolversion", 11},
	{"minm", "dmap.itemname", 9},
	{"msau", "dmap.authenticationmethod", 1},
	{"mstm", "dmap.timeoutinterval", 5},
	{"msdc", "dmap.databasescount", 5},
	{"mlcl", "dmap.listing", 12},
	{"mlit", "dmap.listingitem", 12},
	{"miid", "dmap.itemid", 5},
	{"mper", "dmap.persistentid", 7},
	{"mimc", "dmap.itemcount", 5},
	{"mtco", "dmap.specifiedtotalcount", 5},
	{"mrco", "dmap.returnedcount", 5},
	{"muty", "dmap.updatetype", 1},
	{"avdb", "daap.serverdatabases", 12},
	{"asal", "daap.songalbum", 9},
	{"astm", "daap.songtime", 5},
	{"asda", "daap.songdateadded", 10},
	{"mped", "dmap.editcommandssupported", 1},
	{"msas", "dmap.authenticationschemes", 5},
	{"aeIP", "com.apple.itunes.itms-playlistid", 5},
	{"aeRS", "com.apple.itunes.rental-pb-start", 10},
	{"asdp", "dmap.itemdateplayed", 10},
}

// ContentCodes is a content-codes response with status 200 listing Codes.
func ContentCodes() []byte {
	return ContentCodesWith(200, Codes)
}

// ContentCodesWithStatus is ContentCodes reporting status instead of 200.
func ContentCodesWithStatus(status uint32) []byte {
	return ContentCodesWith(status, Codes)
}

// ContentCodesWith lays out mccr{mstt, mdcl{mcnm, mcna, mcty}...}. The
// content code number is written as the four tag bytes.
func ContentCodesWith(status uint32, list []Code) []byte {
	w := tlv.NewWriter(64 * len(list))
	open(w, "mccr")
	u32(w, "mstt", status)
	for _, c := range list {
		open(w, "mdcl")
		w.Tag(tag("mcnm"))
		t := tag(c.Tag)
		_ = w.Body(t[:])
		str(w, "mcna", c.Name)
		u16(w, "mcty", c.Type)
		closeOne(w)
	}
	closeOne(w)
	return w.Bytes()
}

// Login is mlog{mstt=200, mlid=sessionID}.
func Login(sessionID uint32) []byte {
	w := tlv.NewWriter(32)
	open(w, "mlog")
	u32(w, "mstt", 200)
	u32(w, "mlid", sessionID)
	closeOne(w)
	return w.Bytes()
}

// ServerInfo is a server-info response that exercises versions, a string,
// an override target and one tag missing from Codes.
func ServerInfo() []byte {
	w := tlv.NewWriter(128)
	open(w, "msrv")
	u32(w, "mstt", 200)
	u32(w, "mpro", 0x00020000)
	u32(w, "apro", 0x00030000)
	str(w, "minm", "Living Room")
	w.Tag(tag("msau"))
	w.Uint8(2)
	u32(w, "mstm", 1800)
	u32(w, "msdc", 1)
	w.Tag(tag("mped"))
	w.Uint16(3)
	w.Tag(tag("xyzw"))
	_ = w.Body([]byte{0xde, 0xad})
	closeOne(w)
	return w.Bytes()
}

// Databases is avdb{mstt, muty, mtco, mrco, mlcl{mlit{miid, mper, minm, mimc}...}}
// with one listing item per name.
func Databases(names ...string) []byte {
	w := tlv.NewWriter(128)
	open(w, "avdb")
	u32(w, "mstt", 200)
	w.Tag(tag("muty"))
	w.Uint8(0)
	u32(w, "mtco", uint32(len(names)))
	u32(w, "mrco", uint32(len(names)))
	open(w, "mlcl")
	for i, name := range names {
		open(w, "mlit")
		u32(w, "miid", uint32(i+1))
		w.Tag(tag("mper"))
		w.Uint64(0x1000 + uint64(i))
		str(w, "minm", name)
		u32(w, "mimc", uint32(10*(i+1)))
		closeOne(w)
	}
	closeOne(w)
	closeOne(w)
	return w.Bytes()
}

func tag(s string) tlv.Tag {
	t, err := tlv.ParseTag(s)
	if err != nil {
		panic(err)
	}
	return t
}

func open(w *tlv.Writer, t string) {
	w.Tag(tag(t))
	w.Open()
}

func closeOne(w *tlv.Writer) {
	if err := w.Close(); err != nil {
		panic(err)
	}
}

func u32(w *tlv.Writer, t string, v uint32) {
	w.Tag(tag(t))
	w.Uint32(v)
}

func u16(w *tlv.Writer, t string, v uint16) {
	w.Tag(tag(t))
	w.Uint16(v)
}

func str(w *tlv.Writer, t, s string) {
	w.Tag(tag(t))
	_ = w.String(s)
}
