package dmap

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/danmuck/dmapctl/internal/protocol"
	"github.com/danmuck/dmapctl/internal/protocol/codes"
	"github.com/danmuck/dmapctl/internal/protocol/tlv"
	"github.com/danmuck/dmapctl/internal/protocol/value"
	"github.com/danmuck/dmapctl/internal/testutil/dmaptest"
	"github.com/danmuck/dmapctl/internal/testutil/testlog"
)

func fixtureDictionary(t *testing.T) *codes.Dictionary {
	t.Helper()
	dict, err := BuildDictionary(dmaptest.ContentCodes())
	if err != nil {
		t.Fatalf("build dictionary: %v", err)
	}
	return dict
}

func fixtures() map[string][]byte {
	return map[string][]byte{
		"content-codes": dmaptest.ContentCodes(),
		"login":         dmaptest.Login(7),
		"server-info":   dmaptest.ServerInfo(),
		"databases":     dmaptest.Databases("Library", "Shared"),
		"empty-listing": dmaptest.Databases(),
	}
}

func TestDecodeLoginResponse(t *testing.T) {
	testlog.Start(t)
	dict := fixtureDictionary(t)

	item, err := DecodeSingle(dmaptest.Login(7), dict)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if item.Name != value.Named("dmap.loginresponse") {
		t.Fatalf("unexpected root name: %s", item.Name)
	}
	children, ok := item.Value.Items()
	if !ok || len(children) != 2 {
		t.Fatalf("expected container with 2 children, got %s", item.Value)
	}
	want := []value.Item{
		{Name: value.Named("dmap.status"), Value: value.I32(200)},
		{Name: value.Named("dmap.sessionid"), Value: value.I32(7)},
	}
	if !value.EqualItems(children, want) {
		t.Fatalf("unexpected children: %v", children)
	}
}

func TestRoundTripIsByteExact(t *testing.T) {
	dict := fixtureDictionary(t)
	for name, buf := range fixtures() {
		t.Run(name, func(t *testing.T) {
			items, err := Decode(buf, dict)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			out, err := Encode(items, dict)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if !bytes.Equal(out, buf) {
				t.Fatalf("re-encoded bytes differ:\n got % x\nwant % x", out, buf)
			}
			again, err := Decode(out, dict)
			if err != nil {
				t.Fatalf("decode re-encoded: %v", err)
			}
			if !value.EqualItems(items, again) {
				t.Fatalf("decode(encode(decode(b))) differs from decode(b)")
			}
		})
	}
}

func TestTruncationAtEveryOffset(t *testing.T) {
	dict := fixtureDictionary(t)
	for name, buf := range fixtures() {
		t.Run(name, func(t *testing.T) {
			for n := 0; n < len(buf); n++ {
				_, err := DecodeSingle(buf[:n], dict)
				if !errors.Is(err, protocol.ErrTruncatedInput) {
					t.Fatalf("cut at %d/%d: expected truncated input, got %v", n, len(buf), err)
				}
				if n == 0 {
					continue
				}
				if _, err := Decode(buf[:n], dict); !errors.Is(err, protocol.ErrTruncatedInput) {
					t.Fatalf("Decode cut at %d/%d: expected truncated input, got %v", n, len(buf), err)
				}
			}
		})
	}
}

func TestDecodeEmptyBufferIsEmptyList(t *testing.T) {
	items, err := Decode(nil, codes.Bootstrap())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}

func TestDecodeSingleRejectsTrailingItems(t *testing.T) {
	dict := fixtureDictionary(t)
	buf := append(dmaptest.Login(1), dmaptest.Login(2)...)

	_, err := DecodeSingle(buf, dict)
	if !errors.Is(err, protocol.ErrTrailingData) {
		t.Fatalf("expected trailing data, got %v", err)
	}
	items, err := Decode(buf, dict)
	if err != nil || len(items) != 2 {
		t.Fatalf("Decode should accept both roots: items=%d err=%v", len(items), err)
	}
}

func TestUnknownTagsDecodeAsRawPayload(t *testing.T) {
	dict := fixtureDictionary(t)
	item, err := DecodeSingle(dmaptest.ServerInfo(), dict)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	children, _ := item.Value.Items()
	last := children[len(children)-1]
	if last.Name != value.Code(tlv.Tag{'x', 'y', 'z', 'w'}) {
		t.Fatalf("expected raw name for unknown tag, got %s", last.Name)
	}
	raw, ok := last.Value.Bytes()
	if !ok || !bytes.Equal(raw, []byte{0xde, 0xad}) {
		t.Fatalf("unexpected unknown payload: %s", last.Value)
	}

	edit, ok := item.Value.Find("dmap.editcommandssupported")
	if !ok || !value.Equal(edit.Value, value.I16(3)) {
		t.Fatalf("expected overridden i16 edit commands, got %v", edit.Value)
	}
}

func testDictionary(t *testing.T, list ...codes.ContentCode) *codes.Dictionary {
	t.Helper()
	dict, err := codes.NewDictionary(list)
	if err != nil {
		t.Fatalf("new dictionary: %v", err)
	}
	return dict
}

func record(tag string, body []byte) []byte {
	t, _ := tlv.ParseTag(tag)
	out, _ := tlv.AppendRecord(nil, tlv.Record{Tag: t, Body: body})
	return out
}

func TestScalarWidthMismatch(t *testing.T) {
	dict := testDictionary(t, codes.ContentCode{Tag: tlv.Tag{'m', 'p', 'e', 'd'}, Name: "dmap.editcommandssupported", Kind: codes.KindI8})

	_, err := Decode(record("mped", []byte{0, 3}), dict)
	if !errors.Is(err, protocol.ErrWidthMismatch) {
		t.Fatalf("expected width mismatch, got %v", err)
	}
}

func TestInvalidUTF8IsRejected(t *testing.T) {
	dict := testDictionary(t, codes.ContentCode{Tag: tlv.Tag{'m', 'i', 'n', 'm'}, Name: "dmap.itemname", Kind: codes.KindString})

	_, err := Decode(record("minm", []byte{0xff, 0xfe}), dict)
	if !errors.Is(err, protocol.ErrInvalidUTF8) {
		t.Fatalf("expected invalid utf-8, got %v", err)
	}
}

func TestNestedErrorsCarryPath(t *testing.T) {
	dict := fixtureDictionary(t)
	inner := record("minm", []byte{0xff})
	buf := record("msrv", inner)

	_, err := Decode(buf, dict)
	var pe *protocol.Error
	if !errors.As(err, &pe) {
		t.Fatalf("expected *protocol.Error, got %v", err)
	}
	if len(pe.Path) != 1 || pe.Path[0] != "dmap.serverinforesponse" {
		t.Fatalf("unexpected path: %v", pe.Path)
	}
}

func TestEncodeUnknownNameFails(t *testing.T) {
	dict := fixtureDictionary(t)
	items := []value.Item{{
		Name: value.Named("dmap.loginresponse"),
		Value: value.Container(
			value.Item{Name: value.Named("dmap.status"), Value: value.I32(200)},
			value.Item{Name: value.Named("dmap.nosuchfield"), Value: value.U8(1)},
		),
	}}
	out, err := Encode(items, dict)
	if !errors.Is(err, protocol.ErrUnknownField) {
		t.Fatalf("expected unknown field, got %v", err)
	}
	if out != nil {
		t.Fatalf("expected no partial output, got % x", out)
	}
}

func TestEncodeBuildsLoginFromTree(t *testing.T) {
	dict := fixtureDictionary(t)
	item := value.Item{
		Name: value.Named("dmap.loginresponse"),
		Value: value.Container(
			value.Item{Name: value.Named("dmap.status"), Value: value.I32(200)},
			value.Item{Name: value.Named("dmap.sessionid"), Value: value.I32(7)},
		),
	}
	out, err := EncodeItem(item, dict)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(out, dmaptest.Login(7)) {
		t.Fatalf("unexpected bytes: % x", out)
	}
}

func TestDecoderGroupsAdjacentRuns(t *testing.T) {
	dict := testDictionary(t,
		codes.ContentCode{Tag: tlv.Tag{'a', 'a', 'a', 'a'}, Name: "test.a", Kind: codes.KindU8},
		codes.ContentCode{Tag: tlv.Tag{'b', 'b', 'b', 'b'}, Name: "test.b", Kind: codes.KindU8},
	)
	var buf []byte
	for i, tag := range []string{"aaaa", "aaaa", "aaaa", "bbbb", "aaaa"} {
		buf = append(buf, record(tag, []byte{byte(i)})...)
	}

	d := NewDecoder(dict, buf)
	var runs []string
	for {
		key, ok, err := d.NextKey()
		if err != nil {
			t.Fatalf("next key: %v", err)
		}
		if !ok {
			break
		}
		var got []byte
		err = d.Repeated(func() error {
			v, err := d.Value()
			if err != nil {
				return err
			}
			u, _ := v.Uint()
			got = append(got, byte(u))
			return nil
		})
		if err != nil {
			t.Fatalf("repeated: %v", err)
		}
		runs = append(runs, fmt.Sprintf("%s:%d", key.Name.Text(), len(got)))
	}
	want := []string{"test.a:3", "test.b:1", "test.a:1"}
	if len(runs) != len(want) {
		t.Fatalf("unexpected runs: %v", runs)
	}
	for i := range want {
		if runs[i] != want[i] {
			t.Fatalf("unexpected runs: %v", runs)
		}
	}
	if !d.Done() {
		t.Fatalf("decoder should be exhausted")
	}
}

func TestDecoderSkipsUnconsumedValues(t *testing.T) {
	dict := fixtureDictionary(t)
	d := NewDecoder(dict, dmaptest.ServerInfo())
	if _, ok, err := d.NextKey(); !ok || err != nil {
		t.Fatalf("next key: ok=%v err=%v", ok, err)
	}
	sub, err := d.Nested()
	if err != nil {
		t.Fatalf("nested: %v", err)
	}
	count := 0
	for {
		_, ok, err := sub.NextKey()
		if err != nil {
			t.Fatalf("next key: %v", err)
		}
		if !ok {
			break
		}
		count++
	}
	if count != 9 {
		t.Fatalf("expected 9 children, got %d", count)
	}
}

func TestNestedRequiresContainer(t *testing.T) {
	dict := fixtureDictionary(t)
	d := NewDecoder(dict, record("mstt", []byte{0, 0, 0, 200}))
	if _, _, err := d.NextKey(); err != nil {
		t.Fatalf("next key: %v", err)
	}
	if _, err := d.Nested(); !errors.Is(err, protocol.ErrTypeMismatch) {
		t.Fatalf("expected type mismatch, got %v", err)
	}
}

func TestValueWithoutKeyIsUnbalanced(t *testing.T) {
	d := NewDecoder(codes.Bootstrap(), nil)
	if _, err := d.Value(); !errors.Is(err, protocol.ErrUnbalanced) {
		t.Fatalf("expected unbalanced, got %v", err)
	}
}

func TestEncodeRejectsVariantOfAnotherKind(t *testing.T) {
	dict := fixtureDictionary(t)
	login := func(status value.Value) value.Item {
		return value.Item{
			Name: value.Named("dmap.loginresponse"),
			Value: value.Container(
				value.Item{Name: value.Named("dmap.status"), Value: status},
				value.Item{Name: value.Named("dmap.sessionid"), Value: value.I32(7)},
			),
		}
	}
	for name, status := range map[string]value.Value{
		"narrower scalar": value.U8(200),
		"wider scalar":    value.I64(200),
		"string":          value.String("ok"),
		"container":       value.Container(),
	} {
		t.Run(name, func(t *testing.T) {
			out, err := EncodeItem(login(status), dict)
			if !errors.Is(err, protocol.ErrTypeMismatch) {
				t.Fatalf("expected type mismatch, got %v", err)
			}
			if out != nil {
				t.Fatalf("expected no partial output, got % x", out)
			}
		})
	}

	out, err := EncodeItem(login(value.Unknown([]byte{0, 0, 0, 200})), dict)
	if err != nil {
		t.Fatalf("unknown payload: %v", err)
	}
	if !bytes.Equal(out, dmaptest.Login(7)) {
		t.Fatalf("unknown payload should be written verbatim: % x", out)
	}
}

func TestEncodeTimestampAndVersionAsU32(t *testing.T) {
	dict := fixtureDictionary(t)
	items := []value.Item{
		{Name: value.Named("dmap.protocolversion"), Value: value.U32(0x00020000)},
		{Name: value.Named("daap.songdateadded"), Value: value.U32(1700000000)},
	}
	out, err := Encode(items, dict)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := Decode(out, dict)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !value.EqualItems(back, items) {
		t.Fatalf("unexpected items after round trip: %v", back)
	}
}
