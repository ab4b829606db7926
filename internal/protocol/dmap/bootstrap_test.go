package dmap

import (
	"errors"
	"testing"

	"github.com/danmuck/dmapctl/internal/protocol"
	"github.com/danmuck/dmapctl/internal/protocol/codes"
	"github.com/danmuck/dmapctl/internal/testutil/dmaptest"
	"github.com/danmuck/dmapctl/internal/testutil/testlog"
)

func TestBuildDictionaryAppliesOverrides(t *testing.T) {
	testlog.Start(t)
	dict := fixtureDictionary(t)

	if dict.Len() != len(dmaptest.Codes) {
		t.Fatalf("expected %d codes, got %d", len(dmaptest.Codes), dict.Len())
	}
	want := map[string]codes.Kind{
		"dmap.editcommandssupported":       codes.KindI16,
		"dmap.authenticationschemes":       codes.KindI8,
		"com.apple.itunes.itms-playlistid": codes.KindI64,
		"com.apple.itunes.rental-pb-start": codes.KindString,
		"dmap.itemdateplayed":              codes.KindI32,
		"dmap.status":                      codes.KindI32,
		"dmap.protocolversion":             codes.KindVersion,
	}
	for name, kind := range want {
		code, ok := dict.ByName(name)
		if !ok {
			t.Fatalf("missing %s", name)
		}
		if code.Kind != kind {
			t.Fatalf("%s: expected %s, got %s", name, kind, code.Kind)
		}
	}
	code, ok := dict.ByName("dmap.loginresponse")
	if !ok || code.Tag.String() != "mlog" {
		t.Fatalf("unexpected login code: %+v", code)
	}
}

func TestBuildDictionaryRejectsBadStatus(t *testing.T) {
	_, err := BuildDictionary(dmaptest.ContentCodesWithStatus(500))
	if !errors.Is(err, protocol.ErrBootstrapFailure) {
		t.Fatalf("expected bootstrap failure, got %v", err)
	}
}

func TestBuildDictionaryRequiresOverrideTargets(t *testing.T) {
	_, err := BuildDictionary(dmaptest.ContentCodesWith(200, dmaptest.Codes[:8]))
	if !errors.Is(err, protocol.ErrBootstrapFailure) {
		t.Fatalf("expected bootstrap failure, got %v", err)
	}
}

func TestBuildDictionaryUnknownTypeCode(t *testing.T) {
	list := append([]dmaptest.Code{{Tag: "zzzz", Name: "test.bad", Type: 13}}, dmaptest.Codes...)
	_, err := BuildDictionary(dmaptest.ContentCodesWith(200, list))
	if !errors.Is(err, protocol.ErrUnknownTypeKind) {
		t.Fatalf("expected unknown type kind, got %v", err)
	}
	if !errors.Is(err, protocol.ErrBootstrapFailure) {
		t.Fatalf("expected bootstrap failure too, got %v", err)
	}
}

func TestBuildDictionaryTruncatedInput(t *testing.T) {
	raw := dmaptest.ContentCodes()
	_, err := BuildDictionary(raw[:len(raw)-3])
	if !errors.Is(err, protocol.ErrTruncatedInput) || !errors.Is(err, protocol.ErrBootstrapFailure) {
		t.Fatalf("expected truncated bootstrap failure, got %v", err)
	}
}

func TestBuildDictionaryExtraOverrides(t *testing.T) {
	dict, err := BuildDictionary(dmaptest.ContentCodes(),
		WithExtraOverrides(codes.Override{Name: "daap.songdateadded", Kind: codes.KindI32}))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	code, _ := dict.ByName("daap.songdateadded")
	if code.Kind != codes.KindI32 {
		t.Fatalf("expected extra override applied, got %s", code.Kind)
	}

	_, err = BuildDictionary(dmaptest.ContentCodes(),
		WithExtraOverrides(codes.Override{Name: "daap.nosuch", Kind: codes.KindI32}))
	if !errors.Is(err, protocol.ErrBootstrapFailure) {
		t.Fatalf("expected bootstrap failure, got %v", err)
	}
}

func TestBuildDictionaryRejectsExtraRootRecords(t *testing.T) {
	raw := append(dmaptest.ContentCodes(), record("mstt", []byte{0, 0, 0, 200})...)
	_, err := BuildDictionary(raw)
	if !errors.Is(err, protocol.ErrTrailingData) || !errors.Is(err, protocol.ErrBootstrapFailure) {
		t.Fatalf("expected trailing data bootstrap failure, got %v", err)
	}
}
