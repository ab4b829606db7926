package dmap

import (
	"github.com/rs/zerolog/log"

	"github.com/danmuck/dmapctl/internal/protocol"
	"github.com/danmuck/dmapctl/internal/protocol/codes"
	"github.com/danmuck/dmapctl/internal/protocol/tlv"
)

// contentCodes is the shape of a content-codes response under the
// bootstrap dictionary.
type contentCodes struct {
	Response struct {
		Status  uint32             `dmap:"dmap.status"`
		Entries []contentCodeEntry `dmap:"dmap.dictionary"`
	} `dmap:"dmap.contentcodesresponse"`
}

type contentCodeEntry struct {
	Number tlv.Tag `dmap:"dmap.contentcodesnumber"`
	Name   string  `dmap:"dmap.contentcodesname"`
	Type   uint16  `dmap:"dmap.contentcodestype"`
}

type buildOptions struct {
	extra []codes.Override
}

// BuildOption adjusts BuildDictionary.
type BuildOption func(*buildOptions)

// WithExtraOverrides applies overrides after the built-in table.
func WithExtraOverrides(overrides ...codes.Override) BuildOption {
	return func(o *buildOptions) {
		o.extra = append(o.extra, overrides...)
	}
}

// BuildDictionary decodes a raw content-codes response with the bootstrap
// dictionary and returns the full dictionary it describes, with the
// built-in kind overrides applied. Every failure matches
// protocol.ErrBootstrapFailure as well as its underlying kind.
func BuildDictionary(raw []byte, opts ...BuildOption) (*codes.Dictionary, error) {
	var cfg buildOptions
	for _, opt := range opts {
		opt(&cfg)
	}

	var cc contentCodes
	if err := DecodeInto(raw, codes.Bootstrap(), &cc); err != nil {
		return nil, bootstrapErr(err, "decode content-codes response")
	}
	if err := singleRoot(raw); err != nil {
		return nil, bootstrapErr(err, "content-codes response")
	}
	if cc.Response.Status != codes.StatusOK {
		return nil, protocol.Errorf(protocol.PhaseBootstrap, protocol.ErrBootstrapFailure, nil,
			"content-codes status %d", cc.Response.Status)
	}

	list := make([]codes.ContentCode, 0, len(cc.Response.Entries))
	for _, e := range cc.Response.Entries {
		kind, err := codes.KindFromCode(e.Type)
		if err != nil {
			return nil, bootstrapErr(err, "entry "+e.Name)
		}
		list = append(list, codes.ContentCode{Tag: e.Number, Name: e.Name, Kind: kind})
	}
	parsed, err := codes.NewDictionary(list)
	if err != nil {
		return nil, err
	}

	overrides := append(codes.BuiltinOverrides(), cfg.extra...)
	dict, err := parsed.WithOverrides(overrides)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Int("codes", dict.Len()).
		Int("overrides", len(overrides)).
		Msg("dmap dictionary built")
	return dict, nil
}

// singleRoot rejects a buffer holding anything beside the response record.
func singleRoot(raw []byte) error {
	d := NewDecoder(codes.Bootstrap(), raw)
	n := 0
	for {
		_, ok, err := d.NextKey()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		n++
	}
	if n != 1 {
		return protocol.Errorf(protocol.PhaseBootstrap, protocol.ErrTrailingData, nil,
			"%d root records, want 1", n)
	}
	return nil
}

func bootstrapErr(cause error, detail string) error {
	return &protocol.Error{
		Phase:  protocol.PhaseBootstrap,
		Kind:   protocol.ErrBootstrapFailure,
		Detail: detail,
		Cause:  cause,
	}
}
