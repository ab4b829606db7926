package codes

import (
	"github.com/danmuck/dmapctl/internal/protocol"
	"github.com/danmuck/dmapctl/internal/protocol/tlv"
)

// ContentCode binds a tag to a field name and kind.
type ContentCode struct {
	Tag  tlv.Tag `json:"tag"`
	Name string  `json:"name"`
	Kind Kind    `json:"kind"`
}

// Dictionary is an immutable, ordered content-code table indexed by tag and
// by name. It is safe for concurrent use.
type Dictionary struct {
	codes  []ContentCode
	byTag  map[tlv.Tag]int
	byName map[string]int
}

// NewDictionary validates and indexes codes. Tags and names must be unique
// and every kind must be valid.
func NewDictionary(codes []ContentCode) (*Dictionary, error) {
	d := &Dictionary{
		codes:  make([]ContentCode, len(codes)),
		byTag:  make(map[tlv.Tag]int, len(codes)),
		byName: make(map[string]int, len(codes)),
	}
	copy(d.codes, codes)
	for i, c := range d.codes {
		if !c.Kind.Valid() {
			return nil, protocol.Errorf(protocol.PhaseBootstrap, protocol.ErrUnknownTypeKind, nil,
				"content code %s (%s) has kind %d", c.Tag, c.Name, uint16(c.Kind))
		}
		if j, ok := d.byTag[c.Tag]; ok {
			return nil, protocol.Errorf(protocol.PhaseBootstrap, protocol.ErrBootstrapFailure, nil,
				"duplicate tag %s for %q and %q", c.Tag, d.codes[j].Name, c.Name)
		}
		if j, ok := d.byName[c.Name]; ok {
			return nil, protocol.Errorf(protocol.PhaseBootstrap, protocol.ErrBootstrapFailure, nil,
				"duplicate name %q for tags %s and %s", c.Name, d.codes[j].Tag, c.Tag)
		}
		d.byTag[c.Tag] = i
		d.byName[c.Name] = i
	}
	return d, nil
}

// Lookup resolves a tag on the decode path.
func (d *Dictionary) Lookup(tag tlv.Tag) (ContentCode, bool) {
	i, ok := d.byTag[tag]
	if !ok {
		return ContentCode{}, false
	}
	return d.codes[i], true
}

// ByName resolves a field name on the encode path.
func (d *Dictionary) ByName(name string) (ContentCode, bool) {
	i, ok := d.byName[name]
	if !ok {
		return ContentCode{}, false
	}
	return d.codes[i], true
}

func (d *Dictionary) Len() int {
	return len(d.codes)
}

// Codes returns a copy of the table in wire order.
func (d *Dictionary) Codes() []ContentCode {
	out := make([]ContentCode, len(d.codes))
	copy(out, d.codes)
	return out
}

// Override replaces the declared kind of a named entry.
type Override struct {
	Name string
	Kind Kind
}

// WithOverrides returns a new dictionary with each override applied. Every
// override target must exist; d itself is never modified.
func (d *Dictionary) WithOverrides(overrides []Override) (*Dictionary, error) {
	patched := d.Codes()
	for _, o := range overrides {
		i, ok := d.byName[o.Name]
		if !ok {
			return nil, protocol.Errorf(protocol.PhaseBootstrap, protocol.ErrBootstrapFailure, nil,
				"override target %q missing from dictionary", o.Name)
		}
		patched[i].Kind = o.Kind
	}
	return NewDictionary(patched)
}
