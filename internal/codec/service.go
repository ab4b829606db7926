// Package codec is the process-level DMAP service: it owns the dictionary
// built at startup and instruments every decode and encode call.
package codec

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/dmapctl/internal/observability"
	"github.com/danmuck/dmapctl/internal/protocol"
	"github.com/danmuck/dmapctl/internal/protocol/codes"
	"github.com/danmuck/dmapctl/internal/protocol/dmap"
	"github.com/danmuck/dmapctl/internal/protocol/value"
)

const (
	OpDecode    = "decode"
	OpEncode    = "encode"
	OpRoundTrip = "roundtrip"
	OpBootstrap = "bootstrap"
)

// Service is safe for concurrent use; the dictionary is never mutated.
type Service struct {
	dict   *codes.Dictionary
	source string
	built  time.Time
	logger zerolog.Logger
}

// New wraps an already-built dictionary.
func New(dict *codes.Dictionary, logger zerolog.Logger) *Service {
	observability.SetDictionarySize(dict.Len())
	return &Service{dict: dict, source: "memory", built: time.Now(), logger: logger}
}

// Load reads a raw content-codes response from path and builds the
// dictionary from it.
func Load(path string, overrides []codes.Override, logger zerolog.Logger) (*Service, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content codes (%s): %w", path, err)
	}
	return FromBytes(raw, path, overrides, logger)
}

// FromBytes builds the dictionary from raw; source names it in logs.
func FromBytes(raw []byte, source string, overrides []codes.Override, logger zerolog.Logger) (*Service, error) {
	start := time.Now()
	dict, err := dmap.BuildDictionary(raw, dmap.WithExtraOverrides(overrides...))
	observe(logger, OpBootstrap, len(raw), start, err)
	if err != nil {
		logger.Error().Str("source", source).Err(err).Msg("dictionary bootstrap failed")
		return nil, err
	}
	observability.SetDictionarySize(dict.Len())
	logger.Info().
		Str("source", source).
		Int("codes", dict.Len()).
		Int("extra_overrides", len(overrides)).
		Msg("dictionary loaded")
	return &Service{dict: dict, source: source, built: time.Now(), logger: logger}, nil
}

func (s *Service) Dictionary() *codes.Dictionary {
	return s.dict
}

// Source is where the dictionary was loaded from.
func (s *Service) Source() string {
	return s.source
}

func (s *Service) Built() time.Time {
	return s.built
}

func (s *Service) Decode(buf []byte) ([]value.Item, error) {
	start := time.Now()
	items, err := dmap.Decode(buf, s.dict)
	observe(s.logger, OpDecode, len(buf), start, err)
	return items, err
}

func (s *Service) Encode(items []value.Item) ([]byte, error) {
	start := time.Now()
	out, err := dmap.Encode(items, s.dict)
	observe(s.logger, OpEncode, len(out), start, err)
	return out, err
}

func (s *Service) DecodeInto(buf []byte, target any) error {
	start := time.Now()
	err := dmap.DecodeInto(buf, s.dict, target)
	observe(s.logger, OpDecode, len(buf), start, err)
	return err
}

func (s *Service) EncodeFrom(src any) ([]byte, error) {
	start := time.Now()
	out, err := dmap.EncodeFrom(src, s.dict)
	observe(s.logger, OpEncode, len(out), start, err)
	return out, err
}

// RoundTripReport compares a buffer with the re-encoding of its decoded tree.
type RoundTripReport struct {
	Items       int  `json:"items"`
	InputBytes  int  `json:"input_bytes"`
	OutputBytes int  `json:"output_bytes"`
	Identical   bool `json:"identical"`
	// FirstDiff is the first differing byte offset, -1 when identical.
	FirstDiff int `json:"first_diff"`
}

func (s *Service) RoundTrip(buf []byte) (RoundTripReport, error) {
	start := time.Now()
	report, err := s.roundTrip(buf)
	observe(s.logger, OpRoundTrip, len(buf), start, err)
	return report, err
}

func (s *Service) roundTrip(buf []byte) (RoundTripReport, error) {
	items, err := dmap.Decode(buf, s.dict)
	if err != nil {
		return RoundTripReport{}, err
	}
	out, err := dmap.Encode(items, s.dict)
	if err != nil {
		return RoundTripReport{}, err
	}
	report := RoundTripReport{
		Items:       len(items),
		InputBytes:  len(buf),
		OutputBytes: len(out),
		Identical:   bytes.Equal(buf, out),
		FirstDiff:   -1,
	}
	if !report.Identical {
		report.FirstDiff = firstDiff(buf, out)
	}
	return report, nil
}

func firstDiff(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

func observe(logger zerolog.Logger, op string, n int, start time.Time, err error) {
	elapsed := time.Since(start)
	result := ResultLabel(err)
	observability.RecordCodec(op, result, n, elapsed)
	if err != nil {
		logger.Warn().Str("op", op).Int("bytes", n).Str("result", result).Err(err).Msg("codec call failed")
		return
	}
	logger.Debug().Str("op", op).Int("bytes", n).Dur("duration", elapsed).Msg("codec call")
}

var resultLabels = map[error]string{
	protocol.ErrTruncatedInput:   "truncated_input",
	protocol.ErrUnknownTypeKind:  "unknown_type_kind",
	protocol.ErrInvalidUTF8:      "invalid_utf8",
	protocol.ErrTrailingData:     "trailing_data",
	protocol.ErrUnknownField:     "unknown_field",
	protocol.ErrBootstrapFailure: "bootstrap_failure",
	protocol.ErrWidthMismatch:    "width_mismatch",
	protocol.ErrTypeMismatch:     "type_mismatch",
	protocol.ErrMissingField:     "missing_field",
	protocol.ErrDuplicateField:   "duplicate_field",
	protocol.ErrUnsupportedType:  "unsupported_type",
	protocol.ErrRecordTooLarge:   "record_too_large",
	protocol.ErrUnbalanced:       "unbalanced",
}

// ResultLabel is the metric label for err: "ok", the error kind, or
// "error" for anything outside the codec taxonomy.
func ResultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if label, ok := resultLabels[protocol.KindOf(err)]; ok {
		return label
	}
	return "error"
}
