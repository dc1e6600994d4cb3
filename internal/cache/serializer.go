package cache

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

const (
	// compressThreshold is the payload size a value must exceed before
	// compression is attempted. At or below it the zstd overhead
	// outweighs any benefit.
	compressThreshold = 10 * 1024

	// compressRatio is the maximum compressed/uncompressed ratio at which
	// the compressed form is kept. Anything denser is stored as-is.
	compressRatio = 0.9
)

// Serializer converts values to byte payloads and back, compressing large
// payloads when the compressed form is materially smaller.
type Serializer struct {
	enabled bool
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewSerializer creates a serializer. When enabled is true, payloads above
// the compression threshold are zstd-compressed at the given level.
func NewSerializer(enabled bool, level int) (*Serializer, error) {
	s := &Serializer{enabled: enabled}

	if enabled {
		var err error
		s.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}

		s.decoder, err = zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
	}

	return s, nil
}

// Encode serializes a value and reports whether the result is compressed.
func (s *Serializer) Encode(value any) ([]byte, bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, false, fmt.Errorf("failed to serialize value: %w", err)
	}

	if !s.enabled || len(data) <= compressThreshold {
		return data, false, nil
	}

	compressed := s.encoder.EncodeAll(data, nil)
	if float64(len(compressed)) < float64(len(data))*compressRatio {
		return compressed, true, nil
	}

	// Compression did not pay off, keep the plain form.
	return data, false, nil
}

// Decode deserializes a payload produced by Encode.
//
// Values round-trip through JSON: numbers come back as float64 and maps as
// map[string]any, which callers of an untyped cache must expect.
func (s *Serializer) Decode(data []byte, compressed bool) (any, error) {
	if compressed {
		if s.decoder == nil {
			return nil, fmt.Errorf("%w: compressed payload but compression disabled", ErrCorrupted)
		}

		plain, err := s.decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
		}
		data = plain
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	return value, nil
}
