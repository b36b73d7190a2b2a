package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec selects the compression applied to an artifact payload.
type Codec uint8

const (
	// CodecNone stores the JSON payload as is.
	CodecNone Codec = 0
	// CodecLZ4 compresses with the LZ4 frame format (fast).
	CodecLZ4 Codec = 1
	// CodecZSTD compresses with zstd (better ratio).
	CodecZSTD Codec = 2
)

// magic prefixes every encoded artifact, followed by one codec byte.
var magic = []byte("EMA1")

// ErrCorrupt is returned for payloads that were not produced by Encode.
var ErrCorrupt = errors.New("artifact: corrupt payload")

// ParseCodec maps a config value to a Codec. The empty string selects zstd.
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zstd":
		return CodecZSTD, nil
	case "lz4":
		return CodecLZ4, nil
	case "none":
		return CodecNone, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", s)
	}
}

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

// zstdCodecs lazily creates a shared encoder and decoder. EncodeAll and
// DecodeAll are safe for concurrent use.
func zstdCodecs() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEncoder, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if zstdErr != nil {
			return
		}
		zstdDecoder, zstdErr = zstd.NewReader(nil)
	})
	return zstdEncoder, zstdDecoder, zstdErr
}

// Encode marshals v to JSON and compresses it with c.
func Encode(v any, c Codec) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(magic)+1+len(payload))
	out = append(out, magic...)
	out = append(out, byte(c))

	switch c {
	case CodecNone:
		return append(out, payload...), nil
	case CodecZSTD:
		enc, _, err := zstdCodecs()
		if err != nil {
			return nil, err
		}
		return enc.EncodeAll(payload, out), nil
	case CodecLZ4:
		buf := bytes.NewBuffer(out)
		w := lz4.NewWriter(buf)
		if _, err := w.Write(payload); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown codec %d", uint8(c))
	}
}

// Decode reverses Encode into v.
func Decode(data []byte, v any) error {
	if len(data) < len(magic)+1 || !bytes.Equal(data[:len(magic)], magic) {
		return ErrCorrupt
	}
	c := Codec(data[len(magic)])
	body := data[len(magic)+1:]

	var payload []byte
	switch c {
	case CodecNone:
		payload = body
	case CodecZSTD:
		_, dec, err := zstdCodecs()
		if err != nil {
			return err
		}
		payload, err = dec.DecodeAll(body, nil)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	case CodecLZ4:
		var err error
		payload, err = io.ReadAll(lz4.NewReader(bytes.NewReader(body)))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	default:
		return fmt.Errorf("%w: unknown codec %d", ErrCorrupt, uint8(c))
	}
	return json.Unmarshal(payload, v)
}
