// Package compress turns encoded tree streams into compact text tokens.
package compress

import (
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"simfs/internal/logging"
)

var (
	logger = logging.GetLogger().WithPrefix("compress")
)

// Codec names as stored in snapshot files.
const (
	NameZstd = "zstd"
	NameNone = "none"
)

// Codec is a named, reversible bytes-to-token transform.
type Codec interface {
	Name() string
	Compress(b []byte) (string, error)
	Decompress(token string) ([]byte, error)
}

// ForName returns the codec registered under name. An empty name selects
// zstd.
func ForName(name string) (Codec, error) {
	switch name {
	case NameZstd, "":
		return &Zstd{}, nil
	case NameNone:
		return Identity{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// Zstd compresses with zstandard and renders the frame as standard base64.
// The zero value is ready to use and safe for concurrent use.
type Zstd struct {
	// Level selects the encoder speed/ratio trade-off. Zero means
	// zstd.SpeedDefault.
	Level zstd.EncoderLevel

	once    sync.Once
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	initErr error
}

// NewZstd returns a compressor using level.
func NewZstd(level zstd.EncoderLevel) *Zstd {
	return &Zstd{Level: level}
}

// Name returns NameZstd.
func (z *Zstd) Name() string { return NameZstd }

func (z *Zstd) init() error {
	z.once.Do(func() {
		level := z.Level
		if level == 0 {
			level = zstd.SpeedDefault
		}
		z.enc, z.initErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
		if z.initErr != nil {
			return
		}
		z.dec, z.initErr = zstd.NewReader(nil)
	})
	return z.initErr
}

// Compress returns the token for b.
func (z *Zstd) Compress(b []byte) (string, error) {
	if err := z.init(); err != nil {
		return "", fmt.Errorf("zstd init: %w", err)
	}
	frame := z.enc.EncodeAll(b, make([]byte, 0, len(b)))
	token := base64.StdEncoding.EncodeToString(frame)
	logger.Debug("Compressed %d bytes into a %d character token", len(b), len(token))
	return token, nil
}

// Decompress reverses Compress.
func (z *Zstd) Decompress(token string) ([]byte, error) {
	if err := z.init(); err != nil {
		return nil, fmt.Errorf("zstd init: %w", err)
	}
	frame, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	b, err := z.dec.DecodeAll(frame, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	logger.Debug("Decompressed %d character token into %d bytes", len(token), len(b))
	return b, nil
}

// Identity passes bytes through unchanged as base64 text. It is used when
// compression is disabled in the configuration.
type Identity struct{}

// Name returns NameNone.
func (Identity) Name() string { return NameNone }

// Compress returns b as base64.
func (Identity) Compress(b []byte) (string, error) {
	return base64.StdEncoding.EncodeToString(b), nil
}

// Decompress decodes the base64 token.
func (Identity) Decompress(token string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return b, nil
}
