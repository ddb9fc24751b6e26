// Package source turns capture files into decoded text for the importer.
// Compressed captures are unpacked transparently and the bytes are decoded
// from the configured character set.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/derktes/ir-signal-workbench/logging"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type Compression int

const (
	CompressNone Compression = iota
	CompressGzip
	CompressZstd
	CompressSnappy
	CompressLZ4
	CompressBrotli
)

func (c Compression) String() string {
	switch c {
	case CompressNone:
		return "none"
	case CompressGzip:
		return "gzip"
	case CompressZstd:
		return "zstd"
	case CompressSnappy:
		return "snappy"
	case CompressLZ4:
		return "lz4"
	case CompressBrotli:
		return "brotli"
	default:
		return fmt.Sprintf("Compression(%d)", int(c))
	}
}

var (
	gzipMagic   = []byte{0x1f, 0x8b}
	zstdMagic   = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic    = []byte{0x04, 0x22, 0x4d, 0x18}
	snappyMagic = []byte("\xff\x06\x00\x00sNaPpY")
)

// Detect picks the compression from the leading bytes. Brotli streams carry
// no magic number and are recognized by the .br extension only.
func Detect(name string, head []byte) Compression {
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return CompressGzip
	case bytes.HasPrefix(head, zstdMagic):
		return CompressZstd
	case bytes.HasPrefix(head, lz4Magic):
		return CompressLZ4
	case bytes.HasPrefix(head, snappyMagic):
		return CompressSnappy
	case strings.EqualFold(filepath.Ext(name), ".br"):
		return CompressBrotli
	default:
		return CompressNone
	}
}

// DefaultMaxDecodedBytes bounds a capture after decompression.
const DefaultMaxDecodedBytes = 64 << 20

var ErrTooLarge = errors.New("decoded capture exceeds size limit")

type Reader struct {
	encodingName string
	enc          encoding.Encoding
	maxDecoded   int64
	logger       *zap.Logger
}

type Option func(*Reader)

// WithMaxDecodedBytes caps the decompressed size of a capture. Values of
// zero or less keep DefaultMaxDecodedBytes.
func WithMaxDecodedBytes(n int64) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxDecoded = n
		}
	}
}

// NewReader resolves the character set by its WHATWG label, e.g. "UTF-8",
// "ISO-8859-1" or "windows-1252".
func NewReader(encodingName string, logger *zap.Logger, options ...Option) (*Reader, error) {
	if encodingName == "" {
		encodingName = "UTF-8"
	}
	enc, err := htmlindex.Get(encodingName)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", encodingName, err)
	}
	r := &Reader{encodingName: encodingName, enc: enc, maxDecoded: DefaultMaxDecodedBytes, logger: logging.OrNop(logger)}
	for _, option := range options {
		option(r)
	}
	return r, nil
}

func (r *Reader) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return r.Decode(path, data)
}

// Decode decompresses data if needed, then decodes it to text. A leading
// byte order mark is removed and overrides the configured encoding.
func (r *Reader) Decode(name string, data []byte) (string, error) {
	compression := Detect(name, data)
	raw, err := decompress(data, compression, r.maxDecoded)
	if err != nil {
		return "", fmt.Errorf("%s: %s: %w", name, compression, err)
	}
	decoder := unicode.BOMOverride(r.enc.NewDecoder())
	text, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), decoder))
	if err != nil {
		return "", fmt.Errorf("%s: decoding %s: %w", name, r.encodingName, err)
	}
	r.logger.Debug("Read capture source",
		zap.String("name", name),
		zap.Stringer("compression", compression),
		zap.String("encoding", r.encodingName),
		zap.Int("bytes", len(data)),
		zap.Int("decodedBytes", len(raw)))
	return string(text), nil
}

func decompress(data []byte, compression Compression, limit int64) ([]byte, error) {
	var rd io.Reader
	switch compression {
	case CompressGzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		rd = zr
	case CompressZstd:
		zr, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		rd = zr
	case CompressSnappy:
		rd = snappy.NewReader(bytes.NewReader(data))
	case CompressLZ4:
		rd = lz4.NewReader(bytes.NewReader(data))
	case CompressBrotli:
		rd = brotli.NewReader(bytes.NewReader(data))
	default:
		if int64(len(data)) > limit {
			return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), limit)
		}
		return data, nil
	}
	// one byte past the limit tells a full read from an oversized one
	out, err := io.ReadAll(io.LimitReader(rd, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > limit {
		return nil, fmt.Errorf("%w: limit %d", ErrTooLarge, limit)
	}
	return out, nil
}
