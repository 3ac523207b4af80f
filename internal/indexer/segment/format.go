// Package segment encodes index snapshots as self-describing binary streams.
//
// Layout, all integers little endian:
//
//	[0:4]   magic "DSIX"
//	[4:6]   format version
//	[6]     compression (0 none, 1 lz4, 2 zstd)
//	[7]     reserved
//	[8:16]  creation time, unix nanoseconds
//	[16:24] uncompressed body length
//	[24:32] stored body length
//	body    newline separated JSON records, compressed as declared
//	footer  crc32 (IEEE) of the uncompressed body, record count (uint32 each)
package segment

import (
	"fmt"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

const (
	MagicBytes    uint32 = 0x58495344 // "DSIX" read little endian
	FormatVersion uint16 = 1
	HeaderSize    int    = 32
	FooterSize    int    = 8
)

// ErrCorrupt is returned for any stream that fails validation.
var ErrCorrupt = apperrors.ErrCorruptSnapshot

type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return CompressionNone, fmt.Errorf("%w: unknown compression %q", apperrors.ErrInvalidInput, s)
	}
}

// Record is one term and its posting list.
type Record struct {
	Term string     `json:"t"`
	IDs  []ident.ID `json:"ids"`
}

// Header describes a decoded stream.
type Header struct {
	Version     uint16
	Compression Compression
	CreatedAt   time.Time
	RawSize     uint64
	StoredSize  uint64
	Records     uint32
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}
