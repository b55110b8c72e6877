package pointio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/starprobe/internal/conv"
)

// Compression selects how axis blocks are stored.
type Compression uint8

const (
	// CompressionNone stores axis blocks raw.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD (better ratio).
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
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "none", "":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedCompression, s)
	}
}

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecodeAllCapLimit(true))
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Block layout: [UncompressedSize uint32][CompressedSize uint32][Data...]
// CompressedSize == 0 means Data is stored raw.
const blockHeaderSize = 8

// readChunkSize caps how far a read buffer grows ahead of the bytes actually
// received, so a forged size cannot force a large allocation up front.
const readChunkSize = 1 << 20

// Upper bounds on decompressed/compressed size. An LZ4 length byte adds at
// most 255 output bytes; a ZSTD block of at least 4 bytes yields at most 128 KiB.
const (
	maxLZ4Ratio  = 255
	maxZSTDRatio = 32 << 10
)

// writeBlock writes data as one block. Data that does not shrink below 90%
// of its size is stored raw.
func writeBlock(w io.Writer, data []byte, c Compression) error {
	rawSize, err := conv.Narrow[uint32](len(data))
	if err != nil {
		return fmt.Errorf("block size: %w", err)
	}

	var compressed []byte
	switch c {
	case CompressionNone:
	case CompressionLZ4:
		compressed, err = compressLZ4(data)
	case CompressionZSTD:
		compressed = compressZSTD(data)
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedCompression, uint8(c))
	}
	if err != nil {
		return err
	}

	payload := data
	var compressedSize uint32
	if len(compressed) > 0 && float64(len(compressed)) <= float64(len(data))*0.9 {
		payload = compressed
		compressedSize = uint32(len(compressed))
	}

	var hdr [blockHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], rawSize)
	binary.LittleEndian.PutUint32(hdr[4:], compressedSize)
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

func compressLZ4(data []byte) ([]byte, error) {
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))

	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // Incompressible
	}
	return compressed[:n], nil
}

func compressZSTD(data []byte) []byte {
	enc := getZstdEncoder()
	defer putZstdEncoder(enc)

	return enc.EncodeAll(data, nil)
}

// readBlock reads one block and returns its raw bytes. wantSize is the
// uncompressed size implied by the file header.
func readBlock(r io.Reader, c Compression, wantSize int) ([]byte, error) {
	var hdr [blockHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("read block header: %w", err)
	}

	uncompressedSize := binary.LittleEndian.Uint32(hdr[0:])
	compressedSize := binary.LittleEndian.Uint32(hdr[4:])

	size, err := conv.Narrow[int](uncompressedSize)
	if err != nil {
		return nil, err
	}
	if size != wantSize {
		return nil, fmt.Errorf("block size %d, want %d", size, wantSize)
	}

	if compressedSize == 0 {
		data, err := readN(r, size)
		if err != nil {
			return nil, fmt.Errorf("read block: %w", err)
		}
		return data, nil
	}

	compressedData, err := readN(r, int(compressedSize))
	if err != nil {
		return nil, fmt.Errorf("read block: %w", err)
	}

	ratio := int64(maxLZ4Ratio)
	if c == CompressionZSTD {
		ratio = maxZSTDRatio
	}
	if int64(size) > ratio*(int64(compressedSize)+1) {
		return nil, fmt.Errorf("block size %d implausible for %d compressed bytes", size, compressedSize)
	}

	switch c {
	case CompressionLZ4:
		result := make([]byte, size)
		n, err := lz4.UncompressBlock(compressedData, result)
		if err != nil {
			return nil, err
		}
		if n != size {
			return nil, errors.New("decompressed size mismatch")
		}
		return result, nil

	case CompressionZSTD:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		// The decoder is cap limited, so frame headers cannot grow the output
		// past size.
		decoded, err := dec.DecodeAll(compressedData, make([]byte, 0, size))
		if err != nil {
			return nil, err
		}
		if len(decoded) != size {
			return nil, errors.New("decompressed size mismatch")
		}
		return decoded, nil

	default:
		return nil, fmt.Errorf("%w: compressed block in %v file", ErrUnsupportedCompression, c)
	}
}

// readN reads exactly n bytes from r in chunks of at most readChunkSize.
func readN(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, 0, min(n, readChunkSize))
	for len(buf) < n {
		chunk := min(n-len(buf), readChunkSize)
		buf = slices.Grow(buf, chunk)
		m, err := io.ReadFull(r, buf[len(buf):len(buf)+chunk])
		buf = buf[:len(buf)+m]
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}
	return buf, nil
}
