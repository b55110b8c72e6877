package pointio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/hupe1980/starprobe/internal/conv"
	"github.com/hupe1980/starprobe/internal/fs"
	"github.com/hupe1980/starprobe/model"
)

var (
	// ErrBadMagic is returned when the input is not a point catalog.
	ErrBadMagic = errors.New("pointio: bad magic")

	// ErrUnsupportedVersion is returned for catalogs written by a newer format.
	ErrUnsupportedVersion = errors.New("pointio: unsupported version")

	// ErrUnsupportedCompression is returned for unknown compression ids.
	ErrUnsupportedCompression = errors.New("pointio: unsupported compression")

	// ErrChecksumMismatch is returned when the axis data fails its CRC.
	ErrChecksumMismatch = errors.New("pointio: checksum mismatch")
)

const (
	magic   = "STPC"
	version = uint16(1)

	// headerSize: magic(4) + version(2) + compression(1) + reserved(1) + count(8).
	headerSize = 16

	// maxPoints bounds allocations driven by an untrusted header.
	// Each axis block must fit a uint32 size.
	maxPoints = math.MaxUint32 / 4
)

// Header is the fixed-size prefix of a point catalog.
type Header struct {
	Version     uint16
	Compression Compression
	Count       uint64
}

// Write encodes ps as a point catalog.
func Write(w io.Writer, ps model.PointSet, c Compression) error {
	n := ps.Len()
	if n > maxPoints {
		return fmt.Errorf("pointio: %d points exceed the format limit", n)
	}
	if c > CompressionZSTD {
		return fmt.Errorf("%w: %d", ErrUnsupportedCompression, uint8(c))
	}

	bw := bufio.NewWriter(w)

	var hdr [headerSize]byte
	copy(hdr[0:4], magic)
	binary.LittleEndian.PutUint16(hdr[4:], version)
	hdr[6] = byte(c)
	binary.LittleEndian.PutUint64(hdr[8:], uint64(n))
	if _, err := bw.Write(hdr[:]); err != nil {
		return err
	}

	crc := crc32.NewIEEE()
	raw := make([]byte, 4*n)
	for axis := range 3 {
		for i, v := range ps.Axis(axis) {
			binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
		}
		_, _ = crc.Write(raw)
		if err := writeBlock(bw, raw, c); err != nil {
			return fmt.Errorf("write %c axis: %w", "xyz"[axis], err)
		}
	}

	var sum [4]byte
	binary.LittleEndian.PutUint32(sum[:], crc.Sum32())
	if _, err := bw.Write(sum[:]); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadHeader decodes and validates the catalog header.
func ReadHeader(r io.Reader) (Header, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Header{}, fmt.Errorf("%w: short header", ErrBadMagic)
		}
		return Header{}, err
	}
	if string(hdr[0:4]) != magic {
		return Header{}, fmt.Errorf("%w: %q", ErrBadMagic, hdr[0:4])
	}

	h := Header{
		Version:     binary.LittleEndian.Uint16(hdr[4:]),
		Compression: Compression(hdr[6]),
		Count:       binary.LittleEndian.Uint64(hdr[8:]),
	}
	if h.Version != version {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.Compression > CompressionZSTD {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedCompression, uint8(h.Compression))
	}
	if h.Count > maxPoints {
		return Header{}, fmt.Errorf("pointio: header count %d exceeds the format limit", h.Count)
	}
	return h, nil
}

// Read decodes a point catalog written by Write.
func Read(r io.Reader) (model.PointSet, error) {
	br := bufio.NewReader(r)

	h, err := ReadHeader(br)
	if err != nil {
		return model.PointSet{}, err
	}
	n, err := conv.Narrow[int](h.Count)
	if err != nil {
		return model.PointSet{}, err
	}

	crc := crc32.NewIEEE()
	var axes [3][]float32
	for axis := range axes {
		raw, err := readBlock(br, h.Compression, 4*n)
		if err != nil {
			return model.PointSet{}, fmt.Errorf("read %c axis: %w", "xyz"[axis], err)
		}
		_, _ = crc.Write(raw)

		vals := make([]float32, n)
		for i := range vals {
			vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
		}
		axes[axis] = vals
	}

	var sum [4]byte
	if _, err := io.ReadFull(br, sum[:]); err != nil {
		return model.PointSet{}, fmt.Errorf("read checksum: %w", err)
	}
	if got, want := crc.Sum32(), binary.LittleEndian.Uint32(sum[:]); got != want {
		return model.PointSet{}, fmt.Errorf("%w: got %08x, want %08x", ErrChecksumMismatch, got, want)
	}

	return model.NewPointSet(axes[0], axes[1], axes[2])
}

// Sniff reports whether data starts with the catalog magic.
func Sniff(data []byte) bool {
	return bytes.HasPrefix(data, []byte(magic))
}

// ReadFile loads a catalog, falling back to CSV when the file does not start
// with the catalog magic.
func ReadFile(path string) (model.PointSet, error) {
	return readFile(fs.Default, path)
}

func readFile(fsys fs.FileSystem, path string) (model.PointSet, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return model.PointSet{}, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	prefix, _ := br.Peek(len(magic))
	if Sniff(prefix) {
		return Read(br)
	}
	return ReadCSV(br)
}

// WriteFile writes ps to path, as CSV for ".csv" files and as a catalog
// otherwise. The file is replaced atomically.
func WriteFile(path string, ps model.PointSet, c Compression) error {
	return writeFile(fs.Default, path, ps, c)
}

func writeFile(fsys fs.FileSystem, path string, ps model.PointSet, c Compression) error {
	csv := strings.EqualFold(filepath.Ext(path), ".csv")
	return fs.WriteAtomic(fsys, path, func(w io.Writer) error {
		if csv {
			return WriteCSV(w, ps)
		}
		return Write(w, ps, c)
	})
}
