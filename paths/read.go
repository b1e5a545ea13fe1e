package paths

import (
	"bytes"
	"io"
	"strings"

	"github.com/golang/glog"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// MaxWorldFileSize bounds how much ReadWorldFile will read or inflate. The
// largest worlds the game generates are well below this.
const MaxWorldFileSize = 1 << 30

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	gzipMagic = []byte{0x1f, 0x8b}
)

// Compression identifies how a world file is stored.
type Compression int

const (
	Uncompressed Compression = 0
	Zstd         Compression = 1
	Gzip         Compression = 2
)

func (c Compression) String() string {
	switch c {
	case Uncompressed:
		return "none"
	case Zstd:
		return "zstd"
	case Gzip:
		return "gzip"
	default:
		return "unknown"
	}
}

// DetectCompression looks at the name and the first bytes of a file. Magic
// bytes win over the name; a raw world file never starts with either magic
// since that would be an absurd format version.
func DetectCompression(name string, head []byte) Compression {
	switch {
	case bytes.HasPrefix(head, zstdMagic):
		return Zstd
	case bytes.HasPrefix(head, gzipMagic):
		return Gzip
	case strings.HasSuffix(name, ".zst"):
		return Zstd
	case strings.HasSuffix(name, ".gz"):
		return Gzip
	}
	return Uncompressed
}

// ReadWorldFile opens fileName as Open does and returns its whole contents,
// decompressed if it was stored with zstd or gzip.
func ReadWorldFile(fileName string) ([]byte, error) {
	rc, err := Open(fileName)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	raw, err := io.ReadAll(io.LimitReader(rc, MaxWorldFileSize+1))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", fileName)
	}
	if len(raw) > MaxWorldFileSize {
		return nil, errors.Errorf("reading %q: file exceeds %d bytes", fileName, MaxWorldFileSize)
	}
	return Decompress(fileName, raw)
}

// Decompress returns raw inflated according to DetectCompression, or raw
// itself when it is not compressed.
func Decompress(name string, raw []byte) ([]byte, error) {
	c := DetectCompression(name, raw)
	glog.V(2).Infof("paths.Decompress(%q): %d bytes, compression %s", name, len(raw), c)

	switch c {
	case Zstd:
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxWorldFileSize))
		if err != nil {
			return nil, errors.Wrap(err, "creating zstd decoder")
		}
		defer dec.Close()
		out, err := dec.DecodeAll(raw, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "decompressing %q", name)
		}
		return out, nil
	case Gzip:
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, errors.Wrapf(err, "decompressing %q", name)
		}
		defer zr.Close()
		out, err := io.ReadAll(io.LimitReader(zr, MaxWorldFileSize+1))
		if err != nil {
			return nil, errors.Wrapf(err, "decompressing %q", name)
		}
		if len(out) > MaxWorldFileSize {
			return nil, errors.Errorf("decompressing %q: output exceeds %d bytes", name, MaxWorldFileSize)
		}
		return out, nil
	}
	return raw, nil
}
