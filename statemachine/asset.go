package statemachine

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Compression suffixes understood by DecodeAsset.
const (
	ExtGzip   = ".gz"
	ExtZstd   = ".zst"
	ExtSnappy = ".sz"
	ExtLZ4    = ".lz4"
	ExtBrotli = ".br"
)

// MaxAssetSize caps the decoded size of a graph asset. Larger assets fail
// with ErrAssetTooLarge instead of being read into memory.
const MaxAssetSize = 8 << 20

// assetExtensions are the plain graph asset extensions.
var assetExtensions = []string{".yaml", ".yml"} //nolint:gochecknoglobals

// compressionExtensions are the suffixes DecodeAsset strips.
var compressionExtensions = []string{ExtGzip, ExtZstd, ExtSnappy, ExtLZ4, ExtBrotli} //nolint:gochecknoglobals

// IsAssetFile reports whether name looks like a graph asset, optionally
// compressed (e.g. "guard.yaml", "guard.yaml.zst").
func IsAssetFile(name string) bool {
	base := strings.ToLower(path.Base(strings.ReplaceAll(name, `\`, "/")))

	for _, ext := range compressionExtensions {
		if strings.HasSuffix(base, ext) {
			base = strings.TrimSuffix(base, ext)

			break
		}
	}

	for _, ext := range assetExtensions {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}

	return false
}

// AssetName strips the asset and compression extensions from a file name,
// e.g. "ai/guard.yaml.gz" becomes "guard".
func AssetName(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	lower := strings.ToLower(base)

	for _, ext := range compressionExtensions {
		if strings.HasSuffix(lower, ext) {
			base = base[:len(base)-len(ext)]
			lower = lower[:len(lower)-len(ext)]

			break
		}
	}

	for _, ext := range assetExtensions {
		if strings.HasSuffix(lower, ext) {
			return base[:len(base)-len(ext)]
		}
	}

	return base
}

// DecodeAsset turns raw asset bytes into UTF-8 YAML. The compression is picked
// from the file name's suffix; the text encoding is taken from a byte order
// mark, or detected when the bytes are not valid UTF-8.
func DecodeAsset(name string, data []byte) ([]byte, error) {
	data, err := decompress(name, data)
	if err != nil {
		return nil, err
	}

	return normalizeText(data)
}

func decompress(name string, data []byte) ([]byte, error) { //nolint:cyclop
	lower := strings.ToLower(name)

	var reader io.Reader

	switch {
	case strings.HasSuffix(lower, ExtGzip):
		gz, gzErr := gzip.NewReader(bytes.NewReader(data))
		if gzErr != nil {
			return nil, fmt.Errorf("failed to open gzip asset %q: %w", name, gzErr)
		}

		defer gz.Close() //nolint:errcheck

		reader = gz
	case strings.HasSuffix(lower, ExtZstd):
		dec, zErr := zstd.NewReader(bytes.NewReader(data))
		if zErr != nil {
			return nil, fmt.Errorf("failed to open zstd asset %q: %w", name, zErr)
		}

		defer dec.Close()

		reader = dec
	case strings.HasSuffix(lower, ExtSnappy):
		size, sErr := s2.DecodedLen(data)
		if sErr != nil {
			return nil, fmt.Errorf("failed to decode snappy asset %q: %w", name, sErr)
		}

		if size > MaxAssetSize {
			return nil, fmt.Errorf("%w: %q decodes to %d bytes", ErrAssetTooLarge, name, size)
		}

		out, sErr := s2.Decode(nil, data)
		if sErr != nil {
			return nil, fmt.Errorf("failed to decode snappy asset %q: %w", name, sErr)
		}

		return out, nil
	case strings.HasSuffix(lower, ExtLZ4):
		reader = lz4.NewReader(bytes.NewReader(data))
	case strings.HasSuffix(lower, ExtBrotli):
		reader = brotli.NewReader(bytes.NewReader(data))
	default:
		return data, nil
	}

	out, err := readAsset(name, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress asset %q: %w", name, err)
	}

	return out, nil
}

// readAsset reads r to the end, failing with ErrAssetTooLarge past
// MaxAssetSize bytes.
func readAsset(name string, r io.Reader) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, MaxAssetSize+1))
	if err != nil {
		return nil, err
	}

	if len(out) > MaxAssetSize {
		return nil, fmt.Errorf("%w: %q exceeds %d bytes", ErrAssetTooLarge, name, MaxAssetSize)
	}

	return out, nil
}

func normalizeText(data []byte) ([]byte, error) {
	// BOMOverride strips a UTF-8 BOM and transcodes UTF-16 with a BOM; without
	// one the bytes pass through unchanged.
	out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedEncoding, err)
	}

	if !utf8.Valid(out) {
		out, err = transcode(out)
		if err != nil {
			return nil, err
		}
	}

	return norm.NFC.Bytes(out), nil
}

func transcode(data []byte) ([]byte, error) {
	best, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedEncoding, err)
	}

	reader, err := charset.NewReaderLabel(best.Charset, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnsupportedEncoding, best.Charset, err)
	}

	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnsupportedEncoding, best.Charset, err)
	}

	return out, nil
}
