package node

import (
	"fmt"
	"regexp"
	"strings"
)

// Compression names the compression, if any, applied to a layer's bytes.
type Compression string

const (
	CompressionNone  Compression = "none"
	CompressionGzip  Compression = "gzip"
	CompressionZstd  Compression = "zstd"
	CompressionBzip2 Compression = "bzip2"
	CompressionLz4   Compression = "lz4"
	CompressionXz    Compression = "xz"
)

var compressionSuffix = map[Compression]string{
	CompressionGzip:  ".gz",
	CompressionZstd:  ".zst",
	CompressionBzip2: ".bz2",
	CompressionLz4:   ".lz4",
	CompressionXz:    ".xz",
}

var compressionDetect = regexp.MustCompile(`[.+](gz|gzip|gzip2|zst|zstd|bz2|bzip2|bzip|lz4|lzma|xz)$`)

// DetectCompression inspects a filename/suffix for a known compression
// extension, returning CompressionNone with the original string unchanged
// if none match.
func DetectCompression(name string) (Compression, string) {
	loc := compressionDetect.FindStringSubmatchIndex(name)
	if loc == nil {
		return CompressionNone, name
	}
	ext := name[loc[2]:loc[3]]
	switch ext {
	case "gz", "gzip", "gzip2":
		return CompressionGzip, name[:loc[0]]
	case "zst", "zstd":
		return CompressionZstd, name[:loc[0]]
	case "bz2", "bzip2", "bzip":
		return CompressionBzip2, name[:loc[0]]
	case "lz4", "lzma":
		return CompressionLz4, name[:loc[0]]
	case "xz":
		return CompressionXz, name[:loc[0]]
	}
	return CompressionNone, name
}

// Kind names the structural shape of a media type, independent of
// compression.
type Kind string

const (
	KindManifest Kind = "manifest"
	KindFile     Kind = "file"
	KindTar      Kind = "tar"
	KindOci      Kind = "oci"
	KindImage    Kind = "image"
	KindZip      Kind = "zip"
)

// MediaType describes the structural shape of a stored layer plus, where
// applicable, its compression. Custom media types carry an arbitrary kind
// name not covered by the closed set above.
type MediaType struct {
	Kind        Kind
	Custom      string
	Compression Compression
}

const mediaTypePrefix = "vnd.edo.artifact.v1."

// String renders the media type in the wire format
// "vnd.edo.artifact.v1.<kind><.ext>".
func (m MediaType) String() string {
	kind := string(m.Kind)
	if m.Kind == "" && m.Custom != "" {
		kind = m.Custom
	}
	ext := compressionSuffix[m.Compression]
	return mediaTypePrefix + kind + ext
}

// ParseMediaType parses the wire format produced by String.
func ParseMediaType(s string) (MediaType, error) {
	rest := strings.TrimPrefix(s, mediaTypePrefix)
	if rest == s {
		return MediaType{}, fmt.Errorf("node: media type %q missing %q prefix", s, mediaTypePrefix)
	}
	comp, base := DetectCompression(rest)
	mt := MediaType{Compression: comp}
	switch Kind(base) {
	case KindManifest, KindFile, KindTar, KindOci, KindImage, KindZip:
		mt.Kind = Kind(base)
	default:
		mt.Custom = base
	}
	return mt, nil
}
