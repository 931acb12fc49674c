// Package compress provides streaming compression containers for timestamp
// files.
//
// Timestamp files are written record by record while events arrive, so the
// codecs here wrap io.Writer/io.Reader streams instead of compressing whole
// payloads. A container is selected by file name extension: ".zst" (zstd),
// ".lz4" (LZ4) and ".s2" (S2) files are compressed and decompressed
// transparently; any other name passes through unchanged. The ASCII format
// benefits the most — its files are roughly four times the size of the
// binary format.
package compress

import (
	"io"
	"path/filepath"
)

// Codec wraps a byte stream in a compression container.
type Codec interface {
	// Name returns the codec identifier, matching the file extension it
	// serves (without the dot); "none" for the pass-through codec.
	Name() string

	// WrapWriter layers the compressing writer over w. Closing the returned
	// writer flushes the container but does not close w.
	WrapWriter(w io.Writer) (io.WriteCloser, error)

	// WrapReader layers the decompressing reader over r. Closing the
	// returned reader releases codec resources but does not close r.
	WrapReader(r io.Reader) (io.ReadCloser, error)
}

var codecs = map[string]Codec{
	"zst": ZstdCodec{},
	"lz4": LZ4Codec{},
	"s2":  S2Codec{},
}

// ForPath returns the codec implied by the file name extension.
func ForPath(path string) Codec {
	ext := filepath.Ext(path)
	if len(ext) > 1 {
		if c, ok := codecs[ext[1:]]; ok {
			return c
		}
	}

	return NoOpCodec{}
}

// NoOpCodec passes data through without compression.
type NoOpCodec struct{}

var _ Codec = NoOpCodec{}

func (NoOpCodec) Name() string { return "none" }

func (NoOpCodec) WrapWriter(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

func (NoOpCodec) WrapReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
