//go:build !cgo_zstd

package compress

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

func (ZstdCodec) WrapWriter(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
}

func (ZstdCodec) WrapReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}

	return zstdReadCloser{zr}, nil
}

// zstdReadCloser adapts zstd.Decoder's parameterless Close to io.ReadCloser.
type zstdReadCloser struct {
	*zstd.Decoder
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()

	return nil
}
