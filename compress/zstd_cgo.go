//go:build cgo_zstd

package compress

import (
	"io"

	"github.com/valyala/gozstd"
)

func (ZstdCodec) WrapWriter(w io.Writer) (io.WriteCloser, error) {
	return gozstd.NewWriterLevel(w, 3), nil
}

func (ZstdCodec) WrapReader(r io.Reader) (io.ReadCloser, error) {
	return gozstdReadCloser{gozstd.NewReader(r)}, nil
}

// gozstdReadCloser releases the cgo reader state on Close.
type gozstdReadCloser struct {
	*gozstd.Reader
}

func (g gozstdReadCloser) Close() error {
	g.Reader.Release()

	return nil
}
