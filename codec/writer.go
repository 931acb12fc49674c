package codec

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/quphoton/tagstream/compress"
	"github.com/quphoton/tagstream/endian"
	"github.com/quphoton/tagstream/engine"
	"github.com/quphoton/tagstream/errs"
	"github.com/quphoton/tagstream/format"
	"github.com/quphoton/tagstream/internal/bitpack"
	"github.com/quphoton/tagstream/internal/options"
	"github.com/quphoton/tagstream/internal/pool"
	"github.com/quphoton/tagstream/section"
)

// MaxChannelDelayPs bounds the per-channel delay correction to +-100 ns.
const MaxChannelDelayPs = 100_000

const writerBufferSize = 64 * 1024

// TagWriter streams time tags to a file in one of the four formats. It
// implements engine.Sink, so it attaches directly to the coordinator.
//
// Each event is delay-corrected per channel and appended as it arrives.
// Errors opening the target surface synchronously from NewTagWriter; I/O
// errors after a successful open are swallowed so a failing disk never
// stalls the ingestion path, a documented limitation of the streaming
// design. Close flushes the buffer and the compression container.
type TagWriter struct {
	mu     sync.Mutex
	file   *os.File
	comp   io.WriteCloser
	bw     *bufio.Writer
	buf    *pool.ByteBuffer
	bits   bitpack.Writer
	fmt    format.FileFormat
	engine endian.EndianEngine
	header *section.FileHeader
	delays [engine.NumChannels]int64
	closed bool
}

var _ engine.Sink = (*TagWriter)(nil)

// WriterOption configures a TagWriter during construction.
type WriterOption = options.Option[*TagWriter]

// WithChannelDelays sets the per-channel delay corrections in picoseconds,
// indexed by channel number. Each delay must be within +-100 ns; channels
// beyond the slice keep zero delay.
func WithChannelDelays(delays []int64) WriterOption {
	return options.New(func(w *TagWriter) error {
		if len(delays) > len(w.delays) {
			return errs.ErrInvalidParameter
		}
		for i, d := range delays {
			if d < -MaxChannelDelayPs || d > MaxChannelDelayPs {
				return errs.ErrInvalidParameter
			}
			w.delays[i] = d
		}

		return nil
	})
}

// WithDeviceType records the device family in the file header.
func WithDeviceType(dev format.DevType) WriterOption {
	return options.NoError(func(w *TagWriter) {
		w.header.DevType = dev
	})
}

// WithFeatures records the device feature flags in the file header. The
// flags are passed through opaquely so a replay can recover the HBT or
// Lifetime context of the recording device.
func WithFeatures(features format.FeatureFlags) WriterOption {
	return options.NoError(func(w *TagWriter) {
		w.header.Features = features
	})
}

// NewTagWriter creates the file at path and starts a streaming write in the
// given format. A compression container is layered on top when the path
// carries a known extension. For the binary and compressed formats the file
// header is written immediately.
func NewTagWriter(path string, fileFormat format.FileFormat, opts ...WriterOption) (*TagWriter, error) {
	switch fileFormat {
	case format.FormatASCII, format.FormatBinary, format.FormatCompressed, format.FormatRaw:
	default:
		return nil, errs.ErrUnsupportedFormat
	}

	w := &TagWriter{
		fmt:    fileFormat,
		engine: endian.GetLittleEndianEngine(),
		header: section.NewFileHeader(fileFormat),
	}
	if err := options.Apply(w, opts...); err != nil {
		return nil, err
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create timestamp file: %w", err)
	}

	w.file = file
	w.bw = bufio.NewWriterSize(file, writerBufferSize)
	w.comp, err = compress.ForPath(path).WrapWriter(w.bw)
	if err != nil {
		file.Close()

		return nil, fmt.Errorf("open compression container: %w", err)
	}

	if fileFormat.SelfDescribing() {
		if _, err := w.comp.Write(w.header.Bytes()); err != nil {
			w.comp.Close()
			file.Close()

			return nil, fmt.Errorf("write file header: %w", err)
		}
	}

	w.buf = pool.GetRecordBuffer()

	return w, nil
}

// Format returns the record format being written.
func (w *TagWriter) Format() format.FileFormat { return w.fmt }

// Write encodes one event. The only error reported is an event the format
// cannot represent (compressed records carry stop channels 1..8 only); such
// events are skipped, the stream stays valid.
func (w *TagWriter) Write(tag engine.TimeTag) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	if int(tag.Channel) < len(w.delays) {
		tag.Time += w.delays[tag.Channel]
	}

	switch w.fmt {
	case format.FormatASCII:
		w.buf.B = appendASCIIRecord(w.buf.B[:0], tag)

	case format.FormatBinary, format.FormatRaw:
		w.buf.B = appendBinaryRecord(w.buf.B[:0], w.engine, tag)

	case format.FormatCompressed:
		if !compressedRepresentable(tag) {
			return errs.ErrUnsupportedFormat
		}
		w.bits.Reset()
		appendCompressedRecord(&w.bits, tag)
		w.buf.B = append(w.buf.B[:0], w.bits.Bytes()...)
	}

	// Post-open I/O errors are dropped; bufio latches the first error and
	// Close reports it.
	_, _ = w.comp.Write(w.buf.Bytes())

	return nil
}

// Close flushes all layers and closes the file. It is safe to call twice.
func (w *TagWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	pool.PutRecordBuffer(w.buf)
	w.buf = nil

	err := w.comp.Close()
	if ferr := w.bw.Flush(); err == nil {
		err = ferr
	}
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}

	return err
}
