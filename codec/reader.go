package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/quphoton/tagstream/compress"
	"github.com/quphoton/tagstream/endian"
	"github.com/quphoton/tagstream/engine"
	"github.com/quphoton/tagstream/errs"
	"github.com/quphoton/tagstream/format"
	"github.com/quphoton/tagstream/section"
)

const readerBufferSize = 64 * 1024

// TagReader replays a timestamp file record by record.
//
// Binary and compressed files identify themselves through the file header
// and are auto-detected; raw files carry no header, so the caller has to
// name the format explicitly. ASCII files are not replayable.
//
// Compressed timestamps are stored modulo 2^37 ps. The reader unwraps them
// monotonically: whenever a stored timestamp is smaller than its
// predecessor, one wrap period is added. This reconstructs the stream
// exactly as long as no two consecutive events are more than one wrap
// period (about 11 s) apart; larger gaps are collapsed, which cannot be
// detected from the file alone.
type TagReader struct {
	file   *os.File
	comp   io.ReadCloser
	br     *bufio.Reader
	fmt    format.FileFormat
	engine endian.EndianEngine
	header section.FileHeader

	record  []byte
	wrapped int64 // last raw 37-bit timestamp
	wraps   int64
	started bool
}

// OpenTagReader opens a timestamp file for replay. fileFormat is
// format.FormatNone for self-describing files (binary, compressed) and
// format.FormatRaw for headerless ones; any other value is rejected.
func OpenTagReader(path string, fileFormat format.FileFormat) (*TagReader, error) {
	switch fileFormat {
	case format.FormatNone, format.FormatRaw:
	case format.FormatBinary, format.FormatCompressed:
		// Self-describing anyway; the header decides.
		fileFormat = format.FormatNone
	default:
		return nil, errs.ErrUnsupportedFormat
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open timestamp file: %w", err)
	}

	comp, err := compress.ForPath(path).WrapReader(file)
	if err != nil {
		file.Close()

		return nil, fmt.Errorf("open compression container: %w", err)
	}

	r := &TagReader{
		file:   file,
		comp:   comp,
		br:     bufio.NewReaderSize(comp, readerBufferSize),
		fmt:    fileFormat,
		engine: endian.GetLittleEndianEngine(),
	}

	if fileFormat == format.FormatNone {
		if err := r.readHeader(); err != nil {
			r.Close()

			return nil, err
		}
	} else {
		r.header = *section.NewFileHeader(fileFormat)
	}

	r.record = make([]byte, r.recordSize())

	return r, nil
}

func (r *TagReader) readHeader() error {
	head := make([]byte, section.HeaderSize)
	if _, err := io.ReadFull(r.br, head); err != nil {
		return fmt.Errorf("read file header: %w", errs.ErrInvalidHeaderSize)
	}

	header, err := section.ParseFileHeader(head)
	if err != nil {
		return err
	}

	r.header = header
	r.fmt = header.Format
	r.engine = header.Flag.Engine()

	return nil
}

func (r *TagReader) recordSize() int {
	if r.fmt == format.FormatCompressed {
		return section.CompressedRecordSize
	}

	return section.BinaryRecordSize
}

// Header returns the parsed file header. For raw files it holds defaults.
func (r *TagReader) Header() section.FileHeader { return r.header }

// Format returns the record format being read.
func (r *TagReader) Format() format.FileFormat { return r.fmt }

// Next returns the next event. io.EOF signals a clean end of the stream;
// errs.ErrTruncatedRecord a partial trailing record.
func (r *TagReader) Next() (engine.TimeTag, error) {
	n, err := io.ReadFull(r.br, r.record)
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return engine.TimeTag{}, io.EOF
		}

		return engine.TimeTag{}, errs.ErrTruncatedRecord
	}

	if r.fmt != format.FormatCompressed {
		return decodeBinaryRecord(r.record, r.engine)
	}

	wrapped, channel, err := decodeCompressedRecord(r.record)
	if err != nil {
		return engine.TimeTag{}, err
	}
	if r.started && wrapped < r.wrapped {
		r.wraps++
	}
	r.wrapped = wrapped
	r.started = true

	return engine.TimeTag{
		Time:    wrapped + r.wraps*CompressedTimeWrap,
		Channel: channel,
	}, nil
}

// Replay feeds every record into sink in file order. Events the sink
// rejects are skipped; the first rejection is reported after the whole
// file has been read. The record count includes rejected events.
func (r *TagReader) Replay(sink engine.Sink) (int, error) {
	var (
		count    int
		firstErr error
	)

	for {
		tag, err := r.Next()
		if errors.Is(err, io.EOF) {
			return count, firstErr
		}
		if err != nil {
			return count, err
		}

		count++
		if serr := sink.Write(tag); serr != nil && firstErr == nil {
			firstErr = serr
		}
	}
}

// Close closes the compression container and the file.
func (r *TagReader) Close() error {
	err := r.comp.Close()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}

	return err
}
