package dataset

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/efls-io/efls-go/pkg/log"
)

// oversizeRecordBytes is the threshold past which a single record is
// logged, not rejected.
const oversizeRecordBytes = 256 * 1024 * 1024

// RecordReader reads length-prefixed records out of a gzip-compressed
// stream. The framing - a uvarint length prefix followed by the payload -
// follows the convention shown by efls-data/cc/log.cc for the project's
// on-disk block format, with gzip layered underneath for compression.
type RecordReader struct {
	gz *gzip.Reader
	br *bufio.Reader
}

// NewRecordReader wraps r, decompressing it as it reads.
func NewRecordReader(r io.Reader) (*RecordReader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open gzip block: %w", err)
	}
	return &RecordReader{gz: gz, br: bufio.NewReader(gz)}, nil
}

// ReadRecord returns the next record's payload. It returns io.EOF once the
// stream is exhausted between records.
func (r *RecordReader) ReadRecord() ([]byte, error) {
	n, err := binary.ReadUvarint(r.br)
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read record length: %w", err)
	}
	if n > oversizeRecordBytes {
		log.Logger.Warn().Uint64("bytes", n).Msg("record is larger than 256MB, consider reducing the number of IO threads")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.br, buf); err != nil {
		return nil, fmt.Errorf("read record payload: %w", err)
	}
	return buf, nil
}

// Close releases the underlying gzip reader.
func (r *RecordReader) Close() error {
	return r.gz.Close()
}

// RecordWriter writes length-prefixed records into a gzip-compressed
// stream, the mirror image of RecordReader.
type RecordWriter struct {
	gz *gzip.Writer
}

func NewRecordWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{gz: gzip.NewWriter(w)}
}

func (w *RecordWriter) WriteRecord(payload []byte) error {
	if len(payload) > oversizeRecordBytes {
		log.Logger.Warn().Int("bytes", len(payload)).Msg("record is larger than 256MB, consider reducing the number of IO threads")
	}
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(payload)))
	if _, err := w.gz.Write(lenBuf[:n]); err != nil {
		return fmt.Errorf("write record length: %w", err)
	}
	if _, err := w.gz.Write(payload); err != nil {
		return fmt.Errorf("write record payload: %w", err)
	}
	return nil
}

func (w *RecordWriter) Close() error {
	return w.gz.Close()
}
