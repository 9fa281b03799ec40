package dataset

import (
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/efls-io/efls-go/pkg/efserr"
	"github.com/efls-io/efls-go/pkg/log"
	"github.com/efls-io/efls-go/pkg/metrics"
)

// Source names one file block the iterator reads in sequence, paired with
// its block id — the id a saved iterator state records, which
// GetBlockIdFromIterString reads back out.
type Source struct {
	Filename string
	Block    string
}

// Opener opens a source's underlying file for reading.
type Opener func(filename string) (io.ReadCloser, error)

// Iterator is a resumable reader over an ordered list of record-framed
// file blocks. Grounded on
// _examples/original_source/efls-train/cc/efl/data/federal_dataset_ops.cc's
// Dataset::Iterator: GetNextInternal's file-advance loop, and the four
// pieces of state (current_file_index_, current_sample_index_,
// first_read_, current_block_name_) that SaveInternal/RestoreInternal
// persist verbatim.
type Iterator struct {
	logger zerolog.Logger

	mu          sync.Mutex
	sources     []Source
	sampleIndex int64
	open        Opener

	currentFileIndex   int64
	currentSampleIndex int64
	firstRead          bool
	currentBlockName   string

	file   io.ReadCloser
	reader *RecordReader
}

// NewIterator builds an iterator over sources, starting at sampleIndex
// samples into the first file it opens (the resume point a freshly
// restored worker seeks forward to on its very first read).
func NewIterator(sources []Source, sampleIndex int64, open Opener) *Iterator {
	return &Iterator{
		logger:      log.WithComponent("dataset"),
		sources:     sources,
		sampleIndex: sampleIndex,
		open:        open,
		firstRead:   true,
	}
}

// Next returns the next record. endOfSequence is true once every source
// has been exhausted, at which point record and err are both nil.
func (it *Iterator) Next() (record []byte, endOfSequence bool, err error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	for {
		if it.reader != nil {
			rec, rerr := it.reader.ReadRecord()
			if rerr == nil {
				it.currentSampleIndex++
				metrics.RecordsRead.Inc()
				return rec, false, nil
			}
			if rerr != io.EOF {
				return nil, false, efserr.DataLossf("read record from block %s: %v", it.currentBlockName, rerr)
			}

			// End of the current file; maybe move on to the next one.
			it.resetStreamsLocked()
			it.currentFileIndex++
			it.currentSampleIndex = 0
		}

		if int(it.currentFileIndex) == len(it.sources) {
			it.logger.Debug().Int64("files_read", it.currentFileIndex).Msg("iterator exhausted all sources")
			return nil, true, nil
		}

		if err := it.setupStreamsLocked(); err != nil {
			return nil, false, err
		}
		if it.firstRead {
			it.currentSampleIndex = it.sampleIndex
			if err := it.seekSampleIndexLocked(it.currentSampleIndex); err != nil {
				return nil, false, err
			}
			it.firstRead = false
		}
	}
}

func (it *Iterator) setupStreamsLocked() error {
	if int(it.currentFileIndex) >= len(it.sources) {
		return efserr.InvalidArgumentf("current file index %d >= %d sources", it.currentFileIndex, len(it.sources))
	}
	src := it.sources[it.currentFileIndex]
	it.currentBlockName = src.Block
	it.logger.Debug().Str("block", src.Block).Str("file", src.Filename).Msg("opening source")

	f, err := it.open(src.Filename)
	if err != nil {
		return efserr.Internalf("open source %s: %v", src.Filename, err)
	}
	rr, err := NewRecordReader(f)
	if err != nil {
		f.Close()
		return efserr.Internalf("open record block %s: %v", src.Filename, err)
	}
	it.file = f
	it.reader = rr
	return nil
}

func (it *Iterator) resetStreamsLocked() {
	if it.reader != nil {
		it.reader.Close()
		it.reader = nil
	}
	if it.file != nil {
		it.file.Close()
		it.file = nil
	}
}

func (it *Iterator) seekSampleIndexLocked(n int64) error {
	for n != 0 {
		if it.reader == nil {
			return efserr.OutOfRangef("seek sample index: not enough samples in file")
		}
		if _, err := it.reader.ReadRecord(); err != nil {
			if err == io.EOF {
				return efserr.OutOfRangef("seek sample index: not enough samples in file")
			}
			return efserr.DataLossf("seek sample index: %v", err)
		}
		n--
	}
	return nil
}

// State is the checkpointable snapshot of an Iterator's position.
type State struct {
	CurrentFileIndex   int64  `json:"current_file_index"`
	CurrentSampleIndex int64  `json:"current_sample_index"`
	FirstRead          bool   `json:"first_read"`
	CurrentBlockName   string `json:"current_block_name"`
}

// Save snapshots the iterator's current position.
func (it *Iterator) Save() State {
	it.mu.Lock()
	defer it.mu.Unlock()
	return State{
		CurrentFileIndex:   it.currentFileIndex,
		CurrentSampleIndex: it.currentSampleIndex,
		FirstRead:          it.firstRead,
		CurrentBlockName:   it.currentBlockName,
	}
}

// Restore repositions the iterator at s, reopening and seeking into the
// file it names. Restoring onto an already-exhausted position (every
// source consumed) is a no-op beyond resetting the in-memory counters.
func (it *Iterator) Restore(s State) error {
	it.mu.Lock()
	defer it.mu.Unlock()

	it.resetStreamsLocked()
	it.currentFileIndex = s.CurrentFileIndex
	it.currentSampleIndex = s.CurrentSampleIndex
	it.firstRead = s.FirstRead
	it.currentBlockName = s.CurrentBlockName

	if int(it.currentFileIndex) >= len(it.sources) {
		return nil
	}
	if err := it.setupStreamsLocked(); err != nil {
		return err
	}
	return it.seekSampleIndexLocked(it.currentSampleIndex)
}
