package dataset_test

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/efls-io/efls-go/pkg/dataset"
	"github.com/efls-io/efls-go/pkg/efserr"
)

func buildBlock(t *testing.T, records ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := dataset.NewRecordWriter(&buf)
	for _, r := range records {
		require.NoError(t, w.WriteRecord([]byte(r)))
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func openerFor(blocks map[string][]byte) dataset.Opener {
	return func(name string) (io.ReadCloser, error) {
		data, ok := blocks[name]
		if !ok {
			return nil, fmt.Errorf("no such file %s", name)
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}

func TestIteratorReadsAcrossFiles(t *testing.T) {
	blocks := map[string][]byte{
		"f1": buildBlock(t, "a", "b"),
		"f2": buildBlock(t, "c"),
	}
	sources := []dataset.Source{
		{Filename: "f1", Block: "block-1"},
		{Filename: "f2", Block: "block-2"},
	}
	it := dataset.NewIterator(sources, 0, openerFor(blocks))

	for _, want := range []string{"a", "b", "c"} {
		rec, eof, err := it.Next()
		require.NoError(t, err)
		require.False(t, eof)
		require.Equal(t, want, string(rec))
	}

	rec, eof, err := it.Next()
	require.NoError(t, err)
	require.True(t, eof)
	require.Nil(t, rec)
}

func TestIteratorResumesAtSavedOffset(t *testing.T) {
	blocks := map[string][]byte{
		"f1": buildBlock(t, "a", "b", "c"),
	}
	sources := []dataset.Source{{Filename: "f1", Block: "block-1"}}

	it := dataset.NewIterator(sources, 0, openerFor(blocks))
	rec, _, err := it.Next()
	require.NoError(t, err)
	require.Equal(t, "a", string(rec))

	state := it.Save()
	require.Equal(t, int64(1), state.CurrentSampleIndex)
	require.Equal(t, "block-1", state.CurrentBlockName)

	resumed := dataset.NewIterator(sources, 0, openerFor(blocks))
	require.NoError(t, resumed.Restore(state))

	rec, _, err = resumed.Next()
	require.NoError(t, err)
	require.Equal(t, "b", string(rec))

	rec, _, err = resumed.Next()
	require.NoError(t, err)
	require.Equal(t, "c", string(rec))
}

func TestIteratorInitialSampleIndexSeeksForward(t *testing.T) {
	blocks := map[string][]byte{
		"f1": buildBlock(t, "a", "b", "c"),
	}
	sources := []dataset.Source{{Filename: "f1", Block: "block-1"}}

	it := dataset.NewIterator(sources, 2, openerFor(blocks))
	rec, eof, err := it.Next()
	require.NoError(t, err)
	require.False(t, eof)
	require.Equal(t, "c", string(rec))
}

func TestIteratorSeekPastEndIsOutOfRange(t *testing.T) {
	blocks := map[string][]byte{
		"f1": buildBlock(t, "a"),
	}
	sources := []dataset.Source{{Filename: "f1", Block: "block-1"}}

	it := dataset.NewIterator(sources, 5, openerFor(blocks))
	_, _, err := it.Next()
	require.Error(t, err)
	require.True(t, efserr.Is(err, efserr.OutOfRange))
}

func TestSerializeDeserializeStateRoundTrip(t *testing.T) {
	s := dataset.State{
		CurrentFileIndex:   2,
		CurrentSampleIndex: 17,
		FirstRead:          false,
		CurrentBlockName:   "block-9",
	}
	blob, err := s.Serialize()
	require.NoError(t, err)

	got, err := dataset.DeserializeState(blob)
	require.NoError(t, err)
	require.Equal(t, s, got)
}

func TestSupplementalStateAccessors(t *testing.T) {
	s := dataset.State{CurrentSampleIndex: 3, CurrentBlockName: "block-a"}
	blob, err := s.Serialize()
	require.NoError(t, err)

	idx, err := dataset.GetSampleIndexFromIterString(blob)
	require.NoError(t, err)
	require.Equal(t, int64(3), idx)

	blockID, err := dataset.GetBlockIdFromIterString(blob)
	require.NoError(t, err)
	require.Equal(t, "block-a", blockID)

	updated, err := dataset.SetSampleIndexFromIterString(blob, 9)
	require.NoError(t, err)
	idx, err = dataset.GetSampleIndexFromIterString(updated)
	require.NoError(t, err)
	require.Equal(t, int64(9), idx)
}
