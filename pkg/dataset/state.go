package dataset

import (
	"encoding/json"
	"fmt"

	"github.com/efls-io/efls-go/pkg/log"
)

// oversizeStateBytes mirrors the 256MB warning iterator_ops.cc logs after
// every (De)SerializeIteratorToString / SetSampleIndexFromIterString call.
const oversizeStateBytes = 256 * 1024 * 1024

// Serialize encodes s into the opaque string form passed across RPCs and
// checkpoints, in place of a live *Iterator.
func (s State) Serialize() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("serialize iterator state: %w", err)
	}
	if len(data) > oversizeStateBytes {
		log.Logger.Warn().Int("bytes", len(data)).Msg("iterator state is larger than 256MB, consider reducing the number of IO threads")
	}
	return string(data), nil
}

// DeserializeState is the inverse of Serialize.
//
// The original's equivalent (IteratorStateVariant::Decode) has to locate
// fields by a substring match across an arbitrary bag of named scalar
// tensors, because a TensorFlow iterator's checkpoint is a flat list of
// (name, tensor) pairs assembled from whichever ops happened to register
// state under that name (see iterator_ops.cc's
// VariantTensorDataHandler::ReadScalarWithPatternInternal). State here is
// a fixed Go struct serialized as JSON, so field lookup is direct; the
// substring-pattern machinery has no equivalent to port.
func DeserializeState(blob string) (State, error) {
	var s State
	if err := json.Unmarshal([]byte(blob), &s); err != nil {
		return State{}, fmt.Errorf("deserialize iterator state: %w", err)
	}
	return s, nil
}

// GetSampleIndexFromIterString reads current_sample_index out of a
// serialized iterator state blob without reconstructing the iterator
// itself, grounded on GetSampleIndexFromIterStringOp.
func GetSampleIndexFromIterString(blob string) (int64, error) {
	s, err := DeserializeState(blob)
	if err != nil {
		return 0, err
	}
	return s.CurrentSampleIndex, nil
}

// GetBlockIdFromIterString reads current_block_name out of a serialized
// iterator state blob, grounded on GetBlockIdFromIterStringOp.
func GetBlockIdFromIterString(blob string) (string, error) {
	s, err := DeserializeState(blob)
	if err != nil {
		return "", err
	}
	return s.CurrentBlockName, nil
}

// SetSampleIndexFromIterString rewrites current_sample_index inside a
// serialized iterator state blob and returns the re-serialized result,
// grounded on SetSampleIndexFromIterStringOp.
func SetSampleIndexFromIterString(blob string, sampleIndex int64) (string, error) {
	s, err := DeserializeState(blob)
	if err != nil {
		return "", err
	}
	s.CurrentSampleIndex = sampleIndex
	return s.Serialize()
}
