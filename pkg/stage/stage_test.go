package stage_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/efls-io/efls-go/pkg/efserr"
	"github.com/efls-io/efls-go/pkg/stage"
	"github.com/efls-io/efls-go/pkg/stage/memstore"
)

func newCoordinators(n int64) []*stage.Coordinator {
	store := memstore.New()
	coords := make([]*stage.Coordinator, n)
	for i := int64(0); i < n; i++ {
		coords[i] = stage.New(store, n, i)
	}
	return coords
}

func TestStageUpdateClosesBarrierWhenAllArrive(t *testing.T) {
	coords := newCoordinators(3)

	require.NoError(t, coords[1].StageUpdate(0, "epoch-1", "r1"))
	status, _, order, err := coords[1].StageStatus(0, "epoch-1", 1.0)
	require.NoError(t, err)
	require.Equal(t, stage.StatusUpdated, status)
	require.Equal(t, int64(1), order[0])

	require.NoError(t, coords[0].StageUpdate(0, "epoch-1", "r0"))
	require.NoError(t, coords[2].StageUpdate(0, "epoch-1", "r2"))

	for _, c := range coords {
		status, result, _, err := c.StageStatus(0, "epoch-1", 1.0)
		require.NoError(t, err)
		require.Equal(t, stage.StatusFinished, status)
		require.Equal(t, []string{"r0", "r1", "r2"}, result)
	}
}

func TestStageUpdateRejectsDoubleUpdate(t *testing.T) {
	coords := newCoordinators(2)
	require.NoError(t, coords[0].StageUpdate(0, "epoch-1", "r0"))
	err := coords[0].StageUpdate(0, "epoch-1", "r0-again")
	require.Error(t, err)
}

func TestStageNameMismatchIsInvalidArgument(t *testing.T) {
	coords := newCoordinators(2)
	require.NoError(t, coords[0].StageUpdate(0, "epoch-1", "r0"))
	_, _, _, err := coords[1].StageStatus(0, "wrong-name", 1.0)
	require.Error(t, err)
	require.True(t, efserr.Is(err, efserr.InvalidArgument))
}

func TestNextStageRequiresPreviousFinished(t *testing.T) {
	coords := newCoordinators(2)
	require.NoError(t, coords[0].StageUpdate(0, "epoch-1", "r0"))
	// epoch-1 not finished yet (only one of two workers arrived).
	err := coords[0].StageUpdate(1, "epoch-2", "r0")
	require.Error(t, err)
}

// TestFinishRatioReleasesStragglers covers the early-close path: once the
// chief (worker 0) has arrived and enough workers have checked in to meet
// the ratio, the stage closes for everyone without waiting on the rest.
func TestFinishRatioReleasesStragglers(t *testing.T) {
	coords := newCoordinators(4)

	require.NoError(t, coords[0].StageUpdate(0, "epoch-1", "r0"))
	require.NoError(t, coords[1].StageUpdate(0, "epoch-1", "r1"))
	require.NoError(t, coords[2].StageUpdate(0, "epoch-1", "r2"))

	// worker 3 never arrives; a 0.5 finish ratio with 3/4 arrived closes it.
	status, _, _, err := coords[3].StageStatus(0, "epoch-1", 0.5)
	require.NoError(t, err)
	require.Equal(t, stage.StatusFinished, status)
}

func TestReadyReflectsStoreReachability(t *testing.T) {
	coords := newCoordinators(1)

	ready, err := coords[0].Ready()
	require.NoError(t, err)
	require.True(t, ready)
}
