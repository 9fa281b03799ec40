package dataset_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efls-io/efls-go/pkg/dataset"
	"github.com/efls-io/efls-go/pkg/efserr"
)

func TestWorkQueuePutTakeOrder(t *testing.T) {
	q := dataset.NewWorkQueue("q", false)
	q.Put([]string{"a", "b", "c"})

	for _, want := range []string{"a", "b", "c"} {
		got, err := q.Take(context.Background())
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestWorkQueueTakeBlocksUntilPut(t *testing.T) {
	q := dataset.NewWorkQueue("q", false)
	result := make(chan string, 1)

	go func() {
		v, err := q.Take(context.Background())
		assert.NoError(t, err)
		result <- v
	}()

	time.Sleep(20 * time.Millisecond)
	q.Put([]string{"x"})

	select {
	case v := <-result:
		require.Equal(t, "x", v)
	case <-time.After(time.Second):
		t.Fatal("Take did not unblock after Put")
	}
}

func TestWorkQueueTakeOnClosedEmptyReturnsOutOfRange(t *testing.T) {
	q := dataset.NewWorkQueue("q", false)
	q.Close()

	_, err := q.Take(context.Background())
	require.Error(t, err)
	require.True(t, efserr.Is(err, efserr.OutOfRange))
}

func TestWorkQueueTakeRespectsContextCancellation(t *testing.T) {
	q := dataset.NewWorkQueue("q", false)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Take(ctx)
	require.Error(t, err)
}

func TestWorkQueueRestoreSaveRoundTrip(t *testing.T) {
	q := dataset.NewWorkQueue("q", true)
	q.Restore([]string{"a", "b"})

	require.Equal(t, []string{"a", "b"}, q.Save())
	require.Equal(t, 3, q.GetSize()) // includes the end-file sentinel
}

func TestWorkQueueCloseIsIdempotent(t *testing.T) {
	q := dataset.NewWorkQueue("q", true)
	q.Close()
	q.Close()
	require.Equal(t, 1, q.GetSize())
}

func TestWorkQueuePutAfterCloseIsIgnored(t *testing.T) {
	q := dataset.NewWorkQueue("q", false)
	q.Close()
	q.Put([]string{"late"})
	require.Equal(t, 0, q.GetSize())
}

func TestWorkQueueScheduleReusesPool(t *testing.T) {
	q := dataset.NewWorkQueue("q", false)
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		q.Schedule(2, wg.Done)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduled tasks did not run")
	}
}
