// Package stage implements the per-job stage barrier: a table of named
// stages, each row holding one result/order/status slot per worker, used
// to synchronize workers between phases of a federated training job.
//
// Grounded on _examples/original_source/efls-train/cc/efl/stage/stage.cc
// (the StageUpdate/StageStatus ops and their shared GetStage helper). The
// four tensors the original locks together (name/result/order/status,
// each its own resource Var with its own mutex) become a single RowStore
// port, so the coordinator can run against either an in-process slice
// store or a persisted one without its own logic changing.
package stage

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/efls-io/efls-go/pkg/efserr"
	"github.com/efls-io/efls-go/pkg/log"
	"github.com/efls-io/efls-go/pkg/metrics"
)

// Status values for a single worker's slot within a stage row.
const (
	StatusPending  int64 = 0
	StatusUpdated  int64 = 1
	StatusFinished int64 = 2
)

// Row is one stage's state across all workers: Result/Order/Status are
// each worker_num long, matching the original's per-worker tensor rows.
type Row struct {
	Name   string
	Result []string
	Order  []int64
	Status []int64
}

// RowStore is the port a Coordinator depends on. Implementations own
// persistence of the stage table; memstore and boltstore are the two
// adapters shipped here.
type RowStore interface {
	// Len returns the number of stage rows committed so far.
	Len() (int, error)
	// Get returns the row at idx. ok is false if idx is out of range.
	Get(idx int) (row *Row, ok bool, err error)
	// Append adds a new row, which must land at index Len().
	Append(row *Row) error
	// Put overwrites the row at idx, which must already exist.
	Put(idx int, row *Row) error
}

// Coordinator is the per-worker handle onto the shared stage table.
type Coordinator struct {
	logger    zerolog.Logger
	mu        sync.Mutex
	store     RowStore
	workerNum int64
	workerID  int64
	opened    map[int]time.Time
}

func New(store RowStore, workerNum, workerID int64) *Coordinator {
	return &Coordinator{
		logger:    log.WithComponent("stage"),
		store:     store,
		workerNum: workerNum,
		workerID:  workerID,
		opened:    make(map[int]time.Time),
	}
}

// getOrCreateRow replicates GetStage from stage.cc: if stageIdx names the
// next row, it is appended (only legal once the previous row has fully
// finished); otherwise the existing row at stageIdx must carry stageName.
func (c *Coordinator) getOrCreateRow(stageIdx int64, stageName string) (*Row, error) {
	n, err := c.store.Len()
	if err != nil {
		return nil, efserr.Internalf("read stage table length: %v", err)
	}

	if stageIdx > int64(n) {
		return nil, efserr.InvalidArgumentf("stage idx is too big")
	}

	if stageIdx == int64(n) {
		if n != 0 {
			prev, ok, err := c.store.Get(n - 1)
			if err != nil {
				return nil, efserr.Internalf("read previous stage row: %v", err)
			}
			if !ok || prev.Status[0] != StatusFinished {
				return nil, efserr.InvalidArgumentf("stage is mismatched")
			}
		}
		row := &Row{
			Name:   stageName,
			Result: make([]string, c.workerNum),
			Order:  make([]int64, c.workerNum),
			Status: make([]int64, c.workerNum),
		}
		for i := range row.Order {
			row.Order[i] = -1
		}
		if err := c.store.Append(row); err != nil {
			return nil, efserr.Internalf("append stage row: %v", err)
		}
		c.opened[int(stageIdx)] = time.Now()
	}

	row, ok, err := c.store.Get(int(stageIdx))
	if err != nil {
		return nil, efserr.Internalf("read stage row: %v", err)
	}
	if !ok {
		return nil, efserr.InvalidArgumentf("stage idx is too big")
	}
	if row.Name != stageName {
		return nil, efserr.InvalidArgumentf("stage name mismatched")
	}
	if int64(len(row.Status)) != c.workerNum {
		return nil, efserr.InvalidArgumentf("worker num is mismatched")
	}
	if c.workerID >= c.workerNum {
		return nil, efserr.InvalidArgumentf("worker index overflow")
	}
	return row, nil
}

// StageUpdate records this worker's result for stageIdx/stageName and
// joins the arrival order. The stage closes (every worker's status flips
// to Finished) the instant the last order slot fills.
func (c *Coordinator) StageUpdate(stageIdx int64, stageName, stageResult string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	row, err := c.getOrCreateRow(stageIdx, stageName)
	if err != nil {
		metrics.StageUpdatesTotal.WithLabelValues("rejected").Inc()
		return err
	}
	if row.Status[c.workerID] == StatusUpdated {
		metrics.StageUpdatesTotal.WithLabelValues("rejected").Inc()
		return efserr.FailedPreconditionf("stage is already updated")
	}

	order := -1
	for i, o := range row.Order {
		if o == -1 {
			order = i
			break
		}
	}
	if order == -1 {
		metrics.StageUpdatesTotal.WithLabelValues("rejected").Inc()
		return efserr.FailedPreconditionf("stage order is full")
	}

	row.Order[order] = c.workerID
	row.Result[c.workerID] = stageResult

	finished := row.Status[c.workerID] == StatusFinished
	if !finished {
		row.Status[c.workerID] = StatusUpdated
		if order == int(c.workerNum)-1 {
			for i := range row.Status {
				row.Status[i] = StatusFinished
			}
			if start, ok := c.opened[int(stageIdx)]; ok {
				metrics.StageBarrierDuration.WithLabelValues(stageName).Observe(time.Since(start).Seconds())
				delete(c.opened, int(stageIdx))
			}
		}
	}

	if err := c.store.Put(int(stageIdx), row); err != nil {
		metrics.StageUpdatesTotal.WithLabelValues("rejected").Inc()
		return efserr.Internalf("persist stage row: %v", err)
	}
	metrics.StageUpdatesTotal.WithLabelValues("ok").Inc()
	return nil
}

// StageStatus returns this worker's status plus the full per-worker
// result/order vectors for stageIdx/stageName. If finishRatio < 1 and the
// chief (worker 0) has already arrived, the stage is force-closed once
// enough workers have arrived to meet the ratio, releasing stragglers.
func (c *Coordinator) StageStatus(stageIdx int64, stageName string, finishRatio float32) (status int64, result []string, order []int64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	row, err := c.getOrCreateRow(stageIdx, stageName)
	if err != nil {
		return 0, nil, nil, err
	}

	if finishRatio < 1 && row.Status[c.workerID] != StatusFinished && chiefArrived(row.Order) {
		c.rewriteByFinishRatio(stageName, finishRatio, row)
		if err := c.store.Put(int(stageIdx), row); err != nil {
			return 0, nil, nil, efserr.Internalf("persist stage row: %v", err)
		}
	}

	resultCopy := append([]string(nil), row.Result...)
	orderCopy := append([]int64(nil), row.Order...)
	return row.Status[c.workerID], resultCopy, orderCopy, nil
}

// Ready reports whether the underlying row store is currently reachable,
// used to back a liveness/health check.
func (c *Coordinator) Ready() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.store.Len(); err != nil {
		return false, efserr.Internalf("stage store unreachable: %v", err)
	}
	return true, nil
}

func chiefArrived(order []int64) bool {
	for _, o := range order {
		if o == 0 {
			return true
		}
	}
	return false
}

func (c *Coordinator) rewriteByFinishRatio(stageName string, finishRatio float32, row *Row) {
	finishNum := 0
	for finishNum < len(row.Order) && row.Order[finishNum] != -1 {
		finishNum++
	}
	if float32(finishNum)/float32(c.workerNum) >= finishRatio {
		c.logger.Info().Str("stage", stageName).Float32("finish_ratio", finishRatio).
			Int("arrived", finishNum).Msg("stage exceeded finish ratio, closing early")
		for i := range row.Status {
			row.Status[i] = StatusFinished
		}
	}
}
