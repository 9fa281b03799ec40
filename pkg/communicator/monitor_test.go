package communicator

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMonitorFiresOnTimeout(t *testing.T) {
	m := NewMonitor(5*time.Millisecond, 20*time.Millisecond)
	m.Start()
	defer m.Shutdown()

	var fired int32
	m.Register(func() { atomic.StoreInt32(&fired, 1) })

	require.Eventually(t, func() bool { return atomic.LoadInt32(&fired) == 1 }, time.Second, 5*time.Millisecond)
}

func TestUnregisterBeforeTimeoutPreventsFire(t *testing.T) {
	m := NewMonitor(5*time.Millisecond, 50*time.Millisecond)
	m.Start()
	defer m.Shutdown()

	var fired int32
	key := m.Register(func() { atomic.StoreInt32(&fired, 1) })
	require.True(t, m.Unregister(key))

	time.Sleep(80 * time.Millisecond)
	require.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

// TestUnregisterRaceIsExclusive exercises the race between the scanner
// firing a timeout and the normal-completion path calling Unregister: at
// most one side may observe it "won".
func TestUnregisterRaceIsExclusive(t *testing.T) {
	for i := 0; i < 200; i++ {
		m := NewMonitor(time.Millisecond, time.Millisecond)
		m.Start()

		var timeoutFired int32
		key := m.Register(func() { atomic.StoreInt32(&timeoutFired, 1) })

		time.Sleep(time.Millisecond) // let the timeout become eligible

		wonByCaller := m.Unregister(key)
		time.Sleep(3 * time.Millisecond)
		m.Shutdown()

		if wonByCaller {
			require.Equal(t, int32(0), atomic.LoadInt32(&timeoutFired))
		}
	}
}
