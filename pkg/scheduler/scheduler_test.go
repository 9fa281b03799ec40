package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/efls-io/efls-go/pkg/efserr"
)

func testDef() ClusterDef {
	return ClusterDef{Jobs: []JobDef{
		{Name: "worker", Tasks: map[int64]string{0: RoleRequired, 1: RoleRequired}},
	}}
}

func TestHappyDiscovery(t *testing.T) {
	s := NewScheduler(testDef())
	// A registration only lands when it carries the scheduler's current
	// generation version, which GetCluster reports even while not ready.
	_, current, _ := s.GetCluster()
	v0, err := s.RegisterNode("worker", 0, "10.0.0.1:1000", current)
	require.NoError(t, err)

	_, _, err = s.GetCluster()
	require.True(t, efserr.Is(err, efserr.Unavailable))

	v1, err := s.RegisterNode("worker", 1, "10.0.0.2:1000", v0)
	require.NoError(t, err)
	require.Equal(t, v0, v1)

	def, version, err := s.GetCluster()
	require.NoError(t, err)
	require.Equal(t, v0, version)
	require.Len(t, def.Jobs, 1)
	require.Equal(t, "10.0.0.1:1000", def.Jobs[0].Tasks[0])
	require.Equal(t, "10.0.0.2:1000", def.Jobs[0].Tasks[1])
}

func TestUnknownSpecIsInvalidArgument(t *testing.T) {
	s := NewScheduler(testDef())
	_, err := s.RegisterNode("worker", 5, "10.0.0.1:1000", 0)
	require.True(t, efserr.Is(err, efserr.InvalidArgument))
}

func TestRestartBumpsVersionOnlyWhenClusterWasFull(t *testing.T) {
	s := NewScheduler(testDef())
	// A registration only lands when it carries the scheduler's current
	// generation version, which GetCluster reports even while not ready.
	_, current, _ := s.GetCluster()
	v0, err := s.RegisterNode("worker", 0, "10.0.0.1:1000", current)
	require.NoError(t, err)

	// Cluster not yet full: a changed address for task 0 must not bump.
	v1, err := s.RegisterNode("worker", 0, "10.0.0.9:1000", v0)
	require.NoError(t, err)
	require.Equal(t, v0, v1)

	_, err = s.RegisterNode("worker", 1, "10.0.0.2:1000", v0)
	require.NoError(t, err)

	// Now full. A restart at a new address must bump the version and
	// clear every other registered target.
	v2, err := s.RegisterNode("worker", 0, "10.0.0.3:1000", v0)
	require.NoError(t, err)
	require.Equal(t, v0+1, v2)

	_, _, err = s.GetCluster()
	require.True(t, efserr.Is(err, efserr.Unavailable), "worker 1's registration should have been cleared by the bump")

	v3, err := s.RegisterNode("worker", 1, "10.0.0.2:1000", v2)
	require.NoError(t, err)
	require.Equal(t, v2, v3)

	def, version, err := s.GetCluster()
	require.NoError(t, err)
	require.Equal(t, v2, version)
	require.Equal(t, "10.0.0.3:1000", def.Jobs[0].Tasks[0])
}

func TestStaleVersionRegistrationIsIgnoredButReportsCurrentVersion(t *testing.T) {
	s := NewScheduler(testDef())
	// A registration only lands when it carries the scheduler's current
	// generation version, which GetCluster reports even while not ready.
	_, current, _ := s.GetCluster()
	v0, err := s.RegisterNode("worker", 0, "10.0.0.1:1000", current)
	require.NoError(t, err)

	vStale, err := s.RegisterNode("worker", 1, "10.0.0.2:1000", v0-1)
	require.NoError(t, err)
	require.Equal(t, v0, vStale)

	_, _, err = s.GetCluster()
	require.True(t, efserr.Is(err, efserr.Unavailable))
}
