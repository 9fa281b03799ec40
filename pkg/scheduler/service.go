package scheduler

import (
	"context"
	"sort"

	"github.com/efls-io/efls-go/pkg/efserr"
	"github.com/efls-io/efls-go/proto/clusterpb"
)

// Service adapts a Scheduler to the ClusterService gRPC contract. Grounded
// on scheduler_service.cc's SchedulerServiceImpl, which does the same
// thin translation from RPC request/response to the Scheduler core.
type Service struct {
	clusterpb.UnimplementedClusterServiceServer
	sched *Scheduler
}

func NewService(sched *Scheduler) *Service {
	return &Service{sched: sched}
}

func (s *Service) RegisterNode(ctx context.Context, req *clusterpb.RegisterNodeRequest) (*clusterpb.RegisterNodeResponse, error) {
	version, err := s.sched.RegisterNode(req.Role, req.Index, req.Address, req.Version)
	if err != nil {
		return nil, efserr.ToStatus(err)
	}
	return &clusterpb.RegisterNodeResponse{Code: 0, Version: version}, nil
}

func (s *Service) GetCluster(ctx context.Context, req *clusterpb.GetClusterRequest) (*clusterpb.GetClusterResponse, error) {
	def, version, err := s.sched.GetCluster()
	if err != nil {
		return nil, efserr.ToStatus(err)
	}

	cluster := make(map[string]*clusterpb.WorkerList, len(def.Jobs))
	for _, job := range def.Jobs {
		ids := make([]int64, 0, len(job.Tasks))
		for id := range job.Tasks {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		// Addresses must line up with task index: task i's address goes
		// at Addresses[i], matching tensorflow.ClusterSpec's job layout.
		addrs := make([]string, 0, len(ids))
		for _, id := range ids {
			addrs = append(addrs, job.Tasks[id])
		}
		cluster[job.Name] = &clusterpb.WorkerList{Addresses: addrs}
	}

	return &clusterpb.GetClusterResponse{
		Code:    0,
		Ready:   true,
		Version: version,
		Cluster: cluster,
	}, nil
}
