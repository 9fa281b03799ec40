// Package scheduler implements the cluster discovery scheduler: the single
// process that every worker registers with at startup and polls until the
// full cluster topology is known.
//
// Grounded on _examples/original_source/efls-train/cc/service_discovery/
// scheduler.h and scheduler.cc, ported into a single mutex-guarded struct
// with no background goroutine: readiness is observed by polling
// GetCluster.
package scheduler

import (
	"crypto/rand"
	"encoding/binary"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/efls-io/efls-go/pkg/efserr"
	"github.com/efls-io/efls-go/pkg/log"
	"github.com/efls-io/efls-go/pkg/metrics"
)

// maxNotReadySpecs caps how many missing specs GetCluster names in its
// Unavailable message, matching scheduler.cc's straggler listing.
const maxNotReadySpecs = 3

// randUint64 returns a cryptographically random 64-bit value, used only
// to seed the scheduler's initial generation version.
func randUint64() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// extraordinarily unlikely; fall back to a fixed seed rather than
		// panicking a scheduler over entropy exhaustion
		return 0x5a5a5a5a5a5a5a5a
	}
	return binary.BigEndian.Uint64(buf[:])
}

const (
	RoleRequired = "required"
	RoleScheduler     = "scheduler"
)

// ClusterDef mirrors tensorflow.ClusterDef closely enough for this
// substrate's purposes: a named job holding a task-index -> role map.
// "role" holds either a worker address once registered, or one of the
// reserved markers RoleRequired/RoleScheduler before that.
type ClusterDef struct {
	Jobs []JobDef
}

type JobDef struct {
	Name  string
	Tasks map[int64]string
}

// Scheduler tracks which worker slots are required and what address, if
// any, currently occupies each.
type Scheduler struct {
	logger zerolog.Logger

	mu       sync.Mutex
	workers  map[string]struct{}  // required "/job:x/task:y" specs
	cluster  ClusterDef           // skeleton: job/task shape, no addresses
	version  int64
	target   map[string]string // spec -> address
}

func toSpec(job string, id int64) string {
	return "/job:" + job + "/task:" + itoa(id)
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// random64 mimics tensorflow::random::New64's use for generation seeding:
// a process-unique 64-bit value with its low 32 bits cleared, so the
// scheduler's initial generation rarely collides across restarts.
func random64() int64 {
	return int64(randUint64() & 0xFFFFFFFF00000000)
}

// NewScheduler builds a Scheduler from a ClusterDef. Only tasks whose role
// is RoleRequired or RoleScheduler become slots workers must fill;
// matches Scheduler::Scheduler in scheduler.cc.
func NewScheduler(def ClusterDef) *Scheduler {
	s := &Scheduler{
		logger:  log.WithComponent("scheduler"),
		workers: make(map[string]struct{}),
		target:  make(map[string]string),
	}

	for _, job := range def.Jobs {
		var nd *JobDef
		for id, role := range job.Tasks {
			if role == RoleRequired || role == RoleScheduler {
				spec := toSpec(job.Name, id)
				s.workers[spec] = struct{}{}
				if nd == nil {
					s.cluster.Jobs = append(s.cluster.Jobs, JobDef{Name: job.Name, Tasks: make(map[int64]string)})
					nd = &s.cluster.Jobs[len(s.cluster.Jobs)-1]
				}
				nd.Tasks[id] = role
			}
		}
	}

	s.version = random64()
	return s
}

// RegisterNode records that job/id is reachable at addr, carrying the
// caller's previously-observed generation version.
//
// Semantics, straight from scheduler.cc's RegisterNode:
//   - unknown spec -> InvalidArgument
//   - spec already mapped to a DIFFERENT address, and the caller's
//     version matches the current one -> a worker has restarted at a new
//     address. All targets are cleared, keeping only this one; if the
//     cluster was full, the generation version is also bumped (forcing
//     every peer to re-register).
//   - spec unmapped and caller's version matches -> plain first
//     registration.
//   - caller's version does not match current -> registration is ignored
//     (logged only); the caller will see the authoritative version in the
//     response and re-register.
//
// In all cases the current version is returned so the caller can detect a
// mismatch and restart its own bookkeeping.
func (s *Scheduler) RegisterNode(job string, id int64, addr string, myVersion int64) (version int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec := toSpec(job, id)
	if _, ok := s.workers[spec]; !ok {
		metrics.RegistrationsTotal.WithLabelValues("invalid_spec").Inc()
		return 0, efserr.InvalidArgumentf("server spec is not in scheduler's cluster spec: %s", spec)
	}

	if existing, ok := s.target[spec]; ok && existing != addr && s.version == myVersion {
		s.logger.Info().Str("spec", spec).Str("failed_on", existing).Str("restart_on", addr).Msg("scheduler detected server restart at new address")
		if len(s.target) == len(s.workers) {
			s.version++
			metrics.VersionBumpsTotal.Inc()
			s.logger.Info().Int64("version", s.version).Msg("bumped cluster generation version")
		}
		s.target = map[string]string{spec: addr}
		metrics.RegistrationsTotal.WithLabelValues("restarted").Inc()
	} else if _, ok := s.target[spec]; !ok && s.version == myVersion {
		s.logger.Info().Str("spec", spec).Str("addr", addr).Msg("worker registered")
		s.target[spec] = addr
		metrics.RegistrationsTotal.WithLabelValues("registered").Inc()
	} else if s.version != myVersion {
		s.logger.Info().Str("spec", spec).Str("addr", addr).Msg("server version mismatch, ignoring registration")
		metrics.RegistrationsTotal.WithLabelValues("version_mismatch").Inc()
	}

	if len(s.target) == len(s.workers) {
		metrics.ClusterReady.Set(1)
	} else {
		metrics.ClusterReady.Set(0)
	}
	metrics.WorkersRegistered.WithLabelValues("registered").Set(float64(len(s.target)))
	metrics.WorkersRegistered.WithLabelValues("required").Set(float64(len(s.workers)))

	return s.version, nil
}

// GetCluster returns the fully resolved ClusterDef once every required
// worker has registered, or Unavailable naming the stragglers otherwise —
// matches Scheduler::GetCluster.
func (s *Scheduler) GetCluster() (ClusterDef, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.workers) != len(s.target) {
		var notReady []string
		for spec := range s.workers {
			if _, ok := s.target[spec]; !ok {
				notReady = append(notReady, spec)
			}
		}
		sort.Strings(notReady)

		shown := notReady
		truncated := len(notReady) > maxNotReadySpecs
		if truncated {
			shown = notReady[:maxNotReadySpecs]
		}
		listing := "[" + strings.Join(shown, ", ")
		if truncated {
			listing += ", etc...]"
		} else {
			listing += "]"
		}
		return ClusterDef{}, s.version, efserr.Unavailablef("some server is not ready (%d): %s", len(notReady), listing)
	}

	var result ClusterDef
	for _, job := range s.cluster.Jobs {
		nd := JobDef{Name: job.Name, Tasks: make(map[int64]string)}
		for id := range job.Tasks {
			spec := toSpec(job.Name, id)
			if addr, ok := s.target[spec]; ok {
				nd.Tasks[id] = addr
			}
		}
		result.Jobs = append(result.Jobs, nd)
	}
	return result, s.version, nil
}
