// Command efls-scheduler runs the cluster discovery scheduler: the single
// process every worker registers with at startup and polls until the full
// cluster topology (every required job/task slot filled with an address)
// is known.
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"gopkg.in/yaml.v3"

	"github.com/efls-io/efls-go/pkg/kv"
	"github.com/efls-io/efls-go/pkg/log"
	"github.com/efls-io/efls-go/pkg/metrics"
	"github.com/efls-io/efls-go/pkg/scheduler"
	"github.com/efls-io/efls-go/pkg/security"
	"github.com/efls-io/efls-go/proto/clusterpb"
)

// healthScanInterval is how often the scheduler's health component is
// refreshed from the scheduler's own cluster-readiness state.
const healthScanInterval = 5 * time.Second

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "efls-scheduler",
	Short:   "efls-scheduler runs cluster discovery for a federated training job",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("efls-scheduler version %s\ncommit: %s\n", Version, Commit))
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().Bool("log-json", false, "output logs in JSON")
	cobra.OnInitialize(initLogging)
	rootCmd.AddCommand(runCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}

// clusterFile is the on-disk shape of the --config YAML: a flat list of
// jobs, each with a task count. Tasks start out unfilled (loadClusterDef
// marks them RoleRequired); workers fill them in via RegisterNode.
type clusterFile struct {
	Jobs []struct {
		Name  string `yaml:"name"`
		Tasks int64  `yaml:"tasks"`
	} `yaml:"jobs"`
}

func loadClusterDef(path string) (scheduler.ClusterDef, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return scheduler.ClusterDef{}, fmt.Errorf("read cluster config %s: %w", path, err)
	}
	var cf clusterFile
	if err := yaml.Unmarshal(raw, &cf); err != nil {
		return scheduler.ClusterDef{}, fmt.Errorf("parse cluster config %s: %w", path, err)
	}

	def := scheduler.ClusterDef{Jobs: make([]scheduler.JobDef, 0, len(cf.Jobs))}
	for _, j := range cf.Jobs {
		tasks := make(map[int64]string, j.Tasks)
		for i := int64(0); i < j.Tasks; i++ {
			tasks[i] = scheduler.RoleRequired
		}
		def.Jobs = append(def.Jobs, scheduler.JobDef{Name: j.Name, Tasks: tasks})
	}
	return def, nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the scheduler's ClusterService gRPC endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		bindAddr, _ := cmd.Flags().GetString("bind-addr")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		kvAddress, _ := cmd.Flags().GetString("kv-address")
		advertiseAddr, _ := cmd.Flags().GetString("advertise-addr")
		kvCacheDB, _ := cmd.Flags().GetString("kv-cache-db")

		def, err := loadClusterDef(configPath)
		if err != nil {
			return err
		}

		if kvCacheDB != "" {
			cache, err := kv.OpenBoltCache(kvCacheDB)
			if err != nil {
				return fmt.Errorf("open kv snapshot cache: %w", err)
			}
			defer cache.Close()
		}

		sched := scheduler.NewScheduler(def)
		svc := scheduler.NewService(sched)

		tlsConfig, err := security.LoadFromEnv()
		if err != nil {
			return fmt.Errorf("load TLS config: %w", err)
		}

		var opts []grpc.ServerOption
		if tlsConfig != nil {
			opts = append(opts, grpc.Creds(credentials.NewTLS(tlsConfig)))
		}
		grpcServer := grpc.NewServer(opts...)
		clusterpb.RegisterClusterServiceServer(grpcServer, svc)

		lis, err := net.Listen("tcp", bindAddr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", bindAddr, err)
		}

		metrics.SetVersion(Version)
		metrics.SetCriticalComponents("scheduler")
		metrics.RegisterComponent("scheduler", false, "cluster not ready")

		go func() {
			ticker := time.NewTicker(healthScanInterval)
			defer ticker.Stop()
			for range ticker.C {
				if _, _, err := sched.GetCluster(); err != nil {
					metrics.UpdateComponent("scheduler", false, err.Error())
				} else {
					metrics.UpdateComponent("scheduler", true, "cluster ready")
				}
			}
		}()

		if metricsAddr != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				mux.Handle("/healthz", metrics.HealthHandler())
				mux.Handle("/readyz", metrics.ReadyHandler())
				mux.Handle("/livez", metrics.LivenessHandler())
				log.Logger.Info().Str("addr", metricsAddr).Msg("serving metrics and health endpoints")
				if err := http.ListenAndServe(metricsAddr, mux); err != nil {
					log.Logger.Error().Err(err).Msg("metrics server stopped")
				}
			}()
		}

		if kvAddress != "" {
			published := advertiseAddr
			if published == "" {
				published = bindAddr
			}
			if err := kv.Default().Put(kvAddress, published); err != nil {
				return fmt.Errorf("publish scheduler address to %s: %w", kvAddress, err)
			}
			log.Logger.Info().Str("kv_address", kvAddress).Str("published", published).Msg("republished scheduler address")
		}

		log.Logger.Info().Str("addr", bindAddr).Int("jobs", len(def.Jobs)).Msg("scheduler listening")
		return grpcServer.Serve(lis)
	},
}

func init() {
	runCmd.Flags().String("config", "cluster.yaml", "path to the cluster topology YAML file")
	runCmd.Flags().String("bind-addr", ":7000", "address the ClusterService gRPC endpoint listens on")
	runCmd.Flags().String("metrics-addr", "", "address to serve Prometheus metrics on (disabled if empty)")
	runCmd.Flags().String("kv-address", "", "RemoteKV address to republish this scheduler's own address under (disabled if empty)")
	runCmd.Flags().String("advertise-addr", "", "address to publish to --kv-address, if different from --bind-addr")
	runCmd.Flags().String("kv-cache-db", "", "bbolt file backing the cache:// RemoteKV snapshot backend (disabled if empty)")
}
