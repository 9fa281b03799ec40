// Command efls-worker bootstraps one worker's coordination substrate: it
// registers with the scheduler, waits for the full cluster topology to
// resolve, opens its Communicator link to its paired peer, and builds a
// stage coordinator for a training harness (out of scope here) to drive.
// It does not create a dataset work queue.
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/efls-io/efls-go/pkg/communicator"
	"github.com/efls-io/efls-go/pkg/efserr"
	"github.com/efls-io/efls-go/pkg/kv"
	"github.com/efls-io/efls-go/pkg/log"
	"github.com/efls-io/efls-go/pkg/metrics"
	"github.com/efls-io/efls-go/pkg/reporter"
	"github.com/efls-io/efls-go/pkg/rpc"
	"github.com/efls-io/efls-go/pkg/security"
	"github.com/efls-io/efls-go/pkg/stage"
	"github.com/efls-io/efls-go/pkg/stage/boltstore"
	"github.com/efls-io/efls-go/pkg/stage/memstore"
	"github.com/efls-io/efls-go/proto/clusterpb"
)

// healthScanInterval is how often the worker's communicator/stage health
// components are refreshed from their own runtime state.
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
	Use:     "efls-worker",
	Short:   "efls-worker bootstraps one worker's federated training coordination substrate",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("efls-worker version %s\ncommit: %s\n", Version, Commit))
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

func init() {
	f := runCmd.Flags()
	f.String("scheduler-addr", "", "address of the efls-scheduler ClusterService endpoint")
	f.String("scheduler-kv-address", "", "RemoteKV address to resolve --scheduler-addr from, if --scheduler-addr is empty")
	f.String("job", "worker", "this worker's job name, as registered in the scheduler's cluster config")
	f.Int64("id", 0, "this worker's task index within --job")
	f.String("my-addr", "", "address this worker's TrainerService communicator listens on, and registers with the scheduler")
	f.String("peer-job", "worker", "job name of the peer this worker's communicator pairs with")
	f.Int64("peer-id", 1, "task index of the peer within --peer-job")
	f.Bool("initiate", true, "dial the peer (RequestConnection) rather than wait for it (ResponseConnection)")
	f.Duration("report-interval", 2*time.Second, "interval between RegisterNode heartbeats")
	f.Duration("scan-interval", 200*time.Millisecond, "Monitor timeout-scan interval")
	f.Duration("default-timeout", 30*time.Second, "default rendezvous timeout for tensor/reader-state/ckpt-version exchanges")
	f.String("tensor-names", "", "comma-separated tensor names this worker exchanges")
	f.String("reader-names", "", "comma-separated dataset reader names this worker exchanges state for")
	f.String("stage-store", "mem", "stage row store backend: mem or bolt")
	f.String("stage-db", "stage.db", "bbolt file path when --stage-store=bolt")
	f.Int64("worker-num", 2, "total number of workers in the stage barrier")
	f.String("kv-cache-db", "", "bbolt file backing the cache:// RemoteKV snapshot backend (disabled if empty)")
	f.String("metrics-addr", "", "address to serve Prometheus metrics and health endpoints on (disabled if empty)")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Register with the scheduler and bring up the communicator and stage coordinator",
	RunE:  runWorker,
}

// envMillis reads name as a millisecond duration, for the two Monitor
// tunables the original bakes into op attributes at graph-construction
// time instead of reading from the environment.
func envMillis(name string) (time.Duration, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	ms, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func runWorker(cmd *cobra.Command, args []string) error {
	schedulerAddr, _ := cmd.Flags().GetString("scheduler-addr")
	schedulerKVAddress, _ := cmd.Flags().GetString("scheduler-kv-address")
	job, _ := cmd.Flags().GetString("job")
	id, _ := cmd.Flags().GetInt64("id")
	myAddr, _ := cmd.Flags().GetString("my-addr")
	peerJob, _ := cmd.Flags().GetString("peer-job")
	peerID, _ := cmd.Flags().GetInt64("peer-id")
	initiate, _ := cmd.Flags().GetBool("initiate")
	reportInterval, _ := cmd.Flags().GetDuration("report-interval")
	scanInterval, _ := cmd.Flags().GetDuration("scan-interval")
	defaultTimeout, _ := cmd.Flags().GetDuration("default-timeout")
	if !cmd.Flags().Changed("scan-interval") {
		if v, ok := envMillis("EFL_SCANNING_INTERVAL_MS"); ok {
			scanInterval = v
		}
	}
	if !cmd.Flags().Changed("default-timeout") {
		if v, ok := envMillis("EFL_DEFAULT_TIMEOUT_MS"); ok {
			defaultTimeout = v
		}
	}
	tensorNames, _ := cmd.Flags().GetString("tensor-names")
	readerNames, _ := cmd.Flags().GetString("reader-names")
	stageStoreKind, _ := cmd.Flags().GetString("stage-store")
	stageDB, _ := cmd.Flags().GetString("stage-db")
	workerNum, _ := cmd.Flags().GetInt64("worker-num")
	kvCacheDB, _ := cmd.Flags().GetString("kv-cache-db")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	if kvCacheDB != "" {
		cache, err := kv.OpenBoltCache(kvCacheDB)
		if err != nil {
			return fmt.Errorf("open kv snapshot cache: %w", err)
		}
		defer cache.Close()
	}

	if schedulerAddr == "" {
		if schedulerKVAddress == "" {
			return fmt.Errorf("one of --scheduler-addr or --scheduler-kv-address is required")
		}
		resolved, err := kv.Default().Get(schedulerKVAddress)
		if err != nil {
			return fmt.Errorf("resolve scheduler address from %s: %w", schedulerKVAddress, err)
		}
		schedulerAddr = resolved
	}

	tlsConfig, err := security.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load TLS config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rep := reporter.New(schedulerAddr, schedulerKVAddress, job, id, myAddr, reportInterval, tlsConfig)
	rep.Start(ctx)
	defer rep.Stop()

	log.Logger.Info().Str("job", job).Int64("id", id).Str("scheduler", schedulerAddr).Msg("registering with scheduler")
	peerAddr, err := awaitPeerAddress(ctx, schedulerAddr, tlsConfig, peerJob, peerID)
	if err != nil {
		return err
	}
	log.Logger.Info().Str("peer_addr", peerAddr).Msg("cluster topology resolved")

	store, err := newStageStore(stageStoreKind, stageDB)
	if err != nil {
		return err
	}
	stageCoord := stage.New(store, workerNum, id)
	log.Logger.Info().Str("stage_store", stageStoreKind).Msg("stage coordinator ready for the training harness")

	comm := communicator.New(myAddr, peerAddr, scanInterval, defaultTimeout,
		splitNonEmpty(tensorNames), splitNonEmpty(readerNames), tlsConfig)
	defer comm.Close()

	metrics.SetVersion(Version)
	metrics.SetCriticalComponents("communicator", "stage")
	metrics.RegisterComponent("communicator", false, "not connected")
	metrics.RegisterComponent("stage", true, "ready")

	go func() {
		ticker := time.NewTicker(healthScanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			metrics.UpdateComponent("communicator", comm.Status() == communicator.StatusConnected, comm.Status().String())
			if ready, err := stageCoord.Ready(); err != nil {
				metrics.UpdateComponent("stage", false, err.Error())
			} else {
				metrics.UpdateComponent("stage", ready, "")
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

	if initiate {
		if err := comm.RequestConnection(ctx); err != nil {
			return fmt.Errorf("connect to peer %s: %w", peerAddr, err)
		}
	} else {
		if err := comm.ResponseConnection(ctx); err != nil {
			return fmt.Errorf("accept connection from peer %s: %w", peerAddr, err)
		}
	}
	metrics.UpdateComponent("communicator", true, "connected")
	log.Logger.Info().Str("status", comm.Status().String()).Msg("communicator connected")

	<-ctx.Done()
	log.Logger.Info().Msg("shutting down")
	return nil
}

func newStageStore(kind, path string) (stage.RowStore, error) {
	switch kind {
	case "bolt":
		return boltstore.Open(path)
	case "mem", "":
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown stage store kind %q", kind)
	}
}

// awaitPeerAddress polls the scheduler's GetCluster until the peer's slot
// is filled, the same poll-until-ready loop the original's Python harness
// runs around MonitoredSession.
func awaitPeerAddress(ctx context.Context, schedulerAddr string, tlsConfig *tls.Config, peerJob string, peerID int64) (string, error) {
	creds := insecure.NewCredentials()
	if tlsConfig != nil {
		creds = credentials.NewTLS(tlsConfig)
	}
	conn, err := grpc.NewClient(schedulerAddr, grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rpc.CodecName)))
	if err != nil {
		return "", fmt.Errorf("dial scheduler %s: %w", schedulerAddr, err)
	}
	defer conn.Close()
	client := clusterpb.NewClusterServiceClient(conn)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		resp, err := client.GetCluster(ctx, &clusterpb.GetClusterRequest{})
		if err != nil {
			efErr := efserr.FromStatus(err)
			if !efserr.Is(efErr, efserr.Unavailable) {
				return "", efErr
			}
			// not ready yet, a normal poll outcome — keep waiting.
		} else {
			workers, ok := resp.Cluster[peerJob]
			if !ok || int(peerID) >= len(workers.Addresses) {
				return "", fmt.Errorf("peer %s/%d not present in resolved cluster", peerJob, peerID)
			}
			return workers.Addresses[peerID], nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}
