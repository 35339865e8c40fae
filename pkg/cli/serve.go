package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hfi-sidecar/engine/pkg/admin"
	"github.com/hfi-sidecar/engine/pkg/controller"
	"github.com/hfi-sidecar/engine/pkg/identity"
	"github.com/hfi-sidecar/engine/pkg/logging"
	"github.com/hfi-sidecar/engine/pkg/nethost"
)

var (
	serveListenAddr string
	serveAdminAddr  string
	serveUpstream   string
	serveCtrlPlane  string

	serveWorkloadName string
	serveNamespace    string
	serveCluster      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the fault-injection data plane in front of an upstream handler",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListenAddr, "listen", ":8080", "Data-plane listen address")
	serveCmd.Flags().StringVar(&serveAdminAddr, "admin-listen", ":8081", "Admin/diagnostics listen address")
	serveCmd.Flags().StringVar(&serveUpstream, "upstream", "http://localhost:8090", "Upstream URL the data plane reverse-proxies to")
	serveCmd.Flags().StringVar(&serveCtrlPlane, "control-plane", envOr("HFI_CONTROL_PLANE", "control-plane:8080"), "Control-plane authority (host:port)")
	serveCmd.Flags().StringVar(&serveWorkloadName, "workload-name", envOr("HFI_WORKLOAD_NAME", ""), "This sidecar's workload name, for identity-based rule filtering")
	serveCmd.Flags().StringVar(&serveNamespace, "namespace", envOr("HFI_NAMESPACE", ""), "This sidecar's namespace, for identity-based rule filtering")
	serveCmd.Flags().StringVar(&serveCluster, "cluster", envOr("HFI_CLUSTER", ""), "This sidecar's cluster name, for identity-based rule filtering")
	rootCmd.AddCommand(serveCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runServe() error {
	log := logging.New(logging.Config{Level: logging.ParseLevel(logLevel), Format: logging.FormatText})

	upstreamURL, err := url.Parse(serveUpstream)
	if err != nil {
		return fmt.Errorf("invalid --upstream %q: %w", serveUpstream, err)
	}

	host := nethost.New(nethost.Identity{
		WorkloadName: serveWorkloadName,
		Namespace:    serveNamespace,
		PodName:      os.Getenv("HOSTNAME"),
		Cluster:      serveCluster,
	}, &http.Client{Timeout: 10 * time.Second}, log)

	id := identity.New(serveWorkloadName, serveNamespace, os.Getenv("HOSTNAME"), serveCluster)
	root := controller.New(host.ForBackground(), serveCtrlPlane, &id, log)

	proxy := httputil.NewSingleHostReverseProxy(upstreamURL)
	dataPlane := nethost.Wrap(root, host, proxy)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go pollLoop(ctx, root, log)

	dataSrv := &http.Server{Addr: serveListenAddr, Handler: dataPlane}
	adminSrv := &http.Server{Addr: serveAdminAddr, Handler: admin.New(root).Handler()}

	errCh := make(chan error, 2)
	go func() { errCh <- dataSrv.ListenAndServe() }()
	go func() { errCh <- adminSrv.ListenAndServe() }()

	log.Info("hfi-sidecar started", "listen", serveListenAddr, "admin", serveAdminAddr, "upstream", serveUpstream, "control_plane", serveCtrlPlane)

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = dataSrv.Shutdown(shutdownCtx)
	_ = adminSrv.Shutdown(shutdownCtx)
	return nil
}

// pollLoop drives the Root Controller's Tick loop for
// the lifetime of the process, backing off per reconnect.Policy between
// fetch failures and resting for DefaultRefreshInterval after a success.
func pollLoop(ctx context.Context, root *controller.RootController, log *slog.Logger) {
	for {
		delay, keepTicking := root.Tick(ctx)
		if !keepTicking {
			log.Error("config polling stopped: reconnect attempts exhausted")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}
