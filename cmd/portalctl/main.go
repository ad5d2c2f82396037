// Command portalctl runs operator tasks against the portal store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/portal-sabido-api/internal/bootstrap"
	"github.com/noah-isme/portal-sabido-api/pkg/config"
	"github.com/noah-isme/portal-sabido-api/pkg/events"
	"github.com/noah-isme/portal-sabido-api/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&app{open: openRuntime}).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runtime is what every subcommand operates on.
type runtime struct {
	cfg       *config.Config
	logger    *zap.Logger
	stores    *bootstrap.Stores
	publisher events.Publisher
}

func (r *runtime) close() {
	if r.publisher != nil {
		_ = r.publisher.Close()
	}
	if r.stores != nil {
		_ = r.stores.Close()
	}
	_ = r.logger.Sync()
}

type app struct {
	open    func(ctx context.Context) (*runtime, error)
	jsonOut bool
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	stores, err := bootstrap.OpenStores(ctx, cfg, logr)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	publisher, err := events.Connect(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, logr)
	if err != nil {
		logr.Warn("event publishing unavailable", zap.Error(err))
		publisher = events.Noop{}
	}
	return &runtime{cfg: cfg, logger: logr, stores: stores, publisher: publisher}, nil
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portalctl",
		Short: "Operator tasks for the Portal Sabido store",
		Long: `Operator tasks for the Portal Sabido store.

The store is selected with STORE_DRIVER (postgres or mongo) and the usual
connection variables, read from the environment or a .env file.

Examples:
  portalctl migrate
  portalctl check-db --counts-only
  portalctl seed-announcements --file announcements.yaml --code 1234
  portalctl reconcile --json
`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Output results as JSON")

	cmd.AddCommand(migrateCmd(a), checkDBCmd(a), seedCmd(a), reconcileCmd(a))
	return cmd
}

// with opens the runtime, runs fn and releases it.
func (a *app) with(cmd *cobra.Command, fn func(ctx context.Context, rt *runtime, out io.Writer) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer rt.close()
	return fn(ctx, rt, cmd.OutOrStdout())
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
